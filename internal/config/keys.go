package config

import (
	"errors"
	"os"
	"strings"
)

// ErrNoAPIKey is returned when no Anthropic API key can be resolved.
var ErrNoAPIKey = errors.New("no Anthropic API key configured")

// keyEnvVars are checked in order. The prefixed form wins so a Synergy-only
// key can coexist with a machine-wide ANTHROPIC_API_KEY.
var keyEnvVars = []string{"SYNERGY_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY"}

// KeySource says where a resolved API key came from.
type KeySource string

const (
	KeySourceEnv    KeySource = "environment"
	KeySourceConfig KeySource = "config file"
	KeySourceNone   KeySource = "none"
)

// ResolveAPIKey returns the Anthropic API key and where it came from.
// Environment variables win over the config file, matching the rest of the
// config precedence. A config value may reference an environment variable
// as ${VAR}; an unresolved reference counts as no key.
func ResolveAPIKey(cfg *Config) (string, KeySource, error) {
	for _, name := range keyEnvVars {
		if key := os.Getenv(name); key != "" {
			return key, KeySourceEnv, nil
		}
	}
	if cfg != nil && cfg.Anthropic.APIKey != "" {
		key := os.ExpandEnv(cfg.Anthropic.APIKey)
		if key != "" && !strings.HasPrefix(key, "${") {
			return key, KeySourceConfig, nil
		}
	}
	return "", KeySourceNone, ErrNoAPIKey
}

// GetAPIKey returns just the resolved key.
func GetAPIKey(cfg *Config) (string, error) {
	key, _, err := ResolveAPIKey(cfg)
	return key, err
}

// ValidateAPIKey checks the shape of a key without calling the API.
func ValidateAPIKey(key string) error {
	switch {
	case key == "":
		return ErrNoAPIKey
	case !strings.HasPrefix(key, "sk-ant-"):
		return errors.New("API key must start with sk-ant-")
	case len(key) < 20:
		return errors.New("API key is too short")
	}
	return nil
}

// MaskAPIKey renders a key for display, keeping the prefix and tail.
func MaskAPIKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 15 {
		return "***"
	}
	return key[:7] + "..." + key[len(key)-4:]
}
