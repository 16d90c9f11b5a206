// Package config handles configuration loading and management for Synergy.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/synergyhq/synergy/internal/bidding"
)

// Config holds all configuration for Synergy.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Decisions DecisionsConfig `mapstructure:"decisions"`
	Ensemble  EnsembleConfig  `mapstructure:"ensemble"`
	Paths     PathsConfig     `mapstructure:"paths"`
}

// AnthropicConfig holds Anthropic API settings for the default agent executor.
type AnthropicConfig struct {
	APIKey        string `mapstructure:"api_key"`
	Model         string `mapstructure:"model"`
	UseAWSBedrock bool   `mapstructure:"use_aws_bedrock"`
	AWSRegion     string `mapstructure:"aws_region"`
	AWSProfile    string `mapstructure:"aws_profile"`
}

// ProvidersConfig holds the provider catalog the resource optimizer
// negotiates over, plus the global default.
type ProvidersConfig struct {
	Default string             `mapstructure:"default"`
	Catalog []bidding.Provider `mapstructure:"catalog"`
}

// DecisionsConfig holds governance decision settings.
type DecisionsConfig struct {
	// Timeout bounds how long a task waits on a pending decision before the
	// decision is escalated. Never auto-approves.
	Timeout time.Duration `mapstructure:"timeout"`
}

// EnsembleConfig holds ensemble validation settings.
type EnsembleConfig struct {
	// MinAgents is the smallest voting panel an ensemble check runs with.
	MinAgents int `mapstructure:"min_agents"`
}

// PathsConfig holds filesystem layout settings.
type PathsConfig struct {
	// DataDir is the per-project state directory (default ".synergy").
	DataDir string `mapstructure:"data_dir"`
}

// AuditDir returns the directory for daily audit log files.
func (c *Config) AuditDir() string { return filepath.Join(c.Paths.DataDir, "audit") }

// BackupDir returns the directory for rollback backups.
func (c *Config) BackupDir() string { return filepath.Join(c.Paths.DataDir, "backups") }

// DecisionSpoolDir returns the directory watched for out-of-band decision
// resolutions.
func (c *Config) DecisionSpoolDir() string { return filepath.Join(c.Paths.DataDir, "decisions") }

// SignalsDir returns the directory checked for stop/pause signal files.
func (c *Config) SignalsDir() string { return filepath.Join(c.Paths.DataDir, "signals") }

// AgentsStorePath returns the agents store file.
func (c *Config) AgentsStorePath() string { return filepath.Join(c.Paths.DataDir, "agents.json") }

// ProjectsStorePath returns the tasks/projects store file.
func (c *Config) ProjectsStorePath() string { return filepath.Join(c.Paths.DataDir, "projects.json") }

// GoalsStorePath returns the goals store file.
func (c *Config) GoalsStorePath() string { return filepath.Join(c.Paths.DataDir, "goals.json") }

// CollabStorePath returns the collaboration-history store file.
func (c *Config) CollabStorePath() string { return filepath.Join(c.Paths.DataDir, "collab.json") }

// PolicyRulesPath returns the optional YAML policy rules file.
func (c *Config) PolicyRulesPath() string { return filepath.Join(c.Paths.DataDir, "policies.yaml") }

// StateDBPath returns the project-local run database.
func (c *Config) StateDBPath() string { return filepath.Join(c.Paths.DataDir, "state.db") }

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
//  1. Environment variables (SYNERGY_ prefixed, e.g. SYNERGY_DECISIONS_TIMEOUT;
//     the API key also honors plain ANTHROPIC_API_KEY)
//  2. Project config (.synergy.yaml in current directory or parent)
//  3. User config (~/.config/synergy/config.yaml)
//  4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("SYNERGY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "SYNERGY_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("anthropic.api_key", cfg.Anthropic.APIKey)
	v.Set("anthropic.model", cfg.Anthropic.Model)
	v.Set("anthropic.use_aws_bedrock", cfg.Anthropic.UseAWSBedrock)
	v.Set("anthropic.aws_region", cfg.Anthropic.AWSRegion)
	v.Set("anthropic.aws_profile", cfg.Anthropic.AWSProfile)
	v.Set("providers.default", cfg.Providers.Default)
	v.Set("decisions.timeout", cfg.Decisions.Timeout.String())
	v.Set("ensemble.min_agents", cfg.Ensemble.MinAgents)
	v.Set("paths.data_dir", cfg.Paths.DataDir)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "")
	v.SetDefault("anthropic.use_aws_bedrock", false)

	v.SetDefault("providers.default", "general")
	v.SetDefault("providers.catalog", []map[string]interface{}{
		{"name": "general", "class": "standard", "multi_skill": false},
		{"name": "premium-reasoner", "class": "premium", "multi_skill": false},
		{"name": "generalist-plus", "class": "standard", "multi_skill": true},
	})

	v.SetDefault("decisions.timeout", "30m")
	v.SetDefault("ensemble.min_agents", 3)
	v.SetDefault("paths.data_dir", ".synergy")
}

// getUserConfigDir returns the XDG config directory for Synergy.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "synergy")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "synergy")
	}
	return filepath.Join(home, ".config", "synergy")
}

// findProjectConfig searches for .synergy.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".synergy.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// expandEnv expands ${VAR} references in a string.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Anthropic: AnthropicConfig{},
		Providers: ProvidersConfig{
			Default: "general",
			Catalog: []bidding.Provider{
				{Name: "general", Class: "standard"},
				{Name: "premium-reasoner", Class: "premium"},
				{Name: "generalist-plus", Class: "standard", MultiSkill: true},
			},
		},
		Decisions: DecisionsConfig{Timeout: 30 * time.Minute},
		Ensemble:  EnsembleConfig{MinAgents: 3},
		Paths:     PathsConfig{DataDir: ".synergy"},
	}
}
