package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Providers.Default != "general" {
		t.Errorf("expected default provider 'general', got %q", cfg.Providers.Default)
	}

	if len(cfg.Providers.Catalog) != 3 {
		t.Errorf("expected 3 catalog providers, got %d", len(cfg.Providers.Catalog))
	}

	if cfg.Decisions.Timeout != 30*time.Minute {
		t.Errorf("expected decision timeout 30m, got %v", cfg.Decisions.Timeout)
	}

	if cfg.Ensemble.MinAgents != 3 {
		t.Errorf("expected min agents 3, got %d", cfg.Ensemble.MinAgents)
	}

	if cfg.Paths.DataDir != ".synergy" {
		t.Errorf("expected data dir '.synergy', got %q", cfg.Paths.DataDir)
	}
}

func TestLoadFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
anthropic:
  model: claude-sonnet-4-20250514
providers:
  default: premium-reasoner
  catalog:
    - name: premium-reasoner
      class: premium
    - name: frontend-specialist
      class: standard
      multi_skill: true
decisions:
  timeout: 5m
ensemble:
  min_agents: 5
paths:
  data_dir: /tmp/synergy-test
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}

	if cfg.Anthropic.Model != "claude-sonnet-4-20250514" {
		t.Errorf("model = %q", cfg.Anthropic.Model)
	}
	if cfg.Providers.Default != "premium-reasoner" {
		t.Errorf("default provider = %q", cfg.Providers.Default)
	}
	if len(cfg.Providers.Catalog) != 2 {
		t.Fatalf("catalog size = %d", len(cfg.Providers.Catalog))
	}
	if !cfg.Providers.Catalog[1].MultiSkill {
		t.Error("multi_skill not parsed")
	}
	if cfg.Decisions.Timeout != 5*time.Minute {
		t.Errorf("decision timeout = %v", cfg.Decisions.Timeout)
	}
	if cfg.Ensemble.MinAgents != 5 {
		t.Errorf("min agents = %d", cfg.Ensemble.MinAgents)
	}
}

func TestLoadFromPathUsesDefaultsForMissingKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(path, []byte("providers:\n  default: general\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}

	if cfg.Decisions.Timeout != 30*time.Minute {
		t.Errorf("missing timeout should default to 30m, got %v", cfg.Decisions.Timeout)
	}
	if cfg.Paths.DataDir != ".synergy" {
		t.Errorf("missing data dir should default to .synergy, got %q", cfg.Paths.DataDir)
	}
}

func TestLoadFromPathExpandsAPIKeyEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	t.Setenv("SYNERGY_TEST_KEY", "sk-ant-expanded")
	content := "anthropic:\n  api_key: ${SYNERGY_TEST_KEY}\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.Anthropic.APIKey != "sk-ant-expanded" {
		t.Errorf("api key = %q", cfg.Anthropic.APIKey)
	}
}

func TestLoadHonorsPrefixedEnvOverrides(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(t.TempDir())
	t.Setenv("SYNERGY_DECISIONS_TIMEOUT", "2m")
	t.Setenv("SYNERGY_ANTHROPIC_API_KEY", "sk-ant-env-layered")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Decisions.Timeout != 2*time.Minute {
		t.Errorf("decision timeout = %v, want env override 2m", cfg.Decisions.Timeout)
	}
	if cfg.Anthropic.APIKey != "sk-ant-env-layered" {
		t.Errorf("api key = %q, want env override", cfg.Anthropic.APIKey)
	}
}

func TestConfigPaths(t *testing.T) {
	cfg := Default()
	cfg.Paths.DataDir = ".synergy"

	if got := cfg.AuditDir(); got != filepath.Join(".synergy", "audit") {
		t.Errorf("AuditDir = %q", got)
	}
	if got := cfg.DecisionSpoolDir(); got != filepath.Join(".synergy", "decisions") {
		t.Errorf("DecisionSpoolDir = %q", got)
	}
	if got := cfg.StateDBPath(); got != filepath.Join(".synergy", "state.db") {
		t.Errorf("StateDBPath = %q", got)
	}
}
