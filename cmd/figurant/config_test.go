package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig_Defaults(t *testing.T) {
	// WHAT: a missing config file yields the defaults.
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "8080" {
		t.Errorf("port: got %q", cfg.Port)
	}
	if cfg.Model.Provider != "openai" {
		t.Errorf("provider: got %q", cfg.Model.Provider)
	}
	if cfg.Research.TimeoutSeconds != 30 {
		t.Errorf("research timeout: got %d", cfg.Research.TimeoutSeconds)
	}
	if cfg.Enrich.IntervalMs != 1000 {
		t.Errorf("enrich interval: got %d", cfg.Enrich.IntervalMs)
	}
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	// WHAT: YAML values load and env vars win over them.
	path := filepath.Join(t.TempDir(), "figurant.yaml")
	doc := `
port: "9090"
log_level: debug
model:
  provider: gemini
  model: gemini-2.0-flash
enrich:
  interval_ms: 250
rate_limits:
  "POST /generate":
    max_requests: 5
    window_seconds: 30
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PORT", "7070")
	t.Setenv("GEMINI_API_KEY", "test-key")

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "7070" {
		t.Errorf("env override lost: port %q", cfg.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log_level: got %q", cfg.LogLevel)
	}
	if cfg.Model.Provider != "gemini" || cfg.Model.APIKey != "test-key" {
		t.Errorf("model: got %+v", cfg.Model)
	}
	if cfg.Enrich.IntervalMs != 250 {
		t.Errorf("enrich interval: got %d", cfg.Enrich.IntervalMs)
	}

	rules := cfg.shieldRules()
	rule, ok := rules["POST /generate"]
	if !ok || rule.MaxRequests != 5 || rule.WindowSeconds != 30 || !rule.Enabled {
		t.Errorf("shield rule: got %+v", rule)
	}
}

func TestLoadConfig_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "figurant.yaml")
	os.WriteFile(path, []byte(":\nnot yaml ["), 0o644)
	if _, err := loadConfig(path); err == nil {
		t.Fatal("expected parse error")
	}
}
