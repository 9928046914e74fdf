package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/figurant/shield"
)

// Config is the service configuration. Values come from an optional YAML
// file (FIGURANT_CONFIG, default figurant.yaml) with environment
// overrides on top. API keys are environment-only.
type Config struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"log_level"`
	AuditDB  string `yaml:"audit_db"`

	Model    ModelConfig    `yaml:"model"`
	Research ResearchConfig `yaml:"research"`
	Google   GoogleConfig   `yaml:"google"`
	Enrich   EnrichConfig   `yaml:"enrich"`

	// RateLimits maps "METHOD /path" to a request budget.
	RateLimits map[string]RateLimitConfig `yaml:"rate_limits"`
}

// ModelConfig selects the generative provider.
type ModelConfig struct {
	Provider    string  `yaml:"provider"` // "openai" or "gemini"
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`

	APIKey string `yaml:"-"`
}

// ResearchConfig selects the research provider. Perplexity-style
// endpoints are OpenAI-compatible, so base_url does the switching.
type ResearchConfig struct {
	Provider       string `yaml:"provider"`
	Model          string `yaml:"model"`
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`

	APIKey string `yaml:"-"`
}

// GoogleConfig wires the Sheets and Drive backends.
type GoogleConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	DriveFolderID   string `yaml:"drive_folder_id"`
	// StorageSheetID receives freshly generated personas in append mode.
	StorageSheetID string `yaml:"storage_sheet_id"`
}

// EnrichConfig tunes the enrichment pipeline's pacing.
type EnrichConfig struct {
	IntervalMs  int   `yaml:"interval_ms"`
	Concurrency int64 `yaml:"concurrency"`
}

// RateLimitConfig mirrors shield's per-endpoint budget in YAML form.
type RateLimitConfig struct {
	MaxRequests   int `yaml:"max_requests"`
	WindowSeconds int `yaml:"window_seconds"`
}

func defaultConfig() *Config {
	return &Config{
		Port:     "8080",
		LogLevel: "info",
		AuditDB:  "db/audit.db",
		Model: ModelConfig{
			Provider:    "openai",
			Model:       "gpt-4o",
			Temperature: 0.7,
			MaxTokens:   2000,
		},
		Research: ResearchConfig{
			Provider:       "openai",
			Model:          "sonar",
			BaseURL:        "https://api.perplexity.ai",
			TimeoutSeconds: 30,
		},
		Enrich: EnrichConfig{
			IntervalMs:  1000,
			Concurrency: 1,
		},
		RateLimits: map[string]RateLimitConfig{
			"POST /generate": {MaxRequests: 10, WindowSeconds: 60},
			"POST /chat":     {MaxRequests: 60, WindowSeconds: 60},
			"POST /upload":   {MaxRequests: 20, WindowSeconds: 60},
		},
	}
}

// loadConfig reads path (missing file is fine) and applies env overrides.
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// Env-only configuration.
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	cfg.Port = env("PORT", cfg.Port)
	cfg.LogLevel = env("LOG_LEVEL", cfg.LogLevel)
	cfg.AuditDB = env("AUDIT_DB", cfg.AuditDB)

	cfg.Model.Provider = env("MODEL_PROVIDER", cfg.Model.Provider)
	cfg.Model.Model = env("MODEL_NAME", cfg.Model.Model)
	cfg.Model.BaseURL = env("MODEL_BASE_URL", cfg.Model.BaseURL)
	switch cfg.Model.Provider {
	case "gemini":
		cfg.Model.APIKey = os.Getenv("GEMINI_API_KEY")
	default:
		cfg.Model.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	cfg.Research.Model = env("RESEARCH_MODEL", cfg.Research.Model)
	cfg.Research.BaseURL = env("RESEARCH_BASE_URL", cfg.Research.BaseURL)
	cfg.Research.APIKey = os.Getenv("RESEARCH_API_KEY")

	cfg.Google.CredentialsFile = env("GOOGLE_APPLICATION_CREDENTIALS", cfg.Google.CredentialsFile)
	cfg.Google.DriveFolderID = env("DRIVE_FOLDER_ID", cfg.Google.DriveFolderID)
	cfg.Google.StorageSheetID = env("STORAGE_SHEET_ID", cfg.Google.StorageSheetID)

	if v := os.Getenv("ENRICH_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Enrich.IntervalMs = n
		}
	}

	return cfg, nil
}

// shieldRules converts the YAML budgets into shield's rule map.
func (c *Config) shieldRules() map[string]shield.RateLimitConfig {
	rules := make(map[string]shield.RateLimitConfig, len(c.RateLimits))
	for key, rl := range c.RateLimits {
		rules[key] = shield.RateLimitConfig{
			MaxRequests:   rl.MaxRequests,
			WindowSeconds: rl.WindowSeconds,
			Enabled:       rl.MaxRequests > 0,
		}
	}
	return rules
}

func (c *Config) enrichInterval() time.Duration {
	return time.Duration(c.Enrich.IntervalMs) * time.Millisecond
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
