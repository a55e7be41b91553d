package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds all runtime configuration for the extractor. It is parsed
// once at startup and passed explicitly to the services that need it; no
// package-level state.
type Config struct {
	// AI model access. BaseURL may point at any OpenAI-compatible
	// endpoint (the Gemini compatibility endpoint works).
	ModelAPIKey  string `env:"MODEL_API_KEY"`
	ModelBaseURL string `env:"MODEL_BASE_URL"`
	ModelName    string `env:"MODEL_NAME" envDefault:"gpt-4o-mini"`

	// Storage
	ArtifactBucket   string `env:"ARTIFACT_BUCKET"`
	ExtractionsTable string `env:"EXTRACTIONS_TABLE"`

	// Extraction behavior
	MinEventsBeforeTextFallback int `env:"MIN_EVENTS_BEFORE_TEXT_FALLBACK" envDefault:"5"`
	ExpectedYearMin             int `env:"EXPECTED_YEAR_MIN" envDefault:"2025"`
	ExpectedYearMax             int `env:"EXPECTED_YEAR_MAX" envDefault:"2026"`

	// Server
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":5000"`
}

// Load parses configuration from the environment
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment config: %w", err)
	}
	return &cfg, nil
}

// AIEnabled reports whether the extraction model is configured. Extraction
// is refused up front when it is not; this is a setup error, not a
// per-request one.
func (c *Config) AIEnabled() bool {
	return c.ModelAPIKey != ""
}
