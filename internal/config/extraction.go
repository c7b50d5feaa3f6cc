package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/conveyorworks/conveyor/internal/extraction"
)

const (
	EnvExtractionAPIKey         = "CONVEYOR_EXTRACTION_API_KEY"
	EnvExtractionModel          = "CONVEYOR_EXTRACTION_MODEL"
	EnvExtractionBaseURL        = "CONVEYOR_EXTRACTION_BASE_URL"
	EnvExtractionRateLimitRPS   = "CONVEYOR_EXTRACTION_RATE_LIMIT_RPS"
	EnvExtractionRequestTimeout = "CONVEYOR_EXTRACTION_REQUEST_TIMEOUT"
)

// ExtractionConfig holds order-extraction model settings.
type ExtractionConfig struct {
	APIKey         string  `toml:"api_key"`
	Model          string  `toml:"model"`
	BaseURL        string  `toml:"base_url"`
	RateLimitRPS   float64 `toml:"rate_limit_rps"`
	RequestTimeout string  `toml:"request_timeout"`
}

// GenAI converts the config into the extraction adapter's settings.
func (c *ExtractionConfig) GenAI() extraction.GenAIConfig {
	timeout, _ := time.ParseDuration(c.RequestTimeout)
	return extraction.GenAIConfig{
		APIKey:         c.APIKey,
		Model:          c.Model,
		BaseURL:        c.BaseURL,
		RateLimitRPS:   c.RateLimitRPS,
		RequestTimeout: timeout,
	}
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *ExtractionConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *ExtractionConfig) Merge(overlay *ExtractionConfig) {
	if overlay.APIKey != "" {
		c.APIKey = overlay.APIKey
	}
	if overlay.Model != "" {
		c.Model = overlay.Model
	}
	if overlay.BaseURL != "" {
		c.BaseURL = overlay.BaseURL
	}
	if overlay.RateLimitRPS != 0 {
		c.RateLimitRPS = overlay.RateLimitRPS
	}
	if overlay.RequestTimeout != "" {
		c.RequestTimeout = overlay.RequestTimeout
	}
}

func (c *ExtractionConfig) loadDefaults() {
	if c.Model == "" {
		c.Model = "gemini-2.0-flash"
	}
	if c.RateLimitRPS == 0 {
		c.RateLimitRPS = 1
	}
	if c.RequestTimeout == "" {
		c.RequestTimeout = "60s"
	}
}

func (c *ExtractionConfig) loadEnv() {
	if v := os.Getenv(EnvExtractionAPIKey); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv(EnvExtractionModel); v != "" {
		c.Model = v
	}
	if v := os.Getenv(EnvExtractionBaseURL); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv(EnvExtractionRateLimitRPS); v != "" {
		if rps, err := strconv.ParseFloat(v, 64); err == nil {
			c.RateLimitRPS = rps
		}
	}
	if v := os.Getenv(EnvExtractionRequestTimeout); v != "" {
		c.RequestTimeout = v
	}
}

func (c *ExtractionConfig) validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("api_key required")
	}
	if _, err := time.ParseDuration(c.RequestTimeout); err != nil {
		return fmt.Errorf("invalid request_timeout: %w", err)
	}
	return nil
}
