package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/conveyorworks/conveyor/internal/posting"
)

const (
	EnvPostingMaxAttempts        = "CONVEYOR_POSTING_MAX_ATTEMPTS"
	EnvPostingBackoffInitial     = "CONVEYOR_POSTING_BACKOFF_INITIAL"
	EnvPostingBackoffMax         = "CONVEYOR_POSTING_BACKOFF_MAX"
	EnvPostingJitterFrac         = "CONVEYOR_POSTING_JITTER_FRAC"
	EnvPostingExternalDocumentNo = "CONVEYOR_POSTING_EXTERNAL_DOCUMENT_NO"
)

// PostingConfig holds gateway retry and submission parameters.
type PostingConfig struct {
	MaxAttempts        int     `toml:"max_attempts"`
	BackoffInitial     string  `toml:"backoff_initial"`
	BackoffMax         string  `toml:"backoff_max"`
	JitterFrac         float64 `toml:"jitter_frac"`
	ExternalDocumentNo string  `toml:"external_document_no"`
}

// Gateway converts the config into the posting gateway's settings.
func (c *PostingConfig) Gateway() posting.Config {
	initial, _ := time.ParseDuration(c.BackoffInitial)
	max, _ := time.ParseDuration(c.BackoffMax)
	return posting.Config{
		MaxAttempts:        c.MaxAttempts,
		BackoffInitial:     initial,
		BackoffMax:         max,
		JitterFrac:         c.JitterFrac,
		ExternalDocumentNo: c.ExternalDocumentNo,
	}
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *PostingConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *PostingConfig) Merge(overlay *PostingConfig) {
	if overlay.MaxAttempts != 0 {
		c.MaxAttempts = overlay.MaxAttempts
	}
	if overlay.BackoffInitial != "" {
		c.BackoffInitial = overlay.BackoffInitial
	}
	if overlay.BackoffMax != "" {
		c.BackoffMax = overlay.BackoffMax
	}
	if overlay.JitterFrac != 0 {
		c.JitterFrac = overlay.JitterFrac
	}
	if overlay.ExternalDocumentNo != "" {
		c.ExternalDocumentNo = overlay.ExternalDocumentNo
	}
}

func (c *PostingConfig) loadDefaults() {
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 3
	}
	if c.BackoffInitial == "" {
		c.BackoffInitial = "1s"
	}
	if c.BackoffMax == "" {
		c.BackoffMax = "30s"
	}
	if c.ExternalDocumentNo == "" {
		c.ExternalDocumentNo = "CONVEYOR"
	}
}

func (c *PostingConfig) loadEnv() {
	if v := os.Getenv(EnvPostingMaxAttempts); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxAttempts = n
		}
	}
	if v := os.Getenv(EnvPostingBackoffInitial); v != "" {
		c.BackoffInitial = v
	}
	if v := os.Getenv(EnvPostingBackoffMax); v != "" {
		c.BackoffMax = v
	}
	if v := os.Getenv(EnvPostingJitterFrac); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.JitterFrac = f
		}
	}
	if v := os.Getenv(EnvPostingExternalDocumentNo); v != "" {
		c.ExternalDocumentNo = v
	}
}

func (c *PostingConfig) validate() error {
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1")
	}
	if _, err := time.ParseDuration(c.BackoffInitial); err != nil {
		return fmt.Errorf("invalid backoff_initial: %w", err)
	}
	if _, err := time.ParseDuration(c.BackoffMax); err != nil {
		return fmt.Errorf("invalid backoff_max: %w", err)
	}
	if c.JitterFrac < 0 || c.JitterFrac >= 1 {
		return fmt.Errorf("jitter_frac must be in [0, 1)")
	}
	return nil
}
