package locks

import (
	"fmt"
	"os"
	"time"
)

// Config holds Redis lock parameters.
type Config struct {
	URL       string `toml:"url"`
	TTL       string `toml:"ttl"`
	RetryWait string `toml:"retry_wait"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	URL       string
	TTL       string
	RetryWait string
}

// TTLDuration returns TTL as a time.Duration.
func (c *Config) TTLDuration() time.Duration {
	d, _ := time.ParseDuration(c.TTL)
	return d
}

// RetryWaitDuration returns RetryWait as a time.Duration.
func (c *Config) RetryWaitDuration() time.Duration {
	d, _ := time.ParseDuration(c.RetryWait)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.URL != "" {
		c.URL = overlay.URL
	}
	if overlay.TTL != "" {
		c.TTL = overlay.TTL
	}
	if overlay.RetryWait != "" {
		c.RetryWait = overlay.RetryWait
	}
}

func (c *Config) loadDefaults() {
	if c.URL == "" {
		c.URL = "redis://localhost:6379/0"
	}
	if c.TTL == "" {
		c.TTL = "2m"
	}
	if c.RetryWait == "" {
		c.RetryWait = "250ms"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.URL != "" {
		if v := os.Getenv(env.URL); v != "" {
			c.URL = v
		}
	}
	if env.TTL != "" {
		if v := os.Getenv(env.TTL); v != "" {
			c.TTL = v
		}
	}
	if env.RetryWait != "" {
		if v := os.Getenv(env.RetryWait); v != "" {
			c.RetryWait = v
		}
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.TTL); err != nil {
		return fmt.Errorf("invalid ttl: %w", err)
	}
	if _, err := time.ParseDuration(c.RetryWait); err != nil {
		return fmt.Errorf("invalid retry_wait: %w", err)
	}
	return nil
}
