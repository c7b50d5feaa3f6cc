package config

import (
	"fmt"
	"os"
	"time"

	"github.com/conveyorworks/conveyor/internal/erp"
)

const (
	EnvERPBaseURL        = "CONVEYOR_ERP_BASE_URL"
	EnvERPTokenURL       = "CONVEYOR_ERP_TOKEN_URL"
	EnvERPClientID       = "CONVEYOR_ERP_CLIENT_ID"
	EnvERPClientSecret   = "CONVEYOR_ERP_CLIENT_SECRET"
	EnvERPScope          = "CONVEYOR_ERP_SCOPE"
	EnvERPRequestTimeout = "CONVEYOR_ERP_REQUEST_TIMEOUT"
)

// ERPConfig holds the sales-order endpoint and its client-credentials grant.
type ERPConfig struct {
	BaseURL        string `toml:"base_url"`
	TokenURL       string `toml:"token_url"`
	ClientID       string `toml:"client_id"`
	ClientSecret   string `toml:"client_secret"`
	Scope          string `toml:"scope"`
	RequestTimeout string `toml:"request_timeout"`
}

// Client converts the config into the ERP client's settings.
func (c *ERPConfig) Client() erp.Config {
	timeout, _ := time.ParseDuration(c.RequestTimeout)
	return erp.Config{
		BaseURL:        c.BaseURL,
		TokenURL:       c.TokenURL,
		ClientID:       c.ClientID,
		ClientSecret:   c.ClientSecret,
		Scope:          c.Scope,
		RequestTimeout: timeout,
	}
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *ERPConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *ERPConfig) Merge(overlay *ERPConfig) {
	if overlay.BaseURL != "" {
		c.BaseURL = overlay.BaseURL
	}
	if overlay.TokenURL != "" {
		c.TokenURL = overlay.TokenURL
	}
	if overlay.ClientID != "" {
		c.ClientID = overlay.ClientID
	}
	if overlay.ClientSecret != "" {
		c.ClientSecret = overlay.ClientSecret
	}
	if overlay.Scope != "" {
		c.Scope = overlay.Scope
	}
	if overlay.RequestTimeout != "" {
		c.RequestTimeout = overlay.RequestTimeout
	}
}

func (c *ERPConfig) loadDefaults() {
	if c.RequestTimeout == "" {
		c.RequestTimeout = "30s"
	}
}

func (c *ERPConfig) loadEnv() {
	if v := os.Getenv(EnvERPBaseURL); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv(EnvERPTokenURL); v != "" {
		c.TokenURL = v
	}
	if v := os.Getenv(EnvERPClientID); v != "" {
		c.ClientID = v
	}
	if v := os.Getenv(EnvERPClientSecret); v != "" {
		c.ClientSecret = v
	}
	if v := os.Getenv(EnvERPScope); v != "" {
		c.Scope = v
	}
	if v := os.Getenv(EnvERPRequestTimeout); v != "" {
		c.RequestTimeout = v
	}
}

func (c *ERPConfig) validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url required")
	}
	if c.TokenURL != "" && (c.ClientID == "" || c.ClientSecret == "") {
		return fmt.Errorf("client_id and client_secret required when token_url set")
	}
	if _, err := time.ParseDuration(c.RequestTimeout); err != nil {
		return fmt.Errorf("invalid request_timeout: %w", err)
	}
	return nil
}
