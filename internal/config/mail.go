package config

import (
	"fmt"
	"os"
)

const (
	EnvMailInboxDir = "CONVEYOR_MAIL_INBOX_DIR"
)

// MailConfig holds the local mail store location.
type MailConfig struct {
	InboxDir string `toml:"inbox_dir"`
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *MailConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *MailConfig) Merge(overlay *MailConfig) {
	if overlay.InboxDir != "" {
		c.InboxDir = overlay.InboxDir
	}
}

func (c *MailConfig) loadDefaults() {
	if c.InboxDir == "" {
		c.InboxDir = "inbox"
	}
}

func (c *MailConfig) loadEnv() {
	if v := os.Getenv(EnvMailInboxDir); v != "" {
		c.InboxDir = v
	}
}

func (c *MailConfig) validate() error {
	if c.InboxDir == "" {
		return fmt.Errorf("inbox_dir required")
	}
	return nil
}
