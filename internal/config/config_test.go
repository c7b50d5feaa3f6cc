package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/conveyorworks/conveyor/internal/config"
)

const baseConfig = `
shutdown_timeout = "30s"
version = "0.1.0"

[database]
name = "conveyor"
user = "conveyor"
password = "conveyor"

[locks]
url = "redis://localhost:6379/0"

[mail]
inbox_dir = "emails"

[extraction]
api_key = "test-key"
model = "gemini-2.0-flash"

[erp]
base_url = "https://erp.example.com/ODataV4"
token_url = "https://login.example.com/token"
client_id = "client"
client_secret = "secret"

[posting]
max_attempts = 5
external_document_no = "CONVEYOR"

[workflow]
batch_size = 20
fuzzy_threshold = 0.8
notify_address = "ops@example.com"
`

const overlayConfig = `
[database]
host = "prodhost"

[workflow]
batch_size = 5
`

func writeConfig(t *testing.T, dir, filename, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, filename), []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", filename, err)
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(orig) })
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.toml", baseConfig)
	chdir(t, dir)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Database.Name != "conveyor" {
		t.Errorf("db name: got %s, want conveyor", cfg.Database.Name)
	}
	if cfg.Database.Port != 5432 {
		t.Errorf("db port default: got %d, want 5432", cfg.Database.Port)
	}
	if cfg.Mail.InboxDir != "emails" {
		t.Errorf("inbox dir: got %s, want emails", cfg.Mail.InboxDir)
	}
	if cfg.Extraction.APIKey != "test-key" {
		t.Errorf("extraction api key: got %s", cfg.Extraction.APIKey)
	}
	if cfg.ERP.BaseURL != "https://erp.example.com/ODataV4" {
		t.Errorf("erp base url: got %s", cfg.ERP.BaseURL)
	}
	if cfg.Posting.MaxAttempts != 5 {
		t.Errorf("posting max attempts: got %d, want 5", cfg.Posting.MaxAttempts)
	}
	if cfg.Workflow.BatchSize != 20 {
		t.Errorf("batch size: got %d, want 20", cfg.Workflow.BatchSize)
	}
	if cfg.Workflow.FuzzyThreshold != 0.8 {
		t.Errorf("fuzzy threshold: got %v, want 0.8", cfg.Workflow.FuzzyThreshold)
	}
	if cfg.Workflow.MinConfidence != 0.35 {
		t.Errorf("min confidence default: got %v, want 0.35", cfg.Workflow.MinConfidence)
	}
	if cfg.ShutdownTimeoutDuration() != 30*time.Second {
		t.Errorf("shutdown timeout: got %v, want 30s", cfg.ShutdownTimeoutDuration())
	}
}

func TestLoadWithOverlay(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.toml", baseConfig)
	writeConfig(t, dir, "config.staging.toml", overlayConfig)
	chdir(t, dir)

	t.Setenv("CONVEYOR_ENV", "staging")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Database.Host != "prodhost" {
		t.Errorf("db host: got %s, want prodhost (from overlay)", cfg.Database.Host)
	}
	if cfg.Database.Name != "conveyor" {
		t.Errorf("db name: got %s, want conveyor (from base)", cfg.Database.Name)
	}
	if cfg.Workflow.BatchSize != 5 {
		t.Errorf("batch size: got %d, want 5 (from overlay)", cfg.Workflow.BatchSize)
	}
	if cfg.Workflow.NotifyAddress != "ops@example.com" {
		t.Errorf("notify address: got %s, want ops@example.com (from base)", cfg.Workflow.NotifyAddress)
	}
}

func TestLoadEnvVarOverrides(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.toml", baseConfig)
	chdir(t, dir)

	t.Setenv("CONVEYOR_VERSION", "2.0.0")
	t.Setenv("CONVEYOR_DB_HOST", "envhost")
	t.Setenv("CONVEYOR_WORKFLOW_BATCH_SIZE", "3")
	t.Setenv("CONVEYOR_EXTRACTION_API_KEY", "env-key")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Version != "2.0.0" {
		t.Errorf("version: got %s, want 2.0.0", cfg.Version)
	}
	if cfg.Database.Host != "envhost" {
		t.Errorf("db host: got %s, want envhost", cfg.Database.Host)
	}
	if cfg.Workflow.BatchSize != 3 {
		t.Errorf("batch size: got %d, want 3", cfg.Workflow.BatchSize)
	}
	if cfg.Extraction.APIKey != "env-key" {
		t.Errorf("extraction api key: got %s, want env-key", cfg.Extraction.APIKey)
	}
}

func TestLoadNoConfigFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	t.Setenv("CONVEYOR_DB_NAME", "testdb")
	t.Setenv("CONVEYOR_DB_USER", "testuser")
	t.Setenv("CONVEYOR_EXTRACTION_API_KEY", "key")
	t.Setenv("CONVEYOR_ERP_BASE_URL", "https://erp.example.com")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load without config.toml failed: %v", err)
	}

	if cfg.Database.Name != "testdb" {
		t.Errorf("db name from env: got %s, want testdb", cfg.Database.Name)
	}
	if cfg.Workflow.BatchSize != 10 {
		t.Errorf("batch size default: got %d, want 10", cfg.Workflow.BatchSize)
	}
	if cfg.Workflow.FuzzyThreshold != 0.72 {
		t.Errorf("fuzzy threshold default: got %v, want 0.72", cfg.Workflow.FuzzyThreshold)
	}
	if cfg.Posting.MaxAttempts != 3 {
		t.Errorf("posting max attempts default: got %d, want 3", cfg.Posting.MaxAttempts)
	}
	if cfg.Locks.URL != "redis://localhost:6379/0" {
		t.Errorf("locks url default: got %s", cfg.Locks.URL)
	}
}

func TestLoadValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing extraction api key",
			content: `
[database]
name = "conveyor"
user = "conveyor"

[erp]
base_url = "https://erp.example.com"
`,
			wantErr: "api_key required",
		},
		{
			name: "missing erp base url",
			content: `
[database]
name = "conveyor"
user = "conveyor"

[extraction]
api_key = "key"
`,
			wantErr: "base_url required",
		},
		{
			name: "token url without credentials",
			content: `
[database]
name = "conveyor"
user = "conveyor"

[extraction]
api_key = "key"

[erp]
base_url = "https://erp.example.com"
token_url = "https://login.example.com/token"
`,
			wantErr: "client_id and client_secret required",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, dir, "config.toml", tc.content)
			chdir(t, dir)

			_, err := config.Load()
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("got %v, want error containing %q", err, tc.wantErr)
			}
		})
	}
}
