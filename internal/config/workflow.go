package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/conveyorworks/conveyor/internal/workflow"
)

const (
	EnvWorkflowBatchSize           = "CONVEYOR_WORKFLOW_BATCH_SIZE"
	EnvWorkflowWorkers             = "CONVEYOR_WORKFLOW_WORKERS"
	EnvWorkflowFuzzyThreshold      = "CONVEYOR_WORKFLOW_FUZZY_THRESHOLD"
	EnvWorkflowMinConfidence       = "CONVEYOR_WORKFLOW_MIN_CONFIDENCE"
	EnvWorkflowMaxHandoffExchanges = "CONVEYOR_WORKFLOW_MAX_HANDOFF_EXCHANGES"
	EnvWorkflowNotifyAddress       = "CONVEYOR_WORKFLOW_NOTIFY_ADDRESS"
)

// WorkflowConfig holds orchestrator parameters.
type WorkflowConfig struct {
	BatchSize           int     `toml:"batch_size"`
	Workers             int     `toml:"workers"`
	FuzzyThreshold      float64 `toml:"fuzzy_threshold"`
	MinConfidence       float64 `toml:"min_confidence"`
	MaxHandoffExchanges int     `toml:"max_handoff_exchanges"`
	NotifyAddress       string  `toml:"notify_address"`
}

// Orchestrator converts the config into the orchestrator's settings.
func (c *WorkflowConfig) Orchestrator() workflow.Config {
	return workflow.Config{
		BatchSize:           c.BatchSize,
		Workers:             c.Workers,
		FuzzyThreshold:      c.FuzzyThreshold,
		MinConfidence:       c.MinConfidence,
		MaxHandoffExchanges: c.MaxHandoffExchanges,
		NotifyAddress:       c.NotifyAddress,
	}
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *WorkflowConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *WorkflowConfig) Merge(overlay *WorkflowConfig) {
	if overlay.BatchSize != 0 {
		c.BatchSize = overlay.BatchSize
	}
	if overlay.Workers != 0 {
		c.Workers = overlay.Workers
	}
	if overlay.FuzzyThreshold != 0 {
		c.FuzzyThreshold = overlay.FuzzyThreshold
	}
	if overlay.MinConfidence != 0 {
		c.MinConfidence = overlay.MinConfidence
	}
	if overlay.MaxHandoffExchanges != 0 {
		c.MaxHandoffExchanges = overlay.MaxHandoffExchanges
	}
	if overlay.NotifyAddress != "" {
		c.NotifyAddress = overlay.NotifyAddress
	}
}

func (c *WorkflowConfig) loadDefaults() {
	if c.BatchSize == 0 {
		c.BatchSize = 10
	}
	if c.Workers == 0 {
		c.Workers = 4
	}
	if c.FuzzyThreshold == 0 {
		c.FuzzyThreshold = 0.72
	}
	if c.MinConfidence == 0 {
		c.MinConfidence = 0.35
	}
	if c.MaxHandoffExchanges == 0 {
		c.MaxHandoffExchanges = 2
	}
}

func (c *WorkflowConfig) loadEnv() {
	if v := os.Getenv(EnvWorkflowBatchSize); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.BatchSize = n
		}
	}
	if v := os.Getenv(EnvWorkflowWorkers); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Workers = n
		}
	}
	if v := os.Getenv(EnvWorkflowFuzzyThreshold); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.FuzzyThreshold = f
		}
	}
	if v := os.Getenv(EnvWorkflowMinConfidence); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.MinConfidence = f
		}
	}
	if v := os.Getenv(EnvWorkflowMaxHandoffExchanges); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxHandoffExchanges = n
		}
	}
	if v := os.Getenv(EnvWorkflowNotifyAddress); v != "" {
		c.NotifyAddress = v
	}
}

func (c *WorkflowConfig) validate() error {
	if c.BatchSize < 1 {
		return fmt.Errorf("batch_size must be at least 1")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	if c.FuzzyThreshold <= 0 || c.FuzzyThreshold > 1 {
		return fmt.Errorf("fuzzy_threshold must be in (0, 1]")
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("min_confidence must be in [0, 1]")
	}
	if c.MaxHandoffExchanges < 1 {
		return fmt.Errorf("max_handoff_exchanges must be at least 1")
	}
	return nil
}
