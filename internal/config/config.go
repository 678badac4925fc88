// Package config provides configuration loading for convergd.
package config

import (
	"fmt"

	"github.com/fyrsmithlabs/convergd/internal/dispatch"
	"github.com/fyrsmithlabs/convergd/internal/findings"
	"github.com/fyrsmithlabs/convergd/internal/gate"
	"github.com/fyrsmithlabs/convergd/internal/logging"
	"github.com/fyrsmithlabs/convergd/internal/telemetry"
)

// Config is the root configuration for a convergd run.
type Config struct {
	Engine    EngineConfig     `koanf:"engine"`
	Gate      gate.Thresholds  `koanf:"gate"`
	Logging   logging.Config   `koanf:"logging"`
	Telemetry telemetry.Config `koanf:"telemetry"`
}

// EngineConfig tunes scheduling and aggregation.
type EngineConfig struct {
	// Concurrency bounds how many tasks run at once.
	Concurrency int `koanf:"concurrency"`

	// MaxIterations caps the convergence loop.
	MaxIterations int `koanf:"max_iterations"`

	// ConfidenceThreshold is the minimum confidence for a finding to be
	// reported, 0-100.
	ConfidenceThreshold int `koanf:"confidence_threshold"`
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Engine.Concurrency == 0 {
		cfg.Engine.Concurrency = dispatch.DefaultConcurrency
	}
	if cfg.Engine.MaxIterations == 0 {
		cfg.Engine.MaxIterations = 3
	}
	if cfg.Engine.ConfidenceThreshold == 0 {
		cfg.Engine.ConfidenceThreshold = findings.DefaultConfidenceThreshold
	}
	if cfg.Gate == (gate.Thresholds{}) {
		cfg.Gate = gate.DefaultThresholds()
	}
	if cfg.Logging.Level == "" {
		cfg.Logging = logging.NewDefaultConfig()
	}
	if cfg.Telemetry.Endpoint == "" {
		enabled := cfg.Telemetry.Enabled
		cfg.Telemetry = telemetry.NewDefaultConfig()
		cfg.Telemetry.Enabled = enabled
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Engine.Concurrency < 1 {
		return fmt.Errorf("engine.concurrency must be >= 1, got %d", c.Engine.Concurrency)
	}
	if c.Engine.MaxIterations < 1 {
		return fmt.Errorf("engine.max_iterations must be >= 1, got %d", c.Engine.MaxIterations)
	}
	if c.Engine.ConfidenceThreshold < 0 || c.Engine.ConfidenceThreshold > 100 {
		return fmt.Errorf("engine.confidence_threshold must be 0-100, got %d", c.Engine.ConfidenceThreshold)
	}
	if err := c.Gate.Validate(); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	return c.Telemetry.Validate()
}
