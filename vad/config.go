package vad

import "fmt"

// Config controls the voice activity gate in front of the pipeline.
type Config struct {
	// Disabled bypasses the gate entirely; every chunk reaches the
	// speaker buffers regardless of energy.
	Disabled bool `yaml:"disabled" mapstructure:"disabled"`

	// ThresholdDB is the energy floor in decibels below which a chunk
	// counts as silence.
	ThresholdDB float64 `yaml:"threshold_db" mapstructure:"threshold_db"`

	// HoldOpenSec keeps the gate open this many seconds after the last
	// speech chunk.
	HoldOpenSec float64 `yaml:"hold_open_sec" mapstructure:"hold_open_sec"`
}

// ApplyDefaults fills zero values with the default gate tuning.
func (c *Config) ApplyDefaults() {
	if c.ThresholdDB == 0 {
		c.ThresholdDB = DefaultThresholdDB
	}
	if c.HoldOpenSec == 0 {
		c.HoldOpenSec = DefaultHoldOpenSec
	}
}

// Validate checks the gate tuning for values that cannot work.
func (c *Config) Validate() error {
	if c.ThresholdDB >= 0 {
		return fmt.Errorf("vad.threshold_db must be negative, got %v", c.ThresholdDB)
	}
	if c.HoldOpenSec < 0 {
		return fmt.Errorf("vad.hold_open_sec must not be negative, got %v", c.HoldOpenSec)
	}
	return nil
}

// NewGateFromConfig builds a gate from config, or returns nil when the
// gate is disabled.
func NewGateFromConfig(cfg Config) *Gate {
	if cfg.Disabled {
		return nil
	}
	return NewGate(cfg.ThresholdDB, cfg.HoldOpenSec)
}
