package config

import (
	"fmt"

	"northstar/internal/comb"
)

// EngineConfig tunes the scorer. Zero values fall back to the scorer defaults.
type EngineConfig struct {
	// Default number of recommended actions when a request sets none (1-4)
	DefaultLimit int `yaml:"default_limit"`

	// Driver scores substituted for missing input
	Baseline comb.Scores `yaml:"baseline"`

	// Risk weighting of pillar metrics
	Weights comb.RiskWeights `yaml:"weights"`
}

// DefaultEngineConfig mirrors comb.DefaultConfig.
func DefaultEngineConfig() EngineConfig {
	d := comb.DefaultConfig()
	return EngineConfig{
		DefaultLimit: d.MaxActions,
		Baseline:     d.Baseline,
		Weights:      d.Weights,
	}
}

// ScorerConfig builds the scorer configuration from the engine section.
func (e EngineConfig) ScorerConfig() comb.Config {
	cfg := comb.DefaultConfig()
	if e.Baseline != (comb.Scores{}) {
		cfg.Baseline = e.Baseline
	}
	if e.Weights != (comb.RiskWeights{}) {
		cfg.Weights = e.Weights
	}
	return cfg
}

// Limit returns the configured default action limit, clamped to [1,4].
func (e EngineConfig) Limit() int {
	switch {
	case e.DefaultLimit <= 0:
		return comb.DefaultConfig().MaxActions
	case e.DefaultLimit > comb.DefaultConfig().MaxActions:
		return comb.DefaultConfig().MaxActions
	}
	return e.DefaultLimit
}

// Validate reports engine settings the scorer cannot use.
func (e EngineConfig) Validate() error {
	if e.DefaultLimit < 0 || e.DefaultLimit > 4 {
		return fmt.Errorf("default_limit must be between 0 and 4, got %d", e.DefaultLimit)
	}
	if e.Weights.RecencyCapDays < 0 {
		return fmt.Errorf("weights.recency_cap_days must not be negative")
	}
	return e.ScorerConfig().Validate()
}
