package domain

import (
	"fmt"
	"time"
)

// EngineConfig bounds one engine instance. Supplied at construction, constant
// for the engine's lifetime.
type EngineConfig struct {
	MaxSteps                int           `json:"max_steps" yaml:"max_steps"`
	StepTimeout             time.Duration `json:"step_timeout" yaml:"step_timeout"`
	MaxRefinementIterations int           `json:"max_refinement_iterations" yaml:"max_refinement_iterations"`
	EnableToolValidation    bool          `json:"enable_tool_validation" yaml:"enable_tool_validation"`
}

// DefaultEngineConfig returns the budgets used when the caller specifies none.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MaxSteps:                10,
		StepTimeout:             30 * time.Second,
		MaxRefinementIterations: 5,
		EnableToolValidation:    true,
	}
}

// Validate rejects non-positive budgets.
func (c EngineConfig) Validate() error {
	if c.MaxSteps <= 0 {
		return fmt.Errorf("max_steps must be positive, got %d", c.MaxSteps)
	}
	if c.StepTimeout <= 0 {
		return fmt.Errorf("step_timeout must be positive, got %s", c.StepTimeout)
	}
	if c.MaxRefinementIterations <= 0 {
		return fmt.Errorf("max_refinement_iterations must be positive, got %d", c.MaxRefinementIterations)
	}
	return nil
}
