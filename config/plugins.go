package config

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/kilianp07/districtopt/core/factory"
)

// SolverConfig stores the type name of the solver backend and its raw
// configuration. The backend decodes the raw map into its own struct.
type SolverConfig factory.ModuleConfig

// DefaultSolver is the in-process backend.
const DefaultSolver = "simplex"

func (c *SolverConfig) SetDefaults() {
	if c.Type == "" {
		c.Type = DefaultSolver
	}
}

func (c SolverConfig) Validate() error {
	if c.Type == "" {
		return errors.New("solver type required")
	}
	return nil
}

// Module returns the config in the form expected by the solver registry.
func (c SolverConfig) Module() factory.ModuleConfig { return factory.ModuleConfig(c) }

// PipelineConfig bounds the number of districts solved at once.
type PipelineConfig struct {
	Workers int `json:"workers"`
}

func (c *PipelineConfig) SetDefaults() {
	if c.Workers == 0 {
		c.Workers = runtime.NumCPU()
	}
}

func (c PipelineConfig) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("pipeline workers must be positive, got %d", c.Workers)
	}
	return nil
}

// ResultsConfig lists the result sinks every district summary is written to.
type ResultsConfig struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
}

func (c ResultsConfig) Validate() error {
	for i, s := range c.Sinks {
		if s.Type == "" {
			return fmt.Errorf("results sink %d: type required", i)
		}
	}
	return nil
}
