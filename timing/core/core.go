// Package core provides the cycle-accurate CPU core model.
// It wraps the pipeline implementation together with a run configuration.
package core

import (
	"fmt"

	"github.com/sarchlab/rvsim/timing/config"
	"github.com/sarchlab/rvsim/timing/pipeline"
)

// Stats holds performance statistics for the core.
type Stats struct {
	pipeline.Statistics

	// SimulatedSeconds is the simulated time at the configured clock.
	SimulatedSeconds float64
}

// Core represents a cycle-accurate CPU core model.
type Core struct {
	// Pipeline is the underlying 5-stage pipeline.
	Pipeline *pipeline.Pipeline

	config *config.Config
}

// NewCore creates a core for the program words, configured by cfg. Extra
// pipeline options are applied after the ones derived from cfg.
func NewCore(
	program []uint32,
	labels []string,
	cfg *config.Config,
	opts ...pipeline.PipelineOption,
) (*Core, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	policy, err := cfg.Policy()
	if err != nil {
		return nil, err
	}

	all := []pipeline.PipelineOption{
		pipeline.WithForwarding(cfg.Forwarding),
		pipeline.WithLabels(labels),
		pipeline.WithMemoryPolicy(policy),
	}
	all = append(all, opts...)

	return &Core{
		Pipeline: pipeline.NewPipeline(program, cfg.Cycles, all...),
		config:   cfg.Clone(),
	}, nil
}

// Config returns a copy of the core configuration.
func (c *Core) Config() *config.Config {
	return c.config.Clone()
}

// Tick executes one pipeline cycle.
func (c *Core) Tick() {
	c.Pipeline.Tick()
}

// Halted returns true if the core stopped on a memory fault.
func (c *Core) Halted() bool {
	return c.Pipeline.Halted()
}

// Err returns the fault that halted the core, if any.
func (c *Core) Err() error {
	return c.Pipeline.Err()
}

// Log returns the pipeline log.
func (c *Core) Log() *pipeline.Log {
	return c.Pipeline.Log()
}

// Run runs the configured number of cycles, or until a fault halts the
// core.
func (c *Core) Run() error {
	return c.Pipeline.Run()
}

// RunCycles runs up to cycles cycles. Returns true if still running.
func (c *Core) RunCycles(cycles int) bool {
	return c.Pipeline.RunCycles(cycles)
}

// Stats returns performance statistics.
func (c *Core) Stats() Stats {
	s := c.Pipeline.Stats()
	return Stats{
		Statistics:       s,
		SimulatedSeconds: c.config.SimulatedSeconds(s.Cycles),
	}
}
