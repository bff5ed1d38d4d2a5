// Package config holds the JSON simulation configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/rvsim/emu"
)

// Config holds the parameters of one simulation run.
type Config struct {
	// Forwarding enables operand bypassing. Default: false.
	Forwarding bool `json:"forwarding"`

	// Cycles is the number of cycles to simulate. Default: 20.
	Cycles int `json:"cycles"`

	// MemoryPolicy is "ignore" or "fault". Default: "ignore".
	MemoryPolicy string `json:"memory_policy"`

	// ClockGHz is the core clock used to report simulated time.
	// Default: 1.0.
	ClockGHz float64 `json:"clock_ghz"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Forwarding:   false,
		Cycles:       20,
		MemoryPolicy: emu.PolicyIgnore.String(),
		ClockGHz:     1.0,
	}
}

// LoadConfig loads a Config from a JSON file. Fields missing from the file
// keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a Config to a JSON file.
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks that all values are usable.
func (c *Config) Validate() error {
	if c.Cycles <= 0 {
		return fmt.Errorf("cycles must be > 0")
	}
	if c.ClockGHz <= 0 {
		return fmt.Errorf("clock_ghz must be > 0")
	}
	if _, err := emu.ParseMemoryPolicy(c.MemoryPolicy); err != nil {
		return fmt.Errorf("memory_policy: %w", err)
	}
	return nil
}

// Clone returns a copy of the Config.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// Policy returns the parsed memory policy.
func (c *Config) Policy() (emu.MemoryPolicy, error) {
	return emu.ParseMemoryPolicy(c.MemoryPolicy)
}

// Freq returns the core clock frequency.
func (c *Config) Freq() sim.Freq {
	return sim.Freq(c.ClockGHz) * sim.GHz
}

// SimulatedSeconds returns the simulated time spanned by cycles.
func (c *Config) SimulatedSeconds(cycles uint64) float64 {
	freq := float64(c.Freq())
	if freq <= 0 {
		return 0
	}
	return float64(cycles) / freq
}
