package app

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"coopos/hal"
	"coopos/kernel"
	"coopos/tasks"

	"github.com/sirupsen/logrus"
)

// Config is the whole system configuration. Defaults come from
// DefaultConfig, then an optional JSON file, then the environment, then
// command-line flags.
type Config struct {
	QuantumMS         int    `json:"quantum_ms"`
	InstructionCostMS int    `json:"instruction_cost_ms"`
	Seed              uint64 `json:"seed"`
	Swap              string `json:"swap"`
	FileRoot          string `json:"file_root"`
	UsageSlots        int    `json:"usage_slots"`
	Boot              string `json:"boot"`

	LogLevel string `json:"log_level"`
	LogFile  string `json:"log_file"`

	Headless bool   `json:"headless"`
	Hz       int    `json:"hz"`
	Ticks    uint64 `json:"ticks"`
	Snapshot string `json:"snapshot"`
}

func DefaultConfig() Config {
	return Config{
		QuantumMS:         250,
		InstructionCostMS: 10,
		Swap:              "file swapfile.dat",
		FileRoot:          ".",
		UsageSlots:        kernel.DefaultUsageSlots,
		Boot:              tasks.DefaultBoot,
		LogLevel:          "info",
		Hz:                60,
	}
}

// LoadFile decodes the JSON file at path over cfg. Keys missing from the
// file keep their current values.
func LoadFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides cfg from COOPOS_* variables.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup("COOPOS_SWAP"); ok && v != "" {
		cfg.Swap = v
	}
	if v, ok := lookup("COOPOS_LOG_LEVEL"); ok && v != "" {
		cfg.LogLevel = v
	}
	if v, ok := lookup("COOPOS_SEED"); ok && v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("COOPOS_SEED: %w", err)
		}
		cfg.Seed = seed
	}
	return nil
}

// Validate reports the first setting that cannot work.
func (c Config) Validate() error {
	switch {
	case c.QuantumMS <= 0:
		return fmt.Errorf("quantum_ms must be positive, got %d", c.QuantumMS)
	case c.InstructionCostMS < 0:
		return fmt.Errorf("instruction_cost_ms must not be negative, got %d", c.InstructionCostMS)
	case c.UsageSlots <= 0:
		return fmt.Errorf("usage_slots must be positive, got %d", c.UsageSlots)
	case c.Swap == "":
		return fmt.Errorf("swap must name a device")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if _, err := tasks.ParseBoot(c.Boot); err != nil {
		return fmt.Errorf("boot: %w", err)
	}
	return nil
}

func (c Config) kernelOptions(log logrus.FieldLogger) kernel.Options {
	return kernel.Options{
		Quantum:         time.Duration(c.QuantumMS) * time.Millisecond,
		InstructionCost: time.Duration(c.InstructionCostMS) * time.Millisecond,
		Seed:            c.Seed,
		SwapSpec:        c.Swap,
		UsageSlots:      c.UsageSlots,
		Logger:          log,
	}
}

func (c Config) headless() hal.HeadlessConfig {
	return hal.HeadlessConfig{Hz: c.Hz, Ticks: c.Ticks}
}
