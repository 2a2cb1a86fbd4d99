package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"coopos/app"
	"coopos/hal"
	"coopos/tasks"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	def := app.DefaultConfig()
	var (
		configPath string
		flags      = def
	)
	flag.StringVar(&configPath, "config", "", "JSON config file.")
	flag.BoolVar(&flags.Headless, "headless", def.Headless, "Run without a window.")
	flag.IntVar(&flags.Hz, "hz", def.Hz, "Monitor refresh rate in headless mode.")
	flag.Uint64Var(&flags.Ticks, "ticks", def.Ticks, "Stop after N ticks in headless mode (0 = run forever).")
	flag.Uint64Var(&flags.Seed, "seed", def.Seed, "Scheduler and VM random seed (0 = time based).")
	flag.StringVar(&flags.Swap, "swap", def.Swap, "Swap device open spec.")
	flag.StringVar(&flags.FileRoot, "root", def.FileRoot, "Host directory backing the file device.")
	flag.IntVar(&flags.QuantumMS, "quantum", def.QuantumMS, "Quantum length in milliseconds.")
	flag.IntVar(&flags.InstructionCostMS, "cost", def.InstructionCostMS, "Simulated syscall cost in milliseconds.")
	flag.IntVar(&flags.UsageSlots, "slots", def.UsageSlots, "Usage table size.")
	flag.StringVar(&flags.LogLevel, "log-level", def.LogLevel, "Log level (debug, info, warn, error).")
	flag.StringVar(&flags.LogFile, "log-file", def.LogFile, "Also write logs to this file.")
	flag.StringVar(&flags.Boot, "boot", def.Boot, "Boot line; workloads: "+strings.Join(tasks.Names(), ", ")+".")
	flag.StringVar(&flags.Snapshot, "snapshot", def.Snapshot, "Write the framebuffer to this PNG on exit.")
	flag.Parse()

	cfg := def
	if configPath != "" {
		if err := app.LoadFile(configPath, &cfg); err != nil {
			return err
		}
	}
	if err := app.ApplyEnv(&cfg, os.LookupEnv); err != nil {
		return err
	}
	flag.Visit(func(f *flag.Flag) { applyFlag(&cfg, flags, f.Name) })

	log, closer, err := app.NewLogger(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	s, err := app.New(hal.New(), cfg, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return s.Run(ctx)
}

// applyFlag copies one explicitly set flag over the file and env values.
func applyFlag(cfg *app.Config, flags app.Config, name string) {
	switch name {
	case "headless":
		cfg.Headless = flags.Headless
	case "hz":
		cfg.Hz = flags.Hz
	case "ticks":
		cfg.Ticks = flags.Ticks
	case "seed":
		cfg.Seed = flags.Seed
	case "swap":
		cfg.Swap = flags.Swap
	case "root":
		cfg.FileRoot = flags.FileRoot
	case "quantum":
		cfg.QuantumMS = flags.QuantumMS
	case "cost":
		cfg.InstructionCostMS = flags.InstructionCostMS
	case "slots":
		cfg.UsageSlots = flags.UsageSlots
	case "log-level":
		cfg.LogLevel = flags.LogLevel
	case "log-file":
		cfg.LogFile = flags.LogFile
	case "boot":
		cfg.Boot = flags.Boot
	case "snapshot":
		cfg.Snapshot = flags.Snapshot
	}
}
