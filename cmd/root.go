package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sim "github.com/WilhelmWidlund/CS487-Project/sim"
)

var (
	configPath   string        // Plant configuration YAML; empty uses the built-in station
	seed         int64         // Seed for fault injection
	tickInterval time.Duration // Simulated (and, for run, wall) time per tick
	logLevel     string        // Log verbosity level
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "paintsim",
	Short: "Paint mixing plant simulator",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setupLogging applies --log, exiting on an unknown level.
func setupLogging() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

// loadPlantConfig resolves the plant configuration: the file named by
// --config (or the built-in station), then --seed and --interval when given.
func loadPlantConfig(cmd *cobra.Command) (sim.PlantConfig, error) {
	cfg := sim.DefaultPlantConfig()
	if configPath != "" {
		loaded, err := sim.LoadPlantConfig(configPath)
		if err != nil {
			return sim.PlantConfig{}, err
		}
		cfg = *loaded
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed = seed
	}
	if cmd.Flags().Changed("interval") {
		cfg.TickInterval = tickInterval
	}
	if err := cfg.Validate(); err != nil {
		return sim.PlantConfig{}, fmt.Errorf("invalid plant config: %w", err)
	}
	return cfg, nil
}

// addPlantFlags registers the flags shared by run and step.
func addPlantFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configPath, "config", "", "Path to plant configuration YAML (default: built-in station)")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Seed for fault injection")
	cmd.Flags().DurationVar(&tickInterval, "interval", time.Second, "Time advanced per tick")
	cmd.Flags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
}

// init sets up CLI flags and subcommands
func init() {
	addPlantFlags(runCmd)
	runCmd.Flags().StringVar(&listenAddr, "addr", ":8080", "HTTP listen address for the exposure server")

	addPlantFlags(stepCmd)
	stepCmd.Flags().IntVar(&stepTicks, "ticks", 10, "Number of ticks to run")
	stepCmd.Flags().StringToStringVar(&valveSettings, "valve", nil, "Valve ratios to set before stepping, e.g. cyan=1.0,white=0.5")
	stepCmd.Flags().StringVar(&traceLevel, "trace-level", "alarms", "Trace verbosity (none, alarms, all)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(stepCmd)
}
