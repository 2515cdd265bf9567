package cmd

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sim "github.com/prodline-sim/prodline-sim/sim"
)

var (
	// CLI flags for the simulation scenario
	configPath string  // YAML scenario file (flags override its values)
	logLevel   string  // Log verbosity level
	seed       int64   // Seed for random variate generation
	simHours   float64 // Simulated horizon in hours
	paceMs     int     // External pacing interval in ms (observability only)

	arrivalMean float64 // Mean interarrival time in minutes

	cutTime  float64 // Cutting base (mode) time in minutes
	cutLow   float64 // Cutting low triangular multiplier
	cutHigh  float64 // Cutting high triangular multiplier
	cellTime float64 // Cell-processing base time in minutes
	cellLow  float64 // Cell low triangular multiplier
	cellHigh float64 // Cell high triangular multiplier
	packTime float64 // Packaging base time in minutes
	packLow  float64 // Packaging low triangular multiplier
	packHigh float64 // Packaging high triangular multiplier

	cutterCapacity int // Cutter station capacity
	robotCapacity  int // Robot station capacity
	heaterCapacity int // Heater station capacity
	packerCapacity int // Packer station capacity

	buffer1Capacity int // Cutting → cell buffer capacity
	buffer2Capacity int // Cell → packaging buffer capacity

	failureMTBF float64 // Robot mean time between failures in minutes (0 disables)
	failureMTTR float64 // Robot mean time to repair in minutes
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "prodline-sim",
	Short: "Discrete-event simulator for a three-stage production line",
}

// buildConfig assembles the run configuration: defaults, then the optional
// YAML scenario file, then any flags the user set explicitly.
func buildConfig(cmd *cobra.Command) (sim.Config, error) {
	cfg := sim.DefaultConfig()
	if configPath != "" {
		loaded, err := sim.LoadConfig(configPath)
		if err != nil {
			return sim.Config{}, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("sim-hours") {
		cfg.SimHours = simHours
	}
	if flags.Changed("pace-ms") {
		cfg.PaceMs = paceMs
	}
	if flags.Changed("arrival-mean") {
		cfg.ArrivalMean = arrivalMean
	}
	if flags.Changed("cut-time") {
		cfg.Cut.BaseTime = cutTime
	}
	if flags.Changed("cut-low") {
		cfg.Cut.LowFactor = cutLow
	}
	if flags.Changed("cut-high") {
		cfg.Cut.HighFactor = cutHigh
	}
	if flags.Changed("cell-time") {
		cfg.Cell.BaseTime = cellTime
	}
	if flags.Changed("cell-low") {
		cfg.Cell.LowFactor = cellLow
	}
	if flags.Changed("cell-high") {
		cfg.Cell.HighFactor = cellHigh
	}
	if flags.Changed("pack-time") {
		cfg.Pack.BaseTime = packTime
	}
	if flags.Changed("pack-low") {
		cfg.Pack.LowFactor = packLow
	}
	if flags.Changed("pack-high") {
		cfg.Pack.HighFactor = packHigh
	}
	if flags.Changed("cutter-capacity") {
		cfg.CutterCapacity = cutterCapacity
	}
	if flags.Changed("robot-capacity") {
		cfg.RobotCapacity = robotCapacity
	}
	if flags.Changed("heater-capacity") {
		cfg.HeaterCapacity = heaterCapacity
	}
	if flags.Changed("packer-capacity") {
		cfg.PackerCapacity = packerCapacity
	}
	if flags.Changed("buffer1-capacity") {
		cfg.Buffer1Capacity = buffer1Capacity
	}
	if flags.Changed("buffer2-capacity") {
		cfg.Buffer2Capacity = buffer2Capacity
	}
	if flags.Changed("mtbf") {
		cfg.FailureMTBF = failureMTBF
	}
	if flags.Changed("mttr") {
		cfg.FailureMTTR = failureMTTR
	}
	return cfg, nil
}

// runCmd executes one simulation to its horizon and prints the summary
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the production-line simulation",
	Run: func(cmd *cobra.Command, args []string) {
		// Set up logging
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		cfg, err := buildConfig(cmd)
		if err != nil {
			logrus.Fatalf("Could not build configuration: %v", err)
		}

		logrus.Infof("Starting simulation: seed=%d, horizon=%.1fh, arrivalMean=%.2fmin, failures=%v",
			cfg.Seed, cfg.SimHours, cfg.ArrivalMean, cfg.FailuresEnabled())

		ctrl, err := sim.NewController(cfg)
		if err != nil {
			logrus.Fatalf("Invalid configuration: %v", err)
		}

		snap, err := ctrl.RunToCompletion(context.Background())
		if err != nil {
			logrus.Fatalf("Simulation did not complete: %v", err)
		}

		ctrl.Metrics().Print()
		snap.PrintSummary()
		logrus.Info("Simulation complete.")
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	runCmd.Flags().StringVar(&configPath, "config", "", "YAML scenario file (flags override its values)")
	runCmd.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Seed for random variate generation")
	runCmd.Flags().Float64Var(&simHours, "sim-hours", 8, "Simulated horizon in hours")
	runCmd.Flags().IntVar(&paceMs, "pace-ms", 0, "External pacing interval in milliseconds (0 = unpaced)")

	runCmd.Flags().Float64Var(&arrivalMean, "arrival-mean", 1.8, "Mean interarrival time in minutes")

	runCmd.Flags().Float64Var(&cutTime, "cut-time", 1.2, "Cutting base time in minutes")
	runCmd.Flags().Float64Var(&cutLow, "cut-low", 0.8, "Cutting low triangular multiplier")
	runCmd.Flags().Float64Var(&cutHigh, "cut-high", 1.2, "Cutting high triangular multiplier")
	runCmd.Flags().Float64Var(&cellTime, "cell-time", 2.5, "Cell-processing base time in minutes")
	runCmd.Flags().Float64Var(&cellLow, "cell-low", 0.8, "Cell low triangular multiplier")
	runCmd.Flags().Float64Var(&cellHigh, "cell-high", 1.2, "Cell high triangular multiplier")
	runCmd.Flags().Float64Var(&packTime, "pack-time", 1.0, "Packaging base time in minutes")
	runCmd.Flags().Float64Var(&packLow, "pack-low", 0.8, "Packaging low triangular multiplier")
	runCmd.Flags().Float64Var(&packHigh, "pack-high", 1.2, "Packaging high triangular multiplier")

	runCmd.Flags().IntVar(&cutterCapacity, "cutter-capacity", 1, "Cutter station capacity")
	runCmd.Flags().IntVar(&robotCapacity, "robot-capacity", 1, "Robot station capacity")
	runCmd.Flags().IntVar(&heaterCapacity, "heater-capacity", 1, "Heater station capacity")
	runCmd.Flags().IntVar(&packerCapacity, "packer-capacity", 1, "Packer station capacity")

	runCmd.Flags().IntVar(&buffer1Capacity, "buffer1-capacity", 5, "Cutting → cell buffer capacity")
	runCmd.Flags().IntVar(&buffer2Capacity, "buffer2-capacity", 5, "Cell → packaging buffer capacity")

	runCmd.Flags().Float64Var(&failureMTBF, "mtbf", 45, "Robot mean time between failures in minutes (0 disables failures)")
	runCmd.Flags().Float64Var(&failureMTTR, "mttr", 4, "Robot mean time to repair in minutes")

	// Attach `run` as a subcommand to `root`
	rootCmd.AddCommand(runCmd)
}
