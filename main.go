package main

import (
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"chirp-ranger.dev/internal/app"
	"chirp-ranger.dev/internal/config"
	"chirp-ranger.dev/internal/sim"
)

var (
	flagLive     bool
	flagDistance float64
	flagNoise    float64
	flagDriftPPM float64
	flagSeed     int64
	flagRange    float64
	flagLogFile  string
	flagVerbose  bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "chirp-ranger",
		Short: "Chirp Ranger - acoustic distance measurement between two devices",
		Long: `Chirp Ranger measures the distance between two devices by timing
ultrasonic chirps with double-sided two-way ranging, displaying the result
on a terminal range scope.

By default it runs a simulated pair of devices over a modeled air channel.
Use --live to emit real chirps through the speaker (transmit-only: audio
capture is not available, so live mode cannot complete a measurement).`,
		RunE: run,
	}

	rootCmd.Flags().BoolVar(&flagLive, "live", false, "Emit real chirps through the speaker instead of simulating")
	rootCmd.Flags().Float64Var(&flagDistance, "distance", config.DemoDistanceFt, "Simulated distance between the devices in feet")
	rootCmd.Flags().Float64Var(&flagNoise, "noise", config.DemoNoiseLevel, "Simulated microphone noise level (stddev)")
	rootCmd.Flags().Float64Var(&flagDriftPPM, "drift-ppm", 0, "Simulated clock-rate skew of the responder in ppm")
	rootCmd.Flags().Int64Var(&flagSeed, "seed", 1, "Simulation random seed")
	rootCmd.Flags().Float64Var(&flagRange, "range", 30.0, "Maximum scope range in feet")
	rootCmd.Flags().StringVar(&flagLogFile, "log-file", "", "Append structured logs to this file")
	rootCmd.Flags().BoolVar(&flagVerbose, "verbose", false, "Log at debug level")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	logger, closeLog, err := setupLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	params := sim.DefaultParams()
	params.DistanceFt = flagDistance
	params.NoiseLevel = flagNoise
	params.DriftPPM = flagDriftPPM
	params.Seed = flagSeed
	params.Logger = logger.WithField("component", "ranging")

	model := app.New(!flagLive, params, flagRange)

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithFPS(config.TargetFPS),
	)

	if err := model.StartEngine(p); err != nil {
		fmt.Fprintf(os.Stderr, "\nError: %v\n\n", err)
		if flagLive {
			fmt.Fprintln(os.Stderr, "Live mode needs a working audio output device.")
			fmt.Fprintln(os.Stderr, "Run without --live for the full simulated loop.")
		}
		return err
	}

	_, err = p.Run()
	return err
}

// setupLogger builds the process logger. The TUI owns the terminal, so logs
// go to a file when requested and are discarded otherwise.
func setupLogger() (*logrus.Logger, func(), error) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	if flagVerbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	closeLog := func() {}
	if flagLogFile != "" {
		f, err := os.OpenFile(flagLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		logger.SetOutput(f)
		logger.SetFormatter(&logrus.JSONFormatter{})
		closeLog = func() { f.Close() }
	}

	return logger, closeLog, nil
}
