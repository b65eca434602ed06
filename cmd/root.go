package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/audiolibrelab/jamscope/internal/config"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	cfg          *config.Config
	cfgFile      string
	pipeline     string
	profile      string
	verboseLevel int
)

var rootCmd = &cobra.Command{
	Use:   "jamscope",
	Short: "Record audio to WAV with a live waveform",
	Long: `JamScope records the selected capture device to an uncompressed WAV file
while drawing the incoming signal in the terminal.

Space starts, pauses and resumes a recording; a pause leaves a short
silence gap in the file. 's' finalizes the file, 'q' finalizes and quits.

Without a subcommand it acts as 'jamscope record'.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Configure slog based on verbose level
		setupLogging(verboseLevel, os.Stderr)

		// Use default config path if not specified; a missing default file
		// means built-in defaults
		path := cfgFile
		if path == "" {
			if _, err := os.Stat(config.DefaultConfigPath()); err == nil {
				path = config.DefaultConfigPath()
			}
		}

		var err error
		cfg, err = config.LoadWithProfile(path, profile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		slog.Debug("Configuration loaded", "file", path, "profile", cfg.Inheritance.Profile)

		// Validate pipeline if provided
		if err := validatePipeline(); err != nil {
			return err
		}

		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return recordCmd.RunE(cmd, args)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/jamscope.yaml)")
	rootCmd.PersistentFlags().StringVarP(&pipeline, "pipeline", "p", "", "pipeline steps: r=record, i=inspect, p=play (e.g., 'rip', 'ip')")
	rootCmd.PersistentFlags().StringVar(&profile, "profile", "", "configuration profile to use (overrides active_config from file)")
	rootCmd.PersistentFlags().IntVarP(&verboseLevel, "verbose", "v", 0, "verbose level: 0=info, 1=debug, 2=debug with source locations")

	addRecordFlags(rootCmd)
	rootCmd.Flags().StringVarP(&recordOutput, "output", "o", "", "output directory (overrides config)")

	// Add subcommands
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(configCmd)
}

// setupLogging configures slog based on the verbose level
func setupLogging(level int, w io.Writer) {
	var slogLevel slog.Level
	switch level {
	case 0:
		slogLevel = slog.LevelInfo
	case 1, 2:
		slogLevel = slog.LevelDebug
	default:
		slogLevel = slog.LevelInfo
	}

	// Configure text handler for clean terminal output
	opts := &slog.HandlerOptions{
		Level:     slogLevel,
		AddSource: level >= 2,
	}
	handler := slog.NewTextHandler(w, opts)
	slog.SetDefault(slog.New(handler))
}

// logToFile sends logs to a rotating file while the terminal UI owns the
// screen. The returned function restores stderr logging.
func logToFile(lc config.LoggingConfig) func() {
	sink := &lumberjack.Logger{
		Filename:   lc.File,
		MaxSize:    lc.MaxSizeMB,
		MaxBackups: lc.MaxBackups,
	}
	setupLogging(verboseLevel, sink)
	slog.Info("Logging to file while the terminal UI is active", "file", lc.File)

	return func() {
		setupLogging(verboseLevel, os.Stderr)
		if err := sink.Close(); err != nil {
			slog.Warn("Failed to close log file", "file", lc.File, "error", err)
		}
	}
}
