package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/audiolibrelab/jamscope/internal/service"
	"github.com/audiolibrelab/jamscope/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var (
	recordHeadless bool
	recordDuration time.Duration
	recordOutput   string
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record the capture device with a live waveform",
	Long: `Open the capture device and show the incoming signal. Space starts a
recording, pauses it and resumes it; 's' finalizes the file and 'q' finalizes
and quits.

With --headless there is no terminal UI: recording starts at once and runs
until Ctrl+C or until --duration has elapsed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := runRecord()
		if err != nil {
			return err
		}
		if path == "" {
			slog.Info("No recording was made")
			return nil
		}

		// Execute pipeline if specified
		return executePipeline(path, 'r')
	},
}

func addRecordFlags(c *cobra.Command) {
	c.Flags().BoolVar(&recordHeadless, "headless", false, "record without the terminal UI")
	c.Flags().DurationVar(&recordDuration, "duration", 0, "stop after this long (e.g. 30s, 5m); 0 records until interrupted")
}

func init() {
	addRecordFlags(recordCmd)
	recordCmd.Flags().StringVarP(&recordOutput, "output", "o", "", "output directory (overrides config)")
}

// runRecord opens the device, runs one interactive or headless recording
// and returns the path of the last finalized file
func runRecord() (string, error) {
	if recordOutput != "" {
		cfg.Output.Directory = recordOutput
	}

	svc := service.New(cfg)
	if err := svc.Open(); err != nil {
		return "", err
	}

	var runErr error
	if recordHeadless {
		runErr = runHeadless(svc)
	} else {
		runErr = runTUI(svc)
	}

	// Quit finalizes whatever is still open
	if err := svc.Quit(); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("failed to finalize recording: %w", err))
	}
	if runErr != nil {
		return "", runErr
	}

	if path := svc.LastRecording(); path != "" {
		slog.Info("Recording saved", "file", path)
		return path, nil
	}
	return "", nil
}

func runTUI(svc *service.JamScopeService) error {
	restore := logToFile(cfg.Logging)
	defer restore()

	p := tea.NewProgram(
		ui.NewModel(svc, cfg.Display.Width, cfg.Display.Height, cfg.Display.FPS),
		tea.WithAltScreen(),
	)

	if recordDuration > 0 {
		timer := time.AfterFunc(recordDuration, func() {
			slog.Info("Recording duration reached", "duration", recordDuration)
			p.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
		})
		defer timer.Stop()
	}

	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("terminal UI failed: %w", err)
	}
	if m, ok := final.(ui.Model); ok && m.Err() != nil {
		return m.Err()
	}
	return nil
}

func runHeadless(svc *service.JamScopeService) error {
	if err := svc.Toggle(); err != nil {
		return fmt.Errorf("failed to start recording: %w", err)
	}
	if recordDuration > 0 {
		slog.Info("Recording...", "duration", recordDuration)
	} else {
		slog.Info("Recording... Press Ctrl+C to stop")
	}

	// Handle interruption
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var deadline <-chan time.Time
	if recordDuration > 0 {
		timer := time.NewTimer(recordDuration)
		defer timer.Stop()
		deadline = timer.C
	}

	ticker := time.NewTicker(time.Second / time.Duration(cfg.Display.FPS))
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			svc.Poll()
			if svc.Status().Session == nil {
				// Abandoned; Quit reports the failure
				slog.Error("Recording stopped", "error", svc.GetLastError())
				return nil
			}
		case <-deadline:
			slog.Info("Recording duration reached", "duration", recordDuration)
			return svc.Stop()
		case sig := <-sigChan:
			slog.Info("Stopping recording...", "signal", sig)
			return svc.Stop()
		}
	}
}
