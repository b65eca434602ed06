package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/audiolibrelab/jamscope/internal/service"

	"github.com/spf13/cobra"
)

var playCmd = &cobra.Command{
	Use:   "play [file]",
	Short: "Play a finished recording",
	Long: `Play a recording with the first available system player (vlc, mpv, ffplay, aplay).
Without a file, the newest recording matching output.directory and output.filename is played.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var file string
		if len(args) == 1 {
			file = args[0]
		} else {
			var err error
			if file, err = latestRecording(cfg.PathPattern()); err != nil {
				return err
			}
		}

		fmt.Printf("Playing recording: %s\n", file)

		svc := service.New(cfg)
		if err := svc.Play(file); err != nil {
			return fmt.Errorf("playback failed: %w", err)
		}

		return nil
	},
}

// latestRecording returns the most recently modified file matching the
// output pattern, with placeholders matching anything
func latestRecording(pattern string) (string, error) {
	glob := strings.NewReplacer("{time}", "*", "{session}", "*").Replace(pattern)
	matches, err := filepath.Glob(glob)
	if err != nil {
		return "", fmt.Errorf("invalid output pattern %q: %w", pattern, err)
	}

	var newest string
	var newestMod int64
	for _, m := range matches {
		st, err := os.Stat(m)
		if err != nil || st.IsDir() {
			continue
		}
		if mod := st.ModTime().UnixNano(); newest == "" || mod > newestMod {
			newest, newestMod = m, mod
		}
	}
	if newest == "" {
		return "", fmt.Errorf("no recordings match %s", glob)
	}
	return newest, nil
}
