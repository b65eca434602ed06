package cmd

import (
	"fmt"

	"github.com/audiolibrelab/jamscope/internal/config"

	"gopkg.in/yaml.v3"

	"github.com/spf13/cobra"
)

var showSources bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `View and manage JamScope configuration settings.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Print the resolved configuration as YAML. With --sources, print each setting
with where its value came from: default, inherited, profile-specific, globals
or environment.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if showSources {
			printSources(cfg)
			return nil
		}

		out, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}
		fmt.Print(string(out))
		return nil
	},
}

var configUseCmd = &cobra.Command{
	Use:   "use [profile]",
	Short: "Set the active configuration profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			path = config.DefaultConfigPath()
		}
		if err := config.UpdateActiveConfig(path, args[0]); err != nil {
			return err
		}
		fmt.Printf("Active configuration set to '%s' in %s\n", args[0], path)
		return nil
	},
}

func printSources(c *config.Config) {
	fmt.Printf("=== RESOLVED CONFIGURATION (profile: %s) ===\n", c.Inheritance.Profile)

	sections := []struct {
		name     string
		settings [][2]string
	}{
		{"Audio", [][2]string{
			{"audio.backend", c.Audio.Backend},
			{"audio.device", c.Audio.Device},
			{"audio.sample_rate", fmt.Sprint(c.Audio.SampleRate)},
			{"audio.channels", fmt.Sprint(c.Audio.Channels)},
			{"audio.period_frames", fmt.Sprint(c.Audio.PeriodFrames)},
			{"audio.tone_hz", fmt.Sprint(c.Audio.ToneHz)},
		}},
		{"Output", [][2]string{
			{"output.directory", c.Output.Directory},
			{"output.filename", c.Output.Filename},
			{"output.silence_gap", fmt.Sprint(c.Output.SilenceGap)},
		}},
		{"Display", [][2]string{
			{"display.width", fmt.Sprint(c.Display.Width)},
			{"display.height", fmt.Sprint(c.Display.Height)},
			{"display.gain", fmt.Sprint(c.Display.Gain)},
			{"display.fps", fmt.Sprint(c.Display.FPS)},
		}},
		{"Logging", [][2]string{
			{"logging.file", c.Logging.File},
			{"logging.max_size_mb", fmt.Sprint(c.Logging.MaxSizeMB)},
			{"logging.max_backups", fmt.Sprint(c.Logging.MaxBackups)},
		}},
	}

	for _, s := range sections {
		fmt.Printf("\n[%s]\n", s.name)
		for _, kv := range s.settings {
			fmt.Printf("%s: %s [%s]\n", kv[0], kv[1], c.Source(kv[0]))
		}
	}
}

func init() {
	configShowCmd.Flags().BoolVar(&showSources, "sources", false, "show where each value came from")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configUseCmd)
}
