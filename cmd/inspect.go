package cmd

import (
	"fmt"

	"github.com/audiolibrelab/jamscope/internal/wav"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var inspectYAML bool

var inspectCmd = &cobra.Command{
	Use:   "inspect [file]",
	Short: "Validate a recording and show its format",
	Long: `Check that the declared RIFF and data sizes of a recording match its length,
then scan the samples for their amplitude range. Exits non-zero for a file
that was never finalized.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := wav.Inspect(args[0])
		if err != nil {
			return err
		}
		if err := printInfo(info, inspectYAML); err != nil {
			return err
		}
		if info.Corrupt {
			return fmt.Errorf("%s: %s", info.Path, info.Problem)
		}
		return nil
	},
}

func printInfo(info *wav.Info, asYAML bool) error {
	if asYAML {
		out, err := yaml.Marshal(info)
		if err != nil {
			return fmt.Errorf("error marshaling info: %w", err)
		}
		fmt.Print(string(out))
		return nil
	}

	h := info.Header
	fmt.Printf("=== %s ===\n", info.Path)
	fmt.Printf("format: PCM %d-bit, %d Hz, %d channel(s)\n", h.BitsPerSample, h.SampleRate, h.Channels)
	fmt.Printf("file_size: %d\n", info.FileSize)
	fmt.Printf("riff_size: %d\n", h.RIFFSize)
	fmt.Printf("data_size: %d\n", h.DataSize)
	fmt.Printf("duration: %s\n", info.Duration)
	fmt.Printf("samples: %d (min=%d max=%d)\n", info.Samples, info.Min, info.Max)
	if info.Corrupt {
		fmt.Printf("status: ❌ %s\n", info.Problem)
	} else {
		fmt.Printf("status: ✅ finalized\n")
	}
	return nil
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectYAML, "yaml", false, "print the result as YAML")
}
