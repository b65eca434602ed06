package cmd

import (
	"fmt"
	"runtime"

	"github.com/audiolibrelab/jamscope/internal/audio"

	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List available capture devices",
	Long:  `List the capture devices of the configured backend. Set audio.device to a substring of a name to select it.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, err := audio.NewBackend(cfg)
		if err != nil {
			return fmt.Errorf("%w: %w", audio.ErrDeviceOpen, err)
		}
		defer backend.Close()

		devices, err := backend.ListDevices()
		if err != nil {
			return fmt.Errorf("failed to list capture devices: %w", err)
		}

		fmt.Printf("🎵 Capture Devices (%s, %s)\n", backend.Type(), runtime.GOOS)
		fmt.Printf("═══════════════════════════════════════\n\n")

		fmt.Printf("📋 DEVICES (%d found):\n", len(devices))
		for i, d := range devices {
			marker := ""
			if d.IsDefault {
				marker = " (default)"
			}
			fmt.Printf("  %d. %s%s\n", i+1, d.Name, marker)
		}

		fmt.Printf("\n💡 Usage:\n")
		fmt.Printf("  • Configure audio.device with part of a name, e.g. \"USB\"\n")
		fmt.Printf("  • Empty audio.device selects the default device\n")
		fmt.Printf("  • Backends in this build: %v\n\n", audio.GetAvailableBackends())

		return nil
	},
}
