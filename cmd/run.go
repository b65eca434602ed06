package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [file]",
	Short: "Execute pipeline steps on a recording",
	Long: `Execute the specified pipeline steps on a recording. Use -p to specify which steps to run.
A record step writes to the given file; later steps use it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file := args[0]

		if pipeline == "" {
			return fmt.Errorf("no pipeline specified, use -p flag (e.g., -p rip)")
		}

		steps := []rune(strings.ToLower(pipeline))
		if strings.ContainsRune(pipeline, 'r') {
			cfg.Output.Directory = filepath.Dir(file)
			cfg.Output.Filename = filepath.Base(file)
		}

		return runSteps(file, steps)
	},
}

func init() {
	addRecordFlags(runCmd)
}
