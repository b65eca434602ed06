package cmd

import (
	"fmt"
	"strings"

	"github.com/audiolibrelab/jamscope/internal/service"
)

const validStepsHelp = "valid: r=record, i=inspect, p=play"

// executePipeline runs the pipeline steps after startStep on file
func executePipeline(file string, startStep rune) error {
	if pipeline == "" {
		return nil
	}

	steps := []rune(strings.ToLower(pipeline))

	// Find the starting position in the pipeline
	startIndex := -1
	for i, step := range steps {
		if step == startStep {
			startIndex = i
			break
		}
	}

	if startIndex == -1 {
		return fmt.Errorf("step '%c' not found in pipeline '%s'", startStep, pipeline)
	}

	return runSteps(file, steps[startIndex+1:])
}

// runSteps executes pipeline steps in order. A record step replaces file
// with the recording it produced.
func runSteps(file string, steps []rune) error {
	svc := service.New(cfg)

	for i, step := range steps {
		fmt.Printf("Pipeline: executing step %d/%d: '%c'...\n", i+1, len(steps), step)

		switch step {
		case 'r':
			path, err := runRecord()
			if err != nil {
				return fmt.Errorf("pipeline record failed: %w", err)
			}
			if path == "" {
				return fmt.Errorf("pipeline record failed: no recording was made")
			}
			file = path
			fmt.Println("Pipeline: recording completed")

		case 'i':
			info, err := svc.Inspect(file)
			if err != nil {
				return fmt.Errorf("pipeline inspect failed: %w", err)
			}
			if err := printInfo(info, false); err != nil {
				return fmt.Errorf("pipeline inspect failed: %w", err)
			}

		case 'p':
			fmt.Printf("Playing recording: %s\n", file)
			if err := svc.Play(file); err != nil {
				return fmt.Errorf("pipeline play failed: %w", err)
			}
			fmt.Println("Pipeline: playback completed")

		default:
			return fmt.Errorf("unknown pipeline step: '%c' (%s)", step, validStepsHelp)
		}
	}

	return nil
}

func validatePipeline() error {
	if pipeline == "" {
		return nil
	}

	validSteps := map[rune]bool{
		'r': true, // record
		'i': true, // inspect
		'p': true, // play
	}

	steps := []rune(strings.ToLower(pipeline))
	for _, step := range steps {
		if !validSteps[step] {
			return fmt.Errorf("invalid pipeline step: '%c' (%s)", step, validStepsHelp)
		}
	}

	return nil
}
