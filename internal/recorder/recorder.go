package recorder

import (
	"errors"
	"time"

	"github.com/audiolibrelab/jamscope/internal/relay"
	"github.com/audiolibrelab/jamscope/internal/wav"
)

// State represents the current state of the recorder
type State string

const (
	StateIdle      State = "IDLE"
	StateRecording State = "RECORDING"
	StatePaused    State = "PAUSED"
)

// ErrInvalidTransition is returned for a signal the current state cannot
// accept. It indicates a caller bug, not a runtime condition.
var ErrInvalidTransition = errors.New("invalid recorder transition")

// SessionInfo contains information about the current recording session
type SessionInfo struct {
	ID        string      `json:"id"`
	Path      string      `json:"path"`
	StartTime time.Time   `json:"start_time"`
	DataBytes uint32      `json:"data_bytes"`
	Stats     relay.Stats `json:"stats"`
	Pauses    int         `json:"pauses"`
	Dropped   int         `json:"dropped"`
}

// Container is the open file of a recording session
type Container interface {
	Write(p []byte) (int, error)
	InsertSilence(seconds float64, sampleRate, bytesPerSample int) (int, error)
	Finalize(totalDataBytes uint32) error
	Abandon() error
}

// OpenFunc creates the container for a new session
type OpenFunc func(path string, params wav.Params) (Container, error)

// CreateContainer opens a RIFF/WAVE file on disk
func CreateContainer(path string, params wav.Params) (Container, error) {
	f, err := wav.Create(path, params)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Pauser is the part of the capture device the recorder drives
type Pauser interface {
	SetPaused(paused bool) error
	Paused() bool
}

// Recorder defines the intent signals accepted by the state machine
type Recorder interface {
	Start() error
	Pause() error
	Toggle() error
	Stop() error

	// Status and information
	State() State
	Session() (SessionInfo, bool)
	TakeFailure() error

	// Shutdown finalizes any open session before the process exits
	Shutdown() error
}
