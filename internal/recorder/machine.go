package recorder

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/audiolibrelab/jamscope/internal/audio"
	"github.com/audiolibrelab/jamscope/internal/relay"
	"github.com/audiolibrelab/jamscope/internal/wav"
)

var _ Recorder = (*Machine)(nil)

// Options configures a Machine
type Options struct {
	// PathPattern may contain {time} and {session} placeholders
	PathPattern string
	// SilenceGap is the length in seconds of the gap written on pause
	SilenceGap float64

	Open  OpenFunc
	Clock func() time.Time
}

// Machine is the recording state machine. Control signals come from the
// main goroutine; Consume runs on the capture thread.
type Machine struct {
	// ctl serializes control signals
	ctl sync.Mutex

	// mu guards everything below; it is shared with the capture thread and
	// never held while calling into the device
	mu      sync.Mutex
	state   State
	session *session
	failure error

	// paths of abandoned containers, kept so a later session cannot truncate them
	abandoned map[string]bool

	device Pauser
	format audio.Format
	opts   Options
}

type session struct {
	info         SessionInfo
	file         Container
	warnedFormat bool
}

// New creates an idle machine driving device, whose negotiated capture
// format is format
func New(device Pauser, format audio.Format, opts Options) *Machine {
	if opts.Open == nil {
		opts.Open = CreateContainer
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.PathPattern == "" {
		opts.PathPattern = "audio.wav"
	}
	return &Machine{
		state:  StateIdle,
		device: device,
		format: format,
		opts:   opts,

		abandoned: map[string]bool{},
	}
}

// Start opens a session if none exists and resumes capture. Start while
// recording is a no-op; Start while paused resumes the existing session.
func (m *Machine) Start() error {
	m.ctl.Lock()
	defer m.ctl.Unlock()

	m.mu.Lock()
	if m.state == StateRecording {
		m.mu.Unlock()
		return nil
	}
	if m.session == nil {
		s, err := m.openSession()
		if err != nil {
			m.mu.Unlock()
			return err
		}
		m.session = s
	}
	m.state = StateRecording
	id := m.session.info.ID
	m.mu.Unlock()

	if err := m.device.SetPaused(false); err != nil {
		m.mu.Lock()
		if m.state == StateRecording {
			m.state = StatePaused
		}
		m.mu.Unlock()
		return fmt.Errorf("resuming capture: %w", err)
	}

	slog.Info("Resuming recording", "session", id)
	return nil
}

// Pause stops capture and writes the silence gap marking the discontinuity
func (m *Machine) Pause() error {
	m.ctl.Lock()
	defer m.ctl.Unlock()

	m.mu.Lock()
	state := m.state
	m.mu.Unlock()

	switch state {
	case StatePaused:
		return nil
	case StateIdle:
		return fmt.Errorf("%w: pause from %s", ErrInvalidTransition, state)
	}

	// Once SetPaused returns no delivery is in flight
	if err := m.device.SetPaused(true); err != nil {
		return fmt.Errorf("pausing capture: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.session
	if s == nil {
		// abandoned by a failed delivery while the device was stopping
		return nil
	}
	m.state = StatePaused
	s.info.Pauses++

	n, err := s.file.InsertSilence(m.opts.SilenceGap, m.format.SampleRate, m.format.BytesPerSample())
	s.info.DataBytes += uint32(n)
	if err != nil {
		m.abandonLocked(err)
		return fmt.Errorf("inserting silence: %w", err)
	}

	slog.Info("Pausing recording", "session", s.info.ID, "silence_bytes", n)
	return nil
}

// Toggle pauses a running recording and starts or resumes otherwise
func (m *Machine) Toggle() error {
	if m.State() == StateRecording {
		return m.Pause()
	}
	return m.Start()
}

// Stop finalizes the session header and closes the file. Stop while idle
// is a no-op.
func (m *Machine) Stop() error {
	m.ctl.Lock()
	defer m.ctl.Unlock()

	if m.State() == StateIdle {
		return nil
	}

	if err := m.device.SetPaused(true); err != nil {
		slog.Warn("Failed to pause capture before finalizing", "error", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.session
	m.session = nil
	m.state = StateIdle
	if s == nil {
		return nil
	}

	if err := s.file.Finalize(s.info.DataBytes); err != nil {
		slog.Error("Failed to finalize recording", "session", s.info.ID, "path", s.info.Path, "error", err)
		return fmt.Errorf("finalizing %s: %w", s.info.Path, err)
	}

	attrs := []any{"session", s.info.ID, "path", s.info.Path, "bytes", s.info.DataBytes}
	if !s.info.Stats.Empty() {
		attrs = append(attrs, "min", s.info.Stats.Min, "max", s.info.Stats.Max)
	}
	slog.Info("Recording finalized", attrs...)
	return nil
}

// Shutdown stops any open session and reports containers left unfinalized
func (m *Machine) Shutdown() error {
	err := m.Stop()
	if failure := m.TakeFailure(); failure != nil {
		err = errors.Join(err, failure)
	}
	return err
}

// Consume is the relay sink. It appends the delivery to the open session
// while recording and returns the running statistics.
func (m *Machine) Consume(buf []byte, format audio.Format) (relay.Stats, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.session
	if s == nil {
		return relay.NewStats(), false
	}
	if m.state != StateRecording {
		return s.info.Stats, true
	}

	if !format.Recordable() {
		s.info.Dropped++
		if !s.warnedFormat {
			s.warnedFormat = true
			slog.Warn("Unsupported audio format, deliveries are not recorded",
				"session", s.info.ID, "format", format.Encoding.String())
		}
		return s.info.Stats, true
	}

	n, err := s.file.Write(buf)
	s.info.DataBytes += uint32(n)
	if err != nil {
		m.abandonLocked(err)
		return relay.NewStats(), false
	}

	s.info.Stats.Observe(buf)
	return s.info.Stats, true
}

// State returns the current state
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Session returns a copy of the active session info
func (m *Machine) Session() (SessionInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return SessionInfo{}, false
	}
	return m.session.info, true
}

// TakeFailure returns and clears the error that abandoned the last session
func (m *Machine) TakeFailure() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	err := m.failure
	m.failure = nil
	return err
}

// openSession must be called with mu held and no session open
func (m *Machine) openSession() (*session, error) {
	if err := m.format.Validate(); err != nil {
		return nil, fmt.Errorf("cannot record: %w", err)
	}

	id := uuid.NewString()
	now := m.opts.Clock()
	path := expandPattern(m.opts.PathPattern, now, id)
	if m.abandoned[path] {
		kept := path
		ext := filepath.Ext(path)
		path = strings.TrimSuffix(path, ext) + "-" + id[:8] + ext
		slog.Warn("Output file holds an abandoned recording, writing elsewhere", "abandoned", kept, "path", path)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("%w: failed to create output directory: %w", wav.ErrIO, err)
		}
	}

	file, err := m.opts.Open(path, wav.Params{
		Channels:      m.format.Channels,
		SampleRate:    m.format.SampleRate,
		BitsPerSample: m.format.BitsPerSample(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s for writing: %w", path, err)
	}

	if !m.format.Recordable() {
		slog.Warn("Capture format is not recordable, the file will only hold silence", "format", m.format.Encoding.String())
	}

	slog.Info("Recording session opened", "session", id, "path", path, "format", m.format.String())
	return &session{
		info: SessionInfo{
			ID:        id,
			Path:      path,
			StartTime: now,
			Stats:     relay.NewStats(),
		},
		file: file,
	}, nil
}

// abandonLocked drops the session without finalizing its header
func (m *Machine) abandonLocked(cause error) {
	s := m.session
	m.session = nil
	m.state = StateIdle
	if s == nil {
		return
	}

	m.abandoned[s.info.Path] = true
	if err := s.file.Abandon(); err != nil {
		cause = errors.Join(cause, err)
	}
	m.failure = fmt.Errorf("recording session %s abandoned, %s was not finalized: %w", s.info.ID, s.info.Path, cause)
	slog.Error("Recording session abandoned", "session", s.info.ID, "path", s.info.Path, "error", cause)
}

func expandPattern(pattern string, now time.Time, id string) string {
	return strings.NewReplacer(
		"{time}", now.Format("20060102-150405"),
		"{session}", id[:8],
	).Replace(pattern)
}
