package service

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/audiolibrelab/jamscope/internal/audio"
	"github.com/audiolibrelab/jamscope/internal/config"
	"github.com/audiolibrelab/jamscope/internal/play"
	"github.com/audiolibrelab/jamscope/internal/recorder"
	"github.com/audiolibrelab/jamscope/internal/relay"
	"github.com/audiolibrelab/jamscope/internal/scope"
	"github.com/audiolibrelab/jamscope/internal/wav"
)

// progressStep is the number of recorded bytes between progress log lines
const progressStep = 100000

// ErrNotOpen is returned by control operations before Open succeeded
var ErrNotOpen = errors.New("capture device not open")

// Service represents the core JamScope service interface
type Service interface {
	// Device lifecycle
	Open() error
	Quit() error

	// Recording operations
	Toggle() error
	Stop() error
	Poll()
	Status() Status

	// Visualization
	Frame(s scope.Surface)

	// Finished recordings
	LastRecording() string
	Inspect(path string) (*wav.Info, error)
	Play(path string) error

	GetConfig() *config.Config
	GetLastError() string
}

// Status is a point-in-time view of the service for status lines
type Status struct {
	State     recorder.State        `json:"state"`
	Capturing bool                  `json:"capturing"`
	Device    string                `json:"device"`
	Format    audio.Format          `json:"format"`
	Session   *recorder.SessionInfo `json:"session,omitempty"`
	Snapshot  *relay.Snapshot       `json:"-"`
	LastError string                `json:"last_error,omitempty"`
}

var _ Service = (*JamScopeService)(nil)

// JamScopeService wires the capture backend, relay, state machine and
// renderer together
type JamScopeService struct {
	cfg        *config.Config
	newBackend func(*config.Config) (audio.Backend, error)

	backend    audio.Backend
	device     audio.Device
	deviceName string
	format     audio.Format
	relay      *relay.Relay
	machine    atomic.Pointer[recorder.Machine]
	renderer   *scope.Renderer
	player     *play.Player

	progress      uint32
	lastRecording string
	abandoned     []error
	closed        bool

	// Error tracking
	lastError      string
	lastErrorMutex sync.RWMutex
}

// New creates a new JamScope service instance. Nothing is opened until Open.
func New(cfg *config.Config) *JamScopeService {
	return &JamScopeService{
		cfg:        cfg,
		newBackend: audio.NewBackend,
		renderer:   scope.New(cfg.Display.Width, cfg.Display.Height, cfg.Display.Gain),
		player:     play.New(),
	}
}

// Open enumerates capture devices, opens one paused and prepares an idle
// recorder for its negotiated format. Any failure releases what was
// acquired.
func (s *JamScopeService) Open() error {
	backend, err := s.newBackend(s.cfg)
	if err != nil {
		return fmt.Errorf("%w: %w", audio.ErrDeviceOpen, err)
	}

	devices, err := backend.ListDevices()
	if err != nil {
		backend.Close()
		return fmt.Errorf("%w: listing capture devices: %w", audio.ErrDeviceOpen, err)
	}
	if len(devices) == 0 {
		backend.Close()
		return audio.ErrNoDevices
	}

	slog.Info("Capture devices found", "count", len(devices), "backend", backend.Type())
	for i, d := range devices {
		slog.Info("Capture device", "index", i, "name", d.Name, "default", d.IsDefault)
	}

	s.relay = relay.New(relay.SinkFunc(s.consume))
	device, format, err := backend.Open(audio.OpenOptionsFromConfig(s.cfg), s.relay.OnDelivery)
	if err != nil {
		backend.Close()
		return fmt.Errorf("failed to open capture device: %w", err)
	}

	s.backend = backend
	s.device = device
	s.format = format
	s.deviceName = selectedDevice(devices, s.cfg.Audio.Device)
	s.machine.Store(recorder.New(device, format, recorder.Options{
		PathPattern: s.cfg.PathPattern(),
		SilenceGap:  s.cfg.Output.SilenceGap,
	}))

	slog.Info("Capture device opened",
		"device", s.deviceName,
		"format", format.String(),
		"status", deviceStatus(device))
	if !format.Recordable() {
		slog.Warn("Negotiated format cannot be recorded, only the waveform will be shown", "encoding", format.Encoding.String())
	}
	return nil
}

// consume forwards deliveries to the state machine once it exists
func (s *JamScopeService) consume(buf []byte, format audio.Format) (relay.Stats, bool) {
	m := s.machine.Load()
	if m == nil {
		return relay.NewStats(), false
	}
	return m.Consume(buf, format)
}

// Toggle starts a recording, or pauses and resumes the current one
func (s *JamScopeService) Toggle() error {
	m := s.machine.Load()
	if m == nil {
		return ErrNotOpen
	}
	if err := m.Toggle(); err != nil {
		s.setLastError(fmt.Sprintf("Failed to toggle recording: %v", err))
		return err
	}
	s.clearLastError()
	return nil
}

// Stop finalizes the current recording
func (s *JamScopeService) Stop() error {
	m := s.machine.Load()
	if m == nil {
		return ErrNotOpen
	}

	info, active := m.Session()
	if err := m.Stop(); err != nil {
		s.setLastError(fmt.Sprintf("Failed to stop recording: %v", err))
		return err
	}
	if active {
		s.lastRecording = info.Path
	}
	s.progress = 0
	s.clearLastError()
	return nil
}

// Poll runs on the main loop once per frame. It pauses the device after a
// session was abandoned on the capture thread and logs progress.
func (s *JamScopeService) Poll() {
	m := s.machine.Load()
	if m == nil {
		return
	}

	if failure := m.TakeFailure(); failure != nil {
		// A session started since the failure owns the device now
		if m.State() == recorder.StateIdle {
			if err := s.device.SetPaused(true); err != nil {
				slog.Warn("Failed to pause capture after abandoned session", "error", err)
			}
		}
		s.abandoned = append(s.abandoned, failure)
		s.setLastError(failure.Error())
	}

	info, ok := m.Session()
	if !ok {
		s.progress = 0
		return
	}
	if info.DataBytes/progressStep != s.progress/progressStep {
		attrs := []any{"session", info.ID, "bytes", info.DataBytes}
		if !info.Stats.Empty() {
			attrs = append(attrs, "min", info.Stats.Min, "max", info.Stats.Max)
		}
		slog.Info("Recording progress", attrs...)
	}
	s.progress = info.DataBytes
}

// Status returns the state machine and device state
func (s *JamScopeService) Status() Status {
	st := Status{
		State:     recorder.StateIdle,
		Device:    s.deviceName,
		Format:    s.format,
		LastError: s.GetLastError(),
	}
	m := s.machine.Load()
	if m == nil {
		return st
	}

	st.State = m.State()
	st.Capturing = !s.device.Paused()
	if info, ok := m.Session(); ok {
		st.Session = &info
	}
	st.Snapshot = s.relay.Snapshot()
	return st
}

// Frame renders the current view onto the surface
func (s *JamScopeService) Frame(surface scope.Surface) {
	st := s.Status()
	s.renderer.Draw(surface, scope.View{
		Active:    st.State != recorder.StateIdle,
		Capturing: st.State == recorder.StateRecording && st.Capturing,
		Snapshot:  st.Snapshot,
	})
}

// Quit finalizes any open session, then releases the device and backend.
// Sessions abandoned earlier are reported in the returned error.
func (s *JamScopeService) Quit() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	if m := s.machine.Load(); m != nil {
		info, active := m.Session()
		if err := m.Shutdown(); err != nil {
			errs = append(errs, err)
		} else if active {
			s.lastRecording = info.Path
		}
	}
	errs = append(errs, s.abandoned...)

	if s.device != nil {
		if err := s.device.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing capture device: %w", err))
		}
	}
	if s.backend != nil {
		if err := s.backend.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing audio backend: %w", err))
		}
	}

	return errors.Join(errs...)
}

// LastRecording returns the path of the last finalized session
func (s *JamScopeService) LastRecording() string {
	return s.lastRecording
}

func (s *JamScopeService) Inspect(path string) (*wav.Info, error) {
	return wav.Inspect(path)
}

func (s *JamScopeService) Play(path string) error {
	return s.player.Play(path)
}

// GetConfig returns the current configuration
func (s *JamScopeService) GetConfig() *config.Config {
	return s.cfg
}

// GetLastError returns the last error message (thread-safe)
func (s *JamScopeService) GetLastError() string {
	s.lastErrorMutex.RLock()
	defer s.lastErrorMutex.RUnlock()
	return s.lastError
}

// setLastError sets the last error message (thread-safe)
func (s *JamScopeService) setLastError(err string) {
	s.lastErrorMutex.Lock()
	defer s.lastErrorMutex.Unlock()
	s.lastError = err

	slog.Error("Service error occurred", "error_message", err)
}

// clearLastError clears the last error message (thread-safe)
func (s *JamScopeService) clearLastError() {
	s.lastErrorMutex.Lock()
	defer s.lastErrorMutex.Unlock()
	s.lastError = ""
}

// selectedDevice names the device Open picked: the first substring match
// of want, else the default device, else the first one
func selectedDevice(devices []audio.DeviceInfo, want string) string {
	if want != "" {
		for _, d := range devices {
			if strings.Contains(d.Name, want) {
				return d.Name
			}
		}
		return want
	}
	for _, d := range devices {
		if d.IsDefault {
			return d.Name
		}
	}
	return devices[0].Name
}

func deviceStatus(d audio.Device) string {
	if d.Paused() {
		return "paused"
	}
	return "playing"
}
