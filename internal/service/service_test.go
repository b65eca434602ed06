package service

import (
	"encoding/binary"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/audiolibrelab/jamscope/internal/audio"
	"github.com/audiolibrelab/jamscope/internal/config"
	"github.com/audiolibrelab/jamscope/internal/recorder"
	"github.com/audiolibrelab/jamscope/internal/wav"
)

// manualBackend delivers only when the test calls deliver
type manualBackend struct {
	devices []audio.DeviceInfo
	openErr error
	format  audio.Format
	device  *manualDevice
	closed  bool
}

func (b *manualBackend) ListDevices() ([]audio.DeviceInfo, error) { return b.devices, nil }

func (b *manualBackend) Open(_ audio.OpenOptions, deliver audio.DeliveryFunc) (audio.Device, audio.Format, error) {
	if b.openErr != nil {
		return nil, audio.Format{}, b.openErr
	}
	b.device = &manualDevice{paused: true, deliverFn: deliver, format: b.format}
	return b.device, b.format, nil
}

func (b *manualBackend) Type() audio.BackendType { return "manual" }
func (b *manualBackend) Close() error            { b.closed = true; return nil }

type manualDevice struct {
	mu        sync.Mutex
	paused    bool
	closed    bool
	format    audio.Format
	deliverFn audio.DeliveryFunc
}

func (d *manualDevice) SetPaused(paused bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.paused = paused
	return nil
}

func (d *manualDevice) Paused() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.paused
}

func (d *manualDevice) Close() error { d.closed = true; return nil }

func (d *manualDevice) deliver(samples ...int16) {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.paused {
		d.deliverFn(buf, d.format)
	}
}

type countingSurface struct {
	lines, points, presents int
}

func (s *countingSurface) SetDrawColor(r, g, b, a uint8) {}
func (s *countingSurface) Clear()                        {}
func (s *countingSurface) DrawLine(x1, y1, x2, y2 int)   { s.lines++ }
func (s *countingSurface) DrawPoint(x, y int)            { s.points++ }
func (s *countingSurface) Present()                      { s.presents++ }

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Audio.Backend = "synthetic"
	cfg.Audio.SampleRate = 8000
	cfg.Audio.Channels = 1
	cfg.Audio.PeriodFrames = 64
	cfg.Output.Directory = t.TempDir()
	cfg.Output.Filename = "take-{session}.wav"
	cfg.Output.SilenceGap = 0.1
	cfg.Display.Width = 32
	cfg.Display.Height = 8
	return cfg
}

func newManualService(t *testing.T) (*JamScopeService, *manualBackend) {
	b := &manualBackend{
		devices: []audio.DeviceInfo{{Name: "USB Audio", IsDefault: false}, {Name: "Built-in Mic", IsDefault: true}},
		format:  audio.Format{SampleRate: 8, Channels: 1, Encoding: audio.EncodingS16LE},
	}
	s := New(testConfig(t))
	s.newBackend = func(*config.Config) (audio.Backend, error) { return b, nil }
	require.NoError(t, s.Open())
	return s, b
}

func TestOpen_SyntheticRecordingRoundTrip(t *testing.T) {
	s := New(testConfig(t))
	require.NoError(t, s.Open())
	defer s.Quit()

	st := s.Status()
	assert.Equal(t, recorder.StateIdle, st.State)
	assert.False(t, st.Capturing, "devices open paused")
	assert.Equal(t, "Synthetic sine generator", st.Device)
	assert.Equal(t, 8000, st.Format.SampleRate)

	require.NoError(t, s.Toggle())
	require.Eventually(t, func() bool {
		st := s.Status()
		return st.Session != nil && st.Session.DataBytes > 0
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, s.Toggle())
	assert.Equal(t, recorder.StatePaused, s.Status().State)
	require.NoError(t, s.Toggle())
	require.NoError(t, s.Stop())

	path := s.LastRecording()
	require.NotEmpty(t, path)
	assert.Equal(t, s.GetConfig().Output.Directory, filepath.Dir(path))

	info, err := s.Inspect(path)
	require.NoError(t, err)
	assert.False(t, info.Corrupt, info.Problem)
	assert.Equal(t, 8000, info.Header.SampleRate)
	assert.GreaterOrEqual(t, info.Header.DataSize, uint32(1600), "at least the silence gap")
}

func TestOpen_Failures(t *testing.T) {
	t.Run("backend", func(t *testing.T) {
		s := New(testConfig(t))
		s.newBackend = func(*config.Config) (audio.Backend, error) { return nil, errors.New("no context") }
		err := s.Open()
		assert.ErrorIs(t, err, audio.ErrDeviceOpen)
		assert.True(t, audio.IsDeviceError(err))
	})

	t.Run("no devices", func(t *testing.T) {
		b := &manualBackend{}
		s := New(testConfig(t))
		s.newBackend = func(*config.Config) (audio.Backend, error) { return b, nil }
		assert.ErrorIs(t, s.Open(), audio.ErrNoDevices)
		assert.True(t, b.closed, "backend released")
	})

	t.Run("open", func(t *testing.T) {
		b := &manualBackend{
			devices: []audio.DeviceInfo{{Name: "mic"}},
			openErr: audio.ErrDeviceOpen,
		}
		s := New(testConfig(t))
		s.newBackend = func(*config.Config) (audio.Backend, error) { return b, nil }
		assert.ErrorIs(t, s.Open(), audio.ErrDeviceOpen)
		assert.True(t, b.closed, "backend released")
		assert.ErrorIs(t, s.Toggle(), ErrNotOpen)
	})
}

func TestSelectedDevice(t *testing.T) {
	devices := []audio.DeviceInfo{{Name: "USB Audio"}, {Name: "Built-in Mic", IsDefault: true}}
	assert.Equal(t, "Built-in Mic", selectedDevice(devices, ""))
	assert.Equal(t, "USB Audio", selectedDevice(devices, "USB"))
	assert.Equal(t, "USB Audio", selectedDevice(devices[:1], ""))
}

func TestFrame_FollowsRecordingState(t *testing.T) {
	s, b := newManualService(t)
	defer s.Quit()

	surface := &countingSurface{}
	s.Frame(surface)
	assert.Equal(t, 8, surface.lines, "idle renders the gradient")
	assert.Zero(t, surface.points)

	require.NoError(t, s.Toggle())
	b.device.deliver(100, -200, 300)
	surface = &countingSurface{}
	s.Frame(surface)
	assert.Zero(t, surface.lines)
	assert.Equal(t, 32, surface.points, "one point per column")

	require.NoError(t, s.Toggle())
	surface = &countingSurface{}
	s.Frame(surface)
	assert.Equal(t, 8, surface.lines, "paused renders the gradient")
	assert.Equal(t, 1, surface.presents)
}

func TestStatus_ReportsSessionStats(t *testing.T) {
	s, b := newManualService(t)
	defer s.Quit()

	require.NoError(t, s.Toggle())
	b.device.deliver(100, -200, 300, -32768)

	st := s.Status()
	require.NotNil(t, st.Session)
	assert.Equal(t, recorder.StateRecording, st.State)
	assert.True(t, st.Capturing)
	assert.Equal(t, "Built-in Mic", st.Device)
	assert.Equal(t, uint32(8), st.Session.DataBytes)
	assert.Equal(t, int16(-32768), st.Session.Stats.Min)
	assert.Equal(t, int16(300), st.Session.Stats.Max)
	require.NotNil(t, st.Snapshot)
	assert.Equal(t, 4, st.Snapshot.Frames())
}

type failingContainer struct{}

func (failingContainer) Write([]byte) (int, error) { return 0, wav.ErrIO }
func (failingContainer) InsertSilence(float64, int, int) (int, error) {
	return 0, wav.ErrIO
}
func (failingContainer) Finalize(uint32) error { return nil }
func (failingContainer) Abandon() error        { return nil }

func TestPoll_KeepsSessionStartedAfterAbandon(t *testing.T) {
	s, b := newManualService(t)
	opened := 0
	s.machine.Store(recorder.New(b.device, b.format, recorder.Options{
		PathPattern: filepath.Join(t.TempDir(), "take-{session}.wav"),
		Open: func(path string, p wav.Params) (recorder.Container, error) {
			opened++
			if opened == 1 {
				return failingContainer{}, nil
			}
			return recorder.CreateContainer(path, p)
		},
	}))

	require.NoError(t, s.Toggle())
	b.device.deliver(1, 2, 3)
	require.Equal(t, recorder.StateIdle, s.Status().State)

	// started again before the main loop saw the failure
	require.NoError(t, s.Toggle())
	s.Poll()

	st := s.Status()
	assert.Equal(t, recorder.StateRecording, st.State)
	assert.True(t, st.Capturing, "the new session keeps the device running")
	assert.Contains(t, s.GetLastError(), "abandoned")

	b.device.deliver(4, 5)
	require.NotNil(t, s.Status().Session)
	assert.Equal(t, uint32(4), s.Status().Session.DataBytes)

	assert.ErrorIs(t, s.Quit(), wav.ErrIO)
	info, err := wav.Inspect(s.LastRecording())
	require.NoError(t, err)
	assert.False(t, info.Corrupt, info.Problem)
}

func TestPoll_PausesDeviceAfterAbandonedSession(t *testing.T) {
	s, b := newManualService(t)
	s.machine.Store(recorder.New(b.device, b.format, recorder.Options{
		Open: func(string, wav.Params) (recorder.Container, error) { return failingContainer{}, nil },
	}))

	require.NoError(t, s.Toggle())
	b.device.deliver(1, 2, 3)
	assert.Equal(t, recorder.StateIdle, s.Status().State)
	assert.False(t, b.device.Paused(), "the capture thread cannot pause its own device")

	s.Poll()
	assert.True(t, b.device.Paused())
	assert.Contains(t, s.GetLastError(), "abandoned")

	err := s.Quit()
	assert.ErrorIs(t, err, wav.ErrIO)
	assert.True(t, b.device.closed)
	assert.True(t, b.closed)
	assert.NoError(t, s.Quit(), "second quit is a no-op")
}

func TestQuit_FinalizesOpenSession(t *testing.T) {
	s, b := newManualService(t)

	require.NoError(t, s.Toggle())
	b.device.deliver(7, 7)
	require.NoError(t, s.Quit())

	info, err := wav.Inspect(s.LastRecording())
	require.NoError(t, err)
	assert.False(t, info.Corrupt, info.Problem)
	assert.Equal(t, uint32(4), info.Header.DataSize)
}

func TestPoll_TracksProgress(t *testing.T) {
	s, b := newManualService(t)
	defer s.Quit()

	require.NoError(t, s.Toggle())
	b.device.deliver(make([]int16, 60000)...)
	s.Poll()
	assert.Equal(t, uint32(120000), s.progress)

	require.NoError(t, s.Stop())
	s.Poll()
	assert.Zero(t, s.progress)
}
