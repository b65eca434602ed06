package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"
)

const syntheticDeviceName = "Synthetic sine generator"

// SyntheticBackend generates a sine tone on a ticker, paced like a real
// device delivering one period of frames at a time
type SyntheticBackend struct {
	toneHz float64
}

// NewSyntheticBackend creates a generator backend; toneHz <= 0 means 440 Hz
func NewSyntheticBackend(toneHz float64) *SyntheticBackend {
	if toneHz <= 0 {
		toneHz = 440
	}
	return &SyntheticBackend{toneHz: toneHz}
}

func (b *SyntheticBackend) ListDevices() ([]DeviceInfo, error) {
	return []DeviceInfo{{Name: syntheticDeviceName, IsDefault: true}}, nil
}

func (b *SyntheticBackend) Open(opts OpenOptions, deliver DeliveryFunc) (Device, Format, error) {
	if opts.Device != "" && opts.Device != syntheticDeviceName {
		return nil, Format{}, fmt.Errorf("%w: capture device not found: %s", ErrDeviceOpen, opts.Device)
	}
	format := Format{SampleRate: opts.SampleRate, Channels: opts.Channels, Encoding: EncodingS16LE}
	if err := format.Validate(); err != nil {
		return nil, Format{}, fmt.Errorf("%w: %v", ErrDeviceOpen, err)
	}
	frames := opts.PeriodFrames
	if frames <= 0 {
		frames = 1024
	}

	d := &syntheticDevice{
		format:  format,
		frames:  frames,
		toneHz:  b.toneHz,
		deliver: deliver,
		paused:  true,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	period := time.Duration(float64(time.Second) * float64(frames) / float64(format.SampleRate))
	go d.run(period)

	return d, format, nil
}

func (b *SyntheticBackend) Type() BackendType {
	return BackendTypeSynthetic
}

func (b *SyntheticBackend) Close() error {
	return nil
}

type syntheticDevice struct {
	// mu is held for the whole delivery so SetPaused(true) waits for it
	mu      sync.Mutex
	paused  bool
	closed  bool
	phase   float64
	format  Format
	frames  int
	toneHz  float64
	deliver DeliveryFunc

	stop chan struct{}
	done chan struct{}
}

func (d *syntheticDevice) run(period time.Duration) {
	defer close(d.done)

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	// The buffer is reused between deliveries like a driver's ring buffer
	buf := make([]byte, d.frames*d.format.BlockAlign())
	for {
		select {
		case <-d.stop:
			return
		case <-ticker.C:
			d.mu.Lock()
			if !d.paused {
				d.fill(buf)
				d.deliver(buf, d.format)
			}
			d.mu.Unlock()
		}
	}
}

// fill writes one period of a sine at half scale
func (d *syntheticDevice) fill(buf []byte) {
	step := 2 * math.Pi * d.toneHz / float64(d.format.SampleRate)
	for frame := 0; frame < d.frames; frame++ {
		v := int16(math.Sin(d.phase) * 16384)
		for ch := 0; ch < d.format.Channels; ch++ {
			off := (frame*d.format.Channels + ch) * 2
			binary.LittleEndian.PutUint16(buf[off:off+2], uint16(v))
		}
		d.phase += step
		if d.phase > 2*math.Pi {
			d.phase -= 2 * math.Pi
		}
	}
}

func (d *syntheticDevice) SetPaused(paused bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return fmt.Errorf("device closed")
	}
	d.paused = paused
	return nil
}

func (d *syntheticDevice) Paused() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.paused
}

func (d *syntheticDevice) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.paused = true
	d.mu.Unlock()

	close(d.stop)
	<-d.done
	return nil
}
