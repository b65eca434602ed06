package audio

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/gen2brain/malgo"
)

// MalgoBackend captures from the platform audio subsystem through miniaudio
type MalgoBackend struct {
	ctx *malgo.AllocatedContext
}

// NewMalgoBackend initializes the miniaudio context
func NewMalgoBackend() (*MalgoBackend, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		slog.Debug("miniaudio", "message", strings.TrimSpace(message))
	})
	if err != nil {
		return nil, fmt.Errorf("%w: initializing audio context: %v", ErrDeviceOpen, err)
	}
	return &MalgoBackend{ctx: ctx}, nil
}

// ListDevices returns the capture devices known to miniaudio
func (b *MalgoBackend) ListDevices() ([]DeviceInfo, error) {
	infos, err := b.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate capture devices: %w", err)
	}

	devices := make([]DeviceInfo, 0, len(infos))
	for _, info := range infos {
		devices = append(devices, DeviceInfo{
			Name:      info.Name(),
			IsDefault: info.IsDefault != 0,
		})
	}
	return devices, nil
}

// Open initializes the capture device. The device is left stopped.
func (b *MalgoBackend) Open(opts OpenOptions, deliver DeliveryFunc) (Device, Format, error) {
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = uint32(opts.Channels)
	deviceConfig.SampleRate = uint32(opts.SampleRate)
	deviceConfig.PeriodSizeInFrames = uint32(opts.PeriodFrames)
	deviceConfig.Alsa.NoMMap = 1

	if opts.Device != "" {
		infos, err := b.ctx.Devices(malgo.Capture)
		if err != nil {
			return nil, Format{}, fmt.Errorf("%w: %v", ErrDeviceOpen, err)
		}
		found := false
		for _, info := range infos {
			if strings.Contains(info.Name(), opts.Device) {
				deviceConfig.Capture.DeviceID = info.ID.Pointer()
				found = true
				break
			}
		}
		if !found {
			return nil, Format{}, fmt.Errorf("%w: capture device not found: %s", ErrDeviceOpen, opts.Device)
		}
	}

	d := &malgoDevice{}
	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			deliver(input, d.format)
		},
	}

	device, err := malgo.InitDevice(b.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return nil, Format{}, fmt.Errorf("%w: %v", ErrDeviceOpen, err)
	}

	d.device = device
	d.format = Format{
		SampleRate: int(device.SampleRate()),
		Channels:   int(device.CaptureChannels()),
		Encoding:   encodingFromMalgo(device.CaptureFormat()),
	}

	return d, d.format, nil
}

// Type returns the backend type
func (b *MalgoBackend) Type() BackendType {
	return BackendTypeMalgo
}

// Close releases the miniaudio context
func (b *MalgoBackend) Close() error {
	if b.ctx == nil {
		return nil
	}
	err := b.ctx.Uninit()
	b.ctx.Free()
	b.ctx = nil
	if err != nil {
		return fmt.Errorf("uninitializing audio context: %w", err)
	}
	return nil
}

type malgoDevice struct {
	mu     sync.Mutex
	device *malgo.Device
	format Format
}

func (d *malgoDevice) SetPaused(paused bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.device == nil {
		return fmt.Errorf("capture device is closed")
	}
	if paused {
		if !d.device.IsStarted() {
			return nil
		}
		// ma_device_stop waits for the data callback to return
		if err := d.device.Stop(); err != nil {
			return fmt.Errorf("stopping capture device: %w", err)
		}
		return nil
	}

	if d.device.IsStarted() {
		return nil
	}
	if err := d.device.Start(); err != nil {
		return fmt.Errorf("starting capture device: %w", err)
	}
	return nil
}

func (d *malgoDevice) Paused() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.device == nil || !d.device.IsStarted()
}

func (d *malgoDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.device != nil {
		d.device.Uninit()
		d.device = nil
	}
	return nil
}

func encodingFromMalgo(f malgo.FormatType) Encoding {
	native := NativeS16()
	little := native == EncodingS16LE
	switch f {
	case malgo.FormatU8:
		return EncodingU8
	case malgo.FormatS16:
		return native
	case malgo.FormatS24:
		if little {
			return EncodingS24LE
		}
	case malgo.FormatS32:
		if little {
			return EncodingS32LE
		}
		return EncodingS32BE
	case malgo.FormatF32:
		if little {
			return EncodingF32LE
		}
		return EncodingF32BE
	}
	return EncodingUnknown
}
