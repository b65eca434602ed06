package audio

import (
	"encoding/binary"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyntheticDeviceStartsPaused(t *testing.T) {
	var deliveries atomic.Int32
	backend := NewSyntheticBackend(0)

	dev, format, err := backend.Open(OpenOptions{SampleRate: 8000, Channels: 1, PeriodFrames: 80}, func([]byte, Format) {
		deliveries.Add(1)
	})
	require.NoError(t, err)
	defer dev.Close()

	assert.Equal(t, EncodingS16LE, format.Encoding)
	assert.True(t, dev.Paused())

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), deliveries.Load(), "paused device must not deliver")
}

func TestSyntheticDeviceDeliversPeriods(t *testing.T) {
	var mu sync.Mutex
	var sizes []int
	got := make(chan struct{}, 1)

	backend := NewSyntheticBackend(1000)
	dev, _, err := backend.Open(OpenOptions{SampleRate: 8000, Channels: 2, PeriodFrames: 40}, func(buf []byte, f Format) {
		mu.Lock()
		sizes = append(sizes, len(buf))
		mu.Unlock()
		select {
		case got <- struct{}{}:
		default:
		}
	})
	require.NoError(t, err)
	defer dev.Close()

	require.NoError(t, dev.SetPaused(false))
	select {
	case <-got:
	case <-time.After(2 * time.Second):
		t.Fatal("no delivery")
	}
	require.NoError(t, dev.SetPaused(true))

	mu.Lock()
	n := len(sizes)
	for _, s := range sizes {
		assert.Equal(t, 40*2*2, s)
	}
	mu.Unlock()

	time.Sleep(30 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, n, len(sizes), "no deliveries after pause returned")
	mu.Unlock()
}

func TestSyntheticFillIsHalfScaleSine(t *testing.T) {
	d := &syntheticDevice{
		format: Format{SampleRate: 8000, Channels: 1, Encoding: EncodingS16LE},
		frames: 80,
		toneHz: 100,
	}
	buf := make([]byte, 160)
	d.fill(buf)

	var peak int16
	for i := 0; i < len(buf); i += 2 {
		v := int16(binary.LittleEndian.Uint16(buf[i:]))
		if v > peak {
			peak = v
		}
		assert.LessOrEqual(t, v, int16(16384))
		assert.GreaterOrEqual(t, v, int16(-16384))
	}
	assert.Greater(t, peak, int16(16000))
}

func TestSyntheticOpenRejects(t *testing.T) {
	backend := NewSyntheticBackend(0)

	_, _, err := backend.Open(OpenOptions{Device: "USB mic", SampleRate: 8000, Channels: 1}, nil)
	assert.True(t, errors.Is(err, ErrDeviceOpen))

	_, _, err = backend.Open(OpenOptions{SampleRate: 0, Channels: 1}, nil)
	assert.True(t, IsDeviceError(err))
}

func TestSyntheticSetPausedAfterClose(t *testing.T) {
	dev, _, err := NewSyntheticBackend(0).Open(OpenOptions{SampleRate: 8000, Channels: 1}, func([]byte, Format) {})
	require.NoError(t, err)
	require.NoError(t, dev.Close())
	assert.Error(t, dev.SetPaused(false))
	assert.NoError(t, dev.Close())
}
