package wav

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspect_FinalizedRecording(t *testing.T) {
	t.Parallel()

	w, path := createTemp(t, Params{Channels: 1, SampleRate: 8000, BitsPerSample: 16})
	_, err := w.Write(samplesToBytes([]int16{100, -200, 300, -32768}))
	require.NoError(t, err)
	require.NoError(t, w.Finalize(w.DataBytes()))

	info, err := Inspect(path)
	require.NoError(t, err)

	assert.False(t, info.Corrupt, info.Problem)
	assert.Equal(t, int64(HeaderSize+8), info.FileSize)
	assert.Equal(t, uint32(8), info.Header.DataSize)
	assert.Equal(t, 4, info.Samples)
	assert.Equal(t, -32768, info.Min)
	assert.Equal(t, 300, info.Max)
	assert.Equal(t, 500*time.Microsecond, info.Duration)
}

func TestInspect_EmptyRecording(t *testing.T) {
	t.Parallel()

	w, path := createTemp(t, Params{Channels: 2, SampleRate: 44100, BitsPerSample: 16})
	require.NoError(t, w.Finalize(0))

	info, err := Inspect(path)
	require.NoError(t, err)
	assert.False(t, info.Corrupt)
	assert.Zero(t, info.Samples)
	assert.Zero(t, info.Duration)
}

func TestInspect_Missing(t *testing.T) {
	t.Parallel()

	_, err := Inspect("/nonexistent/audio.wav")
	assert.ErrorIs(t, err, ErrIO)
}
