package audio

import (
	"encoding/binary"
	"fmt"
)

// Encoding identifies how a single PCM sample is laid out in memory
type Encoding int

const (
	EncodingUnknown Encoding = iota
	EncodingU8
	EncodingS8
	EncodingS16LE
	EncodingS16BE
	EncodingU16LE
	EncodingU16BE
	EncodingS24LE
	EncodingS32LE
	EncodingS32BE
	EncodingF32LE
	EncodingF32BE
)

var encodingNames = map[Encoding]string{
	EncodingU8:    "U8",
	EncodingS8:    "S8",
	EncodingS16LE: "S16LE",
	EncodingS16BE: "S16BE",
	EncodingU16LE: "U16LE",
	EncodingU16BE: "U16BE",
	EncodingS24LE: "S24LE",
	EncodingS32LE: "S32LE",
	EncodingS32BE: "S32BE",
	EncodingF32LE: "F32LE",
	EncodingF32BE: "F32BE",
}

func (e Encoding) String() string {
	if name, ok := encodingNames[e]; ok {
		return name
	}
	return fmt.Sprintf("unknown 0x%x", int(e))
}

// BitsPerSample returns the sample width, or 0 for an unknown encoding
func (e Encoding) BitsPerSample() int {
	switch e {
	case EncodingU8, EncodingS8:
		return 8
	case EncodingS16LE, EncodingS16BE, EncodingU16LE, EncodingU16BE:
		return 16
	case EncodingS24LE:
		return 24
	case EncodingS32LE, EncodingS32BE, EncodingF32LE, EncodingF32BE:
		return 32
	default:
		return 0
	}
}

// Format is the device-negotiated capture format. It is fixed once the
// device has been opened.
type Format struct {
	SampleRate int      `json:"sample_rate"`
	Channels   int      `json:"channels"`
	Encoding   Encoding `json:"encoding"`
}

func (f Format) BitsPerSample() int  { return f.Encoding.BitsPerSample() }
func (f Format) BytesPerSample() int { return f.Encoding.BitsPerSample() / 8 }
func (f Format) BlockAlign() int     { return f.Channels * f.BytesPerSample() }
func (f Format) ByteRate() int       { return f.SampleRate * f.BlockAlign() }

func (f Format) String() string {
	return fmt.Sprintf("freq=%d, format=%s, channels=%d", f.SampleRate, f.Encoding, f.Channels)
}

// Validate reports whether the format can describe a PCM stream at all
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate: %d", f.SampleRate)
	}
	if f.Channels <= 0 {
		return fmt.Errorf("invalid channel count: %d", f.Channels)
	}
	if f.BitsPerSample() == 0 {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, f.Encoding)
	}
	return nil
}

// Recordable reports whether deliveries in this format can be written to
// the container. Only signed 16-bit little-endian is supported.
func (f Format) Recordable() bool {
	return f.Encoding == EncodingS16LE
}

// NativeS16 returns the 16-bit signed encoding matching the host byte order.
// Capture backends hand samples over in native order.
func NativeS16() Encoding {
	var b [2]byte
	binary.NativeEndian.PutUint16(b[:], 1)
	if b[0] == 1 {
		return EncodingS16LE
	}
	return EncodingS16BE
}
