package wav

import (
	"encoding/binary"
	"fmt"
	"io"
)

const (
	// HeaderSize is the length of the canonical RIFF/WAVE preamble
	HeaderSize = 44

	riffSizeOffset = 4
	dataSizeOffset = 40

	formatPCM = 1
)

// Params are the PCM parameters recorded in the fmt sub-block
type Params struct {
	Channels      int
	SampleRate    int
	BitsPerSample int
}

func (p Params) blockAlign() int { return p.Channels * (p.BitsPerSample / 8) }
func (p Params) byteRate() int   { return p.SampleRate * p.blockAlign() }

func (p Params) validate() error {
	if p.Channels <= 0 || p.Channels > 0xffff {
		return fmt.Errorf("invalid channel count: %d", p.Channels)
	}
	if p.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate: %d", p.SampleRate)
	}
	if p.BitsPerSample <= 0 || p.BitsPerSample%8 != 0 {
		return fmt.Errorf("invalid bits per sample: %d", p.BitsPerSample)
	}
	return nil
}

// Header is the decoded preamble of a container
type Header struct {
	RIFFSize      uint32 `json:"riff_size" yaml:"riff_size"`
	AudioFormat   uint16 `json:"audio_format" yaml:"audio_format"`
	Channels      int    `json:"channels" yaml:"channels"`
	SampleRate    int    `json:"sample_rate" yaml:"sample_rate"`
	ByteRate      int    `json:"byte_rate" yaml:"byte_rate"`
	BlockAlign    int    `json:"block_align" yaml:"block_align"`
	BitsPerSample int    `json:"bits_per_sample" yaml:"bits_per_sample"`
	DataSize      uint32 `json:"data_size" yaml:"data_size"`
}

// encodeHeader lays out the 44-byte preamble. Both size fields are left
// zero until the container is finalized.
func encodeHeader(p Params) []byte {
	header := make([]byte, HeaderSize)

	// RIFF header (12 bytes)
	copy(header[0:4], "RIFF")
	copy(header[8:12], "WAVE")

	// fmt chunk (24 bytes)
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], formatPCM)
	binary.LittleEndian.PutUint16(header[22:24], uint16(p.Channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(p.SampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(p.byteRate()))
	binary.LittleEndian.PutUint16(header[32:34], uint16(p.blockAlign()))
	binary.LittleEndian.PutUint16(header[34:36], uint16(p.BitsPerSample))

	// data chunk header (8 bytes)
	copy(header[36:40], "data")

	return header
}

func riffSize(dataSize uint32) uint32 {
	return dataSize + HeaderSize - 8
}

// ReadHeader parses the canonical preamble from the start of r
func ReadHeader(r io.ReaderAt) (Header, error) {
	buf := make([]byte, HeaderSize)
	if _, err := r.ReadAt(buf, 0); err != nil {
		return Header{}, fmt.Errorf("%w: reading header: %w", ErrIO, err)
	}

	if string(buf[0:4]) != "RIFF" || string(buf[8:12]) != "WAVE" {
		return Header{}, ErrNotWavFile
	}
	if string(buf[12:16]) != "fmt " || string(buf[36:40]) != "data" {
		return Header{}, ErrUnsupportedWavLayout
	}

	return Header{
		RIFFSize:      binary.LittleEndian.Uint32(buf[4:8]),
		AudioFormat:   binary.LittleEndian.Uint16(buf[20:22]),
		Channels:      int(binary.LittleEndian.Uint16(buf[22:24])),
		SampleRate:    int(binary.LittleEndian.Uint32(buf[24:28])),
		ByteRate:      int(binary.LittleEndian.Uint32(buf[28:32])),
		BlockAlign:    int(binary.LittleEndian.Uint16(buf[32:34])),
		BitsPerSample: int(binary.LittleEndian.Uint16(buf[34:36])),
		DataSize:      binary.LittleEndian.Uint32(buf[40:44]),
	}, nil
}
