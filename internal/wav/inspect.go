package wav

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"
)

// Info is the result of inspecting a recorded container
type Info struct {
	Path     string        `json:"path" yaml:"path"`
	FileSize int64         `json:"file_size" yaml:"file_size"`
	Header   Header        `json:"header" yaml:"header"`
	Duration time.Duration `json:"duration" yaml:"duration"`
	Samples  int           `json:"samples" yaml:"samples"`
	Min      int           `json:"min" yaml:"min"`
	Max      int           `json:"max" yaml:"max"`
	Corrupt  bool          `json:"corrupt" yaml:"corrupt"`
	Problem  string        `json:"problem,omitempty" yaml:"problem,omitempty"`
}

// Inspect validates the declared sizes of a container against its length
// and scans the PCM data for its amplitude range
func Inspect(path string) (*Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrIO, path, err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %w", ErrIO, path, err)
	}

	header, err := ReadHeader(f)
	if err != nil {
		return nil, err
	}

	info := &Info{Path: path, FileSize: stat.Size(), Header: header}
	if header.ByteRate > 0 {
		info.Duration = time.Duration(uint64(header.DataSize) * uint64(time.Second) / uint64(header.ByteRate))
	}

	payload := stat.Size() - HeaderSize
	switch {
	case header.DataSize == 0 && payload > 0:
		info.Corrupt = true
		info.Problem = fmt.Sprintf("header not finalized: declared 0 data bytes, file holds %d", payload)
	case int64(header.DataSize) != payload:
		info.Corrupt = true
		info.Problem = fmt.Sprintf("declared %d data bytes, file holds %d", header.DataSize, payload)
	case header.RIFFSize != riffSize(header.DataSize):
		info.Corrupt = true
		info.Problem = fmt.Sprintf("RIFF size %d, expected %d", header.RIFFSize, riffSize(header.DataSize))
	}
	if info.Corrupt || header.DataSize == 0 {
		return info, nil
	}

	if err := scanSamples(f, info); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	return info, nil
}

func scanSamples(f *os.File, info *Info) error {
	if _, err := f.Seek(0, 0); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}

	d := gowav.NewDecoder(f)
	d.ReadInfo()
	if err := d.Err(); err != nil {
		return err
	}
	if err := d.FwdToPCM(); err != nil {
		return err
	}

	buf := &audio.IntBuffer{Format: d.Format(), Data: make([]int, 4096)}
	first := true
	for {
		n, err := d.PCMBuffer(buf)
		for _, v := range buf.Data[:n] {
			if first || v < info.Min {
				info.Min = v
			}
			if first || v > info.Max {
				info.Max = v
			}
			first = false
		}
		info.Samples += n
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			return err
		}
		if err != nil || n < len(buf.Data) {
			return nil
		}
	}
}
