package wav

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
)

// silenceChunk bounds the zero buffer used for gap writes regardless of
// sample rate
const silenceChunk = 8192

// maxDataBytes keeps the RIFF size field (data + 36) inside 32 bits
const maxDataBytes = math.MaxUint32 - (HeaderSize - 8)

// File is an open container being recorded into. It is not safe for
// concurrent use; the owner serializes all calls.
type File struct {
	f         *os.File
	path      string
	params    Params
	written   uint32
	finalized bool
	closed    bool
}

// Create truncates or creates path, writes the provisional header and leaves
// the cursor on the first data byte
func Create(path string, p Params) (*File, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("%w: create %s: %w", ErrIO, path, err)
	}

	if _, err := f.Write(encodeHeader(p)); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: writing header to %s: %w", ErrIO, path, err)
	}

	return &File{f: f, path: path, params: p}, nil
}

// Path returns the file name the container was created with
func (w *File) Path() string { return w.path }

// Params returns the header parameters fixed at creation
func (w *File) Params() Params { return w.params }

// DataBytes returns the number of PCM bytes physically written so far
func (w *File) DataBytes() uint32 { return w.written }

// Write appends raw PCM bytes at the cursor
func (w *File) Write(p []byte) (int, error) {
	if w.finalized || w.closed {
		return 0, fmt.Errorf("%w: write to %s", ErrFinalized, w.path)
	}
	if uint64(w.written)+uint64(len(p)) > maxDataBytes {
		return 0, fmt.Errorf("%w: %w", ErrIO, ErrTooLarge)
	}

	n, err := w.f.Write(p)
	w.written += uint32(n)
	if err != nil {
		return n, fmt.Errorf("%w: short write to %s (%d of %d bytes): %w", ErrIO, w.path, n, len(p), err)
	}
	return n, nil
}

// InsertSilence writes seconds*sampleRate*bytesPerSample zero bytes at the cursor
func (w *File) InsertSilence(seconds float64, sampleRate, bytesPerSample int) (int, error) {
	remaining := int(math.Round(seconds*float64(sampleRate))) * bytesPerSample
	if remaining <= 0 {
		return 0, nil
	}

	zeros := make([]byte, min(remaining, silenceChunk))
	total := 0
	for remaining > 0 {
		n, err := w.Write(zeros[:min(remaining, len(zeros))])
		total += n
		if err != nil {
			return total, err
		}
		remaining -= n
	}
	return total, nil
}

// Finalize patches the overall-size and data-size fields and closes the
// file. It may be called once; totalDataBytes must equal DataBytes().
func (w *File) Finalize(totalDataBytes uint32) error {
	if w.finalized {
		return fmt.Errorf("%w: %s", ErrFinalized, w.path)
	}
	if w.closed {
		return fmt.Errorf("%w: %s was abandoned", ErrFinalized, w.path)
	}
	if totalDataBytes != w.written {
		return fmt.Errorf("%w: declared %d, written %d", ErrSizeMismatch, totalDataBytes, w.written)
	}
	w.finalized = true

	var field [4]byte
	binary.LittleEndian.PutUint32(field[:], riffSize(totalDataBytes))
	if _, err := w.f.WriteAt(field[:], riffSizeOffset); err != nil {
		w.close()
		return fmt.Errorf("%w: patching RIFF size in %s: %w", ErrIO, w.path, err)
	}

	binary.LittleEndian.PutUint32(field[:], totalDataBytes)
	if _, err := w.f.WriteAt(field[:], dataSizeOffset); err != nil {
		w.close()
		return fmt.Errorf("%w: patching data size in %s: %w", ErrIO, w.path, err)
	}

	if err := w.close(); err != nil {
		return fmt.Errorf("%w: closing %s: %w", ErrIO, w.path, err)
	}
	return nil
}

// Abandon closes the file without patching the header. The container is
// left with zero declared sizes.
func (w *File) Abandon() error {
	if w.closed {
		return nil
	}
	if err := w.close(); err != nil {
		return fmt.Errorf("%w: closing %s: %w", ErrIO, w.path, err)
	}
	return nil
}

func (w *File) close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.f.Close()
}
