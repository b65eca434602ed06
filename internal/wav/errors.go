package wav

import "errors"

var (
	// ErrIO wraps every create, write, seek and close failure
	ErrIO = errors.New("container i/o")

	ErrTooLarge = errors.New("container exceeds 32-bit size fields")

	// Programming errors: the caller broke the container lifecycle
	ErrFinalized    = errors.New("container already finalized")
	ErrSizeMismatch = errors.New("declared data size does not match bytes written")

	ErrNotWavFile           = errors.New("not a WAV file")
	ErrUnsupportedWavLayout = errors.New("unsupported WAV layout")
)
