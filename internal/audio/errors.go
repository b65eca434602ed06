package audio

import "errors"

var (
	ErrNoDevices         = errors.New("no audio devices found")
	ErrDeviceOpen        = errors.New("audio device open failed")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
)

// IsDeviceError reports whether err is fatal to startup
func IsDeviceError(err error) bool {
	return errors.Is(err, ErrNoDevices) || errors.Is(err, ErrDeviceOpen)
}
