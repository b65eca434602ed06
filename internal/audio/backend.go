package audio

import (
	"fmt"
	"strings"

	"github.com/audiolibrelab/jamscope/internal/config"
)

// BackendType represents the type of capture backend
type BackendType string

const (
	BackendTypeMalgo     BackendType = "malgo"
	BackendTypeSynthetic BackendType = "synthetic"
	BackendTypeAuto      BackendType = "auto"
)

// DeviceInfo describes one capture device as reported by the backend
type DeviceInfo struct {
	Name      string `json:"name"`
	IsDefault bool   `json:"is_default"`
}

// DeliveryFunc receives one buffer of raw PCM samples. It runs on the
// backend's delivery thread; buf is only valid until the call returns.
type DeliveryFunc func(buf []byte, format Format)

// OpenOptions is the desired capture format and device selection
type OpenOptions struct {
	Device       string
	SampleRate   int
	Channels     int
	PeriodFrames int
}

// Device is an opened capture device. Devices start paused.
type Device interface {
	// SetPaused stops or resumes delivery. Pausing returns once any
	// in-flight delivery has completed.
	SetPaused(paused bool) error
	Paused() bool
	Close() error
}

// Backend defines the interface for capture backend implementations
type Backend interface {
	// List available capture devices
	ListDevices() ([]DeviceInfo, error)

	// Open a capture device and register the delivery callback
	Open(opts OpenOptions, deliver DeliveryFunc) (Device, Format, error)

	// Get the backend type
	Type() BackendType

	// Release backend resources
	Close() error
}

// NewBackend creates a backend based on configuration
func NewBackend(cfg *config.Config) (Backend, error) {
	switch determineBackend(cfg) {
	case BackendTypeSynthetic:
		return NewSyntheticBackend(cfg.Audio.ToneHz), nil
	case BackendTypeMalgo:
		return NewMalgoBackend()
	default:
		return nil, fmt.Errorf("unknown audio backend: %s", cfg.Audio.Backend)
	}
}

// OpenOptionsFromConfig builds the desired capture format from configuration
func OpenOptionsFromConfig(cfg *config.Config) OpenOptions {
	return OpenOptions{
		Device:       cfg.Audio.Device,
		SampleRate:   cfg.Audio.SampleRate,
		Channels:     cfg.Audio.Channels,
		PeriodFrames: cfg.Audio.PeriodFrames,
	}
}

// determineBackend determines which backend to use based on configuration
func determineBackend(cfg *config.Config) BackendType {
	switch strings.ToLower(cfg.Audio.Backend) {
	case "", "auto", "malgo":
		return BackendTypeMalgo
	case "synthetic":
		return BackendTypeSynthetic
	}
	return BackendType(cfg.Audio.Backend)
}

// GetAvailableBackends returns the list of backends compiled into this binary
func GetAvailableBackends() []BackendType {
	return []BackendType{BackendTypeMalgo, BackendTypeSynthetic}
}
