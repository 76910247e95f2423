package audio

import (
	"context"
	"fmt"
	"strings"
)

// BackendKind names a capture backend variant
type BackendKind string

const (
	// BackendDevice captures from a hardware input device
	BackendDevice BackendKind = "device"
	// BackendSystem captures the operating system's mixed output
	BackendSystem BackendKind = "system"
	// BackendSilent is a demo backend that never delivers samples
	BackendSilent BackendKind = "silent"
	// BackendSynthetic is a demo backend that generates a test tone
	BackendSynthetic BackendKind = "synthetic"
)

// ParseBackendKind parses a backend name from configuration
func ParseBackendKind(s string) (BackendKind, error) {
	switch k := BackendKind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return BackendDevice, nil
	case BackendDevice, BackendSystem, BackendSilent, BackendSynthetic:
		return k, nil
	default:
		return "", fmt.Errorf("unknown capture backend: %s", s)
	}
}

// CaptureConfig holds the stream parameters requested from a backend
type CaptureConfig struct {
	// SampleRate is the requested rate in Hz
	// 0 = device default
	SampleRate uint32

	// Channels is the requested channel count
	// 0 = device default
	Channels uint32

	// BufferFrames is the number of frames per hardware callback
	// Smaller = lower latency, higher CPU usage
	BufferFrames uint32
}

// DefaultConfig leaves every parameter to the device
func DefaultConfig() CaptureConfig {
	return CaptureConfig{
		SampleRate:   0,
		Channels:     0,
		BufferFrames: 0,
	}
}

// StreamFormat is the negotiated format of an open stream
type StreamFormat struct {
	Format     SampleFormat
	SampleRate uint32
	Channels   uint32
}

// StreamRequest asks a backend to open a stream on a device
type StreamRequest struct {
	Device DeviceInfo
	Format SampleFormat // FormatUnknown = device default
	Config CaptureConfig

	// OnData is invoked on the backend's thread once per delivered chunk
	OnData func(RawChunk)

	// OnError is invoked at most once if the stream fails after Start
	OnError func(error)
}

// Stream is an opened, negotiated capture stream
type Stream interface {
	// Format returns the negotiated stream format
	Format() StreamFormat

	// Start begins delivering chunks to the request's OnData
	Start() error

	// Close stops delivery and releases the device. It is safe to call
	// more than once and from any goroutine.
	Close() error
}

// Backend is the capture capability: it lists sources and opens streams
type Backend interface {
	Directory

	// Kind returns the backend variant
	Kind() BackendKind

	// Open negotiates a format and prepares a stream without starting it.
	// Errors wrap ErrDeviceNotFound or ErrFormatNegotiation.
	Open(ctx context.Context, req StreamRequest) (Stream, error)
}
