package audio

import "errors"

// Capture errors. Backends wrap these with fmt.Errorf so callers can match
// them with errors.Is.
var (
	// ErrEnumeration is returned when the platform audio subsystem cannot be
	// queried for devices
	ErrEnumeration = errors.New("audio device enumeration failed")

	// ErrDeviceNotFound is returned when a requested device is not present
	ErrDeviceNotFound = errors.New("audio device not found")

	// ErrFormatNegotiation is returned when no usable sample format could be
	// agreed with the device
	ErrFormatNegotiation = errors.New("sample format negotiation failed")

	// ErrStreamStart is returned when the hardware stream refuses to start
	ErrStreamStart = errors.New("audio stream failed to start")

	// ErrStreamRuntime is reported asynchronously when a running stream fails
	ErrStreamRuntime = errors.New("audio stream failed")

	// ErrUnsupportedEncoding is returned for chunks in an encoding the ingest
	// path cannot normalize
	ErrUnsupportedEncoding = errors.New("unsupported sample encoding")

	// ErrMalformedChunk is returned for chunks whose payload does not hold a
	// whole number of samples
	ErrMalformedChunk = errors.New("malformed audio chunk")
)
