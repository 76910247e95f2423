package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"time"

	goaudio "github.com/go-audio/audio"
)

// SampleFormat identifies the native encoding of captured samples
type SampleFormat int

const (
	// FormatUnknown means "use whatever the device prefers"
	FormatUnknown SampleFormat = iota
	// FormatF32 is little-endian IEEE 754 float32
	FormatF32
	// FormatS16 is little-endian signed 16-bit PCM
	FormatS16
	// FormatU16 is little-endian unsigned 16-bit PCM
	FormatU16
	// FormatPlatform is a decoded float buffer handed over by a platform
	// bridge (system audio capture)
	FormatPlatform
	// FormatOther covers native encodings the ingest path does not handle
	// (24/32-bit integer, 8-bit unsigned, ...)
	FormatOther
)

// String returns the short name used in configuration files
func (f SampleFormat) String() string {
	switch f {
	case FormatF32:
		return "f32"
	case FormatS16:
		return "s16"
	case FormatU16:
		return "u16"
	case FormatPlatform:
		return "platform"
	case FormatOther:
		return "other"
	default:
		return "unknown"
	}
}

// ParseSampleFormat parses a format hint. An empty string yields FormatUnknown.
func ParseSampleFormat(s string) (SampleFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default", "unknown":
		return FormatUnknown, nil
	case "f32", "float32":
		return FormatF32, nil
	case "s16", "int16":
		return FormatS16, nil
	case "u16", "uint16":
		return FormatU16, nil
	case "platform":
		return FormatPlatform, nil
	default:
		return FormatUnknown, fmt.Errorf("%w: %q", ErrUnsupportedEncoding, s)
	}
}

// BytesPerSample returns the width of one sample of a byte-encoded format,
// or 0 for formats that are not carried as raw bytes
func (f SampleFormat) BytesPerSample() int {
	switch f {
	case FormatF32:
		return 4
	case FormatS16, FormatU16:
		return 2
	default:
		return 0
	}
}

// Supported reports whether the ingest path can normalize this format
func (f SampleFormat) Supported() bool {
	switch f {
	case FormatF32, FormatS16, FormatU16, FormatPlatform:
		return true
	default:
		return false
	}
}

// RawChunk is one hardware-delivered block of interleaved samples.
// Data is only valid for the duration of the callback that carries it.
type RawChunk struct {
	Format    SampleFormat
	Data      []byte
	Buffer    *goaudio.Float32Buffer // set instead of Data for FormatPlatform
	Frames    uint32
	Timestamp time.Time
}

// NormalizeS16 maps a signed 16-bit sample to [-1.0, 1.0]
func NormalizeS16(v int16) float32 {
	f := float32(v) / math.MaxInt16
	if f < -1 {
		return -1
	}
	return f
}

// NormalizeU16 maps an unsigned 16-bit sample to [-1.0, 1.0]
func NormalizeU16(v uint16) float32 {
	return float32(v)/math.MaxUint16*2 - 1
}

// finite replaces NaN with silence and clamps infinities to full scale
func finite(v float32) float32 {
	f := float64(v)
	switch {
	case math.IsNaN(f):
		return 0
	case math.IsInf(f, 1):
		return 1
	case math.IsInf(f, -1):
		return -1
	}
	return v
}

// Normalize converts a raw chunk into freshly allocated float32 samples in
// [-1.0, 1.0]. A zero-length chunk yields an empty slice and no error.
func Normalize(chunk RawChunk) ([]float32, error) {
	if chunk.Format == FormatPlatform {
		if chunk.Buffer == nil || len(chunk.Buffer.Data) == 0 {
			return nil, nil
		}
		out := make([]float32, len(chunk.Buffer.Data))
		for i, v := range chunk.Buffer.Data {
			out[i] = finite(v)
		}
		return out, nil
	}

	width := chunk.Format.BytesPerSample()
	if width == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEncoding, chunk.Format)
	}
	if len(chunk.Data) == 0 {
		return nil, nil
	}
	if len(chunk.Data)%width != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a multiple of %d", ErrMalformedChunk, len(chunk.Data), width)
	}

	n := len(chunk.Data) / width
	out := make([]float32, n)
	data := chunk.Data

	switch chunk.Format {
	case FormatF32:
		for i := range out {
			out[i] = finite(math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:])))
		}
	case FormatS16:
		for i := range out {
			out[i] = NormalizeS16(int16(binary.LittleEndian.Uint16(data[i*2:])))
		}
	case FormatU16:
		for i := range out {
			out[i] = NormalizeU16(binary.LittleEndian.Uint16(data[i*2:]))
		}
	}

	return out, nil
}

// RMS calculates the root-mean-square level of normalized samples
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}

	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}

	return math.Sqrt(sum / float64(len(samples)))
}

// EncodeS16 encodes normalized samples as little-endian signed 16-bit PCM.
// Values outside [-1.0, 1.0] are clipped.
func EncodeS16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(s*math.MaxInt16)))
	}
	return out
}
