package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	goaudio "github.com/go-audio/audio"
)

// SystemDeviceID identifies the single source offered by SystemAudioBackend
const SystemDeviceID = "system"

// FrameSource is implemented by platform bridges that deliver the
// operating system's mixed output as decoded float frames
type FrameSource interface {
	// Start begins delivering buffers to deliver from the bridge's thread
	Start(deliver func(*goaudio.Float32Buffer)) error
	// Stop ends delivery
	Stop() error
}

// SystemAudioBackend captures system audio through a FrameSource
type SystemAudioBackend struct {
	source FrameSource
	format goaudio.Format
}

// NewSystemAudioBackend creates a backend around source. The nominal format
// sizes buffers until the bridge reports its own.
func NewSystemAudioBackend(source FrameSource, nominal goaudio.Format) *SystemAudioBackend {
	if nominal.SampleRate <= 0 {
		nominal.SampleRate = 48000
	}
	if nominal.NumChannels <= 0 {
		nominal.NumChannels = 2
	}
	return &SystemAudioBackend{source: source, format: nominal}
}

// Kind implements Backend
func (b *SystemAudioBackend) Kind() BackendKind {
	return BackendSystem
}

// Devices implements Directory
func (b *SystemAudioBackend) Devices(ctx context.Context) ([]DeviceInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if b.source == nil {
		return nil, fmt.Errorf("%w: no system audio bridge available", ErrEnumeration)
	}
	return []DeviceInfo{{
		ID:          SystemDeviceID,
		Name:        "System Audio",
		IsDefault:   true,
		Formats:     []SampleFormat{FormatPlatform},
		MaxChannels: uint32(b.format.NumChannels),
		SampleRate:  uint32(b.format.SampleRate),
	}}, nil
}

// Open implements Backend
func (b *SystemAudioBackend) Open(ctx context.Context, req StreamRequest) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if b.source == nil || req.Device.ID != SystemDeviceID {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, req.Device.Name)
	}
	if req.Format != FormatUnknown && req.Format != FormatPlatform {
		return nil, fmt.Errorf("%w: system audio is delivered as platform buffers, not %s", ErrFormatNegotiation, req.Format)
	}

	return &systemStream{
		source: b.source,
		onData: req.OnData,
		format: StreamFormat{
			Format:     FormatPlatform,
			SampleRate: uint32(b.format.SampleRate),
			Channels:   uint32(b.format.NumChannels),
		},
	}, nil
}

type systemStream struct {
	source FrameSource
	onData func(RawChunk)
	format StreamFormat

	mu     sync.Mutex
	closed bool
}

func (s *systemStream) Format() StreamFormat {
	return s.format
}

func (s *systemStream) Start() error {
	err := s.source.Start(func(buf *goaudio.Float32Buffer) {
		if buf == nil || s.onData == nil {
			return
		}
		frames := len(buf.Data)
		if buf.Format != nil && buf.Format.NumChannels > 0 {
			frames /= buf.Format.NumChannels
		}
		s.onData(RawChunk{
			Format:    FormatPlatform,
			Buffer:    buf,
			Frames:    uint32(frames),
			Timestamp: time.Now(),
		})
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStreamStart, err)
	}
	return nil
}

func (s *systemStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.source.Stop()
}

// ErrBridgeBusy is returned when a Bridge is started twice
var ErrBridgeBusy = errors.New("system audio bridge already capturing")

// Bridge is a push-style FrameSource: platform glue code calls Push with
// each buffer it receives from the operating system
type Bridge struct {
	mu      sync.Mutex
	deliver func(*goaudio.Float32Buffer)
}

// NewBridge creates an idle bridge
func NewBridge() *Bridge {
	return &Bridge{}
}

// Start implements FrameSource
func (b *Bridge) Start(deliver func(*goaudio.Float32Buffer)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.deliver != nil {
		return ErrBridgeBusy
	}
	b.deliver = deliver
	return nil
}

// Stop implements FrameSource
func (b *Bridge) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deliver = nil
	return nil
}

// Push hands interleaved frames to the running capture. It reports false
// when nothing is capturing. samples may be reused by the caller afterwards.
func (b *Bridge) Push(samples []float32, sampleRate, channels int) bool {
	b.mu.Lock()
	deliver := b.deliver
	b.mu.Unlock()

	if deliver == nil || len(samples) == 0 {
		return false
	}

	deliver(&goaudio.Float32Buffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           samples,
		SourceBitDepth: 32,
	})
	return true
}

// Capturing reports whether a stream is attached to the bridge
func (b *Bridge) Capturing() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.deliver != nil
}
