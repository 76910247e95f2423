package audio

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"
)

// DemoConfig configures the demo backends
type DemoConfig struct {
	// Frequency of the synthetic tone in Hz
	Frequency float64

	// Amplitude of the synthetic tone, 0.0 to 1.0
	Amplitude float64

	// SampleRate of the generated stream in Hz
	SampleRate uint32

	// BufferFrames per generated chunk
	BufferFrames uint32
}

// DefaultDemoConfig returns a 440 Hz tone at half scale
func DefaultDemoConfig() DemoConfig {
	return DemoConfig{
		Frequency:    440,
		Amplitude:    0.5,
		SampleRate:   48000,
		BufferFrames: 480, // 10ms at 48kHz
	}
}

// DemoBackend stands in for real hardware. The synthetic variant emits a
// mono sine tone as s16 chunks from its own goroutine; the silent variant
// accepts start/stop but never delivers samples.
type DemoBackend struct {
	kind   BackendKind
	config DemoConfig
}

// NewSilentBackend creates the silent demo backend
func NewSilentBackend() *DemoBackend {
	return &DemoBackend{kind: BackendSilent, config: DefaultDemoConfig()}
}

// NewSyntheticBackend creates the tone-generating demo backend
func NewSyntheticBackend(config DemoConfig) *DemoBackend {
	defaults := DefaultDemoConfig()
	if config.SampleRate == 0 {
		config.SampleRate = defaults.SampleRate
	}
	if config.BufferFrames == 0 {
		config.BufferFrames = defaults.BufferFrames
	}
	if config.Frequency <= 0 {
		config.Frequency = defaults.Frequency
	}
	return &DemoBackend{kind: BackendSynthetic, config: config}
}

// Kind implements Backend
func (b *DemoBackend) Kind() BackendKind {
	return b.kind
}

func (b *DemoBackend) device() DeviceInfo {
	name := "Silent Demo"
	if b.kind == BackendSynthetic {
		name = fmt.Sprintf("Synthetic Demo (%.0f Hz)", b.config.Frequency)
	}
	return DeviceInfo{
		ID:          "demo-" + string(b.kind),
		Name:        name,
		IsDefault:   true,
		Formats:     []SampleFormat{FormatS16},
		MaxChannels: 1,
		SampleRate:  b.config.SampleRate,
	}
}

// Devices implements Directory
func (b *DemoBackend) Devices(ctx context.Context) ([]DeviceInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []DeviceInfo{b.device()}, nil
}

// Open implements Backend
func (b *DemoBackend) Open(ctx context.Context, req StreamRequest) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Device.ID != b.device().ID {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, req.Device.Name)
	}
	if req.Format != FormatUnknown && req.Format != FormatS16 {
		return nil, fmt.Errorf("%w: demo streams are s16 only", ErrFormatNegotiation)
	}

	return &demoStream{
		kind:   b.kind,
		config: b.config,
		onData: req.OnData,
		stop:   make(chan struct{}),
	}, nil
}

type demoStream struct {
	kind   BackendKind
	config DemoConfig
	onData func(RawChunk)

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	wg        sync.WaitGroup
}

func (s *demoStream) Format() StreamFormat {
	return StreamFormat{Format: FormatS16, SampleRate: s.config.SampleRate, Channels: 1}
}

func (s *demoStream) Start() error {
	if s.kind != BackendSynthetic || s.onData == nil {
		return nil
	}
	s.startOnce.Do(func() {
		s.wg.Add(1)
		go s.generate()
	})
	return nil
}

// generate paces chunks in real time until the stream is closed
func (s *demoStream) generate() {
	defer s.wg.Done()

	frames := int(s.config.BufferFrames)
	period := time.Duration(float64(time.Second) * float64(frames) / float64(s.config.SampleRate))
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	step := 2 * math.Pi * s.config.Frequency / float64(s.config.SampleRate)
	phase := 0.0
	samples := make([]float32, frames)

	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			for i := range samples {
				samples[i] = float32(s.config.Amplitude * math.Sin(phase))
				phase += step
			}
			phase = math.Mod(phase, 2*math.Pi)
			s.onData(RawChunk{
				Format:    FormatS16,
				Data:      EncodeS16(samples),
				Frames:    uint32(frames),
				Timestamp: now,
			})
		}
	}
}

func (s *demoStream) Close() error {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	s.wg.Wait()
	return nil
}
