package audio

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/rs/zerolog"
)

// MalgoBackend captures from hardware input devices through miniaudio
type MalgoBackend struct {
	mu           sync.Mutex
	malgoContext *malgo.AllocatedContext
	log          zerolog.Logger
}

// NewMalgoBackend creates a backend; the miniaudio context is initialized
// lazily on first use
func NewMalgoBackend(logger zerolog.Logger) *MalgoBackend {
	return &MalgoBackend{log: logger}
}

// Kind implements Backend
func (b *MalgoBackend) Kind() BackendKind {
	return BackendDevice
}

func (b *MalgoBackend) context() (*malgo.AllocatedContext, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.malgoContext != nil {
		return b.malgoContext, nil
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		b.log.Debug().Str("source", "miniaudio").Msg(strings.TrimSpace(message))
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to initialize malgo context: %v", ErrEnumeration, err)
	}
	b.malgoContext = ctx
	return ctx, nil
}

// Close releases the miniaudio context
func (b *MalgoBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.malgoContext == nil {
		return nil
	}
	err := b.malgoContext.Uninit()
	b.malgoContext.Free()
	b.malgoContext = nil
	return err
}

// Devices implements Directory
func (b *MalgoBackend) Devices(ctx context.Context) ([]DeviceInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mctx, err := b.context()
	if err != nil {
		return nil, err
	}

	infos, err := mctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEnumeration, err)
	}

	devices := make([]DeviceInfo, 0, len(infos))
	for i, info := range infos {
		device := DeviceInfo{
			ID:        fmt.Sprintf("capture-%d", i),
			Name:      info.Name(),
			IsDefault: info.IsDefault > 0,
			native:    info.ID,
		}

		// Native formats are only filled in by a detailed query
		detail, err := mctx.DeviceInfo(malgo.Capture, info.ID, malgo.Shared)
		if err != nil {
			b.log.Debug().Err(err).Str("device", device.Name).Msg("Detailed device query failed")
		} else {
			describeFormats(&device, detail)
		}

		devices = append(devices, device)
	}

	return devices, nil
}

func describeFormats(device *DeviceInfo, info malgo.DeviceInfo) {
	seen := make(map[SampleFormat]bool)
	for i := 0; i < int(info.FormatCount) && i < len(info.Formats); i++ {
		df := info.Formats[i]
		f := fromMalgoFormat(df.Format)
		if f != FormatUnknown && !seen[f] {
			seen[f] = true
			device.Formats = append(device.Formats, f)
		}
		if df.Channels > device.MaxChannels {
			device.MaxChannels = df.Channels
		}
		if device.SampleRate == 0 && df.SampleRate > 0 {
			device.SampleRate = df.SampleRate
		}
	}
}

func fromMalgoFormat(f malgo.FormatType) SampleFormat {
	switch f {
	case malgo.FormatF32:
		return FormatF32
	case malgo.FormatS16:
		return FormatS16
	case malgo.FormatUnknown:
		return FormatUnknown
	default:
		return FormatOther
	}
}

func toMalgoFormat(f SampleFormat) (malgo.FormatType, error) {
	switch f {
	case FormatUnknown:
		return malgo.FormatUnknown, nil
	case FormatF32:
		return malgo.FormatF32, nil
	case FormatS16:
		return malgo.FormatS16, nil
	default:
		return malgo.FormatUnknown, fmt.Errorf("%w: miniaudio does not offer %s", ErrFormatNegotiation, f)
	}
}

// Open implements Backend. Without a hint the device's native format is
// used; a native format the ingest path cannot handle is converted to f32
// by miniaudio.
func (b *MalgoBackend) Open(ctx context.Context, req StreamRequest) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id, ok := req.Device.native.(malgo.DeviceID)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a hardware device", ErrDeviceNotFound, req.Device.Name)
	}

	mctx, err := b.context()
	if err != nil {
		return nil, err
	}

	format := req.Format
	if format == FormatUnknown {
		format = req.Device.DefaultFormat()
	}

	s := &malgoStream{onData: req.OnData, onError: req.OnError, log: b.log}

	device, err := s.init(mctx, &id, format, req.Config)
	if err != nil {
		return nil, err
	}

	native := fromMalgoFormat(device.CaptureFormat())
	if !native.Supported() {
		if req.Format != FormatUnknown {
			device.Uninit()
			return nil, fmt.Errorf("%w: device delivered %s for requested %s", ErrFormatNegotiation, native, req.Format)
		}
		b.log.Debug().Str("device", req.Device.Name).Msg("Native format unsupported, requesting f32 conversion")
		device.Uninit()
		device, err = s.init(mctx, &id, FormatF32, req.Config)
		if err != nil {
			return nil, err
		}
		native = fromMalgoFormat(device.CaptureFormat())
		if !native.Supported() {
			device.Uninit()
			return nil, fmt.Errorf("%w: device delivered %s", ErrFormatNegotiation, native)
		}
	}

	s.device = device
	s.format = StreamFormat{
		Format:     native,
		SampleRate: device.SampleRate(),
		Channels:   device.CaptureChannels(),
	}

	return s, nil
}

// malgoStream implements Stream on a miniaudio device
type malgoStream struct {
	device    *malgo.Device
	format    StreamFormat
	onData    func(RawChunk)
	onError   func(error)
	closing   atomic.Bool
	closeOnce sync.Once
	log       zerolog.Logger
}

func (s *malgoStream) init(mctx *malgo.AllocatedContext, id *malgo.DeviceID, format SampleFormat, cfg CaptureConfig) (*malgo.Device, error) {
	mf, err := toMalgoFormat(format)
	if err != nil {
		return nil, err
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.DeviceID = id.Pointer()
	deviceConfig.Capture.Format = mf
	deviceConfig.Capture.Channels = cfg.Channels
	deviceConfig.SampleRate = cfg.SampleRate
	deviceConfig.PeriodSizeInFrames = cfg.BufferFrames
	deviceConfig.Alsa.NoMMap = 1

	callbacks := malgo.DeviceCallbacks{
		Data: s.onFrames,
		Stop: s.onStop,
	}

	device, err := malgo.InitDevice(mctx.Context, deviceConfig, callbacks)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to initialize device: %v", ErrFormatNegotiation, err)
	}
	return device, nil
}

// onFrames runs on the miniaudio thread
func (s *malgoStream) onFrames(_, pInputSamples []byte, framecount uint32) {
	if s.closing.Load() || s.onData == nil {
		return
	}
	s.onData(RawChunk{
		Format:    s.format.Format,
		Data:      pInputSamples,
		Frames:    framecount,
		Timestamp: time.Now(),
	})
}

// onStop fires whenever the device stops, including on Close
func (s *malgoStream) onStop() {
	if s.closing.Load() {
		return
	}
	if s.onError != nil {
		s.onError(fmt.Errorf("%w: device stopped unexpectedly", ErrStreamRuntime))
	}
}

// Format implements Stream
func (s *malgoStream) Format() StreamFormat {
	return s.format
}

// Start implements Stream
func (s *malgoStream) Start() error {
	if err := s.device.Start(); err != nil {
		return fmt.Errorf("%w: %v", ErrStreamStart, err)
	}
	return nil
}

// Close implements Stream
func (s *malgoStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closing.Store(true)
		if s.device.IsStarted() {
			if stopErr := s.device.Stop(); stopErr != nil {
				err = fmt.Errorf("failed to stop device: %w", stopErr)
			}
		}
		s.device.Uninit()
	})
	return err
}
