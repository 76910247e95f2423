package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/gen2brain/malgo"
	goaudio "github.com/go-audio/audio"
	"github.com/rs/zerolog"
)

// LoopbackSource is a FrameSource backed by a miniaudio loopback device.
// miniaudio only implements loopback on WASAPI, so Start fails elsewhere.
type LoopbackSource struct {
	format goaudio.Format
	log    zerolog.Logger

	mu     sync.Mutex
	mctx   *malgo.AllocatedContext
	device *malgo.Device
}

// NewLoopbackSource creates an idle loopback source delivering frames in
// the given format
func NewLoopbackSource(format goaudio.Format, logger zerolog.Logger) *LoopbackSource {
	if format.SampleRate <= 0 {
		format.SampleRate = 48000
	}
	if format.NumChannels <= 0 {
		format.NumChannels = 2
	}
	return &LoopbackSource{format: format, log: logger}
}

// Format returns the frame format delivered by the source
func (l *LoopbackSource) Format() goaudio.Format {
	return l.format
}

// Start implements FrameSource
func (l *LoopbackSource) Start(deliver func(*goaudio.Float32Buffer)) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.device != nil {
		return ErrBridgeBusy
	}

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		l.log.Debug().Str("source", "miniaudio").Msg(strings.TrimSpace(message))
	})
	if err != nil {
		return fmt.Errorf("failed to initialize malgo context: %w", err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Loopback)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = uint32(l.format.NumChannels)
	deviceConfig.SampleRate = uint32(l.format.SampleRate)

	format := l.format
	callbacks := malgo.DeviceCallbacks{
		Data: func(_, pInputSamples []byte, _ uint32) {
			n := len(pInputSamples) / 4
			if n == 0 {
				return
			}
			data := make([]float32, n)
			for i := range data {
				data[i] = math.Float32frombits(binary.LittleEndian.Uint32(pInputSamples[i*4:]))
			}
			deliver(&goaudio.Float32Buffer{Format: &format, Data: data, SourceBitDepth: 32})
		},
	}

	device, err := malgo.InitDevice(mctx.Context, deviceConfig, callbacks)
	if err != nil {
		_ = mctx.Uninit()
		mctx.Free()
		return fmt.Errorf("loopback capture unavailable: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		_ = mctx.Uninit()
		mctx.Free()
		return fmt.Errorf("failed to start loopback device: %w", err)
	}

	l.mctx = mctx
	l.device = device
	return nil
}

// Stop implements FrameSource
func (l *LoopbackSource) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.device == nil {
		return nil
	}

	var err error
	if l.device.IsStarted() {
		err = l.device.Stop()
	}
	l.device.Uninit()
	l.device = nil

	if uninitErr := l.mctx.Uninit(); uninitErr != nil && err == nil {
		err = uninitErr
	}
	l.mctx.Free()
	l.mctx = nil

	return err
}
