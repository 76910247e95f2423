package app

import (
	"fmt"

	goaudio "github.com/go-audio/audio"
	"github.com/rs/zerolog"

	"github.com/emmett/audioscope/internal/audio"
	"github.com/emmett/audioscope/internal/capture"
	"github.com/emmett/audioscope/internal/config"
	"github.com/emmett/audioscope/internal/metrics"
)

// NewBackend returns the capture backend selected by opts and a function
// releasing its resources
func NewBackend(opts config.CaptureOptions, logger zerolog.Logger) (audio.Backend, func() error, error) {
	noop := func() error { return nil }

	switch opts.Backend {
	case audio.BackendDevice, "":
		b := audio.NewMalgoBackend(logger.With().Str("component", "malgo").Logger())
		return b, b.Close, nil
	case audio.BackendSystem:
		format := goaudio.Format{
			SampleRate:  int(opts.Capture.SampleRate),
			NumChannels: int(opts.Capture.Channels),
		}
		src := audio.NewLoopbackSource(format, logger.With().Str("component", "loopback").Logger())
		return audio.NewSystemAudioBackend(src, src.Format()), noop, nil
	case audio.BackendSilent:
		return audio.NewSilentBackend(), noop, nil
	case audio.BackendSynthetic:
		return audio.NewSyntheticBackend(opts.Demo), noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown capture backend: %s", opts.Backend)
	}
}

// NewManager builds the capture manager described by cfg. The returned
// function releases the backend and must be called after the manager is
// closed.
func NewManager(cfg *config.Config, m *metrics.Metrics, logger zerolog.Logger) (*capture.Manager, func() error, error) {
	opts, err := cfg.ManagerOptions()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	backend, release, err := NewBackend(opts, logger)
	if err != nil {
		return nil, nil, err
	}

	mgr, err := capture.NewManager(capture.Options{
		Backend:        backend,
		Demo:           audio.NewSyntheticBackend(opts.Demo),
		Capture:        opts.Capture,
		WindowSize:     opts.WindowSize,
		HistorySeconds: opts.HistorySeconds,
		QueueSize:      opts.QueueSize,
		SnapshotLength: opts.SnapshotLength,
		SnapshotMode:   opts.SnapshotMode,
		StopTimeout:    opts.StopTimeout,
		Metrics:        m,
		Logger:         logger,
	})
	if err != nil {
		release()
		return nil, nil, err
	}
	return mgr, release, nil
}
