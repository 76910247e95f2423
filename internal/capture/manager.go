// Package capture owns the capture lifecycle: it starts and stops sessions
// against a backend and merges their samples into the shared buffers that
// pollers read.
package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/emmett/audioscope/internal/audio"
	"github.com/emmett/audioscope/internal/metrics"
)

// ErrStartAborted is returned by Start when a stop request or context
// cancellation arrives while the session is still starting
var ErrStartAborted = errors.New("capture start aborted")

// rmsLogThreshold is the level above which chunk loudness is logged
const rmsLogThreshold = 0.001

// Options configures a Manager
type Options struct {
	// Backend serves Start requests
	Backend audio.Backend

	// Demo serves StartDemo requests (default: synthetic tone)
	Demo audio.Backend

	// Capture holds the stream parameters requested from the backend
	Capture audio.CaptureConfig

	// WindowSize is the width of the visualization window in samples
	WindowSize int

	// HistorySeconds bounds the accumulation buffer in seconds of audio
	HistorySeconds float64

	// QueueSize is the number of chunks buffered between the backend
	// callback and the session consumer
	QueueSize int

	// SnapshotLength is the number of values returned by Poll
	SnapshotLength int

	// SnapshotMode selects amplitude or waveform values for Poll
	SnapshotMode audio.SnapshotMode

	// StopTimeout bounds how long Start waits for a previous session to exit
	StopTimeout time.Duration

	Metrics *metrics.Metrics
	Logger  zerolog.Logger
}

// DefaultOptions returns options with the visualization defaults
func DefaultOptions() Options {
	return Options{
		Capture:        audio.DefaultConfig(),
		WindowSize:     2048,
		HistorySeconds: 5,
		QueueSize:      audio.DefaultQueueSize,
		SnapshotLength: 64,
		SnapshotMode:   audio.ModeAmplitude,
		StopTimeout:    2 * time.Second,
		Logger:         zerolog.Nop(),
	}
}

// Manager coordinates capture sessions. At most one session is running at
// a time; the buffers outlive sessions and are cleared on every start.
type Manager struct {
	opts    Options
	log     zerolog.Logger
	diag    zerolog.Logger
	metrics *metrics.Metrics

	window  *audio.SampleBuffer // visualization role
	history *audio.SampleBuffer // accumulation role

	startMu sync.Mutex // serializes Start and StartDemo

	mu      sync.Mutex // guards state, current and lastErr
	state   State
	current *session
	lastErr error
}

// NewManager creates an idle manager
func NewManager(opts Options) (*Manager, error) {
	if opts.Backend == nil {
		return nil, errors.New("capture backend is required")
	}

	defaults := DefaultOptions()
	if opts.Demo == nil {
		opts.Demo = audio.NewSyntheticBackend(audio.DefaultDemoConfig())
	}
	if opts.WindowSize <= 0 {
		opts.WindowSize = defaults.WindowSize
	}
	if opts.HistorySeconds <= 0 {
		opts.HistorySeconds = defaults.HistorySeconds
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaults.QueueSize
	}
	if opts.SnapshotLength <= 0 {
		opts.SnapshotLength = defaults.SnapshotLength
	}
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = defaults.StopTimeout
	}

	logger := opts.Logger.With().Str("component", "capture").Logger()

	m := &Manager{
		opts:    opts,
		log:     logger,
		diag:    logger.Sample(&zerolog.BasicSampler{N: 50}),
		metrics: opts.Metrics,
		window:  audio.NewSampleBuffer(opts.WindowSize, audio.OverwriteInPlace),
		state:   StateIdle,
	}
	m.history = audio.NewSampleBuffer(m.historyCapacity(audio.StreamFormat{}), audio.EvictOldest)

	return m, nil
}

func (m *Manager) historyCapacity(f audio.StreamFormat) int {
	rate := f.SampleRate
	if rate == 0 {
		rate = 44100
	}
	channels := f.Channels
	if channels == 0 {
		channels = 1
	}
	return max(int(m.opts.HistorySeconds*float64(rate)*float64(channels)), 1)
}

// Devices enumerates the sources of the configured backend
func (m *Manager) Devices(ctx context.Context) ([]audio.DeviceInfo, error) {
	return audio.ListDevices(ctx, m.opts.Backend)
}

// Start stops any running session, clears the buffers and starts capturing
// from the named device. hint overrides the device's default format.
func (m *Manager) Start(ctx context.Context, device string, hint audio.SampleFormat) (Handle, error) {
	return m.start(ctx, m.opts.Backend, false, device, hint)
}

// StartDemo starts a session on the demo backend
func (m *Manager) StartDemo(ctx context.Context) (Handle, error) {
	return m.start(ctx, m.opts.Demo, true, "", audio.FormatUnknown)
}

// start publishes the new session as Starting before anything can block,
// so a Stop issued at any point of the start sequence aborts it.
func (m *Manager) start(ctx context.Context, backend audio.Backend, demo bool, name string, hint audio.SampleFormat) (Handle, error) {
	m.startMu.Lock()
	defer m.startMu.Unlock()

	ingestor := audio.NewIngestor(m.opts.QueueSize, m.metrics, m.log)
	s := newSession(backend.Kind(), demo, ingestor)

	m.mu.Lock()
	prev := m.current
	live := m.state == StateRunning || m.state == StateStopping
	m.current = s
	m.state = StateStarting
	m.lastErr = nil
	m.mu.Unlock()

	if err := m.stopPrevious(ctx, prev, live, s); err != nil {
		return Handle{}, m.abort(s, nil, err)
	}

	m.window.Clear()
	m.history.Clear()
	m.reportFill()

	devices, err := backend.Devices(ctx)
	if err != nil {
		return Handle{}, m.abort(s, nil, err)
	}
	device, err := audio.FindDevice(devices, name)
	if err != nil {
		return Handle{}, m.abort(s, nil, err)
	}

	m.mu.Lock()
	s.handle.Device = device.Name
	m.mu.Unlock()

	if err := m.checkAborted(ctx, s); err != nil {
		return Handle{}, m.abort(s, nil, err)
	}

	m.log.Debug().
		Str("session", s.handle.ID.String()).
		Str("device", device.Name).
		Str("backend", string(backend.Kind())).
		Str("hint", hint.String()).
		Msg("Starting capture session")

	stream, err := backend.Open(ctx, audio.StreamRequest{
		Device:  device,
		Format:  hint,
		Config:  m.opts.Capture,
		OnData:  ingestor.Handle,
		OnError: s.fail,
	})
	if err != nil {
		if ctx.Err() != nil {
			err = abortedError(ctx)
		}
		return Handle{}, m.abort(s, nil, err)
	}

	if err := m.checkAborted(ctx, s); err != nil {
		return Handle{}, m.abort(s, stream, err)
	}

	format := stream.Format()
	m.history.Reset(m.historyCapacity(format))

	if err := stream.Start(); err != nil {
		return Handle{}, m.abort(s, stream, err)
	}

	m.mu.Lock()
	if err := m.checkAborted(ctx, s); err != nil {
		m.mu.Unlock()
		return Handle{}, m.abort(s, stream, err)
	}
	s.handle.Format = format.Format
	s.handle.SampleRate = format.SampleRate
	s.handle.Channels = format.Channels
	s.handle.StartedAt = time.Now()
	m.state = StateRunning
	handle := s.handle
	m.mu.Unlock()

	m.metrics.SessionStarted(string(handle.Backend))
	m.log.Info().
		Str("session", handle.ID.String()).
		Str("device", handle.Device).
		Str("format", handle.Format.String()).
		Uint32("sample_rate", handle.SampleRate).
		Uint32("channels", handle.Channels).
		Msg("Audio capture started")

	go m.run(s, stream)

	return handle, nil
}

func (m *Manager) reportFill() {
	m.metrics.SetBufferFill("window", m.window.Len())
	m.metrics.SetBufferFill("history", m.history.Len())
}

func abortedError(ctx context.Context) error {
	return fmt.Errorf("%w: %v", ErrStartAborted, ctx.Err())
}

func (m *Manager) checkAborted(ctx context.Context, s *session) error {
	if s.stopRequested() {
		return ErrStartAborted
	}
	if ctx.Err() != nil {
		return abortedError(ctx)
	}
	return nil
}

// abort tears down a session that never reached Running
func (m *Manager) abort(s *session, stream audio.Stream, err error) error {
	if stream != nil {
		if closeErr := stream.Close(); closeErr != nil {
			m.log.Warn().Err(closeErr).Msg("Failed to release aborted stream")
		}
	}

	m.mu.Lock()
	if m.current == s {
		m.current = nil
		m.state = StateStopped
	}
	m.mu.Unlock()

	m.window.Clear()
	m.history.Clear()
	m.reportFill()
	close(s.done)

	m.metrics.SessionError(errorKind(err))
	m.log.Warn().Err(err).Str("device", s.handle.Device).Msg("Audio capture failed to start")

	return err
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrStartAborted):
		return "aborted"
	case errors.Is(err, audio.ErrDeviceNotFound):
		return "device_not_found"
	case errors.Is(err, audio.ErrFormatNegotiation):
		return "negotiation"
	case errors.Is(err, audio.ErrStreamStart):
		return "stream_start"
	case errors.Is(err, audio.ErrStreamRuntime):
		return "runtime"
	case errors.Is(err, audio.ErrEnumeration):
		return "enumeration"
	default:
		return "other"
	}
}

// run is the session's consumer: it merges normalized chunks into the
// buffers until the stop signal or a stream error arrives
func (m *Manager) run(s *session, stream audio.Stream) {
	var runErr error
	defer func() {
		if err := stream.Close(); err != nil {
			m.log.Warn().Err(err).Str("session", s.handle.ID.String()).Msg("Failed to release stream")
		}
		m.finish(s, runErr)
		close(s.done)
	}()

	chunks := s.ingestor.Chunks()
	for {
		select {
		case <-s.stop:
			return
		case err := <-s.failed:
			runErr = err
			return
		case chunk := <-chunks:
			if s.retired.Load() {
				continue
			}
			m.window.Write(chunk.Samples)
			m.history.Write(chunk.Samples)
			m.reportFill()

			if chunk.RMS > rmsLogThreshold {
				m.diag.Debug().Float64("rms", chunk.RMS).Msg("Audio level")
			}
		}
	}
}

func (m *Manager) finish(s *session, err error) {
	if err != nil {
		m.metrics.SessionError(errorKind(err))
		m.log.Error().Err(err).Str("session", s.handle.ID.String()).Msg("Audio stream error, capture stopped")
	} else {
		m.log.Info().Str("session", s.handle.ID.String()).Str("device", s.handle.Device).Msg("Audio capture stopped")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != s {
		return
	}
	m.state = StateStopped
	if err != nil {
		m.lastErr = err
	}
	m.metrics.SessionEnded()
}

// stopPrevious signals the session being replaced and waits for it to
// exit. A session that outlives StopTimeout, or is still running when next
// is stopped or ctx is done, is retired so it can no longer write. live
// reports whether prev was still counted as running at handoff.
func (m *Manager) stopPrevious(ctx context.Context, prev *session, live bool, next *session) error {
	if prev == nil {
		return nil
	}
	prev.signal()
	if live {
		defer m.metrics.SessionEnded()
	}

	timer := time.NewTimer(m.opts.StopTimeout)
	defer timer.Stop()

	var err error
	select {
	case <-prev.done:
	case <-timer.C:
		prev.retired.Store(true)
		m.log.Warn().
			Str("session", prev.handle.ID.String()).
			Dur("timeout", m.opts.StopTimeout).
			Msg("Previous capture session did not exit in time, retiring it")
	case <-next.stop:
		prev.retired.Store(true)
		err = ErrStartAborted
	case <-ctx.Done():
		prev.retired.Store(true)
		err = abortedError(ctx)
	}
	return err
}

// Stop requests the active session to stop and returns without waiting
// for it to exit. Stopping when nothing runs is not an error.
func (m *Manager) Stop() StopResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.current
	if s == nil {
		m.metrics.StopRequested("no_session")
		return StopResult{Outcome: StopNoSession}
	}

	result := StopResult{Session: s.handle.ID}
	if m.state == StateStopped || !s.signal() {
		result.Outcome = StopAlreadyStopped
		m.metrics.StopRequested("already_stopped")
		return result
	}

	if m.state == StateRunning {
		m.state = StateStopping
	}
	result.Outcome = StopSignalled
	m.metrics.StopRequested("signalled")
	m.log.Info().Str("session", s.handle.ID.String()).Msg("Audio capture stop signal sent")

	return result
}

// Wait blocks until the current session has fully exited or ctx is done
func (m *Manager) Wait(ctx context.Context) error {
	m.mu.Lock()
	s := m.current
	m.mu.Unlock()

	if s == nil {
		return nil
	}

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the current session and waits for it to exit
func (m *Manager) Close(ctx context.Context) error {
	m.Stop()
	return m.Wait(ctx)
}

// Status reports the lifecycle state of the manager
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := Status{State: m.state, LastError: m.lastErr}
	if m.current != nil {
		h := m.current.handle
		st.Session = &h
		st.Ingest = m.current.ingestor.Stats()
	}
	return st
}
