package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/emmett/audioscope/internal/audio"
	"github.com/emmett/audioscope/internal/capture"
	"github.com/emmett/audioscope/internal/output"
)

// shutdownTimeout bounds how long a monitor waits for its session to exit
const shutdownTimeout = 2 * time.Second

// MonitorConfig holds configuration for a monitoring session
type MonitorConfig struct {
	Device       string
	Format       audio.SampleFormat
	Demo         bool
	OutputFormat string
	OutputFile   string
	Interval     time.Duration
	Activity     audio.ActivityConfig

	// Frames stops the monitor after this many frames
	// 0 = until the context is cancelled
	Frames int

	// Writer receives frames when OutputFile is empty (default: os.Stdout)
	Writer io.Writer

	// StatusWriter receives status messages (default: os.Stderr)
	StatusWriter io.Writer
}

// Monitor polls the capture manager and renders frames until stopped
type Monitor struct {
	config MonitorConfig
	mgr    *capture.Manager
}

// NewMonitor creates a new Monitor instance
func NewMonitor(config MonitorConfig, mgr *capture.Manager) *Monitor {
	if config.Interval <= 0 {
		config.Interval = 50 * time.Millisecond
	}
	return &Monitor{config: config, mgr: mgr}
}

// Run starts capture and renders frames until ctx is cancelled, the frame
// limit is reached or the session stops on its own
func (m *Monitor) Run(ctx context.Context) error {
	sink, err := openSink(m.config)
	if err != nil {
		return err
	}
	defer sink.Close()

	h, err := startCapture(ctx, m.mgr, m.config)
	if err != nil {
		return fmt.Errorf("failed to start capture: %w", err)
	}
	sink.status.Info(h.Confirmation())
	sink.status.Info(fmt.Sprintf("Listening on %s (format: %s, sample rate: %d Hz, channels: %d)",
		h.Device, h.Format, h.SampleRate, h.Channels))
	sink.status.Info("Press Ctrl+C to stop.")

	defer func() {
		sink.status.Info(stopCapture(m.mgr))
	}()

	r := newFrameRenderer(m.mgr, sink.formatter, m.config.Activity)
	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		running, err := r.tick()
		if err != nil || !running {
			return err
		}
		if m.config.Frames > 0 && r.index >= m.config.Frames {
			return nil
		}
	}
}

func startCapture(ctx context.Context, mgr *capture.Manager, config MonitorConfig) (capture.Handle, error) {
	if config.Demo {
		return mgr.StartDemo(ctx)
	}
	return mgr.Start(ctx, config.Device, config.Format)
}

// stopCapture signals the session, waits for it to exit and returns the
// confirmation message
func stopCapture(mgr *capture.Manager) string {
	result := mgr.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := mgr.Wait(ctx); err != nil {
		return fmt.Sprintf("%s (session still exiting: %v)", result.Message(), err)
	}
	return result.Message()
}

// sink bundles the frame formatter and the status console
type sink struct {
	formatter output.Formatter
	status    *output.ConsoleOutput
	file      *os.File
}

func openSink(config MonitorConfig) (*sink, error) {
	writer := config.Writer
	if writer == nil {
		writer = os.Stdout
	}
	statusWriter := config.StatusWriter
	if statusWriter == nil {
		statusWriter = os.Stderr
	}

	s := &sink{}
	if config.OutputFile != "" {
		f, err := os.Create(config.OutputFile)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file: %w", err)
		}
		s.file = f
		writer = f
	}

	formatter, err := output.NewFormatter(config.OutputFormat, writer)
	if err != nil {
		if s.file != nil {
			s.file.Close()
		}
		return nil, err
	}
	s.formatter = formatter

	// Console frames and status share a terminal line discipline
	consoleMode := config.OutputFile == "" && (config.OutputFormat == "" || strings.EqualFold(config.OutputFormat, "console"))
	if consoleMode && config.StatusWriter == nil {
		statusWriter = writer
	}
	s.status = output.NewConsoleOutput(output.ConsoleConfig{
		ShowTimestamp: true,
		Writer:        statusWriter,
	})

	return s, nil
}

// Close flushes the formatter and closes the output file
func (s *sink) Close() error {
	s.formatter.Flush()
	err := s.formatter.Close()
	if s.file != nil {
		if cerr := s.file.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// frameRenderer turns polls into frames and activity events
type frameRenderer struct {
	mgr       *capture.Manager
	formatter output.Formatter
	detector  *audio.ActivityDetector
	index     int
}

func newFrameRenderer(mgr *capture.Manager, formatter output.Formatter, activity audio.ActivityConfig) *frameRenderer {
	return &frameRenderer{
		mgr:       mgr,
		formatter: formatter,
		detector:  audio.NewActivityDetector(activity),
	}
}

// tick renders one frame. It returns false once the session is no longer
// active, with the runtime error if the stream failed.
func (r *frameRenderer) tick() (bool, error) {
	st := r.mgr.Status()
	if !st.Active() {
		if st.LastError != nil {
			r.formatter.WriteEvent("capture", fmt.Sprintf("Capture stopped: %v", st.LastError))
			return false, fmt.Errorf("capture stopped: %w", st.LastError)
		}
		r.formatter.WriteEvent("capture", "Audio capture stopped")
		return false, nil
	}

	levels := r.mgr.Poll()
	active, started, ended := r.detector.Observe(audio.RMS(levels))
	if started {
		r.formatter.WriteEvent("activity", "Signal detected")
	}
	if ended {
		r.formatter.WriteEvent("activity", "Silence detected")
	}

	r.index++
	return true, r.formatter.WriteFrame(output.Frame{
		Index:     r.index,
		Timestamp: time.Now(),
		Levels:    levels,
		Peak:      output.Peak(levels),
		Active:    active,
	})
}

// reset clears activity state between sessions
func (r *frameRenderer) reset() {
	r.detector.Reset()
}
