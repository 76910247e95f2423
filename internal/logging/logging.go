package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options selects where and how log lines are written
type Options struct {
	Level string // zerolog level name, default info
	File  string // "" disables the file sink, "auto" uses the platform state dir
	JSON  bool   // emit JSON on stderr instead of the console format
}

// New creates a zerolog logger writing to stderr and optionally a file.
// stdout is left alone so it can carry protocol traffic. The returned close
// function releases the file sink.
func New(opts Options) (zerolog.Logger, func() error, error) {
	level := zerolog.InfoLevel
	if opts.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}

	var console io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	if opts.JSON {
		console = os.Stderr
	}

	closer := func() error { return nil }
	writers := []io.Writer{console}

	if opts.File != "" {
		path := opts.File
		if path == "auto" {
			path = DefaultLogPath()
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		logFile, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("failed to open log file: %w", err)
		}
		writers = append(writers, logFile)
		closer = logFile.Close
	}

	multi := zerolog.MultiLevelWriter(writers...)
	logger := zerolog.New(multi).Level(level).With().Timestamp().Logger()
	if level <= zerolog.DebugLevel {
		logger = logger.With().Caller().Logger()
	}

	return logger, closer, nil
}

// DefaultLogPath returns the platform-specific log file path
func DefaultLogPath() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Logs"
	case "windows":
		base = os.Getenv("LOCALAPPDATA")
	default:
		if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.local/state"
		}
	}

	return filepath.Join(base, "audioscope", "audioscope.log")
}
