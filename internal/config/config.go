package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/emmett/audioscope/internal/audio"
)

// Config represents the application configuration
type Config struct {
	// Audio settings
	Audio struct {
		Backend      string `yaml:"backend"`
		Device       string `yaml:"device"`
		Format       string `yaml:"format"`
		SampleRate   uint32 `yaml:"sample_rate"`
		Channels     uint32 `yaml:"channels"`
		BufferFrames uint32 `yaml:"buffer_frames"`
	} `yaml:"audio"`

	// Buffer settings
	Buffer struct {
		WindowSize     int     `yaml:"window_size"`
		HistorySeconds float64 `yaml:"history_seconds"`
		QueueSize      int     `yaml:"queue_size"`
	} `yaml:"buffer"`

	// Snapshot settings
	Snapshot struct {
		Length   int           `yaml:"length"`
		Mode     string        `yaml:"mode"`
		Interval time.Duration `yaml:"interval"`
	} `yaml:"snapshot"`

	// Lifecycle settings
	Lifecycle struct {
		StopTimeout time.Duration `yaml:"stop_timeout"`
	} `yaml:"lifecycle"`

	// Demo settings
	Demo struct {
		Frequency  float64 `yaml:"frequency"`
		Amplitude  float64 `yaml:"amplitude"`
		SampleRate uint32  `yaml:"sample_rate"`
	} `yaml:"demo"`

	// Activity detection settings for monitor mode
	Activity struct {
		Threshold     float64 `yaml:"threshold"`
		SignalChunks  int     `yaml:"signal_chunks"`
		SilenceChunks int     `yaml:"silence_chunks"`
	} `yaml:"activity"`

	// Logging settings
	Logging struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
		JSON  bool   `yaml:"json"`
	} `yaml:"logging"`

	// Server settings
	Server struct {
		Host        string `yaml:"host"`
		Port        int    `yaml:"port"`
		MetricsAddr string `yaml:"metrics_addr"`
	} `yaml:"server"`

	// MCP settings
	MCP struct {
		Name string `yaml:"name"`
	} `yaml:"mcp"`

	// Hotkey toggles capture in monitor mode
	Hotkey string `yaml:"hotkey"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Audio defaults
	cfg.Audio.Backend = string(audio.BackendDevice)
	cfg.Audio.Device = ""
	cfg.Audio.Format = ""

	// Buffer defaults
	cfg.Buffer.WindowSize = 2048
	cfg.Buffer.HistorySeconds = 5
	cfg.Buffer.QueueSize = audio.DefaultQueueSize

	// Snapshot defaults
	cfg.Snapshot.Length = 64
	cfg.Snapshot.Mode = audio.ModeAmplitude.String()
	cfg.Snapshot.Interval = 50 * time.Millisecond

	cfg.Lifecycle.StopTimeout = 2 * time.Second

	// Demo defaults
	demo := audio.DefaultDemoConfig()
	cfg.Demo.Frequency = demo.Frequency
	cfg.Demo.Amplitude = demo.Amplitude
	cfg.Demo.SampleRate = demo.SampleRate

	activity := audio.DefaultActivityConfig()
	cfg.Activity.Threshold = activity.Threshold
	cfg.Activity.SignalChunks = activity.SignalChunks
	cfg.Activity.SilenceChunks = activity.SilenceChunks

	// Logging defaults
	cfg.Logging.Level = "info"

	// Server defaults
	cfg.Server.Host = "localhost"
	cfg.Server.Port = 50051
	cfg.Server.MetricsAddr = ":9090"

	cfg.MCP.Name = "audioscope"

	cfg.Hotkey = "Ctrl+Shift+Space"

	return cfg
}

// Load loads configuration from file
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return cfg, nil
}

// LoadWithFallback attempts to load configuration from multiple locations
// Priority: explicit path > ~/.audioscoperc > /etc/audioscope/config.yaml
func LoadWithFallback(explicitPath string) (*Config, error) {
	if explicitPath != "" {
		return Load(explicitPath)
	}

	for _, path := range searchPaths() {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		cfg, err := Load(path)
		if err == nil {
			return cfg, nil
		}
	}

	// No config file found, return defaults
	return DefaultConfig(), nil
}

func searchPaths() []string {
	var paths []string
	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(homeDir, ".audioscoperc"))
	}
	return append(paths, "/etc/audioscope/config.yaml")
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks that enumerated values parse and sizes are usable
func (c *Config) Validate() error {
	if _, err := audio.ParseBackendKind(c.Audio.Backend); err != nil {
		return err
	}
	if _, err := audio.ParseSampleFormat(c.Audio.Format); err != nil {
		return fmt.Errorf("audio.format: %w", err)
	}
	if _, err := audio.ParseSnapshotMode(c.Snapshot.Mode); err != nil {
		return err
	}
	if c.Buffer.WindowSize < 0 || c.Buffer.QueueSize < 0 || c.Snapshot.Length < 0 {
		return fmt.Errorf("buffer sizes must not be negative")
	}
	if c.Buffer.HistorySeconds < 0 {
		return fmt.Errorf("buffer.history_seconds must not be negative")
	}
	if c.Activity.Threshold < 0 || c.Activity.Threshold > 1 {
		return fmt.Errorf("activity.threshold must be between 0 and 1, got %v", c.Activity.Threshold)
	}
	if c.Demo.Amplitude < 0 || c.Demo.Amplitude > 1 {
		return fmt.Errorf("demo.amplitude must be between 0 and 1, got %v", c.Demo.Amplitude)
	}
	return nil
}

// ManagerOptions translates the configuration into capture options. Backends,
// metrics and the logger are left for the caller to set.
func (c *Config) ManagerOptions() (CaptureOptions, error) {
	if err := c.Validate(); err != nil {
		return CaptureOptions{}, err
	}
	format, _ := audio.ParseSampleFormat(c.Audio.Format)
	mode, _ := audio.ParseSnapshotMode(c.Snapshot.Mode)
	kind, _ := audio.ParseBackendKind(c.Audio.Backend)

	return CaptureOptions{
		Backend: kind,
		Device:  c.Audio.Device,
		Format:  format,
		Capture: audio.CaptureConfig{
			SampleRate:   c.Audio.SampleRate,
			Channels:     c.Audio.Channels,
			BufferFrames: c.Audio.BufferFrames,
		},
		Demo: audio.DemoConfig{
			Frequency:  c.Demo.Frequency,
			Amplitude:  c.Demo.Amplitude,
			SampleRate: c.Demo.SampleRate,
		},
		WindowSize:     c.Buffer.WindowSize,
		HistorySeconds: c.Buffer.HistorySeconds,
		QueueSize:      c.Buffer.QueueSize,
		SnapshotLength: c.Snapshot.Length,
		SnapshotMode:   mode,
		StopTimeout:    c.Lifecycle.StopTimeout,
	}, nil
}

// CaptureOptions is the parsed form of the audio, buffer, snapshot,
// lifecycle and demo sections
type CaptureOptions struct {
	Backend        audio.BackendKind
	Device         string
	Format         audio.SampleFormat
	Capture        audio.CaptureConfig
	Demo           audio.DemoConfig
	WindowSize     int
	HistorySeconds float64
	QueueSize      int
	SnapshotLength int
	SnapshotMode   audio.SnapshotMode
	StopTimeout    time.Duration
}

// ActivityConfig returns the activity detection settings
func (c *Config) ActivityConfig() audio.ActivityConfig {
	return audio.ActivityConfig{
		Threshold:     c.Activity.Threshold,
		SignalChunks:  c.Activity.SignalChunks,
		SilenceChunks: c.Activity.SilenceChunks,
	}
}
