package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.design/x/hotkey/mainthread"

	"github.com/emmett/audioscope/internal/app"
	"github.com/emmett/audioscope/internal/audio"
	"github.com/emmett/audioscope/internal/config"
	"github.com/emmett/audioscope/internal/input"
	"github.com/emmett/audioscope/internal/logging"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
	GitBranch = "unknown"
)

var (
	configFile        = flag.String("config", "", "Path to configuration file (default: ~/.audioscoperc or /etc/audioscope/config.yaml)")
	backend           = flag.String("backend", "", "Capture backend: device, system, silent, synthetic")
	audioDevice       = flag.String("device", "", "Audio input device name (use --list-devices to see available devices)")
	sampleFormat      = flag.String("sample-format", "", "Sample format override: f32, s16, u16")
	listDevices       = flag.Bool("list-devices", false, "List all available audio input devices")
	demo              = flag.Bool("demo", false, "Monitor the demo tone instead of a device")
	outputFormat      = flag.String("format", "console", "Output format: console, json, text")
	outputFile        = flag.String("output", "", "Output file (default: stdout)")
	interval          = flag.Duration("interval", 0, "Frame interval (default from config: 50ms)")
	frames            = flag.Int("frames", 0, "Stop after this many frames (0 = until Ctrl+C)")
	activityThreshold = flag.Float64("activity-threshold", 0, "Activity RMS threshold (0.001-0.1, lower=more sensitive)")
	toggle            = flag.Bool("toggle", false, "Start and stop capture with the global hotkey")
	hotkey            = flag.String("hotkey", "", "Hotkey for --toggle (default from config: Ctrl+Shift+Space)")
	logLevel          = flag.String("log-level", "", "Log level: debug, info, warn, error")
	showVersion       = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("Audioscope CLI v%s\n", Version)
		fmt.Printf("  Commit:  %s\n", GitCommit)
		fmt.Printf("  Branch:  %s\n", GitBranch)
		fmt.Printf("  Built:   %s\n", BuildTime)
		os.Exit(0)
	}

	cfg, err := config.LoadWithFallback(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to load config: %v\n", err)
		cfg = config.DefaultConfig()
	}
	applyFlags(cfg)

	fmt.Fprintf(os.Stderr, "Audioscope CLI v%s (commit: %s, branch: %s, built: %s)\n\n",
		Version, GitCommit, GitBranch, BuildTime)

	var runErr error
	if *toggle {
		// Global hotkeys must be registered from the main thread on macOS
		mainthread.Init(func() { runErr = run(cfg) })
	} else {
		runErr = run(cfg)
	}
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		os.Exit(1)
	}
}

// applyFlags lets explicitly set flags override the config file
func applyFlags(cfg *config.Config) {
	flagsSet := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		flagsSet[f.Name] = true
	})

	if flagsSet["backend"] {
		cfg.Audio.Backend = *backend
	}
	if flagsSet["device"] {
		cfg.Audio.Device = *audioDevice
	}
	if flagsSet["sample-format"] {
		cfg.Audio.Format = *sampleFormat
	}
	if flagsSet["interval"] && *interval > 0 {
		cfg.Snapshot.Interval = *interval
	}
	if flagsSet["activity-threshold"] && *activityThreshold > 0 {
		cfg.Activity.Threshold = *activityThreshold
	}
	if flagsSet["hotkey"] && *hotkey != "" {
		cfg.Hotkey = *hotkey
	}
	if flagsSet["log-level"] {
		cfg.Logging.Level = *logLevel
	}
}

func run(cfg *config.Config) error {
	logger, closeLog, err := logging.New(logging.Options{
		Level: cfg.Logging.Level,
		File:  cfg.Logging.File,
		JSON:  cfg.Logging.JSON,
	})
	if err != nil {
		return err
	}
	defer closeLog()

	// The console renderer owns the terminal; keep log noise down unless asked
	if cfg.Logging.Level == "info" && *outputFormat == "console" && *outputFile == "" {
		logger = logger.Level(zerolog.WarnLevel)
	}

	mgr, release, err := app.NewManager(cfg, nil, logger)
	if err != nil {
		return err
	}
	defer release()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *listDevices {
		return app.NewDeviceManager(mgr, os.Stdout).ListDevices(ctx)
	}

	format, err := audio.ParseSampleFormat(cfg.Audio.Format)
	if err != nil {
		return err
	}

	monitorConfig := app.MonitorConfig{
		Device:       cfg.Audio.Device,
		Format:       format,
		Demo:         *demo,
		OutputFormat: *outputFormat,
		OutputFile:   *outputFile,
		Interval:     cfg.Snapshot.Interval,
		Activity:     cfg.ActivityConfig(),
		Frames:       *frames,
	}

	if *toggle {
		return app.NewToggleMonitor(app.ToggleConfig{
			MonitorConfig: monitorConfig,
			Hotkey:        cfg.Hotkey,
			NewListener: func(onToggle func(bool)) app.HotkeyListener {
				return input.NewHotkeyManager(onToggle)
			},
		}, mgr).Run(ctx)
	}
	return app.NewMonitor(monitorConfig, mgr).Run(ctx)
}
