package app

import (
	"context"
	"fmt"
	"time"

	"github.com/emmett/audioscope/internal/audio"
	"github.com/emmett/audioscope/internal/capture"
)

// HotkeyListener reports global hotkey presses. Each press flips the
// active state passed to the toggle callback.
type HotkeyListener interface {
	Start(ctx context.Context, hotkey string) error
	Stop()
	SetActive(active bool)
}

// ToggleConfig holds configuration for hotkey toggle mode
type ToggleConfig struct {
	MonitorConfig
	Hotkey string

	// NewListener builds the hotkey listener. The hotkey package needs a
	// display on Linux, so only the CLI links it in.
	NewListener func(onToggle func(active bool)) HotkeyListener
}

// ToggleMonitor starts and stops capture on a global hotkey and renders
// frames while capture runs
type ToggleMonitor struct {
	config    ToggleConfig
	mgr       *capture.Manager
	listener  HotkeyListener
	sink      *sink
	renderer  *frameRenderer
	capturing bool
}

// NewToggleMonitor creates a new ToggleMonitor
func NewToggleMonitor(config ToggleConfig, mgr *capture.Manager) *ToggleMonitor {
	if config.Interval <= 0 {
		config.Interval = 50 * time.Millisecond
	}
	return &ToggleMonitor{config: config, mgr: mgr}
}

// Run registers the hotkey and serves toggles until ctx is cancelled
func (t *ToggleMonitor) Run(ctx context.Context) error {
	if t.config.NewListener == nil {
		return fmt.Errorf("toggle mode needs a hotkey listener")
	}
	var err error
	t.sink, err = openSink(t.config.MonitorConfig)
	if err != nil {
		return err
	}
	defer t.sink.Close()
	t.renderer = newFrameRenderer(t.mgr, t.sink.formatter, t.config.Activity)

	toggleChan := make(chan bool, 10)
	t.listener = t.config.NewListener(func(active bool) {
		toggleChan <- active
	})
	if err := t.listener.Start(ctx, t.config.Hotkey); err != nil {
		return fmt.Errorf("failed to start hotkey listener: %w", err)
	}
	defer t.listener.Stop()

	t.sink.status.Info(fmt.Sprintf("Toggle mode. Press %s to start or stop capture.", t.config.Hotkey))
	t.sink.status.Info("Press Ctrl+C to exit.")

	ticker := time.NewTicker(t.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if t.capturing {
				t.stop()
			}
			return nil

		case active := <-toggleChan:
			t.toggle(ctx, active)

		case <-ticker.C:
			t.render()
		}
	}
}

// toggle applies one hotkey state change
func (t *ToggleMonitor) toggle(ctx context.Context, active bool) {
	if !active {
		if t.capturing {
			t.stop()
		}
		return
	}

	h, err := startCapture(ctx, t.mgr, t.config.MonitorConfig)
	if err != nil {
		t.sink.status.Error(fmt.Sprintf("Failed to start capture: %v", err))
		t.setActive(false)
		return
	}
	t.capturing = true
	t.renderer.reset()
	t.sink.status.Info(h.Confirmation())
}

// render draws a frame while capturing and notices sessions that ended
// on their own
func (t *ToggleMonitor) render() {
	if !t.capturing {
		return
	}
	running, err := t.renderer.tick()
	if running {
		if err != nil {
			t.sink.status.Error(fmt.Sprintf("Output error: %v", err))
		}
		return
	}

	t.capturing = false
	t.setActive(false)
	if err != nil {
		t.sink.status.Error(err.Error())
	}
	t.summarize()
}

func (t *ToggleMonitor) stop() {
	t.capturing = false
	t.sink.formatter.Flush()
	t.sink.status.Info(stopCapture(t.mgr))
	t.summarize()
}

// summarize reports how much audio the history buffer holds
func (t *ToggleMonitor) summarize() {
	samples := t.mgr.Snapshot()
	if len(samples) == 0 {
		t.sink.status.Info("No audio captured")
		return
	}
	seconds := 0.0
	if st := t.mgr.Status(); st.Session != nil && st.Session.SampleRate > 0 {
		channels := max(st.Session.Channels, 1)
		seconds = float64(len(samples)) / float64(st.Session.SampleRate*channels)
	}
	t.sink.status.Info(fmt.Sprintf("Captured %.1fs of audio (rms: %.3f)", seconds, audio.RMS(samples)))
}

func (t *ToggleMonitor) setActive(active bool) {
	if t.listener != nil {
		t.listener.SetActive(active)
	}
}
