package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emmett/audioscope/internal/audio"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	opts, err := cfg.ManagerOptions()
	require.NoError(t, err)
	assert.Equal(t, audio.BackendDevice, opts.Backend)
	assert.Equal(t, 2048, opts.WindowSize)
	assert.Equal(t, 64, opts.SnapshotLength)
	assert.Equal(t, audio.ModeAmplitude, opts.SnapshotMode)
	assert.Equal(t, 2*time.Second, opts.StopTimeout)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
audio:
  backend: synthetic
  device: "USB Mic"
  format: s16
snapshot:
  mode: waveform
  interval: 100ms
lifecycle:
  stop_timeout: 500ms
demo:
  frequency: 880
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "USB Mic", cfg.Audio.Device)
	assert.Equal(t, 100*time.Millisecond, cfg.Snapshot.Interval)
	assert.Equal(t, 2048, cfg.Buffer.WindowSize, "unset values keep defaults")

	opts, err := cfg.ManagerOptions()
	require.NoError(t, err)
	assert.Equal(t, audio.BackendSynthetic, opts.Backend)
	assert.Equal(t, audio.FormatS16, opts.Format)
	assert.Equal(t, audio.ModeWaveform, opts.SnapshotMode)
	assert.Equal(t, 500*time.Millisecond, opts.StopTimeout)
	assert.Equal(t, 880.0, opts.Demo.Frequency)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := map[string]string{
		"backend":   "audio:\n  backend: jack\n",
		"format":    "audio:\n  format: s24\n",
		"mode":      "snapshot:\n  mode: spectrum\n",
		"amplitude": "demo:\n  amplitude: 2\n",
		"threshold": "activity:\n  threshold: -0.5\n",
		"syntax":    "audio: [\n",
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0644))

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestActivityConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, audio.DefaultActivityConfig(), cfg.ActivityConfig())

	cfg.Activity.Threshold = 0.2
	assert.Equal(t, 0.2, cfg.ActivityConfig().Threshold)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Audio.Device = "Built-in"
	cfg.Lifecycle.StopTimeout = 3 * time.Second
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadWithFallbackUsesHomeConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	require.NoError(t, os.WriteFile(filepath.Join(home, ".audioscoperc"), []byte("audio:\n  device: Home Mic\n"), 0644))

	cfg, err := LoadWithFallback("")
	require.NoError(t, err)
	assert.Equal(t, "Home Mic", cfg.Audio.Device)
}

func TestLoadWithFallbackExplicitPathMustExist(t *testing.T) {
	_, err := LoadWithFallback(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
