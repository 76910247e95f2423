package logging

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "audioscope.log")

	logger, closeLog, err := New(Options{Level: "debug", File: path, JSON: true})
	require.NoError(t, err)

	logger.Info().Str("device", "USB Mic").Msg("Audio capture started")
	require.NoError(t, closeLog())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"device":"USB Mic"`)
	assert.Contains(t, string(data), "Audio capture started")
}

func TestNewAppliesLevel(t *testing.T) {
	logger, closeLog, err := New(Options{Level: "warn"})
	require.NoError(t, err)
	defer closeLog()

	assert.Equal(t, zerolog.WarnLevel, logger.GetLevel())
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, _, err := New(Options{Level: "loud"})
	assert.Error(t, err)
}

func TestDefaultLogPathUsesXDGState(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG state dir only applies on linux")
	}
	t.Setenv("XDG_STATE_HOME", "/tmp/state")
	assert.Equal(t, "/tmp/state/audioscope/audioscope.log", DefaultLogPath())
}
