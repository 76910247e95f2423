package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActivityDetectorHysteresis(t *testing.T) {
	a := NewActivityDetector(ActivityConfig{Threshold: 0.1, SignalChunks: 2, SilenceChunks: 3})

	active, started, _ := a.Observe(0.5)
	assert.False(t, active)
	assert.False(t, started)

	active, started, _ = a.Observe(0.5)
	assert.True(t, active)
	assert.True(t, started)

	_, started, _ = a.Observe(0.5)
	assert.False(t, started, "start fires once")

	a.Observe(0.01)
	_, _, ended := a.Observe(0.01)
	assert.False(t, ended)

	active, _, ended = a.Observe(0.01)
	assert.False(t, active)
	assert.True(t, ended)
}

func TestActivityDetectorBriefNoiseIgnored(t *testing.T) {
	a := NewActivityDetector(ActivityConfig{Threshold: 0.1, SignalChunks: 3, SilenceChunks: 1})

	for _, level := range []float64{0.5, 0.5, 0.0, 0.5, 0.5} {
		active, _, _ := a.Observe(level)
		assert.False(t, active)
	}

	a.Reset()
	assert.False(t, a.Active())
}
