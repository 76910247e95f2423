package capture

import (
	"github.com/google/uuid"

	"github.com/emmett/audioscope/internal/audio"
)

// Poll returns exactly SnapshotLength values striding across the
// visualization window: absolute values in amplitude mode, signed values in
// waveform mode. It never waits on the capture path beyond the buffer lock.
func (m *Manager) Poll() []float32 {
	m.metrics.Polled()
	return m.window.Downsample(m.opts.SnapshotLength, m.opts.SnapshotMode)
}

// Snapshot returns a copy of the accumulated history, oldest sample first
func (m *Manager) Snapshot() []float32 {
	return m.history.Snapshot()
}

// SnapshotLength returns the fixed length of Poll results
func (m *Manager) SnapshotLength() int {
	return m.opts.SnapshotLength
}

// StopOutcome describes what a stop request did
type StopOutcome int

const (
	// StopSignalled means a running session was asked to stop
	StopSignalled StopOutcome = iota
	// StopAlreadyStopped means the session had already stopped or been signalled
	StopAlreadyStopped
	// StopNoSession means no session was ever started
	StopNoSession
)

// StopResult is the acknowledgement of a stop request
type StopResult struct {
	Outcome StopOutcome
	Session uuid.UUID
}

// Message returns the confirmation reported to callers of stop
func (r StopResult) Message() string {
	switch r.Outcome {
	case StopSignalled:
		return "Audio capture stopped"
	case StopAlreadyStopped:
		return "Audio capture was already stopped"
	default:
		return "No audio capture was running"
	}
}

// Status is a point-in-time view of the manager
type Status struct {
	State     State
	Session   *Handle
	LastError error
	Ingest    audio.IngestStats
}

// Active reports whether a session is starting or running
func (s Status) Active() bool {
	return s.State == StateStarting || s.State == StateRunning
}
