package capture

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/emmett/audioscope/internal/audio"
)

// State is the lifecycle state of a capture session
type State int

const (
	StateIdle State = iota
	StateStarting
	StateRunning
	StateStopping
	StateStopped
)

// String returns the lower-case state name
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Handle identifies one capture session
type Handle struct {
	ID         uuid.UUID          `json:"id"`
	Device     string             `json:"device"`
	Backend    audio.BackendKind  `json:"backend"`
	Format     audio.SampleFormat `json:"-"`
	SampleRate uint32             `json:"sample_rate"`
	Channels   uint32             `json:"channels"`
	StartedAt  time.Time          `json:"started_at"`

	// Demo is set on sessions started through StartDemo
	Demo bool `json:"demo"`
}

// Confirmation returns the message reported to callers of start
func (h Handle) Confirmation() string {
	if h.Demo {
		return "Demo audio mode started"
	}
	return fmt.Sprintf("Audio capture starting for device: %s", h.Device)
}

// session is one capture attempt. stop is closed at most once; done is
// closed when the session no longer touches the stream or the buffers.
type session struct {
	handle   Handle
	ingestor *audio.Ingestor

	stop     chan struct{}
	stopOnce sync.Once

	failed   chan error
	failOnce sync.Once

	done chan struct{}

	// retired sessions were superseded before they exited and must not
	// write into the shared buffers again
	retired atomic.Bool
}

func newSession(kind audio.BackendKind, demo bool, ingestor *audio.Ingestor) *session {
	return &session{
		handle: Handle{
			ID:      uuid.New(),
			Backend: kind,
			Demo:    demo,
		},
		ingestor: ingestor,
		stop:     make(chan struct{}),
		failed:   make(chan error, 1),
		done:     make(chan struct{}),
	}
}

// signal closes the stop channel. It reports whether this call sent it.
func (s *session) signal() bool {
	sent := false
	s.stopOnce.Do(func() {
		close(s.stop)
		sent = true
	})
	return sent
}

func (s *session) stopRequested() bool {
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}

// fail records a fatal stream error; only the first one is kept
func (s *session) fail(err error) {
	s.failOnce.Do(func() {
		s.failed <- err
	})
}
