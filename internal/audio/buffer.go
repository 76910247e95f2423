package audio

import (
	"fmt"
	"strings"
	"sync"
)

// EvictionPolicy selects how a SampleBuffer behaves once it reaches capacity
type EvictionPolicy int

const (
	// EvictOldest grows the buffer up to capacity, then drops the oldest
	// samples first. Used for the history (accumulation) buffer.
	EvictOldest EvictionPolicy = iota

	// OverwriteInPlace keeps a preallocated window that always reports its
	// full width; every new sample overwrites the oldest slot in place.
	// Used for the visualization window.
	OverwriteInPlace
)

// SnapshotMode selects what a downsampled read returns
type SnapshotMode int

const (
	// ModeAmplitude returns absolute values, for amplitude-bar rendering
	ModeAmplitude SnapshotMode = iota
	// ModeWaveform returns raw signed values, for waveform rendering
	ModeWaveform
)

// String returns the configuration name of the mode
func (m SnapshotMode) String() string {
	if m == ModeWaveform {
		return "waveform"
	}
	return "amplitude"
}

// ParseSnapshotMode parses "amplitude" or "waveform"
func ParseSnapshotMode(s string) (SnapshotMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "amplitude", "abs":
		return ModeAmplitude, nil
	case "waveform", "signed":
		return ModeWaveform, nil
	default:
		return ModeAmplitude, fmt.Errorf("unknown snapshot mode: %s", s)
	}
}

// SampleBuffer is a bounded, thread-safe circular buffer of normalized samples.
// All operations take the same mutex; hold times are bounded by capacity.
type SampleBuffer struct {
	mu     sync.Mutex
	policy EvictionPolicy
	data   []float32
	start  int // index of the oldest sample
	length int
}

// NewSampleBuffer creates a buffer holding at most capacity samples
func NewSampleBuffer(capacity int, policy EvictionPolicy) *SampleBuffer {
	if capacity < 1 {
		capacity = 1
	}
	b := &SampleBuffer{policy: policy}
	b.reset(capacity)
	return b
}

func (b *SampleBuffer) reset(capacity int) {
	b.data = make([]float32, capacity)
	b.start = 0
	b.length = 0
	if b.policy == OverwriteInPlace {
		b.length = capacity
	}
}

// Write appends samples, evicting the oldest ones so that at most Cap()
// samples remain. Returns the number of samples evicted.
func (b *SampleBuffer) Write(samples []float32) int {
	if len(samples) == 0 {
		return 0
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	capacity := len(b.data)

	// Only the newest capacity samples can survive
	if len(samples) >= capacity {
		evicted := b.length + len(samples) - capacity
		copy(b.data, samples[len(samples)-capacity:])
		b.start = 0
		b.length = capacity
		return evicted
	}

	end := (b.start + b.length) % capacity
	n := copy(b.data[end:], samples)
	if n < len(samples) {
		copy(b.data, samples[n:])
	}

	evicted := 0
	if overflow := b.length + len(samples) - capacity; overflow > 0 {
		evicted = overflow
		b.start = (b.start + overflow) % capacity
		b.length = capacity
	} else {
		b.length += len(samples)
	}

	return evicted
}

// Snapshot returns a copy of the current contents, oldest first
func (b *SampleBuffer) Snapshot() []float32 {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]float32, b.length)
	b.copyOut(out)
	return out
}

func (b *SampleBuffer) copyOut(out []float32) {
	n := copy(out, b.data[b.start:min(b.start+b.length, len(b.data))])
	if n < b.length {
		copy(out[n:], b.data[:b.length-n])
	}
}

// Downsample returns exactly n values, one per equal stride across the
// buffer. A buffer holding fewer than n samples yields n zeros.
func (b *SampleBuffer) Downsample(n int, mode SnapshotMode) []float32 {
	if n <= 0 {
		return []float32{}
	}
	out := make([]float32, n)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.length < n {
		return out
	}

	step := b.length / n
	capacity := len(b.data)
	for i := range out {
		v := b.data[(b.start+i*step)%capacity]
		if mode == ModeAmplitude && v < 0 {
			v = -v
		}
		out[i] = v
	}

	return out
}

// Clear resets every held position to silence. Length and capacity are kept.
func (b *SampleBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	clear(b.data)
}

// Reset empties the buffer and changes its capacity. A window buffer is
// refilled with silence to its new width.
func (b *SampleBuffer) Reset(capacity int) {
	if capacity < 1 {
		capacity = 1
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.reset(capacity)
}

// Len returns the number of samples currently held
func (b *SampleBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.length
}

// Cap returns the configured capacity
func (b *SampleBuffer) Cap() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// Policy returns the buffer's eviction policy
func (b *SampleBuffer) Policy() EvictionPolicy {
	return b.policy
}
