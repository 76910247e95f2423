package audio

// ActivityConfig configures signal activity detection
type ActivityConfig struct {
	// Threshold is the minimum chunk RMS considered signal
	// Typical values: 0.001 to 0.1 (lower = more sensitive)
	Threshold float64

	// SignalChunks is the number of consecutive loud chunks before signal starts
	SignalChunks int

	// SilenceChunks is the number of consecutive quiet chunks before signal ends
	SilenceChunks int
}

// DefaultActivityConfig returns a moderate-sensitivity configuration
func DefaultActivityConfig() ActivityConfig {
	return ActivityConfig{
		Threshold:     0.01,
		SignalChunks:  3,
		SilenceChunks: 20,
	}
}

// ActivityDetector tracks whether a stream of levels carries signal or
// silence, with hysteresis on both edges. It is not safe for concurrent use.
type ActivityDetector struct {
	config       ActivityConfig
	loudCount    int
	quietCount   int
	signalActive bool
}

// NewActivityDetector creates a detector in the silent state
func NewActivityDetector(config ActivityConfig) *ActivityDetector {
	if config.SignalChunks < 1 {
		config.SignalChunks = 1
	}
	if config.SilenceChunks < 1 {
		config.SilenceChunks = 1
	}
	return &ActivityDetector{config: config}
}

// Observe feeds one level reading.
// Returns: (signalActive, signalStarted, signalEnded)
func (a *ActivityDetector) Observe(rms float64) (bool, bool, bool) {
	started, ended := false, false

	if rms > a.config.Threshold {
		a.loudCount++
		a.quietCount = 0
		if !a.signalActive && a.loudCount >= a.config.SignalChunks {
			a.signalActive = true
			started = true
		}
	} else {
		a.quietCount++
		a.loudCount = 0
		if a.signalActive && a.quietCount >= a.config.SilenceChunks {
			a.signalActive = false
			ended = true
		}
	}

	return a.signalActive, started, ended
}

// Active reports the current state
func (a *ActivityDetector) Active() bool {
	return a.signalActive
}

// Reset returns the detector to the silent state
func (a *ActivityDetector) Reset() {
	a.loudCount = 0
	a.quietCount = 0
	a.signalActive = false
}
