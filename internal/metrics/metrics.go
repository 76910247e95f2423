package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the capture service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Ingest path metrics
	ChunksIngested  prometheus.Counter
	SamplesIngested prometheus.Counter
	ChunksDropped   prometheus.Counter
	ChunksInvalid   *prometheus.CounterVec
	InputLevel      prometheus.Gauge

	// Buffer metrics
	BufferFill *prometheus.GaugeVec

	// Session metrics
	SessionsStarted *prometheus.CounterVec
	SessionErrors   *prometheus.CounterVec
	StopRequests    *prometheus.CounterVec
	CaptureActive   prometheus.Gauge

	// Dispatch metrics
	Polls           prometheus.Counter
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New creates all metrics and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ChunksIngested: factory.NewCounter(prometheus.CounterOpts{
			Name: "audioscope_chunks_ingested_total",
			Help: "Total number of audio chunks accepted by the ingest path",
		}),
		SamplesIngested: factory.NewCounter(prometheus.CounterOpts{
			Name: "audioscope_samples_ingested_total",
			Help: "Total number of normalized samples accepted by the ingest path",
		}),
		ChunksDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "audioscope_chunks_dropped_total",
			Help: "Total number of chunks dropped because the consumer lagged",
		}),
		ChunksInvalid: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "audioscope_chunks_invalid_total",
			Help: "Total number of chunks rejected by the ingest path",
		}, []string{"reason"}),
		InputLevel: factory.NewGauge(prometheus.GaugeOpts{
			Name: "audioscope_input_rms",
			Help: "RMS level of the most recent chunk",
		}),

		BufferFill: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "audioscope_buffer_samples",
			Help: "Number of samples held per buffer role",
		}, []string{"role"}),

		SessionsStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "audioscope_sessions_started_total",
			Help: "Total number of capture sessions that reached Running",
		}, []string{"backend"}),
		SessionErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "audioscope_session_errors_total",
			Help: "Total number of capture session failures by kind",
		}, []string{"kind"}),
		StopRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "audioscope_stop_requests_total",
			Help: "Total number of stop requests by outcome",
		}, []string{"outcome"}),
		CaptureActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "audioscope_capture_active",
			Help: "1 while a capture session is running",
		}),

		Polls: factory.NewCounter(prometheus.CounterOpts{
			Name: "audioscope_polls_total",
			Help: "Total number of visualization snapshot polls",
		}),
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "audioscope_requests_total",
			Help: "Total number of dispatch requests",
		}, []string{"surface", "operation", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "audioscope_request_duration_seconds",
			Help:    "Time spent serving dispatch requests",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"surface", "operation"}),
	}
}

// ChunkIngested records an accepted chunk
func (m *Metrics) ChunkIngested(samples int, rms float64) {
	if m == nil {
		return
	}
	m.ChunksIngested.Inc()
	m.SamplesIngested.Add(float64(samples))
	m.InputLevel.Set(rms)
}

// ChunkDropped records a chunk lost to consumer backpressure
func (m *Metrics) ChunkDropped() {
	if m == nil {
		return
	}
	m.ChunksDropped.Inc()
}

// ChunkRejected records a chunk rejected for the given reason
func (m *Metrics) ChunkRejected(reason string) {
	if m == nil {
		return
	}
	m.ChunksInvalid.WithLabelValues(reason).Inc()
}

// SetBufferFill records how many samples a buffer role holds
func (m *Metrics) SetBufferFill(role string, samples int) {
	if m == nil {
		return
	}
	m.BufferFill.WithLabelValues(role).Set(float64(samples))
}

// SessionStarted records a session reaching Running
func (m *Metrics) SessionStarted(backend string) {
	if m == nil {
		return
	}
	m.SessionsStarted.WithLabelValues(backend).Inc()
	m.CaptureActive.Set(1)
}

// SessionEnded records a session leaving Running
func (m *Metrics) SessionEnded() {
	if m == nil {
		return
	}
	m.CaptureActive.Set(0)
}

// SessionError records a session failure of the given kind
func (m *Metrics) SessionError(kind string) {
	if m == nil {
		return
	}
	m.SessionErrors.WithLabelValues(kind).Inc()
}

// StopRequested records the outcome of a stop request
func (m *Metrics) StopRequested(outcome string) {
	if m == nil {
		return
	}
	m.StopRequests.WithLabelValues(outcome).Inc()
}

// Polled records a visualization poll
func (m *Metrics) Polled() {
	if m == nil {
		return
	}
	m.Polls.Inc()
}

// ObserveRequest records a dispatch request
func (m *Metrics) ObserveRequest(surface, operation string, err error, started time.Time) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.Requests.WithLabelValues(surface, operation, status).Inc()
	m.RequestDuration.WithLabelValues(surface, operation).Observe(time.Since(started).Seconds())
}
