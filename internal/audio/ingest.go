package audio

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/emmett/audioscope/internal/metrics"
)

// DefaultQueueSize is the number of normalized chunks that may wait for the
// session consumer before new chunks are dropped
const DefaultQueueSize = 64

// Chunk is a normalized block of samples ready to be merged into buffers
type Chunk struct {
	Samples   []float32
	Timestamp time.Time
	RMS       float64
}

// IngestStats is a point-in-time copy of ingest counters
type IngestStats struct {
	Chunks  uint64 `json:"chunks"`
	Samples uint64 `json:"samples"`
	Dropped uint64 `json:"dropped"`
	Invalid uint64 `json:"invalid"`
}

// Ingestor is the hot-path callback target of a capture stream. Handle runs
// on the backend's thread: it normalizes the chunk and hands it to the
// session consumer over a bounded channel without ever blocking or locking.
type Ingestor struct {
	out     chan Chunk
	metrics *metrics.Metrics
	diag    zerolog.Logger

	chunks  atomic.Uint64
	samples atomic.Uint64
	dropped atomic.Uint64
	invalid atomic.Uint64
}

// NewIngestor creates an ingestor with a queue of queueSize chunks
func NewIngestor(queueSize int, m *metrics.Metrics, logger zerolog.Logger) *Ingestor {
	if queueSize < 1 {
		queueSize = DefaultQueueSize
	}
	return &Ingestor{
		out:     make(chan Chunk, queueSize),
		metrics: m,
		diag:    logger.Sample(&zerolog.BasicSampler{N: 100}),
	}
}

// Handle ingests one raw chunk. Malformed, empty and unsupported chunks are
// dropped with a diagnostic.
func (in *Ingestor) Handle(raw RawChunk) {
	samples, err := Normalize(raw)
	if err != nil {
		in.invalid.Add(1)
		reason := "malformed"
		if errors.Is(err, ErrUnsupportedEncoding) {
			reason = "unsupported"
		}
		in.metrics.ChunkRejected(reason)
		in.diag.Debug().Err(err).Str("format", raw.Format.String()).Msg("Dropping audio chunk")
		return
	}
	if len(samples) == 0 {
		in.metrics.ChunkRejected("empty")
		return
	}

	ts := raw.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	chunk := Chunk{Samples: samples, Timestamp: ts, RMS: RMS(samples)}

	select {
	case in.out <- chunk:
		in.chunks.Add(1)
		in.samples.Add(uint64(len(samples)))
		in.metrics.ChunkIngested(len(samples), chunk.RMS)
	default:
		in.dropped.Add(1)
		in.metrics.ChunkDropped()
		in.diag.Debug().Int("samples", len(samples)).Msg("Consumer lagging, dropping audio chunk")
	}
}

// Chunks returns the channel normalized chunks are delivered on
func (in *Ingestor) Chunks() <-chan Chunk {
	return in.out
}

// Stats returns a copy of the ingest counters
func (in *Ingestor) Stats() IngestStats {
	return IngestStats{
		Chunks:  in.chunks.Load(),
		Samples: in.samples.Load(),
		Dropped: in.dropped.Load(),
		Invalid: in.invalid.Load(),
	}
}
