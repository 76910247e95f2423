package audio

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emmett/audioscope/internal/metrics"
)

func TestIngestorDeliversNormalizedChunks(t *testing.T) {
	in := NewIngestor(4, nil, zerolog.Nop())

	in.Handle(RawChunk{Format: FormatS16, Data: EncodeS16([]float32{0.5, -0.5})})

	chunk := <-in.Chunks()
	require.Len(t, chunk.Samples, 2)
	assert.InDelta(t, 0.5, chunk.Samples[0], 0.0001)
	assert.InDelta(t, 0.5, chunk.RMS, 0.0001)
	assert.False(t, chunk.Timestamp.IsZero())

	assert.Equal(t, IngestStats{Chunks: 1, Samples: 2}, in.Stats())
}

func TestIngestorDropsWhenQueueFull(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	in := NewIngestor(2, m, zerolog.Nop())

	data := EncodeS16([]float32{0.1})
	for i := 0; i < 5; i++ {
		in.Handle(RawChunk{Format: FormatS16, Data: data})
	}

	stats := in.Stats()
	assert.Equal(t, uint64(2), stats.Chunks)
	assert.Equal(t, uint64(3), stats.Dropped)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ChunksDropped))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ChunksIngested))
}

func TestIngestorRejectsInvalidChunks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	in := NewIngestor(4, m, zerolog.Nop())

	in.Handle(RawChunk{Format: FormatF32, Data: []byte{1, 2, 3}})
	in.Handle(RawChunk{Format: FormatOther, Data: []byte{1, 2}})
	in.Handle(RawChunk{Format: FormatS16})

	assert.Empty(t, in.Chunks())
	assert.Equal(t, uint64(2), in.Stats().Invalid)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ChunksInvalid.WithLabelValues("malformed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ChunksInvalid.WithLabelValues("unsupported")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ChunksInvalid.WithLabelValues("empty")))
}
