package audio

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func openDemo(t *testing.T, b *DemoBackend, onData func(RawChunk)) Stream {
	t.Helper()
	ctx := context.Background()

	devices, err := b.Devices(ctx)
	require.NoError(t, err)

	stream, err := b.Open(ctx, StreamRequest{Device: devices[0], OnData: onData})
	require.NoError(t, err)
	return stream
}

func TestSyntheticBackendEmitsTone(t *testing.T) {
	b := NewSyntheticBackend(DemoConfig{Frequency: 1000, Amplitude: 0.5, SampleRate: 8000, BufferFrames: 80})

	var mu sync.Mutex
	var chunks []RawChunk
	received := make(chan struct{}, 1)

	stream := openDemo(t, b, func(c RawChunk) {
		mu.Lock()
		chunks = append(chunks, c)
		mu.Unlock()
		select {
		case received <- struct{}{}:
		default:
		}
	})

	assert.Equal(t, StreamFormat{Format: FormatS16, SampleRate: 8000, Channels: 1}, stream.Format())
	require.NoError(t, stream.Start())

	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("no chunk from synthetic backend")
	}
	require.NoError(t, stream.Close())
	require.NoError(t, stream.Close())

	mu.Lock()
	defer mu.Unlock()
	samples, err := Normalize(chunks[0])
	require.NoError(t, err)
	assert.Len(t, samples, 80)
	assert.InDelta(t, 0.5/1.4142, RMS(samples), 0.02)
}

func TestSilentBackendNeverEmits(t *testing.T) {
	b := NewSilentBackend()
	called := false
	stream := openDemo(t, b, func(RawChunk) { called = true })

	require.NoError(t, stream.Start())
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, stream.Close())
	assert.False(t, called)
}

func TestDemoBackendRejectsOtherFormats(t *testing.T) {
	b := NewSyntheticBackend(DefaultDemoConfig())
	devices, err := b.Devices(context.Background())
	require.NoError(t, err)

	_, err = b.Open(context.Background(), StreamRequest{Device: devices[0], Format: FormatF32})
	assert.ErrorIs(t, err, ErrFormatNegotiation)

	_, err = b.Open(context.Background(), StreamRequest{Device: DeviceInfo{ID: "other", Name: "Other"}})
	assert.ErrorIs(t, err, ErrDeviceNotFound)
}
