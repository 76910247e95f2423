package audio

import (
	"context"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemAudioBackendThroughBridge(t *testing.T) {
	bridge := NewBridge()
	b := NewSystemAudioBackend(bridge, goaudio.Format{})
	ctx := context.Background()

	devices, err := b.Devices(ctx)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "System Audio", devices[0].Name)
	assert.Equal(t, FormatPlatform, devices[0].DefaultFormat())

	var got []RawChunk
	stream, err := b.Open(ctx, StreamRequest{
		Device: devices[0],
		OnData: func(c RawChunk) { got = append(got, c) },
	})
	require.NoError(t, err)
	assert.Equal(t, StreamFormat{Format: FormatPlatform, SampleRate: 48000, Channels: 2}, stream.Format())

	assert.False(t, bridge.Push([]float32{1, 2}, 48000, 2), "nothing is capturing yet")

	require.NoError(t, stream.Start())
	assert.True(t, bridge.Capturing())
	assert.True(t, bridge.Push([]float32{0.1, 0.2, 0.3, 0.4}, 48000, 2))

	require.NoError(t, stream.Close())
	assert.False(t, bridge.Capturing())
	assert.False(t, bridge.Push([]float32{0.5}, 48000, 1))

	require.Len(t, got, 1)
	assert.Equal(t, uint32(2), got[0].Frames)
	samples, err := Normalize(got[0])
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3, 0.4}, samples)
}

func TestSystemAudioBackendErrors(t *testing.T) {
	ctx := context.Background()

	_, err := NewSystemAudioBackend(nil, goaudio.Format{}).Devices(ctx)
	assert.ErrorIs(t, err, ErrEnumeration)

	b := NewSystemAudioBackend(NewBridge(), goaudio.Format{SampleRate: 44100, NumChannels: 1})
	devices, err := b.Devices(ctx)
	require.NoError(t, err)

	_, err = b.Open(ctx, StreamRequest{Device: devices[0], Format: FormatS16})
	assert.ErrorIs(t, err, ErrFormatNegotiation)
}

func TestBridgeRejectsSecondCapture(t *testing.T) {
	bridge := NewBridge()
	require.NoError(t, bridge.Start(func(*goaudio.Float32Buffer) {}))
	assert.ErrorIs(t, bridge.Start(func(*goaudio.Float32Buffer) {}), ErrBridgeBusy)
	require.NoError(t, bridge.Stop())
}
