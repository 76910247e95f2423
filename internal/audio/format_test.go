package audio

import (
	"encoding/binary"
	"math"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeS16(t *testing.T) {
	assert.InDelta(t, 16384.0/32767, NormalizeS16(16384), 1e-6)
	assert.Equal(t, float32(1), NormalizeS16(math.MaxInt16))
	assert.Equal(t, float32(0), NormalizeS16(0))
	assert.Equal(t, float32(-1), NormalizeS16(math.MinInt16))
}

func TestNormalizeU16(t *testing.T) {
	assert.Equal(t, float32(-1), NormalizeU16(0))
	assert.Equal(t, float32(1), NormalizeU16(math.MaxUint16))
	assert.InDelta(t, 0.0, NormalizeU16(32768), 0.0001)
}

func TestNormalizeReplacesNonFiniteF32(t *testing.T) {
	values := []float32{
		float32(math.NaN()),
		float32(math.Inf(1)),
		float32(math.Inf(-1)),
		0.5,
	}
	data := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(v))
	}

	out, err := Normalize(RawChunk{Format: FormatF32, Data: data, Frames: uint32(len(values))})
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1, -1, 0.5}, out)
	assert.InDelta(t, math.Sqrt(2.25/4), RMS(out), 1e-9)

	out, err = Normalize(RawChunk{
		Format: FormatPlatform,
		Buffer: &goaudio.Float32Buffer{Data: values},
	})
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1, -1, 0.5}, out)
}

func TestNormalizeChunks(t *testing.T) {
	s16 := make([]byte, 4)
	binary.LittleEndian.PutUint16(s16[0:], uint16(16384))
	neg := int16(-32767)
	binary.LittleEndian.PutUint16(s16[2:], uint16(neg))

	f32 := make([]byte, 8)
	binary.LittleEndian.PutUint32(f32[0:], math.Float32bits(0.25))
	binary.LittleEndian.PutUint32(f32[4:], math.Float32bits(-0.75))

	u16 := make([]byte, 4)
	binary.LittleEndian.PutUint16(u16[0:], 0)
	binary.LittleEndian.PutUint16(u16[2:], math.MaxUint16)

	tests := []struct {
		name  string
		chunk RawChunk
		want  []float32
	}{
		{"s16", RawChunk{Format: FormatS16, Data: s16}, []float32{0.50003, -1}},
		{"f32", RawChunk{Format: FormatF32, Data: f32}, []float32{0.25, -0.75}},
		{"u16", RawChunk{Format: FormatU16, Data: u16}, []float32{-1, 1}},
		{"platform", RawChunk{
			Format: FormatPlatform,
			Buffer: &goaudio.Float32Buffer{Data: []float32{0.1, -0.2}},
		}, []float32{0.1, -0.2}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Normalize(tc.chunk)
			require.NoError(t, err)
			require.Len(t, got, len(tc.want))
			for i := range tc.want {
				assert.InDelta(t, tc.want[i], got[i], 0.0001)
			}
		})
	}
}

func TestNormalizeCopiesPlatformBuffer(t *testing.T) {
	src := []float32{0.5}
	got, err := Normalize(RawChunk{Format: FormatPlatform, Buffer: &goaudio.Float32Buffer{Data: src}})
	require.NoError(t, err)

	src[0] = 0
	assert.Equal(t, float32(0.5), got[0])
}

func TestNormalizeRejectsBadInput(t *testing.T) {
	_, err := Normalize(RawChunk{Format: FormatS16, Data: []byte{1, 2, 3}})
	assert.ErrorIs(t, err, ErrMalformedChunk)

	_, err = Normalize(RawChunk{Format: FormatOther, Data: []byte{1, 2, 3}})
	assert.ErrorIs(t, err, ErrUnsupportedEncoding)

	got, err := Normalize(RawChunk{Format: FormatF32})
	assert.NoError(t, err)
	assert.Empty(t, got)

	got, err = Normalize(RawChunk{Format: FormatPlatform})
	assert.NoError(t, err)
	assert.Empty(t, got)
}

func TestRMS(t *testing.T) {
	assert.Equal(t, 0.0, RMS(nil))
	assert.InDelta(t, 1.0, RMS([]float32{1, -1, 1, -1}), 1e-9)
	assert.InDelta(t, 0.5, RMS([]float32{0.5, -0.5}), 1e-9)
}

func TestEncodeS16RoundTrip(t *testing.T) {
	in := []float32{0, 0.5, -0.5, 2}
	out, err := Normalize(RawChunk{Format: FormatS16, Data: EncodeS16(in)})
	require.NoError(t, err)

	assert.InDelta(t, 0, out[0], 0.0001)
	assert.InDelta(t, 0.5, out[1], 0.0001)
	assert.InDelta(t, -0.5, out[2], 0.0001)
	assert.InDelta(t, 1, out[3], 0.0001, "values are clipped")
}

func TestParseSampleFormat(t *testing.T) {
	for in, want := range map[string]SampleFormat{
		"":    FormatUnknown,
		"f32": FormatF32,
		"S16": FormatS16,
		"u16": FormatU16,
	} {
		got, err := ParseSampleFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseSampleFormat("s24")
	assert.ErrorIs(t, err, ErrUnsupportedEncoding)
}
