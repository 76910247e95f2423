package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFrame() Frame {
	levels := []float32{0, 0.5, 1, -0.25}
	return Frame{
		Index:     3,
		Timestamp: time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC),
		Levels:    levels,
		Peak:      Peak(levels),
		Active:    true,
	}
}

func TestJSONFormatterWritesOneObjectPerLine(t *testing.T) {
	var buf bytes.Buffer
	f := NewJSONFormatter(&buf)

	require.NoError(t, f.WriteFrame(testFrame()))
	require.NoError(t, f.WriteEvent("capture", "Audio capture stopped"))
	assert.Equal(t, 1, f.FrameCount())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var frame Frame
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &frame))
	assert.Equal(t, 3, frame.Index)
	assert.Equal(t, 1.0, frame.Peak)
	assert.Len(t, frame.Levels, 4)

	var event Event
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &event))
	assert.Equal(t, "capture", event.Type)
}

func TestPlainTextFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewPlainTextFormatter(&buf)

	require.NoError(t, f.WriteFrame(testFrame()))
	assert.Equal(t, "[15:04:05.000] #3 peak=1.000  ▄█▂\n", buf.String())
}

func TestConsoleOutputMeter(t *testing.T) {
	var out, errOut bytes.Buffer
	c := NewConsoleOutput(ConsoleConfig{BarWidth: 10, Writer: &out, ErrWriter: &errOut})

	require.NoError(t, c.WriteAudioLevel(0.5))
	assert.Equal(t, "\rLevel: [=====     ]  50.0%", out.String())

	out.Reset()
	require.NoError(t, c.WriteAudioLevel(3))
	assert.Contains(t, out.String(), "[==========] 100.0%")

	c.Error("device lost")
	assert.Equal(t, "[ERROR] device lost\n", errOut.String())
}

func TestNewFormatter(t *testing.T) {
	for _, name := range []string{"console", "json", "text", ""} {
		_, err := NewFormatter(name, &bytes.Buffer{})
		assert.NoError(t, err, name)
	}
	_, err := NewFormatter("xml", &bytes.Buffer{})
	assert.Error(t, err)
}

func TestSparklineAndPeak(t *testing.T) {
	assert.Equal(t, " █", Sparkline([]float32{0, 2}))
	assert.Equal(t, 0.75, Peak([]float32{0.1, -0.75, 0.5}))
	assert.Equal(t, 0.0, Peak(nil))
}
