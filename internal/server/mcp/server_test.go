package mcp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emmett/audioscope/internal/audio"
	"github.com/emmett/audioscope/internal/capture"
	"github.com/emmett/audioscope/internal/metrics"
)

const toneDevice = "Synthetic Demo (440 Hz)"

type testEnv struct {
	session *sdk.ClientSession
	metrics *metrics.Metrics
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	m := metrics.New(prometheus.NewRegistry())
	opts := capture.DefaultOptions()
	opts.Backend = audio.NewSyntheticBackend(audio.DemoConfig{
		Frequency: 440, Amplitude: 0.8, SampleRate: 8000, BufferFrames: 80,
	})
	opts.Demo = audio.NewSilentBackend()
	opts.WindowSize = 256
	opts.Metrics = m
	mgr, err := capture.NewManager(opts)
	require.NoError(t, err)

	srv := NewServer(Config{ServerVersion: "test"}, mgr, m, zerolog.Nop())
	clientTransport, serverTransport := sdk.NewInMemoryTransports()

	ss, err := srv.Connect(ctx, serverTransport)
	require.NoError(t, err)

	client := sdk.NewClient(&sdk.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		cs.Close()
		ss.Wait()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		require.NoError(t, mgr.Close(ctx))
	})

	return &testEnv{session: cs, metrics: m}
}

func (e *testEnv) call(t *testing.T, name string, args map[string]any) *sdk.CallToolResult {
	t.Helper()
	res, err := e.session.CallTool(context.Background(), &sdk.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	return res
}

func firstText(t *testing.T, res *sdk.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(*sdk.TextContent)
	require.True(t, ok)
	return tc.Text
}

func structured[T any](t *testing.T, res *sdk.CallToolResult) T {
	t.Helper()
	var out T
	raw, err := json.Marshal(res.StructuredContent)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestToolsAreRegistered(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"list_audio_input_devices",
		"start_audio_capture_with_device",
		"start_audio_capture",
		"stop_audio_capture",
		"get_audio_data",
		"get_capture_status",
	}, names)
}

func TestListDevicesTool(t *testing.T) {
	env := newTestEnv(t)

	res := env.call(t, "list_audio_input_devices", nil)
	assert.False(t, res.IsError)
	assert.Equal(t, []string{toneDevice}, structured[DeviceList](t, res).Devices)
}

func TestCaptureTools(t *testing.T) {
	env := newTestEnv(t)

	res := env.call(t, "get_audio_data", nil)
	assert.Equal(t, make([]float32, 64), structured[AudioData](t, res).Levels)

	res = env.call(t, "stop_audio_capture", nil)
	assert.Equal(t, "No audio capture was running", firstText(t, res))

	res = env.call(t, "start_audio_capture_with_device", map[string]any{"device": toneDevice})
	require.False(t, res.IsError, firstText(t, res))
	assert.Equal(t, "Audio capture starting for device: "+toneDevice, firstText(t, res))
	assert.NotEmpty(t, structured[Confirmation](t, res).Session)

	require.Eventually(t, func() bool {
		res := env.call(t, "get_audio_data", nil)
		return audio.RMS(structured[AudioData](t, res).Levels) > 0.1
	}, 2*time.Second, 10*time.Millisecond)

	status := structured[CaptureStatus](t, env.call(t, "get_capture_status", nil))
	assert.Equal(t, "running", status.State)
	assert.True(t, status.Active)
	require.NotNil(t, status.Session)
	assert.Equal(t, toneDevice, status.Session.Device)
	assert.Positive(t, status.Ingest.Chunks)

	res = env.call(t, "stop_audio_capture", nil)
	assert.Equal(t, "Audio capture stopped", firstText(t, res))

	res = env.call(t, "stop_audio_capture", nil)
	assert.Equal(t, "Audio capture was already stopped", firstText(t, res))
}

func TestStartDemoTool(t *testing.T) {
	env := newTestEnv(t)

	res := env.call(t, "start_audio_capture", nil)
	assert.Equal(t, "Demo audio mode started", firstText(t, res))
}

func TestStartUnknownDeviceIsToolError(t *testing.T) {
	env := newTestEnv(t)

	res := env.call(t, "start_audio_capture_with_device", map[string]any{"device": "Nonexistent"})
	assert.True(t, res.IsError)
	assert.Contains(t, firstText(t, res), "Nonexistent")

	res = env.call(t, "start_audio_capture_with_device", map[string]any{"device": toneDevice, "format": "s24"})
	assert.True(t, res.IsError)

	assert.Equal(t, 2.0, testutil.ToFloat64(env.metrics.Requests.WithLabelValues("mcp", "start_audio_capture_with_device", "error")))
}
