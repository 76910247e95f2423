package mcp

import (
	"context"
	"fmt"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/emmett/audioscope/internal/audio"
	"github.com/emmett/audioscope/internal/capture"
)

type NoArgs struct{}

type StartWithDeviceArgs struct {
	Device string `json:"device" jsonschema:"Exact name of the input device as returned by list_audio_input_devices"`
	Format string `json:"format,omitempty" jsonschema:"Optional sample format override: f32, s16 or u16"`
}

type DeviceList struct {
	Devices []string `json:"devices"`
}

type Confirmation struct {
	Message string `json:"message"`
	Session string `json:"session,omitempty"`
}

type AudioData struct {
	Levels []float32 `json:"levels" jsonschema:"Fixed-length snapshot of recent samples, oldest first"`
}

type SessionInfo struct {
	ID         string `json:"id"`
	Device     string `json:"device"`
	Backend    string `json:"backend"`
	Format     string `json:"format"`
	SampleRate uint32 `json:"sample_rate"`
	Channels   uint32 `json:"channels"`
	StartedAt  string `json:"started_at"`
}

type CaptureStatus struct {
	State     string            `json:"state"`
	Active    bool              `json:"active"`
	LastError string            `json:"last_error,omitempty"`
	Session   *SessionInfo      `json:"session,omitempty"`
	Ingest    audio.IngestStats `json:"ingest"`
}

func text(msg string) *sdk.CallToolResult {
	return &sdk.CallToolResult{Content: []sdk.Content{&sdk.TextContent{Text: msg}}}
}

func (s *Server) handleListDevices(ctx context.Context, req *sdk.CallToolRequest, args NoArgs) (*sdk.CallToolResult, DeviceList, error) {
	devices, err := s.mgr.Devices(ctx)
	if err != nil {
		return nil, DeviceList{}, fmt.Errorf("failed to list devices: %w", err)
	}

	names := audio.DeviceNames(devices)
	content := []sdk.Content{
		&sdk.TextContent{Text: fmt.Sprintf("Audio input devices (%d):", len(names))},
	}
	for _, name := range names {
		content = append(content, &sdk.TextContent{Text: fmt.Sprintf("- %s", name)})
	}

	return &sdk.CallToolResult{Content: content}, DeviceList{Devices: names}, nil
}

func (s *Server) handleStartWithDevice(ctx context.Context, req *sdk.CallToolRequest, args StartWithDeviceArgs) (*sdk.CallToolResult, Confirmation, error) {
	hint, err := audio.ParseSampleFormat(args.Format)
	if err != nil {
		return nil, Confirmation{}, err
	}

	h, err := s.mgr.Start(ctx, args.Device, hint)
	if err != nil {
		return nil, Confirmation{}, fmt.Errorf("failed to start audio capture: %w", err)
	}

	msg := h.Confirmation()
	return text(msg), Confirmation{Message: msg, Session: h.ID.String()}, nil
}

func (s *Server) handleStartDemo(ctx context.Context, req *sdk.CallToolRequest, args NoArgs) (*sdk.CallToolResult, Confirmation, error) {
	h, err := s.mgr.StartDemo(ctx)
	if err != nil {
		return nil, Confirmation{}, fmt.Errorf("failed to start demo audio: %w", err)
	}

	msg := h.Confirmation()
	return text(msg), Confirmation{Message: msg, Session: h.ID.String()}, nil
}

func (s *Server) handleStop(ctx context.Context, req *sdk.CallToolRequest, args NoArgs) (*sdk.CallToolResult, Confirmation, error) {
	res := s.mgr.Stop()
	out := Confirmation{Message: res.Message()}
	if res.Outcome != capture.StopNoSession {
		out.Session = res.Session.String()
	}
	return text(out.Message), out, nil
}

func (s *Server) handleGetAudioData(ctx context.Context, req *sdk.CallToolRequest, args NoArgs) (*sdk.CallToolResult, AudioData, error) {
	// nil content: the SDK renders the levels as JSON text
	return nil, AudioData{Levels: s.mgr.Poll()}, nil
}

func (s *Server) handleStatus(ctx context.Context, req *sdk.CallToolRequest, args NoArgs) (*sdk.CallToolResult, CaptureStatus, error) {
	st := s.mgr.Status()

	out := CaptureStatus{
		State:  st.State.String(),
		Active: st.Active(),
		Ingest: st.Ingest,
	}
	if st.LastError != nil {
		out.LastError = st.LastError.Error()
	}
	if h := st.Session; h != nil {
		out.Session = &SessionInfo{
			ID:         h.ID.String(),
			Device:     h.Device,
			Backend:    string(h.Backend),
			Format:     h.Format.String(),
			SampleRate: h.SampleRate,
			Channels:   h.Channels,
			StartedAt:  h.StartedAt.Format(time.RFC3339Nano),
		}
	}

	return nil, out, nil
}
