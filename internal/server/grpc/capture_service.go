package grpc

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/emmett/audioscope/internal/audio"
	"github.com/emmett/audioscope/internal/capture"
)

// CaptureService implements CaptureServer on a capture manager
type CaptureService struct {
	mgr            *capture.Manager
	streamInterval time.Duration
	log            zerolog.Logger

	shutdown <-chan struct{} // nil outside a Server
}

// NewCaptureService creates the capture service. streamInterval is the
// default pacing of StreamAudioData frames.
func NewCaptureService(mgr *capture.Manager, streamInterval time.Duration, logger zerolog.Logger) *CaptureService {
	if streamInterval <= 0 {
		streamInterval = 50 * time.Millisecond
	}
	return &CaptureService{mgr: mgr, streamInterval: streamInterval, log: logger}
}

// ListDevices returns device names in enumeration order
func (s *CaptureService) ListDevices(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	devices, err := s.mgr.Devices(ctx)
	if err != nil {
		return nil, toStatus(err)
	}

	values := make([]*structpb.Value, 0, len(devices))
	for _, name := range audio.DeviceNames(devices) {
		values = append(values, structpb.NewStringValue(name))
	}
	return &structpb.ListValue{Values: values}, nil
}

// StartCapture starts capturing from the device named in the "device"
// field; an optional "format" field overrides the sample format
func (s *CaptureService) StartCapture(ctx context.Context, req *structpb.Struct) (*wrapperspb.StringValue, error) {
	fields := req.GetFields()
	device := fields["device"].GetStringValue()

	hint, err := audio.ParseSampleFormat(fields["format"].GetStringValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	h, err := s.mgr.Start(ctx, device, hint)
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.String(h.Confirmation()), nil
}

// StartDemo starts the demo backend
func (s *CaptureService) StartDemo(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.StringValue, error) {
	h, err := s.mgr.StartDemo(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.String(h.Confirmation()), nil
}

// StopCapture signals the running session; it never fails
func (s *CaptureService) StopCapture(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error) {
	return wrapperspb.String(s.mgr.Stop().Message()), nil
}

// GetAudioData returns one poll of the visualization window
func (s *CaptureService) GetAudioData(context.Context, *emptypb.Empty) (*structpb.ListValue, error) {
	return levelList(s.mgr.Poll()), nil
}

// GetStatus reports the lifecycle state and ingest counters
func (s *CaptureService) GetStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	st := s.mgr.Status()

	fields := map[string]any{
		"state":  st.State.String(),
		"active": st.Active(),
	}
	if st.LastError != nil {
		fields["last_error"] = st.LastError.Error()
	}
	if h := st.Session; h != nil {
		fields["session"] = map[string]any{
			"id":          h.ID.String(),
			"device":      h.Device,
			"backend":     string(h.Backend),
			"format":      h.Format.String(),
			"sample_rate": float64(h.SampleRate),
			"channels":    float64(h.Channels),
			"started_at":  h.StartedAt.Format(time.RFC3339Nano),
		}
		fields["ingest"] = map[string]any{
			"chunks":  float64(st.Ingest.Chunks),
			"samples": float64(st.Ingest.Samples),
			"dropped": float64(st.Ingest.Dropped),
			"invalid": float64(st.Ingest.Invalid),
		}
	}

	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// StreamAudioData pushes a poll frame every "interval_ms" milliseconds
// until the client cancels, "max_frames" frames were sent or the server
// shuts down
func (s *CaptureService) StreamAudioData(req *structpb.Struct, stream AudioDataStream) error {
	interval := s.streamInterval
	if ms := req.GetFields()["interval_ms"].GetNumberValue(); ms > 0 {
		interval = time.Duration(ms * float64(time.Millisecond))
	}
	maxFrames := int(req.GetFields()["max_frames"].GetNumberValue())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ctx := stream.Context()
	for sent := 0; maxFrames <= 0 || sent < maxFrames; sent++ {
		if err := stream.Send(levelList(s.mgr.Poll())); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-s.shutdown:
			return status.Error(codes.Unavailable, "server shutting down")
		case <-ticker.C:
		}
	}
	return nil
}

func levelList(levels []float32) *structpb.ListValue {
	values := make([]*structpb.Value, len(levels))
	for i, v := range levels {
		values[i] = structpb.NewNumberValue(float64(v))
	}
	return &structpb.ListValue{Values: values}
}

// toStatus maps capture errors to gRPC status codes
func toStatus(err error) error {
	code := codes.Internal
	switch {
	case errors.Is(err, audio.ErrDeviceNotFound):
		code = codes.NotFound
	case errors.Is(err, audio.ErrFormatNegotiation), errors.Is(err, audio.ErrUnsupportedEncoding):
		code = codes.FailedPrecondition
	case errors.Is(err, audio.ErrStreamStart), errors.Is(err, audio.ErrEnumeration):
		code = codes.Unavailable
	case errors.Is(err, capture.ErrStartAborted), errors.Is(err, context.Canceled):
		code = codes.Aborted
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	}
	return status.Error(code, err.Error())
}
