package grpc

import (
	"context"
	"errors"
	"io"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client is a typed client for the capture service
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an established connection
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// ListDevices returns the device names known to the server
func (c *Client) ListDevices(ctx context.Context) ([]string, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, fullMethod("ListDevices"), &emptypb.Empty{}, out); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(out.GetValues()))
	for _, v := range out.GetValues() {
		names = append(names, v.GetStringValue())
	}
	return names, nil
}

// StartCapture starts capture on device and returns the confirmation
func (c *Client) StartCapture(ctx context.Context, device, format string) (string, error) {
	req, err := structpb.NewStruct(map[string]any{"device": device, "format": format})
	if err != nil {
		return "", err
	}
	return c.invokeString(ctx, "StartCapture", req)
}

// StartDemo starts the demo backend and returns the confirmation
func (c *Client) StartDemo(ctx context.Context) (string, error) {
	return c.invokeString(ctx, "StartDemo", &emptypb.Empty{})
}

// StopCapture stops capture and returns the confirmation
func (c *Client) StopCapture(ctx context.Context) (string, error) {
	return c.invokeString(ctx, "StopCapture", &emptypb.Empty{})
}

func (c *Client) invokeString(ctx context.Context, method string, req any) (string, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, fullMethod(method), req, out); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}

// GetAudioData returns one poll frame
func (c *Client) GetAudioData(ctx context.Context) ([]float32, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, fullMethod("GetAudioData"), &emptypb.Empty{}, out); err != nil {
		return nil, err
	}
	return levels(out), nil
}

// GetStatus returns the server's status document
func (c *Client) GetStatus(ctx context.Context) (map[string]any, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod("GetStatus"), &emptypb.Empty{}, out); err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}

// StreamAudioData calls onFrame for each pushed frame until the stream
// ends, ctx is cancelled or onFrame returns false
func (c *Client) StreamAudioData(ctx context.Context, interval time.Duration, maxFrames int, onFrame func([]float32) bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := c.cc.NewStream(ctx, &CaptureServiceDesc.Streams[0], fullMethod("StreamAudioData"))
	if err != nil {
		return err
	}

	req, err := structpb.NewStruct(map[string]any{
		"interval_ms": float64(interval.Milliseconds()),
		"max_frames":  float64(maxFrames),
	})
	if err != nil {
		return err
	}
	if err := stream.SendMsg(req); err != nil {
		return err
	}
	if err := stream.CloseSend(); err != nil {
		return err
	}

	for {
		frame := new(structpb.ListValue)
		if err := stream.RecvMsg(frame); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if !onFrame(levels(frame)) {
			return nil
		}
	}
}

func levels(list *structpb.ListValue) []float32 {
	out := make([]float32, len(list.GetValues()))
	for i, v := range list.GetValues() {
		out[i] = float32(v.GetNumberValue())
	}
	return out
}
