package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully-qualified gRPC service name
const ServiceName = "capture.v1.CaptureService"

// CaptureServer is the server API for the capture service. Messages are
// protobuf well-known types so no generated code is required.
type CaptureServer interface {
	ListDevices(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
	StartCapture(context.Context, *structpb.Struct) (*wrapperspb.StringValue, error)
	StartDemo(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error)
	StopCapture(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error)
	GetAudioData(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
	GetStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	StreamAudioData(*structpb.Struct, AudioDataStream) error
}

// AudioDataStream is the server side of StreamAudioData
type AudioDataStream interface {
	Send(*structpb.ListValue) error
	grpc.ServerStream
}

type audioDataStream struct {
	grpc.ServerStream
}

func (s *audioDataStream) Send(m *structpb.ListValue) error {
	return s.ServerStream.SendMsg(m)
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// unary builds the method descriptor for one unary RPC
func unary[Req any, PReq interface{ *Req }, Resp any](name string, call func(CaptureServer, context.Context, PReq) (Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := PReq(new(Req))
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(CaptureServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(CaptureServer), ctx, req.(PReq))
			})
		},
	}
}

// CaptureServiceDesc describes the capture service for grpc.Server
var CaptureServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CaptureServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("ListDevices", CaptureServer.ListDevices),
		unary("StartCapture", CaptureServer.StartCapture),
		unary("StartDemo", CaptureServer.StartDemo),
		unary("StopCapture", CaptureServer.StopCapture),
		unary("GetAudioData", CaptureServer.GetAudioData),
		unary("GetStatus", CaptureServer.GetStatus),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName: "StreamAudioData",
			Handler: func(srv any, stream grpc.ServerStream) error {
				in := new(structpb.Struct)
				if err := stream.RecvMsg(in); err != nil {
					return err
				}
				return srv.(CaptureServer).StreamAudioData(in, &audioDataStream{stream})
			},
			ServerStreams: true,
		},
	},
}

// RegisterCaptureServer registers srv with s
func RegisterCaptureServer(s grpc.ServiceRegistrar, srv CaptureServer) {
	s.RegisterService(&CaptureServiceDesc, srv)
}
