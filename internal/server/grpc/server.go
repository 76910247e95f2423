package grpc

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/emmett/audioscope/internal/capture"
	"github.com/emmett/audioscope/internal/metrics"
)

// Server wraps the gRPC server and services
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	addr       string
	log        zerolog.Logger

	// shutdown ends open streams so GracefulStop can drain
	shutdown chan struct{}
	stopOnce sync.Once
}

// Config holds server configuration
type Config struct {
	Host           string
	Port           int
	StreamInterval time.Duration
}

// NewServer creates a gRPC server exposing mgr
func NewServer(cfg Config, mgr *capture.Manager, m *metrics.Metrics, logger zerolog.Logger) *Server {
	logger = logger.With().Str("component", "grpc").Logger()

	s := &Server{
		grpcServer: grpc.NewServer(
			grpc.ChainUnaryInterceptor(observeUnary(m, logger)),
			grpc.ChainStreamInterceptor(observeStream(m, logger)),
		),
		health:   health.NewServer(),
		addr:     net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port)),
		log:      logger,
		shutdown: make(chan struct{}),
	}

	svc := NewCaptureService(mgr, cfg.StreamInterval, logger)
	svc.shutdown = s.shutdown
	RegisterCaptureServer(s.grpcServer, svc)
	healthpb.RegisterHealthServer(s.grpcServer, s.health)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	return s
}

// Start listens on the configured address and serves until Stop
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.Serve(lis)
}

// Serve serves on an existing listener
func (s *Server) Serve(lis net.Listener) error {
	s.log.Info().Str("addr", lis.Addr().String()).Msg("gRPC server listening")
	return s.grpcServer.Serve(lis)
}

// Stop ends open streams and gracefully stops the server. It is safe to
// call more than once.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.shutdown)
		s.health.Shutdown()
		s.grpcServer.GracefulStop()
	})
}

func observeUnary(m *metrics.Metrics, logger zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		started := time.Now()
		resp, err := handler(ctx, req)
		m.ObserveRequest("grpc", info.FullMethod, err, started)
		if err != nil {
			logger.Warn().Err(err).Str("method", info.FullMethod).Msg("Request failed")
		} else {
			logger.Debug().Str("method", info.FullMethod).Dur("took", time.Since(started)).Msg("Request served")
		}
		return resp, err
	}
}

func observeStream(m *metrics.Metrics, logger zerolog.Logger) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		started := time.Now()
		err := handler(srv, ss)
		m.ObserveRequest("grpc", info.FullMethod, err, started)
		logger.Debug().Err(err).Str("method", info.FullMethod).Dur("took", time.Since(started)).Msg("Stream closed")
		return err
	}
}
