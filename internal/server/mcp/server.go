package mcp

import (
	"context"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/emmett/audioscope/internal/capture"
	"github.com/emmett/audioscope/internal/metrics"
)

type Config struct {
	ServerName    string
	ServerVersion string
}

type Server struct {
	config    Config
	mcpServer *sdk.Server
	mgr       *capture.Manager
	metrics   *metrics.Metrics
	log       zerolog.Logger
}

func NewServer(cfg Config, mgr *capture.Manager, m *metrics.Metrics, logger zerolog.Logger) *Server {
	if cfg.ServerName == "" {
		cfg.ServerName = "audioscope"
	}

	s := &Server{
		config:  cfg,
		mgr:     mgr,
		metrics: m,
		log:     logger.With().Str("component", "mcp").Logger(),
	}

	s.mcpServer = sdk.NewServer(&sdk.Implementation{
		Name:    cfg.ServerName,
		Version: cfg.ServerVersion,
	}, nil)

	s.registerTools()

	return s
}

// Run serves over stdin/stdout until ctx is done or the client disconnects
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &sdk.StdioTransport{})
}

// Connect serves a single session over t, used with in-memory transports
func (s *Server) Connect(ctx context.Context, t sdk.Transport) (*sdk.ServerSession, error) {
	return s.mcpServer.Connect(ctx, t, nil)
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "list_audio_input_devices",
		Description: "List the names of available audio input devices",
	}, observe(s, "list_audio_input_devices", s.handleListDevices))

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "start_audio_capture_with_device",
		Description: "Start capturing audio from the named input device, replacing any running capture",
	}, observe(s, "start_audio_capture_with_device", s.handleStartWithDevice))

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "start_audio_capture",
		Description: "Start demo audio mode without hardware",
	}, observe(s, "start_audio_capture", s.handleStartDemo))

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "stop_audio_capture",
		Description: "Stop the running audio capture",
	}, observe(s, "stop_audio_capture", s.handleStop))

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "get_audio_data",
		Description: "Get a fixed-length snapshot of recent audio levels for visualization",
	}, observe(s, "get_audio_data", s.handleGetAudioData))

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "get_capture_status",
		Description: "Report the capture lifecycle state, session details and ingest counters",
	}, observe(s, "get_capture_status", s.handleStatus))
}

// observe records metrics and logs failures for a tool handler
func observe[In, Out any](s *Server, name string, h sdk.ToolHandlerFor[In, Out]) sdk.ToolHandlerFor[In, Out] {
	return func(ctx context.Context, req *sdk.CallToolRequest, args In) (*sdk.CallToolResult, Out, error) {
		started := time.Now()
		res, out, err := h(ctx, req, args)
		s.metrics.ObserveRequest("mcp", name, err, started)
		if err != nil {
			s.log.Warn().Err(err).Str("tool", name).Msg("Tool call failed")
		}
		return res, out, err
	}
}
