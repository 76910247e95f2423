package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/emmett/audioscope/internal/capture"
	"github.com/emmett/audioscope/internal/metrics"
	"github.com/emmett/audioscope/internal/server/mcp"
)

// MCPHandler handles MCP server operations
type MCPHandler struct {
	mgr        *capture.Manager
	metrics    *metrics.Metrics
	log        zerolog.Logger
	serverName string
	version    string
	gitCommit  string
	configPath string
	out        io.Writer
}

// NewMCPHandler creates a new MCP handler. Banner and client configuration
// go to stderr so stdout stays reserved for the protocol.
func NewMCPHandler(mgr *capture.Manager, m *metrics.Metrics, logger zerolog.Logger, serverName, version, gitCommit, configPath string) *MCPHandler {
	if serverName == "" {
		serverName = "audioscope"
	}
	return &MCPHandler{
		mgr:        mgr,
		metrics:    m,
		log:        logger,
		serverName: serverName,
		version:    version,
		gitCommit:  gitCommit,
		configPath: configPath,
		out:        os.Stderr,
	}
}

// Run serves MCP over stdin/stdout until ctx is cancelled or the client
// disconnects, then stops any running capture
func (h *MCPHandler) Run(ctx context.Context) error {
	fmt.Fprintf(h.out, "Starting MCP server...\n")
	fmt.Fprintf(h.out, "Protocol: Model Context Protocol (stdio transport)\n")
	fmt.Fprintf(h.out, "Version: %s (commit: %s)\n\n", h.version, h.gitCommit)

	h.printClientConfig()

	server := mcp.NewServer(mcp.Config{
		ServerName:    h.serverName,
		ServerVersion: h.version,
	}, h.mgr, h.metrics, h.log)

	fmt.Fprintf(h.out, "MCP server ready. Listening on stdin/stdout...\n")
	fmt.Fprintf(h.out, "Press Ctrl+C to stop.\n\n")

	err := server.Run(ctx)

	fmt.Fprintf(h.out, "\nShutting down MCP server...\n")
	fmt.Fprintf(h.out, "%s\n", stopCapture(h.mgr))

	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func (h *MCPHandler) printClientConfig() {
	execPath, err := os.Executable()
	if err != nil {
		execPath = "./build/audioscope-mcp"
	}

	args := []string{}
	if h.configPath != "" {
		args = append(args, "--config", h.configPath)
	}

	type MCPServerConfig struct {
		Command string   `json:"command"`
		Args    []string `json:"args"`
	}
	type MCPClientConfig struct {
		MCPServers map[string]MCPServerConfig `json:"mcpServers"`
	}

	clientConfig := MCPClientConfig{
		MCPServers: map[string]MCPServerConfig{
			h.serverName: {
				Command: execPath,
				Args:    args,
			},
		},
	}

	configJSON, err := json.MarshalIndent(clientConfig, "", "  ")
	if err == nil {
		fmt.Fprintf(h.out, "MCP Client Configuration:\n%s\n\n", string(configJSON))
	}
}
