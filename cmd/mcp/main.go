package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/emmett/audioscope/internal/app"
	"github.com/emmett/audioscope/internal/config"
	"github.com/emmett/audioscope/internal/logging"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
	GitBranch = "unknown"
)

var (
	configFile  = flag.String("config", "", "Path to configuration file (default: ~/.audioscoperc or /etc/audioscope/config.yaml)")
	showVersion = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("Audioscope MCP v%s\n", Version)
		fmt.Printf("  Commit:  %s\n", GitCommit)
		fmt.Printf("  Branch:  %s\n", GitBranch)
		fmt.Printf("  Built:   %s\n", BuildTime)
		os.Exit(0)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "MCP server error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadWithFallback(*configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// stdout carries the protocol, logs go to stderr and the optional file
	logger, closeLog, err := logging.New(logging.Options{
		Level: cfg.Logging.Level,
		File:  cfg.Logging.File,
		JSON:  cfg.Logging.JSON,
	})
	if err != nil {
		return err
	}
	defer closeLog()

	mgr, release, err := app.NewManager(cfg, nil, logger)
	if err != nil {
		return err
	}
	defer release()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handler := app.NewMCPHandler(mgr, nil, logger, cfg.MCP.Name, Version, GitCommit, *configFile)
	return handler.Run(ctx)
}
