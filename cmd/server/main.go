package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/emmett/audioscope/internal/app"
	"github.com/emmett/audioscope/internal/config"
	"github.com/emmett/audioscope/internal/logging"
	"github.com/emmett/audioscope/internal/metrics"
	grpcserver "github.com/emmett/audioscope/internal/server/grpc"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
	GitBranch = "unknown"
)

var (
	configFile  = flag.String("config", "", "Path to configuration file (default: ~/.audioscoperc or /etc/audioscope/config.yaml)")
	port        = flag.Int("port", 0, "gRPC server port (default from config: 50051)")
	metricsAddr = flag.String("metrics-addr", "", "Prometheus listen address, empty to use config (default :9090)")
	showVersion = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("Audioscope gRPC Server v%s\n", Version)
		fmt.Printf("  Commit:  %s\n", GitCommit)
		fmt.Printf("  Branch:  %s\n", GitBranch)
		fmt.Printf("  Built:   %s\n", BuildTime)
		os.Exit(0)
	}

	fmt.Printf("Audioscope gRPC Server v%s (commit: %s)\n", Version, GitCommit)

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadWithFallback(*configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}
	if *metricsAddr != "" {
		cfg.Server.MetricsAddr = *metricsAddr
	}

	logger, closeLog, err := logging.New(logging.Options{
		Level: cfg.Logging.Level,
		File:  cfg.Logging.File,
		JSON:  cfg.Logging.JSON,
	})
	if err != nil {
		return err
	}
	defer closeLog()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	mgr, release, err := app.NewManager(cfg, m, logger)
	if err != nil {
		return err
	}
	defer release()

	server := grpcserver.NewServer(grpcserver.Config{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		StreamInterval: cfg.Snapshot.Interval,
	}, mgr, m, logger)

	metricsServer := &http.Server{
		Addr:              cfg.Server.MetricsAddr,
		Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", metricsServer.Addr).Msg("Metrics endpoint listening")
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("Metrics endpoint failed")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start()
	}()

	select {
	case <-ctx.Done():
		fmt.Println("\nShutting down...")
	case err = <-errChan:
	}

	server.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	metricsServer.Shutdown(shutdownCtx)
	if cerr := mgr.Close(shutdownCtx); cerr != nil {
		logger.Warn().Err(cerr).Msg("Capture session did not exit cleanly")
	}

	if err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
