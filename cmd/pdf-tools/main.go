package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/a3tai/pdf-tools/internal/config"
	"github.com/a3tai/pdf-tools/internal/httpapi"
	"github.com/a3tai/pdf-tools/internal/jobs"
	"github.com/a3tai/pdf-tools/internal/logx"
	"github.com/a3tai/pdf-tools/internal/mcp"
	"github.com/a3tai/pdf-tools/internal/metrics"
	"github.com/a3tai/pdf-tools/internal/pdf"
	"github.com/a3tai/pdf-tools/internal/pdf/ocr"
	"github.com/a3tai/pdf-tools/internal/tools"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

func main() {
	cfg, err := config.LoadFromFlags()
	if errors.Is(err, config.ErrVersionRequested) {
		printVersion(os.Stdout)
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logx.Configure(cfg.LogLevel, cfg.IsStdioMode())

	if version != "dev" {
		cfg.Version = version
	}
	cfg.Commit = gitCommit

	logx.Log.Debug().Str("config", cfg.String()).Msg("starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logx.Log.Error().Err(err).Msg("server stopped with error")
		os.Exit(1)
	}
	logx.Log.Info().Msg("server stopped")
}

// run wires the components for the configured mode and blocks until ctx ends
func run(ctx context.Context, cfg *config.Config) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics.Register(reg)
	metrics.SetBuildInfo(cfg.Version, cfg.Commit)

	service, err := pdf.NewService(cfg.MaxFileSize, cfg.PDFDirectory, cfg.OutputDirectory)
	if err != nil {
		return fmt.Errorf("failed to create PDF service: %w", err)
	}
	if err := service.ValidateConfiguration(); err != nil {
		return err
	}

	dispatcher := tools.NewDispatcher(ocr.NewTesseractEngine(), cfg.OCRLanguage)

	mcpServer, err := mcp.NewServer(cfg, service, dispatcher)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	if cfg.IsStdioMode() {
		return mcpServer.Run(ctx)
	}

	store, err := newJobStore(ctx, cfg)
	if err != nil {
		return err
	}
	manager := jobs.NewManager(store, dispatcher, cfg.MaxJobs)
	defer func() {
		if err := manager.Close(); err != nil {
			logx.Log.Warn().Err(err).Msg("close job store")
		}
	}()

	handler := httpapi.New(httpapi.Deps{
		Service:        service,
		Dispatcher:     dispatcher,
		Jobs:           manager,
		MCP:            mcpServer.Handler(),
		Gatherer:       reg,
		AllowedOrigins: cfg.AllowedOrigins,
	})
	return httpapi.ListenAndServe(ctx, cfg.Address(), handler)
}

// newJobStore keeps jobs in Redis when configured, in memory otherwise
func newJobStore(ctx context.Context, cfg *config.Config) (jobs.Store, error) {
	if cfg.RedisURL == "" {
		return jobs.NewMemoryStore(cfg.JobTTL), nil
	}
	store, err := jobs.NewRedisStore(ctx, cfg.RedisURL, cfg.JobTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect job store: %w", err)
	}
	logx.Log.Info().Msg("using redis job store")
	return store, nil
}

// printVersion prints version information
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "pdf-tools\n")
	fmt.Fprintf(w, "Version: %s\n", version)
	fmt.Fprintf(w, "Build Time: %s\n", buildTime)
	fmt.Fprintf(w, "Git Commit: %s\n", gitCommit)
	fmt.Fprintf(w, "Built with: %s\n", runtime.Version())
}
