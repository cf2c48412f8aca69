package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ca-srg/aisearch/internal/config"
	"github.com/ca-srg/aisearch/internal/crawler"
	"github.com/ca-srg/aisearch/internal/metrics"
	"github.com/ca-srg/aisearch/internal/observability"
	"github.com/ca-srg/aisearch/internal/realtime"
	"github.com/ca-srg/aisearch/internal/server"
	"github.com/ca-srg/aisearch/internal/store"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the search API server",
	Long: `
The serve command starts the HTTP server that provides:
- POST /api/search     aggregated search across AI platforms
- GET  /api/crawlers   simulated crawler status
- GET  /api/analytics  search analytics (persisted when PERSISTENCE_URL is set)
- GET  /ws, /sse/events live searchAnalytics feed
- GET  /               a minimal dashboard

Example:
  aisearch serve                        # Listen on HOST:PORT (0.0.0.0:3001)
  aisearch serve --port 8080            # Override the port
  PERSISTENCE_URL=sqlite://data/aisearch.db aisearch serve
`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind (overrides HOST)")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to bind (overrides PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := log.New(os.Stdout, "[aisearch] ", log.LstdFlags)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cmd.Flags().Changed("host") {
		cfg.Host = serveHost
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = servePort
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Printf("Received signal: %v", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	shutdownTelemetry, err := observability.Init(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logger.Printf("Warning: telemetry shutdown: %v", err)
		}
	}()
	if err := metrics.InitOTelMetrics(); err != nil {
		logger.Printf("Warning: failed to register metrics: %v", err)
	}

	persistence := openPersistence(ctx, cfg, log.New(os.Stdout, "[store] ", log.LstdFlags))
	defer func() {
		if err := persistence.Close(); err != nil {
			logger.Printf("Warning: failed to close persistence: %v", err)
		}
	}()

	hub := realtime.NewHub(&realtime.Config{
		HeartbeatInterval: cfg.RealtimeHeartbeatInterval,
		BufferSize:        cfg.RealtimeBufferSize,
		MaxClients:        cfg.RealtimeMaxClients,
	}, log.New(os.Stdout, "[realtime] ", log.LstdFlags))
	hub.Start(ctx)
	defer hub.Stop()
	metrics.SetObserverCounter(hub.ClientCount)

	app, err := newCore(cfg.PlatformRegistryFile, cfg.RandomSeed, persistence, hub, logger)
	if err != nil {
		return err
	}
	logger.Printf("Serving %d platforms: %v", app.registry.Len(), app.registry.Names())

	scheduler := crawler.NewScheduler(cfg.CrawlerSnapshotInterval, hub, log.New(os.Stdout, "[scheduler] ", log.LstdFlags))
	scheduler.SetRunFunc(crawler.SnapshotRunFunc(app.simulator, persistence, hub))
	if cfg.CrawlerSnapshotEnabled {
		if err := scheduler.Start(ctx); err != nil {
			return fmt.Errorf("failed to start crawler snapshot scheduler: %w", err)
		}
	}

	srv := server.New(server.ConfigFrom(cfg), app.service, hub, scheduler, log.New(os.Stdout, "[server] ", log.LstdFlags))
	return srv.Run(ctx)
}

// openPersistence opens the configured backend. Failures are logged and the
// server continues without persistence.
func openPersistence(ctx context.Context, cfg *config.Config, logger *log.Logger) *store.BestEffort {
	backend, err := store.Open(ctx, cfg, logger)
	switch {
	case errors.Is(err, store.ErrNotConfigured):
		logger.Println("Persistence disabled (PERSISTENCE_URL not set)")
	case err != nil:
		logger.Printf("Warning: persistence unavailable, continuing without it: %v", err)
	default:
		logger.Printf("Persistence enabled (%s)", backend.Backend())
	}
	return store.NewBestEffort(backend, cfg.PersistenceTimeout, logger)
}
