// Package server exposes the search backend over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ca-srg/aisearch/internal/crawler"
	"github.com/ca-srg/aisearch/internal/realtime"
	"github.com/ca-srg/aisearch/internal/search"
	"github.com/ca-srg/aisearch/internal/types"
)

// Config holds the HTTP server configuration
type Config struct {
	Host               string
	Port               int
	ReadTimeout        time.Duration
	IdleTimeout        time.Duration
	ShutdownTimeout    time.Duration
	RateLimitPerMinute int
	CORSAllowedOrigin  string
}

// ConfigFrom derives the server configuration from the root configuration
func ConfigFrom(cfg *types.Config) *Config {
	return &Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		ReadTimeout:        30 * time.Second,
		IdleTimeout:        120 * time.Second,
		ShutdownTimeout:    15 * time.Second,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		CORSAllowedOrigin:  cfg.CORSAllowedOrigin,
	}
}

// Server serves the search API, the real-time feeds and the dashboard
type Server struct {
	config       *Config
	service      *search.Service
	hub          *realtime.Hub
	scheduler    *crawler.Scheduler
	limiter      *ipRateLimiter
	logger       *log.Logger
	startedAt    time.Time
	baseCtx      context.Context
	httpServer   *http.Server
	shutdownOnce sync.Once
}

// New creates a server. The scheduler may be nil.
func New(config *Config, service *search.Service, hub *realtime.Hub, scheduler *crawler.Scheduler, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.Writer(), "[server] ", log.LstdFlags)
	}

	return &Server{
		config:    config,
		service:   service,
		hub:       hub,
		scheduler: scheduler,
		limiter:   newIPRateLimiter(config.RateLimitPerMinute),
		logger:    logger,
		startedAt: time.Now(),
		baseCtx:   context.Background(),
	}
}

// Run starts the server and blocks until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	s.baseCtx = ctx

	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf("%s:%d", s.config.Host, s.config.Port),
		Handler:     s.Handler(),
		ReadTimeout: s.config.ReadTimeout,
		IdleTimeout: s.config.IdleTimeout,
		// no WriteTimeout: /ws and /sse/events stay open
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Printf("Server listening on http://%s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		return s.shutdown()
	case err := <-errChan:
		return err
	}
}

// shutdown performs graceful shutdown
func (s *Server) shutdown() error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.logger.Println("Shutting down server...")

		if s.scheduler != nil {
			s.scheduler.Stop()
		}
		// disconnect observers first so Shutdown is not held up by open streams
		if s.hub != nil {
			s.hub.Stop()
		}

		ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()

		if err := s.httpServer.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}
	})
	return shutdownErr
}

// Handler returns the full middleware chain and routes
func (s *Server) Handler() http.Handler {
	return s.loggingMiddleware(s.corsMiddleware(s.rateLimitMiddleware(s.setupRoutes())))
}

// setupRoutes configures HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleDashboard)
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(staticFS())))

	mux.HandleFunc("/api/search", s.handleSearch)
	mux.HandleFunc("/api/crawlers", s.handleCrawlers)
	mux.HandleFunc("/api/analytics", s.handleAnalytics)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/scheduler/status", s.handleSchedulerStatus)
	mux.HandleFunc("/api/scheduler/toggle", s.handleSchedulerToggle)
	mux.HandleFunc("/api/scheduler/interval", s.handleSchedulerInterval)

	if s.hub != nil {
		mux.HandleFunc("/sse/events", s.hub.ServeSSE)
		mux.Handle("/ws", realtime.NewWebSocketHandler(s.hub, s.config.CORSAllowedOrigin))
	}

	return mux
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// long-lived and asset requests are too noisy
		skipLog := strings.HasPrefix(r.URL.Path, "/static/") ||
			strings.HasPrefix(r.URL.Path, "/sse/") ||
			r.URL.Path == "/ws"

		next.ServeHTTP(w, r)

		if !skipLog {
			s.logger.Printf("%s %s completed in %v", r.Method, r.URL.Path, time.Since(start))
		}
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := s.config.CORSAllowedOrigin; origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow(clientIP(r)) {
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
