// Package server provides the HTTP server of the query analyzer.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"iqtoolkit/analyzer/pkg/analyzer"
	"iqtoolkit/analyzer/pkg/config"
	"iqtoolkit/analyzer/pkg/proxy"
	"iqtoolkit/analyzer/pkg/proxy/handlers"
	"iqtoolkit/analyzer/pkg/proxy/middleware"
	"iqtoolkit/analyzer/pkg/telemetry/health"
	"iqtoolkit/analyzer/pkg/telemetry/metrics"
	"iqtoolkit/analyzer/pkg/telemetry/tracing"
)

// DefaultShutdownTimeout bounds graceful shutdown when none is configured.
const DefaultShutdownTimeout = 30 * time.Second

// VersionInfo is reported by GET /version.
type VersionInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// Server is the HTTP front end of an analyzer.Service.
type Server struct {
	config     config.ServerConfig
	metrics    config.MetricsConfig
	service    *analyzer.Service
	collector  *metrics.Collector
	version    VersionInfo
	httpServer *http.Server
	listener   net.Listener

	mu           sync.RWMutex
	isRunning    bool
	shutdownOnce sync.Once
}

// New creates a server. collector may be nil when metrics are disabled.
func New(cfg *config.Config, service *analyzer.Service, collector *metrics.Collector, version VersionInfo) *Server {
	return &Server{
		config:    cfg.Server,
		metrics:   cfg.Telemetry.Metrics,
		service:   service,
		collector: collector,
		version:   version,
	}
}

// Start listens on the configured address and serves until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}

	listener, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddress, err)
	}

	s.listener = listener
	s.httpServer = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
	s.isRunning = true
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		slog.Info("starting analyzer server",
			"address", listener.Addr().String(),
			"api_key_enabled", s.config.APIKeyEnabled,
			"metrics_enabled", s.collector != nil && s.metrics.IsEnabled(),
			"history_enabled", s.service.History() != nil,
		)

		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		return err
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		timeout := s.config.ShutdownTimeout
		if timeout <= 0 {
			timeout = DefaultShutdownTimeout
		}
		slog.Info("initiating graceful shutdown", "timeout", timeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		slog.Info("analyzer server stopped")
	})

	return shutdownErr
}

// Addr returns the bound listener address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler builds the router with its middleware chain.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RecoveryMiddleware)
	r.Use(middleware.RequestIDMiddleware)
	r.Use(tracing.Middleware)
	r.Use(middleware.LoggingMiddleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		proxy.WriteError(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		proxy.WriteError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	// Probes and metrics stay unauthenticated.
	r.Get("/health", s.withHealth((*health.Aggregator).LivenessHandler))
	r.Get("/ready", s.withHealth((*health.Aggregator).ReadinessHandler))
	r.Get("/health/providers", s.withHealth((*health.Aggregator).ProvidersHandler))
	r.Get("/version", health.VersionHandler(s.version.Version, s.version.Commit, s.version.BuildTime))

	if s.collector != nil && s.metrics.IsEnabled() {
		path := s.metrics.Path
		if path == "" {
			path = config.DefaultMetricsPath
		}
		r.Handle(path, s.collector.Handler())
	}

	r.Group(func(r chi.Router) {
		apiKey := ""
		if s.config.APIKeyEnabled {
			apiKey = s.config.APIKey
		}
		r.Use(middleware.APIKeyMiddleware(apiKey))
		r.Use(middleware.TimeoutMiddleware(s.config.RequestTimeout))

		r.Method(http.MethodPost, "/analyze/query", handlers.NewAnalyzeHandler(s.service, s.config.MaxBodyBytes))

		if store := s.service.History(); store != nil {
			h := handlers.NewHistoryHandler(store)
			r.Get("/analyses", h.List)
			r.Get("/analyses/{id}", h.Get)
		}
	})

	return r
}

// withHealth resolves the aggregator per request so a reloaded engine is
// probed instead of the one present at startup.
func (s *Server) withHealth(h func(*health.Aggregator) http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h(s.service.Health())(w, r)
	}
}
