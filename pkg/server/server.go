package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"warden-hq/warden/pkg/config"
	"warden-hq/warden/pkg/hitl"
	"warden-hq/warden/pkg/ledger"
	"warden-hq/warden/pkg/monitor"
	"warden-hq/warden/pkg/rules"
	"warden-hq/warden/pkg/telemetry/metrics"
)

// Deps holds the core components the API serves. Runner is required for
// POST /api/run; LiveRunner and Metrics are optional.
type Deps struct {
	Rules      *rules.Repository
	Reports    monitor.Storage
	Ledger     *ledger.Ledger
	Decisions  *hitl.Store
	Runner     *monitor.Runner
	LiveRunner *monitor.Runner
	Metrics    *metrics.Collector
	Version    string
}

// Server is the Warden HTTP API server.
type Server struct {
	config *config.ServerConfig
	deps   *Deps
	runs   *runCoordinator
	logger *slog.Logger

	httpServer   *http.Server
	startedAt    time.Time
	baseCtx      context.Context
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// NewServer creates the API server. It does not listen until Start.
func NewServer(cfg *config.ServerConfig, deps *Deps) *Server {
	var observe func(*monitor.Report)
	if deps.Metrics != nil {
		observe = deps.Metrics.ObserveRun
	}

	return &Server{
		config: cfg,
		deps:   deps,
		runs:   newRunCoordinator(observe),
		logger: slog.Default().With("component", "server"),
	}
}

// Runs exposes the run coordinator so the live watchdog and the server
// share one single-flight slot.
func (s *Server) Runs() *runCoordinator {
	return s.runs
}

// runContext is the context background runs inherit: the server lifetime
// when serving, context.Background before Start (tests).
func (s *Server) runContext() context.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.baseCtx != nil {
		return s.baseCtx
	}
	return context.Background()
}

// Start starts the HTTP server and blocks until ctx is canceled or the
// listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.startedAt = time.Now().UTC()
	s.baseCtx = ctx
	s.mu.Unlock()

	s.httpServer = &http.Server{
		Addr:           s.config.ListenAddress,
		Handler:        s.Handler(),
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		IdleTimeout:    s.config.IdleTimeout,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("api server listening", "address", s.config.ListenAddress)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context canceled, shutting down")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	}
}

// Shutdown gracefully stops the server, waiting up to the configured
// shutdown timeout for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				s.logger.Error("shutdown failed", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("api server stopped")
	})

	return shutdownErr
}

// IsRunning reports whether the server is serving.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler builds the routed handler with the full middleware chain.
// Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/rules", s.handleRules)
	mux.HandleFunc("GET /api/versions", s.handleVersions)
	mux.HandleFunc("GET /api/versions/{version}", s.handleVersion)
	mux.HandleFunc("GET /api/violations", s.handleViolations)
	mux.HandleFunc("GET /api/audit-log", s.handleAuditLog)
	mux.HandleFunc("POST /api/hitl-decision", s.handleDecision)
	mux.HandleFunc("POST /api/run", s.handleRunTrigger)
	mux.HandleFunc("GET /api/run/status", s.handleRunStatus)

	if s.deps.Metrics != nil {
		path := "/metrics"
		if p := s.deps.Metrics.Path(); p != "" {
			path = p
		}
		mux.Handle("GET "+path, s.deps.Metrics.Handler())
	}

	var handler http.Handler = mux
	handler = corsMiddleware(&s.config.CORS)(handler)
	handler = loggingMiddleware(handler)
	handler = requestIDMiddleware(handler)
	handler = recoveryMiddleware(handler)
	return handler
}
