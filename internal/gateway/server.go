// Package gateway is the HTTP surface of canvasd: the command endpoint, the
// administrative reload/stats/session endpoints, health, and metrics.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/collabcanvas/canvasd/internal/agent"
	"github.com/collabcanvas/canvasd/internal/observability"
	"github.com/collabcanvas/canvasd/internal/sessions"
)

// Config holds the HTTP listener settings.
type Config struct {
	Host        string
	Port        int
	CORSOrigins []string
}

// Server routes HTTP requests to the command executor and the agent manager.
type Server struct {
	config   Config
	executor *agent.CommandExecutor
	manager  *agent.Manager
	sessions *sessions.Store

	// configured reports whether an LLM provider credential is present.
	// Commands are rejected with 503 when it returns false.
	configured func() bool

	logger  *observability.Logger
	metrics *observability.Metrics

	httpServer *http.Server
}

// Options carries the dependencies for NewServer. Configured may be nil,
// which is treated as always configured.
type Options struct {
	Config     Config
	Executor   *agent.CommandExecutor
	Manager    *agent.Manager
	Sessions   *sessions.Store
	Configured func() bool
	Logger     *observability.Logger
	Metrics    *observability.Metrics
}

// NewServer creates the HTTP server.
func NewServer(opts Options) *Server {
	configured := opts.Configured
	if configured == nil {
		configured = func() bool { return true }
	}
	return &Server{
		config:     opts.Config,
		executor:   opts.Executor,
		manager:    opts.Manager,
		sessions:   opts.Sessions,
		configured: configured,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
	}
}

// Handler builds the full route table with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/ai/command", s.handleCommand)
	mux.HandleFunc("POST /api/ai/reload", s.handleReload)
	mux.HandleFunc("GET /api/ai/stats", s.handleStats)
	mux.HandleFunc("DELETE /api/ai/sessions/{id}", s.handleSessionDelete)

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /{$}", s.handleRoot)

	return s.corsMiddleware(s.observeMiddleware(mux))
}

// Start listens and serves until the context is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("http listen: %w", err)
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	if s.logger != nil {
		s.logger.Info(ctx, "starting http server", "addr", addr)
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		if s.logger != nil {
			s.logger.Warn(ctx, "http server shutdown error", "error", err)
		}
		return err
	}
	return <-errCh
}
