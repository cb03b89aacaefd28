// Package control exposes the harness actions over a small HTTP JSON
// surface, plus health and metrics endpoints for test drivers to scrape.
package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robbyt/go-supervisor/supervisor"

	"github.com/sqlpulse/sqlpulse/internal/harness"
	"github.com/sqlpulse/sqlpulse/internal/metrics"
)

var _ supervisor.Runnable = (*Server)(nil)

// Dispatcher runs a named action and returns its structured result.
// Implemented by harness.Runner.
type Dispatcher interface {
	DispatchAction(ctx context.Context, name string) (harness.Result, error)
}

// Server serves the action endpoint. It implements supervisor.Runnable.
type Server struct {
	addr       string
	dispatcher Dispatcher
	logger     *slog.Logger
	parentCtx  context.Context

	shutdownTimeout time.Duration

	mu         sync.Mutex
	boundAddr  string
	httpServer *http.Server
}

type Option func(*Server)

// WithLogger sets a custom logger for the Server instance.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithContext sets a custom parent context for the Server instance.
func WithContext(ctx context.Context) Option {
	return func(s *Server) {
		s.parentCtx = ctx
	}
}

// New creates a control server listening on addr.
func New(addr string, dispatcher Dispatcher, opts ...Option) (*Server, error) {
	if addr == "" {
		return nil, errors.New("listen address is required")
	}
	if dispatcher == nil {
		return nil, errors.New("action dispatcher is required")
	}

	s := &Server{
		addr:            addr,
		dispatcher:      dispatcher,
		logger:          slog.Default().WithGroup("control.Server"),
		parentCtx:       context.Background(),
		shutdownTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// String implements the supervisor.Runnable interface.
func (s *Server) String() string {
	return "control.Server"
}

// Run implements the supervisor.Runnable interface.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	metrics.Register()

	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.mu.Lock()
	s.httpServer = server
	s.boundAddr = listener.Addr().String()
	s.mu.Unlock()

	s.logger.Info("control endpoint listening", "addr", listener.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-s.parentCtx.Done():
	case <-ctx.Done():
	case err, ok := <-errCh:
		if ok && err != nil {
			return fmt.Errorf("control endpoint failed: %w", err)
		}
		return nil
	}

	s.logger.Info("control endpoint shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down control endpoint: %w", err)
	}
	return nil
}

// Stop implements the supervisor.Runnable interface.
func (s *Server) Stop() {
	s.mu.Lock()
	server := s.httpServer
	s.mu.Unlock()
	if server == nil {
		return
	}

	s.logger.Debug("stopping control endpoint")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("failed to shut down control endpoint", "error", err)
	}
}

// BoundAddr returns the address the server is actually listening on,
// useful when the configured address uses port 0.
func (s *Server) BoundAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.boundAddr
}

// Handler returns the control endpoint routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/actions/{name}", s.handleAction)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	return mux
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	invocation := ""
	if id, err := uuid.NewV4(); err == nil {
		invocation = id.String()
		w.Header().Set("X-Invocation-Id", invocation)
	}
	logger := s.logger.With("action", name, "invocation", invocation)

	result, err := s.dispatcher.DispatchAction(r.Context(), name)
	switch {
	case errors.Is(err, harness.ErrUnknownAction):
		logger.Warn("unknown action requested")
		s.writeJSON(w, http.StatusNotFound, map[string]any{"error": err.Error()})
	case err != nil:
		logger.Error("action failed", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
	default:
		logger.Info("action completed")
		s.writeJSON(w, http.StatusOK, result)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}
