package apiserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/moolen/riskgraph/internal/api/response"
	"github.com/moolen/riskgraph/internal/config"
	"github.com/moolen/riskgraph/internal/engine"
	"github.com/moolen/riskgraph/internal/logging"
)

// ReadinessChecker is an interface for checking component readiness
type ReadinessChecker interface {
	IsReady() bool
}

// NoOpReadinessChecker is a ReadinessChecker that always returns true.
type NoOpReadinessChecker struct{}

// IsReady always returns true for the no-op checker.
func (n *NoOpReadinessChecker) IsReady() bool {
	return true
}

// Server serves the /v1 analysis API, health probes, metrics and the MCP
// endpoint.
type Server struct {
	config           config.ServerConfig
	server           *http.Server
	logger           *logging.Logger
	engine           *engine.Engine
	router           *http.ServeMux
	registry         *prometheus.Registry
	readinessChecker ReadinessChecker
	tracerProvider   trace.TracerProvider
	mcpServer        *server.MCPServer

	mu       sync.Mutex
	listener net.Listener
}

// Option configures optional server dependencies.
type Option func(*Server)

// WithRegistry exposes registry at /metrics.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(s *Server) { s.registry = registry }
}

// WithReadinessChecker sets the /ready probe.
func WithReadinessChecker(checker ReadinessChecker) Option {
	return func(s *Server) { s.readinessChecker = checker }
}

// WithTracerProvider sets where handler spans go. Defaults to the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Server) { s.tracerProvider = tp }
}

// WithMCPServer mounts mcpServer at /v1/mcp.
func WithMCPServer(mcpServer *server.MCPServer) Option {
	return func(s *Server) { s.mcpServer = mcpServer }
}

// New creates the API server. Routes are registered immediately; the
// listener opens in Start.
func New(cfg config.ServerConfig, eng *engine.Engine, opts ...Option) *Server {
	s := &Server{
		config:           cfg,
		logger:           logging.GetLogger("api"),
		engine:           eng,
		router:           http.NewServeMux(),
		readinessChecker: &NoOpReadinessChecker{},
		tracerProvider:   otel.GetTracerProvider(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.registerHandlers()
	s.configureHTTPServer()
	return s
}

// configureHTTPServer creates the HTTP server with middleware and the configured timeouts
func (s *Server) configureHTTPServer() {
	handler := s.corsMiddleware(s.requestMiddleware(s.rateLimitMiddleware(s.router)))

	s.server = &http.Server{
		Addr:              s.config.Address,
		Handler:           handler,
		ReadTimeout:       s.config.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.config.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}
}

// Handler returns the root handler including middleware.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// registerMCPHandler adds MCP endpoint to the router
func (s *Server) registerMCPHandler() {
	if s.mcpServer == nil {
		s.logger.Debug("MCP server not configured, skipping /v1/mcp endpoint")
		return
	}

	endpointPath := "/v1/mcp"
	streamableServer := server.NewStreamableHTTPServer(
		s.mcpServer,
		server.WithEndpointPath(endpointPath),
		server.WithStateLess(true),
	)
	s.router.Handle(endpointPath, streamableServer)
	s.logger.Info("MCP endpoint registered at %s", endpointPath)
}

// Start implements the lifecycle.Component interface.
// It binds the listener synchronously so address errors surface here.
func (s *Server) Start(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	ln, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error: %v", err)
		}
	}()

	s.logger.Info("API server listening on %s", ln.Addr())
	return nil
}

// Stop implements the lifecycle.Component interface
// Gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	done := make(chan error, 1)
	go func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		done <- s.server.Shutdown(shutdownCtx)
	}()

	select {
	case err := <-done:
		if err != nil {
			s.logger.Error("HTTP server shutdown error: %v", err)
			return err
		}
		s.logger.Info("API server stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("API server shutdown timeout")
		return ctx.Err()
	}
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Address
}

// Name implements the lifecycle.Component interface
func (s *Server) Name() string {
	return "API Server"
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = response.WriteSuccess(w, map[string]interface{}{
		"status": "healthy",
	})
}

// handleReady handles readiness check requests
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ready := s.readinessChecker != nil && s.readinessChecker.IsReady()

	w.Header().Set("Content-Type", "application/json")
	if ready {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = response.WriteJSON(w, map[string]interface{}{
		"ready": ready,
	})
}
