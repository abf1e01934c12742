package apiserver

import (
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/moolen/riskgraph/internal/api/handlers"
)

// registerHandlers registers all HTTP handlers
func (s *Server) registerHandlers() {
	s.registerHTTPHandlers()
	s.registerHealthEndpoints()
	s.registerMetricsEndpoint()
	s.registerMCPHandler()
}

// registerHTTPHandlers registers the /v1 analysis endpoints
func (s *Server) registerHTTPHandlers() {
	handlers.RegisterHandlers(
		s.router,
		s.engine,
		s.logger,
		s.getTracer("riskgraph/api"),
		handlers.Options{MaxBodyBytes: s.config.MaxBodyBytes},
		s.withMethod,
	)
}

// registerHealthEndpoints registers health and readiness check endpoints
func (s *Server) registerHealthEndpoints() {
	s.router.HandleFunc("/health", s.handleHealth)
	s.router.HandleFunc("/ready", s.handleReady)
}

func (s *Server) registerMetricsEndpoint() {
	if s.registry == nil {
		s.logger.Debug("No metrics registry, skipping /metrics endpoint")
		return
	}
	s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		Registry: s.registry,
	}))
}

// getTracer returns a tracer for the given name
func (s *Server) getTracer(name string) trace.Tracer {
	return s.tracerProvider.Tracer(name)
}
