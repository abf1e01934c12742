package handlers

import (
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"github.com/moolen/riskgraph/internal/engine"
	"github.com/moolen/riskgraph/internal/logging"
)

// RegisterHandlers registers every /v1 analysis endpoint on router.
// withMethod rejects requests with any other method.
func RegisterHandlers(
	router *http.ServeMux,
	eng *engine.Engine,
	logger *logging.Logger,
	tracer trace.Tracer,
	opts Options,
	withMethod func(string, http.HandlerFunc) http.HandlerFunc,
) {
	graphHandler := NewGraphHandler(eng, logger, tracer, opts)
	timingHandler := NewTimeAwareRiskHandler(eng, logger, tracer, opts)
	costHandler := NewCostHandler(eng, logger, tracer, opts)
	trendHandler := NewTrendHandler(eng, logger, tracer, opts)
	rootCauseHandler := NewRootCauseHandler(eng, logger, tracer, opts)

	router.HandleFunc("/v1/risk", withMethod(http.MethodGet, graphHandler.Risk))
	router.HandleFunc("/v1/blast-radius", withMethod(http.MethodGet, graphHandler.BlastRadius))
	router.HandleFunc("/v1/dependencies", withMethod(http.MethodGet, graphHandler.Dependencies))
	router.HandleFunc("/v1/spofs", withMethod(http.MethodGet, graphHandler.SPOFs))
	router.HandleFunc("/v1/cycles", withMethod(http.MethodGet, graphHandler.Cycles))
	router.HandleFunc("/v1/time-aware-risk", withMethod(http.MethodGet, timingHandler.Handle))
	router.HandleFunc("/v1/cost-impact", withMethod(http.MethodGet, costHandler.Handle))
	router.HandleFunc("/v1/trend", withMethod(http.MethodPost, trendHandler.Handle))
	router.HandleFunc("/v1/root-cause", withMethod(http.MethodPost, rootCauseHandler.Handle))

	logger.Info("Registered /v1 analysis endpoints")
}
