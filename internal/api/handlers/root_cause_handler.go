package handlers

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/moolen/riskgraph/internal/engine"
	"github.com/moolen/riskgraph/internal/logging"
	"github.com/moolen/riskgraph/internal/rootcause"
)

// RootCauseHandler serves POST /v1/root-cause.
type RootCauseHandler struct {
	base
}

// NewRootCauseHandler creates the handler.
func NewRootCauseHandler(eng *engine.Engine, logger *logging.Logger, tracer trace.Tracer, opts Options) *RootCauseHandler {
	return &RootCauseHandler{base: newBase(eng, logger, tracer, opts)}
}

// Handle ranks candidate causes for the posted incident.
func (h *RootCauseHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.startSpan(r.Context(), "root_cause")

	var in rootcause.Input
	if err := h.decodeBody(w, r, &in); err != nil {
		h.respond(w, span, nil, err)
		return
	}
	span.SetAttributes(
		attribute.String("resource.id", in.ResourceID),
		attribute.Int("deployments", len(in.Deployments)),
		attribute.Int("anomalies", len(in.Anomalies)),
	)

	result, err := h.engine.AnalyzeRootCause(ctx, in)
	h.respond(w, span, result, err)
}
