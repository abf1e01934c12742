package handlers

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/moolen/riskgraph/internal/engine"
	"github.com/moolen/riskgraph/internal/logging"
	"github.com/moolen/riskgraph/internal/trend"
)

// TrendRequest is the body of POST /v1/trend.
type TrendRequest struct {
	ResourceID  string           `json:"resource_id,omitempty"`
	Snapshots   []trend.Snapshot `json:"snapshots" validate:"dive"`
	HorizonDays int              `json:"horizon_days" validate:"gte=0"`
}

// TrendHandler serves POST /v1/trend.
type TrendHandler struct {
	base
}

// NewTrendHandler creates the handler.
func NewTrendHandler(eng *engine.Engine, logger *logging.Logger, tracer trace.Tracer, opts Options) *TrendHandler {
	return &TrendHandler{base: newBase(eng, logger, tracer, opts)}
}

// Handle analyzes the posted score history.
func (h *TrendHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.startSpan(r.Context(), "trend")

	var req TrendRequest
	if err := h.decodeBody(w, r, &req); err != nil {
		h.respond(w, span, nil, err)
		return
	}
	span.SetAttributes(attribute.Int("snapshots", len(req.Snapshots)))

	for i := range req.Snapshots {
		if req.Snapshots[i].ResourceID == "" {
			req.Snapshots[i].ResourceID = req.ResourceID
		}
	}
	result, err := h.engine.AnalyzeTrend(ctx, req.Snapshots, trend.Options{HorizonDays: req.HorizonDays})
	if result != nil && result.ResourceID == "" {
		result.ResourceID = req.ResourceID
	}
	h.respond(w, span, result, err)
}
