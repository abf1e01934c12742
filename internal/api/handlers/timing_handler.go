package handlers

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/moolen/riskgraph/internal/api/parsing"
	"github.com/moolen/riskgraph/internal/engine"
	"github.com/moolen/riskgraph/internal/logging"
)

// TimeAwareRiskHandler serves GET /v1/time-aware-risk.
type TimeAwareRiskHandler struct {
	base
}

// NewTimeAwareRiskHandler creates the handler.
func NewTimeAwareRiskHandler(eng *engine.Engine, logger *logging.Logger, tracer trace.Tracer, opts Options) *TimeAwareRiskHandler {
	return &TimeAwareRiskHandler{base: newBase(eng, logger, tracer, opts)}
}

// Handle scores resource_id for a change at deployment_time (default now)
// and lists the best windows within horizon_days.
func (h *TimeAwareRiskHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.startSpan(r.Context(), "time_aware_risk")
	q := r.URL.Query()

	id, err := parsing.RequiredString(q, "resource_id")
	if err != nil {
		h.respond(w, span, nil, err)
		return
	}
	at, err := parsing.ParseOptionalTime(q.Get("deployment_time"), "deployment_time", h.now())
	if err != nil {
		h.respond(w, span, nil, err)
		return
	}
	horizon, err := parsing.OptionalInt(q, "horizon_days", 0)
	if err != nil {
		h.respond(w, span, nil, err)
		return
	}
	span.SetAttributes(attribute.String("resource.id", id), attribute.Int("horizon_days", horizon))

	result, err := h.engine.TimeAwareRisk(ctx, id, at, horizon)
	h.respond(w, span, result, err)
}
