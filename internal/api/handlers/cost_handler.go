package handlers

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/moolen/riskgraph/internal/api/parsing"
	"github.com/moolen/riskgraph/internal/engine"
	"github.com/moolen/riskgraph/internal/logging"
)

// CostHandler serves GET /v1/cost-impact.
type CostHandler struct {
	base
}

// NewCostHandler creates the handler.
func NewCostHandler(eng *engine.Engine, logger *logging.Logger, tracer trace.Tracer, opts Options) *CostHandler {
	return &CostHandler{base: newBase(eng, logger, tracer, opts)}
}

// Handle prices a failure of resource_id. With annual=true it returns the
// expected yearly cost instead of a single incident.
func (h *CostHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.startSpan(r.Context(), "cost_impact")

	id, req, annual, err := parseCostRequest(r)
	if err != nil {
		h.respond(w, span, nil, err)
		return
	}
	span.SetAttributes(attribute.String("resource.id", id), attribute.Bool("annual", annual))

	if annual {
		result, err := h.engine.AnnualRiskCost(ctx, id, req)
		h.respond(w, span, result, err)
		return
	}
	result, err := h.engine.CostImpact(ctx, id, req)
	h.respond(w, span, result, err)
}

func parseCostRequest(r *http.Request) (string, engine.CostRequest, bool, error) {
	q := r.URL.Query()
	var req engine.CostRequest

	id, err := parsing.RequiredString(q, "resource_id")
	if err != nil {
		return "", req, false, err
	}
	if req.DowntimeHours, err = parsing.OptionalFloatPtr(q, "downtime_hours"); err != nil {
		return "", req, false, err
	}
	if req.AffectedUsers, err = parsing.OptionalInt64Ptr(q, "affected_users"); err != nil {
		return "", req, false, err
	}
	if req.HasSLA, err = parsing.OptionalBoolPtr(q, "has_sla"); err != nil {
		return "", req, false, err
	}
	req.Industry = q.Get("industry")
	annual, err := parsing.OptionalBool(q, "annual", false)
	if err != nil {
		return "", req, false, err
	}
	return id, req, annual, nil
}
