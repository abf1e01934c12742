package handlers

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/moolen/riskgraph/internal/api/parsing"
	"github.com/moolen/riskgraph/internal/dependency"
	"github.com/moolen/riskgraph/internal/engine"
	"github.com/moolen/riskgraph/internal/logging"
	"github.com/moolen/riskgraph/internal/riskerr"
)

// GraphHandler serves the analyses that only need a resource id and the
// graph: risk, blast radius, dependencies, SPOFs and cycles.
type GraphHandler struct {
	base
}

// NewGraphHandler creates the handler.
func NewGraphHandler(eng *engine.Engine, logger *logging.Logger, tracer trace.Tracer, opts Options) *GraphHandler {
	return &GraphHandler{base: newBase(eng, logger, tracer, opts)}
}

// Risk handles GET /v1/risk?resource_id=&comprehensive=.
func (h *GraphHandler) Risk(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.startSpan(r.Context(), "risk")
	q := r.URL.Query()

	id, err := parsing.RequiredString(q, "resource_id")
	if err != nil {
		h.respond(w, span, nil, err)
		return
	}
	comprehensive, err := parsing.OptionalBool(q, "comprehensive", false)
	if err != nil {
		h.respond(w, span, nil, err)
		return
	}
	span.SetAttributes(attribute.String("resource.id", id), attribute.Bool("comprehensive", comprehensive))

	if comprehensive {
		result, err := h.engine.ComprehensiveRisk(ctx, id)
		h.respond(w, span, result, err)
		return
	}
	result, err := h.engine.AssessRisk(ctx, id)
	h.respond(w, span, result, err)
}

// BlastRadius handles GET /v1/blast-radius?resource_id=&simulate=.
func (h *GraphHandler) BlastRadius(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.startSpan(r.Context(), "blast_radius")
	q := r.URL.Query()

	id, err := parsing.RequiredString(q, "resource_id")
	if err != nil {
		h.respond(w, span, nil, err)
		return
	}
	simulate, err := parsing.OptionalBool(q, "simulate", false)
	if err != nil {
		h.respond(w, span, nil, err)
		return
	}
	span.SetAttributes(attribute.String("resource.id", id), attribute.Bool("simulate", simulate))

	if simulate {
		result, err := h.engine.SimulateFailure(ctx, id)
		h.respond(w, span, result, err)
		return
	}
	result, err := h.engine.BlastRadius(ctx, id)
	h.respond(w, span, result, err)
}

// Dependencies handles GET /v1/dependencies?resource_id=&direction=&max_depth=.
func (h *GraphHandler) Dependencies(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.startSpan(r.Context(), "dependencies")
	q := r.URL.Query()

	id, err := parsing.RequiredString(q, "resource_id")
	if err != nil {
		h.respond(w, span, nil, err)
		return
	}
	dir, err := dependency.ParseDirection(q.Get("direction"))
	if err != nil {
		h.respond(w, span, nil, riskerr.InvalidParameter("direction", "%v", err))
		return
	}
	depth, err := parsing.OptionalInt(q, "max_depth", 0)
	if err != nil {
		h.respond(w, span, nil, err)
		return
	}

	result, err := h.engine.ResolveDependencies(ctx, id, dir, depth)
	h.respond(w, span, result, err)
}

// SPOFs handles GET /v1/spofs?type=&provider=&region=&limit=.
func (h *GraphHandler) SPOFs(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.startSpan(r.Context(), "spofs")

	filter, err := parsing.ResourceFilter(r.URL.Query())
	if err != nil {
		h.respond(w, span, nil, err)
		return
	}
	result, err := h.engine.ListSPOFs(ctx, filter)
	h.respond(w, span, result, err)
}

// Cycles handles GET /v1/cycles?resource_id=&type=&provider=&region=.
func (h *GraphHandler) Cycles(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.startSpan(r.Context(), "cycles")
	q := r.URL.Query()

	filter, err := parsing.ResourceFilter(q)
	if err != nil {
		h.respond(w, span, nil, err)
		return
	}
	result, err := h.engine.ListCycles(ctx, q.Get("resource_id"), filter)
	h.respond(w, span, result, err)
}
