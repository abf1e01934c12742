package tools

import (
	"context"
	"encoding/json"

	"github.com/moolen/riskgraph/internal/dependency"
	"github.com/moolen/riskgraph/internal/engine"
	"github.com/moolen/riskgraph/internal/graph"
	"github.com/moolen/riskgraph/internal/riskerr"
)

// ScopeInput narrows a graph-wide scan.
type ScopeInput struct {
	Type     string `json:"type,omitempty"`
	Provider string `json:"provider,omitempty"`
	Region   string `json:"region,omitempty"`
	Limit    int    `json:"limit,omitempty" validate:"gte=0"`
}

func (s ScopeInput) filter() graph.ResourceFilter {
	return graph.ResourceFilter{
		Type:     graph.ResourceType(s.Type),
		Provider: s.Provider,
		Region:   s.Region,
		Limit:    s.Limit,
	}
}

// AssessRiskInput defines the assess_risk arguments.
type AssessRiskInput struct {
	ResourceID    string `json:"resource_id" validate:"required"`
	Comprehensive bool   `json:"comprehensive,omitempty"`
}

// AssessRiskTool scores a resource's failure risk.
type AssessRiskTool struct {
	engine *engine.Engine
}

// NewAssessRiskTool creates the tool.
func NewAssessRiskTool(eng *engine.Engine) *AssessRiskTool {
	return &AssessRiskTool{engine: eng}
}

// Execute runs the assessment.
func (t *AssessRiskTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	var params AssessRiskInput
	if err := decodeInput(input, &params); err != nil {
		return nil, err
	}
	if params.Comprehensive {
		return t.engine.ComprehensiveRisk(ctx, params.ResourceID)
	}
	return t.engine.AssessRisk(ctx, params.ResourceID)
}

// BlastRadiusInput defines the blast_radius arguments.
type BlastRadiusInput struct {
	ResourceID string `json:"resource_id" validate:"required"`
	Simulate   bool   `json:"simulate,omitempty"`
}

// BlastRadiusTool computes what fails with a resource.
type BlastRadiusTool struct {
	engine *engine.Engine
}

// NewBlastRadiusTool creates the tool.
func NewBlastRadiusTool(eng *engine.Engine) *BlastRadiusTool {
	return &BlastRadiusTool{engine: eng}
}

// Execute runs the calculation, or the simulation when requested.
func (t *BlastRadiusTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	var params BlastRadiusInput
	if err := decodeInput(input, &params); err != nil {
		return nil, err
	}
	if params.Simulate {
		return t.engine.SimulateFailure(ctx, params.ResourceID)
	}
	return t.engine.BlastRadius(ctx, params.ResourceID)
}

// ListSPOFsTool lists single points of failure.
type ListSPOFsTool struct {
	engine *engine.Engine
}

// NewListSPOFsTool creates the tool.
func NewListSPOFsTool(eng *engine.Engine) *ListSPOFsTool {
	return &ListSPOFsTool{engine: eng}
}

// Execute scans the scoped resources.
func (t *ListSPOFsTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	var params ScopeInput
	if err := decodeInput(input, &params); err != nil {
		return nil, err
	}
	return t.engine.ListSPOFs(ctx, params.filter())
}

// ListCyclesInput defines the list_cycles arguments.
type ListCyclesInput struct {
	ScopeInput
	ResourceID string `json:"resource_id,omitempty"`
}

// ListCyclesTool finds circular dependencies.
type ListCyclesTool struct {
	engine *engine.Engine
}

// NewListCyclesTool creates the tool.
func NewListCyclesTool(eng *engine.Engine) *ListCyclesTool {
	return &ListCyclesTool{engine: eng}
}

// Execute lists cycles through resource_id, or across the scope.
func (t *ListCyclesTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	var params ListCyclesInput
	if err := decodeInput(input, &params); err != nil {
		return nil, err
	}
	return t.engine.ListCycles(ctx, params.ResourceID, params.filter())
}

// ResolveDependenciesInput defines the resolve_dependencies arguments.
type ResolveDependenciesInput struct {
	ResourceID string `json:"resource_id" validate:"required"`
	Direction  string `json:"direction,omitempty"`
	MaxDepth   int    `json:"max_depth,omitempty"`
}

// ResolveDependenciesTool walks the dependency graph.
type ResolveDependenciesTool struct {
	engine *engine.Engine
}

// NewResolveDependenciesTool creates the tool.
func NewResolveDependenciesTool(eng *engine.Engine) *ResolveDependenciesTool {
	return &ResolveDependenciesTool{engine: eng}
}

// Execute resolves the requested direction.
func (t *ResolveDependenciesTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	var params ResolveDependenciesInput
	if err := decodeInput(input, &params); err != nil {
		return nil, err
	}
	dir, err := dependency.ParseDirection(params.Direction)
	if err != nil {
		return nil, riskerr.InvalidParameter("direction", "%v", err)
	}
	return t.engine.ResolveDependencies(ctx, params.ResourceID, dir, params.MaxDepth)
}
