package tools

import (
	"context"
	"encoding/json"

	"github.com/moolen/riskgraph/internal/engine"
)

// CostImpactInput defines the cost_impact arguments. Unset optional values
// are derived from the resource and its blast radius.
type CostImpactInput struct {
	ResourceID    string   `json:"resource_id" validate:"required"`
	DowntimeHours *float64 `json:"downtime_hours,omitempty" validate:"omitempty,gte=0"`
	AffectedUsers *int64   `json:"affected_users,omitempty" validate:"omitempty,gte=0"`
	Industry      string   `json:"industry,omitempty"`
	HasSLA        *bool    `json:"has_sla,omitempty"`
	Annual        bool     `json:"annual,omitempty"`
}

// CostImpactTool prices a failure.
type CostImpactTool struct {
	engine *engine.Engine
}

// NewCostImpactTool creates the tool.
func NewCostImpactTool(eng *engine.Engine) *CostImpactTool {
	return &CostImpactTool{engine: eng}
}

// Execute returns a single-incident breakdown, or the annualized risk cost.
func (t *CostImpactTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	var params CostImpactInput
	if err := decodeInput(input, &params); err != nil {
		return nil, err
	}
	req := engine.CostRequest{
		DowntimeHours: params.DowntimeHours,
		AffectedUsers: params.AffectedUsers,
		Industry:      params.Industry,
		HasSLA:        params.HasSLA,
	}
	if params.Annual {
		return t.engine.AnnualRiskCost(ctx, params.ResourceID, req)
	}
	return t.engine.CostImpact(ctx, params.ResourceID, req)
}
