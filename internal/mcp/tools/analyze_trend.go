package tools

import (
	"context"
	"encoding/json"

	"github.com/moolen/riskgraph/internal/engine"
	"github.com/moolen/riskgraph/internal/trend"
)

// AnalyzeTrendInput defines the analyze_trend arguments.
type AnalyzeTrendInput struct {
	ResourceID  string           `json:"resource_id,omitempty"`
	Snapshots   []trend.Snapshot `json:"snapshots" validate:"dive"`
	HorizonDays int              `json:"horizon_days,omitempty" validate:"gte=0"`
}

// AnalyzeTrendTool classifies a risk score history.
type AnalyzeTrendTool struct {
	engine *engine.Engine
}

// NewAnalyzeTrendTool creates the tool.
func NewAnalyzeTrendTool(eng *engine.Engine) *AnalyzeTrendTool {
	return &AnalyzeTrendTool{engine: eng}
}

// Execute runs the trend analysis.
func (t *AnalyzeTrendTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	var params AnalyzeTrendInput
	if err := decodeInput(input, &params); err != nil {
		return nil, err
	}
	for i := range params.Snapshots {
		if params.Snapshots[i].ResourceID == "" {
			params.Snapshots[i].ResourceID = params.ResourceID
		}
	}
	result, err := t.engine.AnalyzeTrend(ctx, params.Snapshots, trend.Options{HorizonDays: params.HorizonDays})
	if result != nil && result.ResourceID == "" {
		result.ResourceID = params.ResourceID
	}
	return result, err
}
