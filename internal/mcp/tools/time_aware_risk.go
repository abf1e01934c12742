package tools

import (
	"context"
	"encoding/json"
	"time"

	"github.com/moolen/riskgraph/internal/api/parsing"
	"github.com/moolen/riskgraph/internal/engine"
)

// TimeAwareRiskInput defines the time_aware_risk arguments.
type TimeAwareRiskInput struct {
	ResourceID string `json:"resource_id" validate:"required"`
	// DeploymentTime accepts RFC3339, unix seconds, "now-2h" or phrases
	// such as "tomorrow 2am". Empty means now.
	DeploymentTime string `json:"deployment_time,omitempty"`
	HorizonDays    int    `json:"horizon_days,omitempty" validate:"gte=0"`
}

// TimeAwareRiskTool adjusts a risk score for when a change would land.
type TimeAwareRiskTool struct {
	engine *engine.Engine
	now    func() time.Time
}

// NewTimeAwareRiskTool creates the tool. now resolves relative deployment
// times; nil means time.Now.
func NewTimeAwareRiskTool(eng *engine.Engine, now func() time.Time) *TimeAwareRiskTool {
	if now == nil {
		now = time.Now
	}
	return &TimeAwareRiskTool{engine: eng, now: now}
}

// Execute scores the change window and lists better ones.
func (t *TimeAwareRiskTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	var params TimeAwareRiskInput
	if err := decodeInput(input, &params); err != nil {
		return nil, err
	}
	at, err := parsing.ParseOptionalTime(params.DeploymentTime, "deployment_time", t.now())
	if err != nil {
		return nil, err
	}
	return t.engine.TimeAwareRisk(ctx, params.ResourceID, at, params.HorizonDays)
}
