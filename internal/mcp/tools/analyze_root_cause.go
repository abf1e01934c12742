package tools

import (
	"context"
	"encoding/json"

	"github.com/moolen/riskgraph/internal/engine"
	"github.com/moolen/riskgraph/internal/rootcause"
)

// AnalyzeRootCauseTool ranks candidate causes for an incident.
type AnalyzeRootCauseTool struct {
	engine *engine.Engine
}

// NewAnalyzeRootCauseTool creates the tool.
func NewAnalyzeRootCauseTool(eng *engine.Engine) *AnalyzeRootCauseTool {
	return &AnalyzeRootCauseTool{engine: eng}
}

// Execute correlates the supplied events with the dependency graph.
func (t *AnalyzeRootCauseTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	var params rootcause.Input
	if err := decodeInput(input, &params); err != nil {
		return nil, err
	}
	return t.engine.AnalyzeRootCause(ctx, params)
}
