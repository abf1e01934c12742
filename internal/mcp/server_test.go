package mcp

import (
	"context"
	"encoding/json"
	"sort"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moolen/riskgraph/internal/engine"
	"github.com/moolen/riskgraph/internal/graph"
	"github.com/moolen/riskgraph/internal/graph/graphtest"
	"github.com/moolen/riskgraph/internal/riskerr"
)

// Saturday 2026-10-17 12:00 UTC.
var fixedNow = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) *RiskServer {
	t.Helper()
	store := graphtest.New(t).
		Resource("db-1", graph.TypeDatabase, graph.Attributes{"estimated_users": 50}).
		Resource("api-1", graph.TypeCompute, nil).
		Resource("loop-a", graph.TypeCompute, nil).
		Resource("loop-b", graph.TypeCompute, nil).
		Depends("api-1", "db-1", graph.DependencyRequired).
		Depends("loop-a", "loop-b", graph.DependencyRequired).
		Depends("loop-b", "loop-a", graph.DependencyRequired).
		Store()

	clock := func() time.Time { return fixedNow }
	eng, err := engine.New(store, engine.DefaultSettings(), engine.WithClock(clock))
	require.NoError(t, err)
	return NewRiskServer(eng, ServerOptions{Version: "test", Now: clock})
}

func callTool(t *testing.T, s *RiskServer, name string, args map[string]interface{}) (string, bool) {
	t.Helper()
	tool, ok := s.tools[name]
	require.True(t, ok, "tool %s not registered", name)

	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args

	result, err := s.createToolHandler(name, tool)(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text, result.IsError
}

func TestRiskServer_RegistersEveryTool(t *testing.T) {
	names := newTestServer(t).ToolNames()
	sort.Strings(names)

	assert.Equal(t, []string{
		"analyze_root_cause",
		"analyze_trend",
		"assess_risk",
		"blast_radius",
		"cost_impact",
		"list_cycles",
		"list_spofs",
		"resolve_dependencies",
		"time_aware_risk",
	}, names)
}

func TestRiskServer_Tools(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name      string
		tool      string
		args      map[string]interface{}
		wantError bool
		want      string
	}{
		{name: "assess", tool: "assess_risk", args: map[string]interface{}{"resource_id": "db-1"}, want: `"resource_id": "db-1"`},
		{name: "assess comprehensive", tool: "assess_risk", args: map[string]interface{}{"resource_id": "db-1", "comprehensive": true}, want: `"spof"`},
		{name: "assess missing id", tool: "assess_risk", args: map[string]interface{}{}, wantError: true, want: "InvalidParameter: "},
		{name: "assess unknown id", tool: "assess_risk", args: map[string]interface{}{"resource_id": "nope"}, wantError: true, want: "NotFound: "},
		{name: "blast", tool: "blast_radius", args: map[string]interface{}{"resource_id": "db-1"}, want: `"api-1"`},
		{name: "spofs", tool: "list_spofs", args: map[string]interface{}{"limit": 1}, want: `"spofs"`},
		{name: "spofs negative limit", tool: "list_spofs", args: map[string]interface{}{"limit": -1}, wantError: true, want: "InvalidParameter: "},
		{name: "cycles", tool: "list_cycles", args: map[string]interface{}{"resource_id": "loop-a"}, want: `"loop-b"`},
		{name: "resolve", tool: "resolve_dependencies", args: map[string]interface{}{"resource_id": "api-1", "direction": "upstream"}, want: `"db-1"`},
		{name: "resolve bad direction", tool: "resolve_dependencies", args: map[string]interface{}{"resource_id": "api-1", "direction": "left"}, wantError: true, want: "InvalidParameter: "},
		{name: "time aware", tool: "time_aware_risk", args: map[string]interface{}{"resource_id": "db-1", "deployment_time": "now+1d"}, want: `"optimal_windows"`},
		{name: "time aware bad time", tool: "time_aware_risk", args: map[string]interface{}{"resource_id": "db-1", "deployment_time": "-1"}, wantError: true, want: "InvalidParameter: "},
		{name: "cost", tool: "cost_impact", args: map[string]interface{}{"resource_id": "db-1", "downtime_hours": 2.5}, want: `"total_cost"`},
		{name: "cost bad industry", tool: "cost_impact", args: map[string]interface{}{"resource_id": "db-1", "industry": "piracy"}, wantError: true, want: "InvalidParameter: "},
		{name: "cost negative hours", tool: "cost_impact", args: map[string]interface{}{"resource_id": "db-1", "downtime_hours": -1}, wantError: true, want: "InvalidParameter: "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, isError := callTool(t, s, tt.tool, tt.args)
			assert.Equal(t, tt.wantError, isError, text)
			assert.Contains(t, text, tt.want)
		})
	}
}

func TestRiskServer_AnalyzeTrend(t *testing.T) {
	s := newTestServer(t)
	var snaps []interface{}
	for i, score := range []float64{20, 22, 25, 30, 34, 40} {
		snaps = append(snaps, map[string]interface{}{
			"timestamp": fixedNow.AddDate(0, 0, i-6).Format(time.RFC3339),
			"score":     score,
		})
	}

	text, isError := callTool(t, s, "analyze_trend", map[string]interface{}{
		"resource_id": "db-1",
		"snapshots":   snaps,
	})
	require.False(t, isError, text)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text), &out))
	assert.Equal(t, "db-1", out["resource_id"])
	assert.Equal(t, "degrading", out["direction"])
}

func TestRiskServer_AnalyzeRootCause(t *testing.T) {
	s := newTestServer(t)

	text, isError := callTool(t, s, "analyze_root_cause", map[string]interface{}{
		"resource_id": "api-1",
		"window": map[string]interface{}{
			"start": fixedNow.Add(-time.Hour).Format(time.RFC3339),
			"end":   fixedNow.Format(time.RFC3339),
		},
		"deployments": []interface{}{
			map[string]interface{}{"resource_id": "db-1", "timestamp": fixedNow.Add(-20 * time.Minute).Format(time.RFC3339)},
		},
	})
	require.False(t, isError, text)
	assert.Contains(t, text, `"candidates"`)

	text, isError = callTool(t, s, "analyze_root_cause", map[string]interface{}{
		"resource_id": "api-1",
		"window":      map[string]interface{}{"start": fixedNow.Format(time.RFC3339), "end": fixedNow.Format(time.RFC3339)},
		"anomalies":   []interface{}{map[string]interface{}{"resource_id": "db-1", "score": 3}},
	})
	assert.True(t, isError)
	assert.Contains(t, text, "InvalidParameter: ")
}

type slowTool struct{}

func (slowTool) Execute(ctx context.Context, _ json.RawMessage) (interface{}, error) {
	return map[string]int{"scanned": 3}, riskerr.Wrap(riskerr.KindTimeout, context.DeadlineExceeded, "scan did not complete")
}

func TestRiskServer_TimeoutCarriesPartialResult(t *testing.T) {
	s := newTestServer(t)

	var req mcp.CallToolRequest
	req.Params.Name = "slow"
	result, err := s.createToolHandler("slow", slowTool{})(context.Background(), req)
	require.NoError(t, err)
	require.True(t, result.IsError)

	text := result.Content[0].(mcp.TextContent).Text
	assert.Contains(t, text, "Timeout: ")
	assert.Contains(t, text, `"scanned": 3`)
}
