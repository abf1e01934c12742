package rootcause

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moolen/riskgraph/internal/dependency"
	"github.com/moolen/riskgraph/internal/graph"
	"github.com/moolen/riskgraph/internal/graph/graphtest"
	"github.com/moolen/riskgraph/internal/riskerr"
)

var (
	start = time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC)
	end   = start.Add(30 * time.Minute)
)

// api-1 -> db-1 -> net-1
func newCorrelator(t *testing.T) *Correlator {
	store := graphtest.New(t).
		Resource("api-1", graph.TypeCompute, nil).
		Resource("db-1", graph.TypeDatabase, nil).
		Resource("net-1", graph.TypeNetwork, nil).
		Depends("api-1", "db-1", graph.DependencyRequired).
		Depends("db-1", "net-1", graph.DependencyRequired).
		Store()
	c := NewCorrelator(dependency.NewResolver(store, dependency.DefaultConfig()), DefaultConfig())
	c.now = func() time.Time { return end }
	return c
}

func input() Input {
	return Input{ResourceID: "api-1", Window: Window{Start: start, End: end}}
}

func TestAnalyze_UpstreamDeploymentOutranksExternalAnomaly(t *testing.T) {
	c := newCorrelator(t)
	in := input()
	in.Deployments = []Deployment{{ID: "d-1", ResourceID: "db-1", Timestamp: start.Add(-10 * time.Minute)}}
	in.Anomalies = []AnomalyEvent{{ResourceID: "cdn", Timestamp: start.Add(-5 * time.Minute), Metric: "latency_p99", Value: 900, Score: 0.9}}

	report, err := c.Analyze(context.Background(), in)
	require.NoError(t, err)

	require.Len(t, report.Candidates, 2)
	top := report.Top()
	assert.Equal(t, CauseDeployment, top.Type)
	assert.Equal(t, "db-1", top.ResourceID)
	assert.Equal(t, 1, top.HopDistance)
	assert.InDelta(t, 0.583, top.RawConfidence, 0.001)
	assert.InDelta(t, 0.525, top.Confidence, 0.001)
	assert.NotEmpty(t, top.RecommendedActions)

	assert.Equal(t, CauseExternalAnomaly, report.Candidates[1].Type)
	assert.InDelta(t, 0.36, report.Candidates[1].Confidence, 0.001)

	assert.Equal(t, 2, report.UpstreamExamined)
	assert.Equal(t, 5, report.MaxDependencyDepth)
	assert.Equal(t, QualityMedium, report.DataQuality)
	assert.InDelta(t, 0.1, report.ConfidencePenalty, 1e-9)
	assert.True(t, report.Complete)
	_, err = uuid.Parse(report.ID)
	assert.NoError(t, err)
}

func TestAnalyze_NoEvidenceYieldsUnknown(t *testing.T) {
	c := newCorrelator(t)

	report, err := c.Analyze(context.Background(), input())
	require.NoError(t, err)

	require.Len(t, report.Candidates, 1)
	assert.Equal(t, CauseUnknown, report.Top().Type)
	assert.Equal(t, 0.1, report.Top().Confidence)
	assert.Equal(t, QualityLow, report.DataQuality)
	assert.Len(t, report.Warnings, 2)
	assert.Contains(t, report.Warnings[0], WarnInsufficientEvents)
	assert.Equal(t, WarnNoDeployments, report.Warnings[1])
}

func TestAnalyze_ApproximateTimestamps(t *testing.T) {
	c := newCorrelator(t)
	in := input()
	in.DependencyFailures = []DependencyFailure{{ResourceID: "db-1"}}

	report, err := c.Analyze(context.Background(), in)
	require.NoError(t, err)

	require.Len(t, report.Timeline, 1)
	assert.True(t, report.Timeline[0].Approximate)
	assert.Equal(t, start, report.Timeline[0].Timestamp)
	assert.InDelta(t, 0.25, report.ConfidencePenalty, 1e-9)
	assert.Equal(t, QualityLow, report.DataQuality)
	assert.Contains(t, report.Warnings[2], WarnApproximateTimes)

	top := report.Top()
	assert.Equal(t, CauseDependencyFailure, top.Type)
	assert.InDelta(t, 0.625, top.RawConfidence, 0.001)
	assert.InDelta(t, 0.469, top.Confidence, 0.001)
}

func TestAnalyze_TimelineOrderAndWindow(t *testing.T) {
	c := newCorrelator(t)
	in := input()
	in.Deployments = []Deployment{
		{ResourceID: "api-1", Timestamp: start.Add(-3 * time.Hour)},
		{ResourceID: "db-1", Timestamp: start.Add(-20 * time.Minute), ChangeType: ChangeConfiguration},
		{ResourceID: "api-1", Timestamp: start.Add(time.Hour)},
	}
	in.Anomalies = []AnomalyEvent{{ResourceID: "api-1", Timestamp: start.Add(-20 * time.Minute), Metric: "cpu_utilization", Score: 0.8}}
	in.DependencyFailures = []DependencyFailure{{ResourceID: "net-1", Timestamp: start.Add(-40 * time.Minute)}}

	report, err := c.Analyze(context.Background(), in)
	require.NoError(t, err)

	require.Len(t, report.Timeline, 3)
	assert.Equal(t, EventDependencyFailure, report.Timeline[0].Type)
	assert.Equal(t, EventConfiguration, report.Timeline[1].Type)
	assert.Equal(t, EventAnomaly, report.Timeline[2].Type)
	assert.Equal(t, 2, report.Timeline[0].HopDistance)

	types := map[CauseType]bool{}
	for _, cand := range report.Candidates {
		types[cand.Type] = true
	}
	assert.True(t, types[CauseResourceExhaustion])
	assert.True(t, types[CauseConfigChange])
	assert.Equal(t, QualityHigh, report.DataQuality)
	assert.Empty(t, report.Warnings)
}

func TestTemporalFactor(t *testing.T) {
	c := newCorrelator(t)
	window := Window{Start: start, End: end}
	tests := []struct {
		before time.Duration
		want   float64
	}{
		{-30 * time.Minute, 0.3},
		{-15 * time.Minute, 0.65},
		{-time.Nanosecond, 1},
		{0, 1},
		{30 * time.Minute, 1},
		{75 * time.Minute, 0.65},
		{2 * time.Hour, 0.3},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, c.temporalFactor(window, start.Add(-tt.before)), 1e-6, "before %s", tt.before)
	}

	// A zero-length window gives events after the start the minimum weight.
	assert.Equal(t, 0.3, c.temporalFactor(Window{Start: start, End: start}, start.Add(time.Second)))
}

func TestAnalyze_PrecursorOutranksEventDuringIncident(t *testing.T) {
	c := newCorrelator(t)
	in := input()
	in.Deployments = []Deployment{{ID: "d-1", ResourceID: "api-1", Timestamp: start.Add(-45 * time.Minute)}}
	in.DependencyFailures = []DependencyFailure{{ResourceID: "db-1", Timestamp: start.Add(25 * time.Minute)}}

	report, err := c.Analyze(context.Background(), in)
	require.NoError(t, err)

	require.Len(t, report.Candidates, 2)
	top := report.Top()
	assert.Equal(t, CauseDeployment, top.Type)
	assert.Equal(t, "api-1", top.ResourceID)
	assert.InDelta(t, 0.618, top.RawConfidence, 0.001)
	assert.InDelta(t, 0.556, top.Confidence, 0.001)

	during := report.Candidates[1]
	assert.Equal(t, CauseDependencyFailure, during.Type)
	assert.Equal(t, "db-1", during.ResourceID)
	assert.InDelta(t, 0.26, during.RawConfidence, 0.001)
	assert.Less(t, during.Confidence, top.Confidence)
}

func TestPenalize_Floors(t *testing.T) {
	c := newCorrelator(t)

	assert.Equal(t, 0.3, c.penalize(CauseDeployment, 0.35, 0.25))
	assert.Equal(t, 0.525, c.penalize(CauseDeployment, 0.7, 0.25))
	// A raw value already below the floor is never raised.
	assert.Equal(t, 0.096, c.penalize(CauseResourceExhaustion, 0.12, 0.2))
	assert.Equal(t, 0.7, c.penalize(CauseDeployment, 0.7, 0))
}

func TestAnalyze_InvalidInput(t *testing.T) {
	c := newCorrelator(t)

	tests := []struct {
		name   string
		mutate func(*Input)
		kind   riskerr.Kind
	}{
		{"empty resource", func(in *Input) { in.ResourceID = "" }, riskerr.KindInvalidParameter},
		{"end before start", func(in *Input) { in.Window.End = start.Add(-time.Minute) }, riskerr.KindInvalidParameter},
		{"missing window", func(in *Input) { in.Window = Window{} }, riskerr.KindInvalidParameter},
		{"negative depth", func(in *Input) { in.MaxDependencyDepth = -1 }, riskerr.KindInvalidParameter},
		{"anomaly score", func(in *Input) {
			in.Anomalies = []AnomalyEvent{{ResourceID: "api-1", Timestamp: start, Score: 2}}
		}, riskerr.KindInvalidParameter},
		{"unknown resource", func(in *Input) { in.ResourceID = "ghost" }, riskerr.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := input()
			tt.mutate(&in)
			_, err := c.Analyze(context.Background(), in)
			require.Error(t, err)
			assert.Equal(t, tt.kind, riskerr.KindOf(err))
		})
	}
}

func TestAnalyze_DepthClamped(t *testing.T) {
	c := newCorrelator(t)
	in := input()
	in.MaxDependencyDepth = 50

	report, err := c.Analyze(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, dependency.MaxDepthCeiling, report.MaxDependencyDepth)
	assert.Contains(t, report.Warnings[0], "clamped")
}

func TestAnalyze_Cancelled(t *testing.T) {
	c := newCorrelator(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Analyze(ctx, input())
	assert.True(t, riskerr.IsKind(err, riskerr.KindTimeout))
}
