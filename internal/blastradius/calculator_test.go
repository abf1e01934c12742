package blastradius

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moolen/riskgraph/internal/dependency"
	"github.com/moolen/riskgraph/internal/graph"
	"github.com/moolen/riskgraph/internal/graph/graphtest"
	"github.com/moolen/riskgraph/internal/riskerr"
)

func newCalculator(store graph.Store) *Calculator {
	return NewCalculator(dependency.NewResolver(store, dependency.DefaultConfig()), DefaultConfig())
}

// db-1 <- api-1 <- web-1, db-1 <- report-1 (optional), api-1 <- batch-1 (weak)
func scenario(t *testing.T) *graph.MemoryStore {
	return graphtest.New(t).
		Resource("db-1", graph.TypeDatabase, nil).
		Resource("api-1", graph.TypeCompute, nil).
		Resource("web-1", graph.TypeCompute, nil).
		Resource("report-1", graph.TypeCompute, nil).
		Resource("batch-1", graph.TypeCompute, nil).
		Depends("api-1", "db-1", graph.DependencyRequired).
		Depends("web-1", "api-1", graph.DependencyStrong).
		Depends("report-1", "db-1", graph.DependencyOptional).
		Depends("batch-1", "api-1", graph.DependencyWeak).
		Store()
}

func TestCalculate_PropagatesOverRequiredAndStrong(t *testing.T) {
	calc := newCalculator(scenario(t))

	result, err := calc.Calculate(context.Background(), "db-1")
	require.NoError(t, err)

	assert.Equal(t, []string{"api-1"}, result.DirectlyAffected)
	assert.Equal(t, []string{"web-1"}, result.IndirectlyAffected)
	assert.Equal(t, 2, result.TotalAffected)
	assert.Equal(t, 2, result.MaxDepthReached)
	assert.True(t, result.Complete)
	assert.NotContains(t, result.DirectlyAffected, "report-1")
	assert.NotContains(t, result.IndirectlyAffected, "batch-1")
}

func TestCalculate_LeafAndUnknown(t *testing.T) {
	calc := newCalculator(scenario(t))

	result, err := calc.Calculate(context.Background(), "web-1")
	require.NoError(t, err)
	assert.Empty(t, result.DirectlyAffected)
	assert.Empty(t, result.IndirectlyAffected)
	assert.Equal(t, ImpactNone, result.UserImpact)
	assert.Equal(t, int64((30 * time.Minute).Seconds()), result.EstimatedDowntimeSeconds)

	_, err = calc.Calculate(context.Background(), "missing")
	assert.True(t, riskerr.IsKind(err, riskerr.KindNotFound))
}

func TestCalculate_Deterministic(t *testing.T) {
	calc := newCalculator(scenario(t))

	first, err := calc.Calculate(context.Background(), "db-1")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := calc.Calculate(context.Background(), "db-1")
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestEstimateDowntime(t *testing.T) {
	calc := newCalculator(graph.NewMemoryStore())

	assert.Equal(t, 2*time.Hour, calc.EstimateDowntime(graph.TypeDatabase, 0))
	assert.Equal(t, 3*time.Hour, calc.EstimateDowntime(graph.TypeDatabase, 5))
	assert.Equal(t, 4*time.Hour, calc.EstimateDowntime(graph.ResourceType("mainframe"), 0))
}

func TestClassifyImpact(t *testing.T) {
	calc := newCalculator(graph.NewMemoryStore())

	tests := []struct {
		name        string
		criticality graph.CriticalityTier
		affected    int
		want        UserImpact
		source      string
	}{
		{"none", "", 0, ImpactNone, ImpactSourceThreshold},
		{"low", "", 1, ImpactLow, ImpactSourceThreshold},
		{"medium", "", 3, ImpactMedium, ImpactSourceThreshold},
		{"high", "", 10, ImpactHigh, ImpactSourceThreshold},
		{"critical", "", 25, ImpactCritical, ImpactSourceThreshold},
		{"tier overrides count", graph.CriticalityCritical, 0, ImpactCritical, ImpactSourceCriticality},
		{"low tier overrides large count", graph.CriticalityLow, 100, ImpactLow, ImpactSourceCriticality},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := graph.Resource{ID: "x", Type: graph.TypeCompute, Criticality: tt.criticality}
			impact, source := calc.ClassifyImpact(r, tt.affected)
			assert.Equal(t, tt.want, impact)
			assert.Equal(t, tt.source, source)
		})
	}
}

func TestCalculate_PolicyIncludesOptional(t *testing.T) {
	store := scenario(t)
	cfg := DefaultConfig()
	cfg.PropagatingTypes = append(cfg.PropagatingTypes, graph.DependencyOptional)
	calc := NewCalculator(dependency.NewResolver(store, dependency.DefaultConfig()), cfg)

	result, err := calc.Calculate(context.Background(), "db-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"api-1", "report-1"}, result.DirectlyAffected)
	assert.Error(t, cfg.Validate())
}

func TestCalculate_CancelledReturnsPartial(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	calc := newCalculator(&cancelOnIncoming{Store: scenario(t), cancel: cancel})

	result, err := calc.Calculate(ctx, "db-1")
	require.Error(t, err)
	assert.True(t, riskerr.IsKind(err, riskerr.KindTimeout))
	require.NotNil(t, result)
	assert.False(t, result.Complete)
}

func TestSimulate(t *testing.T) {
	calc := newCalculator(scenario(t))

	sim, err := calc.Simulate(context.Background(), "db-1")
	require.NoError(t, err)
	assert.True(t, sim.Advisory)
	assert.Equal(t, 2, sim.BlastRadius.TotalAffected)
	assert.NotEmpty(t, sim.Misconfigurations)
	assert.Equal(t, recoveryTemplates[graph.TypeDatabase], sim.RecoverySteps)
	assert.Contains(t, sim.Mitigations, "Add circuit breakers or graceful degradation in the 1 direct dependents")
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.ImpactThresholds.Medium = 50
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.DefaultDowntime = 0
	assert.Error(t, cfg.Validate())
}

// cancelOnIncoming cancels the context after the first IncomingEdges call.
type cancelOnIncoming struct {
	graph.Store
	cancel context.CancelFunc
}

func (s *cancelOnIncoming) IncomingEdges(ctx context.Context, id string) ([]graph.Edge, error) {
	edges, err := s.Store.IncomingEdges(ctx, id)
	s.cancel()
	return edges, err
}
