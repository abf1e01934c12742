package risk

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moolen/riskgraph/internal/blastradius"
	"github.com/moolen/riskgraph/internal/dependency"
	"github.com/moolen/riskgraph/internal/graph"
	"github.com/moolen/riskgraph/internal/graph/graphtest"
	"github.com/moolen/riskgraph/internal/riskerr"
)

var fixedNow = time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC)

func newScorer(store graph.Store) *Scorer {
	var (
		resolver *dependency.Resolver
		blast    *blastradius.Calculator
	)
	if store != nil {
		resolver = dependency.NewResolver(store, dependency.DefaultConfig())
		blast = blastradius.NewCalculator(resolver, blastradius.DefaultConfig())
	}
	s := NewScorer(resolver, blast, DefaultConfig())
	s.now = func() time.Time { return fixedNow }
	return s
}

// hardened has every misconfiguration check satisfied for a database.
func hardened() graph.Attributes {
	return graph.Attributes{
		"multi_az":           true,
		"replica_count":      3,
		"backup_enabled":     true,
		"firewall_enabled":   true,
		"encryption_at_rest": true,
		"monitoring_enabled": true,
	}
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		score float64
		want  Level
	}{
		{0, LevelLow},
		{24.99, LevelLow},
		{25, LevelMedium},
		{49.99, LevelMedium},
		{50, LevelHigh},
		{74.99, LevelHigh},
		{75, LevelCritical},
		{100, LevelCritical},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LevelFor(tt.score), "score %v", tt.score)
	}
}

func TestScoreResource_Factors(t *testing.T) {
	s := newScorer(nil)
	db := graph.Resource{ID: "db-1", Type: graph.TypeDatabase, Attributes: hardened()}

	a := s.ScoreResource(context.Background(), db, 1, nil)

	require.Len(t, a.Factors, 5)
	names := []string{}
	for _, f := range a.Factors {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{FactorDependents, FactorCriticality, FactorFailureRate, FactorRecency, FactorRedundancy}, names)

	deps, _ := a.Factor(FactorDependents)
	assert.InDelta(t, 0.1, deps.Value, 1e-9)
	assert.InDelta(t, 2.5, deps.Contribution, 1e-9)

	crit, _ := a.Factor(FactorCriticality)
	assert.InDelta(t, 27, crit.Contribution, 1e-9)
	assert.Equal(t, "resource_type", crit.Source)

	red, _ := a.Factor(FactorRedundancy)
	assert.InDelta(t, 1, red.Value, 1e-9)
	assert.InDelta(t, -15, red.Contribution, 1e-9)

	assert.Empty(t, a.Misconfigurations)
	assert.InDelta(t, 14.5, a.Score, 1e-9)
	assert.Equal(t, LevelLow, a.Level)
	assert.ElementsMatch(t, []string{"historical_failure_rate", "last_change_at"}, a.MissingInputs)
}

func TestScoreResource_FindingsAreClamped(t *testing.T) {
	s := newScorer(nil)
	a := s.ScoreResource(context.Background(), graph.Resource{ID: "db-1", Type: graph.TypeDatabase}, 1, nil)

	assert.Equal(t, 100.0, a.Score)
	assert.Equal(t, LevelCritical, a.Level)
	assert.Len(t, a.Misconfigurations, 6)
	assert.NotEmpty(t, a.Recommendations)
}

func TestScoreResource_CriticalityTierOverridesType(t *testing.T) {
	s := newScorer(nil)
	r := graph.Resource{ID: "c", Type: graph.TypeCache, Criticality: graph.CriticalityCritical, Attributes: hardened()}

	a := s.ScoreResource(context.Background(), r, 0, nil)
	crit, _ := a.Factor(FactorCriticality)
	assert.Equal(t, 1.0, crit.Value)
	assert.Equal(t, "criticality_tier", crit.Source)
}

func TestScoreResource_FailureRate(t *testing.T) {
	s := newScorer(nil)
	tests := []struct {
		name   string
		attrs  graph.Attributes
		want   float64
		source string
	}{
		{"explicit rate", graph.Attributes{"historical_failure_rate": 0.2}, 0.2, "historical_failure_rate"},
		{"rate clamped", graph.Attributes{"historical_failure_rate": 3.0}, 1, "historical_failure_rate"},
		{"incident count", graph.Attributes{"incident_count_90d": 6}, 0.5, "incident_count_90d"},
		{"incident count saturates", graph.Attributes{"incident_count_90d": 40}, 1, "incident_count_90d"},
		{"missing", graph.Attributes{}, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, src := s.failureRate(tt.attrs)
			assert.InDelta(t, tt.want, v, 1e-9)
			assert.Equal(t, tt.source, src)
		})
	}
}

func TestScoreResource_Recency(t *testing.T) {
	s := newScorer(nil)
	tests := []struct {
		name  string
		attrs graph.Attributes
		want  float64
	}{
		{"one hour ago", graph.Attributes{"last_change_at": fixedNow.Add(-time.Hour)}, 1},
		{"one hour ago verified", graph.Attributes{"last_change_at": fixedNow.Add(-time.Hour), "last_change_verified": true}, 0.5},
		{"four days ago", graph.Attributes{"last_change_at": fixedNow.Add(-96 * time.Hour)}, 0.5},
		{"rfc3339 string", graph.Attributes{"last_change_at": fixedNow.Add(-96 * time.Hour).Format(time.RFC3339)}, 0.5},
		{"two weeks ago", graph.Attributes{"last_change_at": fixedNow.Add(-14 * 24 * time.Hour)}, 0},
		{"missing", graph.Attributes{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, _ := s.recency(tt.attrs)
			assert.InDelta(t, tt.want, v, 1e-9)
		})
	}
}

func TestScoreResource_AlwaysWithinBounds(t *testing.T) {
	s := newScorer(nil)
	types := append(append([]graph.ResourceType{}, graph.KnownTypes...), "mainframe")
	attrSets := []graph.Attributes{
		nil,
		hardened(),
		{"historical_failure_rate": 1.0, "last_change_at": fixedNow},
		{"replica_count": 5, "availability_zones": 3, "multi_az": true, "instance_count": 4},
	}
	for _, typ := range types {
		for _, attrs := range attrSets {
			for _, deps := range []int{0, 1, 5, 50} {
				a := s.ScoreResource(context.Background(), graph.Resource{ID: "r", Type: typ, Attributes: attrs}, deps, nil)
				assert.GreaterOrEqual(t, a.Score, 0.0)
				assert.LessOrEqual(t, a.Score, 100.0)
				assert.Equal(t, LevelFor(a.Score), a.Level)
			}
		}
	}
}

func TestScore_UsesGraph(t *testing.T) {
	store := graphtest.New(t).
		Resource("db-1", graph.TypeDatabase, hardened()).
		Resource("db-2", graph.TypeDatabase, nil).
		Resource("api-1", graph.TypeCompute, nil).
		Depends("api-1", "db-1", graph.DependencyRequired).
		Redundant("db-1", "db-2").
		Store()
	s := newScorer(store)

	a, err := s.Score(context.Background(), "db-1")
	require.NoError(t, err)
	assert.Equal(t, 1, a.DependentCount)
	assert.Contains(t, a.RedundancySignals, "redundant_peer:db-2")
	assert.InDelta(t, 14.5, a.Score, 1e-9)

	_, err = s.Score(context.Background(), "nope")
	assert.True(t, riskerr.IsKind(err, riskerr.KindNotFound))
}

func TestComprehensive(t *testing.T) {
	store := graphtest.New(t).
		Resource("db-1", graph.TypeDatabase, hardened()).
		Resource("api-1", graph.TypeCompute, nil).
		Depends("api-1", "db-1", graph.DependencyRequired).
		Store()
	s := newScorer(store)

	c, err := s.Comprehensive(context.Background(), "db-1")
	require.NoError(t, err)

	assert.Equal(t, DefaultBlend, c.Blend)
	assert.InDelta(t, 14.5, c.InfrastructureScore, 1e-9)
	assert.Equal(t, 0.0, c.VulnerabilityScore)
	require.Len(t, c.Scenarios, 3)
	assert.Equal(t, ScenarioDegradedPerformance, c.Scenarios[0].Name)
	assert.InDelta(t, 4.32, c.Scenarios[0].Score, 1e-9)
	assert.Equal(t, 0.0, c.Scenarios[1].Score)
	assert.Equal(t, 0.0, c.Scenarios[2].Score)
	assert.InDelta(t, 1.44, c.DegradationScore, 1e-9)
	assert.InDelta(t, 7.54, c.CombinedScore, 1e-9)
	assert.Equal(t, LevelLow, c.Level)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.Weights.Recency = -0.1
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Blend.Degradation = 0.5
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.RecencyHorizon = time.Hour
	assert.Error(t, cfg.Validate())
}
