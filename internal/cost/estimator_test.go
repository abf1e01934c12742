package cost

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moolen/riskgraph/internal/graph"
	"github.com/moolen/riskgraph/internal/riskerr"
)

var db = graph.Resource{ID: "db-1", Type: graph.TypeDatabase}

func ecommerce(hours float64) Scenario {
	return Scenario{DowntimeHours: hours, AffectedUsers: 50000, Industry: "ecommerce", HasSLA: true}
}

func TestEstimate_Components(t *testing.T) {
	est := NewEstimator(DefaultConfig())

	b, err := est.Estimate(db, ecommerce(2))
	require.NoError(t, err)

	require.Len(t, b.Components, 6)
	assert.InDelta(t, 5000*1.5, b.Component(ComponentRevenue), 0.01)
	assert.InDelta(t, 1200*1.5, b.Component(ComponentEngineering), 0.01)
	assert.InDelta(t, 15150*1.5, b.Component(ComponentSupport), 0.01)
	assert.InDelta(t, 10000*1.5, b.Component(ComponentSLA), 0.01)
	assert.InDelta(t, 25000*(1-math.Exp(-0.5))*1.5, b.Component(ComponentReputation), 0.01)
	assert.InDelta(t, 5400*1.5, b.Component(ComponentRecovery), 0.01)

	assert.Equal(t, 1.5, b.IndustryMultiplier)
	assert.InDelta(t, 46586.73, b.Subtotal, 0.01)
	assert.InDelta(t, 69880.10, b.TotalCost, 0.02)
	assert.Equal(t, "USD", b.Currency)
}

func TestEstimate_MonotonicInDowntime(t *testing.T) {
	est := NewEstimator(DefaultConfig())

	base, err := est.Estimate(db, ecommerce(2))
	require.NoError(t, err)
	doubled, err := est.Estimate(db, ecommerce(4))
	require.NoError(t, err)
	assert.Greater(t, doubled.TotalCost, base.TotalCost)

	prev := -1.0
	for _, h := range []float64{0, 0.25, 1, 2, 8, 24, 72} {
		for _, users := range []int64{0, 100} {
			b, err := est.Estimate(db, Scenario{DowntimeHours: h, AffectedUsers: users})
			require.NoError(t, err)
			for _, c := range b.Components {
				assert.GreaterOrEqual(t, c.Amount, 0.0, c.Name)
			}
		}
		b, err := est.Estimate(db, Scenario{DowntimeHours: h, AffectedUsers: 100})
		require.NoError(t, err)
		assert.Greater(t, b.TotalCost, prev)
		prev = b.TotalCost
	}
}

func TestEstimate_SLAAndIndustry(t *testing.T) {
	est := NewEstimator(DefaultConfig())

	noSLA, err := est.Estimate(db, Scenario{DowntimeHours: 1, AffectedUsers: 10, Industry: "general"})
	require.NoError(t, err)
	assert.Equal(t, 0.0, noSLA.Component(ComponentSLA))

	def, err := est.Estimate(db, Scenario{DowntimeHours: 1, AffectedUsers: 10})
	require.NoError(t, err)
	assert.Equal(t, "general", def.Scenario.Industry)
	assert.Equal(t, noSLA.TotalCost, def.TotalCost)

	finance, err := est.Estimate(db, Scenario{DowntimeHours: 1, AffectedUsers: 10, Industry: " Finance "})
	require.NoError(t, err)
	assert.InDelta(t, def.Subtotal*3, finance.TotalCost, 0.02)
}

func TestEstimate_InvalidParameters(t *testing.T) {
	est := NewEstimator(DefaultConfig())

	tests := []struct {
		name  string
		sc    Scenario
		param string
	}{
		{"unknown industry", Scenario{DowntimeHours: 1, Industry: "piracy"}, "industry"},
		{"negative downtime", Scenario{DowntimeHours: -1}, "downtime_hours"},
		{"nan downtime", Scenario{DowntimeHours: math.NaN()}, "downtime_hours"},
		{"negative users", Scenario{DowntimeHours: 1, AffectedUsers: -5}, "affected_users"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := est.Estimate(db, tt.sc)
			require.Error(t, err)
			assert.True(t, riskerr.IsKind(err, riskerr.KindInvalidParameter))
			assert.Contains(t, err.Error(), tt.param)
		})
	}
}

func TestEstimate_UnknownTypeUsesDefaults(t *testing.T) {
	est := NewEstimator(DefaultConfig())

	b, err := est.Estimate(graph.Resource{ID: "x", Type: "mainframe"}, Scenario{DowntimeHours: 1})
	require.NoError(t, err)
	assert.InDelta(t, 2*150, b.Component(ComponentEngineering), 0.01)
	assert.InDelta(t, 2000+200, b.Component(ComponentRecovery), 0.01)
}

func TestAnnualRiskCost(t *testing.T) {
	est := NewEstimator(DefaultConfig())
	single, err := est.Estimate(db, ecommerce(2))
	require.NoError(t, err)

	ar := est.AnnualRiskCost(single, 50)
	assert.Equal(t, 6.0, ar.ExpectedIncidents)
	assert.InDelta(t, 1-math.Exp(-6), ar.IncidentProbability, 0.001)
	assert.InDelta(t, single.TotalCost*6, ar.ExpectedAnnualCost, 0.01)
	assert.NotEmpty(t, ar.ROIRecommendations)
	assert.Contains(t, ar.ROIRecommendations[0], "warm standby")

	zero := est.AnnualRiskCost(single, 0)
	assert.Equal(t, 0.0, zero.ExpectedAnnualCost)
	assert.Equal(t, 0.0, zero.IncidentProbability)
	assert.Contains(t, zero.ROIRecommendations[0], "Low annual exposure")

	capped := est.AnnualRiskCost(single, 250)
	assert.Equal(t, 100.0, capped.RiskScore)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.DefaultIndustry = "retail"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.IndustryMultipliers["finance"] = 0
	assert.Error(t, cfg.Validate())
}
