package risk

import (
	"context"

	"github.com/moolen/riskgraph/internal/misconfig"
)

// Comprehensive scores id and blends the result with a vulnerability score
// from its misconfigurations and a degradation score from three
// probability-weighted sub-scenarios.
func (s *Scorer) Comprehensive(ctx context.Context, id string) (*ComprehensiveAssessment, error) {
	a, err := s.Score(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.Combine(a), nil
}

// Combine builds the comprehensive view of an existing assessment.
func (s *Scorer) Combine(a *Assessment) *ComprehensiveAssessment {
	blend := s.config.Blend
	scenarios := degradationScenarios(a)

	var degradation float64
	for _, sc := range scenarios {
		degradation += sc.Score
	}
	degradation = round(degradation / float64(len(scenarios)))

	infra := a.Score
	vuln := round(clamp(misconfig.TotalPoints(a.Misconfigurations), 0, 100))
	combined := round(clamp(
		blend.Infrastructure*infra+blend.Vulnerability*vuln+blend.Degradation*degradation, 0, 100))

	return &ComprehensiveAssessment{
		Assessment:          a,
		InfrastructureScore: infra,
		VulnerabilityScore:  vuln,
		DegradationScore:    degradation,
		Scenarios:           scenarios,
		Blend:               blend,
		CombinedScore:       combined,
		Level:               LevelFor(combined),
	}
}

// degradationScenarios derives the scenario probabilities from the factor
// values of a. A scenario's score is its probability times the expected
// impact of its outcomes.
func degradationScenarios(a *Assessment) []Scenario {
	value := func(name string) float64 {
		f, _ := a.Factor(name)
		return f.Value
	}
	deps := value(FactorDependents)
	crit := value(FactorCriticality)
	fail := value(FactorFailureRate)
	recent := value(FactorRecency)
	exposed := 1 - value(FactorRedundancy)
	base := a.Score / 100

	scenarios := []Scenario{
		{
			Name:        ScenarioDegradedPerformance,
			Probability: clamp(0.3*deps+0.4*base+0.3*fail, 0, 1),
			Outcomes: []Outcome{
				{Description: "Elevated latency for dependent services", Probability: 0.6, Impact: 40},
				{Description: "Reduced throughput and request queuing", Probability: 0.4, Impact: 60},
			},
		},
		{
			Name:        ScenarioIntermittentFailure,
			Probability: clamp(0.5*fail+0.3*recent+0.2*exposed, 0, 1),
			Outcomes: []Outcome{
				{Description: "Sporadic request errors", Probability: 0.7, Impact: 50},
				{Description: "Retry storms amplifying load", Probability: 0.3, Impact: 80},
			},
		},
		{
			Name:        ScenarioPartialOutage,
			Probability: clamp(exposed*(0.4*crit+0.6*deps), 0, 1),
			Outcomes: []Outcome{
				{Description: "A subset of dependents unavailable", Probability: 0.8, Impact: 70},
				{Description: "Inconsistent data across dependents", Probability: 0.2, Impact: 90},
			},
		},
	}

	for i := range scenarios {
		var expected float64
		for _, o := range scenarios[i].Outcomes {
			expected += o.Probability * o.Impact
		}
		scenarios[i].Probability = round(scenarios[i].Probability)
		scenarios[i].Score = round(scenarios[i].Probability * expected)
	}
	return scenarios
}
