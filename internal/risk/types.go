package risk

import (
	"github.com/moolen/riskgraph/internal/graph"
	"github.com/moolen/riskgraph/internal/misconfig"
)

// Level is the categorical form of a risk score.
type Level string

const (
	LevelLow      Level = "LOW"
	LevelMedium   Level = "MEDIUM"
	LevelHigh     Level = "HIGH"
	LevelCritical Level = "CRITICAL"
)

// LevelFor maps a 0-100 score onto its level.
func LevelFor(score float64) Level {
	switch {
	case score >= 75:
		return LevelCritical
	case score >= 50:
		return LevelHigh
	case score >= 25:
		return LevelMedium
	}
	return LevelLow
}

// Factor names, in the order they appear in an Assessment.
const (
	FactorDependents  = "dependents"
	FactorCriticality = "criticality"
	FactorFailureRate = "failure_rate"
	FactorRecency     = "recency"
	FactorRedundancy  = "redundancy"
)

// Factor is one term of the risk formula.
type Factor struct {
	Name         string  `json:"name"`
	Weight       float64 `json:"weight"`
	Value        float64 `json:"value"`        // raw value in [0,1]
	Contribution float64 `json:"contribution"` // signed points added to the score
	Source       string  `json:"source"`       // attribute or input the value came from
}

// Assessment is the risk of a single resource.
type Assessment struct {
	ResourceID        string              `json:"resource_id"`
	ResourceType      graph.ResourceType  `json:"resource_type"`
	Score             float64             `json:"score"`
	Level             Level               `json:"level"`
	Factors           []Factor            `json:"factors"`
	Recommendations   []string            `json:"recommendations"`
	Misconfigurations []misconfig.Finding `json:"misconfigurations"`
	DependentCount    int                 `json:"dependent_count"`
	RedundancySignals []string            `json:"redundancy_signals"`
	// MissingInputs names attributes that were absent and scored as zero.
	MissingInputs []string `json:"missing_inputs"`
}

// Factor returns the named factor.
func (a *Assessment) Factor(name string) (Factor, bool) {
	for _, f := range a.Factors {
		if f.Name == name {
			return f, true
		}
	}
	return Factor{}, false
}

// Outcome is one possible consequence within a degradation scenario.
type Outcome struct {
	Description string  `json:"description"`
	Probability float64 `json:"probability"`
	Impact      float64 `json:"impact"` // 0-100
}

// Scenario is a probability-weighted list of outcomes.
type Scenario struct {
	Name        string    `json:"name"`
	Probability float64   `json:"probability"`
	Outcomes    []Outcome `json:"outcomes"`
	Score       float64   `json:"score"`
}

// Degradation scenario names.
const (
	ScenarioDegradedPerformance = "degraded_performance"
	ScenarioIntermittentFailure = "intermittent_failure"
	ScenarioPartialOutage       = "partial_outage"
)

// ComprehensiveAssessment blends infrastructure, vulnerability and
// degradation scores into one.
type ComprehensiveAssessment struct {
	Assessment          *Assessment `json:"assessment"`
	InfrastructureScore float64     `json:"infrastructure_score"`
	VulnerabilityScore  float64     `json:"vulnerability_score"`
	DegradationScore    float64     `json:"degradation_score"`
	Scenarios           []Scenario  `json:"scenarios"`
	Blend               Blend       `json:"blend"`
	CombinedScore       float64     `json:"combined_score"`
	Level               Level       `json:"level"`
}
