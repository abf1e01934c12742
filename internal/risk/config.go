package risk

import (
	"fmt"
	"math"
	"time"

	"github.com/moolen/riskgraph/internal/graph"
)

// Weights scale each factor's [0,1] value before it is mapped onto 0-100.
// Recency and Redundancy are applied with their documented signs: recency
// adds risk, redundancy removes it.
type Weights struct {
	Dependents  float64 `yaml:"dependents" validate:"gte=0"`
	Criticality float64 `yaml:"criticality" validate:"gte=0"`
	FailureRate float64 `yaml:"failure_rate" validate:"gte=0"`
	Recency     float64 `yaml:"recency" validate:"gte=0"`
	Redundancy  float64 `yaml:"redundancy" validate:"gte=0"`
}

// DefaultWeights are the tuned weights for the risk formula.
var DefaultWeights = Weights{
	Dependents:  0.25,
	Criticality: 0.30,
	FailureRate: 0.20,
	Recency:     0.10,
	Redundancy:  0.15,
}

// Blend combines the comprehensive sub-scores. The parts must sum to 1.
type Blend struct {
	Infrastructure float64 `yaml:"infrastructure" validate:"gte=0,lte=1"`
	Vulnerability  float64 `yaml:"vulnerability" validate:"gte=0,lte=1"`
	Degradation    float64 `yaml:"degradation" validate:"gte=0,lte=1"`
}

// DefaultBlend is the comprehensive blend used unless configured otherwise.
var DefaultBlend = Blend{
	Infrastructure: 0.5,
	Vulnerability:  0.3,
	Degradation:    0.2,
}

// Config holds every tunable of the scorer.
type Config struct {
	Weights Weights `yaml:"weights"`
	Blend   Blend   `yaml:"blend"`

	// DependentSaturation is the dependent count at which the dependents
	// factor reaches 1.
	DependentSaturation int `yaml:"dependent_saturation" validate:"gte=1"`

	TypeCriticality        map[graph.ResourceType]float64 `yaml:"type_criticality"`
	DefaultTypeCriticality float64                        `yaml:"default_type_criticality" validate:"gte=0,lte=1"`

	// Changes younger than RecentChange carry the full recency penalty,
	// which then decays linearly to zero at RecencyHorizon.
	RecentChange   time.Duration `yaml:"recent_change"`
	RecencyHorizon time.Duration `yaml:"recency_horizon"`
}

// DefaultConfig returns the default scorer configuration.
func DefaultConfig() Config {
	return Config{
		Weights:             DefaultWeights,
		Blend:               DefaultBlend,
		DependentSaturation: 10,
		TypeCriticality: map[graph.ResourceType]float64{
			graph.TypeDatabase:     0.9,
			graph.TypeIdentity:     0.85,
			graph.TypeNetwork:      0.8,
			graph.TypeLoadBalancer: 0.75,
			graph.TypeStorage:      0.7,
			graph.TypeQueue:        0.65,
			graph.TypeCompute:      0.6,
			graph.TypeContainer:    0.55,
			graph.TypeCache:        0.5,
			graph.TypeServerless:   0.5,
		},
		DefaultTypeCriticality: 0.5,
		RecentChange:           24 * time.Hour,
		RecencyHorizon:         7 * 24 * time.Hour,
	}
}

// Validate checks semantic constraints the struct tags cannot express.
func (c Config) Validate() error {
	w := c.Weights
	for name, v := range map[string]float64{
		"dependents":   w.Dependents,
		"criticality":  w.Criticality,
		"failure_rate": w.FailureRate,
		"recency":      w.Recency,
		"redundancy":   w.Redundancy,
	} {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("risk.weights.%s must be non-negative, got %v", name, v)
		}
	}
	sum := c.Blend.Infrastructure + c.Blend.Vulnerability + c.Blend.Degradation
	if math.Abs(sum-1) > 1e-6 {
		return fmt.Errorf("risk.blend must sum to 1, got %.4f", sum)
	}
	if c.DependentSaturation < 1 {
		return fmt.Errorf("risk.dependent_saturation must be >= 1")
	}
	for t, v := range c.TypeCriticality {
		if v < 0 || v > 1 {
			return fmt.Errorf("risk.type_criticality[%s] must be within [0,1], got %v", t, v)
		}
	}
	if c.RecentChange <= 0 || c.RecencyHorizon <= c.RecentChange {
		return fmt.Errorf("risk.recency_horizon must be greater than risk.recent_change")
	}
	return nil
}
