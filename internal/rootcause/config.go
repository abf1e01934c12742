package rootcause

import (
	"fmt"
	"time"
)

// Config tunes the confidence model.
type Config struct {
	// Lookback extends the timeline before the incident start.
	Lookback time.Duration `yaml:"lookback"`
	// LeadTime before the incident start within which events keep full
	// temporal weight.
	LeadTime time.Duration `yaml:"lead_time"`
	// MinTemporalFactor is the temporal weight at the lookback edge.
	MinTemporalFactor float64 `yaml:"min_temporal_factor" validate:"gte=0,lte=1"`
	HopDecay          float64 `yaml:"hop_decay" validate:"gte=0"`
	DefaultMaxDepth   int     `yaml:"default_max_depth" validate:"gte=1,lte=10"`
	MinEvents         int     `yaml:"min_events" validate:"gte=0"`

	Priors map[CauseType]float64 `yaml:"priors"`
	Floors map[CauseType]float64 `yaml:"floors"`

	SparsePenalty       float64  `yaml:"sparse_penalty" validate:"gte=0,lte=1"`
	NoDeploymentPenalty float64  `yaml:"no_deployment_penalty" validate:"gte=0,lte=1"`
	ApproximatePenalty  float64  `yaml:"approximate_penalty" validate:"gte=0,lte=1"`
	MaxPenalty          float64  `yaml:"max_penalty" validate:"gte=0,lte=1"`
	ExhaustionMetrics   []string `yaml:"exhaustion_metrics"`
}

// DefaultConfig returns the default confidence model.
func DefaultConfig() Config {
	return Config{
		Lookback:          2 * time.Hour,
		LeadTime:          30 * time.Minute,
		MinTemporalFactor: 0.3,
		HopDecay:          0.2,
		DefaultMaxDepth:   5,
		MinEvents:         3,
		Priors: map[CauseType]float64{
			CauseDeployment:         0.70,
			CauseConfigChange:       0.65,
			CauseDependencyFailure:  0.75,
			CauseResourceExhaustion: 0.60,
			CauseExternalAnomaly:    0.40,
			CauseUnknown:            0.10,
		},
		Floors: map[CauseType]float64{
			CauseDeployment:         0.3,
			CauseDependencyFailure:  0.3,
			CauseConfigChange:       0.25,
			CauseResourceExhaustion: 0.2,
			CauseExternalAnomaly:    0.1,
			CauseUnknown:            0.1,
		},
		SparsePenalty:       0.10,
		NoDeploymentPenalty: 0.10,
		ApproximatePenalty:  0.05,
		MaxPenalty:          0.25,
		ExhaustionMetrics: []string{
			"cpu", "memory", "disk", "connection", "thread", "quota", "throttl", "saturation", "iops", "file_descriptor",
		},
	}
}

// Validate checks semantic constraints the struct tags cannot express.
func (c Config) Validate() error {
	if c.Lookback <= 0 {
		return fmt.Errorf("root_cause.lookback must be positive")
	}
	if c.LeadTime < 0 || c.LeadTime > c.Lookback {
		return fmt.Errorf("root_cause.lead_time must be within [0, lookback]")
	}
	for _, t := range []CauseType{CauseDeployment, CauseConfigChange, CauseDependencyFailure,
		CauseResourceExhaustion, CauseExternalAnomaly, CauseUnknown} {
		p, ok := c.Priors[t]
		if !ok || p < 0 || p > 1 {
			return fmt.Errorf("root_cause.priors[%s] must be set within [0,1]", t)
		}
		if f := c.Floors[t]; f < 0 || f > 1 {
			return fmt.Errorf("root_cause.floors[%s] must be within [0,1]", t)
		}
	}
	return nil
}
