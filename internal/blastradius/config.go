package blastradius

import (
	"fmt"
	"time"

	"github.com/moolen/riskgraph/internal/graph"
)

// Config tunes propagation and the downtime and impact estimates.
type Config struct {
	// PropagatingTypes are the dependency types that carry failure. OPTIONAL
	// and WEAK never belong here.
	PropagatingTypes []graph.DependencyType `yaml:"propagating_types"`
	// MinStrength additionally drops propagating edges below this strength.
	MinStrength float64 `yaml:"min_strength" validate:"gte=0,lte=1"`
	// MaxDepth bounds the closure; 0 walks it fully.
	MaxDepth int `yaml:"max_depth" validate:"gte=0"`

	BaseDowntime       map[graph.ResourceType]time.Duration `yaml:"base_downtime"`
	DefaultDowntime    time.Duration                        `yaml:"default_downtime"`
	PerDependentFactor float64                              `yaml:"per_dependent_factor" validate:"gte=0"`

	ImpactThresholds ImpactThresholds `yaml:"impact_thresholds"`
}

// ImpactThresholds are the minimum total affected counts for each user impact level.
type ImpactThresholds struct {
	Low      int `yaml:"low" validate:"gte=1"`
	Medium   int `yaml:"medium"`
	High     int `yaml:"high"`
	Critical int `yaml:"critical"`
}

// DefaultConfig returns the default policy: REQUIRED and STRONG edges of any
// strength propagate.
func DefaultConfig() Config {
	return Config{
		PropagatingTypes: []graph.DependencyType{graph.DependencyRequired, graph.DependencyStrong},
		MinStrength:      0,
		MaxDepth:         0,
		BaseDowntime: map[graph.ResourceType]time.Duration{
			graph.TypeCompute:      30 * time.Minute,
			graph.TypeDatabase:     2 * time.Hour,
			graph.TypeCache:        20 * time.Minute,
			graph.TypeStorage:      time.Hour,
			graph.TypeNetwork:      45 * time.Minute,
			graph.TypeIdentity:     time.Hour,
			graph.TypeLoadBalancer: 30 * time.Minute,
			graph.TypeQueue:        45 * time.Minute,
			graph.TypeContainer:    15 * time.Minute,
			graph.TypeServerless:   10 * time.Minute,
		},
		DefaultDowntime:    4 * time.Hour,
		PerDependentFactor: 0.1,
		ImpactThresholds: ImpactThresholds{
			Low:      1,
			Medium:   3,
			High:     10,
			Critical: 25,
		},
	}
}

// Validate checks semantic constraints the struct tags cannot express.
func (c Config) Validate() error {
	for _, t := range c.PropagatingTypes {
		if !t.Valid() {
			return fmt.Errorf("blast_radius.propagating_types: unknown dependency type %q", t)
		}
		if t == graph.DependencyOptional || t == graph.DependencyWeak {
			return fmt.Errorf("blast_radius.propagating_types: %s dependencies cannot propagate failure", t)
		}
	}
	if c.DefaultDowntime <= 0 {
		return fmt.Errorf("blast_radius.default_downtime must be positive")
	}
	for t, d := range c.BaseDowntime {
		if d <= 0 {
			return fmt.Errorf("blast_radius.base_downtime[%s] must be positive", t)
		}
	}
	th := c.ImpactThresholds
	if !(th.Low >= 1 && th.Low <= th.Medium && th.Medium <= th.High && th.High <= th.Critical) {
		return fmt.Errorf("blast_radius.impact_thresholds must satisfy 1 <= low <= medium <= high <= critical")
	}
	return nil
}

// Propagates reports whether failure crosses e under this policy.
func (c Config) Propagates(e graph.Edge) bool {
	if !e.IsDependency() || e.Strength < c.MinStrength {
		return false
	}
	for _, t := range c.PropagatingTypes {
		if e.Type == t {
			return true
		}
	}
	return false
}

// BaseDowntimeFor returns the per-type base duration or the default.
func (c Config) BaseDowntimeFor(t graph.ResourceType) time.Duration {
	if d, ok := c.BaseDowntime[t]; ok && d > 0 {
		return d
	}
	return c.DefaultDowntime
}
