package engine

import (
	"fmt"
	"time"

	"github.com/moolen/riskgraph/internal/blastradius"
	"github.com/moolen/riskgraph/internal/cost"
	"github.com/moolen/riskgraph/internal/dependency"
	"github.com/moolen/riskgraph/internal/risk"
	"github.com/moolen/riskgraph/internal/rootcause"
	"github.com/moolen/riskgraph/internal/spof"
	"github.com/moolen/riskgraph/internal/timing"
	"github.com/moolen/riskgraph/internal/trend"
)

// DefaultOperationTimeout bounds an operation whose caller set no deadline.
const DefaultOperationTimeout = 30 * time.Second

// Config holds engine-wide settings.
type Config struct {
	// OperationTimeout applies when the caller's context has no deadline.
	// Zero disables it.
	OperationTimeout time.Duration `yaml:"operation_timeout" validate:"gte=0"`
}

// Settings is the full set of analysis tunables. It can be swapped at
// runtime with Engine.Reload.
type Settings struct {
	Engine      Config             `yaml:"engine"`
	Dependency  dependency.Config  `yaml:"dependency"`
	BlastRadius blastradius.Config `yaml:"blast_radius"`
	SPOF        spof.Config        `yaml:"spof"`
	Risk        risk.Config        `yaml:"risk"`
	Timing      timing.Config      `yaml:"timing"`
	Cost        cost.Config        `yaml:"cost"`
	Trend       trend.Config       `yaml:"trend"`
	RootCause   rootcause.Config   `yaml:"root_cause"`
}

// DefaultSettings returns the defaults of every analysis.
func DefaultSettings() Settings {
	return Settings{
		Engine:      Config{OperationTimeout: DefaultOperationTimeout},
		Dependency:  dependency.DefaultConfig(),
		BlastRadius: blastradius.DefaultConfig(),
		SPOF:        spof.DefaultConfig(),
		Risk:        risk.DefaultConfig(),
		Timing:      timing.DefaultConfig(),
		Cost:        cost.DefaultConfig(),
		Trend:       trend.DefaultConfig(),
		RootCause:   rootcause.DefaultConfig(),
	}
}

// Validate runs the semantic checks of every section.
func (s Settings) Validate() error {
	if s.Engine.OperationTimeout < 0 {
		return fmt.Errorf("engine: operation_timeout must be >= 0")
	}
	if s.Dependency.DefaultMaxDepth < 1 || s.Dependency.DefaultMaxDepth > dependency.MaxDepthCeiling {
		return fmt.Errorf("dependency: default_max_depth must be within [1,%d]", dependency.MaxDepthCeiling)
	}
	if s.SPOF.ScanConcurrency < 1 {
		return fmt.Errorf("spof: scan_concurrency must be >= 1")
	}
	checks := []struct {
		section string
		check   func() error
	}{
		{"blast_radius", s.BlastRadius.Validate},
		{"risk", s.Risk.Validate},
		{"timing", s.Timing.Validate},
		{"cost", s.Cost.Validate},
		{"root_cause", s.RootCause.Validate},
	}
	for _, c := range checks {
		if err := c.check(); err != nil {
			return fmt.Errorf("%s: %w", c.section, err)
		}
	}
	return nil
}
