// Package blastradius computes what else fails when a resource fails.
//
// Failure propagates downstream, from a resource to the resources that depend
// on it, across edges the configured policy accepts (REQUIRED and STRONG by
// default). OPTIONAL and WEAK edges terminate propagation.
package blastradius

import (
	"context"
	"sort"
	"time"

	"github.com/moolen/riskgraph/internal/dependency"
	"github.com/moolen/riskgraph/internal/graph"
	"github.com/moolen/riskgraph/internal/logging"
	"github.com/moolen/riskgraph/internal/misconfig"
	"github.com/moolen/riskgraph/internal/riskerr"
)

// Calculator computes blast radius results. It is safe for concurrent use.
type Calculator struct {
	resolver *dependency.Resolver
	config   Config
	logger   *logging.Logger
}

// NewCalculator creates a calculator.
func NewCalculator(resolver *dependency.Resolver, config Config) *Calculator {
	return &Calculator{
		resolver: resolver,
		config:   config,
		logger:   logging.GetLogger("blastradius"),
	}
}

// Config returns the active configuration.
func (c *Calculator) Config() Config {
	return c.config
}

// Calculate returns the directly and indirectly affected resources of id's
// failure with downtime and user impact estimates. When ctx ends during the
// traversal the partial result is returned with Complete=false together
// with a Timeout error.
func (c *Calculator) Calculate(ctx context.Context, id string) (*Result, error) {
	_, result, err := c.calculate(ctx, id)
	return result, err
}

func (c *Calculator) calculate(ctx context.Context, id string) (*graph.Resource, *Result, error) {
	resource, err := c.resolver.Store().GetResource(ctx, id)
	if err != nil {
		return nil, nil, riskerr.Classify(err, "get resource")
	}

	res, walkErr := c.resolver.Traverse(ctx, id, dependency.Downstream, c.config.MaxDepth, c.config.Propagates)
	if res == nil {
		return nil, nil, walkErr
	}

	result := &Result{
		ResourceID:         id,
		ResourceType:       resource.Type,
		DirectlyAffected:   []string{},
		IndirectlyAffected: []string{},
		MaxDepthReached:    res.DeepestLevel,
		Complete:           res.Complete,
	}
	for _, rr := range res.Resources {
		if rr.PathLength == 1 {
			result.DirectlyAffected = append(result.DirectlyAffected, rr.Resource.ID)
		} else {
			result.IndirectlyAffected = append(result.IndirectlyAffected, rr.Resource.ID)
		}
	}
	sort.Strings(result.DirectlyAffected)
	sort.Strings(result.IndirectlyAffected)
	result.TotalAffected = len(result.DirectlyAffected) + len(result.IndirectlyAffected)

	result.EstimatedDowntimeSeconds = int64(c.EstimateDowntime(resource.Type, len(result.DirectlyAffected)).Seconds())
	result.UserImpact, result.ImpactSource = c.ClassifyImpact(*resource, result.TotalAffected)

	c.logger.DebugWithFields("Blast radius calculated",
		logging.Field("resource_id", id),
		logging.Field("direct", len(result.DirectlyAffected)),
		logging.Field("indirect", len(result.IndirectlyAffected)),
		logging.Field("complete", result.Complete))

	return resource, result, walkErr
}

// EstimateDowntime scales the per-type base duration by the number of direct
// dependents.
func (c *Calculator) EstimateDowntime(t graph.ResourceType, directDependents int) time.Duration {
	base := c.config.BaseDowntimeFor(t)
	scale := 1 + c.config.PerDependentFactor*float64(directDependents)
	return time.Duration(float64(base) * scale)
}

// ClassifyImpact maps the total affected count onto a user impact level. An
// explicit criticality tier on the resource overrides the count.
func (c *Calculator) ClassifyImpact(r graph.Resource, totalAffected int) (UserImpact, string) {
	switch r.Criticality {
	case graph.CriticalityCritical:
		return ImpactCritical, ImpactSourceCriticality
	case graph.CriticalityHigh:
		return ImpactHigh, ImpactSourceCriticality
	case graph.CriticalityMedium:
		return ImpactMedium, ImpactSourceCriticality
	case graph.CriticalityLow:
		return ImpactLow, ImpactSourceCriticality
	}

	th := c.config.ImpactThresholds
	switch {
	case totalAffected >= th.Critical:
		return ImpactCritical, ImpactSourceThreshold
	case totalAffected >= th.High:
		return ImpactHigh, ImpactSourceThreshold
	case totalAffected >= th.Medium:
		return ImpactMedium, ImpactSourceThreshold
	case totalAffected >= th.Low:
		return ImpactLow, ImpactSourceThreshold
	}
	return ImpactNone, ImpactSourceThreshold
}

// Simulate extends Calculate with the resource's misconfigurations and
// templated recovery and mitigation guidance.
func (c *Calculator) Simulate(ctx context.Context, id string) (*Simulation, error) {
	resource, result, err := c.calculate(ctx, id)
	if result == nil {
		return nil, err
	}

	findings := misconfig.Detect(*resource)
	sim := &Simulation{
		BlastRadius:       result,
		Misconfigurations: findings,
		RecoverySteps:     recoverySteps(resource.Type),
		Mitigations:       mitigations(result, findings),
		Advisory:          true,
	}
	if sim.Misconfigurations == nil {
		sim.Misconfigurations = []misconfig.Finding{}
	}
	return sim, err
}
