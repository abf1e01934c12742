// Package risk turns a resource and its place in the dependency graph into
// a 0-100 risk score with a factor breakdown.
//
// The score is a weighted sum of five factors, each in [0,1]:
//
//	100 * (w_dep*dependents + w_crit*criticality + w_fail*failure_rate
//	       + w_recent*recency - w_redundancy*redundancy)
//
// plus the point impact of every misconfiguration finding, clamped to [0,100].
package risk

import (
	"context"
	"math"
	"time"

	"github.com/moolen/riskgraph/internal/blastradius"
	"github.com/moolen/riskgraph/internal/dependency"
	"github.com/moolen/riskgraph/internal/graph"
	"github.com/moolen/riskgraph/internal/logging"
	"github.com/moolen/riskgraph/internal/misconfig"
	"github.com/moolen/riskgraph/internal/riskerr"
	"github.com/moolen/riskgraph/internal/spof"
)

// Scorer computes risk assessments. It is safe for concurrent use.
type Scorer struct {
	resolver *dependency.Resolver
	blast    *blastradius.Calculator
	config   Config
	now      func() time.Time
	logger   *logging.Logger
}

// NewScorer creates a scorer. The dependent count of a resource is the size
// of its blast radius.
func NewScorer(resolver *dependency.Resolver, blast *blastradius.Calculator, config Config) *Scorer {
	return &Scorer{
		resolver: resolver,
		blast:    blast,
		config:   config,
		now:      time.Now,
		logger:   logging.GetLogger("risk"),
	}
}

// Config returns the active configuration.
func (s *Scorer) Config() Config {
	return s.config
}

// Score assesses the resource with the given id.
func (s *Scorer) Score(ctx context.Context, id string) (*Assessment, error) {
	resource, err := s.resolver.Store().GetResource(ctx, id)
	if err != nil {
		return nil, riskerr.Classify(err, "get resource")
	}
	blast, err := s.blast.Calculate(ctx, id)
	if err != nil {
		return nil, err
	}
	peers, err := s.resolver.RedundantPeers(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.ScoreResource(ctx, *resource, blast.TotalAffected, peers), nil
}

// ScoreResource assesses r from inputs the caller already holds: the number
// of resources that fail with it and its redundant peers.
func (s *Scorer) ScoreResource(ctx context.Context, r graph.Resource, dependents int, peers []graph.Resource) *Assessment {
	signals := spof.RedundancySignals(r, peers)
	findings := misconfig.Detect(r)
	if findings == nil {
		findings = []misconfig.Finding{}
	}

	a := &Assessment{
		ResourceID:        r.ID,
		ResourceType:      r.Type,
		Misconfigurations: findings,
		DependentCount:    dependents,
		RedundancySignals: signals,
		MissingInputs:     []string{},
	}

	w := s.config.Weights
	failure, failureSource := s.failureRate(r.Attributes)
	recency, recencySource := s.recency(r.Attributes)
	criticality, criticalitySource := s.criticality(r)
	if failureSource == "" {
		a.MissingInputs = append(a.MissingInputs, "historical_failure_rate")
	}
	if recencySource == "" {
		a.MissingInputs = append(a.MissingInputs, "last_change_at")
	}

	a.Factors = []Factor{
		newFactor(FactorDependents, w.Dependents, s.normalizeDependents(dependents), 1, "blast_radius"),
		newFactor(FactorCriticality, w.Criticality, criticality, 1, criticalitySource),
		newFactor(FactorFailureRate, w.FailureRate, failure, 1, failureSource),
		newFactor(FactorRecency, w.Recency, recency, 1, recencySource),
		newFactor(FactorRedundancy, w.Redundancy, redundancyBonus(signals), -1, "redundancy_signals"),
	}

	var score float64
	for _, f := range a.Factors {
		score += f.Contribution
	}
	score += misconfig.TotalPoints(findings)
	a.Score = round(clamp(score, 0, 100))
	a.Level = LevelFor(a.Score)
	a.Recommendations = recommendations(a)

	s.logger.WithContext(ctx).DebugWithFields("Risk scored",
		logging.Field("resource_id", r.ID),
		logging.Field("score", a.Score),
		logging.Field("level", string(a.Level)))
	return a
}

func newFactor(name string, weight, value, sign float64, source string) Factor {
	return Factor{
		Name:         name,
		Weight:       weight,
		Value:        round(value),
		Contribution: round(sign * 100 * weight * value),
		Source:       source,
	}
}

func (s *Scorer) normalizeDependents(n int) float64 {
	sat := s.config.DependentSaturation
	if sat <= 0 {
		sat = DefaultConfig().DependentSaturation
	}
	return math.Min(float64(n)/float64(sat), 1)
}

// criticality prefers the explicit tier over the per-type table.
func (s *Scorer) criticality(r graph.Resource) (float64, string) {
	switch r.Criticality {
	case graph.CriticalityCritical:
		return 1.0, "criticality_tier"
	case graph.CriticalityHigh:
		return 0.75, "criticality_tier"
	case graph.CriticalityMedium:
		return 0.5, "criticality_tier"
	case graph.CriticalityLow:
		return 0.25, "criticality_tier"
	}
	if v, ok := s.config.TypeCriticality[r.Type]; ok {
		return v, "resource_type"
	}
	return s.config.DefaultTypeCriticality, "default"
}

// failureRate reads historical_failure_rate, falling back to
// incident_count_90d spread over twelve incidents as a saturating rate.
func (s *Scorer) failureRate(attrs graph.Attributes) (float64, string) {
	if v, ok := attrs.Float("historical_failure_rate"); ok {
		return clamp(v, 0, 1), "historical_failure_rate"
	}
	if n, ok := attrs.Float("incident_count_90d"); ok {
		return clamp(n/12, 0, 1), "incident_count_90d"
	}
	return 0, ""
}

// recency is 1 for changes younger than RecentChange and decays linearly to
// 0 at RecencyHorizon. Verified changes carry half the penalty.
func (s *Scorer) recency(attrs graph.Attributes) (float64, string) {
	changed, ok := attrs.Time("last_change_at")
	if !ok {
		return 0, ""
	}
	age := s.now().Sub(changed)

	var v float64
	switch {
	case age < s.config.RecentChange:
		v = 1
	case age >= s.config.RecencyHorizon:
		v = 0
	default:
		span := float64(s.config.RecencyHorizon - s.config.RecentChange)
		v = 1 - float64(age-s.config.RecentChange)/span
	}
	if verified, ok := attrs.Bool("last_change_verified"); ok && verified {
		v /= 2
	}
	return v, "last_change_at"
}

// redundancyBonus is 0.5 per independent signal, saturating at 1.
func redundancyBonus(signals []string) float64 {
	return math.Min(0.5*float64(len(signals)), 1)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

func round(v float64) float64 {
	return math.Round(v*100) / 100
}
