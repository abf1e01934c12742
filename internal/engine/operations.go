package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/moolen/riskgraph/internal/blastradius"
	"github.com/moolen/riskgraph/internal/cost"
	"github.com/moolen/riskgraph/internal/dependency"
	"github.com/moolen/riskgraph/internal/graph"
	"github.com/moolen/riskgraph/internal/logging"
	"github.com/moolen/riskgraph/internal/risk"
	"github.com/moolen/riskgraph/internal/riskerr"
	"github.com/moolen/riskgraph/internal/rootcause"
	"github.com/moolen/riskgraph/internal/spof"
	"github.com/moolen/riskgraph/internal/trend"
)

// Resource attributes the engine reads.
const (
	AttrTimezone       = "timezone"
	AttrEstimatedUsers = "estimated_users"
	AttrHasSLA         = "has_sla"
)

func resourceAttr(id string) attribute.KeyValue {
	return attribute.String("resource.id", id)
}

// AssessRisk scores a single resource.
func (e *Engine) AssessRisk(ctx context.Context, id string) (result *risk.Assessment, err error) {
	ctx, a, op := e.begin(ctx, "assess_risk", resourceAttr(id))
	defer func() { e.finish(ctx, op, err, false) }()

	return a.scorer.Score(ctx, id)
}

// ComprehensiveRisk blends infrastructure, vulnerability and degradation
// risk, and adds the resource's SPOF verdict and the cycles it is part of.
// The three analyses run concurrently. On timeout the parts that finished are
// returned together with the error.
func (e *Engine) ComprehensiveRisk(ctx context.Context, id string) (result *RiskReport, err error) {
	ctx, a, op := e.begin(ctx, "comprehensive_risk", resourceAttr(id))
	defer func() { e.finish(ctx, op, err, err != nil && result != nil) }()

	report := &RiskReport{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := a.scorer.Comprehensive(gctx, id)
		report.ComprehensiveAssessment = c
		return err
	})
	g.Go(func() error {
		ev, err := a.spof.Evaluate(gctx, id)
		report.SPOF = ev
		return err
	})
	g.Go(func() error {
		cycles, err := a.resolver.CyclesFrom(gctx, id)
		if cycles != nil {
			report.Cycles = involving(cycles.Cycles, id)
		}
		return err
	})
	if err := g.Wait(); err != nil {
		if riskerr.IsKind(err, riskerr.KindTimeout) {
			return report, err
		}
		return nil, err
	}
	report.Complete = true
	return report, nil
}

func involving(cycles []dependency.Cycle, id string) []dependency.Cycle {
	out := []dependency.Cycle{}
	for _, c := range cycles {
		for _, member := range c.Path {
			if member == id {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// BlastRadius computes what fails when id fails. On timeout the partial
// result is returned together with the error.
func (e *Engine) BlastRadius(ctx context.Context, id string) (result *blastradius.Result, err error) {
	ctx, a, op := e.begin(ctx, "blast_radius", resourceAttr(id))
	defer func() { e.finish(ctx, op, err, err != nil && result != nil) }()

	return a.blast.Calculate(ctx, id)
}

// SimulateFailure adds recovery steps and mitigations to the blast radius.
func (e *Engine) SimulateFailure(ctx context.Context, id string) (result *blastradius.Simulation, err error) {
	ctx, a, op := e.begin(ctx, "simulate_failure", resourceAttr(id))
	defer func() { e.finish(ctx, op, err, err != nil && result != nil) }()

	return a.blast.Simulate(ctx, id)
}

// ListSPOFs scans the resources matched by filter for single points of
// failure.
func (e *Engine) ListSPOFs(ctx context.Context, filter graph.ResourceFilter) (result *spof.Report, err error) {
	ctx, a, op := e.begin(ctx, "list_spofs",
		attribute.String("filter.type", string(filter.Type)),
		attribute.String("filter.provider", filter.Provider),
		attribute.String("filter.region", filter.Region),
		attribute.Int("filter.limit", filter.Limit))
	defer func() { e.finish(ctx, op, err, err != nil && result != nil) }()

	if filter.Limit < 0 {
		return nil, riskerr.InvalidParameter("limit", "must be >= 0, got %d", filter.Limit)
	}
	return a.spof.FindAll(ctx, filter)
}

// IsSPOF explains whether id is a single point of failure.
func (e *Engine) IsSPOF(ctx context.Context, id string) (result *spof.Evaluation, err error) {
	ctx, a, op := e.begin(ctx, "is_spof", resourceAttr(id))
	defer func() { e.finish(ctx, op, err, false) }()

	return a.spof.Evaluate(ctx, id)
}

// ListCycles reports circular dependencies. With an id it reports the
// cycles reachable upstream from that resource, otherwise every cycle in
// the filtered scope.
func (e *Engine) ListCycles(ctx context.Context, id string, filter graph.ResourceFilter) (result *dependency.CycleReport, err error) {
	ctx, a, op := e.begin(ctx, "list_cycles", resourceAttr(id))
	defer func() { e.finish(ctx, op, err, err != nil && result != nil) }()

	if id != "" {
		return a.resolver.CyclesFrom(ctx, id)
	}
	return a.resolver.FindCycles(ctx, filter)
}

// ResolveDependencies walks the graph from id. maxDepth 0 uses the
// configured default.
func (e *Engine) ResolveDependencies(ctx context.Context, id string, dir dependency.Direction, maxDepth int) (result *dependency.Resolution, err error) {
	ctx, a, op := e.begin(ctx, "resolve_dependencies",
		resourceAttr(id), attribute.String("direction", string(dir)), attribute.Int("max_depth", maxDepth))
	defer func() { e.finish(ctx, op, err, err != nil && result != nil) }()

	return a.resolver.Resolve(ctx, id, dir, maxDepth)
}

// TimeAwareRisk scores id and adjusts the score for a change at the given
// time, evaluated in the resource's timezone attribute when it has one. A
// zero at means now. horizonDays 0 uses the configured default.
func (e *Engine) TimeAwareRisk(ctx context.Context, id string, at time.Time, horizonDays int) (result *TimeAwareRisk, err error) {
	ctx, a, op := e.begin(ctx, "time_aware_risk", resourceAttr(id), attribute.Int("horizon_days", horizonDays))
	defer func() { e.finish(ctx, op, err, false) }()

	resource, err := e.store.GetResource(ctx, id)
	if err != nil {
		return nil, riskerr.Classify(err, "get resource")
	}
	calendar := a.calendar
	var warnings []string
	if tz, ok := resource.Attributes.String(AttrTimezone); ok && tz != "" {
		local, tzErr := calendar.In(tz)
		if tzErr != nil {
			e.logger.WithContext(ctx).WarnWithFields("Ignoring invalid resource timezone",
				logging.Field("resource_id", id),
				logging.Field("timezone", tz),
				logging.Field("fallback", calendar.Location().String()))
			warnings = append(warnings, fmt.Sprintf(
				"resource timezone %q is invalid; using %s", tz, calendar.Location().String()))
		} else {
			calendar = local
		}
	}

	assessment, err := a.scorer.Score(ctx, id)
	if err != nil {
		return nil, err
	}
	now := e.now()
	if at.IsZero() {
		at = now
	}
	windows, err := calendar.OptimalWindows(now, horizonDays)
	if err != nil {
		return nil, err
	}
	return &TimeAwareRisk{
		ResourceID:     id,
		Timezone:       calendar.Location().String(),
		Assessment:     assessment,
		Adjustment:     calendar.Adjust(assessment.Score, at),
		OptimalWindows: windows,
		Warnings:       warnings,
	}, nil
}

// CostImpact prices a failure of id.
func (e *Engine) CostImpact(ctx context.Context, id string, req CostRequest) (result *cost.Breakdown, err error) {
	ctx, a, op := e.begin(ctx, "cost_impact", resourceAttr(id))
	defer func() { e.finish(ctx, op, err, false) }()

	return e.costImpact(ctx, a, id, req)
}

func (e *Engine) costImpact(ctx context.Context, a *analyzers, id string, req CostRequest) (*cost.Breakdown, error) {
	resource, err := e.store.GetResource(ctx, id)
	if err != nil {
		return nil, riskerr.Classify(err, "get resource")
	}
	scenario := cost.Scenario{Industry: req.Industry}

	if req.DowntimeHours == nil || req.AffectedUsers == nil {
		blast, err := a.blast.Calculate(ctx, id)
		if err != nil {
			return nil, err
		}
		if req.DowntimeHours == nil {
			scenario.DowntimeHours = math.Round(float64(blast.EstimatedDowntimeSeconds)/36) / 100
		}
		if req.AffectedUsers == nil {
			scenario.AffectedUsers = estimatedUsers(*resource, blast.TotalAffected)
		}
	}
	if req.DowntimeHours != nil {
		scenario.DowntimeHours = *req.DowntimeHours
	}
	if req.AffectedUsers != nil {
		scenario.AffectedUsers = *req.AffectedUsers
	}
	if req.HasSLA != nil {
		scenario.HasSLA = *req.HasSLA
	} else if v, ok := resource.Attributes.Bool(AttrHasSLA); ok {
		scenario.HasSLA = v
	}
	return a.cost.Estimate(*resource, scenario)
}

// estimatedUsers is the resource's estimated_users attribute scaled by the
// number of resources that fail with it, the resource itself included.
func estimatedUsers(r graph.Resource, totalAffected int) int64 {
	perResource, ok := r.Attributes.Float(AttrEstimatedUsers)
	if !ok || perResource <= 0 {
		return 0
	}
	return int64(math.Round(perResource * float64(totalAffected+1)))
}

// AnnualRiskCost combines the risk score of id with the cost of a single
// failure into an expected yearly cost.
func (e *Engine) AnnualRiskCost(ctx context.Context, id string, req CostRequest) (result *cost.AnnualRisk, err error) {
	ctx, a, op := e.begin(ctx, "annual_risk_cost", resourceAttr(id))
	defer func() { e.finish(ctx, op, err, false) }()

	var (
		assessment *risk.Assessment
		breakdown  *cost.Breakdown
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		assessment, err = a.scorer.Score(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		breakdown, err = e.costImpact(gctx, a, id, req)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return a.cost.AnnualRiskCost(breakdown, assessment.Score), nil
}

// AnalyzeTrend classifies a score history and forecasts it.
func (e *Engine) AnalyzeTrend(ctx context.Context, snapshots []trend.Snapshot, opts trend.Options) (result *trend.Result, err error) {
	ctx, a, op := e.begin(ctx, "analyze_trend", attribute.Int("snapshots", len(snapshots)))
	defer func() { e.finish(ctx, op, err, false) }()

	if err := riskerr.FromContext(ctx, "analyze trend"); err != nil {
		return nil, err
	}
	return a.trend.Analyze(snapshots, opts)
}

// AnalyzeRootCause ranks candidate causes of an incident on id.
func (e *Engine) AnalyzeRootCause(ctx context.Context, in rootcause.Input) (result *rootcause.Report, err error) {
	ctx, a, op := e.begin(ctx, "analyze_root_cause", resourceAttr(in.ResourceID),
		attribute.Int("deployments", len(in.Deployments)),
		attribute.Int("anomalies", len(in.Anomalies)),
		attribute.Int("dependency_failures", len(in.DependencyFailures)))
	defer func() { e.finish(ctx, op, err, err != nil && result != nil) }()

	return a.rootcause.Analyze(ctx, in)
}
