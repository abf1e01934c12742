// Package rootcause ranks candidate causes of an incident. It merges the
// caller's deployment, anomaly and dependency failure events into one
// timeline, weighs each event by type, timing and distance in the
// dependency graph, and lowers confidence when the input is sparse.
package rootcause

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/moolen/riskgraph/internal/dependency"
	"github.com/moolen/riskgraph/internal/logging"
	"github.com/moolen/riskgraph/internal/riskerr"
)

// Warnings emitted on sparse input.
const (
	WarnInsufficientEvents  = "insufficient historical events"
	WarnNoDeployments       = "no deployment record found"
	WarnApproximateTimes    = "approximate timestamps"
	WarnIncompleteTraversal = "dependency traversal incomplete"
)

// Correlator runs root cause analyses. It is safe for concurrent use.
type Correlator struct {
	resolver *dependency.Resolver
	config   Config
	now      func() time.Time
	newID    func() string
	logger   *logging.Logger
}

// NewCorrelator creates a correlator.
func NewCorrelator(resolver *dependency.Resolver, config Config) *Correlator {
	return &Correlator{
		resolver: resolver,
		config:   config,
		now:      time.Now,
		newID:    uuid.NewString,
		logger:   logging.GetLogger("rootcause"),
	}
}

// Analyze builds the incident timeline and ranks candidate causes. When ctx
// ends during the dependency walk the analysis proceeds on the resources
// found so far, the report is marked incomplete, and a Timeout error is
// returned with it.
func (c *Correlator) Analyze(ctx context.Context, in Input) (*Report, error) {
	if err := c.validate(in); err != nil {
		return nil, err
	}

	report := &Report{
		ID:          c.newID(),
		ResourceID:  in.ResourceID,
		Window:      in.Window,
		GeneratedAt: c.now().UTC(),
		Warnings:    []string{},
		Complete:    true,
	}

	depth := in.MaxDependencyDepth
	if depth == 0 {
		depth = c.config.DefaultMaxDepth
	}
	resolution, walkErr := c.resolver.Resolve(ctx, in.ResourceID, dependency.Upstream, depth)
	if resolution == nil {
		return nil, walkErr
	}
	report.MaxDependencyDepth = resolution.MaxDepth
	report.UpstreamExamined = len(resolution.Resources)
	if resolution.Clamped {
		report.Warnings = append(report.Warnings, fmt.Sprintf(
			"max_dependency_depth %d exceeds the ceiling and was clamped to %d", in.MaxDependencyDepth, resolution.MaxDepth))
	}
	if walkErr != nil {
		report.Complete = false
		report.Warnings = append(report.Warnings, fmt.Sprintf("%s: %d upstream resources examined", WarnIncompleteTraversal, report.UpstreamExamined))
	}

	hops := map[string]int{in.ResourceID: 0}
	for _, rr := range resolution.Resources {
		hops[rr.Resource.ID] = rr.PathLength
	}

	timeline, approximate, dropped := c.buildTimeline(in, hops)
	report.Timeline = timeline
	if dropped > 0 {
		c.logger.Debug("Dropped %d events outside the analysis window for %s", dropped, in.ResourceID)
	}

	penalty := c.penalty(in, timeline, approximate, report)
	report.ConfidencePenalty = penalty
	report.Candidates = c.rank(timeline, in.Window, penalty, resolution.MaxDepth)
	report.DataQuality = dataQuality(penalty, len(timeline))

	c.logger.InfoWithFields("Root cause analysis complete",
		logging.Field("report_id", report.ID),
		logging.Field("resource_id", in.ResourceID),
		logging.Field("events", len(timeline)),
		logging.Field("candidates", len(report.Candidates)),
		logging.Field("data_quality", string(report.DataQuality)))
	return report, walkErr
}

func (c *Correlator) validate(in Input) error {
	if strings.TrimSpace(in.ResourceID) == "" {
		return riskerr.InvalidParameter("resource_id", "must not be empty")
	}
	if in.Window.Start.IsZero() || in.Window.End.IsZero() {
		return riskerr.InvalidParameter("window", "start and end are required")
	}
	if in.Window.End.Before(in.Window.Start) {
		return riskerr.InvalidParameter("window", "end %s is before start %s",
			in.Window.End.Format(time.RFC3339), in.Window.Start.Format(time.RFC3339))
	}
	if in.MaxDependencyDepth < 0 {
		return riskerr.InvalidParameter("max_dependency_depth", "must be >= 0, got %d", in.MaxDependencyDepth)
	}
	for i, a := range in.Anomalies {
		if a.Score < 0 || a.Score > 1 || math.IsNaN(a.Score) {
			return riskerr.InvalidParameter("anomalies", "anomaly %d score %v outside [0,1]", i, a.Score)
		}
	}
	return nil
}

// buildTimeline merges the three sources in source order, places events
// without a timestamp at the window start, and keeps those inside
// [start-lookback, end]. It returns the number of approximate and dropped
// events.
func (c *Correlator) buildTimeline(in Input, hops map[string]int) ([]TimelineEvent, int, int) {
	var events []TimelineEvent
	add := func(ts time.Time, typ EventType, resourceID, desc string) *TimelineEvent {
		ev := TimelineEvent{Timestamp: ts, Type: typ, ResourceID: resourceID, Description: desc, HopDistance: -1}
		if h, ok := hops[resourceID]; ok {
			ev.HopDistance = h
		}
		if ts.IsZero() {
			ev.Timestamp = in.Window.Start
			ev.Approximate = true
		}
		events = append(events, ev)
		return &events[len(events)-1]
	}

	for _, d := range in.Deployments {
		typ := EventDeployment
		if d.ChangeType == ChangeConfiguration {
			typ = EventConfiguration
		}
		desc := d.Description
		if desc == "" {
			desc = fmt.Sprintf("%s on %s", typ, d.ResourceID)
		}
		add(d.Timestamp, typ, d.ResourceID, desc)
	}
	for _, f := range in.DependencyFailures {
		desc := f.Description
		if desc == "" {
			desc = fmt.Sprintf("dependency %s failed", f.ResourceID)
		}
		add(f.Timestamp, EventDependencyFailure, f.ResourceID, desc)
	}
	for _, a := range in.Anomalies {
		ev := add(a.Timestamp, EventAnomaly, a.ResourceID,
			fmt.Sprintf("%s anomaly on %s (value %g, score %.2f)", a.Metric, a.ResourceID, a.Value, a.Score))
		ev.metric = a.Metric
		ev.score = a.Score
	}

	from := in.Window.Start.Add(-c.config.Lookback)
	kept := make([]TimelineEvent, 0, len(events))
	approximate, dropped := 0, 0
	for _, ev := range events {
		if ev.Timestamp.Before(from) || ev.Timestamp.After(in.Window.End) {
			dropped++
			continue
		}
		if ev.Approximate {
			approximate++
		}
		kept = append(kept, ev)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Timestamp.Before(kept[j].Timestamp)
	})
	return kept, approximate, dropped
}

// penalty sums the sparse-data penalties, capped at MaxPenalty, and records
// a warning for each.
func (c *Correlator) penalty(in Input, timeline []TimelineEvent, approximate int, report *Report) float64 {
	var p float64
	if len(timeline) < c.config.MinEvents {
		p += c.config.SparsePenalty
		report.Warnings = append(report.Warnings, fmt.Sprintf(
			"%s: %d events in the analysis window, expected at least %d", WarnInsufficientEvents, len(timeline), c.config.MinEvents))
	}
	if len(in.Deployments) == 0 {
		p += c.config.NoDeploymentPenalty
		report.Warnings = append(report.Warnings, WarnNoDeployments)
	}
	if approximate > 0 {
		p += c.config.ApproximatePenalty
		report.Warnings = append(report.Warnings, fmt.Sprintf(
			"%s: %d events had no timestamp and were placed at the window start", WarnApproximateTimes, approximate))
	}
	return math.Min(p, c.config.MaxPenalty)
}

func dataQuality(penalty float64, events int) DataQuality {
	switch {
	case events == 0 || penalty >= 0.2:
		return QualityLow
	case penalty > 0:
		return QualityMedium
	}
	return QualityHigh
}
