package rootcause

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

type candidateKey struct {
	cause    CauseType
	resource string
}

// rank groups timeline events into one candidate per cause and resource,
// scores each by its strongest event, and orders by confidence then by the
// time of the earliest evidence.
func (c *Correlator) rank(timeline []TimelineEvent, window Window, penalty float64, maxDepth int) []Candidate {
	byKey := make(map[candidateKey]*Candidate)
	first := make(map[candidateKey]time.Time)
	var order []candidateKey

	for _, ev := range timeline {
		cause := c.causeOf(ev)
		raw := c.rawConfidence(cause, ev, window, maxDepth)
		key := candidateKey{cause: cause, resource: ev.ResourceID}

		cand, ok := byKey[key]
		if !ok {
			cand = &Candidate{Type: cause, ResourceID: ev.ResourceID, HopDistance: ev.HopDistance}
			byKey[key] = cand
			first[key] = ev.Timestamp
			order = append(order, key)
		}
		cand.Evidence = append(cand.Evidence, ev)
		if raw > cand.RawConfidence {
			cand.RawConfidence = raw
		}
	}

	candidates := make([]Candidate, 0, len(order))
	for _, key := range order {
		cand := byKey[key]
		cand.RawConfidence = round(cand.RawConfidence)
		cand.Confidence = c.penalize(cand.Type, cand.RawConfidence, penalty)
		cand.RecommendedActions = actions(*cand)
		candidates = append(candidates, *cand)
	}

	if len(candidates) == 0 {
		prior := c.config.Priors[CauseUnknown]
		unknown := Candidate{
			Type:          CauseUnknown,
			RawConfidence: prior,
			Confidence:    c.penalize(CauseUnknown, prior, penalty),
			HopDistance:   -1,
			Evidence:      []TimelineEvent{},
		}
		unknown.RecommendedActions = actions(unknown)
		return []Candidate{unknown}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		ta := first[candidateKey{a.Type, a.ResourceID}]
		tb := first[candidateKey{b.Type, b.ResourceID}]
		return ta.Before(tb)
	})
	return candidates
}

func (c *Correlator) causeOf(ev TimelineEvent) CauseType {
	switch ev.Type {
	case EventDeployment:
		return CauseDeployment
	case EventConfiguration:
		return CauseConfigChange
	case EventDependencyFailure:
		return CauseDependencyFailure
	}
	metric := strings.ToLower(ev.metric)
	for _, m := range c.config.ExhaustionMetrics {
		if strings.Contains(metric, m) {
			return CauseResourceExhaustion
		}
	}
	return CauseExternalAnomaly
}

// rawConfidence is prior * temporal * distance. External anomalies are not
// expected on the dependency path and carry no distance discount.
func (c *Correlator) rawConfidence(cause CauseType, ev TimelineEvent, window Window, maxDepth int) float64 {
	prior := c.config.Priors[cause]
	if cause == CauseResourceExhaustion {
		prior *= ev.score
	}
	distance := 1.0
	if cause != CauseExternalAnomaly {
		hops := ev.HopDistance
		if hops < 0 {
			hops = maxDepth + 1
		}
		distance = 1 / (1 + c.config.HopDecay*float64(hops))
	}
	return prior * c.temporalFactor(window, ev.Timestamp) * distance
}

// temporalFactor is 1 for events at most LeadTime before the incident start
// and decays linearly to MinTemporalFactor at the lookback edge. Events after
// the start decay from 1 at the start to MinTemporalFactor at the window end.
func (c *Correlator) temporalFactor(window Window, ts time.Time) float64 {
	floor := c.config.MinTemporalFactor
	if ts.After(window.Start) {
		length := window.End.Sub(window.Start)
		if length <= 0 {
			return floor
		}
		frac := math.Min(float64(ts.Sub(window.Start))/float64(length), 1)
		return 1 - (1-floor)*frac
	}
	before := window.Start.Sub(ts)
	if before <= c.config.LeadTime {
		return 1
	}
	span := c.config.Lookback - c.config.LeadTime
	if span <= 0 {
		return floor
	}
	frac := math.Min(float64(before-c.config.LeadTime)/float64(span), 1)
	return 1 - (1-floor)*frac
}

// penalize applies the sparse-data penalty without pushing a confidence
// below its type's floor, unless the raw value already was.
func (c *Correlator) penalize(cause CauseType, raw, penalty float64) float64 {
	v := raw * (1 - penalty)
	if floor := c.config.Floors[cause]; raw >= floor && v < floor {
		v = floor
	}
	return round(math.Min(v, 1))
}

func actions(cand Candidate) []string {
	id := cand.ResourceID
	switch cand.Type {
	case CauseDeployment:
		return []string{
			fmt.Sprintf("Roll back the most recent deployment on %s", id),
			"Compare error rates and latency before and after the deployment",
		}
	case CauseConfigChange:
		return []string{
			fmt.Sprintf("Revert the configuration change on %s", id),
			"Diff the configuration against the last known good version",
		}
	case CauseDependencyFailure:
		return []string{
			fmt.Sprintf("Check the health of dependency %s", id),
			fmt.Sprintf("Fail over or enable circuit breaking for calls to %s", id),
		}
	case CauseResourceExhaustion:
		metric := "capacity"
		if len(cand.Evidence) > 0 && cand.Evidence[0].metric != "" {
			metric = cand.Evidence[0].metric
		}
		return []string{
			fmt.Sprintf("Scale %s or raise its %s limit", id, metric),
			"Investigate the load growth that exhausted the resource",
		}
	case CauseExternalAnomaly:
		return []string{
			fmt.Sprintf("Correlate the anomaly on %s with provider status pages and external traffic", id),
		}
	}
	return []string{
		"Collect deployment, metric and dependency data for the incident window and rerun the analysis",
	}
}

func round(v float64) float64 {
	return math.Round(v*1000) / 1000
}
