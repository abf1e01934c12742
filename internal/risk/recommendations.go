package risk

import (
	"fmt"
)

// recommendations renders templated advice from the factors and findings of
// a. The order is stable: factor advice first, then finding advice.
func recommendations(a *Assessment) []string {
	out := []string{}

	if f, _ := a.Factor(FactorDependents); f.Value >= 0.5 {
		out = append(out, fmt.Sprintf(
			"%d resources fail with this one; decouple consumers with queues, caches or fallbacks", a.DependentCount))
	}
	if f, _ := a.Factor(FactorCriticality); f.Value >= 0.75 && len(a.RedundancySignals) == 0 {
		out = append(out, "Critical resource without redundancy: add a standby, replica or second availability zone")
	}
	if f, _ := a.Factor(FactorFailureRate); f.Value >= 0.3 {
		out = append(out, "High historical failure rate: review recent incidents and add health checks and alerting")
	}
	if f, _ := a.Factor(FactorRecency); f.Value >= 0.5 {
		out = append(out, "Recent unverified change: verify it or prepare a rollback before further changes")
	}

	for _, finding := range a.Misconfigurations {
		out = append(out, finding.Recommendation)
	}

	switch a.Level {
	case LevelHigh, LevelCritical:
		out = append(out, "Schedule changes to this resource inside a low-traffic window")
	}
	return out
}
