package blastradius

import (
	"fmt"

	"github.com/moolen/riskgraph/internal/graph"
	"github.com/moolen/riskgraph/internal/misconfig"
)

var recoveryTemplates = map[graph.ResourceType][]string{
	graph.TypeDatabase: {
		"Fail over to a replica or restore the most recent backup",
		"Verify data consistency before reopening writes",
		"Drain and reconnect application connection pools",
	},
	graph.TypeCompute: {
		"Replace the failed instance from its launch template or image",
		"Re-register the replacement with its load balancer target group",
	},
	graph.TypeCache: {
		"Restart or replace the cache node",
		"Warm critical keys before restoring full traffic",
	},
	graph.TypeStorage: {
		"Restore objects from versioning or a backup bucket",
		"Verify access policies on the restored bucket",
	},
	graph.TypeNetwork: {
		"Restore route tables and security group rules from the last known good state",
		"Verify connectivity between dependent subnets",
	},
	graph.TypeIdentity: {
		"Restore the role or policy from version history",
		"Rotate credentials issued during the incident",
	},
	graph.TypeLoadBalancer: {
		"Recreate listeners and target groups",
		"Confirm health checks pass for all registered targets",
	},
	graph.TypeQueue: {
		"Restore the queue and re-point producers",
		"Replay messages from the dead letter queue",
	},
	graph.TypeContainer: {
		"Roll back to the last healthy task definition or image",
		"Scale the service back to its desired count",
	},
	graph.TypeServerless: {
		"Roll back to the previous function version or alias",
		"Check concurrency limits and throttling",
	},
}

var defaultRecovery = []string{
	"Identify the failed component and restore it from its last known good configuration",
	"Verify dependent services recover",
}

func recoverySteps(t graph.ResourceType) []string {
	steps, ok := recoveryTemplates[t]
	if !ok {
		steps = defaultRecovery
	}
	out := make([]string, len(steps))
	copy(out, steps)
	return out
}

// mitigations derives guidance from the blast radius and the findings. The
// output order is stable.
func mitigations(result *Result, findings []misconfig.Finding) []string {
	out := []string{}
	for _, f := range findings {
		out = append(out, f.Recommendation)
	}
	if n := len(result.DirectlyAffected); n > 0 {
		out = append(out, fmt.Sprintf("Add circuit breakers or graceful degradation in the %d direct dependents", n))
	}
	switch result.UserImpact {
	case ImpactHigh, ImpactCritical:
		out = append(out, "Add redundancy for this resource; its failure reaches a large share of the graph")
	}
	return out
}
