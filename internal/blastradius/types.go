package blastradius

import (
	"github.com/moolen/riskgraph/internal/graph"
	"github.com/moolen/riskgraph/internal/misconfig"
)

// UserImpact is the qualitative magnitude of a failure for end users.
type UserImpact string

const (
	ImpactNone     UserImpact = "none"
	ImpactLow      UserImpact = "low"
	ImpactMedium   UserImpact = "medium"
	ImpactHigh     UserImpact = "high"
	ImpactCritical UserImpact = "critical"
)

// Where the user impact came from.
const (
	ImpactSourceThreshold   = "affected_count"
	ImpactSourceCriticality = "criticality_tier"
)

// Result describes what fails when a resource fails. It holds no timestamps,
// so repeated calculations on an unchanged graph compare equal.
type Result struct {
	ResourceID               string             `json:"resource_id"`
	ResourceType             graph.ResourceType `json:"resource_type"`
	DirectlyAffected         []string           `json:"directly_affected"`
	IndirectlyAffected       []string           `json:"indirectly_affected"`
	TotalAffected            int                `json:"total_affected"`
	EstimatedDowntimeSeconds int64              `json:"estimated_downtime_seconds"`
	UserImpact               UserImpact         `json:"user_impact"`
	ImpactSource             string             `json:"impact_source"`
	MaxDepthReached          int                `json:"max_depth_reached"`
	Complete                 bool               `json:"complete"`
}

// Simulation is a Result plus advisory recovery guidance.
type Simulation struct {
	BlastRadius       *Result             `json:"blast_radius"`
	Misconfigurations []misconfig.Finding `json:"misconfigurations"`
	RecoverySteps     []string            `json:"recovery_steps"`
	Mitigations       []string            `json:"mitigations"`
	// Advisory marks the text fields as templated guidance, not computed risk.
	Advisory bool `json:"advisory"`
}
