package engine

import (
	"github.com/moolen/riskgraph/internal/dependency"
	"github.com/moolen/riskgraph/internal/risk"
	"github.com/moolen/riskgraph/internal/spof"
	"github.com/moolen/riskgraph/internal/timing"
)

// RiskReport is the comprehensive view of one resource: the blended risk,
// its SPOF verdict and the cycles it takes part in.
type RiskReport struct {
	*risk.ComprehensiveAssessment
	SPOF   *spof.Evaluation   `json:"spof"`
	Cycles []dependency.Cycle `json:"cycles"`

	// Complete is false when a timeout stopped one of the parts.
	Complete bool `json:"complete"`
}

// TimeAwareRisk is a risk score adjusted for when a change happens, with
// the safest upcoming windows.
type TimeAwareRisk struct {
	ResourceID     string            `json:"resource_id"`
	Timezone       string            `json:"timezone"`
	Assessment     *risk.Assessment  `json:"assessment"`
	Adjustment     timing.Adjustment `json:"adjustment"`
	OptimalWindows []timing.Window   `json:"optimal_windows"`
	Warnings       []string          `json:"warnings,omitempty"`
}

// CostRequest describes a failure to price. Nil fields are derived from the
// graph: downtime from the blast radius estimate, users from the
// estimated_users attribute, SLA from the has_sla attribute.
type CostRequest struct {
	DowntimeHours *float64 `json:"downtime_hours,omitempty"`
	AffectedUsers *int64   `json:"affected_users,omitempty"`
	Industry      string   `json:"industry,omitempty"`
	HasSLA        *bool    `json:"has_sla,omitempty"`
}
