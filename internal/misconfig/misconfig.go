// Package misconfig detects configuration weaknesses from a resource's
// attribute map. Every check is a pure function of (type, attributes).
package misconfig

import (
	"github.com/moolen/riskgraph/internal/graph"
)

// Type names a catalog entry.
type Type string

const (
	NoAvailabilityZone Type = "no_availability_zone"
	NoReplication      Type = "no_replication"
	NoBackup           Type = "no_backup"
	NoFirewall         Type = "no_firewall"
	NoEncryption       Type = "no_encryption"
	NoRedundancy       Type = "no_redundancy"
	NoMonitoring       Type = "no_monitoring"
)

// Severity grades a finding.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Points is the flat risk-score contribution of a finding by severity.
var Points = map[Severity]float64{
	SeverityCritical: 25,
	SeverityHigh:     15,
	SeverityMedium:   8,
	SeverityLow:      3,
}

// Finding is one detected misconfiguration.
type Finding struct {
	Type           Type     `json:"type"`
	Severity       Severity `json:"severity"`
	PointImpact    float64  `json:"point_impact"`
	Recommendation string   `json:"recommendation"`
}

// Check inspects one aspect of a resource. It returns nil when the aspect is
// fine or does not apply to the type.
type Check func(t graph.ResourceType, attrs graph.Attributes) []Finding

// Catalog is the ordered list of checks Detect runs.
var Catalog = []Check{
	CheckAvailabilityZone,
	CheckReplication,
	CheckBackup,
	CheckFirewall,
	CheckEncryption,
	CheckRedundancy,
	CheckMonitoring,
}

// Detect runs the catalog against r. Unknown resource types yield no findings.
func Detect(r graph.Resource) []Finding {
	if !r.Type.IsKnown() {
		return nil
	}
	var findings []Finding
	for _, check := range Catalog {
		findings = append(findings, check(r.Type, r.Attributes)...)
	}
	return findings
}

// TotalPoints sums the point impact of findings.
func TotalPoints(findings []Finding) float64 {
	var total float64
	for _, f := range findings {
		total += f.PointImpact
	}
	return total
}

func finding(t Type, sev Severity, recommendation string) []Finding {
	return []Finding{{
		Type:           t,
		Severity:       sev,
		PointImpact:    Points[sev],
		Recommendation: recommendation,
	}}
}

func applies(t graph.ResourceType, types ...graph.ResourceType) bool {
	for _, candidate := range types {
		if t == candidate {
			return true
		}
	}
	return false
}

// enabled reports a boolean attribute; missing counts as disabled.
func enabled(attrs graph.Attributes, key string) bool {
	v, ok := attrs.Bool(key)
	return ok && v
}

func atLeast(attrs graph.Attributes, key string, n int) bool {
	v, ok := attrs.Int(key)
	return ok && v >= n
}
