package spof

import (
	"github.com/moolen/riskgraph/internal/blastradius"
	"github.com/moolen/riskgraph/internal/graph"
)

// Config tunes the full-graph scan.
type Config struct {
	ScanConcurrency int `yaml:"scan_concurrency" validate:"gte=1,lte=256"`
}

// DefaultConfig returns the default scan settings.
func DefaultConfig() Config {
	return Config{ScanConcurrency: 8}
}

// Evaluation explains the SPOF verdict for one resource.
type Evaluation struct {
	ResourceID        string             `json:"resource_id"`
	ResourceType      graph.ResourceType `json:"resource_type"`
	IsSPOF            bool               `json:"is_spof"`
	DependentCount    int                `json:"dependent_count"`
	Dependents        []string           `json:"dependents"`
	RedundancySignals []string           `json:"redundancy_signals"`
}

// Entry is one single point of failure in a Report.
type Entry struct {
	Resource       graph.Resource      `json:"resource"`
	DependentCount int                 `json:"dependent_count"`
	BlastRadius    *blastradius.Result `json:"blast_radius"`
}

// Report is the result of a scan, ordered by blast radius size, then
// dependent count, then id.
type Report struct {
	SPOFs            []Entry `json:"spofs"`
	ResourcesScanned int     `json:"resources_scanned"`
	Complete         bool    `json:"complete"`
}
