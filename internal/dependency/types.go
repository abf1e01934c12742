// Package dependency walks the infrastructure graph: depth-limited
// dependency resolution in either direction, edge-filtered traversal for the
// impact analyses, circular dependency detection, and redundancy peers.
package dependency

import (
	"fmt"
	"strings"

	"github.com/moolen/riskgraph/internal/graph"
)

// Direction selects which side of a resource to walk.
type Direction string

const (
	// Upstream walks the resources this one depends on.
	Upstream Direction = "upstream"
	// Downstream walks the resources depending on this one.
	Downstream Direction = "downstream"
	// Both is the union of Upstream and Downstream.
	Both Direction = "both"
)

// ParseDirection parses a direction name. Empty means Both.
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return Both, nil
	case Upstream:
		return Upstream, nil
	case Downstream:
		return Downstream, nil
	case Both:
		return Both, nil
	}
	return "", fmt.Errorf("unknown direction %q (must be upstream, downstream or both)", s)
}

const (
	// MaxDepthCeiling is the hard cap on Resolve depth. Larger requests are clamped.
	MaxDepthCeiling = 10
	// DefaultMaxDepth applies when a caller passes 0.
	DefaultMaxDepth = 5
)

// Config tunes the resolver.
type Config struct {
	DefaultMaxDepth int `yaml:"default_max_depth" validate:"gte=1,lte=10"`
}

// DefaultConfig returns the default resolver settings.
func DefaultConfig() Config {
	return Config{DefaultMaxDepth: DefaultMaxDepth}
}

// EdgeFilter decides whether a traversal may follow an edge.
type EdgeFilter func(graph.Edge) bool

// DependencyEdges follows every DEPENDS_ON edge.
func DependencyEdges(e graph.Edge) bool {
	return e.IsDependency()
}

// ResolvedResource is one resource reached by a traversal.
type ResolvedResource struct {
	Resource   graph.Resource `json:"resource"`
	PathLength int            `json:"path_length"`
	Direction  Direction      `json:"direction"`
	// Via is the resource through which this one was first reached.
	Via  string     `json:"via"`
	Edge graph.Edge `json:"edge"`
}

// Resolution is the result of Resolve or Traverse. Resources are ordered by
// path length, then id.
type Resolution struct {
	ResourceID     string             `json:"resource_id"`
	Direction      Direction          `json:"direction"`
	RequestedDepth int                `json:"requested_depth"`
	MaxDepth       int                `json:"max_depth"`
	Clamped        bool               `json:"clamped"`
	Resources      []ResolvedResource `json:"resources"`
	// DeepestLevel is the largest path length reached.
	DeepestLevel int `json:"deepest_level"`
	// Complete is false when the traversal stopped early on cancellation.
	Complete bool `json:"complete"`
}

// IDs returns the resolved resource ids in result order.
func (r *Resolution) IDs() []string {
	out := make([]string, 0, len(r.Resources))
	for _, res := range r.Resources {
		out = append(out, res.Resource.ID)
	}
	return out
}

// Cycle is one circular dependency. Path starts at the smallest id and lists
// each member once; the last member depends on the first.
type Cycle struct {
	Path   []string `json:"path"`
	Length int      `json:"length"`
}

// CycleReport lists the cycles found in a scope.
type CycleReport struct {
	Cycles           []Cycle `json:"cycles"`
	ResourcesScanned int     `json:"resources_scanned"`
	Complete         bool    `json:"complete"`
}
