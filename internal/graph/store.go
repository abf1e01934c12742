// Package graph is the read boundary between the analysis engine and the
// infrastructure graph. Analyses only see the Store interface; the
// in-memory, FalkorDB and cached implementations live here.
package graph

import (
	"context"
)

// Store is the query contract the engine consumes. Implementations must be
// safe for concurrent readers. GetResource returns a riskerr NotFound error
// for unknown ids; OutgoingEdges and IncomingEdges return an empty slice for a
// known resource without edges.
type Store interface {
	GetResource(ctx context.Context, id string) (*Resource, error)
	OutgoingEdges(ctx context.Context, id string) ([]Edge, error)
	IncomingEdges(ctx context.Context, id string) ([]Edge, error)
	ListResources(ctx context.Context, filter ResourceFilter) ([]Resource, error)
}

// ResourceFilter scopes ListResources. Zero values match everything.
type ResourceFilter struct {
	Type     ResourceType `json:"type,omitempty"`
	Provider string       `json:"provider,omitempty"`
	Region   string       `json:"region,omitempty"`
	// Limit caps the number of resources returned; 0 means no cap.
	Limit int `json:"limit,omitempty"`
}

// Matches reports whether r passes the filter.
func (f ResourceFilter) Matches(r Resource) bool {
	if f.Type != "" && r.Type != f.Type {
		return false
	}
	if f.Provider != "" && r.Provider != f.Provider {
		return false
	}
	if f.Region != "" && r.Region != f.Region {
		return false
	}
	return true
}
