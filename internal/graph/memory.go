package graph

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/moolen/riskgraph/internal/riskerr"
)

// MemoryStore is a Store backed by maps. It serves snapshot files and tests.
type MemoryStore struct {
	mu        sync.RWMutex
	resources map[string]Resource
	outgoing  map[string][]Edge
	incoming  map[string][]Edge
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		resources: make(map[string]Resource),
		outgoing:  make(map[string][]Edge),
		incoming:  make(map[string][]Edge),
	}
}

// AddResource inserts or replaces a resource.
func (s *MemoryStore) AddResource(r Resource) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if r.Attributes == nil {
		r.Attributes = Attributes{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.resources[r.ID] = r
	return nil
}

// AddEdge inserts an edge. Both endpoints must already exist.
func (s *MemoryStore) AddEdge(e Edge) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if e.Kind == "" {
		e.Kind = KindDependsOn
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.resources[e.SourceID]; !ok {
		return fmt.Errorf("edge source %q does not exist", e.SourceID)
	}
	if _, ok := s.resources[e.TargetID]; !ok {
		return fmt.Errorf("edge target %q does not exist", e.TargetID)
	}
	s.outgoing[e.SourceID] = append(s.outgoing[e.SourceID], e)
	s.incoming[e.TargetID] = append(s.incoming[e.TargetID], e)
	return nil
}

// SetAttribute updates one attribute of an existing resource.
func (s *MemoryStore) SetAttribute(id, key string, value interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.resources[id]
	if !ok {
		return riskerr.NotFound(id)
	}
	attrs := make(Attributes, len(r.Attributes)+1)
	for k, v := range r.Attributes {
		attrs[k] = v
	}
	attrs[key] = value
	r.Attributes = attrs
	s.resources[id] = r
	return nil
}

// GetResource implements Store.
func (s *MemoryStore) GetResource(ctx context.Context, id string) (*Resource, error) {
	if err := ctx.Err(); err != nil {
		return nil, riskerr.Classify(err, "get resource")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.resources[id]
	if !ok {
		return nil, riskerr.NotFound(id)
	}
	r.Attributes = r.Attributes.Clone()
	return &r, nil
}

// OutgoingEdges implements Store.
func (s *MemoryStore) OutgoingEdges(ctx context.Context, id string) ([]Edge, error) {
	return s.edges(ctx, id, s.outgoing)
}

// IncomingEdges implements Store.
func (s *MemoryStore) IncomingEdges(ctx context.Context, id string) ([]Edge, error) {
	return s.edges(ctx, id, s.incoming)
}

func (s *MemoryStore) edges(ctx context.Context, id string, index map[string][]Edge) ([]Edge, error) {
	if err := ctx.Err(); err != nil {
		return nil, riskerr.Classify(err, "list edges")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.resources[id]; !ok {
		return nil, riskerr.NotFound(id)
	}
	out := make([]Edge, len(index[id]))
	copy(out, index[id])
	return out, nil
}

// ListResources implements Store. Results are sorted by id.
func (s *MemoryStore) ListResources(ctx context.Context, filter ResourceFilter) ([]Resource, error) {
	if err := ctx.Err(); err != nil {
		return nil, riskerr.Classify(err, "list resources")
	}
	s.mu.RLock()
	ids := make([]string, 0, len(s.resources))
	for id, r := range s.resources {
		if filter.Matches(r) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if filter.Limit > 0 && len(ids) > filter.Limit {
		ids = ids[:filter.Limit]
	}
	out := make([]Resource, 0, len(ids))
	for _, id := range ids {
		r := s.resources[id]
		r.Attributes = r.Attributes.Clone()
		out = append(out, r)
	}
	s.mu.RUnlock()
	return out, nil
}

// Len returns the number of resources.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.resources)
}
