// Package graphtest builds in-memory graphs for tests.
package graphtest

import (
	"testing"

	"github.com/moolen/riskgraph/internal/graph"
)

// Builder accumulates resources and edges into a MemoryStore and fails the
// test on invalid input.
type Builder struct {
	t     testing.TB
	store *graph.MemoryStore
}

// New returns an empty builder.
func New(t testing.TB) *Builder {
	t.Helper()
	return &Builder{t: t, store: graph.NewMemoryStore()}
}

// Resource adds a resource. attrs may be nil.
func (b *Builder) Resource(id string, typ graph.ResourceType, attrs graph.Attributes) *Builder {
	b.t.Helper()
	return b.Add(graph.Resource{ID: id, Type: typ, Name: id, Attributes: attrs})
}

// Add adds a fully specified resource.
func (b *Builder) Add(r graph.Resource) *Builder {
	b.t.Helper()
	if err := b.store.AddResource(r); err != nil {
		b.t.Fatalf("add resource %q: %v", r.ID, err)
	}
	return b
}

// Depends adds "source depends on target" with a strength matching the type.
func (b *Builder) Depends(source, target string, typ graph.DependencyType) *Builder {
	b.t.Helper()
	strength := 1.0
	if typ == graph.DependencyOptional || typ == graph.DependencyWeak {
		strength = 0.4
	}
	return b.Edge(graph.Edge{
		SourceID: source,
		TargetID: target,
		Kind:     graph.KindDependsOn,
		Category: graph.CategoryData,
		Type:     typ,
		Strength: strength,
	})
}

// Redundant links two interchangeable resources.
func (b *Builder) Redundant(a, c string) *Builder {
	b.t.Helper()
	return b.Edge(graph.Edge{SourceID: a, TargetID: c, Kind: graph.KindRedundantWith, Strength: 1})
}

// Edge adds an arbitrary edge.
func (b *Builder) Edge(e graph.Edge) *Builder {
	b.t.Helper()
	if err := b.store.AddEdge(e); err != nil {
		b.t.Fatalf("add edge %s->%s: %v", e.SourceID, e.TargetID, err)
	}
	return b
}

// Store returns the populated store.
func (b *Builder) Store() *graph.MemoryStore {
	return b.store
}
