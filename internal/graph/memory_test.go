package graph

import (
	"context"
	"testing"

	"github.com/moolen/riskgraph/internal/riskerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *MemoryStore {
	t.Helper()
	s := NewMemoryStore()
	require.NoError(t, s.AddResource(Resource{ID: "db-1", Type: TypeDatabase, Region: "eu-west-1"}))
	require.NoError(t, s.AddResource(Resource{ID: "api-1", Type: TypeCompute, Region: "eu-west-1"}))
	require.NoError(t, s.AddResource(Resource{ID: "lonely", Type: TypeStorage, Region: "us-east-1"}))
	require.NoError(t, s.AddEdge(Edge{SourceID: "api-1", TargetID: "db-1", Type: DependencyRequired, Strength: 1}))
	return s
}

func TestMemoryStore_Edges(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	out, err := s.OutgoingEdges(ctx, "api-1")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "db-1", out[0].TargetID)
	assert.Equal(t, KindDependsOn, out[0].Kind)

	in, err := s.IncomingEdges(ctx, "db-1")
	require.NoError(t, err)
	require.Len(t, in, 1)
	assert.Equal(t, "api-1", in[0].SourceID)

	none, err := s.OutgoingEdges(ctx, "lonely")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryStore_NotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetResource(ctx, "ghost")
	assert.True(t, riskerr.IsKind(err, riskerr.KindNotFound))

	_, err = s.IncomingEdges(ctx, "ghost")
	assert.True(t, riskerr.IsKind(err, riskerr.KindNotFound))
}

func TestMemoryStore_AddEdgeRequiresEndpoints(t *testing.T) {
	s := newTestStore(t)
	err := s.AddEdge(Edge{SourceID: "api-1", TargetID: "ghost", Type: DependencyRequired, Strength: 1})
	assert.Error(t, err)
}

func TestMemoryStore_ListResources(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	all, err := s.ListResources(ctx, ResourceFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"api-1", "db-1", "lonely"}, ids(all))

	eu, err := s.ListResources(ctx, ResourceFilter{Region: "eu-west-1", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"api-1"}, ids(eu))
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.GetResource(ctx, "db-1")
	assert.True(t, riskerr.IsKind(err, riskerr.KindTimeout))
}

func TestMemoryStore_SetAttributeCopiesMap(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	before, err := s.GetResource(ctx, "db-1")
	require.NoError(t, err)
	require.NoError(t, s.SetAttribute("db-1", "replica_count", 3))

	after, err := s.GetResource(ctx, "db-1")
	require.NoError(t, err)
	assert.False(t, before.Attributes.Has("replica_count"))
	n, _ := after.Attributes.Int("replica_count")
	assert.Equal(t, 3, n)
}

func ids(rs []Resource) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.ID)
	}
	return out
}
