package graph

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/moolen/riskgraph/internal/riskerr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingStore struct {
	Store
	gets  atomic.Int64
	edges atomic.Int64
	gate  chan struct{}
}

func (c *countingStore) GetResource(ctx context.Context, id string) (*Resource, error) {
	c.gets.Add(1)
	if c.gate != nil {
		<-c.gate
	}
	return c.Store.GetResource(ctx, id)
}

func (c *countingStore) IncomingEdges(ctx context.Context, id string) ([]Edge, error) {
	c.edges.Add(1)
	return c.Store.IncomingEdges(ctx, id)
}

func newCached(t *testing.T, backend Store, ttl time.Duration) (*CachedStore, *time.Time) {
	t.Helper()
	cs, err := NewCachedStore(backend, CacheConfig{Enabled: true, MaxEntries: 2, TTL: ttl}, nil)
	require.NoError(t, err)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cs.now = func() time.Time { return now }
	return cs, &now
}

func TestCachedStore_HitsAndTTL(t *testing.T) {
	backend := &countingStore{Store: newTestStore(t)}
	cs, now := newCached(t, backend, time.Minute)
	ctx := context.Background()

	_, err := cs.GetResource(ctx, "db-1")
	require.NoError(t, err)
	_, err = cs.GetResource(ctx, "db-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), backend.gets.Load())

	*now = now.Add(2 * time.Minute)
	_, err = cs.GetResource(ctx, "db-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), backend.gets.Load())

	stats := cs.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(2), stats.Misses)
	assert.Equal(t, uint64(1), stats.Expired)
}

func TestCachedStore_Invalidate(t *testing.T) {
	mem := newTestStore(t)
	backend := &countingStore{Store: mem}
	cs, _ := newCached(t, backend, time.Minute)
	ctx := context.Background()

	in, err := cs.IncomingEdges(ctx, "db-1")
	require.NoError(t, err)
	require.Len(t, in, 1)

	require.NoError(t, mem.AddEdge(Edge{SourceID: "lonely", TargetID: "db-1", Type: DependencyWeak, Strength: 0.3}))
	in, err = cs.IncomingEdges(ctx, "db-1")
	require.NoError(t, err)
	assert.Len(t, in, 1, "stale until invalidated")

	cs.Invalidate("db-1")
	in, err = cs.IncomingEdges(ctx, "db-1")
	require.NoError(t, err)
	assert.Len(t, in, 2)
	assert.Equal(t, int64(2), backend.edges.Load())
}

func TestCachedStore_ErrorsAreNotCached(t *testing.T) {
	backend := &countingStore{Store: newTestStore(t)}
	cs, _ := newCached(t, backend, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := cs.GetResource(ctx, "ghost")
		assert.True(t, riskerr.IsKind(err, riskerr.KindNotFound))
	}
	assert.Equal(t, int64(2), backend.gets.Load())
}

func TestCachedStore_ReturnsCopies(t *testing.T) {
	cs, _ := newCached(t, newTestStore(t), time.Minute)
	ctx := context.Background()

	in, err := cs.IncomingEdges(ctx, "db-1")
	require.NoError(t, err)
	in[0].SourceID = "mutated"

	again, err := cs.IncomingEdges(ctx, "db-1")
	require.NoError(t, err)
	assert.Equal(t, "api-1", again[0].SourceID)
}

func TestCachedStore_ResourceAttributesAreCopies(t *testing.T) {
	backend := NewMemoryStore()
	require.NoError(t, backend.AddResource(Resource{
		ID: "db-1", Type: TypeDatabase, Region: "eu-west-1",
		Attributes: Attributes{"replica_count": 1},
	}))
	cs, _ := newCached(t, backend, time.Minute)
	ctx := context.Background()

	r, err := cs.GetResource(ctx, "db-1")
	require.NoError(t, err)
	r.Attributes["replica_count"] = 9
	r.Attributes["injected"] = true

	again, err := cs.GetResource(ctx, "db-1")
	require.NoError(t, err)
	n, _ := again.Attributes.Int("replica_count")
	assert.Equal(t, 1, n)
	assert.False(t, again.Attributes.Has("injected"))

	list, err := cs.ListResources(ctx, ResourceFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	list[0].Attributes["injected"] = true

	list, err = cs.ListResources(ctx, ResourceFilter{})
	require.NoError(t, err)
	assert.False(t, list[0].Attributes.Has("injected"))
}

func TestCachedStore_SingleflightSharesMisses(t *testing.T) {
	backend := &countingStore{Store: newTestStore(t), gate: make(chan struct{})}
	cs, _ := newCached(t, backend, time.Minute)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cs.GetResource(ctx, "db-1")
			assert.NoError(t, err)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(backend.gate)
	wg.Wait()

	assert.Equal(t, int64(1), backend.gets.Load())
}

func TestCachedStore_EvictionAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewCacheMetrics(reg)
	cs, err := NewCachedStore(newTestStore(t), CacheConfig{Enabled: true, MaxEntries: 2, TTL: time.Minute}, metrics)
	require.NoError(t, err)
	ctx := context.Background()

	for _, id := range []string{"db-1", "api-1", "lonely"} {
		_, err := cs.GetResource(ctx, id)
		require.NoError(t, err)
	}

	assert.Equal(t, uint64(1), cs.Stats().Evictions)
	assert.Equal(t, 2, cs.Stats().Items)
	assert.Equal(t, float64(3), testutil.ToFloat64(metrics.Misses))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Evictions))
}

func TestNewCachedStore_RejectsUnboundedTTL(t *testing.T) {
	_, err := NewCachedStore(NewMemoryStore(), CacheConfig{TTL: 0}, nil)
	assert.Error(t, err)
	_, err = NewCachedStore(NewMemoryStore(), CacheConfig{TTL: time.Hour}, nil)
	assert.Error(t, err)
}
