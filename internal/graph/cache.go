package graph

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/moolen/riskgraph/internal/logging"
	"github.com/moolen/riskgraph/internal/riskerr"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"
)

// MaxCacheTTL bounds how long a cached answer can hide a graph update.
const MaxCacheTTL = 10 * time.Minute

// CacheConfig configures CachedStore.
type CacheConfig struct {
	Enabled    bool          `yaml:"enabled"`
	MaxEntries int           `yaml:"max_entries" validate:"gte=0"`
	TTL        time.Duration `yaml:"ttl"`
}

// DefaultCacheConfig returns a disabled cache with a 30s TTL.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:    false,
		MaxEntries: 10000,
		TTL:        30 * time.Second,
	}
}

// CacheStats is a point-in-time view of cache counters.
type CacheStats struct {
	Items     int     `json:"items"`
	Hits      uint64  `json:"hits"`
	Misses    uint64  `json:"misses"`
	Evictions uint64  `json:"evictions"`
	Expired   uint64  `json:"expired"`
	HitRate   float64 `json:"hit_rate"`
}

type cacheEntry struct {
	value     interface{}
	expiresAt time.Time
}

// CacheMetrics exports cache counters to Prometheus.
type CacheMetrics struct {
	Hits      prometheus.Counter
	Misses    prometheus.Counter
	Evictions prometheus.Counter
	Expired   prometheus.Counter
}

// NewCacheMetrics creates and registers the cache counters with reg.
func NewCacheMetrics(reg prometheus.Registerer) *CacheMetrics {
	m := &CacheMetrics{
		Hits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "riskgraph_graph_cache_hits_total",
			Help: "Graph store lookups answered from the cache",
		}),
		Misses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "riskgraph_graph_cache_misses_total",
			Help: "Graph store lookups that went to the backing store",
		}),
		Evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "riskgraph_graph_cache_evictions_total",
			Help: "Entries evicted to respect the size bound",
		}),
		Expired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "riskgraph_graph_cache_expired_total",
			Help: "Entries dropped because their TTL elapsed",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Hits, m.Misses, m.Evictions, m.Expired)
	}
	return m
}

// CachedStore wraps a Store with a bounded, TTL-limited read cache. Concurrent
// misses for the same key share one backend call. Nothing is cached
// implicitly beyond the TTL; callers that know the graph changed call
// Invalidate or Clear.
type CachedStore struct {
	backend Store
	ttl     time.Duration
	lru     *lru.Cache[string, *cacheEntry]
	group   singleflight.Group
	metrics *CacheMetrics
	logger  *logging.Logger
	now     func() time.Time

	mu    sync.Mutex
	stats CacheStats
}

// NewCachedStore wraps backend. metrics may be nil.
func NewCachedStore(backend Store, config CacheConfig, metrics *CacheMetrics) (*CachedStore, error) {
	if config.TTL <= 0 {
		return nil, fmt.Errorf("cache TTL must be positive, got %v", config.TTL)
	}
	if config.TTL > MaxCacheTTL {
		return nil, fmt.Errorf("cache TTL %v exceeds maximum %v", config.TTL, MaxCacheTTL)
	}
	size := config.MaxEntries
	if size <= 0 {
		size = DefaultCacheConfig().MaxEntries
	}

	cs := &CachedStore{
		backend: backend,
		ttl:     config.TTL,
		metrics: metrics,
		logger:  logging.GetLogger("graph.cache"),
		now:     time.Now,
	}
	cache, err := lru.New[string, *cacheEntry](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}
	cs.lru = cache
	cs.logger.Debug("Graph cache initialized: size=%d ttl=%v", size, config.TTL)
	return cs, nil
}

// GetResource implements Store.
func (c *CachedStore) GetResource(ctx context.Context, id string) (*Resource, error) {
	v, err := c.load(ctx, "resource:"+id, func() (interface{}, error) {
		return c.backend.GetResource(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	r := *v.(*Resource)
	r.Attributes = r.Attributes.Clone()
	return &r, nil
}

// OutgoingEdges implements Store.
func (c *CachedStore) OutgoingEdges(ctx context.Context, id string) ([]Edge, error) {
	return c.loadEdges(ctx, "out:"+id, func() (interface{}, error) {
		return c.backend.OutgoingEdges(ctx, id)
	})
}

// IncomingEdges implements Store.
func (c *CachedStore) IncomingEdges(ctx context.Context, id string) ([]Edge, error) {
	return c.loadEdges(ctx, "in:"+id, func() (interface{}, error) {
		return c.backend.IncomingEdges(ctx, id)
	})
}

// ListResources implements Store.
func (c *CachedStore) ListResources(ctx context.Context, filter ResourceFilter) ([]Resource, error) {
	key := fmt.Sprintf("list:%s|%s|%s|%d", filter.Type, filter.Provider, filter.Region, filter.Limit)
	v, err := c.load(ctx, key, func() (interface{}, error) {
		return c.backend.ListResources(ctx, filter)
	})
	if err != nil {
		return nil, err
	}
	src := v.([]Resource)
	out := make([]Resource, len(src))
	for i, r := range src {
		r.Attributes = r.Attributes.Clone()
		out[i] = r
	}
	return out, nil
}

// Invalidate drops everything cached about id, and every listing.
func (c *CachedStore) Invalidate(id string) {
	c.lru.Remove("resource:" + id)
	c.lru.Remove("out:" + id)
	c.lru.Remove("in:" + id)
	for _, key := range c.lru.Keys() {
		if strings.HasPrefix(key, "list:") {
			c.lru.Remove(key)
		}
	}
	c.logger.Debug("Graph cache INVALIDATE: %s", id)
}

// Clear drops every entry.
func (c *CachedStore) Clear() {
	c.lru.Purge()
	c.logger.Debug("Graph cache CLEAR")
}

// Stats returns the current counters.
func (c *CachedStore) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Items = c.lru.Len()
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}

func (c *CachedStore) loadEdges(ctx context.Context, key string, fetch func() (interface{}, error)) ([]Edge, error) {
	v, err := c.load(ctx, key, fetch)
	if err != nil {
		return nil, err
	}
	src := v.([]Edge)
	out := make([]Edge, len(src))
	copy(out, src)
	return out, nil
}

func (c *CachedStore) load(ctx context.Context, key string, fetch func() (interface{}, error)) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, riskerr.Classify(err, "graph lookup")
	}
	if entry, ok := c.lru.Get(key); ok {
		if c.now().Before(entry.expiresAt) {
			c.record(func(s *CacheStats) { s.Hits++ }, c.metricHit)
			return entry.value, nil
		}
		c.lru.Remove(key)
		c.record(func(s *CacheStats) { s.Expired++ }, c.metricExpired)
	}
	c.record(func(s *CacheStats) { s.Misses++ }, c.metricMiss)

	v, err, shared := c.group.Do(key, func() (interface{}, error) {
		value, err := fetch()
		if err != nil {
			return nil, err
		}
		if evicted := c.lru.Add(key, &cacheEntry{value: value, expiresAt: c.now().Add(c.ttl)}); evicted {
			c.record(func(s *CacheStats) { s.Evictions++ }, c.metricEviction)
		}
		return value, nil
	})
	if shared {
		c.logger.Debug("Graph cache shared in-flight load: %s", key)
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (c *CachedStore) record(update func(*CacheStats), metric func()) {
	c.mu.Lock()
	update(&c.stats)
	c.mu.Unlock()
	if c.metrics != nil {
		metric()
	}
}

func (c *CachedStore) metricHit()      { c.metrics.Hits.Inc() }
func (c *CachedStore) metricMiss()     { c.metrics.Misses.Inc() }
func (c *CachedStore) metricEviction() { c.metrics.Evictions.Inc() }
func (c *CachedStore) metricExpired()  { c.metrics.Expired.Inc() }
