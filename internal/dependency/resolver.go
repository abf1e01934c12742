package dependency

import (
	"context"
	"sort"

	"github.com/moolen/riskgraph/internal/graph"
	"github.com/moolen/riskgraph/internal/logging"
	"github.com/moolen/riskgraph/internal/riskerr"
)

// Resolver traverses a graph.Store. It holds no per-call state and is safe
// for concurrent use.
type Resolver struct {
	store  graph.Store
	config Config
	logger *logging.Logger
}

// NewResolver creates a resolver over store.
func NewResolver(store graph.Store, config Config) *Resolver {
	if config.DefaultMaxDepth <= 0 || config.DefaultMaxDepth > MaxDepthCeiling {
		config.DefaultMaxDepth = DefaultMaxDepth
	}
	return &Resolver{
		store:  store,
		config: config,
		logger: logging.GetLogger("dependency.resolver"),
	}
}

// Store returns the underlying graph store.
func (r *Resolver) Store() graph.Store {
	return r.store
}

// Resolve returns every resource reachable from id over dependency edges in
// the given direction within maxDepth hops. maxDepth 0 uses the configured
// default; values above MaxDepthCeiling are clamped. A resource without
// edges resolves to an empty set.
func (r *Resolver) Resolve(ctx context.Context, id string, dir Direction, maxDepth int) (*Resolution, error) {
	if maxDepth < 0 {
		return nil, riskerr.InvalidParameter("max_depth", "must be >= 0, got %d", maxDepth)
	}
	effective := maxDepth
	if effective == 0 {
		effective = r.config.DefaultMaxDepth
	}
	clamped := false
	if effective > MaxDepthCeiling {
		effective = MaxDepthCeiling
		clamped = true
	}

	res, err := r.Traverse(ctx, id, dir, effective, DependencyEdges)
	if res != nil {
		res.RequestedDepth = maxDepth
		res.Clamped = clamped
	}
	return res, err
}

// Traverse is Resolve with an edge predicate and no clamping. maxDepth <= 0
// walks the full closure; the visited set guarantees termination. On
// cancellation the partial resolution is returned with Complete=false
// alongside a Timeout error.
func (r *Resolver) Traverse(ctx context.Context, id string, dir Direction, maxDepth int, follow EdgeFilter) (*Resolution, error) {
	switch dir {
	case Upstream, Downstream, Both:
	default:
		return nil, riskerr.InvalidParameter("direction", "unknown direction %q", dir)
	}
	if follow == nil {
		follow = DependencyEdges
	}
	if _, err := r.store.GetResource(ctx, id); err != nil {
		return nil, riskerr.Classify(err, "get resource")
	}

	res := &Resolution{
		ResourceID:     id,
		Direction:      dir,
		RequestedDepth: maxDepth,
		MaxDepth:       maxDepth,
		Complete:       true,
	}

	found := make(map[string]ResolvedResource)
	var walkErr error
	for _, d := range expand(dir) {
		if err := r.bfs(ctx, id, d, maxDepth, follow, found); err != nil {
			walkErr = err
			break
		}
	}

	for _, rr := range found {
		res.Resources = append(res.Resources, rr)
		if rr.PathLength > res.DeepestLevel {
			res.DeepestLevel = rr.PathLength
		}
	}
	sort.Slice(res.Resources, func(i, j int) bool {
		a, b := res.Resources[i], res.Resources[j]
		if a.PathLength != b.PathLength {
			return a.PathLength < b.PathLength
		}
		return a.Resource.ID < b.Resource.ID
	})

	if walkErr != nil {
		if riskerr.IsKind(walkErr, riskerr.KindTimeout) {
			res.Complete = false
			r.logger.Warn("Traversal from %s stopped early after %d resources: %v", id, len(res.Resources), walkErr)
			return res, walkErr
		}
		return nil, walkErr
	}
	return res, nil
}

func expand(dir Direction) []Direction {
	if dir == Both {
		return []Direction{Upstream, Downstream}
	}
	return []Direction{dir}
}

// bfs walks one direction and merges into found, keeping the shortest path
// per resource. The root is never recorded.
func (r *Resolver) bfs(ctx context.Context, root string, dir Direction, maxDepth int, follow EdgeFilter, found map[string]ResolvedResource) error {
	visited := map[string]bool{root: true}
	frontier := []string{root}

	for depth := 1; len(frontier) > 0 && (maxDepth <= 0 || depth <= maxDepth); depth++ {
		var next []string
		for _, current := range frontier {
			if err := riskerr.FromContext(ctx, "dependency traversal"); err != nil {
				return err
			}

			edges, err := r.neighbors(ctx, current, dir)
			if err != nil {
				return err
			}

			for _, e := range edges {
				if !follow(e) {
					continue
				}
				nb := e.TargetID
				if dir == Downstream {
					nb = e.SourceID
				}
				if visited[nb] {
					continue
				}
				visited[nb] = true

				resource, err := r.store.GetResource(ctx, nb)
				if err != nil {
					if riskerr.IsKind(err, riskerr.KindNotFound) {
						r.logger.Debug("Skipping dangling edge %s->%s", e.SourceID, e.TargetID)
						continue
					}
					return riskerr.Classify(err, "get resource")
				}

				if prev, ok := found[nb]; !ok || depth < prev.PathLength {
					found[nb] = ResolvedResource{
						Resource:   *resource,
						PathLength: depth,
						Direction:  dir,
						Via:        current,
						Edge:       e,
					}
				}
				next = append(next, nb)
			}
		}
		frontier = next
	}
	return nil
}

// neighbors returns the edges leaving current in dir, sorted by the id on
// the far side so traversal order is deterministic.
func (r *Resolver) neighbors(ctx context.Context, current string, dir Direction) ([]graph.Edge, error) {
	var (
		edges []graph.Edge
		err   error
	)
	if dir == Upstream {
		edges, err = r.store.OutgoingEdges(ctx, current)
	} else {
		edges, err = r.store.IncomingEdges(ctx, current)
	}
	if err != nil {
		return nil, riskerr.Classify(err, "list edges")
	}

	far := func(e graph.Edge) string {
		if dir == Upstream {
			return e.TargetID
		}
		return e.SourceID
	}
	sort.SliceStable(edges, func(i, j int) bool {
		return far(edges[i]) < far(edges[j])
	})
	return edges, nil
}

// RedundantPeers returns resources of the same type linked to id by a
// REDUNDANT_WITH edge in either direction, sorted by id.
func (r *Resolver) RedundantPeers(ctx context.Context, id string) ([]graph.Resource, error) {
	self, err := r.store.GetResource(ctx, id)
	if err != nil {
		return nil, riskerr.Classify(err, "get resource")
	}
	out, err := r.store.OutgoingEdges(ctx, id)
	if err != nil {
		return nil, riskerr.Classify(err, "list edges")
	}
	in, err := r.store.IncomingEdges(ctx, id)
	if err != nil {
		return nil, riskerr.Classify(err, "list edges")
	}

	seen := make(map[string]bool)
	var peers []graph.Resource
	for _, e := range append(out, in...) {
		if e.EffectiveKind() != graph.KindRedundantWith {
			continue
		}
		peerID := e.TargetID
		if peerID == id {
			peerID = e.SourceID
		}
		if peerID == id || seen[peerID] {
			continue
		}
		seen[peerID] = true

		peer, err := r.store.GetResource(ctx, peerID)
		if err != nil {
			if riskerr.IsKind(err, riskerr.KindNotFound) {
				continue
			}
			return nil, riskerr.Classify(err, "get resource")
		}
		if peer.Type == self.Type {
			peers = append(peers, *peer)
		}
	}
	sort.Slice(peers, func(i, j int) bool { return peers[i].ID < peers[j].ID })
	return peers, nil
}
