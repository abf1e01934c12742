package dependency

import (
	"context"
	"sort"

	"github.com/moolen/riskgraph/internal/graph"
	"github.com/moolen/riskgraph/internal/riskerr"
)

// FindCycles reports every circular dependency among the resources matched by
// filter. Edges leaving the scope are ignored.
func (r *Resolver) FindCycles(ctx context.Context, filter graph.ResourceFilter) (*CycleReport, error) {
	resources, err := r.store.ListResources(ctx, filter)
	if err != nil {
		return nil, riskerr.Classify(err, "list resources")
	}
	inScope := make(map[string]bool, len(resources))
	ids := make([]string, 0, len(resources))
	for _, res := range resources {
		inScope[res.ID] = true
		ids = append(ids, res.ID)
	}

	adj, scanned, walkErr := r.adjacency(ctx, ids, func(id string) bool { return inScope[id] })
	report := &CycleReport{
		Cycles:           detectCycles(adj),
		ResourcesScanned: scanned,
		Complete:         walkErr == nil,
	}
	if walkErr != nil && !riskerr.IsKind(walkErr, riskerr.KindTimeout) {
		return nil, walkErr
	}
	return report, walkErr
}

// CyclesFrom reports every circular dependency reachable from id by following
// dependencies upstream. A cycle is found whichever of its members id is.
func (r *Resolver) CyclesFrom(ctx context.Context, id string) (*CycleReport, error) {
	if _, err := r.store.GetResource(ctx, id); err != nil {
		return nil, riskerr.Classify(err, "get resource")
	}

	adj := make(map[string][]string)
	queue := []string{id}
	seen := map[string]bool{id: true}
	var walkErr error
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if walkErr = riskerr.FromContext(ctx, "cycle detection"); walkErr != nil {
			break
		}
		targets, err := r.dependencyTargets(ctx, current)
		if err != nil {
			walkErr = err
			break
		}
		adj[current] = targets
		for _, t := range targets {
			if !seen[t] {
				seen[t] = true
				queue = append(queue, t)
			}
		}
	}

	report := &CycleReport{
		Cycles:           detectCycles(adj),
		ResourcesScanned: len(adj),
		Complete:         walkErr == nil,
	}
	if walkErr != nil && !riskerr.IsKind(walkErr, riskerr.KindTimeout) {
		return nil, walkErr
	}
	return report, walkErr
}

// adjacency loads the dependency targets of ids, keeping only targets that
// pass keep. On cancellation it returns what was loaded so far.
func (r *Resolver) adjacency(ctx context.Context, ids []string, keep func(string) bool) (map[string][]string, int, error) {
	adj := make(map[string][]string, len(ids))
	for _, id := range ids {
		if err := riskerr.FromContext(ctx, "cycle detection"); err != nil {
			return adj, len(adj), err
		}
		targets, err := r.dependencyTargets(ctx, id)
		if err != nil {
			return adj, len(adj), err
		}
		kept := targets[:0]
		for _, t := range targets {
			if keep(t) {
				kept = append(kept, t)
			}
		}
		adj[id] = kept
	}
	return adj, len(adj), nil
}

func (r *Resolver) dependencyTargets(ctx context.Context, id string) ([]string, error) {
	edges, err := r.store.OutgoingEdges(ctx, id)
	if err != nil {
		return nil, riskerr.Classify(err, "list edges")
	}
	seen := make(map[string]bool, len(edges))
	targets := make([]string, 0, len(edges))
	for _, e := range edges {
		if !e.IsDependency() || seen[e.TargetID] {
			continue
		}
		seen[e.TargetID] = true
		targets = append(targets, e.TargetID)
	}
	sort.Strings(targets)
	return targets, nil
}

// detectCycles runs Tarjan's SCC algorithm over adj and returns one canonical
// cycle per strongly connected component that contains a cycle. Only nodes
// that are keys of adj are expanded.
func detectCycles(adj map[string][]string) []Cycle {
	nodes := make([]string, 0, len(adj))
	for id := range adj {
		nodes = append(nodes, id)
	}
	sort.Strings(nodes)

	t := &tarjan{
		adj:     adj,
		index:   make(map[string]int),
		lowlink: make(map[string]int),
		onStack: make(map[string]bool),
	}
	for _, n := range nodes {
		if _, ok := t.index[n]; !ok {
			t.strongConnect(n)
		}
	}

	var cycles []Cycle
	for _, scc := range t.components {
		if c, ok := canonicalCycle(adj, scc); ok {
			cycles = append(cycles, c)
		}
	}
	sort.Slice(cycles, func(i, j int) bool {
		return cycles[i].Path[0] < cycles[j].Path[0]
	})
	return cycles
}

type tarjan struct {
	adj        map[string][]string
	counter    int
	index      map[string]int
	lowlink    map[string]int
	stack      []string
	onStack    map[string]bool
	components [][]string
}

func (t *tarjan) strongConnect(v string) {
	t.index[v] = t.counter
	t.lowlink[v] = t.counter
	t.counter++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	for _, w := range t.adj[v] {
		if _, expanded := t.adj[w]; !expanded {
			continue
		}
		if _, ok := t.index[w]; !ok {
			t.strongConnect(w)
			t.lowlink[v] = min(t.lowlink[v], t.lowlink[w])
		} else if t.onStack[w] {
			t.lowlink[v] = min(t.lowlink[v], t.index[w])
		}
	}

	if t.lowlink[v] == t.index[v] {
		var scc []string
		for {
			w := t.stack[len(t.stack)-1]
			t.stack = t.stack[:len(t.stack)-1]
			t.onStack[w] = false
			scc = append(scc, w)
			if w == v {
				break
			}
		}
		t.components = append(t.components, scc)
	}
}

// canonicalCycle picks the shortest cycle through the smallest id of scc.
// Singletons count only with a self-loop.
func canonicalCycle(adj map[string][]string, scc []string) (Cycle, bool) {
	members := make(map[string]bool, len(scc))
	start := scc[0]
	for _, id := range scc {
		members[id] = true
		if id < start {
			start = id
		}
	}

	if len(scc) == 1 {
		for _, w := range adj[start] {
			if w == start {
				return Cycle{Path: []string{start}, Length: 1}, true
			}
		}
		return Cycle{}, false
	}

	// BFS inside the component from start back to start.
	parent := map[string]string{}
	queue := []string{start}
	visited := map[string]bool{start: true}
	last := ""
	for len(queue) > 0 && last == "" {
		v := queue[0]
		queue = queue[1:]
		for _, w := range adj[v] {
			if !members[w] {
				continue
			}
			if w == start {
				last = v
				break
			}
			if !visited[w] {
				visited[w] = true
				parent[w] = v
				queue = append(queue, w)
			}
		}
	}
	if last == "" {
		return Cycle{}, false
	}

	path := []string{last}
	for v := last; v != start; {
		v = parent[v]
		path = append(path, v)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return Cycle{Path: path, Length: len(path)}, true
}
