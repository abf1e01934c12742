package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/moolen/riskgraph/internal/graph"
)

const (
	defaultOutput     = "./testdata/generated.yaml"
	defaultServices   = 50
	defaultRegions    = 3
	defaultRedundancy = 0.3
)

// tier is one layer of the generated topology. Resources in a tier depend
// on resources in the next tier down.
type tier struct {
	resourceType graph.ResourceType
	category     graph.DependencyCategory
	share        float64 // fraction of --services placed in this tier
}

var (
	tiers = []tier{
		{graph.TypeLoadBalancer, graph.CategoryNetwork, 0.1},
		{graph.TypeCompute, graph.CategoryCompute, 0.35},
		{graph.TypeCache, graph.CategoryData, 0.1},
		{graph.TypeQueue, graph.CategoryData, 0.1},
		{graph.TypeDatabase, graph.CategoryData, 0.2},
		{graph.TypeStorage, graph.CategoryData, 0.15},
	}
	providers     = []string{"aws", "gcp", "azure"}
	criticalities = []graph.CriticalityTier{
		graph.CriticalityCritical, graph.CriticalityHigh, graph.CriticalityMedium, graph.CriticalityLow,
	}
	dependencyTypes = []graph.DependencyType{
		graph.DependencyRequired, graph.DependencyStrong, graph.DependencyOptional, graph.DependencyWeak,
	}
)

func main() {
	output := flag.String("output", defaultOutput, "Snapshot file to write")
	services := flag.Int("services", defaultServices, "Approximate number of resources to generate")
	regions := flag.Int("regions", defaultRegions, "Number of regions to spread resources across")
	redundancy := flag.Float64("redundancy", defaultRedundancy, "Probability that a resource gets a redundant peer")
	distribution := flag.String("distribution", "uniform", "Dependency target pattern: 'uniform' or 'skewed'")
	cycles := flag.Int("cycles", 0, "Number of circular dependencies to inject")
	seed := flag.Int64("seed", 0, "Random seed (0 = use current time)")

	flag.Parse()

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(*seed))

	fmt.Printf("Generating dependency graph with:\n")
	fmt.Printf("  Output: %s\n", *output)
	fmt.Printf("  Resources: ~%d\n", *services)
	fmt.Printf("  Regions: %d\n", *regions)
	fmt.Printf("  Redundancy: %.2f\n", *redundancy)
	fmt.Printf("  Distribution: %s\n", *distribution)
	fmt.Printf("  Cycles: %d\n", *cycles)
	fmt.Printf("  Seed: %d\n", *seed)
	fmt.Println()

	snap := generate(*services, *regions, *redundancy, *distribution, *cycles, rng)
	if err := snap.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Generated snapshot is invalid: %v\n", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(filepath.Dir(*output), 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output directory: %v\n", err)
		os.Exit(1)
	}
	data, err := yaml.Marshal(snap)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode snapshot: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*output, data, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", *output, err)
		os.Exit(1)
	}

	fmt.Printf("✓ Generated %d resources and %d edges\n", len(snap.Resources), len(snap.Edges))
	fmt.Printf("  Output: %s\n", *output)
}

// generate builds a layered graph: each resource depends on one to three
// resources of the tier below, optionally with redundant peers and a few
// back edges that close cycles.
func generate(count, regions int, redundancy float64, distribution string, cycles int, rng *rand.Rand) *graph.Snapshot {
	regionNames := generateRegionNames(max(1, regions))
	now := time.Now().UTC()
	snap := &graph.Snapshot{}

	layers := make([][]graph.Resource, len(tiers))
	for i, t := range tiers {
		n := max(1, int(float64(count)*t.share))
		for j := 0; j < n; j++ {
			r := createResource(t.resourceType, regionNames, now, rng)
			layers[i] = append(layers[i], r)
			snap.Resources = append(snap.Resources, r)

			if rng.Float64() < redundancy {
				peer := createResource(t.resourceType, regionNames, now, rng)
				peer.Region = r.Region
				snap.Resources = append(snap.Resources, peer)
				snap.Edges = append(snap.Edges, graph.Edge{
					SourceID: r.ID,
					TargetID: peer.ID,
					Kind:     graph.KindRedundantWith,
					Strength: 1,
				})
			}
		}
	}

	for i := 0; i < len(layers)-1; i++ {
		below := layers[i+1]
		for _, r := range layers[i] {
			seen := map[string]bool{}
			fanout := 1 + rng.Intn(3)
			for k := 0; k < fanout; k++ {
				target := selectTarget(below, distribution, rng)
				if seen[target.ID] {
					continue
				}
				seen[target.ID] = true
				snap.Edges = append(snap.Edges, createEdge(r.ID, target.ID, tiers[i+1].category, rng))
			}
		}
	}

	// A back edge from a lower tier to an upper one closes a cycle.
	var deps []graph.Edge
	for _, e := range snap.Edges {
		if e.IsDependency() {
			deps = append(deps, e)
		}
	}
	for c := 0; c < cycles && len(deps) > 0; c++ {
		e := deps[rng.Intn(len(deps))]
		snap.Edges = append(snap.Edges, createEdge(e.TargetID, e.SourceID, graph.CategoryConfiguration, rng))
	}
	return snap
}

// generateRegionNames creates a list of region names
func generateRegionNames(count int) []string {
	names := make([]string, count)
	for i := 0; i < count; i++ {
		names[i] = fmt.Sprintf("region-%d", i+1)
	}
	return names
}

// selectTarget selects a dependency target based on the distribution pattern
func selectTarget(candidates []graph.Resource, distribution string, rng *rand.Rand) graph.Resource {
	if distribution == "skewed" {
		// 80% of dependencies land on 20% of the tier, which produces SPOFs
		hot := max(1, len(candidates)/5)
		if rng.Float64() < 0.8 {
			return candidates[rng.Intn(hot)]
		}
	}
	return candidates[rng.Intn(len(candidates))]
}

// createResource creates a resource with attributes typical for its type
func createResource(t graph.ResourceType, regions []string, now time.Time, rng *rand.Rand) graph.Resource {
	id := fmt.Sprintf("%s-%s", t, uuid.New().String()[:8])
	attrs := graph.Attributes{
		"estimated_users":         (rng.Intn(100) + 1) * 100,
		"monitoring_enabled":      rng.Float64() < 0.7,
		"historical_failure_rate": float64(rng.Intn(20)) / 100,
		"incident_count_90d":      rng.Intn(5),
		"last_change_at":          now.Add(-time.Duration(rng.Intn(90*24)) * time.Hour).Format(time.RFC3339),
	}
	switch t {
	case graph.TypeDatabase:
		attrs["replica_count"] = rng.Intn(3) + 1
		attrs["backup_enabled"] = rng.Float64() < 0.8
		attrs["multi_az"] = rng.Float64() < 0.5
		attrs["encryption_at_rest"] = rng.Float64() < 0.8
	case graph.TypeCompute:
		attrs["instance_count"] = rng.Intn(4) + 1
		attrs["autoscaling_enabled"] = rng.Float64() < 0.5
		attrs["security_groups"] = []string{"sg-default"}
	case graph.TypeStorage:
		attrs["encryption_at_rest"] = rng.Float64() < 0.6
		attrs["availability_zones"] = rng.Intn(3) + 1
	case graph.TypeCache:
		attrs["replica_count"] = rng.Intn(2) + 1
	}
	if rng.Float64() < 0.3 {
		attrs["has_sla"] = true
	}

	return graph.Resource{
		ID:          id,
		Type:        t,
		Name:        id,
		Provider:    providers[rng.Intn(len(providers))],
		Region:      regions[rng.Intn(len(regions))],
		Criticality: criticalities[rng.Intn(len(criticalities))],
		Attributes:  attrs,
	}
}

// createEdge creates a dependency of source on target
func createEdge(source, target string, category graph.DependencyCategory, rng *rand.Rand) graph.Edge {
	return graph.Edge{
		SourceID:        source,
		TargetID:        target,
		Category:        category,
		Type:            dependencyTypes[rng.Intn(len(dependencyTypes))],
		Strength:        float64(rng.Intn(10)+1) / 10,
		DiscoveryMethod: "generated",
	}
}
