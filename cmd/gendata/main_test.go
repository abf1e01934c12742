package main

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/moolen/riskgraph/internal/graph"
)

func TestGenerate(t *testing.T) {
	snap := generate(40, 2, 0, "skewed", 0, rand.New(rand.NewSource(42)))
	require.NoError(t, snap.Validate())

	types := map[graph.ResourceType]int{}
	for _, r := range snap.Resources {
		types[r.Type]++
		assert.Contains(t, []string{"region-1", "region-2"}, r.Region)
	}
	for _, tr := range tiers {
		assert.Positive(t, types[tr.resourceType], "tier %s is empty", tr.resourceType)
	}
	for _, e := range snap.Edges {
		assert.True(t, e.IsDependency(), "redundancy 0 must not link peers")
		assert.True(t, e.Type.Valid())
	}
}

func TestGenerate_RedundancyAndCycles(t *testing.T) {
	snap := generate(20, 1, 1, "uniform", 2, rand.New(rand.NewSource(7)))
	require.NoError(t, snap.Validate())

	redundant, back := 0, 0
	for _, e := range snap.Edges {
		if !e.IsDependency() {
			redundant++
		}
		if e.Category == graph.CategoryConfiguration {
			back++
		}
	}
	assert.Positive(t, redundant)
	assert.Equal(t, 2, back)
}

func TestGenerate_RoundTrip(t *testing.T) {
	snap := generate(15, 1, 0.5, "uniform", 1, rand.New(rand.NewSource(1)))
	data, err := yaml.Marshal(snap)
	require.NoError(t, err)

	parsed, err := graph.ParseSnapshot(data)
	require.NoError(t, err)
	assert.Len(t, parsed.Resources, len(snap.Resources))
	assert.Len(t, parsed.Edges, len(snap.Edges))

	_, err = graph.NewMemoryStoreFromSnapshot(parsed)
	assert.NoError(t, err)
}
