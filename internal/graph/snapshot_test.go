package graph

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSnapshot = `
resources:
  - id: db-1
    type: database
    criticality: high
    attributes:
      replica_count: 1
      backup_enabled: true
  - id: api-1
    type: compute
edges:
  - source: api-1
    target: db-1
    type: REQUIRED
    category: DATA
    strength: 1.0
    discovery_method: tag
`

func TestParseSnapshot(t *testing.T) {
	snap, err := ParseSnapshot([]byte(testSnapshot))
	require.NoError(t, err)
	require.Len(t, snap.Resources, 2)
	require.Len(t, snap.Edges, 1)

	assert.Equal(t, CriticalityHigh, snap.Resources[0].Criticality)
	replicas, ok := snap.Resources[0].Attributes.Int("replica_count")
	assert.True(t, ok)
	assert.Equal(t, 1, replicas)
	assert.Equal(t, "tag", snap.Edges[0].DiscoveryMethod)

	store, err := NewMemoryStoreFromSnapshot(snap)
	require.NoError(t, err)
	in, err := store.IncomingEdges(context.Background(), "db-1")
	require.NoError(t, err)
	assert.Len(t, in, 1)
}

func TestParseSnapshot_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "duplicate id", data: "resources: [{id: a, type: compute}, {id: a, type: compute}]"},
		{name: "dangling edge", data: "resources: [{id: a, type: compute}]\nedges: [{source: a, target: b, type: REQUIRED, strength: 1}]"},
		{name: "bad strength", data: "resources: [{id: a, type: compute}, {id: b, type: compute}]\nedges: [{source: a, target: b, type: REQUIRED, strength: 2}]"},
		{name: "not yaml", data: "resources: [unterminated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSnapshot([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestLoadSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testSnapshot), 0o600))

	snap, err := LoadSnapshot(path)
	require.NoError(t, err)
	assert.Len(t, snap.Resources, 2)

	_, err = LoadSnapshot(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
