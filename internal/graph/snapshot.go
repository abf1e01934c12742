package graph

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Snapshot is the file form of a graph:
//
//	resources:
//	  - id: db-1
//	    type: database
//	    attributes: {replica_count: 1}
//	edges:
//	  - {source: api-1, target: db-1, type: REQUIRED, category: DATA, strength: 1.0}
type Snapshot struct {
	Resources []Resource `yaml:"resources" json:"resources"`
	Edges     []Edge     `yaml:"edges" json:"edges"`
}

// LoadSnapshot reads and parses a snapshot file.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %q: %w", path, err)
	}
	snap, err := ParseSnapshot(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse snapshot %q: %w", path, err)
	}
	return snap, nil
}

// ParseSnapshot decodes YAML (or JSON) snapshot data and validates it.
func ParseSnapshot(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Validate checks resource uniqueness and edge endpoints.
func (s *Snapshot) Validate() error {
	seen := make(map[string]bool, len(s.Resources))
	for _, r := range s.Resources {
		if err := r.Validate(); err != nil {
			return err
		}
		if seen[r.ID] {
			return fmt.Errorf("duplicate resource id %q", r.ID)
		}
		seen[r.ID] = true
	}
	for i, e := range s.Edges {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("edge %d: %w", i, err)
		}
		if !seen[e.SourceID] {
			return fmt.Errorf("edge %d: unknown source %q", i, e.SourceID)
		}
		if !seen[e.TargetID] {
			return fmt.Errorf("edge %d: unknown target %q", i, e.TargetID)
		}
	}
	return nil
}

// NewMemoryStoreFromSnapshot builds a MemoryStore holding snap.
func NewMemoryStoreFromSnapshot(snap *Snapshot) (*MemoryStore, error) {
	store := NewMemoryStore()
	for _, r := range snap.Resources {
		if err := store.AddResource(r); err != nil {
			return nil, err
		}
	}
	for _, e := range snap.Edges {
		if err := store.AddEdge(e); err != nil {
			return nil, err
		}
	}
	return store, nil
}
