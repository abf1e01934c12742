package commands

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/moolen/riskgraph/internal/config"
	"github.com/moolen/riskgraph/internal/graph"
	"github.com/moolen/riskgraph/internal/logging"
)

// openStore builds the graph store selected by cfg. For the falkordb
// backend the returned *graph.FalkorStore is not connected yet: the caller
// starts it, directly or through the lifecycle manager.
func openStore(cfg *config.Config, reg prometheus.Registerer) (graph.Store, *graph.FalkorStore, error) {
	logger := logging.GetLogger("store")

	var (
		backend graph.Store
		falkor  *graph.FalkorStore
	)
	switch cfg.Graph.Backend {
	case config.BackendFalkorDB:
		falkor = graph.NewFalkorStore(cfg.Graph.FalkorDB)
		backend = falkor
	case config.BackendMemory, "":
		if cfg.Graph.Snapshot == "" {
			logger.Warn("No graph snapshot configured, starting with an empty graph")
			backend = graph.NewMemoryStore()
			break
		}
		snap, err := graph.LoadSnapshot(cfg.Graph.Snapshot)
		if err != nil {
			return nil, nil, err
		}
		mem, err := graph.NewMemoryStoreFromSnapshot(snap)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to build graph from %q: %w", cfg.Graph.Snapshot, err)
		}
		logger.Info("Loaded %d resources from %s", mem.Len(), cfg.Graph.Snapshot)
		backend = mem
	default:
		return nil, nil, fmt.Errorf("unknown graph backend %q", cfg.Graph.Backend)
	}

	if !cfg.Graph.Cache.Enabled {
		return backend, falkor, nil
	}
	cached, err := graph.NewCachedStore(backend, cfg.Graph.Cache, graph.NewCacheMetrics(reg))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create graph cache: %w", err)
	}
	return cached, falkor, nil
}

// openStoreConnected is openStore for one-shot commands: it connects a
// FalkorDB backend immediately and returns a close func.
func openStoreConnected(ctx context.Context, cfg *config.Config) (graph.Store, func(), error) {
	store, falkor, err := openStore(cfg, nil)
	if err != nil {
		return nil, nil, err
	}
	if falkor == nil {
		return store, func() {}, nil
	}
	if err := falkor.Start(ctx); err != nil {
		return nil, nil, err
	}
	return store, func() { _ = falkor.Stop(context.Background()) }, nil
}
