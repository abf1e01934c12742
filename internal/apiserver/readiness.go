package apiserver

import (
	"context"
	"time"

	"github.com/moolen/riskgraph/internal/graph"
	"github.com/moolen/riskgraph/internal/logging"
)

// GraphReadinessChecker reports ready once the graph store answers a
// one-resource listing within Timeout.
type GraphReadinessChecker struct {
	Store   graph.Store
	Timeout time.Duration
	logger  *logging.Logger
}

// NewGraphReadinessChecker creates a checker for store.
func NewGraphReadinessChecker(store graph.Store, timeout time.Duration) *GraphReadinessChecker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &GraphReadinessChecker{
		Store:   store,
		Timeout: timeout,
		logger:  logging.GetLogger("api.ready"),
	}
}

// IsReady implements ReadinessChecker.
func (c *GraphReadinessChecker) IsReady() bool {
	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()

	if _, err := c.Store.ListResources(ctx, graph.ResourceFilter{Limit: 1}); err != nil {
		c.logger.Warn("Graph store not ready: %v", err)
		return false
	}
	return true
}
