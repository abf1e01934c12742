package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/moolen/riskgraph/internal/logging"
)

// DefaultShutdownTimeout bounds Stop for each component.
const DefaultShutdownTimeout = 30 * time.Second

// Manager starts registered components after their dependencies and stops
// them in reverse start order.
type Manager struct {
	mu              sync.Mutex
	components      []Component
	dependencies    map[Component][]Component
	started         []Component
	shutdownTimeout time.Duration
	logger          *logging.Logger
}

// NewManager returns an empty manager.
func NewManager() *Manager {
	return &Manager{
		dependencies:    make(map[Component][]Component),
		shutdownTimeout: DefaultShutdownTimeout,
		logger:          logging.GetLogger("lifecycle.manager"),
	}
}

// Register adds a component. Dependencies must already be registered, which
// also rules out cycles.
func (m *Manager) Register(component Component, dependsOn ...Component) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if component == nil {
		return fmt.Errorf("cannot register nil component")
	}
	if component.Name() == "" {
		return fmt.Errorf("component must have a non-empty name")
	}
	if _, ok := m.dependencies[component]; ok {
		return fmt.Errorf("component %s is already registered", component.Name())
	}
	for _, dep := range dependsOn {
		if dep == nil {
			return fmt.Errorf("component %s has a nil dependency", component.Name())
		}
		if _, ok := m.dependencies[dep]; !ok {
			return fmt.Errorf("dependency %s of %s is not registered", dep.Name(), component.Name())
		}
	}

	m.components = append(m.components, component)
	m.dependencies[component] = dependsOn
	m.logger.Debug("Registered %s (%d dependencies)", component.Name(), len(dependsOn))
	return nil
}

// Start starts every component, dependencies first. When one fails, the
// components already started are stopped again and the error is returned.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.started = nil
	for _, component := range m.order() {
		began := time.Now()
		m.logger.Info("Starting %s", component.Name())
		if err := component.Start(ctx); err != nil {
			m.logger.Error("Failed to start %s: %v", component.Name(), err)
			m.stopStarted(context.Background())
			return fmt.Errorf("failed to start %s: %w", component.Name(), err)
		}
		m.started = append(m.started, component)
		m.logger.Info("%s started (took %dms)", component.Name(), time.Since(began).Milliseconds())
	}
	return nil
}

// Stop stops started components in reverse order. Every component is given
// the chance to stop; the returned error joins all failures.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logger.Info("Stopping %d components", len(m.started))
	return m.stopStarted(ctx)
}

// Running reports whether the component is started.
func (m *Manager) Running(component Component) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.started {
		if c == component {
			return true
		}
	}
	return false
}

// SetShutdownTimeout changes the per-component stop deadline.
func (m *Manager) SetShutdownTimeout(timeout time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdownTimeout = timeout
}

// order is registration order, with every component moved after its
// dependencies.
func (m *Manager) order() []Component {
	placed := make(map[Component]bool, len(m.components))
	out := make([]Component, 0, len(m.components))
	var place func(c Component)
	place = func(c Component) {
		if placed[c] {
			return
		}
		placed[c] = true
		for _, dep := range m.dependencies[c] {
			place(dep)
		}
		out = append(out, c)
	}
	for _, c := range m.components {
		place(c)
	}
	return out
}

func (m *Manager) stopStarted(ctx context.Context) error {
	var errs []error
	for i := len(m.started) - 1; i >= 0; i-- {
		component := m.started[i]
		began := time.Now()

		stopCtx, cancel := context.WithTimeout(ctx, m.shutdownTimeout)
		err := component.Stop(stopCtx)
		cancel()

		switch {
		case errors.Is(err, context.DeadlineExceeded):
			m.logger.Warn("%s exceeded its %s shutdown timeout", component.Name(), m.shutdownTimeout)
			errs = append(errs, fmt.Errorf("stop %s: %w", component.Name(), err))
		case err != nil:
			m.logger.Error("Error stopping %s: %v", component.Name(), err)
			errs = append(errs, fmt.Errorf("stop %s: %w", component.Name(), err))
		default:
			m.logger.Info("%s stopped (took %dms)", component.Name(), time.Since(began).Milliseconds())
		}
	}
	m.started = nil
	return errors.Join(errs...)
}
