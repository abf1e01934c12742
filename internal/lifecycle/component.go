// Package lifecycle starts and stops long-lived process components in
// dependency order.
package lifecycle

import "context"

// Component is a long-lived part of the process such as the graph store
// connection, the tracing provider or the HTTP server.
type Component interface {
	// Start brings the component up. It must return once the component is
	// ready to serve its dependents.
	Start(ctx context.Context) error

	// Stop releases the component, finishing in-flight work within the
	// context deadline.
	Stop(ctx context.Context) error

	// Name identifies the component in logs and errors. Must be non-empty.
	Name() string
}
