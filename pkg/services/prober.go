package services

import "context"

// Prober checks whether a service is ready to accept connections.
type Prober interface {
	// Probe returns nil when the service is ready, or an error describing
	// why it is not (yet).
	Probe(ctx context.Context) error
}

// ProberFunc is an adapter to allow plain functions as probers.
type ProberFunc func(ctx context.Context) error

// Probe implements the Prober interface.
func (f ProberFunc) Probe(ctx context.Context) error {
	return f(ctx)
}
