/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package service allows running prefetch limiters as units of a bigger service
// that has its own start/stop lifecycle (e.g. a broker connection with its channels).
package service

// Unit is a component of a service with its own lifecycle.
type Unit interface {
	// Start runs the unit. It may block for the unit's lifetime.
	// A fatal error is written to fatalErr only before Start returns.
	Start(fatalErr chan<- error)

	// Stop halts the unit. It may be called even if Start has never been called.
	Stop(gracefully bool) error
}

// MetricsRegisterer is implemented by units that own metrics.
type MetricsRegisterer interface {
	MustRegisterMetrics()
	UnregisterMetrics()
}
