// Package adapter holds the boundary integrations: the passive capture
// scanner, the probe transmission transport, and event export
// publishers. The core sees only the small interfaces defined here.
package adapter

import (
	"context"

	"wifiradar/internal/domain"
)

// Scanner supplies one scan cycle's raw sightings. Implementations own
// all platform capture details; the core only normalizes their output.
type Scanner interface {
	// Name identifies the adapter for logging.
	Name() string

	// Scan blocks for one capture cycle and returns the raw sightings.
	// Sightings from one cycle share a monotonic timestamp ordering but
	// carry no other ordering guarantee.
	Scan(ctx context.Context) ([]domain.RawSighting, error)

	// Close releases capture resources.
	Close() error
}

// Publisher exports feed events to an external consumer. Publishers are
// feed subscribers and must tolerate dropped events.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, ev domain.Event) error
	Close() error
}
