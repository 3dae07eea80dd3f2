package state

import "context"

// Store persists run documents. Implementations must make Save atomic:
// a crash mid-write never corrupts the last committed document.
//
// A single in-process writer is assumed; backends implement no locking.
type Store interface {
	// LoadOrCreate reads the run document for id. If absent, it
	// synthesizes the default document, persists it, and returns it.
	LoadOrCreate(ctx context.Context, id string) (*Run, error)

	// Save stamps UpdatedAt and writes the document atomically.
	Save(ctx context.Context, run *Run) error

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
