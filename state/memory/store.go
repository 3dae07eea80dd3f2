// Package memory implements state.Store fully in memory. Intended for
// unit testing and development. Documents are stored as serialized JSON
// so LoadOrCreate always returns an independent copy, matching the
// semantics of the durable backends.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/iam-hyo/2601-VPI-V3--shorts-pipline/state"
)

// Compile-time interface check.
var _ state.Store = (*Store)(nil)

// Store is an in-memory state.Store.
type Store struct {
	mu             sync.Mutex
	docs           map[string][]byte
	regions        []string
	slotsPerRegion int

	// Saves counts Save calls, for test assertions.
	Saves int
}

// New returns a new empty Store shaping default documents with the given
// regions and slot count.
func New(regions []string, slotsPerRegion int) *Store {
	return &Store{
		docs:           make(map[string][]byte),
		regions:        regions,
		slotsPerRegion: slotsPerRegion,
	}
}

// LoadOrCreate returns a copy of the stored document, synthesizing the
// default when absent.
func (s *Store) LoadOrCreate(ctx context.Context, id string) (*state.Run, error) {
	s.mu.Lock()
	data, ok := s.docs[id]
	s.mu.Unlock()

	if !ok {
		run := state.NewRun(id, s.regions, s.slotsPerRegion)
		if err := s.Save(ctx, run); err != nil {
			return nil, err
		}
		return run, nil
	}

	var run state.Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("pipeline/memory: decode run %s: %w", id, err)
	}
	return &run, nil
}

// Save stamps UpdatedAt and stores a serialized copy.
func (s *Store) Save(_ context.Context, run *state.Run) error {
	run.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("pipeline/memory: encode run %s: %w", run.ID, err)
	}

	s.mu.Lock()
	s.docs[run.ID] = data
	s.Saves++
	s.mu.Unlock()
	return nil
}

// Ping always succeeds for the memory store.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (s *Store) Close() error { return nil }
