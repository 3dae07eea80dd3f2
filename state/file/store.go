// Package file implements state.Store on the local filesystem. Each run
// is one JSON document at <dir>/<id>.json, written atomically via
// write-temp-then-rename so a crash mid-write never corrupts the last
// committed document.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/iam-hyo/2601-VPI-V3--shorts-pipline/state"
)

// Compile-time interface check.
var _ state.Store = (*Store)(nil)

// Option configures the Store.
type Option func(*Store)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Store is a filesystem-backed state.Store.
type Store struct {
	dir            string
	regions        []string
	slotsPerRegion int
	logger         *slog.Logger
}

// New creates a file store rooted at dir. The directory is created if
// missing. regions and slotsPerRegion shape the default document
// synthesized by LoadOrCreate.
func New(dir string, regions []string, slotsPerRegion int, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("pipeline/file: create state dir: %w", err)
	}
	s := &Store{
		dir:            dir,
		regions:        regions,
		slotsPerRegion: slotsPerRegion,
		logger:         slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// LoadOrCreate reads the run document for id, synthesizing and persisting
// the default document when absent.
func (s *Store) LoadOrCreate(ctx context.Context, id string) (*state.Run, error) {
	data, err := os.ReadFile(s.path(id))
	if os.IsNotExist(err) {
		run := state.NewRun(id, s.regions, s.slotsPerRegion)
		if saveErr := s.Save(ctx, run); saveErr != nil {
			return nil, saveErr
		}
		s.logger.Info("created run document",
			slog.String("run_id", id),
			slog.Int("regions", len(s.regions)),
		)
		return run, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pipeline/file: read run %s: %w", id, err)
	}

	var run state.Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("pipeline/file: decode run %s: %w", id, err)
	}
	return &run, nil
}

// Save stamps UpdatedAt and writes the document atomically: the JSON is
// written to a temp file in the same directory, synced, and renamed over
// the destination.
func (s *Store) Save(_ context.Context, run *state.Run) error {
	run.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("pipeline/file: encode run %s: %w", run.ID, err)
	}

	tmp, err := os.CreateTemp(s.dir, run.ID+".*.tmp")
	if err != nil {
		return fmt.Errorf("pipeline/file: create temp for run %s: %w", run.ID, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("pipeline/file: write run %s: %w", run.ID, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("pipeline/file: sync run %s: %w", run.ID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("pipeline/file: close temp for run %s: %w", run.ID, err)
	}

	if err := os.Rename(tmpName, s.path(run.ID)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("pipeline/file: commit run %s: %w", run.ID, err)
	}
	return nil
}

// Ping verifies the state directory is accessible.
func (s *Store) Ping(_ context.Context) error {
	if _, err := os.Stat(s.dir); err != nil {
		return fmt.Errorf("pipeline/file: stat state dir: %w", err)
	}
	return nil
}

// Close is a no-op for the file store.
func (s *Store) Close() error { return nil }

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}
