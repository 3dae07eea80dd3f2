// Package mongo implements state.Store on MongoDB using the official v2
// driver. Each run is one document in the runs collection; Save is a
// single ReplaceOne upsert.
package mongo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/iam-hyo/2601-VPI-V3--shorts-pipline/state"
)

// Compile-time interface check.
var _ state.Store = (*Store)(nil)

// collectionName holds run documents.
const collectionName = "pipeline_runs"

// runDoc is the stored shape: the run is kept as its canonical JSON so
// the document layout stays identical across every backend.
type runDoc struct {
	ID        string    `bson:"_id"`
	Doc       string    `bson:"doc"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// Option configures the Store.
type Option func(*Store)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Store implements state.Store backed by MongoDB.
type Store struct {
	coll           *mongo.Collection
	regions        []string
	slotsPerRegion int
	logger         *slog.Logger
}

// New creates a Mongo-backed store on the given database. The caller owns
// the client lifecycle.
func New(db *mongo.Database, regions []string, slotsPerRegion int, opts ...Option) *Store {
	s := &Store{
		coll:           db.Collection(collectionName),
		regions:        regions,
		slotsPerRegion: slotsPerRegion,
		logger:         slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// LoadOrCreate reads the run document, synthesizing and persisting the
// default when absent.
func (s *Store) LoadOrCreate(ctx context.Context, id string) (*state.Run, error) {
	var doc runDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		run := state.NewRun(id, s.regions, s.slotsPerRegion)
		if saveErr := s.Save(ctx, run); saveErr != nil {
			return nil, saveErr
		}
		s.logger.Info("created run document", slog.String("run_id", id))
		return run, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pipeline/mongo: get run %s: %w", id, err)
	}

	var run state.Run
	if err := json.Unmarshal([]byte(doc.Doc), &run); err != nil {
		return nil, fmt.Errorf("pipeline/mongo: decode run %s: %w", id, err)
	}
	return &run, nil
}

// Save stamps UpdatedAt and upserts the document.
func (s *Store) Save(ctx context.Context, run *state.Run) error {
	run.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("pipeline/mongo: encode run %s: %w", run.ID, err)
	}
	doc := runDoc{ID: run.ID, Doc: string(data), UpdatedAt: run.UpdatedAt}
	_, err = s.coll.ReplaceOne(ctx, bson.M{"_id": run.ID}, doc,
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("pipeline/mongo: save run %s: %w", run.ID, err)
	}
	return nil
}

// Ping verifies the server is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.coll.Database().Client().Ping(ctx, nil)
}

// Close is a no-op; the caller owns the Mongo client lifecycle.
func (s *Store) Close() error { return nil }
