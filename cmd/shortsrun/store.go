package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	pipeline "github.com/iam-hyo/2601-VPI-V3--shorts-pipline"
	"github.com/iam-hyo/2601-VPI-V3--shorts-pipline/state"
	filestate "github.com/iam-hyo/2601-VPI-V3--shorts-pipline/state/file"
	memorystate "github.com/iam-hyo/2601-VPI-V3--shorts-pipline/state/memory"
	mongostate "github.com/iam-hyo/2601-VPI-V3--shorts-pipline/state/mongo"
	pgstate "github.com/iam-hyo/2601-VPI-V3--shorts-pipline/state/postgres"
	redisstate "github.com/iam-hyo/2601-VPI-V3--shorts-pipline/state/redis"
)

// newStore builds the configured state.Store backend. The returned
// cleanup releases backend clients whose lifecycle the store does not
// own; call it after Close.
func newStore(ctx context.Context, cfg pipeline.Config, logger *slog.Logger) (state.Store, func(), error) {
	noop := func() {}

	switch cfg.State.Backend {
	case "", "file":
		s, err := filestate.New(cfg.State.Dir, cfg.Regions, cfg.SlotsPerRegion,
			filestate.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		return s, noop, nil

	case "memory":
		return memorystate.New(cfg.Regions, cfg.SlotsPerRegion), noop, nil

	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.State.RedisAddr})
		s := redisstate.New(client, cfg.Regions, cfg.SlotsPerRegion,
			redisstate.WithLogger(logger))
		return s, func() { _ = client.Close() }, nil

	case "postgres":
		s, err := pgstate.New(ctx, cfg.State.PostgresURL, cfg.Regions, cfg.SlotsPerRegion,
			pgstate.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close()
			return nil, nil, err
		}
		return s, noop, nil

	case "mongo":
		client, err := mongo.Connect(options.Client().ApplyURI(cfg.State.MongoURI))
		if err != nil {
			return nil, nil, fmt.Errorf("connect mongo: %w", err)
		}
		db := cfg.State.MongoDatabase
		if db == "" {
			db = "pipeline"
		}
		s := mongostate.New(client.Database(db), cfg.Regions, cfg.SlotsPerRegion,
			mongostate.WithLogger(logger))
		return s, func() { _ = client.Disconnect(context.Background()) }, nil

	default:
		return nil, nil, fmt.Errorf("unknown state backend %q", cfg.State.Backend)
	}
}
