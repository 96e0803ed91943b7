package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/ehr/gateway/internal/config"
	"github.com/ehr/gateway/internal/platform/db"
	"github.com/ehr/gateway/internal/sequence"
)

// sequenceBackend is the counter store selected by SEQUENCE_BACKEND.
type sequenceBackend struct {
	name    string
	counter sequence.Counter
	ping    db.PingFunc
	pool    *pgxpool.Pool
	close   func()
}

func openSequenceBackend(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*sequenceBackend, error) {
	switch cfg.SequenceBackend {
	case config.BackendMemory, "":
		logger.Warn().Msg("using in-memory sequence counters; identifiers restart at 1 on every start")
		return &sequenceBackend{
			name:    config.BackendMemory,
			counter: sequence.NewMemoryCounter(),
			close:   func() {},
		}, nil

	case config.BackendPostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBSchema, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("schema", cfg.DBSchema).Msg("connected to database")
		return &sequenceBackend{
			name:    config.BackendPostgres,
			counter: sequence.NewPostgresCounter(pool, cfg.DBSchema),
			ping:    pool.Ping,
			pool:    pool,
			close:   pool.Close,
		}, nil

	case config.BackendRedis:
		client, err := sequence.DialRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("key_prefix", cfg.RedisKeyPrefix).Msg("connected to redis")
		return &sequenceBackend{
			name:    config.BackendRedis,
			counter: sequence.NewRedisCounter(client, cfg.RedisKeyPrefix),
			ping: func(ctx context.Context) error {
				return client.Ping(ctx).Err()
			},
			close: func() { client.Close() },
		}, nil

	case config.BackendSQLite:
		counter, err := sequence.OpenSQLiteCounter(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("path", cfg.SQLitePath).Msg("opened sqlite sequence store")
		return &sequenceBackend{
			name:    config.BackendSQLite,
			counter: counter,
			ping:    counter.Ping,
			close:   func() { counter.Close() },
		}, nil

	default:
		return nil, fmt.Errorf("unknown sequence backend %q", cfg.SequenceBackend)
	}
}
