/*
Package db is the PostgreSQL implementation of the chat directory.

NewPool opens a pgx connection pool, waits for the server to accept connections and applies the
embedded goose migrations; Store runs the directory queries on that pool.
*/
package db

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/ahmadjilani1/chathub/internal/pkg/logx"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

const (
	maxConns        = 25
	minConns        = 2
	maxConnLifetime = 30 * time.Minute
	maxConnIdleTime = 5 * time.Minute

	// startupWait bounds how long NewPool waits for the database to come up.
	startupWait = 30 * time.Second
	pingTimeout = 3 * time.Second
)

// NewPool connects to dsn, waiting up to startupWait for the server, and migrates the schema.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database DSN: %w", err)
	}

	config.MaxConns = maxConns
	config.MinConns = minConns
	config.MaxConnLifetime = maxConnLifetime
	config.MaxConnIdleTime = maxConnIdleTime
	config.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := waitForDatabase(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	if err := migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

func waitForDatabase(ctx context.Context, pool *pgxpool.Pool) error {
	logger := logx.Component("db")
	attempts := 0

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempts++

		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()

		if err := pool.Ping(pingCtx); err != nil {
			logger.Warn().Err(err).Int("attempt", attempts).Msg("Database not reachable yet.")
			return struct{}{}, err
		}
		return struct{}{}, nil
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(startupWait),
	)
	if err != nil {
		return fmt.Errorf("database unreachable after %d attempts: %w", attempts, err)
	}

	return nil
}

// migrate applies all pending migrations from the embedded file system.
func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	sqlDB := stdlib.OpenDBFromPool(pool)
	defer sqlDB.Close()

	migrations, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectPostgres, sqlDB, migrations)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	logger := logx.Component("db")
	for _, res := range results {
		logger.Info().
			Int64("version", res.Source.Version).
			Dur("duration", res.Duration).
			Msg("Applied migration.")
	}
	logger.Info().Int("applied", len(results)).Msg("Database schema is up to date.")

	return nil
}
