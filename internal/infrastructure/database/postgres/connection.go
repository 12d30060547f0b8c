package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bhph-engine/internal/config"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool sizing for the ledger workload: every mutation is one short
// transaction, so a small pool with a couple of warm connections is enough.
const (
	poolMaxConns          = 10
	poolMinConns          = 2
	poolMaxConnIdleTime   = 5 * time.Minute
	poolHealthCheckPeriod = 1 * time.Minute
	connectPingTimeout    = 5 * time.Second
)

func NewConnectionPool(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*pgxpool.Pool, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database URL is empty in configuration")
	}

	poolConfig, err := configurePool(cfg)
	if err != nil {
		return nil, err
	}

	logger.Info("Opening PostgreSQL connection pool",
		"host", poolConfig.ConnConfig.Host, "db", poolConfig.ConnConfig.Database)
	dbpool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := verifyConnection(ctx, dbpool); err != nil {
		dbpool.Close()
		return nil, err
	}

	logger.Info("PostgreSQL connection pool ready",
		"maxConns", poolConfig.MaxConns, "minConns", poolConfig.MinConns)
	return dbpool, nil
}

func configurePool(cfg config.DatabaseConfig) (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config from URL: %w", err)
	}

	poolConfig.MaxConns = poolMaxConns
	poolConfig.MinConns = poolMinConns
	poolConfig.MaxConnIdleTime = poolMaxConnIdleTime
	poolConfig.HealthCheckPeriod = poolHealthCheckPeriod

	return poolConfig, nil
}

func verifyConnection(ctx context.Context, dbpool *pgxpool.Pool) error {
	pingCtx, cancel := context.WithTimeout(ctx, connectPingTimeout)
	defer cancel()

	if err := dbpool.Ping(pingCtx); err != nil {
		return fmt.Errorf("failed to ping database on connect: %w", err)
	}

	return nil
}
