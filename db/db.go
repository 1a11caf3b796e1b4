/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	maxPoolConns        = 20
	minPoolConns        = 2
	healthCheckInterval = time.Minute
	duplicateDatabase   = "42P04"
)

var pool *pgxpool.Pool

// querier is satisfied by both the pool and an open transaction.
type querier interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Init connects the shared pool, creating the target database first when the
// server does not have it yet.
func Init(ctx context.Context, databaseURL string) error {
	if databaseURL == "" {
		return ErrDatabaseURLEnvVarNotSet
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return fmt.Errorf("failed to parse database URL: %w", err)
	}

	if err := createDatabaseIfMissing(ctx, config.ConnConfig.Copy()); err != nil {
		return fmt.Errorf("failed to ensure database exists: %w", err)
	}

	config.MaxConns = maxPoolConns
	config.MinConns = minPoolConns
	config.HealthCheckPeriod = healthCheckInterval

	p, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := p.Ping(ctx); err != nil {
		p.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	pool = p

	logger.Info("Connected to database",
		"host", config.ConnConfig.Host,
		"database", config.ConnConfig.Database,
		"max_conns", config.MaxConns,
	)

	return nil
}

// GetPool returns the shared pool, or nil before Init.
func GetPool() *pgxpool.Pool {
	return pool
}

// Close releases the shared pool. It is safe to call more than once.
func Close() {
	if pool != nil {
		pool.Close()
		pool = nil
	}
}

func ensureDatabaseExists(ctx context.Context, databaseURL string) error {
	config, err := pgx.ParseConfig(databaseURL)
	if err != nil {
		return fmt.Errorf("failed to parse database URL: %w", err)
	}

	return createDatabaseIfMissing(ctx, config)
}

// createDatabaseIfMissing connects to the maintenance database named
// "postgres" and creates config.Database there.
func createDatabaseIfMissing(ctx context.Context, config *pgx.ConnConfig) error {
	name := config.Database
	if name == "" {
		return ErrDatabaseNameNotSpecified
	}

	config.Database = "postgres"

	conn, err := pgx.ConnectConfig(ctx, config)
	if err != nil {
		return fmt.Errorf("failed to connect to maintenance database: %w", err)
	}

	defer func() {
		if err := conn.Close(ctx); err != nil {
			logger.Warn("Failed to close maintenance connection", "error", err)
		}
	}()

	var exists bool
	if err := conn.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)`, name,
	).Scan(&exists); err != nil {
		return fmt.Errorf("failed to look up database: %w", err)
	}

	if exists {
		return nil
	}

	_, err = conn.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{name}.Sanitize())

	var pgErr *pgconn.PgError
	switch {
	case err == nil:
		logger.Info("Created database", "database", name)
	case errors.As(err, &pgErr) && pgErr.Code == duplicateDatabase:
		// created concurrently by another replica
	default:
		return fmt.Errorf("failed to create database: %w", err)
	}

	return nil
}
