/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package db

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/flamego/session"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultSessionLifetime = 12 * time.Hour
	defaultSessionTable    = "admin_sessions"
)

// PostgresSessionConfig contains options for the admin session store.
type PostgresSessionConfig struct {
	// Lifetime is how long an idle session survives. Default is 12 hours.
	Lifetime time.Duration
	// TableName defaults to "admin_sessions".
	TableName string
	// Encoder defaults to session.GobEncoder.
	Encoder session.Encoder
	// Decoder defaults to session.GobDecoder.
	Decoder session.Decoder
}

// sessionQueries are rendered once per store for its table.
type sessionQueries struct {
	exist, read, destroy, touch, save, gc string
}

func newSessionQueries(table string) sessionQueries {
	t := pgx.Identifier{table}.Sanitize()

	return sessionQueries{
		exist:   `SELECT EXISTS(SELECT 1 FROM ` + t + ` WHERE id = $1 AND expires_at > NOW())`,
		read:    `SELECT data FROM ` + t + ` WHERE id = $1 AND expires_at > NOW()`,
		destroy: `DELETE FROM ` + t + ` WHERE id = $1`,
		touch:   `UPDATE ` + t + ` SET expires_at = $2 WHERE id = $1`,
		save: `INSERT INTO ` + t + ` (id, data, expires_at) VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, expires_at = EXCLUDED.expires_at`,
		gc: `DELETE FROM ` + t + ` WHERE expires_at < NOW()`,
	}
}

// PostgresSessionStore keeps admin logins in PostgreSQL so they survive
// restarts and are shared between replicas.
type PostgresSessionStore struct {
	config  PostgresSessionConfig
	queries sessionQueries
	encoder session.Encoder
	decoder session.Decoder
}

// PostgresSessionIniter returns a session.Initer that accepts an optional
// PostgresSessionConfig argument.
func PostgresSessionIniter() session.Initer {
	return func(_ context.Context, args ...interface{}) (session.Store, error) {
		var config PostgresSessionConfig

		if len(args) > 0 {
			c, ok := args[0].(PostgresSessionConfig)
			if !ok {
				return nil, errInvalidSessionConfig
			}

			config = c
		}

		return newPostgresSessionStore(config), nil
	}
}

func newPostgresSessionStore(config PostgresSessionConfig) *PostgresSessionStore {
	if config.Lifetime <= 0 {
		config.Lifetime = defaultSessionLifetime
	}

	if config.TableName == "" {
		config.TableName = defaultSessionTable
	}

	if config.Encoder == nil {
		config.Encoder = session.GobEncoder
	}

	if config.Decoder == nil {
		config.Decoder = session.GobDecoder
	}

	return &PostgresSessionStore{
		config:  config,
		queries: newSessionQueries(config.TableName),
		encoder: config.Encoder,
		decoder: config.Decoder,
	}
}

func sessionPool() (*pgxpool.Pool, error) {
	if pool == nil {
		return nil, ErrDatabaseConnectionNotInitialized
	}

	return pool, nil
}

func (s *PostgresSessionStore) expiry() time.Time {
	return time.Now().Add(s.config.Lifetime)
}

// Exist reports whether an unexpired session with sid is stored.
func (s *PostgresSessionStore) Exist(ctx context.Context, sid string) bool {
	p, err := sessionPool()
	if err != nil {
		return false
	}

	var exists bool
	if err := p.QueryRow(ctx, s.queries.exist, sid).Scan(&exists); err != nil {
		logger.Warn("Failed to look up admin session", "error", err)
		return false
	}

	return exists
}

// Read loads the session with sid. Unknown, expired and undecodable sessions
// come back empty under the same id.
func (s *PostgresSessionStore) Read(ctx context.Context, sid string) (session.Session, error) {
	p, err := sessionPool()
	if err != nil {
		return nil, err
	}

	// The session middleware writes the cookie itself.
	noopIDWriter := func(http.ResponseWriter, *http.Request, string) {}

	var raw []byte

	err = p.QueryRow(ctx, s.queries.read, sid).Scan(&raw)
	switch {
	case errors.Is(err, pgx.ErrNoRows), err == nil && len(raw) == 0:
		return session.NewBaseSession(sid, s.encoder, noopIDWriter), nil
	case err != nil:
		return nil, err
	}

	data, err := s.decoder(raw)
	if err != nil {
		logger.Warn("Discarding undecodable admin session", "error", err)
		return session.NewBaseSession(sid, s.encoder, noopIDWriter), nil
	}

	return session.NewBaseSessionWithData(sid, s.encoder, noopIDWriter, data), nil
}

// Destroy removes the session with sid.
func (s *PostgresSessionStore) Destroy(ctx context.Context, sid string) error {
	return s.exec(ctx, s.queries.destroy, sid)
}

// Touch extends the session's expiry by the configured lifetime.
func (s *PostgresSessionStore) Touch(ctx context.Context, sid string) error {
	return s.exec(ctx, s.queries.touch, sid, s.expiry())
}

// Save upserts the encoded session.
func (s *PostgresSessionStore) Save(ctx context.Context, sess session.Session) error {
	data, err := sess.Encode()
	if err != nil {
		return err
	}

	return s.exec(ctx, s.queries.save, sess.ID(), data, s.expiry())
}

// GC deletes every expired session.
func (s *PostgresSessionStore) GC(ctx context.Context) error {
	return s.exec(ctx, s.queries.gc)
}

func (s *PostgresSessionStore) exec(ctx context.Context, sql string, args ...any) error {
	p, err := sessionPool()
	if err != nil {
		return err
	}

	_, err = p.Exec(ctx, sql, args...)

	return err
}
