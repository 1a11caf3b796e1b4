/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"context"

	"github.com/google/uuid"

	"github.com/humaidq/labrecords/db"
	"github.com/humaidq/labrecords/labcsv"
)

// ResultStore is the persistence the handlers need. It is mapped into the
// injector so tests can swap in a fake.
type ResultStore interface {
	labcsv.TxStore
	ListTestResultsByPatient(ctx context.Context, patientID int64) ([]db.TestResult, error)
	ListTestResults(ctx context.Context, limit, offset int) ([]db.TestResult, error)
	CountTestResults(ctx context.Context) (int, error)
	GetTestResultsByIDs(ctx context.Context, ids []uuid.UUID) ([]db.TestResult, error)
}

// StatsProvider serves cached aggregates.
type StatsProvider interface {
	Get(ctx context.Context) (db.TestStats, bool, error)
	Invalidate(ctx context.Context) error
}

type dbStore struct {
	*db.Store
}

// NewResultStore returns a ResultStore backed by the database pool.
func NewResultStore() ResultStore {
	return dbStore{Store: db.NewStore()}
}

func (s dbStore) Atomically(ctx context.Context, fn func(tx labcsv.Store) error) error {
	return s.InTx(ctx, func(tx *db.Store) error {
		return fn(tx)
	})
}
