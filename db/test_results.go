/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolationCode       = "23505"
	patientIDUniqueConstraint = "test_results_patient_id_key"
	testResultColumns         = `id, patient_id, test_name, value, unit, test_date, is_abnormal, created_at`
)

// Store runs test result queries against the pool, or against a transaction
// when obtained through InTx.
type Store struct {
	tx pgx.Tx
}

// NewStore returns a Store backed by the package connection pool.
func NewStore() *Store {
	return &Store{}
}

func (s *Store) conn() (querier, error) {
	if s.tx != nil {
		return s.tx, nil
	}

	if pool == nil {
		return nil, ErrDatabaseConnectionNotInitialized
	}

	return pool, nil
}

// InTx runs fn with a Store bound to a single transaction. The transaction is
// committed only when fn returns nil.
func (s *Store) InTx(ctx context.Context, fn func(tx *Store) error) error {
	q, err := s.conn()
	if err != nil {
		return err
	}

	tx, err := q.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			logger.Warn("Failed to rollback test result transaction", "error", err)
		}
	}()

	if err := fn(&Store{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// CreateTestResult validates and inserts one record. A unique violation on
// patient_id is reported as ErrDuplicateTestResult when the stored record has
// the same test name, otherwise as ErrPatientIDTaken.
func (s *Store) CreateTestResult(ctx context.Context, input TestResultInput) (*TestResult, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	q, err := s.conn()
	if err != nil {
		return nil, err
	}

	// Inside a transaction this is a savepoint, so a failed row leaves the
	// outer transaction usable.
	sp, err := q.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start insert: %w", err)
	}

	query := `
		INSERT INTO test_results (patient_id, test_name, value, unit, test_date, is_abnormal)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + testResultColumns

	result, err := scanTestResult(sp.QueryRow(ctx, query,
		input.PatientID, string(input.TestName), input.Value, input.Unit, input.TestDate, input.IsAbnormal,
	))
	if err != nil {
		if rbErr := sp.Rollback(ctx); rbErr != nil {
			logger.Warn("Failed to rollback test result insert", "error", rbErr)
		}

		if isUniqueViolation(err, patientIDUniqueConstraint) {
			return nil, classifyConflict(ctx, q, input)
		}

		return nil, fmt.Errorf("failed to create test result: %w", err)
	}

	if err := sp.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit test result: %w", err)
	}

	return result, nil
}

func classifyConflict(ctx context.Context, q querier, input TestResultInput) error {
	var existing TestName

	err := q.QueryRow(ctx, `SELECT test_name FROM test_results WHERE patient_id = $1`, input.PatientID).Scan(&existing)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("failed to look up conflicting test result: %w", err)
	}

	if existing == input.TestName {
		return fmt.Errorf("%w: patient_id %d already has a %s result", ErrDuplicateTestResult, input.PatientID, input.TestName)
	}

	return fmt.Errorf("%w: patient_id %d", ErrPatientIDTaken, input.PatientID)
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}

	return pgErr.Code == uniqueViolationCode && pgErr.ConstraintName == constraint
}

// ListTestResultsByPatient returns every record for patientID.
func (s *Store) ListTestResultsByPatient(ctx context.Context, patientID int64) ([]TestResult, error) {
	q, err := s.conn()
	if err != nil {
		return nil, err
	}

	query := `
		SELECT ` + testResultColumns + `
		FROM test_results
		WHERE patient_id = $1
		ORDER BY test_name ASC, test_date ASC
	`

	rows, err := q.Query(ctx, query, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list test results: %w", err)
	}

	return collectTestResults(rows)
}

// ListTestResults returns one page of records, newest first.
func (s *Store) ListTestResults(ctx context.Context, limit, offset int) ([]TestResult, error) {
	q, err := s.conn()
	if err != nil {
		return nil, err
	}

	query := `
		SELECT ` + testResultColumns + `
		FROM test_results
		ORDER BY created_at DESC, id ASC
		LIMIT $1 OFFSET $2
	`

	rows, err := q.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list test results: %w", err)
	}

	return collectTestResults(rows)
}

// CountTestResults returns the number of stored records.
func (s *Store) CountTestResults(ctx context.Context) (int, error) {
	q, err := s.conn()
	if err != nil {
		return 0, err
	}

	var count int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM test_results`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count test results: %w", err)
	}

	return count, nil
}

// GetTestResultsByIDs returns the records for ids in the order the ids were
// given. Unknown ids are skipped.
func (s *Store) GetTestResultsByIDs(ctx context.Context, ids []uuid.UUID) ([]TestResult, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	q, err := s.conn()
	if err != nil {
		return nil, err
	}

	query := `
		SELECT t.id, t.patient_id, t.test_name, t.value, t.unit, t.test_date, t.is_abnormal, t.created_at
		FROM unnest($1::uuid[]) WITH ORDINALITY AS selected(id, ord)
		JOIN test_results t ON t.id = selected.id
		ORDER BY selected.ord
	`

	rows, err := q.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get selected test results: %w", err)
	}

	return collectTestResults(rows)
}

func scanTestResult(row pgx.Row) (*TestResult, error) {
	var result TestResult

	err := row.Scan(
		&result.ID, &result.PatientID, &result.TestName, &result.Value,
		&result.Unit, &result.TestDate, &result.IsAbnormal, &result.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	result.TestDate = result.TestDate.UTC()

	return &result, nil
}

func collectTestResults(rows pgx.Rows) ([]TestResult, error) {
	defer rows.Close()

	results := make([]TestResult, 0)

	for rows.Next() {
		result, err := scanTestResult(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan test result: %w", err)
		}

		results = append(results, *result)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating test results: %w", err)
	}

	return results, nil
}
