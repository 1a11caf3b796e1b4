/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */

// Package labcsv imports and exports test results as CSV.
package labcsv

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/humaidq/labrecords/db"
	"github.com/humaidq/labrecords/logging"
	"github.com/humaidq/labrecords/metrics"
)

// MaxFileSize bounds how much of an upload is read.
const MaxFileSize = 10 << 20

// abnormalTrue is the only is_abnormal cell value read as true.
const abnormalTrue = "True"

var logger = logging.Logger(logging.SourceImport)

// Store persists one record.
type Store interface {
	CreateTestResult(ctx context.Context, input db.TestResultInput) (*db.TestResult, error)
}

// TxStore can run a batch of creates atomically.
type TxStore interface {
	Store
	Atomically(ctx context.Context, fn func(tx Store) error) error
}

// Summary reports the outcome of one import.
type Summary struct {
	Rows       int
	Succeeded  int
	Duplicates int
	// Errors holds one message per failed row, in row order.
	Errors []string
	// DuplicateDetails names each skipped duplicate row.
	DuplicateDetails []string
	// RolledBack is set when an atomic import discarded its writes.
	RolledBack bool
}

// Failed reports whether any row was rejected.
func (s *Summary) Failed() bool {
	return len(s.Errors) > 0
}

// ErrorSummary joins the first limit errors and notes how many were left out.
func (s *Summary) ErrorSummary(limit int) string {
	if len(s.Errors) <= limit {
		return strings.Join(s.Errors, "\n")
	}

	shown := strings.Join(s.Errors[:limit], "\n")

	return fmt.Sprintf("%s\n... and %d more errors.", shown, len(s.Errors)-limit)
}

// ObserveMetrics records the row outcomes under source.
func (s *Summary) ObserveMetrics(source string) {
	metrics.ObserveImportRows(source, metrics.OutcomeCreated, s.Succeeded)
	metrics.ObserveImportRows(source, metrics.OutcomeDuplicate, s.Duplicates)
	metrics.ObserveImportRows(source, metrics.OutcomeError, len(s.Errors))
}

// Import stores every acceptable row of r. Bad rows are reported in the
// summary and never stop the rest of the file. Duplicates are counted
// separately from errors.
func Import(ctx context.Context, r io.Reader, store Store) (*Summary, error) {
	reader, err := newReader(r)
	if err != nil {
		return &Summary{}, err
	}

	return process(ctx, reader, store, false)
}

// ImportAll attempts every row of r inside one transaction and keeps the
// writes only when all rows succeed. Duplicates count as errors here. The
// returned summary always lists every failing row.
func ImportAll(ctx context.Context, r io.Reader, store TxStore) (*Summary, error) {
	reader, err := newReader(r)
	if err != nil {
		return &Summary{}, err
	}

	summary := &Summary{}

	err = store.Atomically(ctx, func(tx Store) error {
		var err error

		summary, err = process(ctx, reader, tx, true)
		if err != nil {
			return err
		}

		if summary.Failed() {
			return errRollback
		}

		return nil
	})

	if errors.Is(err, errRollback) {
		summary.RolledBack = true
		summary.Succeeded = 0

		return summary, nil
	}

	return summary, err
}

// newReader checks the encoding up front so a bad file is rejected before
// any row is written, then strips a leading byte order mark.
func newReader(r io.Reader) (*csv.Reader, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	if len(data) > MaxFileSize {
		return nil, ErrFileTooLarge
	}

	if !utf8.Valid(data) {
		return nil, ErrInvalidEncoding
	}

	reader := csv.NewReader(transform.NewReader(bytes.NewReader(data), unicode.UTF8BOM.NewDecoder()))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	return reader, nil
}

func process(ctx context.Context, reader *csv.Reader, store Store, strict bool) (*Summary, error) {
	summary := &Summary{}

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return summary, nil
	}

	if err != nil {
		return summary, fmt.Errorf("%w: %w", ErrMalformedCSV, err)
	}

	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	for rowNumber := 1; ; rowNumber++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		var parseErr *csv.ParseError

		switch {
		case errors.As(err, &parseErr):
			// The reader has consumed the bad line, so the next one is readable.
			summary.Rows++
			summary.Errors = append(summary.Errors, fmt.Sprintf("Row %d: %s - Error: %s",
				rowNumber, newRow(header, record), parseErr.Err))

			continue
		case err != nil:
			return summary, fmt.Errorf("%w: %w", ErrMalformedCSV, err)
		}

		if err := ctx.Err(); err != nil {
			return summary, err
		}

		summary.Rows++

		importRow(ctx, store, rowNumber, newRow(header, record), summary, strict)
	}

	logger.Info("Processed CSV import",
		"rows", summary.Rows,
		"succeeded", summary.Succeeded,
		"duplicates", summary.Duplicates,
		"errors", len(summary.Errors),
		"atomic", strict,
	)

	return summary, nil
}

func importRow(ctx context.Context, store Store, rowNumber int, row row, summary *Summary, strict bool) {
	if !row.hasRequired() {
		summary.Errors = append(summary.Errors, fmt.Sprintf("Row %d: Missing required fields.", rowNumber))
		return
	}

	input, err := db.ParseTestResult(row.raw())
	if err == nil {
		_, err = store.CreateTestResult(ctx, input)
	}

	switch {
	case err == nil:
		summary.Succeeded++
	case errors.Is(err, db.ErrDuplicateTestResult):
		summary.Duplicates++

		msg := fmt.Sprintf("Row %d: Duplicate patient_id '%s' for test '%s'.",
			rowNumber, row.get(db.FieldPatientID), row.get(db.FieldTestName))
		summary.DuplicateDetails = append(summary.DuplicateDetails, msg)

		if strict {
			summary.Errors = append(summary.Errors, msg)
		}
	default:
		summary.Errors = append(summary.Errors, fmt.Sprintf("Row %d: %s - Error: %s", rowNumber, row, err))
	}
}

// row is one data record keyed by header name. Cells beyond the header are
// dropped; columns past the end of a short record are absent.
type row struct {
	columns []string
	values  map[string]string
}

func newRow(header, record []string) row {
	r := row{values: make(map[string]string, len(header))}

	for i, name := range header {
		if i >= len(record) {
			break
		}

		if _, seen := r.values[name]; seen {
			continue
		}

		r.columns = append(r.columns, name)
		r.values[name] = record[i]
	}

	return r
}

func (r row) get(field string) string {
	return r.values[field]
}

func (r row) hasRequired() bool {
	for _, field := range db.RequiredFields {
		if _, ok := r.values[field]; !ok {
			return false
		}
	}

	return true
}

func (r row) raw() db.RawTestResult {
	return db.RawTestResult{
		PatientID:  r.get(db.FieldPatientID),
		TestName:   r.get(db.FieldTestName),
		Value:      r.get(db.FieldValue),
		Unit:       r.get(db.FieldUnit),
		TestDate:   r.get(db.FieldTestDate),
		IsAbnormal: r.get(db.FieldIsAbnormal) == abnormalTrue,
	}
}

// String renders the row the way it appears in error messages.
func (r row) String() string {
	parts := make([]string, 0, len(r.columns))
	for _, name := range r.columns {
		parts = append(parts, fmt.Sprintf("%s=%q", name, r.values[name]))
	}

	return "{" + strings.Join(parts, " ") + "}"
}
