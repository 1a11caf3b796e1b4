// SPDX-FileCopyrightText: 2025 Humaid Alqasimi
// SPDX-License-Identifier: Apache-2.0

package db

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newInput(patientID int64, name TestName, value float64, abnormal bool) TestResultInput {
	return TestResultInput{
		PatientID:  patientID,
		TestName:   name,
		Value:      value,
		Unit:       "mg/dL",
		TestDate:   time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		IsAbnormal: abnormal,
	}
}

func TestCreateAndListTestResults(t *testing.T) {
	requireDatabase(t)

	ctx := testContext()
	store := NewStore()

	created, err := store.CreateTestResult(ctx, newInput(5, TestGlucose, 95.5, false))
	if err != nil {
		t.Fatalf("CreateTestResult failed: %v", err)
	}

	if created.ID == uuid.Nil {
		t.Fatalf("expected generated id")
	}

	if created.PatientID != 5 || created.TestName != TestGlucose || created.Value != 95.5 {
		t.Fatalf("unexpected created record: %#v", created)
	}

	results, err := store.ListTestResultsByPatient(ctx, 5)
	if err != nil {
		t.Fatalf("ListTestResultsByPatient failed: %v", err)
	}

	if len(results) != 1 || results[0].ID != created.ID {
		t.Fatalf("expected the created record, got %#v", results)
	}

	none, err := store.ListTestResultsByPatient(ctx, 6)
	if err != nil {
		t.Fatalf("ListTestResultsByPatient failed: %v", err)
	}

	if len(none) != 0 {
		t.Fatalf("expected no records, got %d", len(none))
	}
}

func TestCreateTestResultConflicts(t *testing.T) {
	requireDatabase(t)

	ctx := testContext()
	store := NewStore()

	if _, err := store.CreateTestResult(ctx, newInput(7, TestGlucose, 100, false)); err != nil {
		t.Fatalf("CreateTestResult failed: %v", err)
	}

	_, err := store.CreateTestResult(ctx, newInput(7, TestGlucose, 110, false))
	if !errors.Is(err, ErrDuplicateTestResult) {
		t.Fatalf("expected duplicate error, got %v", err)
	}

	_, err = store.CreateTestResult(ctx, newInput(7, TestCholesterol, 180, false))
	if !errors.Is(err, ErrPatientIDTaken) {
		t.Fatalf("expected patient id taken error, got %v", err)
	}

	count, err := store.CountTestResults(ctx)
	if err != nil {
		t.Fatalf("CountTestResults failed: %v", err)
	}

	if count != 1 {
		t.Fatalf("expected one stored record, got %d", count)
	}
}

func TestCreateTestResultRejectsInvalidInput(t *testing.T) {
	requireDatabase(t)

	ctx := testContext()
	store := NewStore()

	_, err := store.CreateTestResult(ctx, newInput(8, TestGlucose, 0, false))

	var verr *ValidationError
	if !errors.As(err, &verr) || !verr.Has(FieldValue) {
		t.Fatalf("expected value validation error, got %v", err)
	}

	count, err := store.CountTestResults(ctx)
	if err != nil {
		t.Fatalf("CountTestResults failed: %v", err)
	}

	if count != 0 {
		t.Fatalf("expected no stored records, got %d", count)
	}
}

func TestInTxKeepsGoingAfterConflictAndRollsBack(t *testing.T) {
	requireDatabase(t)

	ctx := testContext()
	store := NewStore()

	if _, err := store.CreateTestResult(ctx, newInput(1, TestHemoglobin, 13.5, false)); err != nil {
		t.Fatalf("CreateTestResult failed: %v", err)
	}

	errAbort := errors.New("abort")

	err := store.InTx(ctx, func(tx *Store) error {
		if _, err := tx.CreateTestResult(ctx, newInput(1, TestHemoglobin, 14, false)); !errors.Is(err, ErrDuplicateTestResult) {
			t.Errorf("expected duplicate inside transaction, got %v", err)
		}

		// The savepoint keeps the transaction usable after the violation.
		if _, err := tx.CreateTestResult(ctx, newInput(2, TestHemoglobin, 12, false)); err != nil {
			t.Errorf("expected insert after conflict to succeed, got %v", err)
		}

		return errAbort
	})
	if !errors.Is(err, errAbort) {
		t.Fatalf("expected abort error, got %v", err)
	}

	count, err := store.CountTestResults(ctx)
	if err != nil {
		t.Fatalf("CountTestResults failed: %v", err)
	}

	if count != 1 {
		t.Fatalf("expected rollback to leave one record, got %d", count)
	}

	err = store.InTx(ctx, func(tx *Store) error {
		_, err := tx.CreateTestResult(ctx, newInput(3, TestCholesterol, 190, true))
		return err
	})
	if err != nil {
		t.Fatalf("expected committed transaction, got %v", err)
	}

	if count, _ := store.CountTestResults(ctx); count != 2 {
		t.Fatalf("expected two records after commit, got %d", count)
	}
}

func TestGetTestResultsByIDsKeepsSelectionOrder(t *testing.T) {
	requireDatabase(t)

	ctx := testContext()
	store := NewStore()

	var ids []uuid.UUID

	for i := int64(1); i <= 3; i++ {
		created, err := store.CreateTestResult(ctx, newInput(i, TestGlucose, float64(90+i), false))
		if err != nil {
			t.Fatalf("CreateTestResult failed: %v", err)
		}

		ids = append(ids, created.ID)
	}

	selected := []uuid.UUID{ids[2], ids[0], uuid.New()}

	results, err := store.GetTestResultsByIDs(ctx, selected)
	if err != nil {
		t.Fatalf("GetTestResultsByIDs failed: %v", err)
	}

	if len(results) != 2 || results[0].ID != ids[2] || results[1].ID != ids[0] {
		t.Fatalf("unexpected selection order: %#v", results)
	}

	page, err := store.ListTestResults(ctx, 2, 0)
	if err != nil {
		t.Fatalf("ListTestResults failed: %v", err)
	}

	if len(page) != 2 {
		t.Fatalf("expected a page of two, got %d", len(page))
	}
}

func TestComputeTestStats(t *testing.T) {
	requireDatabase(t)

	ctx := testContext()
	store := NewStore()

	inputs := []TestResultInput{
		newInput(1, TestGlucose, 90, false),
		newInput(2, TestGlucose, 110, true),
		newInput(3, TestCholesterol, 200, true),
	}

	for _, input := range inputs {
		if _, err := store.CreateTestResult(ctx, input); err != nil {
			t.Fatalf("CreateTestResult failed: %v", err)
		}
	}

	stats, err := store.ComputeTestStats(ctx)
	if err != nil {
		t.Fatalf("ComputeTestStats failed: %v", err)
	}

	glucose, ok := stats[TestGlucose]
	if !ok {
		t.Fatalf("expected glucose stats, got %#v", stats)
	}

	want := TestStat{MinValue: 90, MaxValue: 110, AvgValue: 100, TotalTests: 2, AbnormalCount: 1}
	if glucose != want {
		t.Fatalf("unexpected glucose stats: %#v", glucose)
	}

	if _, ok := stats[TestHemoglobin]; ok {
		t.Fatalf("expected no hemoglobin entry without records")
	}
}
