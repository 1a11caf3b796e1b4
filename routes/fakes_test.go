// SPDX-FileCopyrightText: 2025 Humaid Alqasimi
// SPDX-License-Identifier: Apache-2.0

package routes

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/humaidq/labrecords/db"
	"github.com/humaidq/labrecords/labcsv"
)

// fakeResultStore keeps one record per patient like the real table.
type fakeResultStore struct {
	mu      sync.Mutex
	records []db.TestResult
	err     error
	clock   time.Time
	// afterCreate runs after each stored record, outside the lock.
	afterCreate func()
}

func newFakeResultStore() *fakeResultStore {
	return &fakeResultStore{clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (s *fakeResultStore) CreateTestResult(_ context.Context, input db.TestResultInput) (*db.TestResult, error) {
	result, err := s.create(input)
	if err == nil && s.afterCreate != nil {
		s.afterCreate()
	}

	return result, err
}

func (s *fakeResultStore) create(input db.TestResultInput) (*db.TestResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}

	if err := input.Validate(); err != nil {
		return nil, err
	}

	for _, existing := range s.records {
		if existing.PatientID != input.PatientID {
			continue
		}

		if existing.TestName == input.TestName {
			return nil, fmt.Errorf("%w: patient %d", db.ErrDuplicateTestResult, input.PatientID)
		}

		return nil, db.ErrPatientIDTaken
	}

	s.clock = s.clock.Add(time.Minute)
	result := db.TestResult{
		ID:         uuid.New(),
		PatientID:  input.PatientID,
		TestName:   input.TestName,
		Value:      input.Value,
		Unit:       input.Unit,
		TestDate:   input.TestDate,
		IsAbnormal: input.IsAbnormal,
		CreatedAt:  s.clock,
	}
	s.records = append(s.records, result)

	return &result, nil
}

func (s *fakeResultStore) Atomically(_ context.Context, fn func(tx labcsv.Store) error) error {
	s.mu.Lock()
	snapshot := append([]db.TestResult(nil), s.records...)
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.records = snapshot
		s.mu.Unlock()

		return err
	}

	return nil
}

func (s *fakeResultStore) ListTestResultsByPatient(_ context.Context, patientID int64) ([]db.TestResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}

	results := []db.TestResult{}

	for _, r := range s.records {
		if r.PatientID == patientID {
			results = append(results, r)
		}
	}

	return results, nil
}

func (s *fakeResultStore) ListTestResults(_ context.Context, limit, offset int) ([]db.TestResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}

	sorted := append([]db.TestResult(nil), s.records...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	if offset >= len(sorted) {
		return []db.TestResult{}, nil
	}

	end := min(offset+limit, len(sorted))

	return sorted[offset:end], nil
}

func (s *fakeResultStore) CountTestResults(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return 0, s.err
	}

	return len(s.records), nil
}

func (s *fakeResultStore) GetTestResultsByIDs(_ context.Context, ids []uuid.UUID) ([]db.TestResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}

	results := []db.TestResult{}

	for _, id := range ids {
		for _, r := range s.records {
			if r.ID == id {
				results = append(results, r)
			}
		}
	}

	return results, nil
}

func (s *fakeResultStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.records)
}

// fakeStats serves canned aggregates and counts invalidations.
type fakeStats struct {
	stats       db.TestStats
	cached      bool
	err         error
	invalidated int
}

func (s *fakeStats) Get(context.Context) (db.TestStats, bool, error) {
	if s.err != nil {
		return nil, false, s.err
	}

	return s.stats, s.cached, nil
}

func (s *fakeStats) Invalidate(context.Context) error {
	s.invalidated++
	return nil
}

var (
	_ ResultStore   = (*fakeResultStore)(nil)
	_ StatsProvider = (*fakeStats)(nil)
)
