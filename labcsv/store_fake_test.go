// SPDX-FileCopyrightText: 2025 Humaid Alqasimi
// SPDX-License-Identifier: Apache-2.0

package labcsv

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/humaidq/labrecords/db"
)

var errStoreDown = errors.New("store down")

// fakeStore keeps one record per patient, mirroring the unique constraint.
type fakeStore struct {
	byPatient map[int64]db.TestResultInput
	failOn    int64
	commits   int
	rollbacks int
}

func newFakeStore() *fakeStore {
	return &fakeStore{byPatient: make(map[int64]db.TestResultInput)}
}

func (s *fakeStore) CreateTestResult(_ context.Context, input db.TestResultInput) (*db.TestResult, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	if s.failOn != 0 && input.PatientID == s.failOn {
		return nil, errStoreDown
	}

	if existing, ok := s.byPatient[input.PatientID]; ok {
		if existing.TestName == input.TestName {
			return nil, fmt.Errorf("%w: patient %d", db.ErrDuplicateTestResult, input.PatientID)
		}

		return nil, db.ErrPatientIDTaken
	}

	s.byPatient[input.PatientID] = input

	return &db.TestResult{PatientID: input.PatientID, TestName: input.TestName}, nil
}

func (s *fakeStore) Atomically(ctx context.Context, fn func(tx Store) error) error {
	snapshot := maps.Clone(s.byPatient)

	if err := fn(s); err != nil {
		s.byPatient = snapshot
		s.rollbacks++

		return err
	}

	s.commits++

	return nil
}
