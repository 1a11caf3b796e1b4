/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package db

import (
	"time"

	"github.com/google/uuid"
)

// TestName is the category of a laboratory test.
type TestName string

// TestName values are the only categories the store accepts.
const (
	TestGlucose     TestName = "GLUCOSE"
	TestHemoglobin  TestName = "HB"
	TestCholesterol TestName = "CHOL"
)

// TestNames lists every known category in display order.
var TestNames = []TestName{TestGlucose, TestHemoglobin, TestCholesterol}

// Valid reports whether n is one of the known categories.
func (n TestName) Valid() bool {
	switch n {
	case TestGlucose, TestHemoglobin, TestCholesterol:
		return true
	}

	return false
}

// Label returns the human readable name shown in the admin screen.
func (n TestName) Label() string {
	switch n {
	case TestGlucose:
		return "Blood Glucose"
	case TestHemoglobin:
		return "Hemoglobin"
	case TestCholesterol:
		return "Cholesterol"
	}

	return string(n)
}

// TestResult is a stored laboratory result for one patient.
type TestResult struct {
	ID         uuid.UUID `db:"id"`
	PatientID  int64     `db:"patient_id"`
	TestName   TestName  `db:"test_name"`
	Value      float64   `db:"value"`
	Unit       string    `db:"unit"`
	TestDate   time.Time `db:"test_date"`
	IsAbnormal bool      `db:"is_abnormal"`
	CreatedAt  time.Time `db:"created_at"`
}

// TestResultInput is a validated candidate record ready to be persisted.
type TestResultInput struct {
	PatientID  int64
	TestName   TestName
	Value      float64
	Unit       string
	TestDate   time.Time
	IsAbnormal bool
}

// TestStat holds aggregate values for one test category.
type TestStat struct {
	MinValue      float64 `json:"min_value"`
	MaxValue      float64 `json:"max_value"`
	AvgValue      float64 `json:"avg_value"`
	TotalTests    int64   `json:"total_tests"`
	AbnormalCount int64   `json:"abnormal_count"`
}

// TestStats maps a test category to its aggregates.
type TestStats map[TestName]TestStat
