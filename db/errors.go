/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package db

import "errors"

var (
	// ErrDatabaseURLEnvVarNotSet is returned when DATABASE_URL is missing.
	ErrDatabaseURLEnvVarNotSet = errors.New("DATABASE_URL environment variable not set")
	// ErrDatabaseNameNotSpecified is returned when the connection string has no database name.
	ErrDatabaseNameNotSpecified = errors.New("database name not specified in DATABASE_URL")
	// ErrDatabaseConnectionNotInitialized is returned when the pool has not been set up.
	ErrDatabaseConnectionNotInitialized = errors.New("database connection not initialized")

	// ErrDuplicateTestResult is returned when a record with the same patient
	// and test name already exists.
	ErrDuplicateTestResult = errors.New("duplicate test result")
	// ErrPatientIDTaken is returned when the patient already has a record for
	// a different test.
	ErrPatientIDTaken = errors.New("test result with this patient id already exists")

	errInvalidSessionConfig = errors.New("invalid PostgresSessionConfig")
)
