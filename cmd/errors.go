/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package cmd

import "errors"

var (
	errDatabaseURLRequired       = errors.New("database-url is required (set via --database-url or DATABASE_URL env var)")
	errMigrationNameRequired     = errors.New("migration name is required")
	errCSRFSecretRequired        = errors.New("CSRF_SECRET is required")
	errAdminPasswordHashRequired = errors.New("ADMIN_PASSWORD_HASH is required (generate one with hash-password)")
	errImportFileRequired        = errors.New("CSV file path is required")
	errPasswordRequired          = errors.New("password is required")
)
