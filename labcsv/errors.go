/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package labcsv

import "errors"

var (
	// ErrInvalidEncoding is returned when the upload is not valid UTF-8.
	ErrInvalidEncoding = errors.New("file is not valid UTF-8 text")
	// ErrFileTooLarge is returned when the upload exceeds MaxFileSize.
	ErrFileTooLarge = errors.New("file is too large")
	// ErrMalformedCSV is returned when the header cannot be parsed or the
	// stream fails mid-read.
	ErrMalformedCSV = errors.New("malformed CSV")

	errRollback = errors.New("batch has failing rows")
)
