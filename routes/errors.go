/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import "errors"

var (
	errMalformedJSON     = errors.New("malformed JSON")
	errPasswordHashEmpty = errors.New("admin password hash is not configured")
)
