/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */

// Package cache provides the key/value store with expiry used to memoize
// derived data such as test statistics.
package cache

import (
	"context"
	"time"

	"github.com/humaidq/labrecords/logging"
)

var logger = logging.Logger(logging.SourceCache)

// Cache stores opaque values under string keys until their TTL elapses.
type Cache interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value under key for ttl. A non-positive ttl removes key.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
