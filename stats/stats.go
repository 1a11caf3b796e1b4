/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */

// Package stats memoizes the per-test aggregates behind a shared cache.
package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/humaidq/labrecords/cache"
	"github.com/humaidq/labrecords/db"
	"github.com/humaidq/labrecords/logging"
	"github.com/humaidq/labrecords/metrics"
)

// Cache key and lifetime of the memoized aggregates.
const (
	CacheKey = "test_stats"
	CacheTTL = 300 * time.Second
)

var logger = logging.Logger(logging.SourceCache)

// Source computes fresh aggregates from the record store.
type Source interface {
	ComputeTestStats(ctx context.Context) (db.TestStats, error)
}

// Service returns cached aggregates when present and recomputes them on a miss.
type Service struct {
	cache  cache.Cache
	source Source
}

// NewService returns a Service reading through c to source.
func NewService(c cache.Cache, source Source) *Service {
	return &Service{cache: c, source: source}
}

// Get returns the aggregates and whether they were served from the cache.
// Cache failures degrade to recomputation; a compute failure is returned and
// nothing is cached.
func (s *Service) Get(ctx context.Context) (db.TestStats, bool, error) {
	if stats, ok := s.lookup(ctx); ok {
		metrics.ObserveStatsLookup(metrics.CacheHit)
		logger.Debug("Stats cache hit", "key", CacheKey)

		return stats, true, nil
	}

	metrics.ObserveStatsLookup(metrics.CacheMiss)
	logger.Debug("Stats cache miss, computing from database", "key", CacheKey)

	stats, err := s.source.ComputeTestStats(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to compute test stats: %w", err)
	}

	payload, err := json.Marshal(stats)
	if err != nil {
		logger.Warn("Failed to encode test stats for cache", "error", err)
		return stats, false, nil
	}

	if err := s.cache.Set(ctx, CacheKey, payload, CacheTTL); err != nil {
		logger.Warn("Failed to store test stats in cache", "error", err)
	}

	return stats, false, nil
}

func (s *Service) lookup(ctx context.Context) (db.TestStats, bool) {
	payload, ok, err := s.cache.Get(ctx, CacheKey)
	if err != nil {
		logger.Warn("Failed to read test stats from cache", "error", err)
		return nil, false
	}

	if !ok {
		return nil, false
	}

	var stats db.TestStats
	if err := json.Unmarshal(payload, &stats); err != nil {
		logger.Warn("Discarding undecodable cached test stats", "error", err)
		return nil, false
	}

	return stats, true
}

// Invalidate drops the cached aggregates so the next Get recomputes them.
func (s *Service) Invalidate(ctx context.Context) error {
	if err := s.cache.Delete(ctx, CacheKey); err != nil {
		return fmt.Errorf("failed to invalidate test stats: %w", err)
	}

	logger.Debug("Stats cache invalidated", "key", CacheKey)

	return nil
}
