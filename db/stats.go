/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package db

import (
	"context"
	"fmt"
)

// ComputeTestStats aggregates every stored record per test name in a single
// grouped scan. Categories without records are absent from the result.
func (s *Store) ComputeTestStats(ctx context.Context) (TestStats, error) {
	q, err := s.conn()
	if err != nil {
		return nil, err
	}

	query := `
		SELECT test_name,
		       MIN(value)::float8,
		       MAX(value)::float8,
		       AVG(value)::float8,
		       COUNT(*),
		       COUNT(*) FILTER (WHERE is_abnormal)
		FROM test_results
		GROUP BY test_name
		ORDER BY test_name
	`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to compute test stats: %w", err)
	}
	defer rows.Close()

	stats := make(TestStats)

	for rows.Next() {
		var (
			name TestName
			stat TestStat
		)

		if err := rows.Scan(&name, &stat.MinValue, &stat.MaxValue, &stat.AvgValue, &stat.TotalTests, &stat.AbnormalCount); err != nil {
			return nil, fmt.Errorf("failed to scan test stats: %w", err)
		}

		stats[name] = stat
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating test stats: %w", err)
	}

	return stats, nil
}
