/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */

// Package metrics exposes Prometheus collectors for HTTP traffic, imports and
// the stats cache.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Import row outcomes.
const (
	OutcomeCreated   = "created"
	OutcomeDuplicate = "duplicate"
	OutcomeError     = "error"
)

// Stats cache lookup results.
const (
	CacheHit  = "hit"
	CacheMiss = "miss"
)

var (
	importedRows = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "labrecords_import_rows_total",
		Help: "CSV rows processed by the import engine, by outcome.",
	}, []string{"source", "outcome"})

	statsLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "labrecords_stats_cache_lookups_total",
		Help: "Test statistics cache lookups, by result.",
	}, []string{"result"})

	createdRecords = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "labrecords_created_records_total",
		Help: "Test results created through the single-record API.",
	})

	requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "labrecords_http_request_duration_seconds",
		Help:    "HTTP request latency, by surface, method and status class.",
		Buckets: prometheus.DefBuckets,
	}, []string{"surface", "method", "status"})
)

func init() {
	prometheus.MustRegister(importedRows, statsLookups, createdRecords, requestDuration)
}

// ObserveRequest records one served request. Status is reduced to its class
// ("2xx", "4xx") to keep label cardinality flat.
func ObserveRequest(surface, method string, status int, elapsed time.Duration) {
	requestDuration.WithLabelValues(surface, method, statusClass(status)).Observe(elapsed.Seconds())
}

func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}

	return strconv.Itoa(status/100) + "xx"
}

// ObserveImportRows adds n rows with outcome for the given import source.
func ObserveImportRows(source, outcome string, n int) {
	if n <= 0 {
		return
	}

	importedRows.WithLabelValues(source, outcome).Add(float64(n))
}

// ObserveStatsLookup counts one stats cache lookup.
func ObserveStatsLookup(result string) {
	statsLookups.WithLabelValues(result).Inc()
}

// ObserveCreatedRecord counts one record created through the API.
func ObserveCreatedRecord() {
	createdRecords.Inc()
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
