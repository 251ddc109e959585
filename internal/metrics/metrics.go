// Wayfarer - Location Exploration Tracking and Achievement Engine
// Copyright 2026 Wayfarer Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wayfarer-app/wayfarer

// Package metrics provides Prometheus instrumentation for the ingestion
// pipeline: API throughput, ledger discoveries, region lookups, and
// achievement unlocks.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingestion pipeline metrics
	IngestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_locations_total",
			Help: "Total number of ingested location updates",
		},
		[]string{"outcome"}, // "ok", "rejected", "error"
	)

	IngestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ingest_duration_seconds",
			Help:    "End-to-end duration of one location ingestion",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	CellDiscoveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cell_discoveries_total",
			Help: "Total number of first-ever user cell visits",
		},
		[]string{"resolution"}, // "coarse", "fine"
	)

	CountryDiscoveries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "country_discoveries_total",
			Help: "Total number of first-ever country visits",
		},
	)

	RegionDiscoveries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "region_discoveries_total",
			Help: "Total number of first-ever region visits",
		},
	)

	// Region lookup metrics
	RegionLookupDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "region_lookup_duration_seconds",
			Help:    "Duration of point-in-polygon region lookups",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.2, 0.5},
		},
	)

	RegionLookupUnresolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "region_lookup_unresolved_total",
			Help: "Region lookups that degraded to an unresolved country",
		},
		[]string{"reason"}, // "timeout", "no_match"
	)

	// Achievement metrics
	AchievementsUnlocked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "achievements_unlocked_total",
			Help: "Total number of achievement unlocks across all users",
		},
	)

	AchievementSweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "achievement_sweep_duration_seconds",
			Help:    "Duration of one statistics snapshot plus criteria sweep",
			Buckets: prometheus.DefBuckets,
		},
	)

	// API metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)
)

// ObserveAPIRequest records one completed HTTP request.
func ObserveAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
