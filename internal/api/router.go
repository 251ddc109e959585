// Wayfarer - Location Exploration Tracking and Achievement Engine
// Copyright 2026 Wayfarer Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wayfarer-app/wayfarer

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wayfarer-app/wayfarer/internal/config"
	"github.com/wayfarer-app/wayfarer/internal/middleware"
)

// NewRouter wires the full HTTP surface.
//
// Route groups carry their own budgets: the single-location endpoint
// tracks the client's live upload cadence, the batch endpoint the
// offline queue flush, and reads are effectively unthrottled beyond
// authentication.
func NewRouter(cfg *config.Config, handler *Handler) http.Handler {
	auth := middleware.NewAuthenticator(&cfg.Security)

	r := chi.NewRouter()

	// Global middleware stack, applied to all routes in order.
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Security.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-User-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health and metrics stay unauthenticated for probes and scrapers.
	r.Get("/api/v1/health", handler.Health)
	r.Handle("/metrics", promhttp.Handler())

	// Write path
	r.Route("/api/v1/location", func(r chi.Router) {
		r.Use(auth.Authenticate)
		r.Use(middleware.PrometheusMetrics)

		r.With(middleware.RateLimitPerUser(cfg.Security.IngestPerMinute)).
			Post("/ingest", handler.IngestLocation)
		r.With(middleware.RateLimitPerUser(cfg.Security.IngestPerMinute)).
			Post("/ingest/simple", handler.IngestSimple)
		r.With(middleware.RateLimitPerUser(cfg.Security.BatchPerMinute)).
			Post("/ingest/batch", handler.IngestBatch)
	})

	// Read path
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Authenticate)
		r.Use(middleware.PrometheusMetrics)

		r.Get("/achievements", handler.Achievements)
		r.Get("/stats/countries", handler.CountryStats)
		r.Get("/stats/regions", handler.RegionStats)
	})

	return r
}
