// Wayfarer - Location Exploration Tracking and Achievement Engine
// Copyright 2026 Wayfarer Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wayfarer-app/wayfarer

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/wayfarer-app/wayfarer/internal/logging"
)

// RateLimitPerUser limits requests per minute keyed by the
// authenticated user, falling back to client IP for unauthenticated
// routes. Budgets are per endpoint group, so the single-location and
// batch endpoints count separately.
func RateLimitPerUser(requestsPerMinute int) func(http.Handler) http.Handler {
	return httprate.Limit(
		requestsPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(keyByUser),
		httprate.WithLimitHandler(rateLimitExceeded),
	)
}

func keyByUser(r *http.Request) (string, error) {
	if userID, ok := logging.UserIDFromContext(r.Context()); ok {
		return "user:" + strconv.FormatInt(userID, 10), nil
	}
	return httprate.KeyByIP(r)
}

func rateLimitExceeded(w http.ResponseWriter, r *http.Request) {
	logging.Ctx(r.Context()).Warn().
		Str("path", r.URL.Path).
		Msg("Rate limit exceeded")

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusTooManyRequests)
	_, _ = w.Write([]byte(`{"success":false,"error":{"code":"TOO_MANY_REQUESTS","message":"rate limit exceeded, retry later"}}`))
}
