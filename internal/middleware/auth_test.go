// Wayfarer - Location Exploration Tracking and Achievement Engine
// Copyright 2026 Wayfarer Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wayfarer-app/wayfarer

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wayfarer-app/wayfarer/internal/config"
	"github.com/wayfarer-app/wayfarer/internal/logging"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func signToken(t *testing.T, secret string, claims jwt.RegisteredClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

// serve runs one request through Authenticate and reports the captured
// user id (if the request reached the handler) and the status code.
func serve(t *testing.T, auth *Authenticator, mutate func(*http.Request)) (int64, bool, int) {
	t.Helper()

	var userID int64
	var reached bool
	handler := auth.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, reached = logging.UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/achievements", nil)
	mutate(req)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return userID, reached, rec.Code
}

func jwtAuthenticator() *Authenticator {
	return NewAuthenticator(&config.SecurityConfig{AuthMode: "jwt", JWTSecret: testSecret})
}

func TestAuthenticateValidToken(t *testing.T) {
	token := signToken(t, testSecret, jwt.RegisteredClaims{
		Subject:   "42",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})

	userID, reached, code := serve(t, jwtAuthenticator(), func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	})
	if code != http.StatusOK || !reached {
		t.Fatalf("valid token rejected: status %d", code)
	}
	if userID != 42 {
		t.Errorf("userID = %d, want 42", userID)
	}
}

func TestAuthenticateRejections(t *testing.T) {
	expired := signToken(t, testSecret, jwt.RegisteredClaims{
		Subject:   "42",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})
	wrongKey := signToken(t, "another-secret-another-secret-xx", jwt.RegisteredClaims{
		Subject:   "42",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	badSubject := signToken(t, testSecret, jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic dXNlcjpwYXNz"},
		{"garbage token", "Bearer not.a.token"},
		{"expired", "Bearer " + expired},
		{"wrong key", "Bearer " + wrongKey},
		{"non-numeric subject", "Bearer " + badSubject},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, reached, code := serve(t, jwtAuthenticator(), func(r *http.Request) {
				if tc.header != "" {
					r.Header.Set("Authorization", tc.header)
				}
			})
			if reached || code != http.StatusUnauthorized {
				t.Errorf("got status %d reached=%v, want 401 unreached", code, reached)
			}
		})
	}
}

func TestAuthenticateNoneMode(t *testing.T) {
	auth := NewAuthenticator(&config.SecurityConfig{AuthMode: "none"})

	userID, reached, code := serve(t, auth, func(r *http.Request) {})
	if code != http.StatusOK || !reached || userID != 1 {
		t.Errorf("default dev user: got id=%d status=%d", userID, code)
	}

	userID, _, code = serve(t, auth, func(r *http.Request) {
		r.Header.Set("X-User-ID", "7")
	})
	if code != http.StatusOK || userID != 7 {
		t.Errorf("X-User-ID override: got id=%d status=%d", userID, code)
	}

	_, reached, code = serve(t, auth, func(r *http.Request) {
		r.Header.Set("X-User-ID", "-3")
	})
	if reached || code != http.StatusUnauthorized {
		t.Errorf("invalid X-User-ID accepted: status %d", code)
	}
}
