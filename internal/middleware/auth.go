// Wayfarer - Location Exploration Tracking and Achievement Engine
// Copyright 2026 Wayfarer Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wayfarer-app/wayfarer

package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wayfarer-app/wayfarer/internal/config"
	"github.com/wayfarer-app/wayfarer/internal/logging"
)

// Authenticator resolves the calling user for every request. Two modes:
//
//   - "jwt": a Bearer token signed with HS256; the subject claim is the
//     numeric user id.
//   - "none": development only, the user id comes from the X-User-ID
//     header and defaults to 1. Config validation forbids this mode in
//     production.
type Authenticator struct {
	mode   string
	secret []byte
}

// NewAuthenticator creates an authenticator from the security config.
func NewAuthenticator(cfg *config.SecurityConfig) *Authenticator {
	return &Authenticator{
		mode:   strings.ToLower(cfg.AuthMode),
		secret: []byte(cfg.JWTSecret),
	}
}

// Authenticate attaches the authenticated user id to the request
// context or rejects with 401.
func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := a.resolveUser(r)
		if err != nil {
			logging.Ctx(r.Context()).Debug().Err(err).Msg("Authentication failed")
			writeAuthError(w, err.Error())
			return
		}

		ctx := logging.ContextWithUserID(r.Context(), userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *Authenticator) resolveUser(r *http.Request) (int64, error) {
	if a.mode == "none" {
		header := r.Header.Get("X-User-ID")
		if header == "" {
			return 1, nil
		}
		userID, err := strconv.ParseInt(header, 10, 64)
		if err != nil || userID <= 0 {
			return 0, errInvalidUserHeader
		}
		return userID, nil
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return 0, errMissingToken
	}
	tokenStr, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok {
		return 0, errMalformedHeader
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errUnexpectedSigning
		}
		return a.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return 0, errInvalidToken
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return 0, errInvalidSubject
	}
	return userID, nil
}

// authError keeps error strings stable for clients without leaking
// parser internals.
type authError string

func (e authError) Error() string { return string(e) }

const (
	errMissingToken      = authError("missing bearer token")
	errMalformedHeader   = authError("malformed authorization header")
	errInvalidToken      = authError("invalid or expired token")
	errInvalidSubject    = authError("token subject is not a valid user id")
	errUnexpectedSigning = authError("unexpected token signing method")
	errInvalidUserHeader = authError("invalid X-User-ID header")
)

// writeAuthError writes a 401 in the standard response envelope shape.
// Hand-rolled here to keep the middleware package free of the api
// package (which imports middleware).
func writeAuthError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"success":false,"error":{"code":"UNAUTHORIZED","message":"` + message + `"}}`))
}
