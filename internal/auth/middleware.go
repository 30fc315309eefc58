// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package auth

import (
	"net/http"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/mhalvorsen/pelorus/internal/logging"
	"github.com/mhalvorsen/pelorus/internal/metrics"
)

// Middleware authenticates requests and attaches the subject to the
// request context.
type Middleware struct {
	mode   Mode
	tokens *TokenManager
}

// NewMiddleware builds the authentication middleware. tokens may be nil
// in ModeNone; ModeJWT requires it.
func NewMiddleware(mode Mode, tokens *TokenManager) *Middleware {
	return &Middleware{mode: mode, tokens: tokens}
}

// anonymous is the subject attached in ModeNone. Full access, matching
// the mode's single-user development intent.
var anonymous = &Subject{Username: "anonymous", Role: RoleAdmin}

// Authenticate wraps a handler with token verification. In ModeNone the
// anonymous admin subject is attached unconditionally, so downstream
// role checks and audit fields see a uniform shape in both modes.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.mode == ModeNone {
			next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), anonymous)))
			return
		}

		token, err := extractToken(r)
		if err != nil {
			writeUnauthorized(w, "Missing bearer token")
			return
		}

		sub, err := m.tokens.Verify(token)
		if err != nil {
			logging.Debug().Err(err).Str("path", r.URL.Path).Msg("Token rejected")
			writeUnauthorized(w, "Invalid or expired token")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), sub)))
	})
}

// extractToken pulls the bearer token from the Authorization header,
// falling back to the "token" cookie for browser clients.
func extractToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		cookie, err := r.Cookie("token")
		if err != nil {
			return "", ErrNoToken
		}
		return cookie.Value, nil
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", ErrNoToken
	}
	return parts[1], nil
}

// writeUnauthorized emits the API's JSON error envelope with a bearer
// challenge. The message never distinguishes missing from invalid
// beyond what the client already knows.
func writeUnauthorized(w http.ResponseWriter, message string) {
	metrics.AuthUnauthorized.Inc()

	w.Header().Set("WWW-Authenticate", `Bearer realm="pelorus"`)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{
			"code":    "UNAUTHORIZED",
			"message": message,
		},
	})
}
