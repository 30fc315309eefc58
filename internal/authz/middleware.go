// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package authz

import (
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/mhalvorsen/pelorus/internal/auth"
	"github.com/mhalvorsen/pelorus/internal/logging"
	"github.com/mhalvorsen/pelorus/internal/metrics"
)

// Middleware enforces the role policy on every request passing through it.
// It must run after authentication so a Subject is on the context.
type Middleware struct {
	enforcer *Enforcer
}

func NewMiddleware(enforcer *Enforcer) *Middleware {
	return &Middleware{enforcer: enforcer}
}

// Authorize derives the object from the request path and the action from
// the method, then asks the enforcer whether the caller's role allows the
// pair. A missing Subject means the route was mounted without
// authentication, which is refused rather than silently allowed.
func (m *Middleware) Authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sub, ok := auth.SubjectFrom(r.Context())
		if !ok {
			writeForbidden(w, "No authentication context")
			return
		}

		action := methodToAction(r.Method)
		allowed, err := m.enforcer.Enforce(sub.Role, r.URL.Path, action)
		if err != nil {
			logging.Error().Err(err).
				Str("role", sub.Role).
				Str("path", r.URL.Path).
				Msg("Authorization check failed")
			writeAuthzError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Authorization check failed")
			return
		}
		if !allowed {
			metrics.AuthzDenied.WithLabelValues(sub.Role).Inc()
			logging.Warn().
				Str("username", sub.Username).
				Str("role", sub.Role).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote", r.RemoteAddr).
				Msg("Authorization denied")
			writeForbidden(w, "Insufficient permissions")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// methodToAction maps HTTP methods onto the policy's action vocabulary.
func methodToAction(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return "read"
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return "write"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}

func writeForbidden(w http.ResponseWriter, message string) {
	writeAuthzError(w, http.StatusForbidden, "FORBIDDEN", message)
}

func writeAuthzError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
