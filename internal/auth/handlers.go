// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package auth

import (
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"github.com/mhalvorsen/pelorus/internal/logging"
	"github.com/mhalvorsen/pelorus/internal/metrics"
	"github.com/mhalvorsen/pelorus/internal/validation"
)

// maxLoginBody bounds the login payload; credentials never need more.
const maxLoginBody = 4 << 10

// LoginRequest is the POST /api/v1/auth/login payload.
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=128"`
	Password string `json:"password" validate:"required,max=1024"`
}

// LoginResponse returns the issued token and its expiry.
type LoginResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
}

// Handlers serves the authentication endpoints.
type Handlers struct {
	users  *UserStore
	tokens *TokenManager
}

// NewHandlers builds the login and identity handlers.
func NewHandlers(users *UserStore, tokens *TokenManager) *Handlers {
	return &Handlers{users: users, tokens: tokens}
}

// Login verifies credentials and issues a bearer token.
// POST /api/v1/auth/login
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if h.tokens == nil {
		// Auth mode "none" keeps the endpoint mounted but never issues
		// tokens; every request already runs as the anonymous admin.
		writeAuthError(w, http.StatusServiceUnavailable, "AUTH_DISABLED", "Authentication is disabled on this deployment")
		return
	}

	var req LoginRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxLoginBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAuthError(w, http.StatusBadRequest, "INVALID_REQUEST", "Request body must be JSON with username and password")
		return
	}

	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		writeAuthError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message)
		return
	}

	sub, err := h.users.Verify(req.Username, req.Password)
	if err != nil {
		metrics.RecordLogin("rejected")
		logging.Warn().
			Str("username", req.Username).
			Str("remote", r.RemoteAddr).
			Msg("Login rejected")
		writeAuthError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid username or password")
		return
	}

	token, expiresAt, err := h.tokens.Issue(sub)
	if err != nil {
		logging.Error().Err(err).Str("username", sub.Username).Msg("Token issue failed")
		writeAuthError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Could not issue token")
		return
	}

	metrics.RecordLogin("success")
	logging.Info().
		Str("username", sub.Username).
		Str("role", sub.Role).
		Msg("Login succeeded")

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(LoginResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: expiresAt,
		Username:  sub.Username,
		Role:      sub.Role,
	}); err != nil {
		logging.Error().Err(err).Msg("Failed to encode login response")
	}
}

// Me returns the authenticated caller's identity.
// GET /api/v1/auth/me
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	sub, ok := SubjectFrom(r.Context())
	if !ok {
		writeAuthError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Not authenticated")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{
		"username": sub.Username,
		"role":     sub.Role,
	}); err != nil {
		logging.Error().Err(err).Msg("Failed to encode identity response")
	}
}

// writeAuthError emits the API's JSON error envelope.
func writeAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
