// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/mhalvorsen/pelorus/internal/config"
	"github.com/mhalvorsen/pelorus/internal/logging"
	"github.com/mhalvorsen/pelorus/internal/metrics"
)

// RateLimitTier names one rate-limit bucket. The name doubles as the
// endpoint label on the rate-limit metric, so tiers stay few and fixed.
type RateLimitTier struct {
	Name     string
	Requests int
	Window   time.Duration
}

// Fixed tiers for endpoints whose limits should not follow the general
// API setting. Login is strict against credential stuffing; triggers
// guard the scheduler; health stays permissive for monitors that poll
// every few seconds.
var (
	TierLogin   = RateLimitTier{Name: "login", Requests: 5, Window: 5 * time.Minute}
	TierTrigger = RateLimitTier{Name: "trigger", Requests: 10, Window: time.Minute}
	TierHealth  = RateLimitTier{Name: "health", Requests: 1000, Window: time.Minute}
	TierWS      = RateLimitTier{Name: "ws", Requests: 30, Window: time.Minute}
)

// ChiMiddleware builds the cross-cutting handlers wired per route
// group: go-chi/cors for preflight and go-chi/httprate for per-IP
// limiting, with the default tier taken from security config.
type ChiMiddleware struct {
	cors        func(http.Handler) http.Handler
	defaultTier RateLimitTier
	disabled    bool
}

// NewChiMiddleware derives the middleware set from security settings.
// An empty CORS origin list allows no cross-origin browser calls, which
// is the safe default for a fresh deployment.
func NewChiMiddleware(sec config.SecurityConfig) *ChiMiddleware {
	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins: sec.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         86400,
	})

	window := sec.RateLimitWindow
	if window <= 0 {
		window = time.Minute
	}
	reqs := sec.RateLimitReqs
	if reqs <= 0 {
		reqs = 100
	}

	return &ChiMiddleware{
		cors:        corsHandler,
		defaultTier: RateLimitTier{Name: "default", Requests: reqs, Window: window},
		disabled:    sec.RateLimitDisabled,
	}
}

// CORS returns the preflight-aware CORS handler. It is installed
// globally so OPTIONS requests resolve before any auth check.
func (m *ChiMiddleware) CORS() func(http.Handler) http.Handler {
	return m.cors
}

// RateLimit returns the per-IP limiter for the general API tier.
func (m *ChiMiddleware) RateLimit() func(http.Handler) http.Handler {
	return m.RateLimitTier(m.defaultTier)
}

// RateLimitTier returns a per-IP limiter for the given tier, or a
// pass-through when limiting is disabled in config.
func (m *ChiMiddleware) RateLimitTier(tier RateLimitTier) func(http.Handler) http.Handler {
	if m.disabled {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return httprate.Limit(
		tier.Requests,
		tier.Window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(rateLimited(tier.Name)),
	)
}

// rateLimited handles a rejected request: count it under the tier
// label, log the offender, and answer with the shared envelope.
func rateLimited(tier string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metrics.APIRateLimitHits.WithLabelValues(tier).Inc()
		logging.Warn().
			Str("tier", tier).
			Str("path", r.URL.Path).
			Str("remote", r.RemoteAddr).
			Msg("Rate limit exceeded")
		respondError(w, http.StatusTooManyRequests, codeTooManyRequests, "Rate limit exceeded, retry later")
	}
}
