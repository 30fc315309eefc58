// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mhalvorsen/pelorus/internal/auth"
	"github.com/mhalvorsen/pelorus/internal/authz"
	"github.com/mhalvorsen/pelorus/internal/middleware"
)

// Router assembles the HTTP surface: handlers, auth, authorization,
// and the per-group middleware stacks.
type Router struct {
	handler *Handler
	login   *auth.Handlers
	authn   *auth.Middleware
	authz   *authz.Middleware
	chimw   *ChiMiddleware
}

// NewRouter wires the route table from its parts. Setup must be called
// to obtain the servable handler.
func NewRouter(handler *Handler, login *auth.Handlers, authn *auth.Middleware, authorizer *authz.Middleware) *Router {
	return &Router{
		handler: handler,
		login:   login,
		authn:   authn,
		authz:   authorizer,
		chimw:   NewChiMiddleware(handler.cfg.Security),
	}
}

// Setup builds the chi route tree.
//
// Middleware ordering inside each group is deliberate: rate limiting
// first so floods are cut before any work, then headers and metrics,
// then authentication, then authorization. CORS sits on the global
// stack because OPTIONS preflight must resolve before auth.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()
	cfg := router.handler.cfg

	// ========================
	// Global Middleware Stack
	// ========================
	r.Use(middleware.RequestID)
	if len(cfg.Security.TrustedProxies) > 0 {
		// Only honor X-Forwarded-For when a proxy we control sets it.
		// Without this guard a client could spoof its rate-limit key.
		r.Use(chimiddleware.RealIP)
	}
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestLogger)
	r.Use(router.chimw.CORS())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, codeNotFound, "Resource not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "Method not allowed")
	})

	// ========================
	// Health Endpoints
	// ========================
	// Unauthenticated so load balancers and uptime monitors can probe
	// without credentials. The permissive tier still caps abuse.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chimw.RateLimitTier(TierHealth))
		r.Use(middleware.SecurityHeaders)
		r.Use(chimiddleware.Compress(5))
		r.Get("/", router.handler.Health)
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	// ========================
	// Authentication Endpoints
	// ========================
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(middleware.SecurityHeaders)
		r.Use(middleware.PrometheusMetrics)

		// Login gets the strictest tier to blunt credential stuffing.
		r.With(router.chimw.RateLimitTier(TierLogin)).Post("/login", router.login.Login)

		r.Group(func(r chi.Router) {
			r.Use(router.chimw.RateLimit())
			r.Use(router.authn.Authenticate)
			r.Get("/me", router.login.Me)
		})
	})

	// ========================
	// Data Endpoints
	// ========================
	// Everything under here requires authentication and a role that the
	// policy grants for the method. Responses are JSON and compress well.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chimw.RateLimit())
		r.Use(middleware.SecurityHeaders)
		r.Use(middleware.PrometheusMetrics)
		r.Use(router.handler.latency.Middleware)
		r.Use(chimiddleware.Compress(5))
		r.Use(router.authn.Authenticate)
		r.Use(router.authz.Authorize)

		r.Get("/vessels", router.handler.Vessels)
		r.Get("/vessels/{id}", router.handler.VesselByID)
		r.Get("/vessels/{id}/track", router.handler.VesselTrack)

		r.Get("/ports", router.handler.Ports)
		r.Get("/ports/{id}", router.handler.PortByID)
		r.Get("/ports/{id}/congestion", router.handler.PortCongestion)

		r.Get("/zones", router.handler.Zones)
		r.Post("/zones", router.handler.ZoneCreate)
		r.Get("/zones/{id}", router.handler.ZoneByID)
		r.Delete("/zones/{id}", router.handler.ZoneDelete)

		r.Get("/alerts", router.handler.Alerts)
		r.Get("/alerts/history", router.handler.AlertHistory)

		r.Get("/sync/status", router.handler.SyncStatus)
		r.With(router.chimw.RateLimitTier(TierTrigger)).Post("/sync/trigger/{job}", router.handler.SyncTrigger)
	})

	// ========================
	// WebSocket Endpoint
	// ========================
	// No compression middleware here: the connection is hijacked on
	// upgrade and per-message deflate is negotiated by the client.
	r.Route("/ws", func(r chi.Router) {
		r.Use(router.chimw.RateLimitTier(TierWS))
		r.Use(router.authn.Authenticate)
		r.Use(router.authz.Authorize)
		r.Get("/", router.handler.WebSocket)
	})

	// ========================
	// Prometheus Metrics
	// ========================
	r.Handle("/metrics", promhttp.Handler())

	return r
}
