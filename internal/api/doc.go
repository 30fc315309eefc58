// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

// Package api exposes the tracking pipeline over HTTP.
//
// The surface is a chi-routed JSON API: read endpoints for vessels,
// ports, hazard zones, and alerts; zone administration; sync job status
// and manual triggers; a login endpoint issuing bearer tokens; the
// websocket upgrade for live updates; and the Prometheus scrape
// endpoint. Track and history endpoints merge the in-memory history
// store with the DuckDB archive so queries can reach past the
// retention horizon.
//
// Cross-cutting HTTP concerns come from the chi ecosystem (go-chi/cors,
// go-chi/httprate, chi middleware for RealIP/Recoverer/Compress) plus
// the internal middleware package (request IDs, access logging,
// Prometheus labels, security headers). Authentication and
// authorization are the auth and authz packages, wired per route group.
//
// Error responses share one envelope:
//
//	{"error": {"code": "NOT_FOUND", "message": "..."}}
//
// with optional details for validation failures.
package api
