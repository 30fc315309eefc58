// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

// Package middleware holds the HTTP middleware shared by every route
// group: request IDs, access logging, Prometheus instrumentation,
// security headers, and the in-process latency monitor backing the
// health endpoint. Everything here is chi-shaped
// (func(http.Handler) http.Handler) so route groups compose it with Use.
//
// Concerns the chi ecosystem already covers well (CORS, rate limiting,
// panic recovery, compression) are wired directly from go-chi packages
// in the api package rather than reimplemented here.
package middleware
