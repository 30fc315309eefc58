// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

// Package auth authenticates API requests.
//
// Two modes exist. Mode "jwt" issues HMAC-SHA256 bearer tokens from
// POST /api/v1/auth/login against bcrypt-verified accounts and requires
// a valid token on every protected route. Mode "none" skips credential
// checks and attaches an anonymous admin subject, for development and
// single-user deployments; config validation refuses it in production.
//
// The package owns WHO the caller is. WHAT the caller may do is the
// authz package's job, keyed on the role this package puts into the
// request context.
package auth
