// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

// Package authz decides what an authenticated caller may do. It wraps a
// Casbin RBAC enforcer behind a single question: may this role perform
// this action on this path?
//
// Three roles exist. Analysts read everything, operators additionally
// trigger sync jobs, admins do everything including zone management. The
// model and policy ship embedded; deployments that need different rules
// point security.casbin.model_path and policy_path at their own files,
// which are then watched and hot-reloaded.
//
// The auth package establishes WHO the caller is and stores a Subject on
// the request context. Middleware here reads that Subject, derives the
// object from the URL path and the action from the HTTP method, and
// rejects with 403 when the role's policy does not allow the pair.
package authz
