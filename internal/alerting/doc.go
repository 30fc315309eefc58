// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

// Package alerting maintains alert conditions by reconciling the zones an
// entity currently intersects against its open alerts.
//
// Each (entity, hazard kind) pair holds at most one open condition. A
// reconcile pass opens a condition on first exposure, updates it only when
// the zone set or severity actually changes, and resolves it when the
// exposure ends. Severity ratchets up while a condition is open; renewed
// exposure after resolution is a new episode with a new identity. Unchanged
// exposure produces no outcome at all, which is what keeps the alert stream
// deduplicated at steady state.
//
// The numeric risk score attached to each condition is advisory and comes
// from a pluggable RiskPolicy; the stable contract is the severity field.
package alerting
