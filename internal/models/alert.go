// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package models

import "time"

// AlertState is the lifecycle state of an alert condition.
type AlertState string

const (
	AlertOpen     AlertState = "open"
	AlertResolved AlertState = "resolved"
)

// AlertCondition records one continuous exposure episode of an entity to a
// hazard kind. At most one OPEN condition exists per (EntityID, Kind); a
// resolved condition is never reopened; renewed exposure opens a new
// condition with its own ID and OpenedAt.
//
// Severity reflects the peak severity of the episode: it may rise while
// the condition is open but never falls until resolution.
type AlertCondition struct {
	ID       string     `json:"id"`
	EntityID string     `json:"entity_id"`
	Kind     HazardKind `json:"kind"`
	Severity Severity   `json:"severity"`

	// ZoneIDs is the sorted set of zone IDs currently intersecting the
	// entity. Kept sorted so reconciliation can compare sets cheaply.
	ZoneIDs []string `json:"zone_ids"`

	State      AlertState `json:"state"`
	OpenedAt   time.Time  `json:"opened_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`

	// RiskScore is advisory metadata computed by the configured risk
	// policy; the stable alerting contract is Severity.
	RiskScore float64 `json:"risk_score"`
}

// Clone returns a deep copy of the condition.
func (a *AlertCondition) Clone() *AlertCondition {
	if a == nil {
		return nil
	}
	c := *a
	if len(a.ZoneIDs) > 0 {
		c.ZoneIDs = make([]string, len(a.ZoneIDs))
		copy(c.ZoneIDs, a.ZoneIDs)
	}
	if a.ResolvedAt != nil {
		t := *a.ResolvedAt
		c.ResolvedAt = &t
	}
	return &c
}
