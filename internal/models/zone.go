// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package models

import "time"

// HazardKind classifies a hazard zone. One open alert condition exists per
// (entity, kind) pair at a time, so the kind set is deliberately coarse.
type HazardKind string

const (
	HazardStorm      HazardKind = "storm"
	HazardPiracy     HazardKind = "piracy"
	HazardRestricted HazardKind = "restricted"
	HazardAccident   HazardKind = "accident"
)

// HazardKinds lists all kinds in a stable order, used by reconciliation
// sweeps that must consider kinds with no current intersections.
func HazardKinds() []HazardKind {
	return []HazardKind{HazardStorm, HazardPiracy, HazardRestricted, HazardAccident}
}

// Severity is the ordered severity scale for hazard zones and alerts.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank returns the ordering value of a severity; unknown values rank lowest.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// MaxSeverity returns the higher-ranked of two severities.
func MaxSeverity(a, b Severity) Severity {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// HazardZone is a geofenced region with a kind and severity. Geometry is
// either a polygon ring (implicitly closed: the last vertex connects back
// to the first) or a center+radius circle; a zone with a valid polygon
// uses the polygon and ignores any circle fields.
type HazardZone struct {
	ID       string     `json:"id"`
	Name     string     `json:"name,omitempty"`
	Kind     HazardKind `json:"kind"`
	Severity Severity   `json:"severity"`

	Active     bool       `json:"active"`
	ValidFrom  *time.Time `json:"valid_from,omitempty"`
	ValidUntil *time.Time `json:"valid_until,omitempty"`

	Polygon  []Position `json:"polygon,omitempty"`
	Center   *Position  `json:"center,omitempty"`
	RadiusKM float64    `json:"radius_km,omitempty"`

	// Source is empty for admin-created zones; hazard-sync stamps its feed
	// tag here and replaces only zones carrying its own tag.
	Source string `json:"source,omitempty"`
}

// IsPolygon reports whether the zone uses polygon geometry.
func (z *HazardZone) IsPolygon() bool {
	return len(z.Polygon) >= 3
}

// IsCircle reports whether the zone uses center+radius geometry.
func (z *HazardZone) IsCircle() bool {
	return !z.IsPolygon() && z.Center != nil && z.RadiusKM > 0
}

// InEffect reports whether the zone is active and inside its validity
// window at the given time. A nil window edge is unbounded on that side.
func (z *HazardZone) InEffect(at time.Time) bool {
	if !z.Active {
		return false
	}
	if z.ValidFrom != nil && at.Before(*z.ValidFrom) {
		return false
	}
	if z.ValidUntil != nil && at.After(*z.ValidUntil) {
		return false
	}
	return true
}

// Clone returns a deep copy of the zone.
func (z *HazardZone) Clone() *HazardZone {
	if z == nil {
		return nil
	}
	c := *z
	if len(z.Polygon) > 0 {
		c.Polygon = make([]Position, len(z.Polygon))
		copy(c.Polygon, z.Polygon)
	}
	if z.Center != nil {
		p := *z.Center
		c.Center = &p
	}
	if z.ValidFrom != nil {
		t := *z.ValidFrom
		c.ValidFrom = &t
	}
	if z.ValidUntil != nil {
		t := *z.ValidUntil
		c.ValidUntil = &t
	}
	return &c
}
