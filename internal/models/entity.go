// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package models

import "time"

// EntityKind distinguishes the two tracked entity classes.
type EntityKind string

const (
	EntityVessel EntityKind = "vessel"
	EntityPort   EntityKind = "port"
)

// VesselStatus is the operational status of a vessel, following AIS
// navigational status naming.
type VesselStatus string

const (
	StatusUnderWay           VesselStatus = "under_way"
	StatusAtAnchor           VesselStatus = "at_anchor"
	StatusNotUnderCommand    VesselStatus = "not_under_command"
	StatusRestrictedManeuver VesselStatus = "restricted_maneuver"
	StatusConstrainedDraught VesselStatus = "constrained_by_draught"
	StatusMoored             VesselStatus = "moored"
	StatusAground            VesselStatus = "aground"
	StatusFishing            VesselStatus = "fishing"
	StatusSailing            VesselStatus = "sailing"
	StatusUnknown            VesselStatus = "unknown"
)

// NavStatusFromCode maps an AIS navigational status code (ITU-R M.1371)
// to a VesselStatus. Codes outside the mapped set return StatusUnknown.
func NavStatusFromCode(code int) VesselStatus {
	switch code {
	case 0:
		return StatusUnderWay
	case 1:
		return StatusAtAnchor
	case 2:
		return StatusNotUnderCommand
	case 3:
		return StatusRestrictedManeuver
	case 4:
		return StatusConstrainedDraught
	case 5:
		return StatusMoored
	case 6:
		return StatusAground
	case 7:
		return StatusFishing
	case 8:
		return StatusSailing
	default:
		return StatusUnknown
	}
}

// VesselType is a coarse classification derived from the AIS ship type code.
type VesselType string

const (
	TypeCargo     VesselType = "cargo"
	TypeTanker    VesselType = "tanker"
	TypePassenger VesselType = "passenger"
	TypeFishing   VesselType = "fishing"
	TypeTug       VesselType = "tug"
	TypeHighSpeed VesselType = "high_speed"
	TypePleasure  VesselType = "pleasure"
	TypeOther     VesselType = "other"
)

// VesselTypeFromCode maps an AIS ship type code to a VesselType.
// The 10-value blocks follow ITU-R M.1371 table 53.
func VesselTypeFromCode(code int) VesselType {
	switch {
	case code == 30:
		return TypeFishing
	case code == 31 || code == 32 || code == 52:
		return TypeTug
	case code == 36 || code == 37:
		return TypePleasure
	case code >= 40 && code <= 49:
		return TypeHighSpeed
	case code >= 60 && code <= 69:
		return TypePassenger
	case code >= 70 && code <= 79:
		return TypeCargo
	case code >= 80 && code <= 89:
		return TypeTanker
	default:
		return TypeOther
	}
}

// CongestionLevel buckets port congestion for display and alert thresholds.
type CongestionLevel string

const (
	CongestionLow      CongestionLevel = "low"
	CongestionModerate CongestionLevel = "moderate"
	CongestionHigh     CongestionLevel = "high"
	CongestionSevere   CongestionLevel = "severe"
)

// CongestionLevelFor derives a level from vessel count against a port's
// nominal capacity. Capacity <= 0 is treated as unknown and reports low.
func CongestionLevelFor(vessels, capacity int) CongestionLevel {
	if capacity <= 0 {
		return CongestionLow
	}
	ratio := float64(vessels) / float64(capacity)
	switch {
	case ratio >= 1.0:
		return CongestionSevere
	case ratio >= 0.8:
		return CongestionHigh
	case ratio >= 0.5:
		return CongestionModerate
	default:
		return CongestionLow
	}
}

// Congestion is the current congestion snapshot for a port entity.
type Congestion struct {
	VesselsInPort int             `json:"vessels_in_port"`
	AvgWaitHours  float64         `json:"avg_wait_hours"`
	Level         CongestionLevel `json:"level"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// TrackedEntity is the current-state record for one tracked vessel or port.
//
// LastUpdate carries the source timestamp of the most recently APPLIED
// observation, not the arrival time: the store's upsert gate compares
// against it so that a late-arriving older reading never overwrites a
// newer one (last-writer-by-timestamp).
type TrackedEntity struct {
	ID   string     `json:"id"` // vessel MMSI or port UN/LOCODE
	Kind EntityKind `json:"kind"`
	Name string     `json:"name,omitempty"`

	Position   Position     `json:"position"`
	SpeedKnots *float64     `json:"speed_knots,omitempty"`
	CourseDeg  *float64     `json:"course_deg,omitempty"`
	HeadingDeg *float64     `json:"heading_deg,omitempty"`
	Status     VesselStatus `json:"status,omitempty"`
	Type       VesselType   `json:"type,omitempty"`

	Destination string     `json:"destination,omitempty"`
	ETA         *time.Time `json:"eta,omitempty"`

	LastUpdate time.Time `json:"last_update"`
	Source     string    `json:"source,omitempty"`
	Tracked    bool      `json:"tracked"`

	// StaleSince is set by the stale-check job when no observation has been
	// applied for longer than the staleness horizon; cleared on next apply.
	StaleSince *time.Time `json:"stale_since,omitempty"`

	// PortCapacity and Congestion are port-only fields.
	PortCapacity int         `json:"port_capacity,omitempty"`
	Congestion   *Congestion `json:"congestion,omitempty"`
}

// Clone returns a deep copy so store reads never alias store-owned state.
func (e *TrackedEntity) Clone() *TrackedEntity {
	if e == nil {
		return nil
	}
	c := *e
	c.SpeedKnots = clonePtr(e.SpeedKnots)
	c.CourseDeg = clonePtr(e.CourseDeg)
	c.HeadingDeg = clonePtr(e.HeadingDeg)
	if e.ETA != nil {
		t := *e.ETA
		c.ETA = &t
	}
	if e.StaleSince != nil {
		t := *e.StaleSince
		c.StaleSince = &t
	}
	if e.Congestion != nil {
		cg := *e.Congestion
		c.Congestion = &cg
	}
	return &c
}

func clonePtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	f := *v
	return &f
}
