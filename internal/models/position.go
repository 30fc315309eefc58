// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package models

import (
	"errors"
	"time"
)

// Position is a WGS84 coordinate pair in decimal degrees.
type Position struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the coordinates are inside the WGS84 envelope.
func (p Position) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// PositionObservation is one immutable position fix for one entity.
// ObservedAt is source time, ReceivedAt is ingest time; the two are kept
// separate so that source lag stays visible and the history store can
// order strictly by source time.
type PositionObservation struct {
	EntityID   string       `json:"entity_id"`
	Lat        float64      `json:"lat"`
	Lon        float64      `json:"lon"`
	SpeedKnots *float64     `json:"speed_knots,omitempty"`
	CourseDeg  *float64     `json:"course_deg,omitempty"`
	HeadingDeg *float64     `json:"heading_deg,omitempty"`
	Status     VesselStatus `json:"status,omitempty"`
	ObservedAt time.Time    `json:"observed_at"`
	ReceivedAt time.Time    `json:"received_at"`
	Source     string       `json:"source,omitempty"`
}

// Position returns the observation's coordinates.
func (o PositionObservation) Position() Position {
	return Position{Lat: o.Lat, Lon: o.Lon}
}

// Reading is the normalized shape every external position source must
// produce. Provider-specific field names never cross this boundary.
type Reading struct {
	SourceEntityKey string       `json:"source_entity_key"` // provider's entity identifier (MMSI for AIS feeds)
	Name            string       `json:"name,omitempty"`
	Lat             float64      `json:"lat"`
	Lon             float64      `json:"lon"`
	SpeedKnots      *float64     `json:"speed_knots,omitempty"`
	CourseDeg       *float64     `json:"course_deg,omitempty"`
	HeadingDeg      *float64     `json:"heading_deg,omitempty"`
	Status          VesselStatus `json:"status,omitempty"`
	ObservedAt      time.Time    `json:"observed_at"`
	Source          string       `json:"source"`
}

// Reading validation errors. A failed reading is skipped and logged by the
// ingestion job; it never aborts the batch.
var (
	ErrReadingNoKey       = errors.New("reading has no entity key")
	ErrReadingBadCoords   = errors.New("reading coordinates out of range")
	ErrReadingNoTimestamp = errors.New("reading has no observation timestamp")
)

// Validate checks the required reading fields (key, coordinates, timestamp).
func (r Reading) Validate() error {
	if r.SourceEntityKey == "" {
		return ErrReadingNoKey
	}
	if !(Position{Lat: r.Lat, Lon: r.Lon}).Valid() {
		return ErrReadingBadCoords
	}
	if r.ObservedAt.IsZero() {
		return ErrReadingNoTimestamp
	}
	return nil
}

// Observation converts a validated reading into a PositionObservation for
// the given entity, stamping receivedAt as ingest time.
func (r Reading) Observation(entityID string, receivedAt time.Time) PositionObservation {
	return PositionObservation{
		EntityID:   entityID,
		Lat:        r.Lat,
		Lon:        r.Lon,
		SpeedKnots: r.SpeedKnots,
		CourseDeg:  r.CourseDeg,
		HeadingDeg: r.HeadingDeg,
		Status:     r.Status,
		ObservedAt: r.ObservedAt,
		ReceivedAt: receivedAt,
		Source:     r.Source,
	}
}

// CongestionReading is the normalized congestion sample for one port.
type CongestionReading struct {
	PortID        string    `json:"port_id"`
	VesselsInPort int       `json:"vessels_in_port"`
	AvgWaitHours  float64   `json:"avg_wait_hours"`
	ObservedAt    time.Time `json:"observed_at"`
	Source        string    `json:"source"`
}
