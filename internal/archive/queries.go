// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package archive

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/mhalvorsen/pelorus/internal/metrics"
	"github.com/mhalvorsen/pelorus/internal/models"
)

// DefaultQueryLimit caps history queries that do not set a limit.
const DefaultQueryLimit = 1000

// TrackQuery bounds a VesselTrack call. Zero Start/End mean unbounded;
// Limit <= 0 applies DefaultQueryLimit. Results come back newest first
// unless OldestFirst is set, matching the in-memory history store.
type TrackQuery struct {
	Start       time.Time
	End         time.Time
	Limit       int
	OldestFirst bool
}

// AlertQuery bounds an AlertHistory call. An empty EntityID matches all
// entities; zero Start/End mean unbounded.
type AlertQuery struct {
	EntityID string
	Start    time.Time
	End      time.Time
	Limit    int
}

// VesselTrack returns archived position fixes for one entity, ordered by
// source time. It serves track requests that reach past the in-memory
// history horizon.
func (a *Archive) VesselTrack(ctx context.Context, entityID string, q TrackQuery) (rows []models.PositionObservation, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordArchiveQuery("select", "positions", time.Since(start), err)
	}()

	query := `SELECT entity_id, lat, lon, speed_knots, course_deg, heading_deg,
		status, observed_at, received_at, source
	FROM positions
	WHERE entity_id = ?`
	args := []interface{}{entityID}

	if !q.Start.IsZero() {
		query += " AND observed_at >= ?"
		args = append(args, q.Start)
	}
	if !q.End.IsZero() {
		query += " AND observed_at <= ?"
		args = append(args, q.End)
	}

	order := "DESC"
	if q.OldestFirst {
		order = "ASC"
	}
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultQueryLimit
	}
	query += fmt.Sprintf(" ORDER BY observed_at %s LIMIT %d", order, limit)

	result, err := a.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query vessel track: %w", err)
	}
	defer func() { _ = result.Close() }()

	for result.Next() {
		var (
			obs    models.PositionObservation
			speed  sql.NullFloat64
			course sql.NullFloat64
			head   sql.NullFloat64
			status sql.NullString
		)
		if err = result.Scan(
			&obs.EntityID, &obs.Lat, &obs.Lon, &speed, &course, &head,
			&status, &obs.ObservedAt, &obs.ReceivedAt, &obs.Source,
		); err != nil {
			return nil, fmt.Errorf("scan vessel track row: %w", err)
		}
		obs.SpeedKnots = nullableFloat(speed)
		obs.CourseDeg = nullableFloat(course)
		obs.HeadingDeg = nullableFloat(head)
		obs.Status = models.VesselStatus(status.String)
		rows = append(rows, obs)
	}
	if err = result.Err(); err != nil {
		return nil, fmt.Errorf("iterate vessel track rows: %w", err)
	}

	return rows, nil
}

// AlertHistory returns archived alert transitions newest first.
func (a *Archive) AlertHistory(ctx context.Context, q AlertQuery) (rows []AlertEvent, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordArchiveQuery("select", "alert_events", time.Since(start), err)
	}()

	query := `SELECT alert_id, entity_id, transition, hazard_kind, severity,
		zone_ids, state, risk_score, opened_at, resolved_at, recorded_at
	FROM alert_events
	WHERE 1 = 1`
	var args []interface{}

	if q.EntityID != "" {
		query += " AND entity_id = ?"
		args = append(args, q.EntityID)
	}
	if !q.Start.IsZero() {
		query += " AND recorded_at >= ?"
		args = append(args, q.Start)
	}
	if !q.End.IsZero() {
		query += " AND recorded_at <= ?"
		args = append(args, q.End)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultQueryLimit
	}
	query += fmt.Sprintf(" ORDER BY recorded_at DESC LIMIT %d", limit)

	result, err := a.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query alert history: %w", err)
	}
	defer func() { _ = result.Close() }()

	for result.Next() {
		var (
			row      AlertEvent
			zones    string
			resolved sql.NullTime
		)
		if err = result.Scan(
			&row.AlertID, &row.EntityID, &row.Transition,
			&row.HazardKind, &row.Severity, &zones, &row.State,
			&row.RiskScore, &row.OpenedAt, &resolved, &row.RecordedAt,
		); err != nil {
			return nil, fmt.Errorf("scan alert history row: %w", err)
		}
		if zones != "" {
			row.ZoneIDs = strings.Split(zones, ",")
		}
		if resolved.Valid {
			t := resolved.Time
			row.ResolvedAt = &t
		}
		rows = append(rows, row)
	}
	if err = result.Err(); err != nil {
		return nil, fmt.Errorf("iterate alert history rows: %w", err)
	}

	return rows, nil
}

// CongestionHistory returns archived congestion snapshots for one port,
// newest first. Limit <= 0 applies DefaultQueryLimit.
func (a *Archive) CongestionHistory(ctx context.Context, portID string, limit int) (rows []CongestionSnapshot, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordArchiveQuery("select", "congestion_snapshots", time.Since(start), err)
	}()

	if limit <= 0 {
		limit = DefaultQueryLimit
	}
	query := fmt.Sprintf(`SELECT port_id, vessels_in_port, avg_wait_hours, level, updated_at
	FROM congestion_snapshots
	WHERE port_id = ?
	ORDER BY updated_at DESC LIMIT %d`, limit)

	result, err := a.conn.QueryContext(ctx, query, portID)
	if err != nil {
		return nil, fmt.Errorf("query congestion history: %w", err)
	}
	defer func() { _ = result.Close() }()

	for result.Next() {
		var row CongestionSnapshot
		if err = result.Scan(
			&row.PortID, &row.VesselsInPort, &row.AvgWaitHours,
			&row.Level, &row.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan congestion history row: %w", err)
		}
		rows = append(rows, row)
	}
	if err = result.Err(); err != nil {
		return nil, fmt.Errorf("iterate congestion history rows: %w", err)
	}

	return rows, nil
}

func nullableFloat(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}
