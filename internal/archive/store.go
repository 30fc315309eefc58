// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package archive

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mhalvorsen/pelorus/internal/logging"
	"github.com/mhalvorsen/pelorus/internal/metrics"
	"github.com/mhalvorsen/pelorus/internal/models"
)

// AlertEvent is one archived alert transition row.
type AlertEvent struct {
	AlertID    string            `json:"alert_id"`
	EntityID   string            `json:"entity_id"`
	Transition string            `json:"transition"`
	HazardKind models.HazardKind `json:"hazard_kind"`
	Severity   models.Severity   `json:"severity"`
	ZoneIDs    []string          `json:"zone_ids,omitempty"`
	State      models.AlertState `json:"state"`
	RiskScore  float64           `json:"risk_score"`
	OpenedAt   time.Time         `json:"opened_at"`
	ResolvedAt *time.Time        `json:"resolved_at,omitempty"`
	RecordedAt time.Time         `json:"recorded_at"`
}

// CongestionSnapshot is one archived congestion sample for a port.
type CongestionSnapshot struct {
	PortID        string                 `json:"port_id"`
	VesselsInPort int                    `json:"vessels_in_port"`
	AvgWaitHours  float64                `json:"avg_wait_hours"`
	Level         models.CongestionLevel `json:"level"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

// Store is the persistence surface the Writer flushes into. *Archive
// implements it; tests substitute a recording fake.
//
// Insert methods return the number of rows actually inserted; rows
// skipped by the unique constraints do not count. A non-nil error means
// the whole batch rolled back.
type Store interface {
	InsertPositions(ctx context.Context, rows []models.PositionObservation) (int, error)
	InsertAlertEvents(ctx context.Context, rows []AlertEvent) (int, error)
	InsertCongestionSnapshots(ctx context.Context, rows []CongestionSnapshot) (int, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// InsertPositions atomically inserts a batch of position observations.
// Duplicate fixes (same entity, source time and source) are skipped.
func (a *Archive) InsertPositions(ctx context.Context, rows []models.PositionObservation) (inserted int, err error) {
	if len(rows) == 0 {
		return 0, nil
	}

	start := time.Now()
	defer func() {
		metrics.RecordArchiveQuery("insert", "positions", time.Since(start), err)
	}()

	tx, err := a.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin positions transaction: %w", err)
	}
	defer rollbackOnError(tx, &err)

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO positions (
		entity_id, lat, lon, speed_knots, course_deg, heading_deg,
		status, observed_at, received_at, source
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT DO NOTHING`)
	if err != nil {
		return 0, fmt.Errorf("prepare positions insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, row := range rows {
		res, execErr := stmt.ExecContext(ctx,
			row.EntityID, row.Lat, row.Lon,
			row.SpeedKnots, row.CourseDeg, row.HeadingDeg,
			string(row.Status), row.ObservedAt, row.ReceivedAt, row.Source,
		)
		if execErr != nil {
			err = fmt.Errorf("insert position %d (entity=%s): %w", i, row.EntityID, execErr)
			return 0, err
		}
		n, raErr := res.RowsAffected()
		if raErr != nil {
			err = fmt.Errorf("rows affected for position %d: %w", i, raErr)
			return 0, err
		}
		if n > 0 {
			inserted++
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit positions: %w", err)
	}
	return inserted, nil
}

// InsertAlertEvents atomically inserts a batch of alert transition rows.
func (a *Archive) InsertAlertEvents(ctx context.Context, rows []AlertEvent) (inserted int, err error) {
	if len(rows) == 0 {
		return 0, nil
	}

	start := time.Now()
	defer func() {
		metrics.RecordArchiveQuery("insert", "alert_events", time.Since(start), err)
	}()

	tx, err := a.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin alert_events transaction: %w", err)
	}
	defer rollbackOnError(tx, &err)

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO alert_events (
		alert_id, entity_id, transition, hazard_kind, severity,
		zone_ids, state, risk_score, opened_at, resolved_at, recorded_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT DO NOTHING`)
	if err != nil {
		return 0, fmt.Errorf("prepare alert_events insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, row := range rows {
		res, execErr := stmt.ExecContext(ctx,
			row.AlertID, row.EntityID, row.Transition,
			string(row.HazardKind), string(row.Severity),
			strings.Join(row.ZoneIDs, ","), string(row.State),
			row.RiskScore, row.OpenedAt, row.ResolvedAt, row.RecordedAt,
		)
		if execErr != nil {
			err = fmt.Errorf("insert alert event %d (alert=%s): %w", i, row.AlertID, execErr)
			return 0, err
		}
		n, raErr := res.RowsAffected()
		if raErr != nil {
			err = fmt.Errorf("rows affected for alert event %d: %w", i, raErr)
			return 0, err
		}
		if n > 0 {
			inserted++
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit alert_events: %w", err)
	}
	return inserted, nil
}

// InsertCongestionSnapshots atomically inserts a batch of congestion rows.
func (a *Archive) InsertCongestionSnapshots(ctx context.Context, rows []CongestionSnapshot) (inserted int, err error) {
	if len(rows) == 0 {
		return 0, nil
	}

	start := time.Now()
	defer func() {
		metrics.RecordArchiveQuery("insert", "congestion_snapshots", time.Since(start), err)
	}()

	tx, err := a.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin congestion_snapshots transaction: %w", err)
	}
	defer rollbackOnError(tx, &err)

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO congestion_snapshots (
		port_id, vessels_in_port, avg_wait_hours, level, updated_at
	) VALUES (?, ?, ?, ?, ?)
	ON CONFLICT DO NOTHING`)
	if err != nil {
		return 0, fmt.Errorf("prepare congestion_snapshots insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, row := range rows {
		res, execErr := stmt.ExecContext(ctx,
			row.PortID, row.VesselsInPort, row.AvgWaitHours,
			string(row.Level), row.UpdatedAt,
		)
		if execErr != nil {
			err = fmt.Errorf("insert congestion snapshot %d (port=%s): %w", i, row.PortID, execErr)
			return 0, err
		}
		n, raErr := res.RowsAffected()
		if raErr != nil {
			err = fmt.Errorf("rows affected for congestion snapshot %d: %w", i, raErr)
			return 0, err
		}
		if n > 0 {
			inserted++
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit congestion_snapshots: %w", err)
	}
	return inserted, nil
}

// DeleteBefore removes rows older than cutoff from every table. Positions
// age by source time, alert rows by when the transition was recorded and
// congestion snapshots by sample time. Returns the total rows removed.
func (a *Archive) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	prunes := []struct {
		table string
		query string
	}{
		{"positions", `DELETE FROM positions WHERE observed_at < ?`},
		{"alert_events", `DELETE FROM alert_events WHERE recorded_at < ?`},
		{"congestion_snapshots", `DELETE FROM congestion_snapshots WHERE updated_at < ?`},
	}

	var total int64
	for _, p := range prunes {
		start := time.Now()
		res, err := a.conn.ExecContext(ctx, p.query, cutoff)
		metrics.RecordArchiveQuery("delete", p.table, time.Since(start), err)
		if err != nil {
			return total, fmt.Errorf("prune %s: %w", p.table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("prune %s rows affected: %w", p.table, err)
		}
		total += n
	}

	return total, nil
}

// rollbackOnError rolls the transaction back when the surrounding
// operation failed. Deferred after BeginTx.
func rollbackOnError(tx interface{ Rollback() error }, err *error) {
	if *err == nil {
		return
	}
	if rbErr := tx.Rollback(); rbErr != nil {
		logging.Error().
			Err(rbErr).
			AnErr("original_error", *err).
			Msg("Archive transaction rollback failed")
	}
}
