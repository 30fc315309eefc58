// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package archive

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations.
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates the archive tables and their indexes. All columns
// are defined in the initial CREATE TABLE statements; the schema is small
// enough that versioned migrations would be ceremony without benefit.
func (a *Archive) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range tableCreationQueries() {
		if _, err := a.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("execute schema statement: %s: %w", query, err)
		}
	}

	return nil
}

// tableCreationQueries returns the table and index creation statements.
func tableCreationQueries() []string {
	return []string{
		// One row per applied position fix. The unique constraint makes
		// replayed batches (WAL recovery, overlapping providers) idempotent:
		// the same fix from the same source lands once.
		`CREATE TABLE IF NOT EXISTS positions (
			entity_id   TEXT NOT NULL,
			lat         DOUBLE NOT NULL,
			lon         DOUBLE NOT NULL,
			speed_knots DOUBLE,
			course_deg  DOUBLE,
			heading_deg DOUBLE,
			status      TEXT,
			observed_at TIMESTAMP NOT NULL,
			received_at TIMESTAMP NOT NULL,
			source      TEXT NOT NULL DEFAULT '',
			UNIQUE (entity_id, observed_at, source)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_positions_entity_observed
			ON positions (entity_id, observed_at)`,
		`CREATE INDEX IF NOT EXISTS idx_positions_observed
			ON positions (observed_at)`,

		// One row per alert transition (opened, updated, resolved), an
		// append-only audit trail of every lifecycle step. zone_ids holds
		// the sorted zone list joined with commas.
		`CREATE TABLE IF NOT EXISTS alert_events (
			alert_id    TEXT NOT NULL,
			entity_id   TEXT NOT NULL,
			transition  TEXT NOT NULL,
			hazard_kind TEXT NOT NULL,
			severity    TEXT NOT NULL,
			zone_ids    TEXT NOT NULL DEFAULT '',
			state       TEXT NOT NULL,
			risk_score  DOUBLE NOT NULL,
			opened_at   TIMESTAMP NOT NULL,
			resolved_at TIMESTAMP,
			recorded_at TIMESTAMP NOT NULL,
			UNIQUE (alert_id, transition, recorded_at)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alert_events_entity
			ON alert_events (entity_id, recorded_at)`,
		`CREATE INDEX IF NOT EXISTS idx_alert_events_recorded
			ON alert_events (recorded_at)`,

		// One row per congestion sample per port.
		`CREATE TABLE IF NOT EXISTS congestion_snapshots (
			port_id         TEXT NOT NULL,
			vessels_in_port INTEGER NOT NULL,
			avg_wait_hours  DOUBLE NOT NULL,
			level           TEXT NOT NULL,
			updated_at      TIMESTAMP NOT NULL,
			UNIQUE (port_id, updated_at)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_congestion_port_updated
			ON congestion_snapshots (port_id, updated_at)`,
	}
}
