// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

// Package archive persists position observations, alert transitions and
// congestion snapshots to DuckDB for retention beyond the in-memory
// history horizon.
//
// Two halves make up the package:
//
//   - Archive owns the DuckDB connection, the schema (positions,
//     alert_events, congestion_snapshots) and the historical queries the
//     API serves when a track request reaches past the in-memory store.
//   - Writer buffers incoming rows and flushes them in batches, on a
//     size threshold or a timer. The sync jobs enqueue through it, so an
//     archive stall never blocks a sweep: enqueues are buffer appends,
//     flushes run on detached contexts, and a saturated buffer drops
//     rows instead of applying backpressure.
//
// Inserts are transactional per batch with ON CONFLICT DO NOTHING, so
// replayed batches (WAL recovery, provider overlap) land exactly once.
// PruneBefore removes rows past the retention cutoff in lockstep with
// the in-memory retention sweep.
package archive
