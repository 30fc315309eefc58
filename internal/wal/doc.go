// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

// Package wal provides a durable write-ahead log for ingestion batches
// using BadgerDB.
//
// Position batches are fetched over the network, applied to in-memory
// stores, and archived asynchronously. A crash mid-sweep would lose the
// fetched readings: providers serve sliding windows, so a refetch after
// restart is not guaranteed to return the same batch. The WAL closes
// that gap by persisting every fetched batch before application and
// confirming it once the sweep has applied it.
//
// # Write path
//
//	fetch batch → WriteBatch (durable) → sweep applies → Confirm
//	                                  ↓ (crash before Confirm)
//	                      batch replayed on next startup
//
// Batch IDs are monotonically increasing uint64 values from a
// persistent Badger sequence. ID zero is never issued; callers treat it
// as "no batch". Keys zero-pad the ID so Badger's lexicographic
// iteration order is write order and replay sees oldest batches first.
//
// # Recovery
//
// On startup, before the sync jobs begin polling:
//
//	result, err := w.ReplayPending(ctx, wal.ApplierFunc(manager.ReplayBatch))
//
// Replay feeds each unconfirmed batch back through the ingestion
// pipeline and confirms it. The pipeline's staleness checks make
// replaying a half-applied batch safe.
//
// # Compaction
//
// Confirmed batches stay on disk until the Compactor removes them on
// its interval, along with pending batches older than EntryTTL. Badger
// value log garbage collection runs at the end of each pass.
//
// # Build tags
//
// The WAL is optional and selected at build time:
//
//	go build -tags wal ./cmd/server    # durable ingest log
//	go build ./cmd/server              # stub, Open returns ErrWALNotEnabled
//
// # Why Badger
//
// Pure Go with no CGO, ACID single-key transactions with optional
// fsync, native TTL, and an LSM design suited to a write-heavy append
// pattern. The archive's DuckDB handle is the wrong shape for this job:
// its write path is tuned for analytical batches, not small synchronous
// appends on the ingest hot path.
package wal
