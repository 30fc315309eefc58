// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

/*
Package metrics provides Prometheus metrics collection and export for observability.

This package instruments the ingestion pipeline, hazard detection, alerting,
sync scheduling, and the serving surfaces using the Prometheus client library.

# Metrics Endpoint

Metrics are exposed at the /metrics endpoint in Prometheus text format:

	curl http://localhost:8421/metrics

# Available Metrics

Ingestion Metrics:
  - readings_processed_total: Position readings by outcome (counter)
    Labels: source, result (applied, stale, rejected)
  - readings_malformed_total: Readings dropped before the pipeline (counter)
    Labels: source, reason
  - ingest_duration_seconds: Per-reading pipeline latency (histogram)
    Labels: source

History Metrics:
  - history_tracks_opened_total / history_tracks_closed_total (counters)
  - history_evictions_total: Observations evicted by the per-track cap (counter)
  - history_observations / history_tracks: Current store contents (gauges)
  - retention_tracks_removed_total: Tracks deleted by the sweep (counter)
  - retention_sweep_duration_seconds (histogram)

Detection and Alert Metrics:
  - detection_duration_seconds: Zone evaluation latency (histogram)
  - zone_hits_total: Zone intersections by hazard kind (counter)
  - alert_transitions_total: Lifecycle transitions (counter)
    Labels: kind, transition (opened, updated, resolved)
  - alerts_open: Currently open alert conditions (gauge)

Sync Job Metrics:
  - sync_job_duration_seconds (histogram), sync_job_errors_total (counter),
    sync_job_last_success_timestamp (gauge), sync_job_overlap_skips_total
    (counter), all labeled by job
  - sync_entities_failed_total: Per-entity failures contained by a job run
    Labels: job

Provider Metrics:
  - provider_requests_total: Upstream feed calls (counter)
    Labels: provider, result (ok, error, rejected)
  - provider_request_duration_seconds (histogram), labeled by provider
  - provider_fallbacks_total: Times the chain advanced past a dead provider

API, WebSocket, and Event Metrics:
  - api_requests_total, api_request_duration_seconds, api_active_requests,
    api_rate_limit_hits_total
  - websocket_connections, websocket_messages_sent_total,
    websocket_messages_dropped_total, websocket_errors_total
  - events_published_total / event_publish_errors_total, labeled by sink

Archive and WAL Metrics:
  - duckdb_query_duration_seconds / duckdb_query_errors_total
  - archive_flush_duration_seconds, archive_batch_size, archive_queue_depth,
    archive_rows_pruned_total
  - wal_writes_total, wal_confirmed_total, wal_replayed_total,
    wal_pending_entries

Circuit Breaker Metrics:
  - circuit_breaker_state: 0=closed, 1=half-open, 2=open (gauge), by name
  - circuit_breaker_requests_total, circuit_breaker_state_transitions_total

# Usage

Metrics register themselves via promauto at package load. Callers either
touch the collectors directly or use the Record helpers, which encapsulate
label conventions and error categorization:

	defer func(start time.Time) {
		metrics.RecordSyncJob("position_sync", time.Since(start), err)
	}(time.Now())

# Cardinality

Label values must stay low-cardinality: job names, provider names, hazard
kinds, and coarse result strings. Entity IDs and zone IDs never appear as
label values.
*/
package metrics
