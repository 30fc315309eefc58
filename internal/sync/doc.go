// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

/*
Package sync orchestrates the periodic ingestion jobs that keep Pelorus
current: vessel positions, hazard advisories, port congestion, history
retention, and stale-tracking checks.

Key Components:

  - Manager: owns one independently scheduled job per concern and the
    shared worker pool for per-entity fan-out
  - PositionSource: abstracted AIS provider returning normalized readings;
    HTTP providers exist for the marinesia, aishub, and marinetraffic wire
    dialects plus a deterministic mock for development
  - ChainSource: ordered provider fallback, first healthy source wins
  - BreakerSource: circuit breaker protection around any position source
  - ZoneSource / CongestionSource: hazard advisory feed and port
    congestion inputs (HTTP or derived from tracked positions)

Scheduling model:

Each job ticks on its own interval. A tick is skipped, logged, and counted
when the previous run of the same job is still executing; it is never
queued. One failing entity never aborts a sweep: the failure is logged and
the sweep continues, with the next tick acting as the retry. A storage
failure aborts the current run; the scheduler itself keeps ticking.

Per-entity pipeline order inside position sync:

 1. Entity store upsert (timestamp-gated, stale readings dropped)
 2. History append (gap segmentation, ring-buffer cap)
 3. Proximity evaluation against active hazard zones
 4. Alert reconciliation (open/update/resolve, deduplicated)
 5. Publish position and alert events (fire-and-forget)

Distinct entities are processed in parallel through a bounded pond group;
observations for one entity are always applied in source-time order by a
single worker.
*/
package sync
