// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

// Package history is the bounded per-entity position history store.
//
// Observations group into tracks: contiguous runs bounded by a
// configurable maximum gap, so one track reads as one voyage. Within a
// track timestamps never decrease, each track is capped at a maximum
// observation count with ring-buffer eviction of the oldest fixes, and a
// periodic sweep deletes closed tracks that have aged past the retention
// horizon.
//
// Appends and the retention sweep synchronize per entity, never globally:
// a sweep touching one vessel's tracks cannot stall appends for another.
package history
