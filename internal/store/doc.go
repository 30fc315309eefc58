// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

// Package store holds the current-state side of the pipeline: the entity
// store (vessels and ports) and the hazard-zone registry.
//
// The entity store is the leaf dependency everything above it consults.
// Its single write path, UpsertPosition, is gated by observation
// timestamp: whichever concurrent writer carries the newer source
// timestamp wins, regardless of arrival order. That gate is the safety
// mechanism that lets independent sync jobs touch the same entity
// without coordination.
//
// Entity lifecycle is owned by the admin layer; the pipeline only
// mutates current state and never creates or deletes entities or zones.
package store
