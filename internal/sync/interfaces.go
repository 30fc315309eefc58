// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package sync

import (
	"context"
	"time"

	"github.com/mhalvorsen/pelorus/internal/models"
)

// Alert transition names, shared by event publishing and metrics labels.
const (
	TransitionOpened   = "opened"
	TransitionUpdated  = "updated"
	TransitionResolved = "resolved"
)

// EventPublisher is the consumer-side contract for the publish sink.
// Implementations live in internal/eventprocessor (NATS, Kafka, the
// WebSocket hub broadcaster, composite fan-out). Publishing is
// fire-and-forget: implementations must never block ingestion, and the
// jobs here log errors without propagating them.
type EventPublisher interface {
	// PublishPositionUpdated announces a new applied position for an entity.
	PublishPositionUpdated(ctx context.Context, entity *models.TrackedEntity) error

	// PublishCongestionUpdated announces a congestion change for a port.
	PublishCongestionUpdated(ctx context.Context, port *models.TrackedEntity) error

	// PublishAlert announces an alert transition (opened/updated/resolved).
	PublishAlert(ctx context.Context, transition string, cond *models.AlertCondition) error
}

// IngestWAL is the optional write-ahead log for fetched position batches.
// Batches are logged before application and confirmed once the sweep that
// carried them completes, so a crash mid-sweep replays the batch on the
// next start. The zero-dependency deployment runs without one.
type IngestWAL interface {
	// WriteBatch durably records a fetched batch and returns its WAL id.
	WriteBatch(ctx context.Context, source string, readings []models.Reading) (uint64, error)

	// Confirm marks a previously written batch as fully applied.
	Confirm(ctx context.Context, id uint64) error
}

// Archiver is the optional long-term store fed by the jobs. Calls are
// buffered enqueues inside internal/archive and must not stall a sweep.
type Archiver interface {
	ArchivePosition(ctx context.Context, obs models.PositionObservation) error
	ArchiveAlert(ctx context.Context, transition string, cond *models.AlertCondition) error
	ArchiveCongestion(ctx context.Context, portID string, c models.Congestion) error

	// PruneBefore removes archived rows older than cutoff, aligned with
	// the in-memory retention sweep. Returns the number of rows removed.
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
