// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package wal

import (
	"context"
	"errors"
	"time"

	"github.com/mhalvorsen/pelorus/internal/models"
)

var (
	// ErrWALNotEnabled is returned by Open in builds compiled without
	// the wal tag.
	ErrWALNotEnabled = errors.New("ingest WAL not enabled (build with -tags wal)")

	// ErrWALClosed is returned when the WAL is used after Close.
	ErrWALClosed = errors.New("wal is closed")

	// ErrEmptyBatch is returned when WriteBatch is called with no readings.
	ErrEmptyBatch = errors.New("batch has no readings")

	// ErrBatchNotFound is returned when a batch ID is not pending.
	ErrBatchNotFound = errors.New("batch not found")

	// ErrBatchIDZero is returned for batch ID zero, which is reserved
	// to mean "no batch".
	ErrBatchIDZero = errors.New("batch id zero is reserved")
)

// BatchEntry is one durably logged ingestion batch. Readings are stored
// verbatim so replay runs the exact payload the provider returned.
type BatchEntry struct {
	// ID is the monotonically increasing batch identifier. Zero is
	// never issued.
	ID uint64 `json:"id"`

	// Source names the provider chain that produced the batch.
	Source string `json:"source"`

	// Readings is the fetched batch, stored before validation so the
	// replayed pipeline makes the same keep-or-skip decisions.
	Readings []models.Reading `json:"readings"`

	// CreatedAt is when the batch was logged.
	CreatedAt time.Time `json:"created_at"`

	// Confirmed reports whether a sweep applied the batch.
	Confirmed bool `json:"confirmed"`

	// ConfirmedAt is when the batch was confirmed.
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
}

// Stats contains WAL counters for monitoring and the status endpoint.
type Stats struct {
	// PendingCount is the number of unconfirmed batches.
	PendingCount int64

	// ConfirmedCount is the number of confirmed batches awaiting
	// compaction.
	ConfirmedCount int64

	// TotalWrites is the number of batches written since open.
	TotalWrites int64

	// TotalConfirms is the number of batches confirmed since open.
	TotalConfirms int64

	// LastCompaction is when the compactor last finished a pass.
	LastCompaction time.Time

	// DBSizeBytes is the estimated on-disk size (LSM plus value log).
	DBSizeBytes int64
}

// Applier applies one recovered batch to the ingestion pipeline.
type Applier interface {
	ApplyBatch(ctx context.Context, source string, readings []models.Reading) error
}

// ApplierFunc adapts a function to the Applier interface.
type ApplierFunc func(ctx context.Context, source string, readings []models.Reading) error

// ApplyBatch implements Applier.
func (f ApplierFunc) ApplyBatch(ctx context.Context, source string, readings []models.Reading) error {
	return f(ctx, source, readings)
}

// ReplayResult summarizes one startup replay pass.
type ReplayResult struct {
	// TotalPending is the number of unconfirmed batches found.
	TotalPending int

	// Replayed is the number of batches applied and confirmed.
	Replayed int

	// Failed is the number of batches whose application failed. They
	// stay pending for the next startup.
	Failed int

	// Expired is the number of batches dropped for age.
	Expired int

	// Errors collects the failures behind the counts above.
	Errors []error

	// Duration is how long the replay took.
	Duration time.Duration
}
