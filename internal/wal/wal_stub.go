// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

//go:build !wal

package wal

import (
	"context"
	"time"

	"github.com/mhalvorsen/pelorus/internal/models"
)

// BadgerWAL is a stub when the ingest WAL is not compiled in.
type BadgerWAL struct{}

// Open returns ErrWALNotEnabled in builds without the wal tag.
func Open(cfg *Config) (*BadgerWAL, error) {
	return nil, ErrWALNotEnabled
}

// OpenForTesting returns ErrWALNotEnabled in builds without the wal tag.
func OpenForTesting(cfg *Config) (*BadgerWAL, error) {
	return nil, ErrWALNotEnabled
}

// WriteBatch always fails in builds without the wal tag.
func (w *BadgerWAL) WriteBatch(ctx context.Context, source string, readings []models.Reading) (uint64, error) {
	return 0, ErrWALNotEnabled
}

// Confirm always fails in builds without the wal tag.
func (w *BadgerWAL) Confirm(ctx context.Context, id uint64) error {
	return ErrWALNotEnabled
}

// GetPending always fails in builds without the wal tag.
func (w *BadgerWAL) GetPending(ctx context.Context) ([]*BatchEntry, error) {
	return nil, ErrWALNotEnabled
}

// ReplayPending always fails in builds without the wal tag.
func (w *BadgerWAL) ReplayPending(ctx context.Context, applier Applier) (*ReplayResult, error) {
	return nil, ErrWALNotEnabled
}

// Stats returns empty stats.
func (w *BadgerWAL) Stats() Stats { return Stats{} }

// RunGC is a no-op stub.
func (w *BadgerWAL) RunGC() error { return nil }

// Close is a no-op stub.
func (w *BadgerWAL) Close() error { return nil }

// Compactor is a stub when the ingest WAL is not compiled in.
type Compactor struct{}

// NewCompactor returns a compactor that does nothing.
func NewCompactor(w *BadgerWAL) *Compactor { return &Compactor{} }

// Start is a no-op stub.
func (c *Compactor) Start(ctx context.Context) error { return nil }

// Stop is a no-op stub.
func (c *Compactor) Stop() {}

// IsRunning always reports false.
func (c *Compactor) IsRunning() bool { return false }

// RunNow is a no-op stub.
func (c *Compactor) RunNow() error { return nil }

// Stats returns empty compaction stats.
func (c *Compactor) Stats() CompactorStats { return CompactorStats{} }

// CompactorStats describes the most recent compaction pass (stub).
type CompactorStats struct {
	LastRun     time.Time
	LastRemoved int64
}
