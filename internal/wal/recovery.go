// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

//go:build wal

package wal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/mhalvorsen/pelorus/internal/logging"
	"github.com/mhalvorsen/pelorus/internal/metrics"
)

// ReplayPending re-applies every unconfirmed batch in write order and
// confirms the ones that land. It runs once at startup, before the sync
// jobs begin polling, so replayed readings never interleave with live
// sweeps. A batch that fails to apply stays pending for the next
// startup; replay never aborts on it.
func (w *BadgerWAL) ReplayPending(ctx context.Context, applier Applier) (*ReplayResult, error) {
	if applier == nil {
		return nil, errors.New("applier cannot be nil")
	}

	start := time.Now()
	result := &ReplayResult{}

	entries, err := w.GetPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("get pending batches: %w", err)
	}

	result.TotalPending = len(entries)
	if result.TotalPending == 0 {
		logging.Info().Msg("WAL replay: no pending batches")
		result.Duration = time.Since(start)
		return result, nil
	}

	logging.Info().Int("pending", result.TotalPending).Msg("WAL replay starting")

	for _, entry := range entries {
		select {
		case <-ctx.Done():
			result.Errors = append(result.Errors, ctx.Err())
			result.Duration = time.Since(start)
			return result, ctx.Err()
		default:
		}

		w.replayEntry(ctx, entry, applier, result)
	}

	result.Duration = time.Since(start)
	metrics.WALReplayed.Add(float64(result.Replayed))

	logging.Info().
		Int("replayed", result.Replayed).
		Int("failed", result.Failed).
		Int("expired", result.Expired).
		Dur("duration", result.Duration).
		Msg("WAL replay complete")
	return result, nil
}

// replayEntry applies one batch and confirms it on success.
func (w *BadgerWAL) replayEntry(ctx context.Context, entry *BatchEntry, applier Applier, result *ReplayResult) {
	if ttl := w.config.EntryTTL; ttl > 0 && time.Since(entry.CreatedAt) > ttl {
		logging.Info().
			Uint64("batch_id", entry.ID).
			Dur("age", time.Since(entry.CreatedAt)).
			Msg("WAL replay: batch expired, dropping")
		if err := w.dropPending(entry.ID); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("drop expired batch %d: %w", entry.ID, err))
		}
		result.Expired++
		return
	}

	if err := applier.ApplyBatch(ctx, entry.Source, entry.Readings); err != nil {
		logging.Warn().Err(err).Uint64("batch_id", entry.ID).Msg("WAL replay: batch application failed")
		result.Failed++
		result.Errors = append(result.Errors, fmt.Errorf("apply batch %d: %w", entry.ID, err))
		return
	}

	if err := w.Confirm(ctx, entry.ID); err != nil {
		if errors.Is(err, ErrBatchNotFound) {
			logging.Debug().Uint64("batch_id", entry.ID).Msg("WAL replay: batch already confirmed")
		} else {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Errorf("confirm batch %d: %w", entry.ID, err))
			return
		}
	}
	result.Replayed++
}

// dropPending removes a pending batch without confirming it.
func (w *BadgerWAL) dropPending(id uint64) error {
	return w.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(pendingKey(id))
	})
}
