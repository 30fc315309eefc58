// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

//go:build wal

package main

import (
	"context"
	"fmt"

	"github.com/mhalvorsen/pelorus/internal/config"
	"github.com/mhalvorsen/pelorus/internal/logging"
	"github.com/mhalvorsen/pelorus/internal/supervisor"
	"github.com/mhalvorsen/pelorus/internal/supervisor/services"
	"github.com/mhalvorsen/pelorus/internal/sync"
	"github.com/mhalvorsen/pelorus/internal/wal"
)

// WALComponents bundles the ingest write-ahead log and its compactor.
type WALComponents struct {
	wal       *wal.BadgerWAL
	compactor *wal.Compactor
}

// InitWAL opens the ingest WAL from configuration. Returns (nil, nil)
// when the WAL is disabled.
func InitWAL(cfg *config.Config) (*WALComponents, error) {
	if !cfg.WAL.Enabled {
		return nil, nil
	}

	walCfg := wal.FromApp(cfg.WAL)
	w, err := wal.Open(&walCfg)
	if err != nil {
		return nil, fmt.Errorf("open ingest WAL: %w", err)
	}

	logging.Info().Str("path", cfg.WAL.Path).Msg("Ingest WAL enabled")

	return &WALComponents{
		wal:       w,
		compactor: wal.NewCompactor(w),
	}, nil
}

// IngestWAL returns the WAL for the sync manager's dependency wiring.
func (c *WALComponents) IngestWAL() sync.IngestWAL {
	return c.wal
}

// Replay re-applies unconfirmed ingest batches through the sync manager.
// It must run before the manager starts so replayed readings cannot
// interleave with live sweeps. Replay failures are logged, not fatal:
// failed batches stay pending for the next start.
func (c *WALComponents) Replay(ctx context.Context, mgr *sync.Manager) {
	result, err := c.wal.ReplayPending(ctx, wal.ApplierFunc(mgr.ReplayBatch))
	if err != nil {
		logging.Error().Err(err).Msg("WAL replay failed")
		return
	}
	if result.TotalPending > 0 {
		logging.Info().
			Int("pending", result.TotalPending).
			Int("replayed", result.Replayed).
			Int("failed", result.Failed).
			Int("expired", result.Expired).
			Msg("WAL replay complete")
	}
}

// AddToSupervisor places the WAL compactor under the data layer of the
// supervision tree.
func (c *WALComponents) AddToSupervisor(tree *supervisor.Tree) {
	tree.AddDataService(services.NewWALCompactorService(c.compactor))
}

// Shutdown closes the WAL. The compactor is stopped by its supervised
// service before the tree hands control back here.
func (c *WALComponents) Shutdown() {
	if err := c.wal.Close(); err != nil {
		logging.Error().Err(err).Msg("Ingest WAL close failed")
	}
}
