// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

//go:build !wal

package main

import (
	"context"

	"github.com/mhalvorsen/pelorus/internal/config"
	"github.com/mhalvorsen/pelorus/internal/logging"
	"github.com/mhalvorsen/pelorus/internal/supervisor"
	"github.com/mhalvorsen/pelorus/internal/sync"
)

// WALComponents is a placeholder in builds without the wal tag.
type WALComponents struct{}

// InitWAL always returns (nil, nil) in builds without the wal tag. It
// warns when the configuration asks for a WAL so the operator knows the
// binary cannot honor it.
func InitWAL(cfg *config.Config) (*WALComponents, error) {
	if cfg.WAL.Enabled {
		logging.Warn().Msg("Ingest WAL is enabled in configuration but this binary was built without WAL support (build tag: wal)")
	}
	return nil, nil
}

// IngestWAL is never called; InitWAL returns nil in these builds.
func (c *WALComponents) IngestWAL() sync.IngestWAL { return nil }

// Replay is never called; InitWAL returns nil in these builds.
func (c *WALComponents) Replay(ctx context.Context, mgr *sync.Manager) {}

// AddToSupervisor is a no-op in builds without the wal tag.
func (c *WALComponents) AddToSupervisor(tree *supervisor.Tree) {}

// Shutdown is a no-op in builds without the wal tag.
func (c *WALComponents) Shutdown() {}
