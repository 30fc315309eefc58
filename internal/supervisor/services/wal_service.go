// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

//go:build wal

package services

import (
	"context"
	"fmt"
)

// WALStartStopper matches the WAL compactor's lifecycle without importing
// the wal package.
//
// Satisfied by *wal.Compactor.
type WALStartStopper interface {
	Start(ctx context.Context) error
	Stop()
	IsRunning() bool
}

// WALCompactorService wraps the WAL compactor as a supervised service.
//
// The compactor periodically drops confirmed and expired ingest entries and
// runs BadgerDB value-log GC. The wrapper adapts its Start/Stop lifecycle to
// suture's Serve pattern.
//
// Example usage:
//
//	compactor := wal.NewCompactor(w)
//	tree.AddDataService(services.NewWALCompactorService(compactor))
type WALCompactorService struct {
	compactor WALStartStopper
	name      string
}

// NewWALCompactorService creates a new WAL compactor service wrapper.
func NewWALCompactorService(compactor WALStartStopper) *WALCompactorService {
	return &WALCompactorService{
		compactor: compactor,
		name:      "wal-compactor",
	}
}

// Serve implements suture.Service.
//
// If Start fails the error is returned immediately and suture restarts the
// service under its backoff policy. Stop blocks until the compaction
// goroutine exits.
func (s *WALCompactorService) Serve(ctx context.Context) error {
	if err := s.compactor.Start(ctx); err != nil {
		return fmt.Errorf("WAL compactor start failed: %w", err)
	}

	<-ctx.Done()

	s.compactor.Stop()

	return ctx.Err()
}

// String identifies the service in suture's event log.
func (s *WALCompactorService) String() string {
	return s.name
}
