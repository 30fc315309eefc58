// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package services

import (
	"context"
	"fmt"
)

// StartStopManager matches the sync manager's lifecycle so the wrapper can
// adapt it to suture's Serve pattern without importing the sync package.
//
// Satisfied by *sync.Manager.
type StartStopManager interface {
	Start(ctx context.Context) error
	Stop() error
}

// SyncService wraps the sync manager as a supervised service.
//
// The manager runs its scheduled jobs on internal goroutines, so the wrapper
// only orchestrates the lifecycle: Start, block on the context, Stop.
type SyncService struct {
	manager StartStopManager
	name    string
}

// NewSyncService creates a new sync service wrapper.
//
// Example usage:
//
//	mgr := sync.NewManager(deps)
//	tree.AddMessagingService(services.NewSyncService(mgr))
func NewSyncService(manager StartStopManager) *SyncService {
	return &SyncService{
		manager: manager,
		name:    "sync-manager",
	}
}

// Serve implements suture.Service.
//
// If Start fails the error is returned immediately and suture restarts the
// service under its backoff policy. Stop blocks until the manager's job
// goroutines have drained.
func (s *SyncService) Serve(ctx context.Context) error {
	if err := s.manager.Start(ctx); err != nil {
		return fmt.Errorf("sync manager start failed: %w", err)
	}

	<-ctx.Done()

	if err := s.manager.Stop(); err != nil {
		return fmt.Errorf("sync manager stop failed: %w", err)
	}

	return ctx.Err()
}

// String identifies the service in suture's event log.
func (s *SyncService) String() string {
	return s.name
}
