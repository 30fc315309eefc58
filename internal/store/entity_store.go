// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/mhalvorsen/pelorus/internal/logging"
	"github.com/mhalvorsen/pelorus/internal/models"
)

var (
	// ErrClosed is returned once the store has been shut down. Jobs treat
	// it as a storage failure and abort the current run.
	ErrClosed = errors.New("entity store is closed")

	// ErrUnknownEntity is returned for writes against an entity the admin
	// layer has not registered. The pipeline never creates entities, so
	// callers skip the reading and move on.
	ErrUnknownEntity = errors.New("unknown entity")

	// ErrInvalidEntity rejects admin writes with no ID or kind.
	ErrInvalidEntity = errors.New("entity must have id and kind")
)

// EntityStore holds the current state of all tracked entities.
type EntityStore struct {
	mu       sync.RWMutex
	entities map[string]*models.TrackedEntity
	closed   bool
}

// NewEntityStore creates an empty entity store.
func NewEntityStore() *EntityStore {
	return &EntityStore{entities: make(map[string]*models.TrackedEntity)}
}

// Get returns a copy of the entity's current state.
func (s *EntityStore) Get(_ context.Context, entityID string) (*models.TrackedEntity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[entityID]
	if !ok {
		return nil, false
	}
	return e.Clone(), true
}

// Put registers or replaces an entity record. This is the admin-layer
// write path; ingestion jobs never call it.
func (s *EntityStore) Put(_ context.Context, e *models.TrackedEntity) error {
	if e == nil || e.ID == "" || e.Kind == "" {
		return ErrInvalidEntity
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.entities[e.ID] = e.Clone()
	return nil
}

// UpsertPosition applies the observation to the entity's current state iff
// the observation is not older than the state already present
// (obs.ObservedAt >= entity.LastUpdate). A stale observation is dropped
// and reported as applied=false; that is a normal concurrency outcome,
// not an error.
func (s *EntityStore) UpsertPosition(_ context.Context, entityID string, obs models.PositionObservation) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}
	e, ok := s.entities[entityID]
	if !ok {
		return false, ErrUnknownEntity
	}

	if obs.ObservedAt.Before(e.LastUpdate) {
		logging.Debug().
			Str("entity", entityID).
			Time("observed_at", obs.ObservedAt).
			Time("last_update", e.LastUpdate).
			Msg("Stale observation dropped")
		return false, nil
	}

	e.Position = models.Position{Lat: obs.Lat, Lon: obs.Lon}
	e.SpeedKnots = obs.SpeedKnots
	e.CourseDeg = obs.CourseDeg
	e.HeadingDeg = obs.HeadingDeg
	if obs.Status != "" {
		e.Status = obs.Status
	}
	e.LastUpdate = obs.ObservedAt
	if obs.Source != "" {
		e.Source = obs.Source
	}
	e.StaleSince = nil
	return true, nil
}

// UpdateCongestion applies a congestion snapshot to a port entity, gated
// by snapshot time the same way positions are.
func (s *EntityStore) UpdateCongestion(_ context.Context, portID string, c models.Congestion) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}
	e, ok := s.entities[portID]
	if !ok {
		return false, ErrUnknownEntity
	}
	if e.Congestion != nil && c.UpdatedAt.Before(e.Congestion.UpdatedAt) {
		logging.Debug().Str("port", portID).Msg("Stale congestion snapshot dropped")
		return false, nil
	}
	snap := c
	e.Congestion = &snap
	return true, nil
}

// SetStale flags an entity as stale. Returns true when the flag changed;
// an entity already flagged reports false so the stale-check job does not
// re-announce it every sweep.
func (s *EntityStore) SetStale(_ context.Context, entityID string, since time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}
	e, ok := s.entities[entityID]
	if !ok {
		return false, ErrUnknownEntity
	}
	if e.StaleSince != nil {
		return false, nil
	}
	t := since
	e.StaleSince = &t
	return true, nil
}

// List returns copies of all entities, sorted by ID for stable output.
func (s *EntityStore) List(_ context.Context) []*models.TrackedEntity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.TrackedEntity, 0, len(s.entities))
	for _, e := range s.entities {
		out = append(out, e.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ListKind returns copies of all entities of one kind, sorted by ID.
func (s *EntityStore) ListKind(ctx context.Context, kind models.EntityKind) []*models.TrackedEntity {
	all := s.List(ctx)
	out := all[:0]
	for _, e := range all {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// ListTracked returns copies of tracked entities of one kind; this is the
// sweep set the ingestion jobs iterate.
func (s *EntityStore) ListTracked(ctx context.Context, kind models.EntityKind) []*models.TrackedEntity {
	all := s.ListKind(ctx, kind)
	out := all[:0]
	for _, e := range all {
		if e.Tracked {
			out = append(out, e)
		}
	}
	return out
}

// ResolveSourceKey maps a source entity key to a registered entity ID.
// Vessels key by MMSI and ports by UN/LOCODE, both of which are the
// entity ID itself, so today this is an existence check kept behind one
// name in case key translation ever grows.
func (s *EntityStore) ResolveSourceKey(_ context.Context, key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entities[key]
	return key, ok
}

// Len reports the number of registered entities.
func (s *EntityStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entities)
}

// Close marks the store unavailable. Subsequent writes fail with
// ErrClosed; reads keep serving the last state so shutdown logging and
// health endpoints stay functional.
func (s *EntityStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}
