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

	"github.com/mhalvorsen/pelorus/internal/models"
)

var (
	// ErrInvalidZone rejects zones without an ID, kind, or usable geometry.
	ErrInvalidZone = errors.New("zone must have id, kind, and polygon or circle geometry")
)

// ZoneRegistry holds hazard-zone definitions. Admin-created zones carry an
// empty Source and are only ever touched through Put/Remove; hazard-sync
// stamps zones with its feed tag and swaps that tag's zones wholesale each
// sweep, so a feed dropping a zone retires it without disturbing anything
// admin-owned.
type ZoneRegistry struct {
	mu    sync.RWMutex
	zones map[string]*models.HazardZone
}

// NewZoneRegistry creates an empty registry.
func NewZoneRegistry() *ZoneRegistry {
	return &ZoneRegistry{zones: make(map[string]*models.HazardZone)}
}

// Put registers or replaces one zone.
func (r *ZoneRegistry) Put(_ context.Context, z *models.HazardZone) error {
	if z == nil || z.ID == "" || z.Kind == "" || (!z.IsPolygon() && !z.IsCircle()) {
		return ErrInvalidZone
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.zones[z.ID] = z.Clone()
	return nil
}

// Get returns a copy of one zone.
func (r *ZoneRegistry) Get(_ context.Context, id string) (*models.HazardZone, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	z, ok := r.zones[id]
	if !ok {
		return nil, false
	}
	return z.Clone(), true
}

// Remove deletes one zone, returning whether it existed.
func (r *ZoneRegistry) Remove(_ context.Context, id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.zones[id]
	delete(r.zones, id)
	return ok
}

// ReplaceSource atomically replaces every zone carrying the given source
// tag with the new set. Zones with other tags and admin zones (empty tag)
// are untouched. Invalid zones in the new set are skipped and counted in
// the returned skip count.
func (r *ZoneRegistry) ReplaceSource(_ context.Context, source string, zones []*models.HazardZone) (applied, skipped int) {
	if source == "" {
		return 0, len(zones)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, z := range r.zones {
		if z.Source == source {
			delete(r.zones, id)
		}
	}
	for _, z := range zones {
		if z == nil || z.ID == "" || z.Kind == "" || (!z.IsPolygon() && !z.IsCircle()) {
			skipped++
			continue
		}
		c := z.Clone()
		c.Source = source
		r.zones[c.ID] = c
		applied++
	}
	return applied, skipped
}

// Active returns copies of the zones in effect at the given time, sorted
// by ID for stable evaluation order.
func (r *ZoneRegistry) Active(_ context.Context, at time.Time) []*models.HazardZone {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.HazardZone, 0, len(r.zones))
	for _, z := range r.zones {
		if z.InEffect(at) {
			out = append(out, z.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// All returns copies of every zone regardless of effect, sorted by ID.
func (r *ZoneRegistry) All(_ context.Context) []*models.HazardZone {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.HazardZone, 0, len(r.zones))
	for _, z := range r.zones {
		out = append(out, z.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len reports the number of registered zones.
func (r *ZoneRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.zones)
}
