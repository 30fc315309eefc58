// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package alerting

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/mhalvorsen/pelorus/internal/geo"
	"github.com/mhalvorsen/pelorus/internal/logging"
	"github.com/mhalvorsen/pelorus/internal/models"
)

// ErrInvalidEntity is returned when a reconcile names no entity.
var ErrInvalidEntity = errors.New("alerting: entity id required")

// defaultMaxRecentResolved bounds the in-memory resolved history.
const defaultMaxRecentResolved = 1000

// Outcome reports what a reconcile pass changed. At most one field is set;
// an all-nil outcome means the exposure was unchanged and no event is due.
type Outcome struct {
	Opened   *models.AlertCondition
	Updated  *models.AlertCondition
	Resolved *models.AlertCondition
}

// Empty reports whether the pass changed nothing.
func (o Outcome) Empty() bool {
	return o.Opened == nil && o.Updated == nil && o.Resolved == nil
}

// Config wires the reconciler's collaborators.
type Config struct {
	// Policy scores conditions; nil selects DefaultWeightedPolicy.
	Policy RiskPolicy
	// Clock stamps OpenedAt/ResolvedAt; nil selects the real clock.
	Clock clockwork.Clock
	// MaxRecentResolved bounds the retained resolved history; <= 0
	// selects the default of 1000.
	MaxRecentResolved int
}

// Reconciler owns the alert conditions for all entities.
//
// Reconciles for the same (entity, kind) pair are mutually exclusive via a
// keyed lock, so the check-then-act around an open condition is atomic even
// when position readings for one vessel arrive concurrently. Different
// pairs never contend.
type Reconciler struct {
	policy    RiskPolicy
	clock     clockwork.Clock
	maxRecent int

	locks keyedMutex

	mu     sync.RWMutex
	open   map[string]map[models.HazardKind]*models.AlertCondition
	recent []*models.AlertCondition // resolved, oldest first
}

// NewReconciler builds a reconciler, filling unset config with defaults.
func NewReconciler(cfg Config) *Reconciler {
	if cfg.Policy == nil {
		cfg.Policy = DefaultWeightedPolicy()
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.MaxRecentResolved <= 0 {
		cfg.MaxRecentResolved = defaultMaxRecentResolved
	}
	return &Reconciler{
		policy:    cfg.Policy,
		clock:     cfg.Clock,
		maxRecent: cfg.MaxRecentResolved,
		open:      make(map[string]map[models.HazardKind]*models.AlertCondition),
	}
}

// Reconcile folds the entity's current intersections for one hazard kind
// into its alert state.
//
// No open condition and no hits is a no-op. Hits with no open condition
// open one. Hits against an open condition update it only when the zone
// set or the severity actually changes; severity only ever rises while the
// condition is open. No hits against an open condition resolves it. A
// resolved condition is never reused: the next exposure opens a fresh one.
func (r *Reconciler) Reconcile(ctx context.Context, entityID string, kind models.HazardKind, hits []geo.ZoneHit) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	if entityID == "" {
		return Outcome{}, ErrInvalidEntity
	}

	unlock := r.locks.lock(entityID + "/" + string(kind))
	defer unlock()

	cur := r.lookup(entityID, kind)

	if len(hits) == 0 {
		if cur == nil {
			return Outcome{}, nil
		}
		return r.resolve(cur), nil
	}

	zoneIDs, severity := collapse(kind, hits)

	if cur == nil {
		return r.openCondition(entityID, kind, zoneIDs, severity), nil
	}

	severity = models.MaxSeverity(cur.Severity, severity)
	if severity == cur.Severity && equalZoneIDs(cur.ZoneIDs, zoneIDs) {
		return Outcome{}, nil
	}
	return r.update(cur, zoneIDs, severity), nil
}

// ReconcileHits runs a full pass for one entity: every kind present in the
// hits is reconciled, and so is every kind with an open condition that the
// hits no longer cover, which is how conditions resolve when a vessel sails
// clear. Outcomes that changed nothing are omitted.
func (r *Reconciler) ReconcileHits(ctx context.Context, entityID string, hits []geo.ZoneHit) ([]Outcome, error) {
	byKind := make(map[models.HazardKind][]geo.ZoneHit, len(hits))
	for _, h := range hits {
		byKind[h.Kind] = append(byKind[h.Kind], h)
	}

	visit := make(map[models.HazardKind]bool, len(byKind))
	for k := range byKind {
		visit[k] = true
	}
	r.mu.RLock()
	for k := range r.open[entityID] {
		visit[k] = true
	}
	r.mu.RUnlock()

	var outcomes []Outcome
	for _, kind := range models.HazardKinds() {
		if !visit[kind] {
			continue
		}
		out, err := r.Reconcile(ctx, entityID, kind, byKind[kind])
		if err != nil {
			return outcomes, err
		}
		if !out.Empty() {
			outcomes = append(outcomes, out)
		}
	}
	return outcomes, nil
}

// OpenAlerts returns copies of the entity's open conditions, ordered by kind.
func (r *Reconciler) OpenAlerts(entityID string) []*models.AlertCondition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*models.AlertCondition
	for _, kind := range models.HazardKinds() {
		if c := r.open[entityID][kind]; c != nil {
			out = append(out, c.Clone())
		}
	}
	return out
}

// AllOpen returns copies of every open condition, ordered by entity then kind.
func (r *Reconciler) AllOpen() []*models.AlertCondition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.open))
	for id := range r.open {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []*models.AlertCondition
	for _, id := range ids {
		for _, kind := range models.HazardKinds() {
			if c := r.open[id][kind]; c != nil {
				out = append(out, c.Clone())
			}
		}
	}
	return out
}

// RecentResolved returns up to limit recently resolved conditions, newest
// first. limit <= 0 returns all retained.
func (r *Reconciler) RecentResolved(limit int) []*models.AlertCondition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := len(r.recent)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]*models.AlertCondition, 0, n)
	for i := len(r.recent) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, r.recent[i].Clone())
	}
	return out
}

// OpenCount returns the number of open conditions across all entities.
func (r *Reconciler) OpenCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, kinds := range r.open {
		n += len(kinds)
	}
	return n
}

func (r *Reconciler) lookup(entityID string, kind models.HazardKind) *models.AlertCondition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.open[entityID][kind]
}

func (r *Reconciler) openCondition(entityID string, kind models.HazardKind, zoneIDs []string, severity models.Severity) Outcome {
	cond := &models.AlertCondition{
		ID:        uuid.New().String(),
		EntityID:  entityID,
		Kind:      kind,
		Severity:  severity,
		ZoneIDs:   zoneIDs,
		State:     models.AlertOpen,
		OpenedAt:  r.clock.Now().UTC(),
		RiskScore: r.policy.Score(kind, severity, len(zoneIDs)),
	}

	r.mu.Lock()
	if r.open[entityID] == nil {
		r.open[entityID] = make(map[models.HazardKind]*models.AlertCondition)
	}
	r.open[entityID][kind] = cond
	r.mu.Unlock()

	logging.Info().
		Str("alert_id", cond.ID).
		Str("entity_id", entityID).
		Str("kind", string(kind)).
		Str("severity", string(severity)).
		Strs("zone_ids", zoneIDs).
		Float64("risk_score", cond.RiskScore).
		Msg("Alert opened")

	return Outcome{Opened: cond.Clone()}
}

func (r *Reconciler) update(cond *models.AlertCondition, zoneIDs []string, severity models.Severity) Outcome {
	r.mu.Lock()
	cond.ZoneIDs = zoneIDs
	cond.Severity = severity
	cond.RiskScore = r.policy.Score(cond.Kind, severity, len(zoneIDs))
	out := Outcome{Updated: cond.Clone()}
	r.mu.Unlock()

	logging.Info().
		Str("alert_id", cond.ID).
		Str("entity_id", cond.EntityID).
		Str("kind", string(cond.Kind)).
		Str("severity", string(severity)).
		Strs("zone_ids", zoneIDs).
		Msg("Alert updated")

	return out
}

func (r *Reconciler) resolve(cond *models.AlertCondition) Outcome {
	now := r.clock.Now().UTC()

	r.mu.Lock()
	cond.State = models.AlertResolved
	cond.ResolvedAt = &now
	delete(r.open[cond.EntityID], cond.Kind)
	if len(r.open[cond.EntityID]) == 0 {
		delete(r.open, cond.EntityID)
	}
	r.recent = append(r.recent, cond)
	if over := len(r.recent) - r.maxRecent; over > 0 {
		copy(r.recent, r.recent[over:])
		for i := len(r.recent) - over; i < len(r.recent); i++ {
			r.recent[i] = nil
		}
		r.recent = r.recent[:len(r.recent)-over]
	}
	out := Outcome{Resolved: cond.Clone()}
	r.mu.Unlock()

	logging.Info().
		Str("alert_id", cond.ID).
		Str("entity_id", cond.EntityID).
		Str("kind", string(cond.Kind)).
		Time("resolved_at", now).
		Msg("Alert resolved")

	return out
}

// collapse reduces hits of one kind to the sorted unique zone-ID set and
// the peak severity among them.
func collapse(kind models.HazardKind, hits []geo.ZoneHit) ([]string, models.Severity) {
	seen := make(map[string]bool, len(hits))
	ids := make([]string, 0, len(hits))
	var severity models.Severity
	for _, h := range hits {
		if h.Kind != kind || h.ZoneID == "" {
			continue
		}
		// Duplicate zone hits still raise the peak severity.
		severity = models.MaxSeverity(severity, h.Severity)
		if seen[h.ZoneID] {
			continue
		}
		seen[h.ZoneID] = true
		ids = append(ids, h.ZoneID)
	}
	sort.Strings(ids)
	return ids, severity
}

func equalZoneIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// keyedMutex hands out one mutex per key. Entries are never removed: the
// key space is entity x kind, small and stable for a tracked fleet.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
