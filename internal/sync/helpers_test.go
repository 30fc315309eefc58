// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package sync

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mhalvorsen/pelorus/internal/alerting"
	"github.com/mhalvorsen/pelorus/internal/config"
	"github.com/mhalvorsen/pelorus/internal/history"
	"github.com/mhalvorsen/pelorus/internal/models"
	"github.com/mhalvorsen/pelorus/internal/store"
)

var testBase = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

// newTestConfig returns a config with short intervals. Tests drive jobs
// by calling their run functions directly, so the intervals only matter
// for the few scheduler tests that start the ticker loops.
func newTestConfig() *config.Config {
	return &config.Config{
		Providers: config.ProvidersConfig{
			PollInterval:   time.Minute,
			Workers:        2,
			RequestTimeout: 5 * time.Second,
			RateLimit:      100,
			RateBurst:      100,
		},
		HazardFeed: config.HazardFeedConfig{
			Interval:        10 * time.Minute,
			SourceTag:       "hazard_feed",
			DefaultRadiusKM: 50,
		},
		Congestion: config.CongestionConfig{
			Mode:     "derived",
			Interval: 5 * time.Minute,
			CacheTTL: 4 * time.Minute,
			RadiusKM: 25,
		},
		History: config.HistoryConfig{
			GapThreshold:            6 * time.Hour,
			MaxObservationsPerTrack: 100,
			RetentionHorizon:        24 * time.Hour,
		},
		Sync: config.SyncConfig{
			RetentionSweepInterval: time.Hour,
			StaleCheckInterval:     time.Hour,
			StaleAfter:             30 * time.Minute,
		},
	}
}

// fakeSource is a scriptable PositionSource. Tests either set batch for a
// fixed response or fetch for full control.
type fakeSource struct {
	name  string
	fetch func(ctx context.Context) ([]models.Reading, error)

	mu    sync.Mutex
	batch []models.Reading
	calls int
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) FetchPositions(ctx context.Context) ([]models.Reading, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.fetch != nil {
		return f.fetch(ctx)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Reading, len(f.batch))
	copy(out, f.batch)
	return out, nil
}

func (f *fakeSource) setBatch(batch []models.Reading) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batch = batch
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeZoneSource struct {
	name  string
	zones []*models.HazardZone
	err   error
}

func (f *fakeZoneSource) Name() string { return f.name }

func (f *fakeZoneSource) FetchZones(context.Context) ([]*models.HazardZone, error) {
	return f.zones, f.err
}

type fakeCongestionSource struct {
	name     string
	readings []models.CongestionReading
	err      error
}

func (f *fakeCongestionSource) Name() string { return f.name }

func (f *fakeCongestionSource) FetchCongestion(context.Context) ([]models.CongestionReading, error) {
	return f.readings, f.err
}

type alertEvent struct {
	transition string
	cond       *models.AlertCondition
}

// fakePublisher records every published event.
type fakePublisher struct {
	mu          sync.Mutex
	positions   []*models.TrackedEntity
	congestions []*models.TrackedEntity
	alerts      []alertEvent
	err         error
}

func (p *fakePublisher) PublishPositionUpdated(_ context.Context, entity *models.TrackedEntity) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.positions = append(p.positions, entity.Clone())
	return nil
}

func (p *fakePublisher) PublishCongestionUpdated(_ context.Context, port *models.TrackedEntity) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.congestions = append(p.congestions, port.Clone())
	return nil
}

func (p *fakePublisher) PublishAlert(_ context.Context, transition string, cond *models.AlertCondition) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.alerts = append(p.alerts, alertEvent{transition: transition, cond: cond.Clone()})
	return nil
}

func (p *fakePublisher) positionCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.positions)
}

func (p *fakePublisher) congestionCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.congestions)
}

func (p *fakePublisher) alertEvents() []alertEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]alertEvent, len(p.alerts))
	copy(out, p.alerts)
	return out
}

// fakeWAL records batches and confirmations in memory.
type fakeWAL struct {
	mu        sync.Mutex
	writeErr  error
	nextID    uint64
	batches   []int // reading count per written batch
	confirmed []uint64
}

func (w *fakeWAL) WriteBatch(_ context.Context, _ string, readings []models.Reading) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.writeErr != nil {
		return 0, w.writeErr
	}
	w.nextID++
	w.batches = append(w.batches, len(readings))
	return w.nextID, nil
}

func (w *fakeWAL) Confirm(_ context.Context, id uint64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.confirmed = append(w.confirmed, id)
	return nil
}

// fakeArchive counts enqueues and records prune cutoffs.
type fakeArchive struct {
	mu           sync.Mutex
	positions    int
	alerts       []string // transitions in order
	congestions  int
	pruneCutoffs []time.Time
	pruneN       int64
	pruneErr     error
}

func (a *fakeArchive) ArchivePosition(context.Context, models.PositionObservation) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.positions++
	return nil
}

func (a *fakeArchive) ArchiveAlert(_ context.Context, transition string, _ *models.AlertCondition) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts = append(a.alerts, transition)
	return nil
}

func (a *fakeArchive) ArchiveCongestion(context.Context, string, models.Congestion) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.congestions++
	return nil
}

func (a *fakeArchive) PruneBefore(_ context.Context, cutoff time.Time) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pruneCutoffs = append(a.pruneCutoffs, cutoff)
	return a.pruneN, a.pruneErr
}

// harness bundles a manager with its collaborators so tests can seed
// state and inspect effects.
type harness struct {
	clock    *clockwork.FakeClock
	cfg      *config.Config
	entities *store.EntityStore
	zones    *store.ZoneRegistry
	hist     *history.Store
	alerts   *alerting.Reconciler
	src      *fakeSource
	pub      *fakePublisher
	mgr      *Manager
}

// newHarness builds a manager on fakes and a fake clock. mutate runs on
// the deps before construction; tests swapping in their own sources keep
// a reference to what they inject.
func newHarness(t *testing.T, mutate func(*Deps)) *harness {
	t.Helper()

	cfg := newTestConfig()
	clk := clockwork.NewFakeClockAt(testBase)
	entities := store.NewEntityStore()
	zones := store.NewZoneRegistry()

	hist, err := history.NewStore(history.Config{
		GapThreshold:            cfg.History.GapThreshold,
		MaxObservationsPerTrack: cfg.History.MaxObservationsPerTrack,
		RetentionHorizon:        cfg.History.RetentionHorizon,
	})
	if err != nil {
		t.Fatalf("history.NewStore: %v", err)
	}

	alerts := alerting.NewReconciler(alerting.Config{Clock: clk})
	src := &fakeSource{name: "test_feed"}
	pub := &fakePublisher{}

	deps := Deps{
		Config:    cfg,
		Entities:  entities,
		Zones:     zones,
		History:   hist,
		Alerts:    alerts,
		Clock:     clk,
		Positions: src,
		Publisher: pub,
	}
	if mutate != nil {
		mutate(&deps)
	}

	mgr, err := NewManager(deps)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	return &harness{
		clock:    clk,
		cfg:      cfg,
		entities: entities,
		zones:    zones,
		hist:     hist,
		alerts:   alerts,
		src:      src,
		pub:      pub,
		mgr:      mgr,
	}
}

func (h *harness) seedVessel(t *testing.T, mmsi, name string) {
	t.Helper()
	err := h.entities.Put(context.Background(), &models.TrackedEntity{
		ID:      mmsi,
		Kind:    models.EntityVessel,
		Name:    name,
		Tracked: true,
	})
	if err != nil {
		t.Fatalf("seed vessel %s: %v", mmsi, err)
	}
}

func (h *harness) seedPort(t *testing.T, locode string, pos models.Position, capacity int) {
	t.Helper()
	err := h.entities.Put(context.Background(), &models.TrackedEntity{
		ID:           locode,
		Kind:         models.EntityPort,
		Name:         locode,
		Position:     pos,
		Tracked:      true,
		PortCapacity: capacity,
	})
	if err != nil {
		t.Fatalf("seed port %s: %v", locode, err)
	}
}

func reading(key string, lat, lon float64, at time.Time) models.Reading {
	return models.Reading{
		SourceEntityKey: key,
		Lat:             lat,
		Lon:             lon,
		Status:          models.StatusUnderWay,
		ObservedAt:      at,
		Source:          "test_feed",
	}
}

// boxZone returns an active polygon zone covering the given lat/lon box.
func boxZone(id string, kind models.HazardKind, sev models.Severity, minLat, minLon, maxLat, maxLon float64) *models.HazardZone {
	return &models.HazardZone{
		ID:       id,
		Kind:     kind,
		Severity: sev,
		Active:   true,
		Polygon: []models.Position{
			{Lat: minLat, Lon: minLon},
			{Lat: minLat, Lon: maxLon},
			{Lat: maxLat, Lon: maxLon},
			{Lat: maxLat, Lon: minLon},
		},
	}
}

func findJob(t *testing.T, m *Manager, name string) *job {
	t.Helper()
	for _, j := range m.jobs {
		if j.name == name {
			return j
		}
	}
	t.Fatalf("job %s not registered", name)
	return nil
}
