// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package api

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/mhalvorsen/pelorus/internal/alerting"
	"github.com/mhalvorsen/pelorus/internal/archive"
	"github.com/mhalvorsen/pelorus/internal/config"
	"github.com/mhalvorsen/pelorus/internal/history"
	"github.com/mhalvorsen/pelorus/internal/logging"
	"github.com/mhalvorsen/pelorus/internal/models"
	"github.com/mhalvorsen/pelorus/internal/store"
	syncpkg "github.com/mhalvorsen/pelorus/internal/sync"
)

func init() {
	logging.Init(logging.Config{Level: "error", Format: "console", Output: io.Discard})
}

// Fixture IDs reused across the handler tests.
const (
	vesselID = "215678000" // tracked, under way
	staleID  = "366999000" // untracked, marked stale
	portID   = "NLRTM"
)

func testConfig() *config.Config {
	return &config.Config{
		API: config.APIConfig{
			DefaultPageSize:   50,
			MaxPageSize:       500,
			DefaultTrackLimit: 100,
		},
		Security: config.SecurityConfig{
			CORSOrigins: []string{"https://ops.example.net"},
		},
	}
}

// fakeSyncController records trigger calls and serves canned status.
type fakeSyncController struct {
	status     []syncpkg.JobStatus
	lastSync   time.Time
	triggerErr error
	triggered  []string
}

func (f *fakeSyncController) Status() []syncpkg.JobStatus { return f.status }

func (f *fakeSyncController) TriggerJob(name string) error {
	if f.triggerErr != nil {
		return f.triggerErr
	}
	f.triggered = append(f.triggered, name)
	return nil
}

func (f *fakeSyncController) LastSyncTime() time.Time { return f.lastSync }

// fakeArchive serves fixed rows in place of DuckDB.
type fakeArchive struct {
	tracks      map[string][]models.PositionObservation
	alertEvents []archive.AlertEvent
	congestion  map[string][]archive.CongestionSnapshot
	trackErr    error
	pingErr     error
}

func (f *fakeArchive) VesselTrack(_ context.Context, entityID string, _ archive.TrackQuery) ([]models.PositionObservation, error) {
	if f.trackErr != nil {
		return nil, f.trackErr
	}
	return f.tracks[entityID], nil
}

func (f *fakeArchive) AlertHistory(_ context.Context, q archive.AlertQuery) ([]archive.AlertEvent, error) {
	var out []archive.AlertEvent
	for _, ev := range f.alertEvents {
		if q.EntityID != "" && ev.EntityID != q.EntityID {
			continue
		}
		out = append(out, ev)
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (f *fakeArchive) CongestionHistory(_ context.Context, portID string, limit int) ([]archive.CongestionSnapshot, error) {
	rows := f.congestion[portID]
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (f *fakeArchive) Ping(context.Context) error { return f.pingErr }

type fixture struct {
	handler  *Handler
	entities *store.EntityStore
	zones    *store.ZoneRegistry
	history  *history.Store
	alerts   *alerting.Reconciler
	syncCtl  *fakeSyncController
	arch     *fakeArchive
}

// newFixture builds a handler over live in-memory stores seeded with
// two vessels, one congested port, and two zones. Sync and archive are
// fakes the tests steer directly.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	entities := store.NewEntityStore()
	zones := store.NewZoneRegistry()

	hist, err := history.NewStore(history.DefaultConfig())
	if err != nil {
		t.Fatalf("history.NewStore: %v", err)
	}
	t.Cleanup(func() { _ = hist.Close() })

	alerts := alerting.NewReconciler(alerting.Config{})

	speed := 12.4
	if err := entities.Put(ctx, &models.TrackedEntity{
		ID:         vesselID,
		Kind:       models.EntityVessel,
		Name:       "MV NORDVIND",
		Position:   models.Position{Lat: 51.95, Lon: 4.05},
		SpeedKnots: &speed,
		Status:     models.StatusUnderWay,
		Type:       models.TypeCargo,
		Tracked:    true,
		LastUpdate: time.Now().Add(-time.Minute),
		Source:     "ais-live",
	}); err != nil {
		t.Fatalf("seed vessel: %v", err)
	}

	staleSince := time.Now().Add(-26 * time.Hour)
	if err := entities.Put(ctx, &models.TrackedEntity{
		ID:         staleID,
		Kind:       models.EntityVessel,
		Name:       "MV DRIFTWOOD",
		Position:   models.Position{Lat: 36.1, Lon: -5.4},
		Status:     models.StatusAtAnchor,
		Tracked:    false,
		LastUpdate: staleSince,
		StaleSince: &staleSince,
	}); err != nil {
		t.Fatalf("seed stale vessel: %v", err)
	}

	if err := entities.Put(ctx, &models.TrackedEntity{
		ID:           portID,
		Kind:         models.EntityPort,
		Name:         "Rotterdam",
		Position:     models.Position{Lat: 51.9225, Lon: 4.47917},
		Tracked:      true,
		PortCapacity: 80,
		Congestion: &models.Congestion{
			VesselsInPort: 45,
			AvgWaitHours:  6.5,
			Level:         models.CongestionModerate,
			UpdatedAt:     time.Now().Add(-10 * time.Minute),
		},
	}); err != nil {
		t.Fatalf("seed port: %v", err)
	}

	if err := zones.Put(ctx, &models.HazardZone{
		ID:       "storm-biscay",
		Name:     "Biscay storm cell",
		Kind:     models.HazardStorm,
		Severity: models.SeverityHigh,
		Active:   true,
		Polygon: []models.Position{
			{Lat: 44.0, Lon: -6.0},
			{Lat: 46.5, Lon: -6.0},
			{Lat: 46.5, Lon: -2.5},
			{Lat: 44.0, Lon: -2.5},
		},
	}); err != nil {
		t.Fatalf("seed zone: %v", err)
	}

	if err := zones.Put(ctx, &models.HazardZone{
		ID:       "exercise-retired",
		Kind:     models.HazardRestricted,
		Severity: models.SeverityLow,
		Active:   false,
		Center:   &models.Position{Lat: 57.0, Lon: 1.5},
		RadiusKM: 40,
	}); err != nil {
		t.Fatalf("seed inactive zone: %v", err)
	}

	syncCtl := &fakeSyncController{
		status: []syncpkg.JobStatus{
			{Name: syncpkg.JobPositionSync, Interval: time.Minute, Running: true, Runs: 12},
			{Name: syncpkg.JobHazardSync, Interval: 10 * time.Minute, Running: true, Runs: 2},
		},
		lastSync: time.Now().Add(-30 * time.Second),
	}

	arch := &fakeArchive{
		tracks:     map[string][]models.PositionObservation{},
		congestion: map[string][]archive.CongestionSnapshot{},
	}

	handler := NewHandler(HandlerDeps{
		Config:   testConfig(),
		Entities: entities,
		Zones:    zones,
		History:  hist,
		Alerts:   alerts,
		Sync:     syncCtl,
		Archive:  arch,
	})

	return &fixture{
		handler:  handler,
		entities: entities,
		zones:    zones,
		history:  hist,
		alerts:   alerts,
		syncCtl:  syncCtl,
		arch:     arch,
	}
}

// withURLParam injects a chi route parameter so handlers can be called
// without the full router.
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func decodeBody(t *testing.T, body io.Reader, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

// errCode extracts the machine-readable code from the error envelope.
func errCode(t *testing.T, body io.Reader) string {
	t.Helper()
	var env errorEnvelope
	decodeBody(t, body, &env)
	if env.Error.Code == "" {
		t.Fatal("response is not an error envelope")
	}
	return env.Error.Code
}
