// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mhalvorsen/pelorus/internal/alerting"
	"github.com/mhalvorsen/pelorus/internal/history"
	"github.com/mhalvorsen/pelorus/internal/models"
	"github.com/mhalvorsen/pelorus/internal/store"
)

func managerDeps(t *testing.T) Deps {
	t.Helper()
	hist, err := history.NewStore(history.Config{
		GapThreshold:            6 * time.Hour,
		MaxObservationsPerTrack: 100,
		RetentionHorizon:        24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("history.NewStore: %v", err)
	}
	return Deps{
		Config:   newTestConfig(),
		Entities: store.NewEntityStore(),
		Zones:    store.NewZoneRegistry(),
		History:  hist,
		Alerts:   alerting.NewReconciler(alerting.Config{}),
	}
}

func TestNewManagerValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Deps)
	}{
		{"nil config", func(d *Deps) { d.Config = nil }},
		{"nil entity store", func(d *Deps) { d.Entities = nil }},
		{"nil zone registry", func(d *Deps) { d.Zones = nil }},
		{"nil history store", func(d *Deps) { d.History = nil }},
		{"nil reconciler", func(d *Deps) { d.Alerts = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := managerDeps(t)
			tt.mutate(&deps)
			if _, err := NewManager(deps); err == nil {
				t.Error("NewManager accepted incomplete deps")
			}
		})
	}
}

func jobNames(m *Manager) []string {
	var names []string
	for _, st := range m.Status() {
		names = append(names, st.Name)
	}
	return names
}

func TestNewManagerStandaloneJobs(t *testing.T) {
	h := newHarness(t, func(d *Deps) { d.Positions = nil })

	got := jobNames(h.mgr)
	want := []string{JobRetentionSweep, JobStaleCheck}
	if len(got) != len(want) {
		t.Fatalf("jobs = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("job %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestNewManagerRegistersConfiguredJobs(t *testing.T) {
	h := newHarness(t, func(d *Deps) {
		d.ZoneFeed = &fakeZoneSource{name: "advisories"}
		d.Congestion = &fakeCongestionSource{name: "port_stats"}
	})

	got := jobNames(h.mgr)
	want := []string{JobPositionSync, JobHazardSync, JobCongestionSync, JobRetentionSweep, JobStaleCheck}
	if len(got) != len(want) {
		t.Fatalf("jobs = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("job %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestManagerStartStop(t *testing.T) {
	h := newHarness(t, nil)

	if h.mgr.LastSyncTime() != (time.Time{}) {
		t.Error("LastSyncTime should be zero before the first run")
	}

	if err := h.mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := h.mgr.Start(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Start = %v, want ErrAlreadyRunning", err)
	}

	if err := h.mgr.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := h.mgr.Stop(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("second Stop = %v, want ErrNotRunning", err)
	}

	// The fake clock never advanced, so each job ran exactly once: the
	// immediate run on startup.
	for _, st := range h.mgr.Status() {
		if st.Runs != 1 {
			t.Errorf("job %s ran %d times, want 1", st.Name, st.Runs)
		}
		if st.LastError != "" {
			t.Errorf("job %s failed: %s", st.Name, st.LastError)
		}
		if !st.LastRun.Equal(testBase) {
			t.Errorf("job %s last run %v, want %v", st.Name, st.LastRun, testBase)
		}
	}
	if got := h.src.callCount(); got != 1 {
		t.Errorf("position source fetched %d times, want 1", got)
	}
	if !h.mgr.LastSyncTime().Equal(testBase) {
		t.Errorf("LastSyncTime = %v, want %v", h.mgr.LastSyncTime(), testBase)
	}
}

func TestManagerTicksOnFakeClock(t *testing.T) {
	h := newHarness(t, nil)

	if err := h.mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer h.mgr.Stop()

	// Wait for all three job loops to park on their tickers, then fire
	// the position interval. The longer maintenance intervals stay quiet.
	h.clock.BlockUntil(3)
	h.clock.Advance(h.cfg.Providers.PollInterval)

	deadline := time.Now().Add(2 * time.Second)
	for h.src.callCount() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := h.src.callCount(); got != 2 {
		t.Fatalf("position source fetched %d times after one tick, want 2", got)
	}
}

func TestTriggerJob(t *testing.T) {
	t.Run("not running", func(t *testing.T) {
		h := newHarness(t, nil)
		if err := h.mgr.TriggerJob(JobPositionSync); !errors.Is(err, ErrNotRunning) {
			t.Errorf("TriggerJob = %v, want ErrNotRunning", err)
		}
	})

	t.Run("unknown job", func(t *testing.T) {
		h := newHarness(t, nil)
		if err := h.mgr.Start(context.Background()); err != nil {
			t.Fatalf("Start: %v", err)
		}
		defer h.mgr.Stop()
		if err := h.mgr.TriggerJob("no_such_job"); !errors.Is(err, ErrUnknownJob) {
			t.Errorf("TriggerJob = %v, want ErrUnknownJob", err)
		}
	})

	t.Run("busy job", func(t *testing.T) {
		started := make(chan struct{}, 4)
		block := make(chan struct{})
		slow := &fakeSource{name: "slow", fetch: func(context.Context) ([]models.Reading, error) {
			started <- struct{}{}
			<-block
			return nil, nil
		}}
		h := newHarness(t, func(d *Deps) { d.Positions = slow })

		if err := h.mgr.Start(context.Background()); err != nil {
			t.Fatalf("Start: %v", err)
		}
		<-started // the immediate run is now parked inside the fetch

		if err := h.mgr.TriggerJob(JobPositionSync); !errors.Is(err, ErrJobBusy) {
			t.Errorf("TriggerJob = %v, want ErrJobBusy", err)
		}

		close(block)
		if err := h.mgr.Stop(); err != nil {
			t.Fatalf("Stop: %v", err)
		}
	})
}

func TestLaunchRunSkipsOverlap(t *testing.T) {
	h := newHarness(t, nil)
	j := findJob(t, h.mgr, JobPositionSync)

	if !j.tryAcquire() {
		t.Fatal("fresh job should be acquirable")
	}
	defer j.release()

	h.mgr.launchRun(j)

	st := j.status()
	if st.Skips != 1 {
		t.Errorf("skips = %d, want 1", st.Skips)
	}
	if st.Runs != 0 {
		t.Errorf("runs = %d, want 0 (tick dropped, not queued)", st.Runs)
	}
}

// TestPositionSyncAlertLifecycle drives five sweeps through a hazard
// zone: approach, entry, dwell, exit, and quiet. It checks the full
// pipeline effect of each sweep: store state, history, WAL, archive,
// and published events.
func TestPositionSyncAlertLifecycle(t *testing.T) {
	ctx := context.Background()
	wal := &fakeWAL{}
	arch := &fakeArchive{}
	h := newHarness(t, func(d *Deps) {
		d.WAL = wal
		d.Archive = arch
	})
	h.seedVessel(t, "215678000", "BALTIC COURIER")

	tick := func(lat, lon float64) {
		t.Helper()
		h.src.setBatch([]models.Reading{reading("215678000", lat, lon, h.clock.Now().UTC())})
		if err := h.mgr.runPositionSync(ctx); err != nil {
			t.Fatalf("runPositionSync: %v", err)
		}
	}
	advance := func() { h.clock.Advance(time.Minute) }

	// Approach: no zones registered yet.
	tick(54.0, 10.0)
	if got := h.pub.positionCount(); got != 1 {
		t.Fatalf("positions published = %d, want 1", got)
	}
	if got := len(h.pub.alertEvents()); got != 0 {
		t.Fatalf("alerts published = %d, want 0", got)
	}

	// A storm zone appears ahead of the vessel.
	zone := boxZone("z-storm", models.HazardStorm, models.SeverityHigh, 54.5, 10.5, 55.5, 11.5)
	if err := h.zones.Put(ctx, zone); err != nil {
		t.Fatalf("put zone: %v", err)
	}

	// Entry opens a condition.
	advance()
	tick(55.0, 11.0)
	events := h.pub.alertEvents()
	if len(events) != 1 {
		t.Fatalf("alerts published = %d, want 1 after entry", len(events))
	}
	opened := events[0]
	if opened.transition != TransitionOpened {
		t.Errorf("transition = %q, want opened", opened.transition)
	}
	if opened.cond.EntityID != "215678000" || opened.cond.Kind != models.HazardStorm {
		t.Errorf("condition = %s/%s, want 215678000/storm", opened.cond.EntityID, opened.cond.Kind)
	}
	if opened.cond.Severity != models.SeverityHigh {
		t.Errorf("severity = %q, want high", opened.cond.Severity)
	}
	if len(opened.cond.ZoneIDs) != 1 || opened.cond.ZoneIDs[0] != "z-storm" {
		t.Errorf("zone ids = %v, want [z-storm]", opened.cond.ZoneIDs)
	}
	if opened.cond.State != models.AlertOpen {
		t.Errorf("state = %q, want open", opened.cond.State)
	}
	if !opened.cond.OpenedAt.Equal(testBase.Add(time.Minute)) {
		t.Errorf("opened at %v, want %v", opened.cond.OpenedAt, testBase.Add(time.Minute))
	}

	// Dwell inside the same zone: no new transition.
	advance()
	tick(55.01, 11.01)
	if got := len(h.pub.alertEvents()); got != 1 {
		t.Fatalf("alerts published = %d, want 1 while dwelling", got)
	}

	// Exit resolves the condition.
	advance()
	tick(60.0, 20.0)
	events = h.pub.alertEvents()
	if len(events) != 2 {
		t.Fatalf("alerts published = %d, want 2 after exit", len(events))
	}
	resolved := events[1]
	if resolved.transition != TransitionResolved {
		t.Errorf("transition = %q, want resolved", resolved.transition)
	}
	if resolved.cond.State != models.AlertResolved {
		t.Errorf("state = %q, want resolved", resolved.cond.State)
	}
	if resolved.cond.ResolvedAt == nil || !resolved.cond.ResolvedAt.Equal(testBase.Add(3*time.Minute)) {
		t.Errorf("resolved at %v, want %v", resolved.cond.ResolvedAt, testBase.Add(3*time.Minute))
	}

	// Quiet: far from any zone, nothing new.
	advance()
	tick(60.01, 20.01)
	if got := len(h.pub.alertEvents()); got != 2 {
		t.Fatalf("alerts published = %d, want 2 when clear", got)
	}

	// Cumulative pipeline effects across the five sweeps.
	ent, ok := h.entities.Get(ctx, "215678000")
	if !ok {
		t.Fatal("vessel missing from store")
	}
	if ent.Position.Lat != 60.01 || ent.Position.Lon != 20.01 {
		t.Errorf("final position = (%v, %v), want (60.01, 20.01)", ent.Position.Lat, ent.Position.Lon)
	}
	if !ent.LastUpdate.Equal(testBase.Add(4 * time.Minute)) {
		t.Errorf("last update %v, want %v", ent.LastUpdate, testBase.Add(4*time.Minute))
	}

	stats := h.hist.Stats()
	if stats.Observations != 5 || stats.Tracks != 1 || stats.OpenTracks != 1 {
		t.Errorf("history stats = %+v, want 5 observations on 1 open track", stats)
	}

	if got := h.pub.positionCount(); got != 5 {
		t.Errorf("positions published = %d, want 5", got)
	}
	if len(wal.batches) != 5 {
		t.Errorf("wal batches = %d, want 5", len(wal.batches))
	}
	if len(wal.confirmed) != 5 || wal.confirmed[4] != 5 {
		t.Errorf("wal confirmations = %v, want five in order", wal.confirmed)
	}
	if arch.positions != 5 {
		t.Errorf("archived positions = %d, want 5", arch.positions)
	}
	if len(arch.alerts) != 2 || arch.alerts[0] != TransitionOpened || arch.alerts[1] != TransitionResolved {
		t.Errorf("archived alert transitions = %v, want [opened resolved]", arch.alerts)
	}
}

func TestPositionSyncStorageAbort(t *testing.T) {
	h := newHarness(t, nil)
	h.seedVessel(t, "215678000", "BALTIC COURIER")

	h.entities.Close()
	h.src.setBatch([]models.Reading{reading("215678000", 54.32, 10.12, testBase)})

	err := h.mgr.runPositionSync(context.Background())
	if !errors.Is(err, store.ErrClosed) {
		t.Fatalf("error = %v, want store.ErrClosed to abort the sweep", err)
	}
}
