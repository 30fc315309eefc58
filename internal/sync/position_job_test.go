// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package sync

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mhalvorsen/pelorus/internal/models"
)

func TestGroupReadings(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	h.seedVessel(t, "215678000", "BALTIC COURIER")
	h.seedVessel(t, "366999712", "PACIFIC HARMONY")

	noKey := reading("", 54.0, 10.0, testBase)
	badCoords := reading("215678000", 99.0, 10.0, testBase)
	noTimestamp := reading("215678000", 54.0, 10.0, time.Time{})
	unknown := reading("999999999", 54.0, 10.0, testBase)

	input := []models.Reading{
		reading("215678000", 54.2, 10.2, testBase.Add(2*time.Minute)),
		noKey,
		reading("366999712", 37.78, -122.42, testBase),
		badCoords,
		reading("215678000", 54.1, 10.1, testBase.Add(time.Minute)),
		noTimestamp,
		unknown,
	}

	got := h.mgr.groupReadings(ctx, input)
	if len(got) != 2 {
		t.Fatalf("grouped %d entities, want 2", len(got))
	}

	courier := got["215678000"]
	if len(courier) != 2 {
		t.Fatalf("courier batch = %d readings, want 2", len(courier))
	}
	if !courier[0].ObservedAt.Before(courier[1].ObservedAt) {
		t.Error("batch not sorted by observation time")
	}
	if courier[0].Lat != 54.1 {
		t.Errorf("first reading lat = %v, want the older fix first", courier[0].Lat)
	}

	if len(got["366999712"]) != 1 {
		t.Errorf("harmony batch = %d readings, want 1", len(got["366999712"]))
	}
}

func TestSyncEntityContainsEntityFailure(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)

	// "ghost" is not registered; the upsert fails but the sweep must not.
	var counters sweepCounters
	batch := []models.Reading{reading("ghost", 54.0, 10.0, testBase)}
	if err := h.mgr.syncEntity(ctx, "ghost", batch, nil, &counters); err != nil {
		t.Fatalf("syncEntity = %v, want contained failure", err)
	}
	if counters.failed.Load() != 1 {
		t.Errorf("failed = %d, want 1", counters.failed.Load())
	}
	if counters.applied.Load() != 0 {
		t.Errorf("applied = %d, want 0", counters.applied.Load())
	}
}

func TestProcessEntityStaleReading(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	h.seedVessel(t, "215678000", "BALTIC COURIER")

	applied, stale, err := h.mgr.processEntity(ctx, "215678000",
		[]models.Reading{reading("215678000", 54.2, 10.2, testBase)}, nil)
	if err != nil || applied != 1 || stale != 0 {
		t.Fatalf("fresh reading: applied=%d stale=%d err=%v", applied, stale, err)
	}

	// A reading older than the stored fix is dropped, not rewound.
	applied, stale, err = h.mgr.processEntity(ctx, "215678000",
		[]models.Reading{reading("215678000", 53.0, 9.0, testBase.Add(-10*time.Minute))}, nil)
	if err != nil {
		t.Fatalf("processEntity: %v", err)
	}
	if applied != 0 || stale != 1 {
		t.Errorf("applied=%d stale=%d, want 0/1", applied, stale)
	}

	ent, _ := h.entities.Get(ctx, "215678000")
	if ent.Position.Lat != 54.2 {
		t.Errorf("position lat = %v, want the stale fix ignored", ent.Position.Lat)
	}
	if got := h.hist.Stats().Observations; got != 1 {
		t.Errorf("history observations = %d, want 1", got)
	}
	if got := h.pub.positionCount(); got != 1 {
		t.Errorf("positions published = %d, want 1", got)
	}
}

func TestProcessEntityDuplicateSkipsDetectionAndPublish(t *testing.T) {
	ctx := context.Background()
	arch := &fakeArchive{}
	h := newHarness(t, func(d *Deps) { d.Archive = arch })
	h.seedVessel(t, "215678000", "BALTIC COURIER")

	zone := boxZone("z-storm", models.HazardStorm, models.SeverityHigh, 54.5, 10.5, 55.5, 11.5)
	if err := h.zones.Put(ctx, zone); err != nil {
		t.Fatalf("put zone: %v", err)
	}
	active := h.zones.Active(ctx, testBase)

	// The same fix delivered twice in one batch. The second copy
	// re-applies to the store (equal timestamp) but is a history
	// duplicate, so detection and publish run once.
	dup := reading("215678000", 55.0, 11.0, testBase)
	applied, stale, err := h.mgr.processEntity(ctx, "215678000", []models.Reading{dup, dup}, active)
	if err != nil {
		t.Fatalf("processEntity: %v", err)
	}
	if applied != 2 || stale != 0 {
		t.Errorf("applied=%d stale=%d, want 2/0", applied, stale)
	}

	if got := h.hist.Stats().Observations; got != 1 {
		t.Errorf("history observations = %d, want duplicate dropped", got)
	}
	if got := h.pub.positionCount(); got != 1 {
		t.Errorf("positions published = %d, want 1", got)
	}
	events := h.pub.alertEvents()
	if len(events) != 1 || events[0].transition != TransitionOpened {
		t.Errorf("alert events = %+v, want a single opened transition", events)
	}
	if arch.positions != 2 {
		t.Errorf("archived positions = %d, want both store applications", arch.positions)
	}
}

func TestRunPositionSyncFetchErrorPropagates(t *testing.T) {
	errFeed := errors.New("feed down")
	h := newHarness(t, func(d *Deps) {
		d.Positions = &fakeSource{name: "broken", fetch: func(context.Context) ([]models.Reading, error) {
			return nil, errFeed
		}}
	})

	err := h.mgr.runPositionSync(context.Background())
	if !errors.Is(err, errFeed) {
		t.Fatalf("error = %v, want the fetch error", err)
	}
	if !strings.Contains(err.Error(), "fetch positions") {
		t.Errorf("error = %v, want fetch context", err)
	}
	if !h.mgr.LastSyncTime().IsZero() {
		t.Error("a failed sweep must not advance the last sync time")
	}
}

func TestRunPositionSyncEmptyBatchSetsLastSync(t *testing.T) {
	h := newHarness(t, nil)

	if err := h.mgr.runPositionSync(context.Background()); err != nil {
		t.Fatalf("runPositionSync: %v", err)
	}
	if !h.mgr.LastSyncTime().Equal(testBase) {
		t.Errorf("LastSyncTime = %v, want %v", h.mgr.LastSyncTime(), testBase)
	}
	if got := h.pub.positionCount(); got != 0 {
		t.Errorf("positions published = %d, want 0", got)
	}
}

func TestRunPositionSyncWALWriteFailureContinues(t *testing.T) {
	ctx := context.Background()
	wal := &fakeWAL{writeErr: errors.New("disk full")}
	h := newHarness(t, func(d *Deps) { d.WAL = wal })
	h.seedVessel(t, "215678000", "BALTIC COURIER")
	h.src.setBatch([]models.Reading{reading("215678000", 54.32, 10.12, testBase)})

	if err := h.mgr.runPositionSync(ctx); err != nil {
		t.Fatalf("runPositionSync = %v, want WAL failure tolerated", err)
	}

	ent, _ := h.entities.Get(ctx, "215678000")
	if ent.Position.Lat != 54.32 {
		t.Error("reading not applied despite WAL failure")
	}
	if len(wal.confirmed) != 0 {
		t.Errorf("confirmations = %v, want none for a failed write", wal.confirmed)
	}
}

func TestReplayBatchRunsFullPipeline(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	h.seedVessel(t, "215678000", "BALTIC COURIER")

	zone := boxZone("z-storm", models.HazardStorm, models.SeverityHigh, 54.5, 10.5, 55.5, 11.5)
	if err := h.zones.Put(ctx, zone); err != nil {
		t.Fatalf("put zone: %v", err)
	}

	batch := []models.Reading{
		reading("215678000", 54.0, 10.0, testBase),
		reading("215678000", 55.0, 11.0, testBase.Add(time.Minute)),
	}
	if err := h.mgr.ReplayBatch(ctx, "ais-feed", batch); err != nil {
		t.Fatalf("ReplayBatch: %v", err)
	}

	ent, _ := h.entities.Get(ctx, "215678000")
	if ent.Position.Lat != 55.0 {
		t.Errorf("position lat = %v, want the newest fix", ent.Position.Lat)
	}
	if got := h.hist.Stats().Observations; got != 2 {
		t.Errorf("history observations = %d, want 2", got)
	}
	if got := h.pub.positionCount(); got != 2 {
		t.Errorf("positions published = %d, want 2", got)
	}
	events := h.pub.alertEvents()
	if len(events) != 1 || events[0].transition != TransitionOpened {
		t.Errorf("alert events = %+v, want a single opened transition", events)
	}
	if !h.mgr.LastSyncTime().IsZero() {
		t.Error("replay must not advance the last sync time")
	}
}

func TestReplayBatchSecondPassIsHarmless(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	h.seedVessel(t, "215678000", "BALTIC COURIER")

	batch := []models.Reading{reading("215678000", 54.2, 10.2, testBase)}
	if err := h.mgr.ReplayBatch(ctx, "ais-feed", batch); err != nil {
		t.Fatalf("first replay: %v", err)
	}
	// A crash between apply and confirm means the same batch comes back
	// on the next startup. Everything in it is now stale or duplicate.
	if err := h.mgr.ReplayBatch(ctx, "ais-feed", batch); err != nil {
		t.Fatalf("second replay: %v", err)
	}

	if got := h.hist.Stats().Observations; got != 1 {
		t.Errorf("history observations = %d, want the duplicate dropped", got)
	}
	if got := h.pub.positionCount(); got != 1 {
		t.Errorf("positions published = %d, want 1", got)
	}
}

func TestReplayBatchSkipsUnknownKeys(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)

	batch := []models.Reading{reading("999999999", 54.0, 10.0, testBase)}
	if err := h.mgr.ReplayBatch(ctx, "ais-feed", batch); err != nil {
		t.Fatalf("ReplayBatch = %v, want unknown keys dropped", err)
	}
	if got := h.pub.positionCount(); got != 0 {
		t.Errorf("positions published = %d, want 0", got)
	}
}

func TestMalformedReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{models.ErrReadingNoKey, "no_key"},
		{models.ErrReadingBadCoords, "bad_coords"},
		{models.ErrReadingNoTimestamp, "no_timestamp"},
		{errors.New("short read"), "other"},
	}
	for _, tt := range tests {
		if got := malformedReason(tt.err); got != tt.want {
			t.Errorf("malformedReason(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
