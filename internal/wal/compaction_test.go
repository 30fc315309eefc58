// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

//go:build wal

package wal

import (
	"context"
	"testing"
	"time"
)

// waitFor polls until cond holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestCompactRemovesConfirmed(t *testing.T) {
	w := openTestWAL(t)
	ctx := context.Background()

	id1 := mustWrite(t, w, "ais-feed", testReadings(1))
	id2 := mustWrite(t, w, "ais-feed", testReadings(1))
	mustWrite(t, w, "ais-feed", testReadings(1))

	if err := w.Confirm(ctx, id1); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if err := w.Confirm(ctx, id2); err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	before := time.Now()
	c := NewCompactor(w)
	if err := c.RunNow(); err != nil {
		t.Fatalf("RunNow: %v", err)
	}

	st := w.Stats()
	if st.ConfirmedCount != 0 {
		t.Errorf("ConfirmedCount after compact: got %d, want 0", st.ConfirmedCount)
	}
	if st.PendingCount != 1 {
		t.Errorf("PendingCount after compact: got %d, want 1", st.PendingCount)
	}
	if !st.LastCompaction.After(before) {
		t.Errorf("LastCompaction not advanced: %v", st.LastCompaction)
	}

	cs := c.Stats()
	if cs.LastRemoved != 2 {
		t.Errorf("LastRemoved: got %d, want 2", cs.LastRemoved)
	}
	if cs.LastRun.IsZero() {
		t.Error("LastRun not stamped")
	}
}

func TestCompactDropsExpiredPending(t *testing.T) {
	w := openTestWAL(t)

	mustWrite(t, w, "ais-feed", testReadings(1))
	writePendingRaw(t, w, BatchEntry{
		ID:        901,
		Source:    "stale-feed",
		Readings:  testReadings(1),
		CreatedAt: time.Now().UTC().Add(-w.config.EntryTTL - time.Hour),
	})

	c := NewCompactor(w)
	if err := c.RunNow(); err != nil {
		t.Fatalf("RunNow: %v", err)
	}

	entries, err := w.GetPending(context.Background())
	if err != nil {
		t.Fatalf("GetPending: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("pending after compact: got %d, want 1", len(entries))
	}
	if entries[0].Source != "ais-feed" {
		t.Errorf("survivor: got %q, want the fresh batch", entries[0].Source)
	}
	if got := c.Stats().LastRemoved; got != 1 {
		t.Errorf("LastRemoved: got %d, want 1", got)
	}
}

func TestCompactorLoop(t *testing.T) {
	cfg := testConfig(t)
	cfg.CompactInterval = 25 * time.Millisecond

	w, err := OpenForTesting(&cfg)
	if err != nil {
		t.Fatalf("OpenForTesting: %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })

	c := NewCompactor(w)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !c.IsRunning() {
		t.Fatal("compactor not running after Start")
	}
	// Second Start is a no-op on a running compactor.
	if err := c.Start(ctx); err != nil {
		t.Fatalf("second Start: %v", err)
	}

	id := mustWrite(t, w, "ais-feed", testReadings(1))
	if err := w.Confirm(context.Background(), id); err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	waitFor(t, "confirmed batch removal", func() bool {
		return w.Stats().ConfirmedCount == 0
	})

	c.Stop()
	if c.IsRunning() {
		t.Error("compactor still running after Stop")
	}
}

func TestCompactorStopBeforeStart(t *testing.T) {
	w := openTestWAL(t)
	c := NewCompactor(w)

	// Must not panic or block.
	c.Stop()
	if c.IsRunning() {
		t.Error("IsRunning true without Start")
	}
}
