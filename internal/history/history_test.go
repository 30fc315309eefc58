// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package history

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mhalvorsen/pelorus/internal/models"
)

var testBase = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func testConfig() Config {
	return Config{
		GapThreshold:            5 * time.Minute,
		MaxObservationsPerTrack: 10,
		RetentionHorizon:        24 * time.Hour,
	}
}

func newTestStore(t *testing.T, cfg Config) *Store {
	t.Helper()
	s, err := NewStore(cfg)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func obsAt(ts time.Time, lat, lon float64) models.PositionObservation {
	return models.PositionObservation{
		Lat:        lat,
		Lon:        lon,
		ObservedAt: ts,
		ReceivedAt: ts,
	}
}

func mustAppend(t *testing.T, s *Store, entityID string, obs models.PositionObservation) AppendResult {
	t.Helper()
	res, err := s.Append(context.Background(), entityID, obs)
	if err != nil {
		t.Fatalf("Append(%s@%s): %v", entityID, obs.ObservedAt, err)
	}
	return res
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults valid", func(c *Config) {}, false},
		{"zero gap", func(c *Config) { c.GapThreshold = 0 }, true},
		{"negative gap", func(c *Config) { c.GapThreshold = -time.Minute }, true},
		{"zero cap", func(c *Config) { c.MaxObservationsPerTrack = 0 }, true},
		{"zero retention", func(c *Config) { c.RetentionHorizon = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAppendGapSegmentation(t *testing.T) {
	s := newTestStore(t, testConfig())
	ctx := context.Background()

	// Three fixes a minute apart stay in one track.
	for i := 0; i < 3; i++ {
		res := mustAppend(t, s, "v1", obsAt(testBase.Add(time.Duration(i)*time.Minute), float64(i), 0))
		if !res.Applied {
			t.Fatalf("append %d not applied", i)
		}
		if (i == 0) != res.NewTrack {
			t.Fatalf("append %d: NewTrack = %v", i, res.NewTrack)
		}
	}

	// Twenty minutes of silence exceeds the 5m gap: previous track closes
	// at its newest fix, a fresh track opens.
	res := mustAppend(t, s, "v1", obsAt(testBase.Add(20*time.Minute), 3, 0))
	if !res.Applied || !res.NewTrack || !res.ClosedPrevious {
		t.Fatalf("gap append = %+v, want applied, new track, closed previous", res)
	}

	tracks, err := s.Tracks(ctx, "v1")
	if err != nil {
		t.Fatalf("Tracks: %v", err)
	}
	if len(tracks) != 2 {
		t.Fatalf("got %d tracks, want 2", len(tracks))
	}

	first, second := tracks[0], tracks[1]
	if first.Open() {
		t.Error("first track still open after gap")
	}
	if got, want := len(first.Observations), 3; got != want {
		t.Errorf("first track has %d observations, want %d", got, want)
	}
	wantEnd := testBase.Add(2 * time.Minute)
	if first.EndedAt == nil || !first.EndedAt.Equal(wantEnd) {
		t.Errorf("first track EndedAt = %v, want %v", first.EndedAt, wantEnd)
	}

	if !second.Open() {
		t.Error("second track should be open")
	}
	if got, want := len(second.Observations), 1; got != want {
		t.Errorf("second track has %d observations, want %d", got, want)
	}
	if !second.StartedAt.Equal(testBase.Add(20 * time.Minute)) {
		t.Errorf("second track StartedAt = %v", second.StartedAt)
	}
}

func TestAppendRingBufferCap(t *testing.T) {
	cfg := testConfig()
	cfg.MaxObservationsPerTrack = 5
	s := newTestStore(t, cfg)
	ctx := context.Background()

	// Cap plus three extra, a minute apart so no gap splits them.
	const extra = 3
	total := cfg.MaxObservationsPerTrack + extra
	evicted := 0
	for i := 0; i < total; i++ {
		res := mustAppend(t, s, "v1", obsAt(testBase.Add(time.Duration(i)*time.Minute), float64(i), 0))
		evicted += res.Evicted
	}
	if evicted != extra {
		t.Errorf("evicted %d observations, want %d", evicted, extra)
	}

	tracks, err := s.Tracks(ctx, "v1")
	if err != nil {
		t.Fatalf("Tracks: %v", err)
	}
	if len(tracks) != 1 {
		t.Fatalf("got %d tracks, want 1", len(tracks))
	}
	tr := tracks[0]

	if got := len(tr.Observations); got != cfg.MaxObservationsPerTrack {
		t.Fatalf("track holds %d observations, want %d", got, cfg.MaxObservationsPerTrack)
	}
	// The survivors are the most recent fixes, still in order.
	for i, o := range tr.Observations {
		want := testBase.Add(time.Duration(extra+i) * time.Minute)
		if !o.ObservedAt.Equal(want) {
			t.Errorf("observation %d at %v, want %v", i, o.ObservedAt, want)
		}
	}
	// Eviction does not move the track's start boundary.
	if !tr.StartedAt.Equal(testBase) {
		t.Errorf("StartedAt = %v, want %v (unchanged by eviction)", tr.StartedAt, testBase)
	}
}

func TestAppendOutOfOrder(t *testing.T) {
	s := newTestStore(t, testConfig())
	ctx := context.Background()

	mustAppend(t, s, "v1", obsAt(testBase, 1, 1))
	mustAppend(t, s, "v1", obsAt(testBase.Add(2*time.Minute), 2, 2))

	// Strictly older than the open track's newest fix: dropped, no error.
	res := mustAppend(t, s, "v1", obsAt(testBase.Add(time.Minute), 9, 9))
	if res.Applied {
		t.Error("out-of-order observation was applied")
	}

	// Equal timestamp, same place: duplicate delivery, dropped.
	res = mustAppend(t, s, "v1", obsAt(testBase.Add(2*time.Minute), 2, 2))
	if res.Applied {
		t.Error("duplicate observation was applied")
	}

	// Equal timestamp, different place: a distinct fix, kept.
	res = mustAppend(t, s, "v1", obsAt(testBase.Add(2*time.Minute), 2.5, 2))
	if !res.Applied {
		t.Error("equal-timestamp observation at a new position was dropped")
	}

	tracks, err := s.Tracks(ctx, "v1")
	if err != nil {
		t.Fatalf("Tracks: %v", err)
	}
	if got, want := len(tracks[0].Observations), 3; got != want {
		t.Errorf("track holds %d observations, want %d", got, want)
	}
}

func TestAppendValidation(t *testing.T) {
	s := newTestStore(t, testConfig())
	ctx := context.Background()

	tests := []struct {
		name     string
		entityID string
		obs      models.PositionObservation
	}{
		{"empty entity id", "", obsAt(testBase, 1, 1)},
		{"zero timestamp", "v1", obsAt(time.Time{}, 1, 1)},
		{"bad latitude", "v1", obsAt(testBase, 91, 1)},
		{"bad longitude", "v1", obsAt(testBase, 1, 181)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Append(ctx, tt.entityID, tt.obs); !errors.Is(err, ErrInvalidObservation) {
				t.Errorf("Append error = %v, want ErrInvalidObservation", err)
			}
		})
	}
}

func TestSweepRetention(t *testing.T) {
	cfg := testConfig()
	cfg.RetentionHorizon = time.Hour
	s := newTestStore(t, cfg)
	ctx := context.Background()

	// v1: an old voyage followed by a recent one.
	mustAppend(t, s, "v1", obsAt(testBase, 1, 1))
	mustAppend(t, s, "v1", obsAt(testBase.Add(time.Minute), 1, 2))
	mustAppend(t, s, "v1", obsAt(testBase.Add(3*time.Hour), 2, 2)) // gap closes first track

	// v2: a single voyage that went quiet long ago.
	mustAppend(t, s, "v2", obsAt(testBase, 5, 5))

	now := testBase.Add(4 * time.Hour)
	removed, err := s.SweepRetention(ctx, now)
	if err != nil {
		t.Fatalf("SweepRetention: %v", err)
	}
	// v1's first track ended at testBase+1m, nearly 4h before now: expired.
	// v2's only track is idle-closed at testBase by this sweep and, ending
	// 4h ago, expires in the same pass.
	if removed != 2 {
		t.Fatalf("removed %d tracks, want 2", removed)
	}

	tracks, err := s.Tracks(ctx, "v1")
	if err != nil {
		t.Fatalf("Tracks: %v", err)
	}
	if len(tracks) != 1 {
		t.Fatalf("v1 has %d tracks after sweep, want 1", len(tracks))
	}
	// The surviving track went quiet at testBase+3h, beyond the 5m gap, so
	// the sweep sealed it but its end is inside the retention horizon.
	if tracks[0].Open() {
		t.Error("surviving idle track should have been closed by sweep")
	}

	if st := s.Stats(); st.Entities != 1 {
		t.Errorf("store tracks %d entities after sweep, want 1 (v2 emptied)", st.Entities)
	}

	// A fresh observation for the emptied entity starts over cleanly.
	res := mustAppend(t, s, "v2", obsAt(now, 6, 6))
	if !res.NewTrack {
		t.Error("append after sweep should open a new track")
	}
}

func TestGetTrack(t *testing.T) {
	s := newTestStore(t, testConfig())
	ctx := context.Background()

	// Two tracks: t+0..t+2m and, after a gap, t+30m..t+31m.
	for i := 0; i < 3; i++ {
		mustAppend(t, s, "v1", obsAt(testBase.Add(time.Duration(i)*time.Minute), float64(i), 0))
	}
	mustAppend(t, s, "v1", obsAt(testBase.Add(30*time.Minute), 30, 0))
	mustAppend(t, s, "v1", obsAt(testBase.Add(31*time.Minute), 31, 0))

	t.Run("newest first by default", func(t *testing.T) {
		got, err := s.GetTrack(ctx, "v1", TrackQuery{})
		if err != nil {
			t.Fatalf("GetTrack: %v", err)
		}
		if len(got) != 5 {
			t.Fatalf("got %d observations, want 5", len(got))
		}
		for i := 1; i < len(got); i++ {
			if got[i].ObservedAt.After(got[i-1].ObservedAt) {
				t.Fatalf("observations not newest-first at index %d", i)
			}
		}
		if got[0].Lat != 31 {
			t.Errorf("first result lat = %v, want 31", got[0].Lat)
		}
	})

	t.Run("oldest first spans tracks in order", func(t *testing.T) {
		got, err := s.GetTrack(ctx, "v1", TrackQuery{Order: OldestFirst})
		if err != nil {
			t.Fatalf("GetTrack: %v", err)
		}
		if len(got) != 5 {
			t.Fatalf("got %d observations, want 5", len(got))
		}
		if got[0].Lat != 0 || got[4].Lat != 31 {
			t.Errorf("unexpected order: first lat %v, last lat %v", got[0].Lat, got[4].Lat)
		}
	})

	t.Run("window filter", func(t *testing.T) {
		got, err := s.GetTrack(ctx, "v1", TrackQuery{
			Start: testBase.Add(time.Minute),
			End:   testBase.Add(30 * time.Minute),
		})
		if err != nil {
			t.Fatalf("GetTrack: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("got %d observations in window, want 3", len(got))
		}
	})

	t.Run("limit truncates to most recent", func(t *testing.T) {
		got, err := s.GetTrack(ctx, "v1", TrackQuery{Limit: 2})
		if err != nil {
			t.Fatalf("GetTrack: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("got %d observations, want 2", len(got))
		}
		if got[0].Lat != 31 || got[1].Lat != 30 {
			t.Errorf("limit kept lats %v, %v; want 31, 30", got[0].Lat, got[1].Lat)
		}
	})

	t.Run("unknown entity", func(t *testing.T) {
		got, err := s.GetTrack(ctx, "ghost", TrackQuery{})
		if err != nil {
			t.Fatalf("GetTrack: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("got %d observations for unknown entity, want 0", len(got))
		}
	})
}

func TestCloseStopsAppends(t *testing.T) {
	s := newTestStore(t, testConfig())
	ctx := context.Background()

	mustAppend(t, s, "v1", obsAt(testBase, 1, 1))
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := s.Append(ctx, "v2", obsAt(testBase, 2, 2)); !errors.Is(err, ErrClosed) {
		t.Errorf("Append after Close error = %v, want ErrClosed", err)
	}

	// Reads still served during shutdown.
	got, err := s.GetTrack(ctx, "v1", TrackQuery{})
	if err != nil || len(got) != 1 {
		t.Errorf("GetTrack after Close = %d obs, err %v", len(got), err)
	}
}

func TestTracksReturnsCopies(t *testing.T) {
	s := newTestStore(t, testConfig())
	ctx := context.Background()

	mustAppend(t, s, "v1", obsAt(testBase, 1, 1))

	tracks, err := s.Tracks(ctx, "v1")
	if err != nil {
		t.Fatalf("Tracks: %v", err)
	}
	tracks[0].Observations[0].Lat = 99
	end := testBase
	tracks[0].EndedAt = &end

	again, err := s.Tracks(ctx, "v1")
	if err != nil {
		t.Fatalf("Tracks: %v", err)
	}
	if again[0].Observations[0].Lat != 1 {
		t.Error("mutating returned track leaked into the store")
	}
	if !again[0].Open() {
		t.Error("mutating returned track closed the stored one")
	}
}

func TestConcurrentAppendAndSweep(t *testing.T) {
	cfg := testConfig()
	cfg.RetentionHorizon = time.Hour
	cfg.MaxObservationsPerTrack = 100
	s := newTestStore(t, cfg)
	ctx := context.Background()

	const (
		entities = 8
		perWrite = 50
	)

	var wg sync.WaitGroup
	for e := 0; e < entities; e++ {
		wg.Add(1)
		go func(e int) {
			defer wg.Done()
			id := fmt.Sprintf("v%d", e)
			for i := 0; i < perWrite; i++ {
				ts := testBase.Add(time.Duration(i) * time.Second)
				if _, err := s.Append(ctx, id, obsAt(ts, float64(e), float64(i))); err != nil {
					t.Errorf("Append(%s): %v", id, err)
					return
				}
			}
		}(e)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 10; i++ {
			if _, err := s.SweepRetention(ctx, testBase.Add(time.Duration(i)*time.Second)); err != nil {
				t.Errorf("SweepRetention: %v", err)
				return
			}
		}
	}()

	wg.Wait()

	st := s.Stats()
	if st.Entities != entities {
		t.Errorf("store holds %d entities, want %d", st.Entities, entities)
	}
	// Appends are in order per entity, so every observation survives:
	// nothing was out of order and nothing aged past the horizon.
	if want := entities * perWrite; st.Observations != want {
		t.Errorf("store holds %d observations, want %d", st.Observations, want)
	}
}
