// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mhalvorsen/pelorus/internal/models"
)

func trackObs(ts time.Time, lat float64, source string) models.PositionObservation {
	return models.PositionObservation{
		EntityID:   vesselID,
		Lat:        lat,
		Lon:        lat / 2,
		ObservedAt: ts,
		ReceivedAt: ts.Add(2 * time.Second),
		Source:     source,
	}
}

func seedTrack(t *testing.T, f *fixture, obs ...models.PositionObservation) {
	t.Helper()
	for _, o := range obs {
		if _, err := f.history.Append(context.Background(), vesselID, o); err != nil {
			t.Fatalf("seed track: %v", err)
		}
	}
}

func TestVesselsList(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/vessels", nil)
	w := httptest.NewRecorder()
	f.handler.Vessels(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp entityListResponse
	decodeBody(t, w.Body, &resp)
	if resp.Total != 2 || resp.Count != 2 {
		t.Fatalf("total = %d count = %d, want 2 and 2", resp.Total, resp.Count)
	}
	// The store lists by ID, so the tracked vessel sorts first.
	if resp.Items[0].ID != vesselID || resp.Items[1].ID != staleID {
		t.Errorf("order = %s, %s", resp.Items[0].ID, resp.Items[1].ID)
	}
	for _, item := range resp.Items {
		if item.Kind != models.EntityVessel {
			t.Errorf("vessel listing leaked a %s", item.Kind)
		}
	}
}

func TestVesselsFilters(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"tracked", "?tracked=true", []string{vesselID}},
		{"untracked", "?tracked=false", []string{staleID}},
		{"stale", "?stale=true", []string{staleID}},
		{"fresh", "?stale=false", []string{vesselID}},
		{"status", "?status=at_anchor", []string{staleID}},
		{"status miss", "?status=aground", nil},
		{"combined", "?tracked=true&stale=false", []string{vesselID}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/vessels"+tt.query, nil)
			w := httptest.NewRecorder()
			f.handler.Vessels(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", w.Code)
			}
			var resp entityListResponse
			decodeBody(t, w.Body, &resp)
			if len(resp.Items) != len(tt.want) {
				t.Fatalf("got %d vessels, want %d", len(resp.Items), len(tt.want))
			}
			for i, id := range tt.want {
				if resp.Items[i].ID != id {
					t.Errorf("items[%d] = %s, want %s", i, resp.Items[i].ID, id)
				}
			}
		})
	}
}

func TestVesselsPagination(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/vessels?limit=1&offset=1", nil)
	w := httptest.NewRecorder()
	f.handler.Vessels(w, req)

	var resp entityListResponse
	decodeBody(t, w.Body, &resp)
	if resp.Total != 2 {
		t.Errorf("total = %d, want 2 regardless of page", resp.Total)
	}
	if resp.Count != 1 || len(resp.Items) != 1 || resp.Items[0].ID != staleID {
		t.Errorf("page = %+v, want just %s", resp.Items, staleID)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/vessels?offset=5", nil)
	w = httptest.NewRecorder()
	f.handler.Vessels(w, req)
	decodeBody(t, w.Body, &resp)
	if resp.Count != 0 || resp.Total != 2 {
		t.Errorf("past-the-end page: count = %d total = %d", resp.Count, resp.Total)
	}
}

func TestVesselsBadQuery(t *testing.T) {
	f := newFixture(t)

	for _, query := range []string{"?tracked=maybe", "?stale=42abc", "?limit=x", "?offset=-3"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/vessels"+query, nil)
		w := httptest.NewRecorder()
		f.handler.Vessels(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", query, w.Code)
			continue
		}
		if code := errCode(t, w.Body); code != codeInvalidRequest {
			t.Errorf("%s: code = %s, want %s", query, code, codeInvalidRequest)
		}
	}
}

func TestVesselByID(t *testing.T) {
	f := newFixture(t)

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/vessels/"+vesselID, nil), "id", vesselID)
	w := httptest.NewRecorder()
	f.handler.VesselByID(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var got models.TrackedEntity
	decodeBody(t, w.Body, &got)
	if got.ID != vesselID || got.Name != "MV NORDVIND" {
		t.Errorf("entity = %s %q", got.ID, got.Name)
	}
}

func TestVesselByIDNotFound(t *testing.T) {
	f := newFixture(t)

	// A port must not answer on the vessel endpoint.
	for _, id := range []string{"000000000", portID} {
		req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/vessels/"+id, nil), "id", id)
		w := httptest.NewRecorder()
		f.handler.VesselByID(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("%s: status = %d, want 404", id, w.Code)
			continue
		}
		if code := errCode(t, w.Body); code != codeNotFound {
			t.Errorf("%s: code = %s", id, code)
		}
	}
}

func TestVesselTrackMemoryOnly(t *testing.T) {
	f := newFixture(t)
	base := time.Now().UTC().Add(-2 * time.Hour).Truncate(time.Second)
	seedTrack(t, f,
		trackObs(base, 51.0, "ais-live"),
		trackObs(base.Add(10*time.Minute), 51.1, "ais-live"),
		trackObs(base.Add(20*time.Minute), 51.2, "ais-live"),
	)

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/vessels/"+vesselID+"/track", nil), "id", vesselID)
	w := httptest.NewRecorder()
	f.handler.VesselTrack(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp trackResponse
	decodeBody(t, w.Body, &resp)
	if resp.EntityID != vesselID || resp.Count != 3 || resp.FromArchive != 0 {
		t.Fatalf("resp = %s count=%d from_archive=%d", resp.EntityID, resp.Count, resp.FromArchive)
	}
	// Default order is newest first.
	if !resp.Observations[0].ObservedAt.After(resp.Observations[2].ObservedAt) {
		t.Error("observations not newest-first")
	}
}

func TestVesselTrackMergesArchive(t *testing.T) {
	f := newFixture(t)
	base := time.Now().UTC().Add(-3 * time.Hour).Truncate(time.Second)

	// Memory holds the two newest fixes; the archive holds an older one
	// plus a duplicate of a fix memory already has.
	seedTrack(t, f,
		trackObs(base.Add(time.Hour), 51.1, "ais-live"),
		trackObs(base.Add(2*time.Hour), 51.2, "ais-live"),
	)
	f.arch.tracks[vesselID] = []models.PositionObservation{
		trackObs(base.Add(2*time.Hour), 51.2, "ais-live"), // duplicate
		trackObs(base, 51.0, "ais-live"),                  // archive-only
	}

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/vessels/"+vesselID+"/track", nil), "id", vesselID)
	w := httptest.NewRecorder()
	f.handler.VesselTrack(w, req)

	var resp trackResponse
	decodeBody(t, w.Body, &resp)
	if resp.Count != 3 {
		t.Fatalf("count = %d, want 3 (duplicate collapsed)", resp.Count)
	}
	if resp.FromArchive != 1 {
		t.Errorf("from_archive = %d, want 1", resp.FromArchive)
	}
	if !resp.Observations[2].ObservedAt.Equal(base) {
		t.Errorf("oldest fix = %v, want the archive-only one at %v", resp.Observations[2].ObservedAt, base)
	}
}

func TestVesselTrackOrderOldest(t *testing.T) {
	f := newFixture(t)
	base := time.Now().UTC().Add(-2 * time.Hour).Truncate(time.Second)
	seedTrack(t, f,
		trackObs(base, 51.0, "ais-live"),
		trackObs(base.Add(30*time.Minute), 51.1, "ais-live"),
	)

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/vessels/"+vesselID+"/track?order=oldest", nil), "id", vesselID)
	w := httptest.NewRecorder()
	f.handler.VesselTrack(w, req)

	var resp trackResponse
	decodeBody(t, w.Body, &resp)
	if resp.Count != 2 || !resp.Observations[0].ObservedAt.Equal(base) {
		t.Errorf("oldest-first order broken: %+v", resp.Observations)
	}
}

func TestVesselTrackBadParams(t *testing.T) {
	f := newFixture(t)

	for _, query := range []string{"?order=sideways", "?start=yesterday", "?end=2026-13-99", "?limit=many"} {
		req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/vessels/"+vesselID+"/track"+query, nil), "id", vesselID)
		w := httptest.NewRecorder()
		f.handler.VesselTrack(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", query, w.Code)
		}
	}
}

func TestVesselTrackUnknownVessel(t *testing.T) {
	f := newFixture(t)

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/vessels/999999999/track", nil), "id", "999999999")
	w := httptest.NewRecorder()
	f.handler.VesselTrack(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestVesselTrackArchiveErrorDegrades(t *testing.T) {
	f := newFixture(t)
	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	seedTrack(t, f, trackObs(base, 51.0, "ais-live"))
	f.arch.trackErr = errors.New("duckdb offline")

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/vessels/"+vesselID+"/track", nil), "id", vesselID)
	w := httptest.NewRecorder()
	f.handler.VesselTrack(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 from memory alone", w.Code)
	}
	var resp trackResponse
	decodeBody(t, w.Body, &resp)
	if resp.Count != 1 || resp.FromArchive != 0 {
		t.Errorf("count = %d from_archive = %d", resp.Count, resp.FromArchive)
	}
}

func TestMergeTracks(t *testing.T) {
	base := time.Date(2026, time.March, 14, 8, 0, 0, 0, time.UTC)
	at := func(m int) time.Time { return base.Add(time.Duration(m) * time.Minute) }

	mem := []models.PositionObservation{
		trackObs(at(30), 51.3, "ais-live"),
		trackObs(at(20), 51.2, "ais-live"),
	}
	archived := []models.PositionObservation{
		trackObs(at(20), 51.2, "ais-live"), // duplicate of memory
		trackObs(at(10), 51.1, "ais-live"),
		trackObs(at(0), 51.0, "ais-live"),
	}

	merged, fromArchive := mergeTracks(mem, archived, 0, false)
	if len(merged) != 4 || fromArchive != 2 {
		t.Fatalf("len = %d from_archive = %d, want 4 and 2", len(merged), fromArchive)
	}
	for i := 1; i < len(merged); i++ {
		if merged[i].ObservedAt.After(merged[i-1].ObservedAt) {
			t.Fatal("merged track not newest-first")
		}
	}

	// Truncation recounts: only survivors count as archived.
	merged, fromArchive = mergeTracks(mem, archived, 2, false)
	if len(merged) != 2 || fromArchive != 0 {
		t.Errorf("limit 2: len = %d from_archive = %d, want 2 and 0", len(merged), fromArchive)
	}

	merged, fromArchive = mergeTracks(mem, archived, 2, true)
	if len(merged) != 2 || fromArchive != 2 {
		t.Errorf("oldest-first limit 2: len = %d from_archive = %d, want 2 and 2", len(merged), fromArchive)
	}
	if !merged[0].ObservedAt.Equal(at(0)) {
		t.Errorf("oldest-first starts at %v, want %v", merged[0].ObservedAt, at(0))
	}

	// A same-timestamp fix from a different feed is a distinct observation.
	other := []models.PositionObservation{trackObs(at(30), 51.3, "sat-feed")}
	merged, fromArchive = mergeTracks(mem, other, 0, false)
	if len(merged) != 3 || fromArchive != 1 {
		t.Errorf("cross-feed: len = %d from_archive = %d, want 3 and 1", len(merged), fromArchive)
	}
}
