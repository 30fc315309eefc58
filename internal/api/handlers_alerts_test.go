// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mhalvorsen/pelorus/internal/archive"
	"github.com/mhalvorsen/pelorus/internal/geo"
	"github.com/mhalvorsen/pelorus/internal/models"
)

func openAlert(t *testing.T, f *fixture, entityID string, kind models.HazardKind) {
	t.Helper()
	hits := []geo.ZoneHit{{ZoneID: "storm-biscay", Kind: kind, Severity: models.SeverityHigh}}
	if _, err := f.alerts.Reconcile(context.Background(), entityID, kind, hits); err != nil {
		t.Fatalf("open alert: %v", err)
	}
}

func resolveAlert(t *testing.T, f *fixture, entityID string, kind models.HazardKind) {
	t.Helper()
	if _, err := f.alerts.Reconcile(context.Background(), entityID, kind, nil); err != nil {
		t.Fatalf("resolve alert: %v", err)
	}
}

func TestAlertsOpen(t *testing.T) {
	f := newFixture(t)
	openAlert(t, f, vesselID, models.HazardStorm)
	openAlert(t, f, staleID, models.HazardPiracy)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/alerts", nil)
	w := httptest.NewRecorder()
	f.handler.Alerts(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp alertListResponse
	decodeBody(t, w.Body, &resp)
	if resp.Count != 2 {
		t.Fatalf("count = %d, want 2", resp.Count)
	}
	for _, a := range resp.Alerts {
		if a.State != models.AlertOpen {
			t.Errorf("alert %s state = %s, want open", a.ID, a.State)
		}
	}
}

func TestAlertsFilterByEntity(t *testing.T) {
	f := newFixture(t)
	openAlert(t, f, vesselID, models.HazardStorm)
	openAlert(t, f, staleID, models.HazardPiracy)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/alerts?entity="+vesselID, nil)
	w := httptest.NewRecorder()
	f.handler.Alerts(w, req)

	var resp alertListResponse
	decodeBody(t, w.Body, &resp)
	if resp.Count != 1 || resp.Alerts[0].EntityID != vesselID {
		t.Fatalf("alerts = %+v", resp.Alerts)
	}
}

func TestAlertsResolvedBuffer(t *testing.T) {
	f := newFixture(t)
	openAlert(t, f, vesselID, models.HazardStorm)
	resolveAlert(t, f, vesselID, models.HazardStorm)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/alerts?resolved=true", nil)
	w := httptest.NewRecorder()
	f.handler.Alerts(w, req)

	var resp alertListResponse
	decodeBody(t, w.Body, &resp)
	if resp.Count != 1 || resp.Alerts[0].State != models.AlertResolved {
		t.Fatalf("resolved = %+v", resp.Alerts)
	}

	// The open listing no longer carries it.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/alerts", nil)
	w = httptest.NewRecorder()
	f.handler.Alerts(w, req)
	decodeBody(t, w.Body, &resp)
	if resp.Count != 0 {
		t.Errorf("open count = %d after resolve, want 0", resp.Count)
	}
}

func TestAlertsBadQuery(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/alerts?resolved=perhaps", nil)
	w := httptest.NewRecorder()
	f.handler.Alerts(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestAlertHistory(t *testing.T) {
	f := newFixture(t)
	now := time.Now().UTC()
	f.arch.alertEvents = []archive.AlertEvent{
		{AlertID: "a-1", EntityID: vesselID, Transition: "opened", HazardKind: "storm", Severity: "high", RecordedAt: now.Add(-2 * time.Hour)},
		{AlertID: "a-1", EntityID: vesselID, Transition: "resolved", HazardKind: "storm", Severity: "high", RecordedAt: now.Add(-time.Hour)},
		{AlertID: "a-2", EntityID: staleID, Transition: "opened", HazardKind: "piracy", Severity: "critical", RecordedAt: now.Add(-30 * time.Minute)},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/alerts/history", nil)
	w := httptest.NewRecorder()
	f.handler.AlertHistory(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp alertHistoryResponse
	decodeBody(t, w.Body, &resp)
	if resp.Count != 3 {
		t.Fatalf("count = %d, want 3", resp.Count)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/alerts/history?entity="+staleID, nil)
	w = httptest.NewRecorder()
	f.handler.AlertHistory(w, req)
	decodeBody(t, w.Body, &resp)
	if resp.Count != 1 || resp.Events[0].AlertID != "a-2" {
		t.Errorf("filtered events = %+v", resp.Events)
	}
}

func TestAlertHistoryWithoutArchive(t *testing.T) {
	f := newFixture(t)
	f.handler.archive = nil

	req := httptest.NewRequest(http.MethodGet, "/api/v1/alerts/history", nil)
	w := httptest.NewRecorder()
	f.handler.AlertHistory(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
	if code := errCode(t, w.Body); code != codeServiceUnavailable {
		t.Errorf("code = %s", code)
	}
}
