// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mhalvorsen/pelorus/internal/archive"
	"github.com/mhalvorsen/pelorus/internal/models"
)

func TestPortsList(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ports", nil)
	w := httptest.NewRecorder()
	f.handler.Ports(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp entityListResponse
	decodeBody(t, w.Body, &resp)
	if resp.Total != 1 || resp.Items[0].ID != portID {
		t.Fatalf("ports = %+v", resp.Items)
	}
	if resp.Items[0].Congestion == nil || resp.Items[0].Congestion.Level != models.CongestionModerate {
		t.Error("port listing lost its congestion snapshot")
	}
}

func TestPortByID(t *testing.T) {
	f := newFixture(t)

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/ports/"+portID, nil), "id", portID)
	w := httptest.NewRecorder()
	f.handler.PortByID(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var got models.TrackedEntity
	decodeBody(t, w.Body, &got)
	if got.Kind != models.EntityPort || got.PortCapacity != 80 {
		t.Errorf("port = %+v", got)
	}

	// Vessels must not answer on the port endpoint.
	req = withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/ports/"+vesselID, nil), "id", vesselID)
	w = httptest.NewRecorder()
	f.handler.PortByID(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("vessel on port endpoint: status = %d, want 404", w.Code)
	}
}

func TestPortCongestion(t *testing.T) {
	f := newFixture(t)
	f.arch.congestion[portID] = []archive.CongestionSnapshot{
		{PortID: portID, VesselsInPort: 52, AvgWaitHours: 9.1, Level: "high", UpdatedAt: time.Now().Add(-2 * time.Hour)},
		{PortID: portID, VesselsInPort: 40, AvgWaitHours: 5.0, Level: "moderate", UpdatedAt: time.Now().Add(-4 * time.Hour)},
	}

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/ports/"+portID+"/congestion", nil), "id", portID)
	w := httptest.NewRecorder()
	f.handler.PortCongestion(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp congestionResponse
	decodeBody(t, w.Body, &resp)
	if resp.PortID != portID {
		t.Errorf("port_id = %s", resp.PortID)
	}
	if resp.Current == nil || resp.Current.VesselsInPort != 45 {
		t.Errorf("current = %+v, want the live snapshot", resp.Current)
	}
	if len(resp.History) != 2 || resp.History[0].VesselsInPort != 52 {
		t.Errorf("history = %+v", resp.History)
	}
}

func TestPortCongestionLimit(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 5; i++ {
		f.arch.congestion[portID] = append(f.arch.congestion[portID], archive.CongestionSnapshot{
			PortID:        portID,
			VesselsInPort: 30 + i,
			UpdatedAt:     time.Now().Add(-time.Duration(i) * time.Hour),
		})
	}

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/ports/"+portID+"/congestion?limit=2", nil), "id", portID)
	w := httptest.NewRecorder()
	f.handler.PortCongestion(w, req)

	var resp congestionResponse
	decodeBody(t, w.Body, &resp)
	if len(resp.History) != 2 {
		t.Errorf("history length = %d, want 2", len(resp.History))
	}
}

func TestPortCongestionWithoutArchive(t *testing.T) {
	f := newFixture(t)
	f.handler.archive = nil

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/ports/"+portID+"/congestion", nil), "id", portID)
	w := httptest.NewRecorder()
	f.handler.PortCongestion(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with live data only", w.Code)
	}
	var resp congestionResponse
	decodeBody(t, w.Body, &resp)
	if resp.Current == nil || resp.History != nil {
		t.Errorf("current = %v history = %v, want live snapshot and no history", resp.Current, resp.History)
	}
}

func TestPortCongestionUnknownPort(t *testing.T) {
	f := newFixture(t)

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/ports/SEGOT/congestion", nil), "id", "SEGOT")
	w := httptest.NewRecorder()
	f.handler.PortCongestion(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if code := errCode(t, w.Body); code != codeNotFound {
		t.Errorf("code = %s", code)
	}
}
