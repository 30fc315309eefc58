// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package api

import (
	"net/http"
	"time"

	"github.com/mhalvorsen/pelorus/internal/middleware"
	syncpkg "github.com/mhalvorsen/pelorus/internal/sync"
)

const apiVersion = "1.0.0"

type healthStatus struct {
	Status        string     `json:"status"`
	Version       string     `json:"version"`
	UptimeSeconds float64    `json:"uptime_seconds"`
	LastSync      *time.Time `json:"last_sync,omitempty"`

	ArchiveEnabled   bool `json:"archive_enabled"`
	ArchiveConnected bool `json:"archive_connected"`

	TrackedEntities int `json:"tracked_entities"`
	ActiveZones     int `json:"active_zones"`
	OpenAlerts      int `json:"open_alerts"`
	WSClients       int `json:"ws_clients"`

	Jobs      []syncpkg.JobStatus        `json:"jobs,omitempty"`
	Endpoints []middleware.EndpointStats `json:"endpoints,omitempty"`
}

// Health reports overall service state: subsystem connectivity, store
// population, job scheduling snapshots, and per-endpoint latency from
// the monitor.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	archiveEnabled := h.archive != nil
	archiveConnected := archiveEnabled && h.archive.Ping(ctx) == nil

	// The in-memory stores cannot fail a liveness check; degradation
	// means a configured persistence layer is unreachable.
	status := "healthy"
	if archiveEnabled && !archiveConnected {
		status = "degraded"
	}

	payload := healthStatus{
		Status:           status,
		Version:          apiVersion,
		UptimeSeconds:    time.Since(h.startTime).Seconds(),
		ArchiveEnabled:   archiveEnabled,
		ArchiveConnected: archiveConnected,
		TrackedEntities:  h.entities.Len(),
		ActiveZones:      len(h.zones.Active(ctx, time.Now())),
		OpenAlerts:       h.alerts.OpenCount(),
		Endpoints:        h.latency.Stats(),
	}

	if h.hub != nil {
		payload.WSClients = h.hub.GetClientCount()
	}
	if h.syncMgr != nil {
		payload.Jobs = h.syncMgr.Status()
		if last := h.syncMgr.LastSyncTime(); !last.IsZero() {
			payload.LastSync = &last
		}
	}

	respondJSON(w, http.StatusOK, payload)
}

// HealthLive is the liveness probe: the process answers, so it is
// alive, regardless of dependency state.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"alive":          true,
		"uptime_seconds": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady is the readiness probe. Not ready while a configured
// archive is unreachable, so rollout gates hold traffic until DuckDB
// has opened.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	archiveEnabled := h.archive != nil
	archiveConnected := archiveEnabled && h.archive.Ping(r.Context()) == nil

	ready := !archiveEnabled || archiveConnected
	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}

	respondJSON(w, status, map[string]interface{}{
		"ready":             ready,
		"archive_enabled":   archiveEnabled,
		"archive_connected": archiveConnected,
	})
}
