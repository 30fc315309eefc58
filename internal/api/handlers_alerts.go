// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package api

import (
	"net/http"

	"github.com/mhalvorsen/pelorus/internal/archive"
	"github.com/mhalvorsen/pelorus/internal/logging"
	"github.com/mhalvorsen/pelorus/internal/models"
)

type alertListResponse struct {
	Alerts []*models.AlertCondition `json:"alerts"`
	Count  int                      `json:"count"`
}

type alertHistoryResponse struct {
	Events []archive.AlertEvent `json:"events"`
	Count  int                  `json:"count"`
}

// Alerts lists open alert conditions, optionally narrowed to one
// entity. resolved=true switches to the recently resolved buffer
// instead, the in-memory tail kept for dashboards; the full trail
// lives in the archive behind /alerts/history.
func (h *Handler) Alerts(w http.ResponseWriter, r *http.Request) {
	resolved, set, err := queryBool(r, "resolved")
	if err != nil {
		respondError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return
	}

	if set && resolved {
		limit, err := queryInt(r, "limit", h.cfg.API.DefaultPageSize, h.cfg.API.MaxPageSize)
		if err != nil {
			respondError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
			return
		}
		alerts := h.alerts.RecentResolved(limit)
		respondJSON(w, http.StatusOK, alertListResponse{Alerts: alerts, Count: len(alerts)})
		return
	}

	var alerts []*models.AlertCondition
	if entityID := r.URL.Query().Get("entity"); entityID != "" {
		alerts = h.alerts.OpenAlerts(entityID)
	} else {
		alerts = h.alerts.AllOpen()
	}

	respondJSON(w, http.StatusOK, alertListResponse{Alerts: alerts, Count: len(alerts)})
}

// AlertHistory queries archived alert transitions. Requires the archive;
// without it only the live reconciler state exists.
func (h *Handler) AlertHistory(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		respondError(w, http.StatusServiceUnavailable, codeServiceUnavailable,
			"Alert history requires the archive, which is disabled")
		return
	}

	start, err := queryTime(r, "start")
	if err != nil {
		respondError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return
	}
	end, err := queryTime(r, "end")
	if err != nil {
		respondError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return
	}
	limit, err := queryInt(r, "limit", h.cfg.API.DefaultPageSize, h.cfg.API.MaxPageSize)
	if err != nil {
		respondError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return
	}

	events, err := h.archive.AlertHistory(r.Context(), archive.AlertQuery{
		EntityID: r.URL.Query().Get("entity"),
		Start:    start,
		End:      end,
		Limit:    limit,
	})
	if err != nil {
		logging.Error().Err(err).Msg("Alert history query failed")
		respondError(w, http.StatusInternalServerError, codeInternalError, "Alert history query failed")
		return
	}

	respondJSON(w, http.StatusOK, alertHistoryResponse{Events: events, Count: len(events)})
}
