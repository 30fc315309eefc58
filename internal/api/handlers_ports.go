// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mhalvorsen/pelorus/internal/archive"
	"github.com/mhalvorsen/pelorus/internal/logging"
	"github.com/mhalvorsen/pelorus/internal/models"
)

type congestionResponse struct {
	PortID  string                       `json:"port_id"`
	Current *models.Congestion           `json:"current,omitempty"`
	History []archive.CongestionSnapshot `json:"history,omitempty"`
}

// Ports lists port entities; each carries its current congestion
// snapshot when one has been computed.
func (h *Handler) Ports(w http.ResponseWriter, r *http.Request) {
	h.listEntities(w, r, models.EntityPort)
}

// PortByID returns the current state of one port.
func (h *Handler) PortByID(w http.ResponseWriter, r *http.Request) {
	h.entityByID(w, r, models.EntityPort)
}

// PortCongestion returns the port's current congestion snapshot plus
// archived samples when the archive is configured.
func (h *Handler) PortCongestion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	entity, ok := h.entities.Get(r.Context(), id)
	if !ok || entity.Kind != models.EntityPort {
		respondError(w, http.StatusNotFound, codeNotFound, "No such port: "+sanitizeLogValue(id))
		return
	}

	limit, err := queryInt(r, "limit", h.cfg.API.DefaultPageSize, h.cfg.API.MaxPageSize)
	if err != nil {
		respondError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return
	}

	resp := congestionResponse{PortID: id, Current: entity.Congestion}
	if h.archive != nil {
		rows, err := h.archive.CongestionHistory(r.Context(), id, limit)
		if err != nil {
			logging.Warn().Err(err).Str("port_id", id).Msg("Congestion history query failed")
		} else {
			resp.History = rows
		}
	}

	respondJSON(w, http.StatusOK, resp)
}
