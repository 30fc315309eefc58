// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/mhalvorsen/pelorus/internal/auth"
	"github.com/mhalvorsen/pelorus/internal/logging"
	"github.com/mhalvorsen/pelorus/internal/models"
	"github.com/mhalvorsen/pelorus/internal/store"
	"github.com/mhalvorsen/pelorus/internal/validation"
)

const maxZoneBody = 1 << 20 // 1 MiB

type zoneListResponse struct {
	Zones []*models.HazardZone `json:"zones"`
	Count int                  `json:"count"`
}

// Zones lists hazard zones. active=true narrows to zones in effect
// right now; the default returns everything, including expired and
// disabled zones, for administration.
func (h *Handler) Zones(w http.ResponseWriter, r *http.Request) {
	activeOnly, set, err := queryBool(r, "active")
	if err != nil {
		respondError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return
	}

	var zones []*models.HazardZone
	if set && activeOnly {
		zones = h.zones.Active(r.Context(), time.Now())
	} else {
		zones = h.zones.All(r.Context())
	}

	respondJSON(w, http.StatusOK, zoneListResponse{Zones: zones, Count: len(zones)})
}

// ZoneByID returns one zone.
func (h *Handler) ZoneByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	zone, ok := h.zones.Get(r.Context(), id)
	if !ok {
		respondError(w, http.StatusNotFound, codeNotFound, "No such zone: "+sanitizeLogValue(id))
		return
	}
	respondJSON(w, http.StatusOK, zone)
}

// ZoneCreate registers an admin-created zone. The payload is validated
// before it touches the registry; a zone with neither a polygon ring
// nor a circle is rejected by the registry's own invariant.
func (h *Handler) ZoneCreate(w http.ResponseWriter, r *http.Request) {
	var req createZoneRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxZoneBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, codeInvalidRequest, "Malformed JSON body")
		return
	}

	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidationError(w, verr)
		return
	}

	zone := req.toModel()
	if err := h.zones.Put(r.Context(), zone); err != nil {
		if errors.Is(err, store.ErrInvalidZone) {
			respondError(w, http.StatusBadRequest, codeValidationError,
				"Zone needs a polygon of at least three points or a center with radius_km")
			return
		}
		logging.Error().Err(err).Str("zone_id", zone.ID).Msg("Zone create failed")
		respondError(w, http.StatusInternalServerError, codeInternalError, "Zone create failed")
		return
	}

	if sub, ok := auth.SubjectFrom(r.Context()); ok {
		logging.Info().
			Str("zone_id", zone.ID).
			Str("kind", string(zone.Kind)).
			Str("severity", string(zone.Severity)).
			Str("username", sub.Username).
			Msg("Zone created")
	}

	respondJSON(w, http.StatusCreated, zone)
}

// ZoneDelete removes a zone by ID. Feed-owned zones can be deleted too;
// the next hazard sync will restore them if the feed still carries them.
func (h *Handler) ZoneDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.zones.Remove(r.Context(), id) {
		respondError(w, http.StatusNotFound, codeNotFound, "No such zone: "+sanitizeLogValue(id))
		return
	}

	if sub, ok := auth.SubjectFrom(r.Context()); ok {
		logging.Info().Str("zone_id", id).Str("username", sub.Username).Msg("Zone deleted")
	}
	w.WriteHeader(http.StatusNoContent)
}
