// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package api

import (
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/mhalvorsen/pelorus/internal/archive"
	"github.com/mhalvorsen/pelorus/internal/history"
	"github.com/mhalvorsen/pelorus/internal/logging"
	"github.com/mhalvorsen/pelorus/internal/models"
)

type entityListResponse struct {
	Items []*models.TrackedEntity `json:"items"`
	Count int                     `json:"count"`
	Total int                     `json:"total"`
}

type trackResponse struct {
	EntityID     string                       `json:"entity_id"`
	Observations []models.PositionObservation `json:"observations"`
	Count        int                          `json:"count"`
	// FromArchive counts observations that came from the DuckDB archive
	// rather than the in-memory history window.
	FromArchive int `json:"from_archive"`
}

// Vessels lists vessel entities with optional status/tracked/stale
// filters and limit/offset pagination.
func (h *Handler) Vessels(w http.ResponseWriter, r *http.Request) {
	h.listEntities(w, r, models.EntityVessel)
}

// VesselByID returns the current state of one vessel.
func (h *Handler) VesselByID(w http.ResponseWriter, r *http.Request) {
	h.entityByID(w, r, models.EntityVessel)
}

func (h *Handler) listEntities(w http.ResponseWriter, r *http.Request, kind models.EntityKind) {
	limit, offset, err := h.pageBounds(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return
	}

	tracked, trackedSet, err := queryBool(r, "tracked")
	if err != nil {
		respondError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return
	}
	stale, staleSet, err := queryBool(r, "stale")
	if err != nil {
		respondError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return
	}
	status := r.URL.Query().Get("status")

	all := h.entities.ListKind(r.Context(), kind)
	filtered := all[:0]
	for _, e := range all {
		if trackedSet && e.Tracked != tracked {
			continue
		}
		if staleSet && (e.StaleSince != nil) != stale {
			continue
		}
		if status != "" && string(e.Status) != status {
			continue
		}
		filtered = append(filtered, e)
	}

	total := len(filtered)
	page := paginate(filtered, limit, offset)
	respondJSON(w, http.StatusOK, entityListResponse{
		Items: page,
		Count: len(page),
		Total: total,
	})
}

func (h *Handler) entityByID(w http.ResponseWriter, r *http.Request, kind models.EntityKind) {
	id := chi.URLParam(r, "id")
	entity, ok := h.entities.Get(r.Context(), id)
	if !ok || entity.Kind != kind {
		respondError(w, http.StatusNotFound, codeNotFound, "No such "+string(kind)+": "+sanitizeLogValue(id))
		return
	}
	respondJSON(w, http.StatusOK, entity)
}

// VesselTrack returns the position track for one vessel. The in-memory
// history answers first; when an archive is configured it is also
// queried and the two are merged, deduplicated on source timestamp and
// feed, so a window reaching past the retention horizon comes back
// seamless.
func (h *Handler) VesselTrack(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	entity, ok := h.entities.Get(r.Context(), id)
	if !ok || entity.Kind != models.EntityVessel {
		respondError(w, http.StatusNotFound, codeNotFound, "No such vessel: "+sanitizeLogValue(id))
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
	limit, err := queryInt(r, "limit", h.cfg.API.DefaultTrackLimit, history.DefaultQueryLimit)
	if err != nil {
		respondError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return
	}

	order := history.NewestFirst
	switch r.URL.Query().Get("order") {
	case "", "newest":
	case "oldest":
		order = history.OldestFirst
	default:
		respondError(w, http.StatusBadRequest, codeInvalidRequest, "order must be newest or oldest")
		return
	}

	mem, err := h.history.GetTrack(r.Context(), id, history.TrackQuery{
		Start: start,
		End:   end,
		Limit: limit,
		Order: order,
	})
	if err != nil {
		logging.Error().Err(err).Str("entity_id", id).Msg("Track query failed")
		respondError(w, http.StatusInternalServerError, codeInternalError, "Track query failed")
		return
	}

	fromArchive := 0
	merged := mem
	if h.archive != nil {
		archived, err := h.archive.VesselTrack(r.Context(), id, archive.TrackQuery{
			Start:       start,
			End:         end,
			Limit:       limit,
			OldestFirst: order == history.OldestFirst,
		})
		if err != nil {
			// Memory still answers; a cold archive degrades depth, not
			// availability.
			logging.Warn().Err(err).Str("entity_id", id).Msg("Archive track query failed")
		} else {
			merged, fromArchive = mergeTracks(mem, archived, limit, order == history.OldestFirst)
		}
	}

	respondJSON(w, http.StatusOK, trackResponse{
		EntityID:     id,
		Observations: merged,
		Count:        len(merged),
		FromArchive:  fromArchive,
	})
}

// mergeTracks combines the in-memory window with archived rows. Memory
// wins on duplicates: the archive is fed from the same observations, so
// a fix present in both is counted once and not as archived.
func mergeTracks(mem, archived []models.PositionObservation, limit int, oldestFirst bool) ([]models.PositionObservation, int) {
	seen := make(map[int64]string, len(mem))
	for _, obs := range mem {
		seen[obs.ObservedAt.UnixNano()] = obs.Source
	}

	merged := make([]models.PositionObservation, len(mem), len(mem)+len(archived))
	copy(merged, mem)

	for _, obs := range archived {
		if src, ok := seen[obs.ObservedAt.UnixNano()]; ok && src == obs.Source {
			continue
		}
		merged = append(merged, obs)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if oldestFirst {
			return merged[i].ObservedAt.Before(merged[j].ObservedAt)
		}
		return merged[i].ObservedAt.After(merged[j].ObservedAt)
	})

	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}

	fromArchive := 0
	for _, obs := range merged {
		if src, ok := seen[obs.ObservedAt.UnixNano()]; !ok || src != obs.Source {
			fromArchive++
		}
	}
	return merged, fromArchive
}

func paginate(items []*models.TrackedEntity, limit, offset int) []*models.TrackedEntity {
	if offset >= len(items) {
		return []*models.TrackedEntity{}
	}
	end := offset + limit
	if limit <= 0 || end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
