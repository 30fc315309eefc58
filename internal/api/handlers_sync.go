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

	"github.com/mhalvorsen/pelorus/internal/auth"
	"github.com/mhalvorsen/pelorus/internal/logging"
	syncpkg "github.com/mhalvorsen/pelorus/internal/sync"
)

type syncStatusResponse struct {
	Jobs     []syncpkg.JobStatus `json:"jobs"`
	LastSync *time.Time          `json:"last_sync,omitempty"`
}

// SyncStatus reports the scheduling snapshot of every ingestion job.
func (h *Handler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	if h.syncMgr == nil {
		respondError(w, http.StatusServiceUnavailable, codeServiceUnavailable, "Sync manager is not running")
		return
	}

	resp := syncStatusResponse{Jobs: h.syncMgr.Status()}
	if last := h.syncMgr.LastSyncTime(); !last.IsZero() {
		resp.LastSync = &last
	}
	respondJSON(w, http.StatusOK, resp)
}

// SyncTrigger schedules one immediate run of the named job. The run is
// asynchronous; 202 means it was handed to the scheduler, not that it
// finished. A job already mid-run is reported as a conflict rather
// than queued behind itself.
func (h *Handler) SyncTrigger(w http.ResponseWriter, r *http.Request) {
	if h.syncMgr == nil {
		respondError(w, http.StatusServiceUnavailable, codeServiceUnavailable, "Sync manager is not running")
		return
	}

	job := chi.URLParam(r, "job")
	err := h.syncMgr.TriggerJob(job)
	switch {
	case err == nil:
	case errors.Is(err, syncpkg.ErrUnknownJob):
		respondError(w, http.StatusNotFound, codeNotFound, "No such job: "+sanitizeLogValue(job))
		return
	case errors.Is(err, syncpkg.ErrJobBusy):
		respondError(w, http.StatusConflict, codeConflict, "Job is already running: "+sanitizeLogValue(job))
		return
	case errors.Is(err, syncpkg.ErrNotRunning):
		respondError(w, http.StatusServiceUnavailable, codeServiceUnavailable, "Sync manager is not running")
		return
	default:
		logging.Error().Err(err).Str("job", sanitizeLogValue(job)).Msg("Job trigger failed")
		respondError(w, http.StatusInternalServerError, codeInternalError, "Job trigger failed")
		return
	}

	if sub, ok := auth.SubjectFrom(r.Context()); ok {
		logging.Info().Str("job", job).Str("username", sub.Username).Msg("Job triggered via API")
	}

	respondJSON(w, http.StatusAccepted, map[string]string{
		"status": "triggered",
		"job":    job,
	})
}
