// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package sync

import (
	"context"
	"fmt"

	"github.com/mhalvorsen/pelorus/internal/logging"
	"github.com/mhalvorsen/pelorus/internal/metrics"
	"github.com/mhalvorsen/pelorus/internal/models"
)

// runRetentionSweep deletes closed tracks past the retention horizon and
// prunes the archive to the same cutoff.
func (m *Manager) runRetentionSweep(ctx context.Context) error {
	start := m.clock.Now()
	now := start.UTC()

	removed, err := m.history.SweepRetention(ctx, now)
	if err != nil {
		return fmt.Errorf("retention sweep: %w", err)
	}
	metrics.RetentionTracksRemoved.Add(float64(removed))
	metrics.RetentionSweepDuration.Observe(m.clock.Since(start).Seconds())

	st := m.history.Stats()
	metrics.HistoryObservations.Set(float64(st.Observations))
	metrics.HistoryTracks.Set(float64(st.Tracks))

	var pruned int64
	if m.archive != nil {
		cutoff := now.Add(-m.cfg.History.RetentionHorizon)
		pruned, err = m.archive.PruneBefore(ctx, cutoff)
		if err != nil {
			logging.Warn().Err(err).Time("cutoff", cutoff).Msg("Archive prune failed")
		} else {
			metrics.ArchiveRowsPruned.Add(float64(pruned))
		}
	}

	logging.Info().
		Int("tracks_removed", removed).
		Int64("archive_rows_pruned", pruned).
		Dur("duration", m.clock.Since(start)).
		Msg("Retention sweep completed")
	return nil
}

// runStaleCheck flags tracked vessels that have not had an applied
// observation within the staleness horizon. The flag is sticky until the
// next applied observation clears it, so each vessel is announced once.
func (m *Manager) runStaleCheck(ctx context.Context) error {
	now := m.clock.Now().UTC()
	horizon := m.cfg.Sync.StaleAfter

	var staleCount, newlyFlagged int
	for _, v := range m.entities.ListTracked(ctx, models.EntityVessel) {
		if v.LastUpdate.IsZero() || now.Sub(v.LastUpdate) <= horizon {
			continue
		}
		staleCount++
		if v.StaleSince != nil {
			continue
		}
		changed, err := m.entities.SetStale(ctx, v.ID, now)
		if err != nil {
			if isStorageErr(err) {
				return fmt.Errorf("flag stale %s: %w", v.ID, err)
			}
			logging.Warn().Err(err).Str("entity_id", v.ID).Msg("Stale flag failed, continuing sweep")
			continue
		}
		if changed {
			newlyFlagged++
			logging.Warn().
				Str("entity_id", v.ID).
				Str("name", v.Name).
				Time("last_update", v.LastUpdate).
				Msg("Vessel position data is stale")
		}
	}
	metrics.EntitiesStale.Set(float64(staleCount))

	if newlyFlagged > 0 {
		logging.Info().
			Int("stale", staleCount).
			Int("newly_flagged", newlyFlagged).
			Dur("horizon", horizon).
			Msg("Stale tracking check completed")
	}
	return nil
}
