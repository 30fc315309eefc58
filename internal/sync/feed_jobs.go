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

// runHazardSync refreshes the feed-owned hazard zones. The registry
// swap is transactional per source tag: operator-created zones and
// other feeds' zones are untouched, and invalid advisories are skipped
// without failing the sync.
func (m *Manager) runHazardSync(ctx context.Context) error {
	zones, err := m.zoneFeed.FetchZones(ctx)
	if err != nil {
		return fmt.Errorf("fetch zones: %w", err)
	}

	applied, skipped := m.zones.ReplaceSource(ctx, m.zoneFeed.Name(), zones)
	metrics.ZoneSyncApplied.Add(float64(applied))
	metrics.ZoneSyncSkipped.Add(float64(skipped))
	metrics.ZonesActive.Set(float64(len(m.zones.Active(ctx, m.clock.Now().UTC()))))

	if skipped > 0 {
		logging.Warn().
			Int("skipped", skipped).
			Str("source", m.zoneFeed.Name()).
			Msg("Hazard feed delivered invalid advisories")
	}
	logging.Info().
		Int("applied", applied).
		Int("skipped", skipped).
		Str("source", m.zoneFeed.Name()).
		Msg("Hazard zone sync completed")
	return nil
}

// runCongestionSync applies a congestion sweep to the registered ports.
// Readings for unknown ports are dropped; stale snapshots lose to the
// newer state already present, mirroring the position upsert gate.
func (m *Manager) runCongestionSync(ctx context.Context) error {
	readings, err := m.congestion.FetchCongestion(ctx)
	if err != nil {
		return fmt.Errorf("fetch congestion: %w", err)
	}

	var applied, stale, unknown int
	for _, cr := range readings {
		portID, ok := m.entities.ResolveSourceKey(ctx, cr.PortID)
		if !ok {
			unknown++
			logging.Debug().Str("port", cr.PortID).Msg("Congestion reading for unregistered port")
			continue
		}
		port, ok := m.entities.Get(ctx, portID)
		if !ok || port.Kind != models.EntityPort {
			unknown++
			continue
		}

		snap := models.Congestion{
			VesselsInPort: cr.VesselsInPort,
			AvgWaitHours:  cr.AvgWaitHours,
			Level:         models.CongestionLevelFor(cr.VesselsInPort, port.PortCapacity),
			UpdatedAt:     cr.ObservedAt,
		}
		ok, err := m.entities.UpdateCongestion(ctx, portID, snap)
		if err != nil {
			if isStorageErr(err) {
				return fmt.Errorf("update congestion %s: %w", portID, err)
			}
			metrics.SyncEntitiesFailed.WithLabelValues(JobCongestionSync).Inc()
			logging.Warn().Err(err).Str("port", portID).Msg("Congestion update failed, continuing sweep")
			continue
		}
		if !ok {
			stale++
			continue
		}
		applied++

		if m.archive != nil {
			if aerr := m.archive.ArchiveCongestion(ctx, portID, snap); aerr != nil {
				logging.Warn().Err(aerr).Str("port", portID).Msg("Archive enqueue failed")
			}
		}
		m.publishCongestionUpdated(ctx, portID)
	}

	logging.Info().
		Int("readings", len(readings)).
		Int("applied", applied).
		Int("stale", stale).
		Int("unknown", unknown).
		Msg("Congestion sync completed")
	return nil
}

func (m *Manager) publishCongestionUpdated(ctx context.Context, portID string) {
	if m.publisher == nil {
		return
	}
	port, ok := m.entities.Get(ctx, portID)
	if !ok {
		return
	}
	if err := m.publisher.PublishCongestionUpdated(ctx, port); err != nil {
		metrics.RecordEventPublishError("manager")
		logging.Warn().Err(err).Str("port", portID).Msg("Congestion publish failed")
	}
}
