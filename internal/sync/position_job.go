// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package sync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/mhalvorsen/pelorus/internal/alerting"
	"github.com/mhalvorsen/pelorus/internal/geo"
	"github.com/mhalvorsen/pelorus/internal/logging"
	"github.com/mhalvorsen/pelorus/internal/metrics"
	"github.com/mhalvorsen/pelorus/internal/models"
)

// runPositionSync performs one ingestion sweep: fetch a batch from the
// provider chain, fan entities out across the worker pool, and run the
// per-entity pipeline (upsert, history, detection, reconciliation,
// publish) in strict order within each entity. One failing entity never
// aborts the sweep; a storage failure does.
func (m *Manager) runPositionSync(ctx context.Context) error {
	start := m.clock.Now()

	readings, err := m.positions.FetchPositions(ctx)
	if err != nil {
		return fmt.Errorf("fetch positions: %w", err)
	}
	if len(readings) == 0 {
		logging.Debug().Str("source", m.positions.Name()).Msg("Empty position batch")
		m.setLastSync(m.clock.Now())
		return nil
	}

	var walID uint64
	if m.wal != nil {
		walID, err = m.wal.WriteBatch(ctx, m.positions.Name(), readings)
		metrics.RecordWALWrite(err)
		if err != nil {
			// The WAL is durability insurance, not a gate: ingestion
			// proceeds and the failure is surfaced for operators.
			logging.Warn().Err(err).Msg("WAL batch write failed, continuing without replay cover")
			walID = 0
		}
	}

	batches := m.groupReadings(ctx, readings)
	activeZones := m.zones.Active(ctx, m.clock.Now().UTC())

	var counters sweepCounters

	group := m.pool.NewGroupContext(ctx)
	for entityID, batch := range batches {
		group.SubmitErr(func() error {
			return m.syncEntity(ctx, entityID, batch, activeZones, &counters)
		})
	}
	if err := group.Wait(); err != nil {
		return fmt.Errorf("position sweep aborted: %w", err)
	}

	if m.wal != nil && walID != 0 {
		if err := m.wal.Confirm(ctx, walID); err != nil {
			logging.Warn().Err(err).Uint64("wal_id", walID).Msg("WAL confirm failed")
		}
	}

	st := m.history.Stats()
	metrics.HistoryObservations.Set(float64(st.Observations))
	metrics.HistoryTracks.Set(float64(st.Tracks))
	metrics.RecordIngest(m.positions.Name(), m.clock.Since(start))

	m.setLastSync(m.clock.Now())

	logging.Info().
		Int("readings", len(readings)).
		Int("entities", len(batches)).
		Int64("applied", counters.applied.Load()).
		Int64("stale", counters.stale.Load()).
		Int64("failed_entities", counters.failed.Load()).
		Dur("duration", m.clock.Since(start)).
		Msg("Position sync completed")

	return nil
}

// ReplayBatch pushes a logged batch through the same pipeline a live
// sweep uses. The WAL calls it at startup for every unconfirmed batch;
// staleness checks in the entity store make re-applying a half-finished
// batch harmless. The caller confirms the batch only when this returns
// nil.
func (m *Manager) ReplayBatch(ctx context.Context, source string, readings []models.Reading) error {
	start := m.clock.Now()

	batches := m.groupReadings(ctx, readings)
	activeZones := m.zones.Active(ctx, m.clock.Now().UTC())

	var counters sweepCounters

	group := m.pool.NewGroupContext(ctx)
	for entityID, batch := range batches {
		group.SubmitErr(func() error {
			return m.syncEntity(ctx, entityID, batch, activeZones, &counters)
		})
	}
	if err := group.Wait(); err != nil {
		return fmt.Errorf("replay aborted: %w", err)
	}

	logging.Info().
		Str("source", source).
		Int("readings", len(readings)).
		Int("entities", len(batches)).
		Int64("applied", counters.applied.Load()).
		Int64("stale", counters.stale.Load()).
		Dur("duration", m.clock.Since(start)).
		Msg("Replayed logged batch")

	return nil
}

// sweepCounters aggregates per-entity outcomes across the worker group.
type sweepCounters struct {
	applied atomic.Int64
	stale   atomic.Int64
	failed  atomic.Int64
}

// syncEntity runs one entity's batch and applies the containment policy:
// a storage failure propagates and aborts the sweep, anything else is
// counted, logged, and swallowed so the rest of the sweep proceeds. The
// next scheduled tick is the retry.
func (m *Manager) syncEntity(ctx context.Context, entityID string, batch []models.Reading, zones []*models.HazardZone, counters *sweepCounters) error {
	applied, stale, err := m.processEntity(ctx, entityID, batch, zones)
	counters.applied.Add(applied)
	counters.stale.Add(stale)
	if err != nil {
		if isStorageErr(err) {
			return err
		}
		counters.failed.Add(1)
		metrics.SyncEntitiesFailed.WithLabelValues(JobPositionSync).Inc()
		logging.Warn().
			Err(err).
			Str("entity_id", entityID).
			Msg("Entity pipeline failed, continuing sweep")
	}
	return nil
}

// groupReadings validates the batch, resolves source keys against the
// registered entities, and groups the survivors per entity in source-time
// order. The pipeline never creates entities: readings for unregistered
// keys are counted and dropped.
func (m *Manager) groupReadings(ctx context.Context, readings []models.Reading) map[string][]models.Reading {
	grouped := make(map[string][]models.Reading)
	for _, r := range readings {
		if err := r.Validate(); err != nil {
			metrics.RecordMalformedReading(r.Source, malformedReason(err))
			logging.Warn().
				Err(err).
				Str("source", r.Source).
				Str("key", r.SourceEntityKey).
				Msg("Skipping malformed reading")
			continue
		}

		entityID, ok := m.entities.ResolveSourceKey(ctx, r.SourceEntityKey)
		if !ok {
			metrics.RecordReading(r.Source, "rejected")
			logging.Debug().
				Str("source", r.Source).
				Str("key", r.SourceEntityKey).
				Msg("Reading does not match a registered entity")
			continue
		}
		grouped[entityID] = append(grouped[entityID], r)
	}

	for _, batch := range grouped {
		sort.Slice(batch, func(i, j int) bool {
			return batch[i].ObservedAt.Before(batch[j].ObservedAt)
		})
	}
	return grouped
}

// processEntity applies one entity's readings in order. Each observation
// runs the full pipeline before the next one starts, so no two readings
// for the same entity are ever in flight together.
func (m *Manager) processEntity(ctx context.Context, entityID string, batch []models.Reading, zones []*models.HazardZone) (applied, stale int64, err error) {
	for _, r := range batch {
		obs := r.Observation(entityID, m.clock.Now().UTC())

		ok, err := m.entities.UpsertPosition(ctx, entityID, obs)
		if err != nil {
			return applied, stale, fmt.Errorf("upsert %s: %w", entityID, err)
		}
		if !ok {
			stale++
			metrics.RecordReading(r.Source, "stale")
			continue
		}
		applied++
		metrics.RecordReading(r.Source, "applied")

		res, err := m.history.Append(ctx, entityID, obs)
		if err != nil {
			return applied, stale, fmt.Errorf("history append %s: %w", entityID, err)
		}
		if res.NewTrack {
			metrics.HistoryTracksOpened.Inc()
		}
		if res.ClosedPrevious {
			metrics.HistoryTracksClosed.Inc()
		}
		if res.Evicted > 0 {
			metrics.HistoryEvictions.Add(float64(res.Evicted))
		}

		if m.archive != nil {
			if aerr := m.archive.ArchivePosition(ctx, obs); aerr != nil {
				logging.Warn().Err(aerr).Str("entity_id", entityID).Msg("Archive enqueue failed")
			}
		}

		// Re-delivered duplicates advance nothing; skip detection for them.
		if !res.Applied {
			continue
		}

		if err := m.detectAndReconcile(ctx, entityID, obs, zones); err != nil {
			return applied, stale, err
		}

		m.publishPositionUpdated(ctx, entityID)
	}
	return applied, stale, nil
}

// detectAndReconcile evaluates one applied observation against the
// active zones and feeds the hits through alert reconciliation.
func (m *Manager) detectAndReconcile(ctx context.Context, entityID string, obs models.PositionObservation, zones []*models.HazardZone) error {
	detectStart := m.clock.Now()
	hits := geo.Evaluate(obs.Position(), zones, m.clock.Now().UTC())
	metrics.DetectionDuration.Observe(m.clock.Since(detectStart).Seconds())
	for _, h := range hits {
		metrics.ZoneHits.WithLabelValues(string(h.Kind)).Inc()
	}

	outcomes, err := m.alerts.ReconcileHits(ctx, entityID, hits)
	if err != nil {
		return fmt.Errorf("reconcile %s: %w", entityID, err)
	}
	m.emitAlertOutcomes(ctx, outcomes)
	return nil
}

// emitAlertOutcomes publishes and records every transition produced by
// one reconciliation pass.
func (m *Manager) emitAlertOutcomes(ctx context.Context, outcomes []alerting.Outcome) {
	if len(outcomes) == 0 {
		return
	}
	for _, o := range outcomes {
		if o.Opened != nil {
			m.emitAlert(ctx, TransitionOpened, o.Opened)
		}
		if o.Updated != nil {
			m.emitAlert(ctx, TransitionUpdated, o.Updated)
		}
		if o.Resolved != nil {
			m.emitAlert(ctx, TransitionResolved, o.Resolved)
		}
	}
	metrics.AlertsOpen.Set(float64(m.alerts.OpenCount()))
}

func (m *Manager) emitAlert(ctx context.Context, transition string, cond *models.AlertCondition) {
	metrics.RecordAlertTransition(string(cond.Kind), transition)

	if m.archive != nil {
		if err := m.archive.ArchiveAlert(ctx, transition, cond); err != nil {
			logging.Warn().Err(err).Str("alert_id", cond.ID).Msg("Archive enqueue failed")
		}
	}
	if m.publisher != nil {
		if err := m.publisher.PublishAlert(ctx, transition, cond); err != nil {
			metrics.RecordEventPublishError("manager")
			logging.Warn().
				Err(err).
				Str("alert_id", cond.ID).
				Str("transition", transition).
				Msg("Alert publish failed")
		}
	}
}

// publishPositionUpdated sends the entity's fresh state to the publish
// sink. Failures are logged and dropped; ingestion never waits on a sink.
func (m *Manager) publishPositionUpdated(ctx context.Context, entityID string) {
	if m.publisher == nil {
		return
	}
	entity, ok := m.entities.Get(ctx, entityID)
	if !ok {
		return
	}
	if err := m.publisher.PublishPositionUpdated(ctx, entity); err != nil {
		metrics.RecordEventPublishError("manager")
		logging.Warn().Err(err).Str("entity_id", entityID).Msg("Position publish failed")
	}
}

// malformedReason buckets reading validation failures for the metrics
// label; the full error is in the log line.
func malformedReason(err error) string {
	switch {
	case errors.Is(err, models.ErrReadingNoKey):
		return "no_key"
	case errors.Is(err, models.ErrReadingBadCoords):
		return "bad_coords"
	case errors.Is(err, models.ErrReadingNoTimestamp):
		return "no_timestamp"
	default:
		return "other"
	}
}
