// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/jonboulle/clockwork"

	"github.com/mhalvorsen/pelorus/internal/alerting"
	"github.com/mhalvorsen/pelorus/internal/config"
	"github.com/mhalvorsen/pelorus/internal/history"
	"github.com/mhalvorsen/pelorus/internal/logging"
	"github.com/mhalvorsen/pelorus/internal/store"
)

// Manager lifecycle and trigger errors.
var (
	ErrNotRunning     = errors.New("sync manager is not running")
	ErrAlreadyRunning = errors.New("sync manager is already running")
	ErrUnknownJob     = errors.New("unknown sync job")
	ErrJobBusy        = errors.New("job run already in progress")
)

// Deps carries everything the Manager needs. Config, Entities, Zones,
// History, and Alerts are required. Clock defaults to the real clock.
// Sources default to what the configuration describes; tests inject
// fakes here. Publisher, WAL, and Archive are optional integrations.
type Deps struct {
	Config   *config.Config
	Entities *store.EntityStore
	Zones    *store.ZoneRegistry
	History  *history.Store
	Alerts   *alerting.Reconciler

	Clock clockwork.Clock

	Positions  PositionSource
	ZoneFeed   ZoneSource
	Congestion CongestionSource

	Publisher EventPublisher
	WAL       IngestWAL
	Archive   Archiver
}

// Manager owns the ingestion jobs. Each job ticks independently; the
// manager provides shared lifecycle (Start/Stop), the bounded worker
// pool for per-entity fan-out, and manual triggering for the API layer.
type Manager struct {
	cfg      *config.Config
	entities *store.EntityStore
	zones    *store.ZoneRegistry
	history  *history.Store
	alerts   *alerting.Reconciler
	clock    clockwork.Clock

	positions  PositionSource
	zoneFeed   ZoneSource
	congestion CongestionSource

	publisher EventPublisher
	wal       IngestWAL
	archive   Archiver

	pool pond.Pool
	jobs []*job

	mu       sync.RWMutex
	running  bool
	lastSync time.Time

	runCtx    context.Context
	runCancel context.CancelFunc
	stopChan  chan struct{}
	wg        sync.WaitGroup
}

// NewManager wires a manager from its dependencies. Sources left nil in
// deps are built from configuration; a source that is disabled (or has
// no enabled providers) leaves its job unregistered and Pelorus runs in
// standalone mode for that concern.
func NewManager(deps Deps) (*Manager, error) {
	if deps.Config == nil {
		return nil, errors.New("sync: config is required")
	}
	if deps.Entities == nil || deps.Zones == nil || deps.History == nil || deps.Alerts == nil {
		return nil, errors.New("sync: entity store, zone registry, history store, and reconciler are required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	workers := deps.Config.Providers.Workers
	if workers < 1 {
		workers = 1
	}

	m := &Manager{
		cfg:        deps.Config,
		entities:   deps.Entities,
		zones:      deps.Zones,
		history:    deps.History,
		alerts:     deps.Alerts,
		clock:      clock,
		positions:  deps.Positions,
		zoneFeed:   deps.ZoneFeed,
		congestion: deps.Congestion,
		publisher:  deps.Publisher,
		wal:        deps.WAL,
		archive:    deps.Archive,
		pool:       pond.NewPool(workers),
		stopChan:   make(chan struct{}),
	}

	if m.positions == nil {
		m.positions = BuildPositionSource(deps.Config.Providers)
	}
	if m.zoneFeed == nil && deps.Config.HazardFeed.Enabled {
		m.zoneFeed = NewHTTPZoneFeed(deps.Config.HazardFeed, deps.Config.Providers.RequestTimeout)
	}
	if m.congestion == nil && deps.Config.Congestion.Enabled {
		m.congestion = buildCongestionSource(deps.Config.Congestion, deps.Entities, clock)
	}

	m.registerJobs()

	logging.Info().
		Int("jobs", len(m.jobs)).
		Int("workers", workers).
		Dur("poll_interval", deps.Config.Providers.PollInterval).
		Msg("Sync manager initialized")

	return m, nil
}

// registerJobs builds the job table from configuration. Jobs whose
// source is absent are not registered at all; the gap is logged once so
// operators can tell a disabled feed from a broken one.
func (m *Manager) registerJobs() {
	if m.positions != nil {
		m.addJob(JobPositionSync, m.cfg.Providers.PollInterval, m.runPositionSync)
	} else {
		logging.Info().Msg("No position providers enabled, position sync disabled (standalone mode)")
	}

	if m.zoneFeed != nil {
		m.addJob(JobHazardSync, m.cfg.HazardFeed.Interval, m.runHazardSync)
	} else {
		logging.Info().Msg("Hazard feed disabled, zone registry is admin-managed only")
	}

	if m.congestion != nil {
		m.addJob(JobCongestionSync, m.cfg.Congestion.Interval, m.runCongestionSync)
	} else {
		logging.Info().Msg("Congestion sync disabled")
	}

	m.addJob(JobRetentionSweep, m.cfg.Sync.RetentionSweepInterval, m.runRetentionSweep)
	m.addJob(JobStaleCheck, m.cfg.Sync.StaleCheckInterval, m.runStaleCheck)
}

func (m *Manager) addJob(name string, interval time.Duration, run jobFunc) {
	m.jobs = append(m.jobs, newJob(name, interval, run))
}

// Start launches one ticker loop per registered job. Every loop runs its
// job once immediately so a fresh process converges without waiting a
// full interval. Returns ErrAlreadyRunning on a second call.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return ErrAlreadyRunning
	}
	m.running = true
	m.runCtx, m.runCancel = context.WithCancel(ctx)
	m.mu.Unlock()

	logging.Info().Int("jobs", len(m.jobs)).Msg("Starting sync manager")

	// Add all goroutines to the WaitGroup before starting any of them so
	// Stop cannot observe a partially registered set.
	m.wg.Add(len(m.jobs))
	for _, j := range m.jobs {
		go m.runJobLoop(j)
	}

	return nil
}

// runJobLoop drives one job: an immediate first run, then one run per
// tick. Ticks arriving while a run is still executing are skipped by
// launchRun, never queued.
func (m *Manager) runJobLoop(j *job) {
	defer m.wg.Done()

	m.launchRun(j)

	ticker := m.clock.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.runCtx.Done():
			return
		case <-m.stopChan:
			return
		case <-ticker.Chan():
			m.launchRun(j)
		}
	}
}

// launchRun starts one asynchronous run of the job unless a previous
// run is still in flight, in which case the tick is dropped on the spot.
func (m *Manager) launchRun(j *job) {
	if !j.tryAcquire() {
		j.recordSkip()
		logging.Warn().
			Str("job", j.name).
			Dur("interval", j.interval).
			Msg("Previous run still executing, skipping tick")
		return
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer j.release()
		m.executeRun(j)
	}()
}

// executeRun performs one run of the job and records its outcome. Runs
// interrupted by shutdown are logged quietly; real failures are errors.
func (m *Manager) executeRun(j *job) {
	start := m.clock.Now()
	err := j.run(m.runCtx)
	elapsed := m.clock.Since(start)

	j.recordRun(start, elapsed, err)

	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		logging.Info().Str("job", j.name).Msg("Job run interrupted by shutdown")
	default:
		logging.Error().Err(err).Str("job", j.name).Dur("duration", elapsed).Msg("Job run failed")
	}
}

// Stop halts the ticker loops, lets in-flight runs finish their current
// entity, and waits for everything to drain.
func (m *Manager) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return ErrNotRunning
	}
	m.running = false
	m.mu.Unlock()

	logging.Info().Msg("Stopping sync manager...")

	close(m.stopChan)
	m.runCancel()
	m.wg.Wait()

	logging.Info().Msg("Sync manager stopped")
	return nil
}

// TriggerJob schedules one immediate run of the named job, on top of its
// regular cadence. Used by the admin API. Returns ErrJobBusy when a run
// is already executing rather than queueing a second one.
func (m *Manager) TriggerJob(name string) error {
	m.mu.RLock()
	running := m.running
	m.mu.RUnlock()
	if !running {
		return ErrNotRunning
	}

	for _, j := range m.jobs {
		if j.name != name {
			continue
		}
		if !j.tryAcquire() {
			return fmt.Errorf("%w: %s", ErrJobBusy, name)
		}
		logging.Info().Str("job", name).Msg("Manual job trigger")
		m.wg.Add(1)
		go func(j *job) {
			defer m.wg.Done()
			defer j.release()
			m.executeRun(j)
		}(j)
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnknownJob, name)
}

// Status reports a snapshot of every registered job for the API layer.
func (m *Manager) Status() []JobStatus {
	out := make([]JobStatus, 0, len(m.jobs))
	for _, j := range m.jobs {
		out = append(out, j.status())
	}
	return out
}

// LastSyncTime returns the completion time of the most recent successful
// position sync.
func (m *Manager) LastSyncTime() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastSync
}

func (m *Manager) setLastSync(t time.Time) {
	m.mu.Lock()
	m.lastSync = t
	m.mu.Unlock()
}

// isStorageErr reports whether err means the backing stores are gone,
// which aborts the current run instead of being contained per entity.
func isStorageErr(err error) bool {
	return errors.Is(err, store.ErrClosed) || errors.Is(err, history.ErrClosed)
}
