// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package sync

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mhalvorsen/pelorus/internal/metrics"
)

// Job names double as the `job` label on sync metrics.
const (
	JobPositionSync   = "position_sync"
	JobHazardSync     = "hazard_sync"
	JobCongestionSync = "congestion_sync"
	JobRetentionSweep = "retention_sweep"
	JobStaleCheck     = "stale_check"
)

type jobFunc func(ctx context.Context) error

// job is one independently scheduled unit of work. The inFlight flag is
// the no-self-overlap guard: a tick or manual trigger that cannot flip
// it is dropped, so a slow run never stacks a queue behind itself.
type job struct {
	name     string
	interval time.Duration
	run      jobFunc

	inFlight atomic.Bool

	mu           sync.Mutex
	runs         uint64
	skips        uint64
	lastRun      time.Time
	lastDuration time.Duration
	lastError    string
}

func newJob(name string, interval time.Duration, run jobFunc) *job {
	return &job{name: name, interval: interval, run: run}
}

func (j *job) tryAcquire() bool {
	return j.inFlight.CompareAndSwap(false, true)
}

func (j *job) release() {
	j.inFlight.Store(false)
}

func (j *job) recordSkip() {
	metrics.RecordJobOverlapSkip(j.name)
	j.mu.Lock()
	j.skips++
	j.mu.Unlock()
}

func (j *job) recordRun(start time.Time, elapsed time.Duration, err error) {
	metrics.RecordSyncJob(j.name, elapsed, err)

	j.mu.Lock()
	defer j.mu.Unlock()
	j.runs++
	j.lastRun = start
	j.lastDuration = elapsed
	if err != nil {
		j.lastError = err.Error()
	} else {
		j.lastError = ""
	}
}

// JobStatus is the API-facing snapshot of one job's scheduling state.
type JobStatus struct {
	Name         string        `json:"name"`
	Interval     time.Duration `json:"interval"`
	Running      bool          `json:"running"`
	Runs         uint64        `json:"runs"`
	Skips        uint64        `json:"skips"`
	LastRun      time.Time     `json:"last_run"`
	LastDuration time.Duration `json:"last_duration"`
	LastError    string        `json:"last_error,omitempty"`
}

func (j *job) status() JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	return JobStatus{
		Name:         j.name,
		Interval:     j.interval,
		Running:      j.inFlight.Load(),
		Runs:         j.runs,
		Skips:        j.skips,
		LastRun:      j.lastRun,
		LastDuration: j.lastDuration,
		LastError:    j.lastError,
	}
}
