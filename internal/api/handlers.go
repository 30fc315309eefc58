// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package api

import (
	"context"
	"time"

	"github.com/mhalvorsen/pelorus/internal/alerting"
	"github.com/mhalvorsen/pelorus/internal/archive"
	"github.com/mhalvorsen/pelorus/internal/config"
	"github.com/mhalvorsen/pelorus/internal/history"
	"github.com/mhalvorsen/pelorus/internal/middleware"
	"github.com/mhalvorsen/pelorus/internal/models"
	"github.com/mhalvorsen/pelorus/internal/store"
	syncpkg "github.com/mhalvorsen/pelorus/internal/sync"
	ws "github.com/mhalvorsen/pelorus/internal/websocket"
)

// SyncController is the slice of the sync manager the API consumes.
// *sync.Manager implements it; handler tests substitute a fake.
type SyncController interface {
	Status() []syncpkg.JobStatus
	TriggerJob(name string) error
	LastSyncTime() time.Time
}

// HistoryArchive is the slice of the DuckDB archive the API consumes
// for queries past the in-memory horizon. *archive.Archive implements
// it. A nil HistoryArchive means archiving is disabled; track queries
// then serve memory only and history endpoints report unavailable.
type HistoryArchive interface {
	VesselTrack(ctx context.Context, entityID string, q archive.TrackQuery) ([]models.PositionObservation, error)
	AlertHistory(ctx context.Context, q archive.AlertQuery) ([]archive.AlertEvent, error)
	CongestionHistory(ctx context.Context, portID string, limit int) ([]archive.CongestionSnapshot, error)
	Ping(ctx context.Context) error
}

// HandlerDeps collects everything the handlers read from. Entities,
// Zones, History, and Alerts are required; Sync, Archive, and Hub may
// be nil when the corresponding subsystem is disabled.
type HandlerDeps struct {
	Config   *config.Config
	Entities *store.EntityStore
	Zones    *store.ZoneRegistry
	History  *history.Store
	Alerts   *alerting.Reconciler
	Sync     SyncController
	Archive  HistoryArchive
	Hub      *ws.Hub
}

// Handler serves every Pelorus endpoint. Methods are split across
// files by resource: handlers_health.go, handlers_vessels.go,
// handlers_ports.go, handlers_zones.go, handlers_alerts.go,
// handlers_sync.go, handlers_ws.go.
type Handler struct {
	cfg      *config.Config
	entities *store.EntityStore
	zones    *store.ZoneRegistry
	history  *history.Store
	alerts   *alerting.Reconciler
	syncMgr  SyncController
	archive  HistoryArchive
	hub      *ws.Hub

	latency   *middleware.LatencyMonitor
	startTime time.Time
}

// NewHandler builds the handler set. The latency monitor it creates is
// installed as middleware on the data routes and surfaced through the
// health endpoint.
func NewHandler(deps HandlerDeps) *Handler {
	return &Handler{
		cfg:       deps.Config,
		entities:  deps.Entities,
		zones:     deps.Zones,
		history:   deps.History,
		alerts:    deps.Alerts,
		syncMgr:   deps.Sync,
		archive:   deps.Archive,
		hub:       deps.Hub,
		latency:   middleware.NewLatencyMonitor(1000, time.Second),
		startTime: time.Now(),
	}
}
