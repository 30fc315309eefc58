// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

// Command server runs the Pelorus tracking daemon: position ingestion,
// geofence alerting, the WebSocket feed, and the read API, all under a
// single supervision tree.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mhalvorsen/pelorus/internal/alerting"
	"github.com/mhalvorsen/pelorus/internal/api"
	"github.com/mhalvorsen/pelorus/internal/archive"
	"github.com/mhalvorsen/pelorus/internal/auth"
	"github.com/mhalvorsen/pelorus/internal/authz"
	"github.com/mhalvorsen/pelorus/internal/config"
	"github.com/mhalvorsen/pelorus/internal/eventprocessor"
	"github.com/mhalvorsen/pelorus/internal/history"
	"github.com/mhalvorsen/pelorus/internal/logging"
	"github.com/mhalvorsen/pelorus/internal/store"
	"github.com/mhalvorsen/pelorus/internal/supervisor"
	"github.com/mhalvorsen/pelorus/internal/supervisor/services"
	"github.com/mhalvorsen/pelorus/internal/sync"
	ws "github.com/mhalvorsen/pelorus/internal/websocket"
)

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("Pelorus failed to start")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("environment", cfg.Server.Environment).
		Int("port", cfg.Server.Port).
		Bool("nats", cfg.NATS.Enabled).
		Bool("kafka", cfg.Kafka.Enabled).
		Bool("archive", cfg.Archive.Enabled).
		Bool("wal", cfg.WAL.Enabled).
		Msg("Starting Pelorus")

	// In-memory stores. These hold the live fleet picture; the archive
	// below is the durable history.
	entities := store.NewEntityStore()
	zones := store.NewZoneRegistry()

	histStore, err := history.NewStore(history.Config{
		GapThreshold:            cfg.History.GapThreshold,
		MaxObservationsPerTrack: cfg.History.MaxObservationsPerTrack,
		RetentionHorizon:        cfg.History.RetentionHorizon,
	})
	if err != nil {
		return fmt.Errorf("create history store: %w", err)
	}

	// "weighted" is the only scoring policy; a nil Policy selects it.
	if cfg.Alerting.Policy != "" && cfg.Alerting.Policy != "weighted" {
		logging.Warn().Str("policy", cfg.Alerting.Policy).Msg("Unknown risk policy, using weighted")
	}
	reconciler := alerting.NewReconciler(alerting.Config{
		MaxRecentResolved: cfg.Alerting.MaxRecentResolved,
	})

	// DuckDB archive, optional.
	var (
		archiveStore  *archive.Archive
		archiveWriter *archive.Writer
	)
	if cfg.Archive.Enabled {
		archiveStore, err = archive.Open(&cfg.Archive)
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}
		defer func() {
			if err := archiveStore.Close(); err != nil {
				logging.Error().Err(err).Msg("Archive close failed")
			}
		}()

		archiveWriter, err = archive.NewWriter(archiveStore, archive.WriterConfig{
			BatchSize:     cfg.Archive.BatchSize,
			FlushInterval: cfg.Archive.FlushInterval,
		})
		if err != nil {
			return fmt.Errorf("create archive writer: %w", err)
		}
		logging.Info().Str("path", cfg.Archive.Path).Msg("Archive enabled")
	}

	// WebSocket hub and event fan-out. The hub backend is always wired;
	// NATS and Kafka join when configured.
	hub := ws.NewHub()

	wsBackend, err := eventprocessor.NewWSPublisher(hub)
	if err != nil {
		return fmt.Errorf("create websocket publisher: %w", err)
	}
	backends := []eventprocessor.Backend{wsBackend}

	natsComponents, err := InitNATS(cfg, hub)
	if err != nil {
		return fmt.Errorf("initialize NATS: %w", err)
	}
	if natsComponents != nil {
		backends = append(backends, natsComponents.Backend())
	}

	if cfg.Kafka.Enabled {
		kafkaCfg := eventprocessor.DefaultKafkaConfig(cfg.Kafka.Brokers)
		if cfg.Kafka.Topic != "" {
			kafkaCfg.Topic = cfg.Kafka.Topic
		}
		if cfg.Kafka.BatchTimeout > 0 {
			kafkaCfg.BatchTimeout = cfg.Kafka.BatchTimeout
		}
		kafkaBackend, err := eventprocessor.NewKafkaPublisher(kafkaCfg)
		if err != nil {
			return fmt.Errorf("create kafka publisher: %w", err)
		}
		backends = append(backends, kafkaBackend)
		logging.Info().Strs("brokers", cfg.Kafka.Brokers).Msg("Kafka mirror enabled")
	}

	publisher, err := eventprocessor.NewAsyncPublisher(eventprocessor.DefaultDispatchConfig(), backends...)
	if err != nil {
		return fmt.Errorf("create event publisher: %w", err)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logging.Error().Err(err).Msg("Event publisher close failed")
		}
	}()

	// Ingest WAL, optional and build-tag gated.
	walComponents, err := InitWAL(cfg)
	if err != nil {
		return fmt.Errorf("initialize WAL: %w", err)
	}
	if walComponents != nil {
		defer walComponents.Shutdown()
	}

	// Sync manager. Position, hazard and congestion sources are built
	// from configuration inside NewManager.
	syncDeps := sync.Deps{
		Config:    cfg,
		Entities:  entities,
		Zones:     zones,
		History:   histStore,
		Alerts:    reconciler,
		Publisher: publisher,
	}
	if walComponents != nil {
		syncDeps.WAL = walComponents.IngestWAL()
	}
	if archiveWriter != nil {
		syncDeps.Archive = archiveWriter
	}

	syncManager, err := sync.NewManager(syncDeps)
	if err != nil {
		return fmt.Errorf("create sync manager: %w", err)
	}

	// Replay unconfirmed ingest batches from a previous crash before any
	// job starts fetching fresh data.
	if walComponents != nil {
		replayCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		walComponents.Replay(replayCtx, syncManager)
		cancel()
	}

	// Authentication and authorization.
	mode, err := auth.ParseMode(cfg.Security.AuthMode)
	if err != nil {
		return fmt.Errorf("parse auth mode: %w", err)
	}

	users, err := auth.NewUserStore(cfg.Security)
	if err != nil {
		return fmt.Errorf("create user store: %w", err)
	}

	var tokens *auth.TokenManager
	if mode == auth.ModeJWT {
		tokens, err = auth.NewTokenManager(cfg.Security)
		if err != nil {
			return fmt.Errorf("create token manager: %w", err)
		}
	} else {
		logging.Warn().Msg("Authentication disabled; every request runs as anonymous admin")
	}

	enforcer, err := authz.NewEnforcer(cfg.Security.Casbin)
	if err != nil {
		return fmt.Errorf("create authorization enforcer: %w", err)
	}
	defer enforcer.Close()

	// HTTP surface.
	handlerDeps := api.HandlerDeps{
		Config:   cfg,
		Entities: entities,
		Zones:    zones,
		History:  histStore,
		Alerts:   reconciler,
		Sync:     syncManager,
		Hub:      hub,
	}
	if archiveStore != nil {
		handlerDeps.Archive = archiveStore
	}

	handler := api.NewHandler(handlerDeps)
	login := auth.NewHandlers(users, tokens)
	authn := auth.NewMiddleware(mode, tokens)
	router := api.NewRouter(handler, login, authn, authz.NewMiddleware(enforcer))

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       2 * cfg.Server.Timeout,
	}

	// Supervision tree.
	tree, err := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	if archiveWriter != nil {
		tree.AddDataService(services.NewArchiveWriterService(archiveWriter))
	}
	if walComponents != nil {
		walComponents.AddToSupervisor(tree)
	}

	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddMessagingService(services.NewSyncService(syncManager))
	if natsComponents != nil {
		AddNATSToSupervisor(tree, natsComponents)
	}

	tree.AddAPIService(services.NewHTTPServerService(httpServer, supervisor.DefaultTreeConfig().ShutdownTimeout))

	// Run until a signal arrives.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("addr", httpServer.Addr).Msg("Pelorus is up")

	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("supervisor tree failed: %w", err)
		}
		return nil
	}

	// The tree stops its services in response to the canceled context;
	// wait for it to drain, then report anything that would not stop.
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree exited with error")
		}
	case <-time.After(30 * time.Second):
		logging.Error().Msg("Supervisor tree did not stop within 30s")
	}

	if report, err := tree.UnstoppedServiceReport(); err == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", fmt.Sprintf("%v", svc.Service)).Msg("Service did not stop")
		}
	}

	logging.Info().Msg("Pelorus stopped")
	return nil
}
