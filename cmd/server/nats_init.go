// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

//go:build nats

package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/mhalvorsen/pelorus/internal/config"
	"github.com/mhalvorsen/pelorus/internal/eventprocessor"
	"github.com/mhalvorsen/pelorus/internal/logging"
	"github.com/mhalvorsen/pelorus/internal/supervisor"
	"github.com/mhalvorsen/pelorus/internal/supervisor/services"
	ws "github.com/mhalvorsen/pelorus/internal/websocket"
)

// NATSComponents bundles everything the NATS backend needs: the optional
// embedded server, the JetStream event publisher, and the subscriber that
// bridges stream events back onto the WebSocket hub.
type NATSComponents struct {
	embedded   *eventprocessor.EmbeddedServer
	backend    *eventprocessor.NATSPublisher
	subscriber *eventprocessor.Subscriber
	bridge     *ws.NATSSubscriber
	url        string

	mu               sync.Mutex
	running          bool
	shutdownComplete bool
}

// InitNATS builds the NATS components from configuration. Returns
// (nil, nil) when NATS is disabled.
func InitNATS(cfg *config.Config, hub *ws.Hub) (*NATSComponents, error) {
	if !cfg.NATS.Enabled {
		return nil, nil
	}

	url := cfg.NATS.URL

	var embedded *eventprocessor.EmbeddedServer
	if cfg.NATS.EmbeddedServer {
		serverCfg := eventprocessor.DefaultServerConfig()
		if cfg.NATS.StoreDir != "" {
			serverCfg.StoreDir = cfg.NATS.StoreDir
		}
		if cfg.NATS.MaxMemory > 0 {
			serverCfg.JetStreamMaxMem = cfg.NATS.MaxMemory
		}
		if cfg.NATS.MaxStore > 0 {
			serverCfg.JetStreamMaxStore = cfg.NATS.MaxStore
		}

		var err error
		embedded, err = eventprocessor.NewEmbeddedServer(&serverCfg)
		if err != nil {
			return nil, fmt.Errorf("start embedded NATS server: %w", err)
		}
		url = embedded.ClientURL()
		logging.Info().Str("url", url).Msg("Embedded NATS server started")
	}

	streamCfg := eventprocessor.DefaultStreamConfig()
	if cfg.NATS.StreamRetentionDays > 0 {
		streamCfg.MaxAge = time.Duration(cfg.NATS.StreamRetentionDays) * 24 * time.Hour
	}

	streamCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := eventprocessor.EnsureEventStream(streamCtx, url, &streamCfg); err != nil {
		shutdownEmbedded(embedded)
		return nil, fmt.Errorf("ensure event stream: %w", err)
	}

	wmLogger := watermill.NewSlogLogger(logging.NewSlogLogger())

	backend, err := eventprocessor.NewNATSPublisher(eventprocessor.DefaultPublisherConfig(url), wmLogger)
	if err != nil {
		shutdownEmbedded(embedded)
		return nil, fmt.Errorf("create NATS publisher: %w", err)
	}
	backend.SetCircuitBreaker(eventprocessor.NewCircuitBreaker(
		eventprocessor.DefaultCircuitBreakerConfig("nats-publish")))

	subCfg := eventprocessor.DefaultSubscriberConfig(url)
	if cfg.NATS.DurableName != "" {
		subCfg.DurableName = cfg.NATS.DurableName
	}
	if cfg.NATS.QueueGroup != "" {
		subCfg.QueueGroup = cfg.NATS.QueueGroup
	}

	subscriber, err := eventprocessor.NewSubscriber(&subCfg, wmLogger)
	if err != nil {
		_ = backend.Close()
		shutdownEmbedded(embedded)
		return nil, fmt.Errorf("create NATS subscriber: %w", err)
	}

	logging.Info().Str("url", url).Str("stream", streamCfg.Name).Msg("NATS event backend initialized")

	return &NATSComponents{
		embedded:   embedded,
		backend:    backend,
		subscriber: subscriber,
		bridge:     ws.NewNATSSubscriber(hub, subscriber),
		url:        url,
	}, nil
}

// Backend returns the publisher backend for the event fan-out. The
// AsyncPublisher owns it from then on and closes it during its own Close.
func (n *NATSComponents) Backend() eventprocessor.Backend {
	return n.backend
}

// Start launches the stream-to-WebSocket bridge.
func (n *NATSComponents) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.running {
		return nil
	}
	if err := n.bridge.Start(ctx); err != nil {
		return fmt.Errorf("start NATS bridge: %w", err)
	}
	n.running = true
	return nil
}

// Shutdown stops the bridge, closes the subscriber connection, and shuts
// down the embedded server if one is running. Safe to call more than once.
func (n *NATSComponents) Shutdown(ctx context.Context) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.shutdownComplete {
		return
	}
	n.shutdownComplete = true
	n.running = false

	n.bridge.Stop()

	if err := n.subscriber.Close(); err != nil {
		logging.Error().Err(err).Msg("NATS subscriber close failed")
	}

	if n.embedded != nil {
		if err := n.embedded.Shutdown(ctx); err != nil {
			logging.Error().Err(err).Msg("Embedded NATS server shutdown failed")
		}
	}
}

// IsRunning reports whether the bridge is active.
func (n *NATSComponents) IsRunning() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.running
}

// AddNATSToSupervisor places the NATS components under the messaging
// layer of the supervision tree.
func AddNATSToSupervisor(tree *supervisor.Tree, comps *NATSComponents) {
	tree.AddMessagingService(services.NewNATSComponentsService(comps))
}

func shutdownEmbedded(embedded *eventprocessor.EmbeddedServer) {
	if embedded == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := embedded.Shutdown(ctx); err != nil {
		logging.Error().Err(err).Msg("Embedded NATS server shutdown failed")
	}
}
