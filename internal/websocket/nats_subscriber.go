// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

//go:build nats

package websocket

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/mhalvorsen/pelorus/internal/logging"
	"github.com/mhalvorsen/pelorus/internal/metrics"
)

// eventEnvelope mirrors eventprocessor.Envelope to avoid a circular
// import. Data is kept raw and forwarded to clients unchanged.
type eventEnvelope struct {
	EventID       string          `json:"event_id"`
	Type          string          `json:"type"`
	SchemaVersion int             `json:"schema_version"`
	Timestamp     time.Time       `json:"timestamp"`
	Data          json.RawMessage `json:"data"`
}

// trackingSubjects are the NATS wildcard subjects the bridge listens
// on. Together they cover every event the pipeline publishes.
var trackingSubjects = []string{"positions.>", "congestion.>", "alerts.>"}

// NATSMessageHandler is the message source the bridge consumes from.
// It allows the WebSocket subscriber to work with any NATS client.
type NATSMessageHandler interface {
	// Subscribe subscribes to a subject and returns a channel of
	// message payloads.
	Subscribe(ctx context.Context, subject string) (<-chan []byte, error)
	// Close releases resources.
	Close() error
}

// NATSSubscriber bridges the NATS event stream to WebSocket
// broadcasts, so every instance in a multi-process deployment pushes
// the same events regardless of which instance ingested them.
type NATSSubscriber struct {
	hub     *Hub
	handler NATSMessageHandler
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewNATSSubscriber creates a NATS to WebSocket bridge.
func NewNATSSubscriber(hub *Hub, handler NATSMessageHandler) *NATSSubscriber {
	return &NATSSubscriber{
		hub:     hub,
		handler: handler,
		stopCh:  make(chan struct{}),
	}
}

// Start subscribes to the tracking subjects and begins forwarding
// events to the hub. All subscriptions are established before any
// forwarding goroutine launches, so a failed subject leaves nothing
// running.
func (s *NATSSubscriber) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()

	channels := make([]<-chan []byte, 0, len(trackingSubjects))
	for _, subject := range trackingSubjects {
		messages, err := s.handler.Subscribe(ctx, subject)
		if err != nil {
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
			return fmt.Errorf("subscribe %s: %w", subject, err)
		}
		channels = append(channels, messages)
	}

	for _, messages := range channels {
		s.wg.Add(1)
		go s.processMessages(ctx, messages)
	}

	logging.Info().Int("subjects", len(trackingSubjects)).Msg("NATS to WebSocket subscriber started")
	return nil
}

// Stop stops the subscriber and waits for forwarding to drain.
func (s *NATSSubscriber) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()
	logging.Info().Msg("NATS to WebSocket subscriber stopped")
}

func (s *NATSSubscriber) processMessages(ctx context.Context, messages <-chan []byte) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case data, ok := <-messages:
			if !ok {
				return
			}
			s.handleMessage(data)
		}
	}
}

// handleMessage forwards one event to the hub. The envelope type
// becomes the WebSocket message type and the payload passes through
// unmodified.
func (s *NATSSubscriber) handleMessage(data []byte) {
	var env eventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		metrics.WSErrors.WithLabelValues("bad_event").Inc()
		logging.Warn().Err(err).Msg("failed to unmarshal event envelope")
		return
	}
	if env.Type == "" {
		metrics.WSErrors.WithLabelValues("bad_event").Inc()
		logging.Warn().Str("event_id", env.EventID).Msg("event envelope missing type")
		return
	}

	s.hub.BroadcastJSON(env.Type, env.Data)
}
