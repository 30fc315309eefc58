// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package eventprocessor

import "context"

// HubBroadcaster is the websocket hub surface this package needs.
// Declared here so eventprocessor does not import the websocket package.
type HubBroadcaster interface {
	BroadcastJSON(messageType string, data any)
}

// WSPublisher pushes envelopes to the in-process websocket hub. It is the
// single-process path; multi-process deployments feed the hub from the
// JetStream subscriber instead, never both.
type WSPublisher struct {
	hub HubBroadcaster
}

// NewWSPublisher creates a websocket backend over the given hub.
func NewWSPublisher(hub HubBroadcaster) (*WSPublisher, error) {
	if hub == nil {
		return nil, ErrNilBackend
	}
	return &WSPublisher{hub: hub}, nil
}

// Name identifies the backend in logs and metrics.
func (p *WSPublisher) Name() string { return "websocket" }

// Publish broadcasts the envelope payload under its event type. The hub
// drops on slow consumers, so this never blocks.
func (p *WSPublisher) Publish(ctx context.Context, env *Envelope) error {
	p.hub.BroadcastJSON(env.Type, env.Data)
	return nil
}

// Close is a no-op; the hub's lifecycle is owned by the supervisor.
func (p *WSPublisher) Close() error { return nil }
