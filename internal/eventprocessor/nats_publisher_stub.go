// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

//go:build !nats

package eventprocessor

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	gobreaker "github.com/sony/gobreaker/v2"
)

// NATSPublisher is a stub when NATS support is not compiled in.
type NATSPublisher struct{}

// NewNATSPublisher returns ErrNATSNotEnabled in builds without the nats tag.
func NewNATSPublisher(cfg PublisherConfig, logger watermill.LoggerAdapter) (*NATSPublisher, error) {
	return nil, ErrNATSNotEnabled
}

// SetCircuitBreaker is a no-op stub.
func (p *NATSPublisher) SetCircuitBreaker(cb *gobreaker.CircuitBreaker[interface{}]) {}

// Name identifies the backend in logs and metrics.
func (p *NATSPublisher) Name() string { return "nats" }

// Publish always fails in builds without the nats tag.
func (p *NATSPublisher) Publish(ctx context.Context, env *Envelope) error {
	return ErrNATSNotEnabled
}

// Close is a no-op stub.
func (p *NATSPublisher) Close() error { return nil }
