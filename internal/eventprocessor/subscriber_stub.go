// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

//go:build !nats

package eventprocessor

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
)

// Subscriber is a stub when NATS support is not compiled in.
type Subscriber struct{}

// NewSubscriber returns ErrNATSNotEnabled in builds without the nats tag.
func NewSubscriber(cfg *SubscriberConfig, logger watermill.LoggerAdapter) (*Subscriber, error) {
	return nil, ErrNATSNotEnabled
}

// Subscribe always fails in builds without the nats tag.
func (s *Subscriber) Subscribe(ctx context.Context, subject string) (<-chan []byte, error) {
	return nil, ErrNATSNotEnabled
}

// Close is a no-op stub.
func (s *Subscriber) Close() error { return nil }
