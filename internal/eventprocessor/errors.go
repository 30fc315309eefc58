// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package eventprocessor

import "errors"

var (
	// ErrNATSNotEnabled is returned by NATS constructors in builds
	// compiled without the nats tag.
	ErrNATSNotEnabled = errors.New("NATS event processing not enabled (build with -tags nats)")

	// ErrPublisherClosed is returned when publishing after Close.
	ErrPublisherClosed = errors.New("event publisher is closed")

	// ErrNilBackend is returned when a dispatcher or adapter is
	// constructed around a nil sink.
	ErrNilBackend = errors.New("nil event backend")

	// ErrInvalidConfig indicates a configuration that cannot produce a
	// working component.
	ErrInvalidConfig = errors.New("invalid event processor configuration")
)
