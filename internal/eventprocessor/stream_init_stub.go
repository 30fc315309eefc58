// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

//go:build !nats

package eventprocessor

import "context"

// EnsureEventStream returns ErrNATSNotEnabled in builds without the nats tag.
func EnsureEventStream(ctx context.Context, url string, cfg *StreamConfig) error {
	return ErrNATSNotEnabled
}
