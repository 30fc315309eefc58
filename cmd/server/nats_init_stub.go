// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

//go:build !nats

package main

import (
	"context"

	"github.com/mhalvorsen/pelorus/internal/config"
	"github.com/mhalvorsen/pelorus/internal/eventprocessor"
	"github.com/mhalvorsen/pelorus/internal/logging"
	"github.com/mhalvorsen/pelorus/internal/supervisor"
	ws "github.com/mhalvorsen/pelorus/internal/websocket"
)

// NATSComponents is a placeholder in builds without the nats tag.
type NATSComponents struct{}

// InitNATS always returns (nil, nil) in builds without the nats tag. It
// warns when the configuration asks for NATS so the operator knows the
// binary cannot honor it.
func InitNATS(cfg *config.Config, hub *ws.Hub) (*NATSComponents, error) {
	if cfg.NATS.Enabled {
		logging.Warn().Msg("NATS is enabled in configuration but this binary was built without NATS support (build tag: nats)")
	}
	return nil, nil
}

// Backend is never called; InitNATS returns nil in these builds.
func (n *NATSComponents) Backend() eventprocessor.Backend { return nil }

// Start is never called; InitNATS returns nil in these builds.
func (n *NATSComponents) Start(ctx context.Context) error { return nil }

// Shutdown is never called; InitNATS returns nil in these builds.
func (n *NATSComponents) Shutdown(ctx context.Context) {}

// IsRunning always reports false in these builds.
func (n *NATSComponents) IsRunning() bool { return false }

// AddNATSToSupervisor is a no-op in builds without the nats tag.
func AddNATSToSupervisor(tree *supervisor.Tree, comps *NATSComponents) {}
