// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

//go:build nats

package services

import (
	"context"
	"fmt"
	"time"
)

// NATSComponentsRunner matches the NATS component bundle's lifecycle without
// importing the main package.
//
// Satisfied by *NATSComponents from cmd/server.
type NATSComponentsRunner interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context)
	IsRunning() bool
}

// NATSComponentsService wraps the NATS component bundle as a supervised
// service. The bundle covers the embedded server, the JetStream stream, the
// event publisher backend and the WebSocket bridge subscriber.
//
// Example usage:
//
//	comps, _ := InitNATS(cfg, hub)
//	tree.AddMessagingService(services.NewNATSComponentsService(comps))
type NATSComponentsService struct {
	components      NATSComponentsRunner
	shutdownTimeout time.Duration
	name            string
}

// NewNATSComponentsService creates a NATS service wrapper with a 10 second
// shutdown timeout.
func NewNATSComponentsService(components NATSComponentsRunner) *NATSComponentsService {
	return NewNATSComponentsServiceWithTimeout(components, 10*time.Second)
}

// NewNATSComponentsServiceWithTimeout creates a NATS service wrapper with a
// custom shutdown timeout.
func NewNATSComponentsServiceWithTimeout(components NATSComponentsRunner, shutdownTimeout time.Duration) *NATSComponentsService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &NATSComponentsService{
		components:      components,
		shutdownTimeout: shutdownTimeout,
		name:            "nats-components",
	}
}

// Serve implements suture.Service.
//
// If Start fails the error is returned immediately and suture restarts the
// service under its backoff policy.
func (s *NATSComponentsService) Serve(ctx context.Context) error {
	if err := s.components.Start(ctx); err != nil {
		return fmt.Errorf("NATS components start failed: %w", err)
	}

	<-ctx.Done()

	// The serve context is already canceled; shutdown needs its own.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	s.components.Shutdown(shutdownCtx)

	return ctx.Err()
}

// String identifies the service in suture's event log.
func (s *NATSComponentsService) String() string {
	return s.name
}
