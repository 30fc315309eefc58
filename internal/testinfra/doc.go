// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

// Package testinfra provides container helpers for integration tests.
//
// Everything here compiles only under the integration build tag and
// depends on a reachable Docker daemon. Tests call SkipIfNoDocker first
// so suites degrade to a skip instead of failing on machines without
// Docker.
//
//	go test -tags "integration nats" ./...
package testinfra
