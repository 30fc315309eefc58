// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

// Package models defines the domain types shared across the ingestion
// pipeline: tracked entities (vessels, ports), position observations and
// the normalized source reading, hazard zones, and alert conditions.
//
// Types here are plain data. Behavior that mutates shared state lives in
// the owning packages (store, history, alerting); models only carries the
// small pure helpers that keep enum mapping and validation in one place.
package models
