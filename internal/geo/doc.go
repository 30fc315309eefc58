// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

// Package geo implements the proximity evaluator: pure geometry over
// hazard zones with no state of its own.
//
// Polygon membership uses ray casting over the implicitly closed vertex
// ring; circular zones use great-circle distance on a spherical earth
// (haversine). Spherical error is acceptable for hazard proximity; this
// is not a geodesy library.
package geo
