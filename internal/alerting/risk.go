// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package alerting

import "github.com/mhalvorsen/pelorus/internal/models"

// RiskPolicy scores an exposure for operator triage. Scores are advisory
// and clamped to [0, 100]; alert lifecycle decisions never depend on them.
type RiskPolicy interface {
	Score(kind models.HazardKind, severity models.Severity, zones int) float64
}

// WeightedPolicy is the default scoring policy: a per-kind base weight,
// a step per severity rank, and a small bonus per additional intersecting
// zone, summed and clamped to [0, 100].
type WeightedPolicy struct {
	// KindWeights maps each hazard kind to its base score. Kinds absent
	// from the map contribute zero base.
	KindWeights map[models.HazardKind]float64

	// SeverityStep is added once per severity rank (low=1 .. critical=4).
	SeverityStep float64

	// ZoneBonus is added for every intersecting zone beyond the first.
	ZoneBonus float64
}

// DefaultWeightedPolicy returns the production weights. Piracy carries the
// highest base: unlike weather it targets the vessel.
func DefaultWeightedPolicy() *WeightedPolicy {
	return &WeightedPolicy{
		KindWeights: map[models.HazardKind]float64{
			models.HazardPiracy:     45,
			models.HazardAccident:   35,
			models.HazardStorm:      30,
			models.HazardRestricted: 20,
		},
		SeverityStep: 12,
		ZoneBonus:    5,
	}
}

// Score implements RiskPolicy.
func (p *WeightedPolicy) Score(kind models.HazardKind, severity models.Severity, zones int) float64 {
	if zones < 1 {
		return 0
	}
	score := p.KindWeights[kind] +
		float64(severity.Rank())*p.SeverityStep +
		float64(zones-1)*p.ZoneBonus
	return clampScore(score)
}

func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
