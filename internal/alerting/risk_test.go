// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package alerting

import (
	"testing"

	"github.com/mhalvorsen/pelorus/internal/models"
)

func TestWeightedPolicyScore(t *testing.T) {
	p := DefaultWeightedPolicy()

	tests := []struct {
		name     string
		kind     models.HazardKind
		severity models.Severity
		zones    int
		want     float64
	}{
		{"piracy high single zone", models.HazardPiracy, models.SeverityHigh, 1, 45 + 3*12},
		{"storm low single zone", models.HazardStorm, models.SeverityLow, 1, 30 + 12},
		{"restricted medium two zones", models.HazardRestricted, models.SeverityMedium, 2, 20 + 2*12 + 5},
		{"clamped at 100", models.HazardPiracy, models.SeverityCritical, 5, 100},
		{"no zones means no score", models.HazardPiracy, models.SeverityCritical, 0, 0},
		{"unknown kind has zero base", models.HazardKind("tsunami"), models.SeverityLow, 1, 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Score(tt.kind, tt.severity, tt.zones); got != tt.want {
				t.Errorf("Score(%s, %s, %d) = %v, want %v", tt.kind, tt.severity, tt.zones, got, tt.want)
			}
		})
	}
}

func TestWeightedPolicyMonotoneInSeverity(t *testing.T) {
	p := DefaultWeightedPolicy()
	order := []models.Severity{
		models.SeverityLow,
		models.SeverityMedium,
		models.SeverityHigh,
		models.SeverityCritical,
	}
	prev := -1.0
	for _, sev := range order {
		got := p.Score(models.HazardStorm, sev, 1)
		if got <= prev {
			t.Errorf("score for %s (%v) not above previous (%v)", sev, got, prev)
		}
		prev = got
	}
}

func TestClampScore(t *testing.T) {
	if got := clampScore(-3); got != 0 {
		t.Errorf("clampScore(-3) = %v, want 0", got)
	}
	if got := clampScore(250); got != 100 {
		t.Errorf("clampScore(250) = %v, want 100", got)
	}
	if got := clampScore(42); got != 42 {
		t.Errorf("clampScore(42) = %v, want 42", got)
	}
}
