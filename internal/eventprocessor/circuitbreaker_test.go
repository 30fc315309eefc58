// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package eventprocessor

import (
	"errors"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

func TestNewCircuitBreakerStartsClosed(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig("test"))

	if got := CircuitBreakerState(cb); got != "closed" {
		t.Errorf("state = %q, want closed", got)
	}
}

func TestCircuitBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	cfg := DefaultCircuitBreakerConfig("test")
	cfg.FailureThreshold = 2
	cfg.Timeout = time.Hour // keep it open for the test
	cb := NewCircuitBreaker(cfg)

	boom := errors.New("publish failed")
	for i := 0; i < 2; i++ {
		if _, err := cb.Execute(func() (interface{}, error) { return nil, boom }); !errors.Is(err, boom) {
			t.Fatalf("Execute %d error = %v, want boom", i, err)
		}
	}

	if got := CircuitBreakerState(cb); got != "open" {
		t.Fatalf("state = %q, want open after threshold", got)
	}

	_, err := cb.Execute(func() (interface{}, error) { return nil, nil })
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("error = %v, want ErrOpenState", err)
	}
}

func TestCircuitBreakerSuccessResetsFailureCount(t *testing.T) {
	cfg := DefaultCircuitBreakerConfig("test")
	cfg.FailureThreshold = 2
	cb := NewCircuitBreaker(cfg)

	boom := errors.New("publish failed")
	cb.Execute(func() (interface{}, error) { return nil, boom })
	cb.Execute(func() (interface{}, error) { return nil, nil })
	cb.Execute(func() (interface{}, error) { return nil, boom })

	if got := CircuitBreakerState(cb); got != "closed" {
		t.Errorf("state = %q, want closed (failures not consecutive)", got)
	}
}
