// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package eventprocessor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mhalvorsen/pelorus/internal/logging"
	"github.com/mhalvorsen/pelorus/internal/metrics"
	"github.com/mhalvorsen/pelorus/internal/models"
)

// Backend is one event sink behind the AsyncPublisher. Implementations
// must be safe for use from the single dispatch goroutine and must not
// retain the envelope after Publish returns.
type Backend interface {
	Name() string
	Publish(ctx context.Context, env *Envelope) error
	Close() error
}

// AsyncPublisher fans envelopes out to a set of backends without blocking
// the producer. Producers enqueue onto a bounded queue; one worker drains
// it and publishes to every backend in registration order. The single
// worker is what preserves per-entity event order across sinks, so it
// must stay single.
type AsyncPublisher struct {
	backends       []Backend
	queue          chan *Envelope
	publishTimeout time.Duration
	closeTimeout   time.Duration
	done           chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewAsyncPublisher creates a dispatcher over the given backends and
// starts its worker. Zero config values fall back to defaults.
func NewAsyncPublisher(cfg DispatchConfig, backends ...Backend) (*AsyncPublisher, error) {
	for i, b := range backends {
		if b == nil {
			return nil, fmt.Errorf("backend %d: %w", i, ErrNilBackend)
		}
	}

	def := DefaultDispatchConfig()
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = def.PublishTimeout
	}
	if cfg.CloseTimeout <= 0 {
		cfg.CloseTimeout = def.CloseTimeout
	}

	p := &AsyncPublisher{
		backends:       backends,
		queue:          make(chan *Envelope, cfg.QueueSize),
		publishTimeout: cfg.PublishTimeout,
		closeTimeout:   cfg.CloseTimeout,
		done:           make(chan struct{}),
	}

	go p.dispatch()

	return p, nil
}

// PublishPositionUpdated queues a position_updated event for the entity's
// current state. Implements the sync package's EventPublisher contract.
func (p *AsyncPublisher) PublishPositionUpdated(ctx context.Context, entity *models.TrackedEntity) error {
	env, err := NewPositionEvent(entity)
	if err != nil {
		return err
	}
	return p.enqueue(env)
}

// PublishCongestionUpdated queues a congestion_updated event for a port.
func (p *AsyncPublisher) PublishCongestionUpdated(ctx context.Context, entity *models.TrackedEntity) error {
	env, err := NewCongestionEvent(entity)
	if err != nil {
		return err
	}
	return p.enqueue(env)
}

// PublishAlert queues an alert lifecycle event for the given transition.
func (p *AsyncPublisher) PublishAlert(ctx context.Context, transition string, cond *models.AlertCondition) error {
	env, err := NewAlertEvent(transition, cond)
	if err != nil {
		return err
	}
	return p.enqueue(env)
}

// QueueDepth returns the number of envelopes waiting for fan-out.
func (p *AsyncPublisher) QueueDepth() int {
	return len(p.queue)
}

// enqueue hands an envelope to the worker. A full queue drops the new
// envelope and counts it; producers must never stall on a slow sink.
// The read lock spans the send so Close cannot close the queue under a
// concurrent enqueue.
func (p *AsyncPublisher) enqueue(env *Envelope) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPublisherClosed
	}

	select {
	case p.queue <- env:
	default:
		metrics.RecordEventPublishError("dispatch")
		logging.Warn().
			Str("event_type", env.Type).
			Str("event_id", env.EventID).
			Msg("Event queue full, dropping event")
	}
	return nil
}

func (p *AsyncPublisher) dispatch() {
	defer close(p.done)
	for env := range p.queue {
		p.fanOut(env)
	}
}

// fanOut publishes one envelope to every backend. A failing backend is
// logged and counted; the rest still receive the envelope.
func (p *AsyncPublisher) fanOut(env *Envelope) {
	for _, b := range p.backends {
		ctx, cancel := context.WithTimeout(context.Background(), p.publishTimeout)
		err := b.Publish(ctx, env)
		cancel()

		if err != nil {
			metrics.RecordEventPublishError(b.Name())
			logging.Warn().
				Err(err).
				Str("backend", b.Name()).
				Str("event_type", env.Type).
				Str("event_id", env.EventID).
				Msg("Event publish failed")
			continue
		}
		metrics.RecordEventPublished(b.Name(), env.Type)
	}
}

// Close stops accepting events, drains the queue up to CloseTimeout, then
// closes every backend. Safe to call more than once.
func (p *AsyncPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	select {
	case <-p.done:
	case <-time.After(p.closeTimeout):
		logging.Warn().
			Int("queued", len(p.queue)).
			Msg("Event queue drain timed out")
	}

	var errs []error
	for _, b := range p.backends {
		if err := b.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close backend %s: %w", b.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// NoopPublisher satisfies the sync package's EventPublisher contract while
// discarding every event. Used when event processing is disabled.
type NoopPublisher struct{}

// PublishPositionUpdated discards the event.
func (NoopPublisher) PublishPositionUpdated(ctx context.Context, entity *models.TrackedEntity) error {
	return nil
}

// PublishCongestionUpdated discards the event.
func (NoopPublisher) PublishCongestionUpdated(ctx context.Context, entity *models.TrackedEntity) error {
	return nil
}

// PublishAlert discards the event.
func (NoopPublisher) PublishAlert(ctx context.Context, transition string, cond *models.AlertCondition) error {
	return nil
}
