// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package eventprocessor

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// kafkaWriter is the subset of kafka.Writer used by KafkaPublisher,
// extracted so tests can substitute a fake.
type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher mirrors envelopes to a Kafka topic for downstream
// consumers outside this system (SIEMs, lakehouse ingestion). Messages
// are keyed by entity so one entity's events land on one partition and
// keep their order.
type KafkaPublisher struct {
	writer kafkaWriter
}

// NewKafkaPublisher creates a Kafka backend for the given brokers and
// topic. The writer is synchronous so publish errors surface to the
// dispatcher instead of vanishing in a background flush.
func NewKafkaPublisher(cfg KafkaConfig) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("%w: kafka brokers required", ErrInvalidConfig)
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("%w: kafka topic required", ErrInvalidConfig)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{}, // same key -> same partition, keeps per-entity order
		BatchTimeout: cfg.BatchTimeout,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}

	return &KafkaPublisher{writer: writer}, nil
}

// newKafkaPublisherWithWriter wires a fake writer in tests.
func newKafkaPublisherWithWriter(w kafkaWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

// Name identifies the backend in logs and metrics.
func (p *KafkaPublisher) Name() string { return "kafka" }

// Publish writes the envelope to the topic keyed by partition key.
func (p *KafkaPublisher) Publish(ctx context.Context, env *Envelope) error {
	data, err := MarshalEnvelope(env)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(env.PartitionKey()),
		Value: data,
		Time:  env.Timestamp,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write kafka message: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
