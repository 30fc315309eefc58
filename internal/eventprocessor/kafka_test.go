// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package eventprocessor

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
)

type fakeKafkaWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	writeE error
	closed bool
}

func (w *fakeKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.writeE != nil {
		return w.writeE
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeKafkaWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func TestNewKafkaPublisherValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  KafkaConfig
	}{
		{"no brokers", KafkaConfig{Topic: "pelorus.alerts"}},
		{"no topic", KafkaConfig{Brokers: []string{"localhost:9092"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewKafkaPublisher(tt.cfg)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestNewKafkaPublisher(t *testing.T) {
	pub, err := NewKafkaPublisher(DefaultKafkaConfig([]string{"localhost:9092"}))
	if err != nil {
		t.Fatalf("NewKafkaPublisher() error = %v", err)
	}
	if pub.Name() != "kafka" {
		t.Errorf("Name() = %q, want kafka", pub.Name())
	}
	if pub.writer == nil {
		t.Fatal("writer not configured")
	}
}

func TestKafkaPublisherPublish(t *testing.T) {
	writer := &fakeKafkaWriter{}
	pub := newKafkaPublisherWithWriter(writer)

	env, err := NewAlertEvent("opened", testCondition())
	if err != nil {
		t.Fatalf("NewAlertEvent() error = %v", err)
	}

	if err := pub.Publish(context.Background(), env); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	writer.mu.Lock()
	defer writer.mu.Unlock()
	if len(writer.msgs) != 1 {
		t.Fatalf("wrote %d messages, want 1", len(writer.msgs))
	}
	msg := writer.msgs[0]
	if string(msg.Key) != "215678000" {
		t.Errorf("Key = %q, want entity ID for partition affinity", msg.Key)
	}
	if !msg.Time.Equal(env.Timestamp) {
		t.Errorf("Time = %v, want envelope timestamp %v", msg.Time, env.Timestamp)
	}

	got, err := UnmarshalEnvelope(msg.Value)
	if err != nil {
		t.Fatalf("UnmarshalEnvelope(value): %v", err)
	}
	if got.EventID != env.EventID || got.Type != EventTypeAlertCreated {
		t.Errorf("round-tripped envelope = %q/%q", got.EventID, got.Type)
	}
}

func TestKafkaPublisherWriteError(t *testing.T) {
	writer := &fakeKafkaWriter{writeE: errors.New("leader not available")}
	pub := newKafkaPublisherWithWriter(writer)

	env, err := NewPositionEvent(testVessel())
	if err != nil {
		t.Fatalf("NewPositionEvent() error = %v", err)
	}

	if err := pub.Publish(context.Background(), env); err == nil {
		t.Fatal("Publish() should propagate writer errors")
	}
}

func TestKafkaPublisherInvalidEnvelope(t *testing.T) {
	writer := &fakeKafkaWriter{}
	pub := newKafkaPublisherWithWriter(writer)

	if err := pub.Publish(context.Background(), &Envelope{}); err == nil {
		t.Fatal("Publish() should reject invalid envelopes")
	}
	if len(writer.msgs) != 0 {
		t.Error("invalid envelope must not reach the writer")
	}
}

func TestKafkaPublisherClose(t *testing.T) {
	writer := &fakeKafkaWriter{}
	pub := newKafkaPublisherWithWriter(writer)

	if err := pub.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !writer.closed {
		t.Error("Close() did not close the writer")
	}
}
