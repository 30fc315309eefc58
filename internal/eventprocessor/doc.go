// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

// Package eventprocessor turns state changes from the sync pipeline into
// versioned events and fans them out to the configured sinks.
//
// Every event travels as an Envelope: a stable JSON wrapper carrying a
// UUID event ID, a type tag, a schema version, and the type-specific
// payload as raw JSON. Producers build envelopes with the New*Event
// constructors; consumers unmarshal the payload they recognize and ignore
// the rest. The envelope shape is the cross-process contract, so it only
// ever grows.
//
// Event types and their NATS subjects:
//
//	position_updated    -> positions.updated
//	congestion_updated  -> congestion.updated
//	alert_created       -> alerts.created
//	alert_updated       -> alerts.updated
//	alert_resolved      -> alerts.resolved
//
// # Dispatch
//
// AsyncPublisher is the single entry point for producers. It satisfies the
// sync package's EventPublisher contract, so the sync manager never blocks
// on a slow sink: publishing enqueues onto a bounded queue and a single
// worker goroutine fans each envelope out to every Backend in order.
// One worker keeps per-entity event order intact end to end; a full queue
// drops the newest event and counts the drop rather than stalling ingest.
//
// Backends are small adapters behind the Backend interface:
//
//	WSPublisher    pushes envelopes to the in-process websocket hub
//	NATSPublisher  publishes to JetStream (build with -tags nats)
//	KafkaPublisher mirrors alert and tracking events to a Kafka topic
//
// A backend failure is isolated: the error is logged and counted, and the
// remaining backends still receive the envelope.
//
// # NATS
//
// The JetStream pieces (embedded server, stream bootstrap, durable
// subscriber, resilient publisher) compile only with -tags nats; without
// the tag, stubs return ErrNATSNotEnabled so single-process deployments
// build without the NATS dependency tree. When NATS is enabled the
// websocket hub is fed through the JetStream subscriber instead of the
// in-process WSPublisher, so every process in a multi-instance deployment
// sees the same event flow exactly once.
package eventprocessor
