// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

/*
Package websocket pushes live tracking updates to connected map clients.

The hub fans ingestion events (position updates, congestion changes,
alert transitions) out to every connected WebSocket client. Ingestion
never blocks on a slow client: the hub's broadcast channel and each
client's send queue are bounded, and anything that does not fit is
dropped and counted.

Key components:

  - Hub: owns the client set and the broadcast loop
  - Client: one WebSocket connection with read/write pump goroutines
  - Message: the typed frame sent to clients {type, data}

Architecture:

	ingestion ──► EventPublisher ──► Hub.BroadcastJSON
	                                   │
	                     ┌─────────┬───┴─────┬─────────┐
	                     │ Client1 │ Client2 │ Client3 │
	                     └─────────┴─────────┴─────────┘

In multi-process deployments the hub can instead be fed from the NATS
event stream via NATSSubscriber (build tag "nats"), so every instance
broadcasts the same events regardless of which instance ingested them.

Message types mirror the published event types: position_updated,
congestion_updated, alert_created, alert_updated, alert_resolved; ping
and pong are the client keepalive protocol.

Connection lifecycle: HTTP upgrade (internal/api), hub registration,
pump goroutines, unregistration on read error or shutdown. The write
pump pings every pingPeriod; a connection that misses pongWait is
dropped by its read deadline.

Thread safety: the client map is mutex-guarded, clients are iterated in
stable id order during broadcast and shutdown, and each client's
goroutines share nothing but its send channel.
*/
package websocket
