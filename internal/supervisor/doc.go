// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

/*
Package supervisor provides process supervision for Pelorus using suture v4.

All long-running components run under a hierarchical supervisor tree with
Erlang/OTP-style restart semantics. Services are grouped into three layers
so a crash in one layer restarts only its siblings:

	RootSupervisor ("pelorus")
	├── DataSupervisor ("data-layer")
	│   ├── ArchiveWriterService (if archive enabled)
	│   └── WALCompactorService (if WAL enabled, build tag: wal)
	├── MessagingSupervisor ("messaging-layer")
	│   ├── WebSocketHubService
	│   ├── SyncManagerService
	│   └── NATSComponentsService (if NATS enabled, build tag: nats)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

A sync manager crash does not drop WebSocket connections, and an archive
failure does not take down the read API. Services that predate the
Serve(ctx) convention are wrapped by the adapters in the services
subpackage.

Supervisor events are logged through sutureslog into the application's
structured logger.
*/
package supervisor
