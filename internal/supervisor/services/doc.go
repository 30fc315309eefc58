// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

/*
Package services adapts Pelorus components to suture's Service interface.

Components like the sync manager, archive writer and WAL compactor expose a
Start/Stop lifecycle; suture expects a single Serve(ctx) that blocks until
shutdown. Each wrapper here performs that translation: start the component,
block on the context, then stop it cleanly. Wrappers talk to their
components through small local interfaces, so this package imports none of
the component packages and tests run against trivial mocks.

Build-tag gated wrappers (wal, nats) exist only in binaries compiled with
the corresponding backends.
*/
package services
