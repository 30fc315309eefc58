// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

/*
Package config provides layered configuration loading for all Pelorus
components.

Configuration is resolved with Koanf v2 from three layers, each overriding
the one before it:

 1. Defaults: built-in values for every setting
 2. Config file: optional YAML file (config.yaml, or CONFIG_PATH)
 3. Environment variables: highest priority, mapped explicitly

Only environment variables with an explicit mapping are read; unknown
variables never leak into the configuration. Slice-valued settings accept
comma-separated strings from the environment.

# Sections

  - providers: the AIS position feed chain and its polling cadence
  - hazard_feed: the hazard zone feed and its replace-by-source tag
  - congestion: port congestion readings, fetched or derived
  - history: track segmentation, per-track caps, retention horizon
  - alerting: risk policy selection and resolved-history bounds
  - sync: scheduler intervals for sweeps and stale checks
  - nats / kafka: event publishing sinks
  - archive: DuckDB archival store
  - wal: ingest write-ahead log
  - server / api / security / logging: serving surface and ambient concerns

# Example

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal("Failed to load config:", err)
	}
	// cfg.Providers.PollInterval, cfg.Archive.Path, etc. are populated

Config is immutable after Load and safe for concurrent reads.
*/
package config
