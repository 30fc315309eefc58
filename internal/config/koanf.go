// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/pelorus/config.yaml",
	"/etc/pelorus/config.yml",
}

// ConfigPathEnvVar overrides the config file path when set.
const ConfigPathEnvVar = "CONFIG_PATH"

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: built-in values
//  2. Config file: optional YAML file (if one exists)
//  3. Environment variables: override any setting
//
// Precedence is ENV > file > defaults. Only explicitly mapped environment
// variables are consulted.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct
	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: config file (optional)
	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables (highest priority)
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Comma-separated env values become slices for known slice fields.
	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file, honoring CONFIG_PATH first.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths are parsed as comma-separated
// slices when they arrive from the environment.
var sliceConfigPaths = []string{
	"security.cors_origins",
	"security.trusted_proxies",
	"kafka.brokers",
}

// processSliceFields converts comma-separated string values to slices for
// known slice fields. Env vars come in as strings; the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// Already a slice (from YAML): nothing to do.
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		if strVal, ok := val.(string); ok {
			if strVal == "" {
				continue
			}
			parts := strings.Split(strVal, ",")
			trimmed := make([]string, 0, len(parts))
			for _, p := range parts {
				p = strings.TrimSpace(p)
				if p != "" {
					trimmed = append(trimmed, p)
				}
			}
			if len(trimmed) > 0 {
				if err := k.Set(path, trimmed); err != nil {
					return fmt.Errorf("failed to set %s: %w", path, err)
				}
			}
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to koanf config paths.
//
// Examples:
//   - AIS_POLL_INTERVAL -> providers.poll_interval
//   - HAZARD_FEED_URL   -> hazard_feed.url
//   - DUCKDB_PATH       -> archive.path
//   - HTTP_PORT         -> server.port
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Position provider mappings
		"ais_poll_interval":   "providers.poll_interval",
		"ais_workers":         "providers.workers",
		"ais_request_timeout": "providers.request_timeout",
		"ais_rate_limit":      "providers.rate_limit",
		"ais_rate_burst":      "providers.rate_burst",

		// Hazard feed mappings
		"hazard_feed_enabled":           "hazard_feed.enabled",
		"hazard_feed_url":               "hazard_feed.url",
		"hazard_feed_api_key":           "hazard_feed.api_key",
		"hazard_feed_interval":          "hazard_feed.interval",
		"hazard_feed_source_tag":        "hazard_feed.source_tag",
		"hazard_feed_default_radius_km": "hazard_feed.default_radius_km",

		// Congestion mappings
		"congestion_enabled":   "congestion.enabled",
		"congestion_mode":      "congestion.mode",
		"congestion_url":       "congestion.url",
		"congestion_api_key":   "congestion.api_key",
		"congestion_interval":  "congestion.interval",
		"congestion_cache_ttl": "congestion.cache_ttl",
		"congestion_radius_km": "congestion.radius_km",

		// History mappings
		"history_gap_threshold":    "history.gap_threshold",
		"history_max_observations": "history.max_observations_per_track",
		"history_retention":        "history.retention_horizon",

		// Alerting mappings
		"alert_risk_policy":         "alerting.policy",
		"alert_max_recent_resolved": "alerting.max_recent_resolved",

		// Scheduler mappings
		"retention_sweep_interval": "sync.retention_sweep_interval",
		"stale_check_interval":     "sync.stale_check_interval",
		"stale_after":              "sync.stale_after",

		// NATS mappings
		"nats_enabled":        "nats.enabled",
		"nats_url":            "nats.url",
		"nats_embedded":       "nats.embedded_server",
		"nats_store_dir":      "nats.store_dir",
		"nats_max_memory":     "nats.max_memory",
		"nats_max_store":      "nats.max_store",
		"nats_retention_days": "nats.stream_retention_days",
		"nats_durable_name":   "nats.durable_name",
		"nats_queue_group":    "nats.queue_group",

		// Kafka mappings
		"kafka_enabled":       "kafka.enabled",
		"kafka_brokers":       "kafka.brokers",
		"kafka_topic":         "kafka.topic",
		"kafka_batch_timeout": "kafka.batch_timeout",

		// Archive mappings
		"archive_enabled":        "archive.enabled",
		"duckdb_path":            "archive.path",
		"duckdb_max_memory":      "archive.max_memory",
		"duckdb_threads":         "archive.threads",
		"archive_flush_interval": "archive.flush_interval",
		"archive_batch_size":     "archive.batch_size",
		"archive_retention_days": "archive.retention_days",

		// WAL mappings
		"wal_enabled":          "wal.enabled",
		"wal_path":             "wal.path",
		"wal_sync_writes":      "wal.sync_writes",
		"wal_compact_interval": "wal.compact_interval",

		// Server mappings
		"http_port":    "server.port",
		"http_host":    "server.host",
		"http_timeout": "server.timeout",
		"environment":  "server.environment",

		// API mappings
		"api_default_page_size":   "api.default_page_size",
		"api_max_page_size":       "api.max_page_size",
		"api_default_track_limit": "api.default_track_limit",

		// Security mappings
		"auth_mode":           "security.auth_mode",
		"jwt_secret":          "security.jwt_secret",
		"session_timeout":     "security.session_timeout",
		"admin_username":      "security.admin_username",
		"admin_password":      "security.admin_password",
		"rate_limit_requests": "security.rate_limit_reqs",
		"rate_limit_window":   "security.rate_limit_window",
		"disable_rate_limit":  "security.rate_limit_disabled",
		"cors_origins":        "security.cors_origins",
		"trusted_proxies":     "security.trusted_proxies",

		// Casbin mappings
		"casbin_model_path":   "security.casbin.model_path",
		"casbin_policy_path":  "security.casbin.policy_path",
		"casbin_default_role": "security.casbin.default_role",

		// Logging mappings
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	// Unmapped keys are skipped so stray environment variables cannot
	// pollute the configuration.
	return ""
}

// WatchConfigFile sets up a file watcher for hot-reload capability. The
// caller is responsible for mutex protection when swapping configuration.
func WatchConfigFile(path string, callback func()) error {
	provider := file.Provider(path)

	return provider.Watch(func(event interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}
