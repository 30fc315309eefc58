// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package config

import (
	"fmt"
	"strings"
	"time"
)

// minSyncInterval is the floor for every polling interval. Anything tighter
// hammers upstream feeds without improving track quality.
const minSyncInterval = 10 * time.Second

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if err := c.validateProviders(); err != nil {
		return err
	}
	if err := c.validateHazardFeed(); err != nil {
		return err
	}
	if err := c.validateCongestion(); err != nil {
		return err
	}
	if err := c.validateHistory(); err != nil {
		return err
	}
	if err := c.validateAlerting(); err != nil {
		return err
	}
	if err := c.validateSync(); err != nil {
		return err
	}
	if err := c.validateNATS(); err != nil {
		return err
	}
	if err := c.validateKafka(); err != nil {
		return err
	}
	if err := c.validateArchive(); err != nil {
		return err
	}
	if err := c.validateWAL(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	return c.validateLogging()
}

// validateProviders validates the position feed chain.
func (c *Config) validateProviders() error {
	if c.Providers.PollInterval < minSyncInterval {
		return fmt.Errorf("AIS_POLL_INTERVAL must be at least %s", minSyncInterval)
	}
	if c.Providers.Workers < 1 || c.Providers.Workers > 64 {
		return fmt.Errorf("AIS_WORKERS must be between 1 and 64")
	}
	if c.Providers.RequestTimeout <= 0 {
		return fmt.Errorf("AIS_REQUEST_TIMEOUT must be positive")
	}
	if c.Providers.RateLimit <= 0 {
		return fmt.Errorf("AIS_RATE_LIMIT must be positive")
	}
	if c.Providers.RateBurst < 1 {
		return fmt.Errorf("AIS_RATE_BURST must be at least 1")
	}

	seen := make(map[string]bool, len(c.Providers.Chain))
	for i, p := range c.Providers.Chain {
		if !p.Enabled {
			continue
		}
		if p.Name == "" {
			return fmt.Errorf("providers.chain[%d]: name is required", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("providers.chain[%d]: duplicate provider name %q", i, p.Name)
		}
		seen[p.Name] = true
		if p.URL == "" {
			return fmt.Errorf("providers.chain[%d] (%s): url is required", i, p.Name)
		}
		if err := validateHTTPURL(p.URL, fmt.Sprintf("providers.chain[%d].url", i)); err != nil {
			return err
		}
	}
	return nil
}

// validateHazardFeed validates the hazard feed (only if enabled).
func (c *Config) validateHazardFeed() error {
	if !c.HazardFeed.Enabled {
		return nil
	}
	if c.HazardFeed.URL == "" {
		return fmt.Errorf("HAZARD_FEED_URL is required when HAZARD_FEED_ENABLED=true")
	}
	if err := validateHTTPURL(c.HazardFeed.URL, "HAZARD_FEED_URL"); err != nil {
		return err
	}
	if c.HazardFeed.Interval < minSyncInterval {
		return fmt.Errorf("HAZARD_FEED_INTERVAL must be at least %s", minSyncInterval)
	}
	if c.HazardFeed.SourceTag == "" {
		return fmt.Errorf("HAZARD_FEED_SOURCE_TAG must not be empty")
	}
	if c.HazardFeed.DefaultRadiusKM <= 0 {
		return fmt.Errorf("HAZARD_FEED_DEFAULT_RADIUS_KM must be positive")
	}
	return nil
}

// validateCongestion validates congestion readings (only if enabled).
func (c *Config) validateCongestion() error {
	if !c.Congestion.Enabled {
		return nil
	}
	switch c.Congestion.Mode {
	case "http":
		if c.Congestion.URL == "" {
			return fmt.Errorf("CONGESTION_URL is required when CONGESTION_MODE=http")
		}
		if err := validateHTTPURL(c.Congestion.URL, "CONGESTION_URL"); err != nil {
			return err
		}
	case "derived":
		if c.Congestion.RadiusKM <= 0 {
			return fmt.Errorf("CONGESTION_RADIUS_KM must be positive when CONGESTION_MODE=derived")
		}
	default:
		return fmt.Errorf("CONGESTION_MODE must be 'http' or 'derived', got %q", c.Congestion.Mode)
	}
	if c.Congestion.Interval < minSyncInterval {
		return fmt.Errorf("CONGESTION_INTERVAL must be at least %s", minSyncInterval)
	}
	if c.Congestion.CacheTTL <= 0 {
		return fmt.Errorf("CONGESTION_CACHE_TTL must be positive")
	}
	return nil
}

// validateHistory validates track segmentation and retention settings.
func (c *Config) validateHistory() error {
	if c.History.GapThreshold <= 0 {
		return fmt.Errorf("HISTORY_GAP_THRESHOLD must be positive")
	}
	if c.History.MaxObservationsPerTrack < 1 || c.History.MaxObservationsPerTrack > 100000 {
		return fmt.Errorf("HISTORY_MAX_OBSERVATIONS must be between 1 and 100000")
	}
	if c.History.RetentionHorizon <= c.History.GapThreshold {
		return fmt.Errorf("HISTORY_RETENTION must exceed HISTORY_GAP_THRESHOLD")
	}
	return nil
}

// validateAlerting validates alert reconciliation settings.
func (c *Config) validateAlerting() error {
	if c.Alerting.Policy != "weighted" {
		return fmt.Errorf("ALERT_RISK_POLICY must be 'weighted', got %q", c.Alerting.Policy)
	}
	if c.Alerting.MaxRecentResolved < 1 {
		return fmt.Errorf("ALERT_MAX_RECENT_RESOLVED must be at least 1")
	}
	return nil
}

// validateSync validates scheduler housekeeping intervals.
func (c *Config) validateSync() error {
	if c.Sync.RetentionSweepInterval < minSyncInterval {
		return fmt.Errorf("RETENTION_SWEEP_INTERVAL must be at least %s", minSyncInterval)
	}
	if c.Sync.StaleCheckInterval < minSyncInterval {
		return fmt.Errorf("STALE_CHECK_INTERVAL must be at least %s", minSyncInterval)
	}
	if c.Sync.StaleAfter <= 0 {
		return fmt.Errorf("STALE_AFTER must be positive")
	}
	return nil
}

// validateNATS validates NATS configuration (only if enabled).
func (c *Config) validateNATS() error {
	if !c.NATS.Enabled {
		return nil
	}
	if !c.NATS.EmbeddedServer {
		if c.NATS.URL == "" {
			return fmt.Errorf("NATS_URL is required when NATS_ENABLED=true and NATS_EMBEDDED=false")
		}
		if err := validateNATSURL(c.NATS.URL); err != nil {
			return fmt.Errorf("NATS_URL is invalid: %w", err)
		}
	}
	if c.NATS.EmbeddedServer && c.NATS.StoreDir == "" {
		return fmt.Errorf("NATS_STORE_DIR is required for the embedded server")
	}
	if c.NATS.StreamRetentionDays < 1 || c.NATS.StreamRetentionDays > 365 {
		return fmt.Errorf("NATS_RETENTION_DAYS must be between 1 and 365")
	}
	return nil
}

// validateKafka validates the Kafka sink (only if enabled).
func (c *Config) validateKafka() error {
	if !c.Kafka.Enabled {
		return nil
	}
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED=true")
	}
	if c.Kafka.Topic == "" {
		return fmt.Errorf("KAFKA_TOPIC is required when KAFKA_ENABLED=true")
	}
	if c.Kafka.BatchTimeout <= 0 {
		return fmt.Errorf("KAFKA_BATCH_TIMEOUT must be positive")
	}
	return nil
}

// validateArchive validates the DuckDB archive (only if enabled).
func (c *Config) validateArchive() error {
	if !c.Archive.Enabled {
		return nil
	}
	if c.Archive.Path == "" {
		return fmt.Errorf("DUCKDB_PATH is required when ARCHIVE_ENABLED=true")
	}
	if c.Archive.BatchSize < 1 || c.Archive.BatchSize > 10000 {
		return fmt.Errorf("ARCHIVE_BATCH_SIZE must be between 1 and 10000")
	}
	if c.Archive.FlushInterval < 100*time.Millisecond {
		return fmt.Errorf("ARCHIVE_FLUSH_INTERVAL must be at least 100ms")
	}
	if c.Archive.RetentionDays < 1 {
		return fmt.Errorf("ARCHIVE_RETENTION_DAYS must be at least 1")
	}
	return nil
}

// validateWAL validates the ingest WAL (only if enabled).
func (c *Config) validateWAL() error {
	if !c.WAL.Enabled {
		return nil
	}
	if c.WAL.Path == "" {
		return fmt.Errorf("WAL_PATH is required when WAL_ENABLED=true")
	}
	if c.WAL.CompactInterval < time.Minute {
		return fmt.Errorf("WAL_COMPACT_INTERVAL must be at least 1m")
	}
	return nil
}

// validateServer validates HTTP server settings.
func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.Host == "" {
		return fmt.Errorf("HTTP_HOST must not be empty")
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	switch c.Server.Environment {
	case "development", "production":
	default:
		return fmt.Errorf("ENVIRONMENT must be 'development' or 'production', got %q", c.Server.Environment)
	}
	return nil
}

// validateAPI validates pagination bounds.
func (c *Config) validateAPI() error {
	if c.API.DefaultPageSize < 1 {
		return fmt.Errorf("API_DEFAULT_PAGE_SIZE must be at least 1")
	}
	if c.API.MaxPageSize < c.API.DefaultPageSize {
		return fmt.Errorf("API_MAX_PAGE_SIZE must be >= API_DEFAULT_PAGE_SIZE")
	}
	if c.API.DefaultTrackLimit < 1 {
		return fmt.Errorf("API_DEFAULT_TRACK_LIMIT must be at least 1")
	}
	return nil
}

// validateSecurity validates authentication and rate limiting settings.
func (c *Config) validateSecurity() error {
	switch c.Security.AuthMode {
	case "jwt":
		if err := c.validateJWT(); err != nil {
			return err
		}
	case "none":
		if c.Server.Environment == "production" {
			return fmt.Errorf("AUTH_MODE=none is not permitted when ENVIRONMENT=production")
		}
	default:
		return fmt.Errorf("AUTH_MODE must be 'jwt' or 'none', got %q", c.Security.AuthMode)
	}

	if !c.Security.RateLimitDisabled {
		if c.Security.RateLimitReqs < 1 {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1")
		}
		if c.Security.RateLimitWindow <= 0 {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
		}
	}

	if c.Security.Casbin.DefaultRole == "" {
		return fmt.Errorf("CASBIN_DEFAULT_ROLE must not be empty")
	}
	return nil
}

// validateJWT validates JWT-mode credentials.
func (c *Config) validateJWT() error {
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when AUTH_MODE=jwt")
	}
	if len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	if c.Security.AdminUsername == "" {
		return fmt.Errorf("ADMIN_USERNAME is required when AUTH_MODE=jwt")
	}
	if c.Security.AdminPassword == "" {
		return fmt.Errorf("ADMIN_PASSWORD is required when AUTH_MODE=jwt")
	}
	if c.Security.SessionTimeout < time.Minute {
		return fmt.Errorf("SESSION_TIMEOUT must be at least 1m")
	}
	return c.validateUsers()
}

// validateUsers validates the additional account list.
func (c *Config) validateUsers() error {
	seen := map[string]bool{c.Security.AdminUsername: true}
	for i, u := range c.Security.Users {
		if u.Username == "" {
			return fmt.Errorf("security.users[%d]: username is required", i)
		}
		if seen[u.Username] {
			return fmt.Errorf("security.users[%d]: duplicate username %q", i, u.Username)
		}
		seen[u.Username] = true
		if !strings.HasPrefix(u.PasswordHash, "$2") {
			return fmt.Errorf("security.users[%d] (%s): password_hash must be a bcrypt hash", i, u.Username)
		}
		switch u.Role {
		case "admin", "operator", "analyst":
		default:
			return fmt.Errorf("security.users[%d] (%s): role must be admin, operator, or analyst; got %q", i, u.Username, u.Role)
		}
	}
	return nil
}

// validateLogging validates logging settings.
func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "trace", "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error, fatal, panic; got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be 'json' or 'console', got %q", c.Logging.Format)
	}
	return nil
}
