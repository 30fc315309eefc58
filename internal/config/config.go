// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package config

import "time"

// Config holds all application configuration, loaded from defaults, an
// optional YAML file, and environment variables in that order of precedence.
type Config struct {
	Providers  ProvidersConfig  `koanf:"providers"`
	HazardFeed HazardFeedConfig `koanf:"hazard_feed"`
	Congestion CongestionConfig `koanf:"congestion"`
	History    HistoryConfig    `koanf:"history"`
	Alerting   AlertingConfig   `koanf:"alerting"`
	Sync       SyncConfig       `koanf:"sync"`
	NATS       NATSConfig       `koanf:"nats"`
	Kafka      KafkaConfig      `koanf:"kafka"`
	Archive    ArchiveConfig    `koanf:"archive"`
	WAL        WALConfig        `koanf:"wal"`
	Server     ServerConfig     `koanf:"server"`
	API        APIConfig        `koanf:"api"`
	Security   SecurityConfig   `koanf:"security"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// ProvidersConfig configures the AIS position feed chain. Providers are
// tried in order; the first that answers for an entity wins. An empty or
// fully disabled chain runs Pelorus in push-only mode, where positions
// arrive solely via the ingest API.
type ProvidersConfig struct {
	PollInterval   time.Duration `koanf:"poll_interval"`
	Workers        int           `koanf:"workers"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
	RateLimit      float64       `koanf:"rate_limit"` // requests/sec per provider
	RateBurst      int           `koanf:"rate_burst"`

	Chain []ProviderConfig `koanf:"chain"`
}

// ProviderConfig describes one upstream AIS provider in the chain.
type ProviderConfig struct {
	Name    string `koanf:"name"`
	URL     string `koanf:"url"`
	APIKey  string `koanf:"api_key"`
	Enabled bool   `koanf:"enabled"`
}

// HazardFeedConfig configures the hazard zone feed. Synced zones carry the
// SourceTag; each sync replaces exactly the zones carrying that tag, so
// admin-created zones are never touched by feed refreshes.
type HazardFeedConfig struct {
	Enabled   bool          `koanf:"enabled"`
	URL       string        `koanf:"url"`
	APIKey    string        `koanf:"api_key"`
	Interval  time.Duration `koanf:"interval"`
	SourceTag string        `koanf:"source_tag"`

	// DefaultRadiusKM is applied to advisories that arrive in the
	// center+radius convenience form without an explicit radius.
	DefaultRadiusKM float64 `koanf:"default_radius_km"`
}

// CongestionConfig configures port congestion readings. Mode "http" polls
// an upstream endpoint; mode "derived" computes congestion from tracked
// vessel positions within RadiusKM of each port.
type CongestionConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Mode     string        `koanf:"mode"`
	URL      string        `koanf:"url"`
	APIKey   string        `koanf:"api_key"`
	Interval time.Duration `koanf:"interval"`
	CacheTTL time.Duration `koanf:"cache_ttl"`
	RadiusKM float64       `koanf:"radius_km"`
}

// HistoryConfig configures track segmentation and retention.
type HistoryConfig struct {
	GapThreshold            time.Duration `koanf:"gap_threshold"`
	MaxObservationsPerTrack int           `koanf:"max_observations_per_track"`
	RetentionHorizon        time.Duration `koanf:"retention_horizon"`
}

// AlertingConfig configures alert reconciliation.
type AlertingConfig struct {
	// Policy selects the risk scoring policy; currently "weighted".
	Policy            string `koanf:"policy"`
	MaxRecentResolved int    `koanf:"max_recent_resolved"`
}

// SyncConfig configures the scheduler's housekeeping jobs.
type SyncConfig struct {
	RetentionSweepInterval time.Duration `koanf:"retention_sweep_interval"`
	StaleCheckInterval     time.Duration `koanf:"stale_check_interval"`
	// StaleAfter is how long an entity may go without an applied position
	// before the stale check flags it.
	StaleAfter time.Duration `koanf:"stale_after"`
}

// NATSConfig configures event publishing over NATS JetStream.
type NATSConfig struct {
	Enabled        bool   `koanf:"enabled"`
	URL            string `koanf:"url"`
	EmbeddedServer bool   `koanf:"embedded_server"`
	StoreDir       string `koanf:"store_dir"`
	MaxMemory      int64  `koanf:"max_memory"`
	MaxStore       int64  `koanf:"max_store"`

	StreamRetentionDays int    `koanf:"stream_retention_days"`
	DurableName         string `koanf:"durable_name"`
	QueueGroup          string `koanf:"queue_group"`
}

// KafkaConfig configures the optional Kafka event sink, used when alerts
// must reach an external warehouse alongside NATS.
type KafkaConfig struct {
	Enabled      bool          `koanf:"enabled"`
	Brokers      []string      `koanf:"brokers"`
	Topic        string        `koanf:"topic"`
	BatchTimeout time.Duration `koanf:"batch_timeout"`
}

// ArchiveConfig configures the DuckDB archival store.
type ArchiveConfig struct {
	Enabled       bool          `koanf:"enabled"`
	Path          string        `koanf:"path"`
	MaxMemory     string        `koanf:"max_memory"`
	Threads       int           `koanf:"threads"` // 0 = runtime.NumCPU()
	FlushInterval time.Duration `koanf:"flush_interval"`
	BatchSize     int           `koanf:"batch_size"`
	RetentionDays int           `koanf:"retention_days"`
}

// WALConfig configures the Badger ingest write-ahead log.
type WALConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Path            string        `koanf:"path"`
	SyncWrites      bool          `koanf:"sync_writes"`
	CompactInterval time.Duration `koanf:"compact_interval"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port        int           `koanf:"port"`
	Host        string        `koanf:"host"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"` // "development" or "production"
}

// APIConfig configures pagination and response bounds.
type APIConfig struct {
	DefaultPageSize   int `koanf:"default_page_size"`
	MaxPageSize       int `koanf:"max_page_size"`
	DefaultTrackLimit int `koanf:"default_track_limit"`
}

// SecurityConfig configures authentication, authorization, and rate limits.
type SecurityConfig struct {
	AuthMode       string        `koanf:"auth_mode"` // "jwt" or "none"
	JWTSecret      string        `koanf:"jwt_secret"`
	SessionTimeout time.Duration `koanf:"session_timeout"`
	AdminUsername  string        `koanf:"admin_username"`
	AdminPassword  string        `koanf:"admin_password"`

	// Users are additional accounts beyond the admin, with pre-hashed
	// credentials. File-only: lists do not map onto env vars.
	Users []UserConfig `koanf:"users"`

	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`

	CORSOrigins    []string `koanf:"cors_origins"`
	TrustedProxies []string `koanf:"trusted_proxies"`

	Casbin CasbinConfig `koanf:"casbin"`
}

// UserConfig describes one non-admin account. PasswordHash is a bcrypt
// hash; plaintext passwords never appear in config for these accounts.
type UserConfig struct {
	Username     string `koanf:"username"`
	PasswordHash string `koanf:"password_hash"`
	Role         string `koanf:"role"` // "admin", "operator", or "analyst"
}

// CasbinConfig configures role-based authorization. Empty paths select the
// embedded model and policy.
type CasbinConfig struct {
	ModelPath   string `koanf:"model_path"`
	PolicyPath  string `koanf:"policy_path"`
	DefaultRole string `koanf:"default_role"`
}

// LoggingConfig configures structured logging output.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // "json" or "console"
	Caller bool   `koanf:"caller"`
}

// Load loads, layers, and validates the full configuration. It is the
// entry point main uses; everything else in this package supports it.
func Load() (*Config, error) {
	return LoadWithKoanf()
}

// defaultConfig returns a Config with every default filled in. Defaults are
// applied first, then overridden by the config file and environment.
func defaultConfig() *Config {
	return &Config{
		Providers: ProvidersConfig{
			PollInterval:   60 * time.Second,
			Workers:        8,
			RequestTimeout: 15 * time.Second,
			RateLimit:      10,
			RateBurst:      20,
			Chain:          nil, // push-only mode by default
		},
		HazardFeed: HazardFeedConfig{
			Enabled:         false,
			URL:             "",
			APIKey:          "",
			Interval:        10 * time.Minute,
			SourceTag:       "hazard_feed",
			DefaultRadiusKM: 50,
		},
		Congestion: CongestionConfig{
			Enabled:  false,
			Mode:     "derived",
			URL:      "",
			Interval: 5 * time.Minute,
			CacheTTL: 4 * time.Minute,
			RadiusKM: 25,
		},
		History: HistoryConfig{
			GapThreshold:            6 * time.Hour,
			MaxObservationsPerTrack: 1000,
			RetentionHorizon:        365 * 24 * time.Hour,
		},
		Alerting: AlertingConfig{
			Policy:            "weighted",
			MaxRecentResolved: 1000,
		},
		Sync: SyncConfig{
			RetentionSweepInterval: time.Hour,
			StaleCheckInterval:     6 * time.Hour,
			StaleAfter:             24 * time.Hour,
		},
		NATS: NATSConfig{
			Enabled:             false,
			URL:                 "nats://127.0.0.1:4222",
			EmbeddedServer:      true,
			StoreDir:            "/data/nats/jetstream",
			MaxMemory:           1 << 30,  // 1GB
			MaxStore:            10 << 30, // 10GB
			StreamRetentionDays: 7,
			DurableName:         "pelorus-events",
			QueueGroup:          "processors",
		},
		Kafka: KafkaConfig{
			Enabled:      false,
			Brokers:      nil,
			Topic:        "pelorus.alerts",
			BatchTimeout: 250 * time.Millisecond,
		},
		Archive: ArchiveConfig{
			Enabled:       false,
			Path:          "/data/pelorus.duckdb",
			MaxMemory:     "2GB",
			Threads:       0,
			FlushInterval: 5 * time.Second,
			BatchSize:     500,
			RetentionDays: 365,
		},
		WAL: WALConfig{
			Enabled:         false,
			Path:            "/data/wal",
			SyncWrites:      false,
			CompactInterval: 10 * time.Minute,
		},
		Server: ServerConfig{
			Port:        8421,
			Host:        "0.0.0.0",
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		API: APIConfig{
			DefaultPageSize:   50,
			MaxPageSize:       500,
			DefaultTrackLimit: 1000,
		},
		Security: SecurityConfig{
			AuthMode:          "jwt",
			JWTSecret:         "",
			SessionTimeout:    24 * time.Hour,
			AdminUsername:     "",
			AdminPassword:     "",
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{"*"},
			TrustedProxies:    []string{},
			Casbin: CasbinConfig{
				ModelPath:   "",
				PolicyPath:  "",
				DefaultRole: "analyst",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// EnabledProviders returns the chain entries that are enabled, in order.
func (c *ProvidersConfig) EnabledProviders() []ProviderConfig {
	var out []ProviderConfig
	for _, p := range c.Chain {
		if p.Enabled {
			out = append(out, p)
		}
	}
	return out
}
