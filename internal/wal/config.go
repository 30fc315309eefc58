// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package wal

import (
	"time"

	"github.com/mhalvorsen/pelorus/internal/config"
)

// Config holds the WAL settings plus the Badger tuning that the
// application configuration does not expose.
type Config struct {
	// Path is the directory where Badger stores its files. Must be on a
	// durable filesystem, not tmpfs.
	Path string

	// SyncWrites forces fsync after every write. Off by default: the
	// log survives process crashes without it, and a batch lost to
	// power failure costs at most one poll interval of readings.
	SyncWrites bool

	// CompactInterval is the time between compaction passes.
	CompactInterval time.Duration

	// EntryTTL bounds how long any batch can sit in the log. Pending
	// batches older than this are dropped instead of replayed; readings
	// that stale would be rejected by the pipeline anyway.
	EntryTTL time.Duration

	// MemTableSize is the size of each Badger memtable in bytes.
	MemTableSize int64

	// ValueLogFileSize is the size of each Badger value log file in bytes.
	ValueLogFileSize int64

	// NumCompactors is the number of Badger compaction workers.
	NumCompactors int

	// Compression enables Snappy compression for stored batches.
	Compression bool

	// GCRatio is the value log garbage collection ratio. Lower values
	// reclaim more space at more CPU cost.
	GCRatio float64

	// CloseTimeout caps how long Close waits for Badger to shut down.
	CloseTimeout time.Duration
}

// DefaultConfig returns the tuning used unless the application
// configuration overrides it.
func DefaultConfig() Config {
	return Config{
		Path:             "/data/wal",
		SyncWrites:       false,
		CompactInterval:  10 * time.Minute,
		EntryTTL:         72 * time.Hour,
		MemTableSize:     16 * 1024 * 1024,
		ValueLogFileSize: 64 * 1024 * 1024,
		NumCompactors:    2,
		Compression:      true,
		GCRatio:          0.5,
		CloseTimeout:     30 * time.Second,
	}
}

// FromApp merges the application-level WAL settings onto the defaults.
// The Enabled flag stays with the caller; a disabled WAL is never opened.
func FromApp(app config.WALConfig) Config {
	cfg := DefaultConfig()
	cfg.Path = app.Path
	cfg.SyncWrites = app.SyncWrites
	if app.CompactInterval > 0 {
		cfg.CompactInterval = app.CompactInterval
	}
	return cfg
}

// Validate checks the configuration before Open.
func (c *Config) Validate() error {
	if c.Path == "" {
		return &ConfigError{Field: "Path", Message: "path is required"}
	}
	if c.CompactInterval < time.Minute {
		return &ConfigError{Field: "CompactInterval", Message: "must be at least 1 minute"}
	}
	if c.EntryTTL < time.Hour {
		return &ConfigError{Field: "EntryTTL", Message: "must be at least 1 hour"}
	}
	if c.MemTableSize < 1024*1024 {
		return &ConfigError{Field: "MemTableSize", Message: "must be at least 1MB"}
	}
	if c.ValueLogFileSize < 1024*1024 {
		return &ConfigError{Field: "ValueLogFileSize", Message: "must be at least 1MB"}
	}
	if c.NumCompactors < 2 {
		return &ConfigError{Field: "NumCompactors", Message: "must be at least 2 (Badger requirement)"}
	}
	if c.GCRatio <= 0 || c.GCRatio >= 1 {
		return &ConfigError{Field: "GCRatio", Message: "must be between 0 and 1"}
	}
	return nil
}

// ConfigError reports an invalid WAL setting.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "wal config: " + e.Field + ": " + e.Message
}
