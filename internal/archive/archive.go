// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package archive

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/mhalvorsen/pelorus/internal/config"
	"github.com/mhalvorsen/pelorus/internal/logging"
)

// Archive wraps the DuckDB connection that holds the long-term tables.
type Archive struct {
	conn *sql.DB
	cfg  *config.ArchiveConfig
}

// Open opens (or creates) the DuckDB archive at cfg.Path and initializes
// the schema. The parent directory is created when missing so a fresh
// deployment can point at an empty data volume.
func Open(cfg *config.ArchiveConfig) (*Archive, error) {
	if cfg == nil {
		return nil, fmt.Errorf("open archive: nil config")
	}

	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	if dir := filepath.Dir(cfg.Path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create archive directory %s: %w", dir, err)
		}
	}

	// Extension auto-install/auto-load stay off so opening the archive
	// never reaches for the network in restricted deployments.
	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		cfg.Path, threads, cfg.MaxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("open archive database: %w", err)
	}

	a := &Archive{conn: conn, cfg: cfg}
	a.configurePool(threads)

	if err := a.createTables(); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("initialize archive schema: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Int("threads", threads).
		Str("max_memory", cfg.MaxMemory).
		Msg("Archive database opened")

	return a, nil
}

// configurePool sizes the database/sql pool. DuckDB is embedded, so the
// pool bounds concurrent native calls rather than network sockets.
func (a *Archive) configurePool(threads int) {
	a.conn.SetMaxOpenConns(threads)
	a.conn.SetMaxIdleConns(2)
	a.conn.SetConnMaxLifetime(time.Hour)
	a.conn.SetConnMaxIdleTime(5 * time.Minute)
}

// Conn exposes the underlying pool for packages that need raw access,
// such as the backup job.
func (a *Archive) Conn() *sql.DB {
	return a.conn
}

// Ping reports whether the archive connection is alive.
func (a *Archive) Ping(ctx context.Context) error {
	if a.conn == nil {
		return fmt.Errorf("archive connection is nil")
	}
	return a.conn.PingContext(ctx)
}

// Close checkpoints the database WAL into the main file and closes the
// connection. Checkpointing first keeps the next startup from replaying
// a large WAL.
func (a *Archive) Close() error {
	if a.conn == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := a.conn.ExecContext(ctx, "CHECKPOINT"); err != nil {
		logging.Warn().Err(err).Msg("Archive checkpoint before close failed")
	}

	return a.conn.Close()
}

func closeQuietly(c io.Closer) {
	if err := c.Close(); err != nil {
		logging.Debug().Err(err).Msg("Close failed")
	}
}
