// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

//go:build wal

package wal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	json "github.com/goccy/go-json"

	"github.com/mhalvorsen/pelorus/internal/logging"
	"github.com/mhalvorsen/pelorus/internal/metrics"
	"github.com/mhalvorsen/pelorus/internal/models"
)

// Key prefixes for the two batch states. Keys zero-pad the numeric ID
// so lexicographic iteration within a prefix is ID order.
const (
	prefixPending   = "pending:"
	prefixConfirmed = "confirmed:"

	// seqKey holds the persistent batch ID sequence. IDs survive
	// restarts so a confirmation can never alias an older batch.
	seqKey = "seq:batch"

	// seqBandwidth is how many IDs each sequence lease reserves.
	seqBandwidth = 128
)

// BadgerWAL is the durable ingest log. All methods are safe for
// concurrent use.
type BadgerWAL struct {
	db  *badger.DB
	seq *badger.Sequence

	config Config

	totalWrites   atomic.Int64
	totalConfirms atomic.Int64

	mu             sync.RWMutex
	closed         bool
	lastCompaction time.Time
}

// Open validates the configuration and creates or reopens the WAL at
// the configured path.
func Open(cfg *Config) (*BadgerWAL, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid WAL config: %w", err)
	}
	return open(cfg)
}

// OpenForTesting skips configuration validation so tests can run with
// intervals below the production minimums.
func OpenForTesting(cfg *Config) (*BadgerWAL, error) {
	if cfg.NumCompactors < 2 {
		cfg.NumCompactors = 2
	}
	if cfg.GCRatio <= 0 {
		cfg.GCRatio = 0.5
	}
	if cfg.CloseTimeout == 0 {
		cfg.CloseTimeout = 30 * time.Second
	}
	return open(cfg)
}

func open(cfg *Config) (*BadgerWAL, error) {
	opts := badger.DefaultOptions(cfg.Path)
	opts.SyncWrites = cfg.SyncWrites
	opts.MemTableSize = cfg.MemTableSize
	opts.ValueLogFileSize = cfg.ValueLogFileSize
	opts.NumCompactors = cfg.NumCompactors
	if cfg.Compression {
		opts.Compression = options.Snappy
	}

	// Badger's own logger is noisy at Info; the WAL logs what matters.
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	seq, err := db.GetSequence([]byte(seqKey), seqBandwidth)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open batch sequence: %w", err)
	}

	w := &BadgerWAL{
		db:             db,
		seq:            seq,
		config:         *cfg,
		lastCompaction: time.Now(),
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("sync_writes", cfg.SyncWrites).
		Bool("compression", cfg.Compression).
		Msg("Ingest WAL opened")
	return w, nil
}

// WriteBatch durably logs one fetched batch and returns its ID. The
// batch lands under the pending prefix and stays there until Confirm.
func (w *BadgerWAL) WriteBatch(ctx context.Context, source string, readings []models.Reading) (uint64, error) {
	w.mu.RLock()
	if w.closed {
		w.mu.RUnlock()
		return 0, ErrWALClosed
	}
	w.mu.RUnlock()

	if len(readings) == 0 {
		return 0, ErrEmptyBatch
	}

	next, err := w.seq.Next()
	if err != nil {
		return 0, fmt.Errorf("next batch id: %w", err)
	}
	// Sequences start at zero; zero means "no batch" to callers.
	id := next + 1

	entry := &BatchEntry{
		ID:        id,
		Source:    source,
		Readings:  readings,
		CreatedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return 0, fmt.Errorf("marshal batch: %w", err)
	}

	err = w.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(pendingKey(id), data)
		if w.config.EntryTTL > 0 {
			e = e.WithTTL(w.config.EntryTTL)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		return 0, fmt.Errorf("write batch: %w", err)
	}

	w.totalWrites.Add(1)
	return id, nil
}

// Confirm marks a batch as applied. The entry moves from the pending to
// the confirmed prefix, where the next compaction pass removes it.
func (w *BadgerWAL) Confirm(ctx context.Context, id uint64) error {
	w.mu.RLock()
	if w.closed {
		w.mu.RUnlock()
		return ErrWALClosed
	}
	w.mu.RUnlock()

	if id == 0 {
		return ErrBatchIDZero
	}

	err := w.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(pendingKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrBatchNotFound
		}
		if err != nil {
			return fmt.Errorf("get pending batch: %w", err)
		}

		var entry BatchEntry
		err = item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
		if err != nil {
			return fmt.Errorf("unmarshal batch: %w", err)
		}

		now := time.Now().UTC()
		entry.Confirmed = true
		entry.ConfirmedAt = &now

		data, err := json.Marshal(&entry)
		if err != nil {
			return fmt.Errorf("marshal confirmed batch: %w", err)
		}

		// TTL on the confirmed copy is a backstop should the
		// compactor be down for longer than the retention window.
		e := badger.NewEntry(confirmedKey(id), data)
		if w.config.EntryTTL > 0 {
			e = e.WithTTL(w.config.EntryTTL)
		}
		if err := txn.SetEntry(e); err != nil {
			return fmt.Errorf("set confirmed batch: %w", err)
		}
		if err := txn.Delete(pendingKey(id)); err != nil {
			return fmt.Errorf("delete pending batch: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	w.totalConfirms.Add(1)
	metrics.WALConfirmed.Inc()
	return nil
}

// GetPending returns all unconfirmed batches, oldest first. The View
// transaction gives a consistent snapshot under concurrent writes.
func (w *BadgerWAL) GetPending(ctx context.Context) ([]*BatchEntry, error) {
	w.mu.RLock()
	if w.closed {
		w.mu.RUnlock()
		return nil, ErrWALClosed
	}
	w.mu.RUnlock()

	var entries []*BatchEntry
	err := w.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixPending)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			item := it.Item()
			var entry BatchEntry
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			})
			if err != nil {
				logging.Warn().Err(err).Str("key", string(item.Key())).Msg("Skipping unreadable WAL entry")
				continue
			}
			entries = append(entries, &entry)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterate pending batches: %w", err)
	}
	return entries, nil
}

// Stats counts batches by state and refreshes the WAL gauges.
func (w *BadgerWAL) Stats() Stats {
	w.mu.RLock()
	closed := w.closed
	lastCompaction := w.lastCompaction
	w.mu.RUnlock()

	if closed {
		return Stats{}
	}

	var pending, confirmed int64
	if err := w.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		pendingPrefix := []byte(prefixPending)
		for it.Seek(pendingPrefix); it.ValidForPrefix(pendingPrefix); it.Next() {
			pending++
		}

		confirmedPrefix := []byte(prefixConfirmed)
		for it.Seek(confirmedPrefix); it.ValidForPrefix(confirmedPrefix); it.Next() {
			confirmed++
		}
		return nil
	}); err != nil {
		logging.Warn().Err(err).Msg("WAL stats count failed")
	}

	lsm, vlog := w.db.Size()

	metrics.WALPendingEntries.Set(float64(pending))
	metrics.WALSizeBytes.Set(float64(lsm + vlog))

	return Stats{
		PendingCount:   pending,
		ConfirmedCount: confirmed,
		TotalWrites:    w.totalWrites.Load(),
		TotalConfirms:  w.totalConfirms.Load(),
		LastCompaction: lastCompaction,
		DBSizeBytes:    lsm + vlog,
	}
}

// markCompacted records the end of a compaction pass for Stats.
func (w *BadgerWAL) markCompacted(t time.Time) {
	w.mu.Lock()
	w.lastCompaction = t
	w.mu.Unlock()
}

// RunGC runs Badger value log garbage collection until there is
// nothing left to rewrite.
func (w *BadgerWAL) RunGC() error {
	w.mu.RLock()
	if w.closed {
		w.mu.RUnlock()
		return ErrWALClosed
	}
	w.mu.RUnlock()

	for {
		err := w.db.RunValueLogGC(w.config.GCRatio)
		if errors.Is(err, badger.ErrNoRewrite) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("value log gc: %w", err)
		}
	}
}

// Close releases the ID sequence and shuts the database down. A close
// that outlives CloseTimeout returns an error instead of hanging
// shutdown. Close is idempotent.
func (w *BadgerWAL) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	timeout := w.config.CloseTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	w.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		// Releasing the sequence returns the unused ID lease so the
		// next open does not skip a full bandwidth block.
		if err := w.seq.Release(); err != nil {
			logging.Warn().Err(err).Msg("WAL sequence release failed")
		}
		done <- w.db.Close()
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("close badger: %w", err)
		}
		logging.Info().Msg("Ingest WAL closed")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("badger close timed out after %v", timeout)
	}
}

func pendingKey(id uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", prefixPending, id))
}

func confirmedKey(id uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", prefixConfirmed, id))
}
