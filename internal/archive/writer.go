// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package archive

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mhalvorsen/pelorus/internal/logging"
	"github.com/mhalvorsen/pelorus/internal/metrics"
	"github.com/mhalvorsen/pelorus/internal/models"
)

// ErrWriterClosed is returned by enqueue calls after Close.
var ErrWriterClosed = errors.New("archive writer is closed")

// flushTimeout bounds a single flush cycle. Flushes run on detached
// contexts; the caller's context may be long gone by the time the store
// write happens.
const flushTimeout = 30 * time.Second

// maxPendingBatches caps the buffer at this many batches. Past the cap
// new rows are dropped and counted rather than growing memory while the
// store is unreachable.
const maxPendingBatches = 100

// WriterConfig controls batching in the archive Writer.
type WriterConfig struct {
	BatchSize     int
	FlushInterval time.Duration
}

// WriterStats is a point-in-time snapshot of writer counters.
type WriterStats struct {
	RowsReceived  int64
	RowsFlushed   int64
	RowsDropped   int64
	FlushCount    int64
	ErrorCount    int64
	LastFlushTime time.Time
	LastError     string
	Buffered      int
	AvgFlushTime  time.Duration
}

// Writer buffers archive rows and flushes them to the Store in batches,
// on a size threshold or a timer. The sync jobs enqueue through it, so
// enqueues must stay cheap: they append to a buffer and never wait on
// the store.
//
// Flush cycles are serialized through flushMu so a timer flush and a
// threshold flush cannot interleave row batches. On a failed insert the
// unflushed tail goes back to the front of the buffer for the next
// attempt.
type Writer struct {
	store  Store
	config WriterConfig

	mu         sync.Mutex
	positions  []models.PositionObservation
	alerts     []AlertEvent
	congestion []CongestionSnapshot

	flushMu sync.Mutex

	closed  atomic.Bool
	started atomic.Bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	flushWg sync.WaitGroup

	rowsReceived   atomic.Int64
	rowsFlushed    atomic.Int64
	rowsDropped    atomic.Int64
	flushCount     atomic.Int64
	errorCount     atomic.Int64
	totalFlushTime atomic.Int64
	lastFlushTime  atomic.Value // time.Time
	lastError      atomic.Value // string
}

// NewWriter builds a Writer flushing into store.
func NewWriter(store Store, cfg WriterConfig) (*Writer, error) {
	if store == nil {
		return nil, fmt.Errorf("new archive writer: store is required")
	}
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("new archive writer: batch size must be positive, got %d", cfg.BatchSize)
	}
	if cfg.FlushInterval <= 0 {
		return nil, fmt.Errorf("new archive writer: flush interval must be positive, got %s", cfg.FlushInterval)
	}

	w := &Writer{
		store:  store,
		config: cfg,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	w.lastFlushTime.Store(time.Time{})
	w.lastError.Store("")

	return w, nil
}

// Start begins the periodic flush timer. Threshold flushes work without
// it; Start only adds the interval trigger. Idempotent.
func (w *Writer) Start(ctx context.Context) error {
	if w.closed.Load() {
		return ErrWriterClosed
	}
	if w.started.Swap(true) {
		return nil
	}

	go w.flushLoop(ctx)
	return nil
}

// ArchivePosition enqueues one position observation.
func (w *Writer) ArchivePosition(ctx context.Context, obs models.PositionObservation) error {
	if obs.EntityID == "" {
		return fmt.Errorf("archive position: missing entity id")
	}
	return w.enqueue("position", func() {
		w.positions = append(w.positions, obs)
	})
}

// ArchiveAlert enqueues one alert transition as an append-only audit row.
func (w *Writer) ArchiveAlert(ctx context.Context, transition string, cond *models.AlertCondition) error {
	if cond == nil {
		return fmt.Errorf("archive alert: nil condition")
	}
	row := AlertEvent{
		AlertID:    cond.ID,
		EntityID:   cond.EntityID,
		Transition: transition,
		HazardKind: cond.Kind,
		Severity:   cond.Severity,
		ZoneIDs:    append([]string(nil), cond.ZoneIDs...),
		State:      cond.State,
		RiskScore:  cond.RiskScore,
		OpenedAt:   cond.OpenedAt,
		ResolvedAt: cond.ResolvedAt,
		RecordedAt: time.Now().UTC(),
	}
	return w.enqueue("alert", func() {
		w.alerts = append(w.alerts, row)
	})
}

// ArchiveCongestion enqueues one congestion snapshot for a port.
func (w *Writer) ArchiveCongestion(ctx context.Context, portID string, c models.Congestion) error {
	if portID == "" {
		return fmt.Errorf("archive congestion: missing port id")
	}
	row := CongestionSnapshot{
		PortID:        portID,
		VesselsInPort: c.VesselsInPort,
		AvgWaitHours:  c.AvgWaitHours,
		Level:         c.Level,
		UpdatedAt:     c.UpdatedAt,
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = time.Now().UTC()
	}
	return w.enqueue("congestion", func() {
		w.congestion = append(w.congestion, row)
	})
}

// PruneBefore flushes pending rows, then removes archived rows older
// than cutoff. The retention job calls it off the ingest path, so it
// runs synchronously against the store.
func (w *Writer) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if w.closed.Load() {
		return 0, ErrWriterClosed
	}

	// Flush first so rows already enqueued are subject to this prune.
	// A failed flush keeps its rows buffered; the prune still proceeds.
	if err := w.Flush(ctx); err != nil {
		logging.Warn().Err(err).Msg("Archive flush before prune failed")
	}

	return w.store.DeleteBefore(ctx, cutoff)
}

// Flush synchronously flushes all buffered rows, waiting for in-flight
// async flushes first.
func (w *Writer) Flush(ctx context.Context) error {
	w.flushWg.Wait()
	return w.flush(ctx)
}

// Close stops the flush timer and flushes pending rows. Idempotent.
func (w *Writer) Close() error {
	if w.closed.Swap(true) {
		return nil
	}

	if w.started.Load() {
		close(w.stopCh)
		<-w.doneCh
	}

	w.flushWg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	return w.flush(ctx)
}

// Stats returns current writer counters.
func (w *Writer) Stats() WriterStats {
	w.mu.Lock()
	buffered := w.bufferedLocked()
	w.mu.Unlock()

	var avgFlushTime time.Duration
	if count := w.flushCount.Load(); count > 0 {
		avgFlushTime = time.Duration(w.totalFlushTime.Load() / count)
	}

	var lastFlushTime time.Time
	if t, ok := w.lastFlushTime.Load().(time.Time); ok {
		lastFlushTime = t
	}
	var lastError string
	if e, ok := w.lastError.Load().(string); ok {
		lastError = e
	}

	return WriterStats{
		RowsReceived:  w.rowsReceived.Load(),
		RowsFlushed:   w.rowsFlushed.Load(),
		RowsDropped:   w.rowsDropped.Load(),
		FlushCount:    w.flushCount.Load(),
		ErrorCount:    w.errorCount.Load(),
		LastFlushTime: lastFlushTime,
		LastError:     lastError,
		Buffered:      buffered,
		AvgFlushTime:  avgFlushTime,
	}
}

// enqueue appends one row under the buffer lock and triggers an async
// flush when the threshold is reached. Never blocks on the store.
func (w *Writer) enqueue(kind string, add func()) error {
	if w.closed.Load() {
		return ErrWriterClosed
	}

	w.mu.Lock()
	if w.bufferedLocked() >= w.config.BatchSize*maxPendingBatches {
		w.mu.Unlock()
		w.rowsDropped.Add(1)
		logging.Debug().Str("kind", kind).Msg("Archive buffer saturated, dropping row")
		return nil
	}
	add()
	needsFlush := w.bufferedLocked() >= w.config.BatchSize
	w.mu.Unlock()

	w.rowsReceived.Add(1)

	if needsFlush {
		w.flushWg.Add(1)
		go func() {
			defer w.flushWg.Done()
			// The enqueueing job's context may be canceled before this
			// goroutine runs; the flush gets its own deadline so the
			// rows still reach the store.
			flushCtx, cancel := context.WithTimeout(context.Background(), flushTimeout)
			defer cancel()
			if err := w.flush(flushCtx); err != nil {
				logging.Debug().Err(err).Msg("Archive threshold flush failed")
			}
		}()
	}

	return nil
}

func (w *Writer) bufferedLocked() int {
	return len(w.positions) + len(w.alerts) + len(w.congestion)
}

// flushLoop runs the periodic flush timer. The parent context only
// signals shutdown; each flush runs on its own deadline.
func (w *Writer) flushLoop(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			flushCtx, cancel := context.WithTimeout(context.Background(), flushTimeout)
			if err := w.flush(flushCtx); err != nil {
				logging.Debug().Err(err).Msg("Archive timer flush failed")
			}
			cancel()
		}
	}
}

// flush drains the buffers and writes them to the store in BatchSize
// chunks. Row kinds flush independently: a failing positions insert does
// not hold back congestion rows. Unflushed rows return to the front of
// their buffer for the next cycle.
func (w *Writer) flush(ctx context.Context) error {
	w.flushMu.Lock()
	defer w.flushMu.Unlock()

	w.mu.Lock()
	if w.bufferedLocked() == 0 {
		w.mu.Unlock()
		return nil
	}
	positions, alerts, congestion := w.positions, w.alerts, w.congestion
	w.positions, w.alerts, w.congestion = nil, nil, nil
	w.mu.Unlock()

	start := time.Now()

	pFlushed, pInserted, pLeft, pErr := flushChunks(ctx, positions, w.config.BatchSize, w.store.InsertPositions)
	aFlushed, aInserted, aLeft, aErr := flushChunks(ctx, alerts, w.config.BatchSize, w.store.InsertAlertEvents)
	cFlushed, cInserted, cLeft, cErr := flushChunks(ctx, congestion, w.config.BatchSize, w.store.InsertCongestionSnapshots)

	if len(pLeft)+len(aLeft)+len(cLeft) > 0 {
		w.mu.Lock()
		w.positions = append(pLeft, w.positions...)
		w.alerts = append(aLeft, w.alerts...)
		w.congestion = append(cLeft, w.congestion...)
		w.mu.Unlock()
	}

	flushed := pFlushed + aFlushed + cFlushed
	if flushed > 0 {
		elapsed := time.Since(start)
		w.rowsFlushed.Add(int64(flushed))
		w.flushCount.Add(1)
		w.totalFlushTime.Add(elapsed.Nanoseconds())
		w.lastFlushTime.Store(time.Now())
		metrics.RecordArchiveFlush(elapsed, flushed)

		logging.Debug().
			Int("rows", flushed).
			Int("duplicates", flushed-(pInserted+aInserted+cInserted)).
			Dur("elapsed", elapsed).
			Msg("Archive batch flushed")
	}

	if err := errors.Join(pErr, aErr, cErr); err != nil {
		w.errorCount.Add(1)
		w.lastError.Store(err.Error())
		return fmt.Errorf("flush archive rows: %w", err)
	}
	w.lastError.Store("")

	return nil
}

// flushChunks writes rows through insert in batchSize chunks so one
// large backlog cannot blow the store's transaction memory. On error the
// not-yet-written tail comes back for the caller to restore; rows in
// chunks that committed stay flushed.
func flushChunks[T any](
	ctx context.Context,
	rows []T,
	batchSize int,
	insert func(context.Context, []T) (int, error),
) (flushed, inserted int, unflushed []T, err error) {
	for start := 0; start < len(rows); start += batchSize {
		end := min(start+batchSize, len(rows))
		n, insErr := insert(ctx, rows[start:end])
		if insErr != nil {
			return flushed, inserted, rows[start:], insErr
		}
		flushed += end - start
		inserted += n
	}
	return flushed, inserted, nil, nil
}
