// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package history

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mhalvorsen/pelorus/internal/logging"
	"github.com/mhalvorsen/pelorus/internal/models"
)

var (
	// ErrClosed is returned for writes after Close.
	ErrClosed = errors.New("history: store closed")
	// ErrInvalidObservation is returned when an observation fails validation.
	ErrInvalidObservation = errors.New("history: invalid observation")
)

// DefaultQueryLimit bounds GetTrack responses when the caller does not
// supply a limit.
const DefaultQueryLimit = 1000

// Config controls track segmentation, per-track capacity, and retention.
type Config struct {
	// GapThreshold is the largest in-track silence. An observation
	// arriving more than GapThreshold after the previous one closes the
	// current track and opens a new one.
	GapThreshold time.Duration

	// MaxObservationsPerTrack caps each track. Appends beyond the cap
	// evict the oldest observations of that track, never of another.
	MaxObservationsPerTrack int

	// RetentionHorizon is how long closed tracks are kept, measured from
	// their end time.
	RetentionHorizon time.Duration
}

// DefaultConfig returns the production defaults: six hours of silence
// splits a voyage, a thousand fixes per track, a year of retention.
func DefaultConfig() Config {
	return Config{
		GapThreshold:            6 * time.Hour,
		MaxObservationsPerTrack: 1000,
		RetentionHorizon:        365 * 24 * time.Hour,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.GapThreshold <= 0 {
		return errors.New("gap threshold must be positive")
	}
	if c.MaxObservationsPerTrack < 1 {
		return errors.New("max observations per track must be at least 1")
	}
	if c.RetentionHorizon <= 0 {
		return errors.New("retention horizon must be positive")
	}
	return nil
}

// Track is one contiguous run of observations for an entity. A track is
// open while EndedAt is nil and closed once a gap or the retention sweep
// seals it. StartedAt is fixed at creation: ring-buffer eviction drops old
// observations but never moves the track's start boundary.
type Track struct {
	EntityID     string
	Seq          int
	StartedAt    time.Time
	EndedAt      *time.Time
	Observations []models.PositionObservation
}

// Open reports whether the track is still accepting observations.
func (t *Track) Open() bool { return t.EndedAt == nil }

// Last returns the most recent observation, or false when empty.
func (t *Track) Last() (models.PositionObservation, bool) {
	if len(t.Observations) == 0 {
		return models.PositionObservation{}, false
	}
	return t.Observations[len(t.Observations)-1], true
}

func (t *Track) clone() *Track {
	c := &Track{
		EntityID:     t.EntityID,
		Seq:          t.Seq,
		StartedAt:    t.StartedAt,
		Observations: make([]models.PositionObservation, len(t.Observations)),
	}
	copy(c.Observations, t.Observations)
	if t.EndedAt != nil {
		end := *t.EndedAt
		c.EndedAt = &end
	}
	return c
}

// AppendResult describes what a single append did.
type AppendResult struct {
	// Applied is false when the observation was older than the open
	// track's newest fix and was dropped.
	Applied bool
	// NewTrack is true when this append opened a track, either the
	// entity's first or one created by gap segmentation.
	NewTrack bool
	// ClosedPrevious is true when gap segmentation sealed the previously
	// open track.
	ClosedPrevious bool
	// Evicted counts observations removed to keep the track at cap.
	Evicted int
}

// Order selects the direction of GetTrack results.
type Order int

const (
	// NewestFirst returns the most recent observations first. Default.
	NewestFirst Order = iota
	// OldestFirst returns observations in chronological order.
	OldestFirst
)

// TrackQuery filters and bounds a GetTrack call. Zero Start/End mean
// unbounded; Limit <= 0 applies DefaultQueryLimit.
type TrackQuery struct {
	Start time.Time
	End   time.Time
	Limit int
	Order Order
}

type entityHistory struct {
	mu     sync.Mutex
	tracks []*Track // oldest first; only the last may be open
	seq    int
}

// Store holds bounded position history for every tracked entity. The
// store-level lock guards only the entity map; each entity carries its own
// mutex so appends and sweeps for different vessels never contend.
type Store struct {
	cfg Config

	mu       sync.RWMutex
	entities map[string]*entityHistory
	closed   bool
}

// NewStore builds a history store with the given configuration.
func NewStore(cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("history config: %w", err)
	}
	return &Store{
		cfg:      cfg,
		entities: make(map[string]*entityHistory),
	}, nil
}

// Append records one observation for an entity.
//
// The open track absorbs it when the gap since the previous fix is within
// threshold; a larger gap closes that track at its last-seen time and
// opens a fresh one. An observation older than the open track's newest fix
// is dropped without error, the append reported as not applied. After a
// successful append the track is trimmed to cap, oldest first.
func (s *Store) Append(ctx context.Context, entityID string, obs models.PositionObservation) (AppendResult, error) {
	if err := ctx.Err(); err != nil {
		return AppendResult{}, err
	}
	if entityID == "" || !obs.Position().Valid() || obs.ObservedAt.IsZero() {
		return AppendResult{}, ErrInvalidObservation
	}

	eh, err := s.entityLocked(entityID, true)
	if err != nil {
		return AppendResult{}, err
	}

	eh.mu.Lock()
	defer eh.mu.Unlock()

	var res AppendResult
	open := eh.openTrack()

	if open != nil {
		last, _ := open.Last()
		switch {
		case obs.ObservedAt.Sub(last.ObservedAt) > s.cfg.GapThreshold:
			end := last.ObservedAt
			open.EndedAt = &end
			res.ClosedPrevious = true
			open = nil
		case obs.ObservedAt.Before(last.ObservedAt):
			logging.Debug().
				Str("entity_id", entityID).
				Time("observed_at", obs.ObservedAt).
				Time("track_newest", last.ObservedAt).
				Msg("Dropping out-of-order observation")
			return res, nil
		case obs.ObservedAt.Equal(last.ObservedAt) && samePlace(obs, last):
			// Duplicate delivery of the same fix.
			return res, nil
		}
	}

	if open == nil {
		eh.seq++
		open = &Track{
			EntityID:  entityID,
			Seq:       eh.seq,
			StartedAt: obs.ObservedAt,
		}
		eh.tracks = append(eh.tracks, open)
		res.NewTrack = true
	}

	open.Observations = append(open.Observations, obs)
	res.Applied = true

	if over := len(open.Observations) - s.cfg.MaxObservationsPerTrack; over > 0 {
		copy(open.Observations, open.Observations[over:])
		open.Observations = open.Observations[:s.cfg.MaxObservationsPerTrack]
		res.Evicted = over
	}

	return res, nil
}

func samePlace(a, b models.PositionObservation) bool {
	return a.Lat == b.Lat && a.Lon == b.Lon
}

// SweepRetention seals idle tracks and deletes expired ones.
//
// An open track whose newest fix is more than the gap threshold before now
// is closed at that fix's time. Closed tracks whose end time has aged past
// the retention horizon are removed; entities left with no tracks are
// forgotten. Returns the number of tracks removed. The sweep takes the
// same per-entity lock as Append, so the two never interleave for one
// entity.
func (s *Store) SweepRetention(ctx context.Context, now time.Time) (int, error) {
	ids, err := s.entityIDs()
	if err != nil {
		return 0, err
	}

	cutoff := now.Add(-s.cfg.RetentionHorizon)
	removed := 0

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return removed, err
		}

		eh, err := s.entityLocked(id, false)
		if err != nil {
			return removed, err
		}
		if eh == nil {
			continue
		}

		eh.mu.Lock()
		if open := eh.openTrack(); open != nil {
			if last, ok := open.Last(); ok && now.Sub(last.ObservedAt) > s.cfg.GapThreshold {
				end := last.ObservedAt
				open.EndedAt = &end
			}
		}

		kept := eh.tracks[:0]
		for _, t := range eh.tracks {
			if t.EndedAt != nil && t.EndedAt.Before(cutoff) {
				removed++
				continue
			}
			kept = append(kept, t)
		}
		for i := len(kept); i < len(eh.tracks); i++ {
			eh.tracks[i] = nil
		}
		eh.tracks = kept
		empty := len(eh.tracks) == 0
		eh.mu.Unlock()

		if empty {
			s.dropIfEmpty(id)
		}
	}

	if removed > 0 {
		logging.Info().Int("tracks_removed", removed).Msg("Retention sweep completed")
	}
	return removed, nil
}

// GetTrack returns the entity's observations across all of its tracks,
// filtered to [Start, End] where set, newest first unless OldestFirst is
// requested, and capped by the query limit. An unknown entity yields an
// empty slice.
func (s *Store) GetTrack(ctx context.Context, entityID string, q TrackQuery) ([]models.PositionObservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultQueryLimit
	}

	eh, err := s.entityLocked(entityID, false)
	if err != nil || eh == nil {
		return nil, err
	}

	eh.mu.Lock()
	defer eh.mu.Unlock()

	out := make([]models.PositionObservation, 0, limit)
	if q.Order == NewestFirst {
		for ti := len(eh.tracks) - 1; ti >= 0 && len(out) < limit; ti-- {
			obs := eh.tracks[ti].Observations
			for oi := len(obs) - 1; oi >= 0 && len(out) < limit; oi-- {
				if inWindow(obs[oi].ObservedAt, q.Start, q.End) {
					out = append(out, obs[oi])
				}
			}
		}
	} else {
		for _, t := range eh.tracks {
			for _, o := range t.Observations {
				if len(out) >= limit {
					return out, nil
				}
				if inWindow(o.ObservedAt, q.Start, q.End) {
					out = append(out, o)
				}
			}
		}
	}
	return out, nil
}

// Tracks returns copies of the entity's tracks, oldest first.
func (s *Store) Tracks(ctx context.Context, entityID string) ([]*Track, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	eh, err := s.entityLocked(entityID, false)
	if err != nil || eh == nil {
		return nil, err
	}

	eh.mu.Lock()
	defer eh.mu.Unlock()
	out := make([]*Track, len(eh.tracks))
	for i, t := range eh.tracks {
		out[i] = t.clone()
	}
	return out, nil
}

// Stats summarizes store contents for metrics and health reporting.
type Stats struct {
	Entities     int
	Tracks       int
	OpenTracks   int
	Observations int
}

// Stats walks the store and counts entities, tracks, and observations.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	ehs := make([]*entityHistory, 0, len(s.entities))
	for _, eh := range s.entities {
		ehs = append(ehs, eh)
	}
	s.mu.RUnlock()

	st := Stats{Entities: len(ehs)}
	for _, eh := range ehs {
		eh.mu.Lock()
		st.Tracks += len(eh.tracks)
		for _, t := range eh.tracks {
			st.Observations += len(t.Observations)
			if t.Open() {
				st.OpenTracks++
			}
		}
		eh.mu.Unlock()
	}
	return st
}

// Close stops further appends. Reads keep working so late queries drain
// cleanly during shutdown.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func inWindow(t, start, end time.Time) bool {
	if !start.IsZero() && t.Before(start) {
		return false
	}
	if !end.IsZero() && t.After(end) {
		return false
	}
	return true
}

func (eh *entityHistory) openTrack() *Track {
	if len(eh.tracks) == 0 {
		return nil
	}
	if t := eh.tracks[len(eh.tracks)-1]; t.Open() {
		return t
	}
	return nil
}

// entityLocked fetches (and with create set, lazily makes) the per-entity
// history record. Write access is refused after Close.
func (s *Store) entityLocked(entityID string, create bool) (*entityHistory, error) {
	s.mu.RLock()
	eh := s.entities[entityID]
	closed := s.closed
	s.mu.RUnlock()
	if eh != nil || !create {
		if create && closed {
			return nil, ErrClosed
		}
		return eh, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if eh = s.entities[entityID]; eh == nil {
		eh = &entityHistory{}
		s.entities[entityID] = eh
	}
	return eh, nil
}

func (s *Store) entityIDs() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.entities))
	for id := range s.entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// dropIfEmpty removes the entity's record when a sweep has emptied it.
// Re-checked under the write lock: an append may have raced a new track in.
func (s *Store) dropIfEmpty(entityID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	eh := s.entities[entityID]
	if eh == nil {
		return
	}
	eh.mu.Lock()
	empty := len(eh.tracks) == 0
	eh.mu.Unlock()
	if empty {
		delete(s.entities, entityID)
	}
}
