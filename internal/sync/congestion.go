// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package sync

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/jellydator/ttlcache/v3"
	"github.com/jonboulle/clockwork"

	"github.com/mhalvorsen/pelorus/internal/config"
	"github.com/mhalvorsen/pelorus/internal/geo"
	"github.com/mhalvorsen/pelorus/internal/metrics"
	"github.com/mhalvorsen/pelorus/internal/models"
	"github.com/mhalvorsen/pelorus/internal/store"
)

// CongestionSource is the abstracted port congestion input.
type CongestionSource interface {
	Name() string
	FetchCongestion(ctx context.Context) ([]models.CongestionReading, error)
}

var (
	_ CongestionSource = (*HTTPCongestionSource)(nil)
	_ CongestionSource = (*DerivedCongestionSource)(nil)
)

// buildCongestionSource picks the configured congestion mode.
func buildCongestionSource(cfg config.CongestionConfig, entities *store.EntityStore, clock clockwork.Clock) CongestionSource {
	if cfg.Mode == "http" {
		return NewHTTPCongestionSource(cfg)
	}
	return NewDerivedCongestionSource(entities, clock, cfg.RadiusKM, cfg.CacheTTL)
}

// HTTPCongestionSource fetches port congestion snapshots from an
// external feed.
type HTTPCongestionSource struct {
	cfg        config.CongestionConfig
	httpClient *http.Client
}

// NewHTTPCongestionSource creates the feed client.
func NewHTTPCongestionSource(cfg config.CongestionConfig) *HTTPCongestionSource {
	return &HTTPCongestionSource{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Name tags readings from the external congestion feed.
func (s *HTTPCongestionSource) Name() string { return "congestion_feed" }

// FetchCongestion retrieves the port snapshot list.
func (s *HTTPCongestionSource) FetchCongestion(ctx context.Context) ([]models.CongestionReading, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.URL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("X-API-Key", s.cfg.APIKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		metrics.RecordProviderRequest(s.Name(), "failure", time.Since(start))
		return nil, fmt.Errorf("congestion feed request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		metrics.RecordProviderRequest(s.Name(), "failure", time.Since(start))
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 512))
		if readErr != nil {
			return nil, fmt.Errorf("congestion feed returned status %d (failed to read body)", resp.StatusCode)
		}
		return nil, fmt.Errorf("congestion feed returned status %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		Ports []models.CongestionReading `json:"ports"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		metrics.RecordProviderRequest(s.Name(), "failure", time.Since(start))
		return nil, fmt.Errorf("failed to decode congestion feed: %w", err)
	}
	metrics.RecordProviderRequest(s.Name(), "success", time.Since(start))

	for i := range payload.Ports {
		payload.Ports[i].Source = s.Name()
	}
	return payload.Ports, nil
}

// DerivedCongestionSource computes congestion from the positions Pelorus
// already tracks: every vessel within the port radius counts toward that
// port's load. Used when no external congestion feed is configured.
// Average wait time cannot be derived from positions alone and reports
// zero.
type DerivedCongestionSource struct {
	entities *store.EntityStore
	clock    clockwork.Clock
	radiusKM float64
	cache    *ttlcache.Cache[string, models.CongestionReading]
}

// NewDerivedCongestionSource creates the derived source. Snapshots are
// cached per port for ttl so congestion reads between sweeps stay cheap.
func NewDerivedCongestionSource(entities *store.EntityStore, clock clockwork.Clock, radiusKM float64, ttl time.Duration) *DerivedCongestionSource {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	cache := ttlcache.New(
		ttlcache.WithTTL[string, models.CongestionReading](ttl),
		ttlcache.WithDisableTouchOnHit[string, models.CongestionReading](),
	)
	return &DerivedCongestionSource{
		entities: entities,
		clock:    clock,
		radiusKM: radiusKM,
		cache:    cache,
	}
}

// Name tags derived readings.
func (s *DerivedCongestionSource) Name() string { return "derived" }

// FetchCongestion computes (or serves cached) congestion for every port.
func (s *DerivedCongestionSource) FetchCongestion(ctx context.Context) ([]models.CongestionReading, error) {
	ports := s.entities.ListKind(ctx, models.EntityPort)
	if len(ports) == 0 {
		return nil, nil
	}
	vessels := s.entities.ListTracked(ctx, models.EntityVessel)
	now := s.clock.Now().UTC()

	readings := make([]models.CongestionReading, 0, len(ports))
	for _, port := range ports {
		if item := s.cache.Get(port.ID); item != nil {
			metrics.CacheHits.WithLabelValues("congestion").Inc()
			readings = append(readings, item.Value())
			continue
		}
		metrics.CacheMisses.WithLabelValues("congestion").Inc()

		count := 0
		for _, v := range vessels {
			if geo.Haversine(port.Position, v.Position) <= s.radiusKM {
				count++
			}
		}

		reading := models.CongestionReading{
			PortID:        port.ID,
			VesselsInPort: count,
			AvgWaitHours:  0,
			ObservedAt:    now,
			Source:        s.Name(),
		}
		s.cache.Set(port.ID, reading, ttlcache.DefaultTTL)
		metrics.CacheSize.WithLabelValues("congestion").Set(float64(s.cache.Len()))
		readings = append(readings, reading)
	}
	return readings, nil
}
