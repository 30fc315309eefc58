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

	"github.com/mhalvorsen/pelorus/internal/config"
	"github.com/mhalvorsen/pelorus/internal/metrics"
	"github.com/mhalvorsen/pelorus/internal/models"
)

// ZoneSource is the abstracted hazard advisory input. Fetched zones
// replace the registry entries carrying this source's tag; zones created
// by operators are never touched.
type ZoneSource interface {
	Name() string
	FetchZones(ctx context.Context) ([]*models.HazardZone, error)
}

var _ ZoneSource = (*HTTPZoneFeed)(nil)

// HTTPZoneFeed fetches hazard advisories (storm, piracy, restricted,
// accident) from a JSON feed endpoint.
type HTTPZoneFeed struct {
	cfg        config.HazardFeedConfig
	httpClient *http.Client
}

// NewHTTPZoneFeed creates the feed client.
func NewHTTPZoneFeed(cfg config.HazardFeedConfig, timeout time.Duration) *HTTPZoneFeed {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPZoneFeed{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Name returns the configured source tag; the registry replaces exactly
// the zones stamped with it.
func (f *HTTPZoneFeed) Name() string { return f.cfg.SourceTag }

// FetchZones retrieves and normalizes the advisory list. Advisories in
// the center+radius convenience form without an explicit radius get the
// configured default.
func (f *HTTPZoneFeed) FetchZones(ctx context.Context) ([]*models.HazardZone, error) {
	start := time.Now()
	zones, err := f.fetch(ctx)
	if err != nil {
		metrics.RecordProviderRequest(f.Name(), "failure", time.Since(start))
		return nil, err
	}
	metrics.RecordProviderRequest(f.Name(), "success", time.Since(start))

	for _, z := range zones {
		z.Source = f.cfg.SourceTag
		if !z.IsPolygon() && z.Center != nil && z.RadiusKM <= 0 {
			z.RadiusKM = f.cfg.DefaultRadiusKM
		}
	}
	return zones, nil
}

func (f *HTTPZoneFeed) fetch(ctx context.Context) ([]*models.HazardZone, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.cfg.URL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if f.cfg.APIKey != "" {
		req.Header.Set("X-API-Key", f.cfg.APIKey)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("hazard feed request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 512))
		if readErr != nil {
			return nil, fmt.Errorf("hazard feed returned status %d (failed to read body)", resp.StatusCode)
		}
		return nil, fmt.Errorf("hazard feed returned status %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		Advisories []*models.HazardZone `json:"advisories"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode hazard feed: %w", err)
	}
	return payload.Advisories, nil
}
