// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

/*
providers.go - AIS position providers

Each provider speaks its own wire dialect; normalization to
models.Reading happens here at the source boundary so provider field
names never leak into the pipeline. Supported dialects:

  - marinesia: lowercase JSON fields, string navigational status
  - aishub: uppercase fields (LATITUDE/SOG/COG/NAVSTAT), numeric status
    codes, responses wrapped in an ERROR envelope
  - marinetraffic: terse uppercase fields (LAT/LON/SPEED/COURSE)

Unknown provider names fall back to the marinesia dialect, which is also
the documented shape for self-hosted feeds.
*/

package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"

	"github.com/mhalvorsen/pelorus/internal/config"
	"github.com/mhalvorsen/pelorus/internal/logging"
	"github.com/mhalvorsen/pelorus/internal/metrics"
	"github.com/mhalvorsen/pelorus/internal/models"
)

// ErrSourceUnavailable is returned when no provider in the chain could
// produce a batch. The next scheduled tick is the retry.
var ErrSourceUnavailable = errors.New("position source unavailable")

// PositionSource is the abstracted input for position sync. A fetch
// returns the full batch for one sweep; an empty batch is a normal
// result, not an error.
type PositionSource interface {
	Name() string
	FetchPositions(ctx context.Context) ([]models.Reading, error)
}

// Compile-time interface checks for every source implementation.
var (
	_ PositionSource = (*HTTPPositionProvider)(nil)
	_ PositionSource = (*MockPositionSource)(nil)
	_ PositionSource = (*ChainSource)(nil)
	_ PositionSource = (*BreakerSource)(nil)
)

// BuildPositionSource assembles the provider chain from configuration:
// each enabled provider becomes an HTTP client (or the mock source when
// named "mock") wrapped in a circuit breaker, and the chain tries them
// in configured order. Returns nil when nothing is enabled.
func BuildPositionSource(cfg config.ProvidersConfig) PositionSource {
	enabled := cfg.EnabledProviders()
	if len(enabled) == 0 {
		return nil
	}

	sources := make([]PositionSource, 0, len(enabled))
	for _, pc := range enabled {
		var src PositionSource
		if strings.EqualFold(pc.Name, "mock") {
			src = NewMockPositionSource(clockwork.NewRealClock())
		} else {
			limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
			src = NewHTTPPositionProvider(pc, cfg.RequestTimeout, limiter)
		}
		sources = append(sources, NewBreakerSource(src))
	}

	if len(sources) == 1 {
		return sources[0]
	}
	return NewChainSource(sources...)
}

// HTTPPositionProvider fetches one provider's position feed over HTTP
// and normalizes it through the provider's wire dialect.
type HTTPPositionProvider struct {
	name       string
	baseURL    string
	apiKey     string
	dialect    wireDialect
	limiter    *rate.Limiter
	httpClient *http.Client
}

// NewHTTPPositionProvider creates a provider client. The wire dialect is
// picked from the provider name; the limiter may be nil to disable
// client-side rate limiting.
func NewHTTPPositionProvider(cfg config.ProviderConfig, timeout time.Duration, limiter *rate.Limiter) *HTTPPositionProvider {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPPositionProvider{
		name:       cfg.Name,
		baseURL:    strings.TrimSuffix(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		dialect:    dialectFor(cfg.Name),
		limiter:    limiter,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Name returns the configured provider name, used as the source tag on
// readings and metrics.
func (p *HTTPPositionProvider) Name() string { return p.name }

// FetchPositions performs one rate-limited fetch and decodes the batch.
func (p *HTTPPositionProvider) FetchPositions(ctx context.Context) ([]models.Reading, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	start := time.Now()
	readings, err := p.fetch(ctx)
	if err != nil {
		metrics.RecordProviderRequest(p.name, "failure", time.Since(start))
		return nil, err
	}
	metrics.RecordProviderRequest(p.name, "success", time.Since(start))

	// Stamp the configured provider name as the source tag regardless of
	// what the dialect decoded.
	for i := range readings {
		readings[i].Source = p.name
	}
	return readings, nil
}

func (p *HTTPPositionProvider) fetch(ctx context.Context) ([]models.Reading, error) {
	fullURL := p.dialect.requestURL(p.baseURL, p.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if p.apiKey != "" {
		req.Header.Set("X-API-Key", p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", p.name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 512))
		if readErr != nil {
			return nil, fmt.Errorf("%s returned status %d (failed to read body)", p.name, resp.StatusCode)
		}
		return nil, fmt.Errorf("%s returned status %d: %s", p.name, resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", p.name, err)
	}

	readings, err := p.dialect.decode(body, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", p.name, err)
	}
	return readings, nil
}

// wireDialect translates one provider's JSON shape into normalized
// readings. decode receives the fetch time for feeds that omit
// observation timestamps.
type wireDialect interface {
	label() string
	requestURL(baseURL, apiKey string) string
	decode(body []byte, fetchedAt time.Time) ([]models.Reading, error)
}

// dialectFor picks the wire dialect by provider name. Matching is by
// substring so configured names like "aishub-eu" work.
func dialectFor(name string) wireDialect {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "aishub"):
		return aishubDialect{}
	case strings.Contains(lower, "marinetraffic"):
		return marinetrafficDialect{}
	default:
		return marinesiaDialect{}
	}
}

// headingNotAvailable is the AIS sentinel for a missing true heading.
const headingNotAvailable = 511

// marinesiaDialect decodes the lowercase JSON shape used by MarineSia
// and self-hosted feeds.
type marinesiaDialect struct{}

type marinesiaVessel struct {
	MMSI      string    `json:"mmsi"`
	Name      string    `json:"name"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Speed     *float64  `json:"speed"`
	Course    *float64  `json:"course"`
	Heading   *float64  `json:"heading"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

func (marinesiaDialect) label() string { return "marinesia" }

func (marinesiaDialect) requestURL(baseURL, apiKey string) string {
	if apiKey == "" {
		return baseURL
	}
	sep := "?"
	if strings.Contains(baseURL, "?") {
		sep = "&"
	}
	return baseURL + sep + "key=" + apiKey
}

func (marinesiaDialect) decode(body []byte, fetchedAt time.Time) ([]models.Reading, error) {
	var payload struct {
		Vessels []marinesiaVessel `json:"vessels"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}

	readings := make([]models.Reading, 0, len(payload.Vessels))
	for _, v := range payload.Vessels {
		observedAt := v.Timestamp
		if observedAt.IsZero() {
			observedAt = fetchedAt
		}
		readings = append(readings, models.Reading{
			SourceEntityKey: v.MMSI,
			Name:            v.Name,
			Lat:             v.Latitude,
			Lon:             v.Longitude,
			SpeedKnots:      v.Speed,
			CourseDeg:       v.Course,
			HeadingDeg:      normalizeHeading(v.Heading),
			Status:          statusFromLabel(v.Status),
			ObservedAt:      observedAt.UTC(),
		})
	}
	return readings, nil
}

// aishubDialect decodes AISHub's uppercase fields and ERROR envelope.
type aishubDialect struct{}

type aishubVessel struct {
	MMSI      int64    `json:"MMSI"`
	Name      string   `json:"NAME"`
	Latitude  float64  `json:"LATITUDE"`
	Longitude float64  `json:"LONGITUDE"`
	SOG       *float64 `json:"SOG"`
	COG       *float64 `json:"COG"`
	Heading   *float64 `json:"HEADING"`
	NavStat   *int     `json:"NAVSTAT"`
	Time      string   `json:"TIME"`
}

func (aishubDialect) label() string { return "aishub" }

func (aishubDialect) requestURL(baseURL, apiKey string) string {
	sep := "?"
	if strings.Contains(baseURL, "?") {
		sep = "&"
	}
	u := baseURL + sep + "format=1&output=json&compress=0"
	if apiKey != "" {
		u += "&username=" + apiKey
	}
	return u
}

// aishubTimeLayout is the feed's timestamp format, always GMT.
const aishubTimeLayout = "2006-01-02 15:04:05 GMT"

func (aishubDialect) decode(body []byte, fetchedAt time.Time) ([]models.Reading, error) {
	var payload struct {
		Error string         `json:"ERROR"`
		Data  []aishubVessel `json:"DATA"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	if payload.Error != "" && !strings.EqualFold(payload.Error, "false") {
		return nil, fmt.Errorf("aishub feed error: %s", payload.Error)
	}

	readings := make([]models.Reading, 0, len(payload.Data))
	for _, v := range payload.Data {
		observedAt := fetchedAt
		if t, err := time.Parse(aishubTimeLayout, v.Time); err == nil {
			observedAt = t
		}
		status := models.StatusUnknown
		if v.NavStat != nil {
			status = models.NavStatusFromCode(*v.NavStat)
		}
		readings = append(readings, models.Reading{
			SourceEntityKey: strconv.FormatInt(v.MMSI, 10),
			Name:            v.Name,
			Lat:             v.Latitude,
			Lon:             v.Longitude,
			SpeedKnots:      v.SOG,
			CourseDeg:       v.COG,
			HeadingDeg:      normalizeHeading(v.Heading),
			Status:          status,
			ObservedAt:      observedAt.UTC(),
		})
	}
	return readings, nil
}

// marinetrafficDialect decodes the terse uppercase export format.
type marinetrafficDialect struct{}

type marinetrafficVessel struct {
	MMSI      int64    `json:"MMSI"`
	ShipName  string   `json:"SHIPNAME"`
	Latitude  float64  `json:"LAT,string"`
	Longitude float64  `json:"LON,string"`
	Speed     *float64 `json:"SPEED"`
	Course    *float64 `json:"COURSE"`
	Heading   *float64 `json:"HEADING"`
	Status    *int     `json:"STATUS"`
	Timestamp string   `json:"TIMESTAMP"`
}

func (marinetrafficDialect) label() string { return "marinetraffic" }

func (marinetrafficDialect) requestURL(baseURL, apiKey string) string {
	if apiKey == "" {
		return baseURL + "/protocol:json"
	}
	return baseURL + "/" + apiKey + "/protocol:json"
}

func (marinetrafficDialect) decode(body []byte, fetchedAt time.Time) ([]models.Reading, error) {
	var vessels []marinetrafficVessel
	if err := json.Unmarshal(body, &vessels); err != nil {
		return nil, err
	}

	readings := make([]models.Reading, 0, len(vessels))
	for _, v := range vessels {
		observedAt := fetchedAt
		if t, err := time.Parse(time.RFC3339, v.Timestamp); err == nil {
			observedAt = t
		} else if t, err := time.Parse("2006-01-02 15:04:05", v.Timestamp); err == nil {
			observedAt = t
		}
		status := models.StatusUnknown
		if v.Status != nil {
			status = models.NavStatusFromCode(*v.Status)
		}
		readings = append(readings, models.Reading{
			SourceEntityKey: strconv.FormatInt(v.MMSI, 10),
			Name:            v.ShipName,
			Lat:             v.Latitude,
			Lon:             v.Longitude,
			SpeedKnots:      v.Speed,
			CourseDeg:       v.Course,
			HeadingDeg:      normalizeHeading(v.Heading),
			Status:          status,
			ObservedAt:      observedAt.UTC(),
		})
	}
	return readings, nil
}

// normalizeHeading drops the AIS not-available sentinel so downstream
// consumers can trust any heading that is present.
func normalizeHeading(h *float64) *float64 {
	if h == nil || *h >= headingNotAvailable {
		return nil
	}
	return h
}

// statusFromLabel maps the loose status strings used by lowercase feeds
// onto the canonical vessel status set.
func statusFromLabel(s string) models.VesselStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "underway", "under way", "under way using engine":
		return models.StatusUnderWay
	case "anchored", "at anchor":
		return models.StatusAtAnchor
	case "moored":
		return models.StatusMoored
	case "aground":
		return models.StatusAground
	case "fishing", "engaged in fishing":
		return models.StatusFishing
	case "sailing", "under way sailing":
		return models.StatusSailing
	default:
		return models.StatusUnknown
	}
}

// ChainSource tries providers in order and returns the first successful
// batch. Every fallback is counted; when the whole chain fails the
// run fails and the next tick retries from the top.
type ChainSource struct {
	sources []PositionSource
}

// NewChainSource builds a chain over the given sources, in priority order.
func NewChainSource(sources ...PositionSource) *ChainSource {
	return &ChainSource{sources: sources}
}

// Name identifies the chain in logs and WAL batches; individual readings
// keep the tag of the provider that produced them.
func (c *ChainSource) Name() string { return "chain" }

// FetchPositions walks the chain until one provider delivers.
func (c *ChainSource) FetchPositions(ctx context.Context) ([]models.Reading, error) {
	if len(c.sources) == 0 {
		return nil, ErrSourceUnavailable
	}

	var lastErr error
	for i, src := range c.sources {
		readings, err := src.FetchPositions(ctx)
		if err == nil {
			return readings, nil
		}
		lastErr = err
		if i < len(c.sources)-1 {
			metrics.ProviderFallbacks.Inc()
			logging.Warn().
				Err(err).
				Str("provider", src.Name()).
				Str("next", c.sources[i+1].Name()).
				Msg("Provider failed, falling back")
		}
	}
	return nil, fmt.Errorf("%w: all %d providers failed: %v", ErrSourceUnavailable, len(c.sources), lastErr)
}

// MockPositionSource produces a small deterministic fleet for
// development and tests: each vessel drifts a fixed step along its
// course every fetch, so repeated sweeps yield advancing tracks without
// any network dependency.
type MockPositionSource struct {
	clock clockwork.Clock

	mu    sync.Mutex
	calls int
	fleet []mockVessel
}

type mockVessel struct {
	mmsi    string
	name    string
	lat     float64
	lon     float64
	stepLat float64
	stepLon float64
	speed   float64
	status  models.VesselStatus
}

// NewMockPositionSource builds the mock source with its default fleet.
func NewMockPositionSource(clock clockwork.Clock) *MockPositionSource {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MockPositionSource{
		clock: clock,
		fleet: []mockVessel{
			{mmsi: "215678000", name: "BALTIC COURIER", lat: 54.32, lon: 10.12, stepLat: 0.010, stepLon: 0.015, speed: 14.2, status: models.StatusUnderWay},
			{mmsi: "366999712", name: "PACIFIC HARMONY", lat: 37.78, lon: -122.42, stepLat: -0.008, stepLon: 0.012, speed: 11.8, status: models.StatusUnderWay},
			{mmsi: "636015021", name: "NORDIC ANCHOR", lat: 51.95, lon: 4.05, stepLat: 0, stepLon: 0, speed: 0.1, status: models.StatusAtAnchor},
		},
	}
}

// Name tags mock readings so they are distinguishable in the UI and logs.
func (m *MockPositionSource) Name() string { return "mock" }

// FetchPositions returns the fleet at its current drift step.
func (m *MockPositionSource) FetchPositions(_ context.Context) ([]models.Reading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now().UTC()
	readings := make([]models.Reading, 0, len(m.fleet))
	for _, v := range m.fleet {
		speed := v.speed
		readings = append(readings, models.Reading{
			SourceEntityKey: v.mmsi,
			Name:            v.name,
			Lat:             v.lat + v.stepLat*float64(m.calls),
			Lon:             v.lon + v.stepLon*float64(m.calls),
			SpeedKnots:      &speed,
			Status:          v.status,
			ObservedAt:      now,
			Source:          "mock",
		})
	}
	m.calls++
	return readings, nil
}
