// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package middleware

import (
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/mhalvorsen/pelorus/internal/logging"
)

// LatencyMonitor keeps a sliding window of recent request timings and
// aggregates them per endpoint. Prometheus histograms cover long-term
// dashboards; this window feeds the health endpoint so an operator gets
// current latency without a Prometheus query.
type LatencyMonitor struct {
	mu            sync.RWMutex
	window        []sample
	maxSamples    int
	slowThreshold time.Duration
}

type sample struct {
	endpoint   string
	durationMS int64
	status     int
	at         time.Time
}

// EndpointStats aggregates the window for one method+route pair.
type EndpointStats struct {
	Endpoint string  `json:"endpoint"`
	Count    int64   `json:"count"`
	AvgMS    float64 `json:"avg_ms"`
	P50MS    int64   `json:"p50_ms"`
	P95MS    int64   `json:"p95_ms"`
	P99MS    int64   `json:"p99_ms"`
	MinMS    int64   `json:"min_ms"`
	MaxMS    int64   `json:"max_ms"`
}

// NewLatencyMonitor sizes the sliding window and sets the slow-request
// threshold. Requests over the threshold log a warning as they complete.
func NewLatencyMonitor(maxSamples int, slowThreshold time.Duration) *LatencyMonitor {
	if maxSamples <= 0 {
		maxSamples = 1000
	}
	if slowThreshold <= 0 {
		slowThreshold = time.Second
	}
	return &LatencyMonitor{
		window:        make([]sample, 0, maxSamples),
		maxSamples:    maxSamples,
		slowThreshold: slowThreshold,
	}
}

// Middleware records every request into the window.
func (lm *LatencyMonitor) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := newStatusWriter(w)

		next.ServeHTTP(sw, r)

		duration := time.Since(start)
		endpoint := r.Method + " " + endpointLabel(r)
		lm.record(sample{
			endpoint:   endpoint,
			durationMS: duration.Milliseconds(),
			status:     sw.status,
			at:         start,
		})

		if duration > lm.slowThreshold {
			logging.Warn().
				Str("endpoint", endpoint).
				Dur("duration", duration).
				Dur("threshold", lm.slowThreshold).
				Int("status", sw.status).
				Msg("Slow request")
		}
	})
}

func (lm *LatencyMonitor) record(s sample) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	lm.window = append(lm.window, s)
	if len(lm.window) > lm.maxSamples {
		lm.window = lm.window[1:]
	}
}

// Stats aggregates the current window per endpoint, busiest first.
func (lm *LatencyMonitor) Stats() []EndpointStats {
	lm.mu.RLock()
	defer lm.mu.RUnlock()

	byEndpoint := make(map[string][]int64)
	for _, s := range lm.window {
		byEndpoint[s.endpoint] = append(byEndpoint[s.endpoint], s.durationMS)
	}

	stats := make([]EndpointStats, 0, len(byEndpoint))
	for endpoint, durations := range byEndpoint {
		sorted := make([]int64, len(durations))
		copy(sorted, durations)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, d := range sorted {
			sum += d
		}

		stats = append(stats, EndpointStats{
			Endpoint: endpoint,
			Count:    int64(len(sorted)),
			AvgMS:    float64(sum) / float64(len(sorted)),
			P50MS:    percentile(sorted, 0.50),
			P95MS:    percentile(sorted, 0.95),
			P99MS:    percentile(sorted, 0.99),
			MinMS:    sorted[0],
			MaxMS:    sorted[len(sorted)-1],
		})
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].Endpoint < stats[j].Endpoint
	})
	return stats
}

// SampleCount reports how full the window is.
func (lm *LatencyMonitor) SampleCount() int {
	lm.mu.RLock()
	defer lm.mu.RUnlock()
	return len(lm.window)
}

// percentile reads the p-th value from an already sorted slice.
func percentile(sorted []int64, p float64) int64 {
	if len(sorted) == 0 {
		return 0
	}
	index := int(float64(len(sorted)-1) * p)
	return sorted[index]
}
