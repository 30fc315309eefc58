// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingestion Metrics
	ReadingsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readings_processed_total",
			Help: "Total number of position readings by pipeline outcome",
		},
		[]string{"source", "result"}, // result: "applied", "stale", "rejected"
	)

	ReadingsMalformed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readings_malformed_total",
			Help: "Total number of readings dropped before entering the pipeline",
		},
		[]string{"source", "reason"}, // reason: "no_key", "bad_coords", "no_timestamp"
	)

	IngestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ingest_duration_seconds",
			Help:    "Per-reading pipeline latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	// History Metrics
	HistoryTracksOpened = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "history_tracks_opened_total",
			Help: "Total number of tracks opened by gap segmentation",
		},
	)

	HistoryTracksClosed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "history_tracks_closed_total",
			Help: "Total number of tracks closed by gap segmentation or sweep",
		},
	)

	HistoryEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "history_evictions_total",
			Help: "Total number of observations evicted by the per-track cap",
		},
	)

	HistoryObservations = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "history_observations",
			Help: "Current number of observations held across all tracks",
		},
	)

	HistoryTracks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "history_tracks",
			Help: "Current number of tracks held across all entities",
		},
	)

	RetentionTracksRemoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "retention_tracks_removed_total",
			Help: "Total number of closed tracks removed by the retention sweep",
		},
	)

	RetentionSweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "retention_sweep_duration_seconds",
			Help:    "Duration of retention sweeps in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		},
	)

	// Detection Metrics
	DetectionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "detection_duration_seconds",
			Help:    "Duration of zone evaluation per reading in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ZoneHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zone_hits_total",
			Help: "Total number of zone intersections detected",
		},
		[]string{"kind"},
	)

	ZonesActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "zones_active",
			Help: "Current number of active hazard zones",
		},
	)

	ZoneSyncApplied = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "zone_sync_applied_total",
			Help: "Total number of zones applied by hazard feed syncs",
		},
	)

	ZoneSyncSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "zone_sync_skipped_total",
			Help: "Total number of malformed zones skipped by hazard feed syncs",
		},
	)

	// Alert Metrics
	AlertTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alert_transitions_total",
			Help: "Total number of alert lifecycle transitions",
		},
		[]string{"kind", "transition"}, // transition: "opened", "updated", "resolved"
	)

	AlertsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "alerts_open",
			Help: "Current number of open alert conditions",
		},
	)

	// Sync Job Metrics
	SyncJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sync_job_duration_seconds",
			Help:    "Duration of scheduled job runs in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"job"},
	)

	SyncJobErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_job_errors_total",
			Help: "Total number of failed job runs",
		},
		[]string{"job", "error_type"}, // "provider", "storage", "validation", "other"
	)

	SyncJobLastSuccess = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sync_job_last_success_timestamp",
			Help: "Unix timestamp of the job's last successful run",
		},
		[]string{"job"},
	)

	SyncJobOverlapSkips = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_job_overlap_skips_total",
			Help: "Total number of ticks skipped because the previous run was still going",
		},
		[]string{"job"},
	)

	SyncEntitiesFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_entities_failed_total",
			Help: "Total number of per-entity failures contained within job runs",
		},
		[]string{"job"},
	)

	EntitiesStale = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "entities_stale",
			Help: "Current number of tracked entities flagged stale",
		},
	)

	// Provider Metrics
	ProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_requests_total",
			Help: "Total number of upstream feed requests",
		},
		[]string{"provider", "result"}, // result: "ok", "error", "rejected"
	)

	ProviderRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "provider_request_duration_seconds",
			Help:    "Duration of upstream feed requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	ProviderFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "provider_fallbacks_total",
			Help: "Total number of times the provider chain advanced past a failing provider",
		},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Auth Metrics
	AuthLogins = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Total number of login attempts by outcome",
		},
		[]string{"result"}, // "success", "rejected"
	)

	AuthUnauthorized = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auth_unauthorized_total",
			Help: "Total number of requests rejected for missing or invalid tokens",
		},
	)

	AuthzDenied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_denied_total",
			Help: "Total number of requests denied by role policy",
		},
		[]string{"role"},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	WSMessagesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_dropped_total",
			Help: "Total number of WebSocket messages dropped on slow clients",
		},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"},
	)

	// Event Publishing Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Total number of events handed to a sink",
		},
		[]string{"sink", "event_type"},
	)

	EventPublishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "event_publish_errors_total",
			Help: "Total number of failed event publishes",
		},
		[]string{"sink"},
	)

	// Archive Metrics (DuckDB)
	ArchiveQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	ArchiveQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table", "error_type"},
	)

	ArchiveFlushDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "archive_flush_duration_seconds",
			Help:    "Duration of archive batch flushes in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ArchiveBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "archive_batch_size",
			Help:    "Number of rows per archive batch flush",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	ArchiveQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "archive_queue_depth",
			Help: "Current number of rows buffered for archive flush",
		},
	)

	ArchiveRowsPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "archive_rows_pruned_total",
			Help: "Total number of archive rows removed by retention pruning",
		},
	)

	// WAL Metrics
	WALWrites = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wal_writes_total",
			Help: "Total number of readings written to the ingest WAL",
		},
	)

	WALWriteErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wal_write_errors_total",
			Help: "Total number of failed WAL writes",
		},
	)

	WALConfirmed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wal_confirmed_total",
			Help: "Total number of WAL entries confirmed after processing",
		},
	)

	WALReplayed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wal_replayed_total",
			Help: "Total number of WAL entries replayed at startup",
		},
	)

	WALPendingEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wal_pending_entries",
			Help: "Current number of unconfirmed entries in the ingest WAL",
		},
	)

	WALSizeBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wal_size_bytes",
			Help: "On-disk size of the ingest WAL (LSM tree plus value log)",
		},
	)

	WALCompactions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wal_compactions_total",
			Help: "Total number of WAL compaction passes",
		},
	)

	WALEntriesCompacted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wal_entries_compacted_total",
			Help: "Total number of WAL entries removed by compaction",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Cache Metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"}, // "congestion", "provider"
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cache_entries",
			Help: "Current number of cached entries",
		},
		[]string{"cache_type"},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordReading records a position reading's pipeline outcome.
func RecordReading(source, result string) {
	ReadingsProcessed.WithLabelValues(source, result).Inc()
}

// RecordMalformedReading records a reading rejected before the pipeline.
func RecordMalformedReading(source, reason string) {
	ReadingsMalformed.WithLabelValues(source, reason).Inc()
}

// RecordIngest records the pipeline latency for one reading.
func RecordIngest(source string, duration time.Duration) {
	IngestDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordSyncJob records a completed job run and categorizes its error.
func RecordSyncJob(job string, duration time.Duration, err error) {
	SyncJobDuration.WithLabelValues(job).Observe(duration.Seconds())
	if err != nil {
		SyncJobErrors.WithLabelValues(job, categorizeError(err)).Inc()
		return
	}
	SyncJobLastSuccess.WithLabelValues(job).Set(float64(time.Now().Unix()))
}

// RecordJobOverlapSkip records a tick skipped because the previous run of
// the job had not finished.
func RecordJobOverlapSkip(job string) {
	SyncJobOverlapSkips.WithLabelValues(job).Inc()
}

// RecordAlertTransition records one alert lifecycle transition.
func RecordAlertTransition(kind, transition string) {
	AlertTransitions.WithLabelValues(kind, transition).Inc()
}

// RecordProviderRequest records an upstream feed call and its outcome.
func RecordProviderRequest(provider, result string, duration time.Duration) {
	ProviderRequests.WithLabelValues(provider, result).Inc()
	ProviderRequestDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordArchiveQuery records a DuckDB query metric.
func RecordArchiveQuery(operation, table string, duration time.Duration, err error) {
	ArchiveQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		errorType := err.Error()
		// Keep label cardinality bounded.
		if len(errorType) > 50 {
			errorType = errorType[:50]
		}
		ArchiveQueryErrors.WithLabelValues(operation, table, errorType).Inc()
	}
}

// RecordArchiveFlush records one archive batch flush.
func RecordArchiveFlush(duration time.Duration, batchSize int) {
	ArchiveFlushDuration.Observe(duration.Seconds())
	ArchiveBatchSize.Observe(float64(batchSize))
}

// RecordEventPublished records an event handed to a sink.
func RecordEventPublished(sink, eventType string) {
	EventsPublished.WithLabelValues(sink, eventType).Inc()
}

// RecordEventPublishError records a failed publish to a sink.
func RecordEventPublishError(sink string) {
	EventPublishErrors.WithLabelValues(sink).Inc()
}

// RecordWALWrite records a WAL write and its outcome.
func RecordWALWrite(err error) {
	if err != nil {
		WALWriteErrors.Inc()
		return
	}
	WALWrites.Inc()
}

// RecordWALCompaction records one compaction pass and the entries it removed.
func RecordWALCompaction(removed int64) {
	WALCompactions.Inc()
	if removed > 0 {
		WALEntriesCompacted.Add(float64(removed))
	}
}

// RecordLogin records a login attempt outcome ("success" or "rejected").
func RecordLogin(result string) {
	AuthLogins.WithLabelValues(result).Inc()
}

// categorizeError buckets an error for the sync_job_errors_total label.
func categorizeError(err error) string {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "provider"), strings.Contains(msg, "feed"),
		strings.Contains(msg, "circuit breaker"), strings.Contains(msg, "timeout"):
		return "provider"
	case strings.Contains(msg, "store"), strings.Contains(msg, "history"),
		strings.Contains(msg, "archive"), strings.Contains(msg, "closed"):
		return "storage"
	case strings.Contains(msg, "invalid"), strings.Contains(msg, "validation"):
		return "validation"
	default:
		return "other"
	}
}
