// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mhalvorsen/pelorus/internal/logging"
)

// RequestLogger writes one structured access-log line per request. Health
// probes and metric scrapes arrive every few seconds from monitoring, so
// those log at debug to keep the info stream readable.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := newStatusWriter(w)

		next.ServeHTTP(sw, r)

		event := accessEvent(r.URL.Path, sw.status)
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", sw.status).
			Int64("bytes", sw.bytes).
			Dur("duration", time.Since(start)).
			Str("remote", r.RemoteAddr)
		if id := GetRequestID(r.Context()); id != "" {
			event.Str("request_id", id)
		}
		event.Msg("Request")
	})
}

// accessEvent picks the log level for one access line. Server errors
// always surface at error level regardless of path.
func accessEvent(path string, status int) *zerolog.Event {
	switch {
	case status >= 500:
		return logging.Error()
	case isQuietPath(path):
		return logging.Debug()
	default:
		return logging.Info()
	}
}

func isQuietPath(path string) bool {
	return path == "/metrics" || strings.HasPrefix(path, "/api/v1/health")
}
