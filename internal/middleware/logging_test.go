// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/mhalvorsen/pelorus/internal/logging"
)

// captureLogs redirects the global logger into a buffer at debug level and
// restores it when the test ends.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	old := logging.Logger()
	logging.SetLogger(logging.NewTestLogger(&buf))
	logging.SetLevelString("debug")
	t.Cleanup(func() {
		logging.SetLogger(old)
		logging.SetLevelString("error")
	})
	return &buf
}

func serveLogged(t *testing.T, path string, status int, body string) *bytes.Buffer {
	t.Helper()
	buf := captureLogs(t)

	handler := RequestID(RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		if body != "" {
			w.Write([]byte(body))
		}
	})))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return buf
}

func TestRequestLoggerFields(t *testing.T) {
	buf := serveLogged(t, "/api/v1/vessels", http.StatusOK, `{"vessels":[]}`)

	var line struct {
		Level     string `json:"level"`
		Method    string `json:"method"`
		Path      string `json:"path"`
		Status    int    `json:"status"`
		Bytes     int64  `json:"bytes"`
		RequestID string `json:"request_id"`
		Message   string `json:"message"`
	}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("access line is not JSON: %v\n%s", err, buf.String())
	}

	if line.Level != "info" {
		t.Errorf("level = %q, want info", line.Level)
	}
	if line.Method != http.MethodGet || line.Path != "/api/v1/vessels" {
		t.Errorf("method/path = %q %q", line.Method, line.Path)
	}
	if line.Status != http.StatusOK {
		t.Errorf("status = %d, want 200", line.Status)
	}
	if line.Bytes != int64(len(`{"vessels":[]}`)) {
		t.Errorf("bytes = %d, want %d", line.Bytes, len(`{"vessels":[]}`))
	}
	if line.RequestID == "" {
		t.Error("request_id missing from access line")
	}
	if line.Message != "Request" {
		t.Errorf("message = %q, want Request", line.Message)
	}
}

func TestRequestLoggerQuietPaths(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{"metrics scrape", "/metrics", "debug"},
		{"health probe", "/api/v1/health", "debug"},
		{"readiness probe", "/api/v1/health/ready", "debug"},
		{"data endpoint", "/api/v1/alerts", "info"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := serveLogged(t, tt.path, http.StatusOK, "")

			var line struct {
				Level string `json:"level"`
			}
			if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if line.Level != tt.want {
				t.Errorf("level = %q, want %q", line.Level, tt.want)
			}
		})
	}
}

func TestRequestLoggerServerErrorLevel(t *testing.T) {
	buf := serveLogged(t, "/api/v1/health", http.StatusInternalServerError, "")

	var line struct {
		Level  string `json:"level"`
		Status int    `json:"status"`
	}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if line.Level != "error" {
		t.Errorf("level = %q, want error even on a quiet path", line.Level)
	}
	if line.Status != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", line.Status)
	}
}
