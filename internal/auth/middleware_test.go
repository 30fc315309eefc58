// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// subjectCapture returns a handler recording the request subject.
func subjectCapture(got **Subject) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sub, ok := SubjectFrom(r.Context()); ok {
			*got = sub
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestAuthenticateModeNone(t *testing.T) {
	mw := NewMiddleware(ModeNone, nil)

	var got *Subject
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/vessels", nil)

	mw.Authenticate(subjectCapture(&got)).ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want request passed through", rec.Code)
	}
	if got == nil || got.Username != "anonymous" || got.Role != RoleAdmin {
		t.Errorf("subject = %+v, want anonymous admin", got)
	}
}

func TestAuthenticateValidToken(t *testing.T) {
	tm := testTokenManager(t)
	mw := NewMiddleware(ModeJWT, tm)

	token, _, err := tm.Issue(&Subject{Username: "watch", Role: RoleOperator})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	var got *Subject
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/vessels", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	mw.Authenticate(subjectCapture(&got)).ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got == nil || got.Username != "watch" || got.Role != RoleOperator {
		t.Errorf("subject = %+v", got)
	}
}

func TestAuthenticateCookieFallback(t *testing.T) {
	tm := testTokenManager(t)
	mw := NewMiddleware(ModeJWT, tm)

	token, _, err := tm.Issue(&Subject{Username: "desk", Role: RoleAnalyst})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	var got *Subject
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/vessels", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: token})

	mw.Authenticate(subjectCapture(&got)).ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if got == nil || got.Username != "desk" {
		t.Errorf("subject = %+v", got)
	}
}

func TestAuthenticateRejections(t *testing.T) {
	tm := testTokenManager(t)
	mw := NewMiddleware(ModeJWT, tm)

	tests := []struct {
		name    string
		prepare func(r *http.Request)
	}{
		{"no credentials", func(*http.Request) {}},
		{"malformed header", func(r *http.Request) { r.Header.Set("Authorization", "Token abc") }},
		{"garbage token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer junk") }},
		{"garbage cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "token", Value: "junk"}) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *Subject
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/v1/vessels", nil)
			tt.prepare(req)

			mw.Authenticate(subjectCapture(&got)).ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rec.Code)
			}
			if got != nil {
				t.Errorf("handler ran with subject %+v", got)
			}
			if rec.Header().Get("WWW-Authenticate") == "" {
				t.Error("401 without a WWW-Authenticate challenge")
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}
		})
	}
}

func TestExtractTokenBearerCaseInsensitive(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer abc123")

	token, err := extractToken(req)
	if err != nil {
		t.Fatalf("extractToken: %v", err)
	}
	if token != "abc123" {
		t.Errorf("token = %q", token)
	}
}
