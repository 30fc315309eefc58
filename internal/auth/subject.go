// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package auth

import (
	"context"
	"errors"
)

// Mode selects the authentication strategy.
type Mode string

const (
	// ModeNone disables credential checks; every request runs as an
	// anonymous admin. Rejected by config validation in production.
	ModeNone Mode = "none"

	// ModeJWT requires a bearer token issued by the login endpoint.
	ModeJWT Mode = "jwt"
)

// ParseMode converts a config string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "none":
		return ModeNone, nil
	case "jwt", "":
		return ModeJWT, nil
	default:
		return "", errors.New("invalid auth mode: " + s)
	}
}

// Roles understood by the authorization policy.
const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
	RoleAnalyst  = "analyst"
)

var (
	// ErrInvalidCredentials covers unknown users and wrong passwords;
	// callers must not reveal which.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrNoToken indicates the request carried no usable token.
	ErrNoToken = errors.New("missing bearer token")

	// ErrInvalidToken indicates the token failed signature, expiry, or
	// structural validation.
	ErrInvalidToken = errors.New("invalid token")
)

// Subject is the authenticated caller attached to the request context.
type Subject struct {
	Username string
	Role     string
}

// IsAdmin reports whether the subject holds the admin role.
func (s *Subject) IsAdmin() bool {
	return s != nil && s.Role == RoleAdmin
}

type contextKey struct{}

// WithSubject returns a context carrying the authenticated subject.
func WithSubject(ctx context.Context, sub *Subject) context.Context {
	return context.WithValue(ctx, contextKey{}, sub)
}

// SubjectFrom extracts the authenticated subject, if any.
func SubjectFrom(ctx context.Context) (*Subject, bool) {
	sub, ok := ctx.Value(contextKey{}).(*Subject)
	return sub, ok && sub != nil
}
