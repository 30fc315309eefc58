// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mhalvorsen/pelorus/internal/config"
)

// Claims carries identity and role inside the signed token.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HMAC-SHA256 bearer tokens. Tokens are
// stateless; revocation before expiry is out of scope, so the session
// timeout bounds the damage of a leaked token.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager builds a manager from the security config. The secret
// is kept as []byte; the 32-character minimum is enforced by config
// validation before this runs.
func NewTokenManager(cfg config.SecurityConfig) (*TokenManager, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt secret is empty")
	}
	return &TokenManager{
		secret: []byte(cfg.JWTSecret),
		ttl:    cfg.SessionTimeout,
	}, nil
}

// Issue signs a token for the subject. The returned time is the token's
// expiry, echoed to the client so it can renew before cutoff.
func (m *TokenManager) Issue(sub *Subject) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(m.ttl)

	claims := &Claims{
		Username: sub.Username,
		Role:     sub.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}

	return signed, expiresAt, nil
}

// Verify checks signature, algorithm, and time claims, and returns the
// embedded subject. All failures wrap ErrInvalidToken; the cause is for
// logs, never for the HTTP response.
func (m *TokenManager) Verify(tokenString string) (*Subject, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Pinning the method family blocks algorithm-confusion tokens
		// (alg=none, or RS256 signed with the public key).
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: claims rejected", ErrInvalidToken)
	}
	if claims.Username == "" {
		return nil, fmt.Errorf("%w: no username claim", ErrInvalidToken)
	}

	return &Subject{Username: claims.Username, Role: claims.Role}, nil
}
