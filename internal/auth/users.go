// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/mhalvorsen/pelorus/internal/config"
)

// bcryptCost balances verification latency against brute-force cost.
const bcryptCost = 12

// dummyHash is compared against when the username is unknown, so a miss
// costs the same bcrypt work as a wrong password.
var dummyHash = []byte("$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW")

type userEntry struct {
	hash []byte
	role string
}

// UserStore verifies login credentials against the configured accounts.
// The admin's plaintext password from config is hashed once here; the
// additional accounts arrive pre-hashed.
type UserStore struct {
	users map[string]userEntry
}

// NewUserStore builds the account table from config. The security
// section must already be validated; this only fails if bcrypt rejects
// the admin password.
func NewUserStore(cfg config.SecurityConfig) (*UserStore, error) {
	users := make(map[string]userEntry, len(cfg.Users)+1)

	if cfg.AdminUsername != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("hash admin password: %w", err)
		}
		users[cfg.AdminUsername] = userEntry{hash: hash, role: RoleAdmin}
	}

	for _, u := range cfg.Users {
		if _, dup := users[u.Username]; dup {
			return nil, fmt.Errorf("duplicate user %q", u.Username)
		}
		users[u.Username] = userEntry{hash: []byte(u.PasswordHash), role: u.Role}
	}

	return &UserStore{users: users}, nil
}

// Verify checks a username/password pair and returns the account's
// subject. Unknown users and wrong passwords both return
// ErrInvalidCredentials after equivalent bcrypt work.
func (s *UserStore) Verify(username, password string) (*Subject, error) {
	entry, ok := s.users[username]
	if !ok {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword(entry.hash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return &Subject{Username: username, Role: entry.role}, nil
}

// Count returns the number of configured accounts.
func (s *UserStore) Count() int {
	return len(s.users)
}
