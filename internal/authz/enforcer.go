// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package authz

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"

	"github.com/mhalvorsen/pelorus/internal/config"
)

// ErrNoAdapter is returned by LoadPolicy when the policy is embedded and
// there is no file to re-read.
var ErrNoAdapter = errors.New("policy is embedded, no adapter to reload from")

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

const (
	// reloadInterval is how often a file-backed policy is checked for
	// changes.
	reloadInterval = 30 * time.Second

	// decisionTTL bounds how long an enforcement decision may be served
	// from cache after a policy reload made it stale.
	decisionTTL = 5 * time.Minute
)

// Enforcer answers role/path/action questions against the loaded policy.
// Decisions are cached; a policy reload clears the cache.
type Enforcer struct {
	defaultRole string
	filePolicy  bool
	enforcer    *casbin.SyncedEnforcer
	cache       *decisionCache
}

// NewEnforcer loads the Casbin model and policy. Paths in cfg win over the
// embedded defaults; a configured path that does not exist falls back to
// the embedded copy so a bad mount cannot brick startup.
func NewEnforcer(cfg config.CasbinConfig) (*Enforcer, error) {
	var m model.Model
	var err error
	if cfg.ModelPath != "" && fileExists(cfg.ModelPath) {
		m, err = model.NewModelFromFile(cfg.ModelPath)
	} else {
		m, err = model.NewModelFromString(embeddedModel)
	}
	if err != nil {
		return nil, fmt.Errorf("load casbin model: %w", err)
	}

	var enforcer *casbin.SyncedEnforcer
	filePolicy := cfg.PolicyPath != "" && fileExists(cfg.PolicyPath)
	if filePolicy {
		enforcer, err = casbin.NewSyncedEnforcer(m, fileadapter.NewAdapter(cfg.PolicyPath))
	} else {
		enforcer, err = casbin.NewSyncedEnforcer(m)
		if err == nil {
			err = loadEmbeddedPolicy(enforcer, embeddedPolicy)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("create casbin enforcer: %w", err)
	}
	if filePolicy {
		enforcer.StartAutoLoadPolicy(reloadInterval)
	}

	return &Enforcer{
		defaultRole: cfg.DefaultRole,
		filePolicy:  filePolicy,
		enforcer:    enforcer,
		cache:       newDecisionCache(decisionTTL),
	}, nil
}

// loadEmbeddedPolicy feeds the embedded CSV into the enforcer line by line.
// Casbin's file adapter wants a real file, so the embedded copy is parsed
// here instead.
func loadEmbeddedPolicy(enforcer *casbin.SyncedEnforcer, policy string) error {
	for _, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		switch parts[0] {
		case "p":
			if len(parts) >= 4 {
				if _, err := enforcer.AddPolicy(parts[1], parts[2], parts[3]); err != nil {
					return fmt.Errorf("add policy %v: %w", parts[1:], err)
				}
			}
		case "g":
			if len(parts) >= 3 {
				if _, err := enforcer.AddGroupingPolicy(parts[1], parts[2]); err != nil {
					return fmt.Errorf("add grouping policy %v: %w", parts[1:], err)
				}
			}
		}
	}
	return nil
}

// Enforce reports whether role may perform action on object. An empty role
// is evaluated as the configured default role.
func (e *Enforcer) Enforce(role, object, action string) (bool, error) {
	if role == "" {
		role = e.defaultRole
	}
	if role == "" {
		return false, nil
	}

	if allowed, ok := e.cache.get(role, object, action); ok {
		return allowed, nil
	}

	allowed, err := e.enforcer.Enforce(role, object, action)
	if err != nil {
		return false, fmt.Errorf("enforce %s %s %s: %w", role, action, object, err)
	}
	e.cache.set(role, object, action, allowed)
	return allowed, nil
}

// LoadPolicy re-reads a file-backed policy and drops every cached decision.
func (e *Enforcer) LoadPolicy() error {
	if !e.filePolicy {
		return ErrNoAdapter
	}
	if err := e.enforcer.LoadPolicy(); err != nil {
		return fmt.Errorf("reload policy: %w", err)
	}
	e.cache.clear()
	return nil
}

// Policies returns the active policy rules, mainly for startup logging.
func (e *Enforcer) Policies() [][]string {
	policies, _ := e.enforcer.GetPolicy()
	return policies
}

// Close stops the reload watcher and the cache janitor. Safe to call more
// than once.
func (e *Enforcer) Close() {
	e.enforcer.StopAutoLoadPolicy()
	e.cache.stop()
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
