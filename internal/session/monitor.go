// Package session tracks dashboard activity and forces sign-out after an
// inactivity window.
package session

import (
	"context"
	"time"

	"github.com/kibang/soil-tracker/internal/auth"
	"github.com/kibang/soil-tracker/internal/logger"
	"github.com/kibang/soil-tracker/internal/metrics"
	"github.com/kibang/soil-tracker/internal/storage"
)

// Monitor persists a last-active timestamp per session and periodically
// signs out sessions idle past the inactivity timeout. Timestamps live in
// storage so they survive a restart.
type Monitor struct {
	store    storage.Storage
	sessions *auth.Sessions
	timeout  time.Duration
	interval time.Duration

	// now is wall clock; replaced in tests
	now func() time.Time

	onExpire func(token string)
}

// NewMonitor creates a monitor. timeout defaults to 30 minutes, the check
// interval to 5 seconds.
func NewMonitor(store storage.Storage, sessions *auth.Sessions, timeout, interval time.Duration) *Monitor {
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Monitor{
		store:    store,
		sessions: sessions,
		timeout:  timeout,
		interval: interval,
		now:      time.Now,
	}
}

// SetExpireCallback registers a callback invoked with the token of every
// session signed out for inactivity.
func (m *Monitor) SetExpireCallback(cb func(token string)) {
	m.onExpire = cb
}

// Touch records activity for a session. Called on every qualifying user
// input reported by the dashboard and on successful login.
func (m *Monitor) Touch(token string) {
	if err := m.store.SaveActivity(token, m.now().UnixMilli()); err != nil {
		logger.Warn("Save activity failed", "error", err)
	}
}

// Forget drops the persisted activity for a token (logout).
func (m *Monitor) Forget(token string) {
	if err := m.store.DeleteActivity(token); err != nil {
		logger.Warn("Delete activity failed", "error", err)
	}
}

// LastActive returns the persisted last-active timestamp for a token.
func (m *Monitor) LastActive(token string) (int64, bool) {
	ms, ok, err := m.store.GetActivity(token)
	if err != nil {
		logger.Warn("Get activity failed", "error", err)
		return 0, false
	}
	return ms, ok
}

// Run checks for idle sessions until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check()
		}
	}
}

// Check signs out every session idle past the timeout and drops activity
// records whose session no longer exists (auth-state loss).
func (m *Monitor) Check() {
	tokens, err := m.store.ActivityTokens()
	if err != nil {
		logger.Warn("List activity tokens failed", "error", err)
		return
	}

	nowMs := m.now().UnixMilli()

	for _, token := range tokens {
		if _, ok := m.sessions.Get(token); !ok {
			// Session gone externally: stop tracking it
			m.Forget(token)
			continue
		}

		lastActive, ok, err := m.store.GetActivity(token)
		if err != nil || !ok {
			continue
		}

		if nowMs-lastActive > m.timeout.Milliseconds() {
			m.forceSignOut(token)
		}
	}
}

func (m *Monitor) forceSignOut(token string) {
	logger.Info("Session inactive, forcing sign-out", "timeout", m.timeout.String())
	metrics.ForcedSignouts.Inc()

	m.sessions.Remove(token)
	m.Forget(token)

	if m.onExpire != nil {
		m.onExpire(token)
	}
}
