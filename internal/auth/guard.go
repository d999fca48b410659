package auth

import (
	"fmt"
	"time"

	"github.com/kibang/soil-tracker/internal/metrics"
)

// AttemptStore keeps per-identity login failure state. Implementations must
// make each operation atomic per identity so a request cannot slip through
// between a blocked-check and an increment.
type AttemptStore interface {
	// CheckBlocked reports whether the identity is blocked at time now and the
	// whole seconds remaining. An expired block is deleted (lazy expiry).
	CheckBlocked(identity string, now time.Time) (blocked bool, secondsRemaining int, err error)

	// RecordFailure adds one failed attempt, creating the record at count=1.
	// Reaching max sets the block until now+lockout and resets the count.
	RecordFailure(identity string, now time.Time, max int, lockout time.Duration) (blockedNow bool, attempts int, err error)

	// Clear deletes all state for the identity.
	Clear(identity string) error

	// Sweep removes records untouched for longer than idleFor.
	Sweep(now time.Time, idleFor time.Duration) error
}

// Guard blocks repeated login failures per identity: after MaxAttempts
// consecutive failures the identity is locked out for Lockout.
type Guard struct {
	store       AttemptStore
	maxAttempts int
	lockout     time.Duration
	grace       time.Duration

	// now is wall clock; replaced in tests
	now func() time.Time
}

// NewGuard creates a guard. Zero values default to 5 attempts, 5 minute
// lockout and 1 minute grace before swept cleanup.
func NewGuard(store AttemptStore, maxAttempts int, lockout, grace time.Duration) *Guard {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if lockout <= 0 {
		lockout = 5 * time.Minute
	}
	if grace <= 0 {
		grace = time.Minute
	}
	return &Guard{
		store:       store,
		maxAttempts: maxAttempts,
		lockout:     lockout,
		grace:       grace,
		now:         time.Now,
	}
}

// MaxAttempts returns the configured failure threshold.
func (g *Guard) MaxAttempts() int {
	return g.maxAttempts
}

// CheckBlocked reports whether the identity is currently locked out.
func (g *Guard) CheckBlocked(identity string) (bool, int, error) {
	return g.store.CheckBlocked(identity, g.now())
}

// RecordFailure registers one failed attempt and reports whether it
// triggered a lockout along with the attempt count so far.
func (g *Guard) RecordFailure(identity string) (bool, int, error) {
	blockedNow, attempts, err := g.store.RecordFailure(identity, g.now(), g.maxAttempts, g.lockout)
	if err != nil {
		return false, 0, err
	}
	metrics.LoginFailures.Inc()
	if blockedNow {
		metrics.LoginLockouts.Inc()
	}
	return blockedNow, attempts, nil
}

// RecordSuccess clears all failure state for the identity.
func (g *Guard) RecordSuccess(identity string) error {
	return g.store.Clear(identity)
}

// Sweep removes stale records. Scheduled periodically; lazy expiry in
// CheckBlocked covers identities that come back earlier.
func (g *Guard) Sweep() error {
	return g.store.Sweep(g.now(), g.lockout+g.grace)
}

// FailureMessage builds the user-facing message for a failed attempt.
func (g *Guard) FailureMessage(credentialMessage string, blockedNow bool, attempts int) string {
	if blockedNow {
		return fmt.Sprintf("Terlalu banyak percobaan gagal. Akun dikunci selama %d menit.", int(g.lockout.Minutes()))
	}
	return fmt.Sprintf("%s (Percobaan ke-%d/%d)", credentialMessage, attempts, g.maxAttempts)
}

// BlockedMessage builds the user-facing message for a blocked identity.
func BlockedMessage(secondsRemaining int) string {
	return fmt.Sprintf("Terlalu banyak percobaan. Coba lagi dalam %d detik.", secondsRemaining)
}
