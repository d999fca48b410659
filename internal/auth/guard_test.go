package auth

import (
	"strings"
	"testing"
	"time"
)

func newTestGuard() (*Guard, *time.Time) {
	clock := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	g := NewGuard(NewMemoryAttemptStore(), 5, 5*time.Minute, time.Minute)
	g.now = func() time.Time { return clock }
	return g, &clock
}

func TestGuardBlocksAfterMaxFailures(t *testing.T) {
	g, _ := newTestGuard()

	for i := 1; i <= 4; i++ {
		blockedNow, attempts, err := g.RecordFailure("a@b.com")
		if err != nil {
			t.Fatalf("RecordFailure failed: %v", err)
		}
		if blockedNow {
			t.Fatalf("attempt %d must not block yet", i)
		}
		if attempts != i {
			t.Fatalf("expected attempts=%d, got %d", i, attempts)
		}
	}

	blockedNow, attempts, err := g.RecordFailure("a@b.com")
	if err != nil {
		t.Fatalf("RecordFailure failed: %v", err)
	}
	if !blockedNow {
		t.Fatal("5th failure must trigger the lockout")
	}
	if attempts != 5 {
		t.Errorf("expected attempts=5, got %d", attempts)
	}
}

func TestGuardCheckBlockedAndLazyExpiry(t *testing.T) {
	g, clock := newTestGuard()

	for i := 0; i < 5; i++ {
		g.RecordFailure("a@b.com")
	}

	blocked, remaining, err := g.CheckBlocked("a@b.com")
	if err != nil {
		t.Fatalf("CheckBlocked failed: %v", err)
	}
	if !blocked {
		t.Fatal("identity should be blocked")
	}
	if remaining < 299 || remaining > 300 {
		t.Errorf("expected ~300 seconds remaining, got %d", remaining)
	}

	// Past the lockout the record expires lazily
	*clock = clock.Add(301 * time.Second)

	blocked, _, err = g.CheckBlocked("a@b.com")
	if err != nil {
		t.Fatalf("CheckBlocked failed: %v", err)
	}
	if blocked {
		t.Fatal("block must expire after the lockout duration")
	}

	// The record was deleted: failures start counting from one again
	_, attempts, _ := g.RecordFailure("a@b.com")
	if attempts != 1 {
		t.Errorf("expected fresh count after expiry, got %d", attempts)
	}
}

func TestGuardSuccessClearsRecord(t *testing.T) {
	g, _ := newTestGuard()

	g.RecordFailure("a@b.com")
	g.RecordFailure("a@b.com")

	if err := g.RecordSuccess("a@b.com"); err != nil {
		t.Fatalf("RecordSuccess failed: %v", err)
	}

	_, attempts, _ := g.RecordFailure("a@b.com")
	if attempts != 1 {
		t.Errorf("expected count reset after success, got %d", attempts)
	}
}

func TestGuardIdentitiesIsolated(t *testing.T) {
	g, _ := newTestGuard()

	for i := 0; i < 5; i++ {
		g.RecordFailure("a@b.com")
	}

	blocked, _, _ := g.CheckBlocked("c@d.com")
	if blocked {
		t.Error("lockout must not leak across identities")
	}

	_, attempts, _ := g.RecordFailure("c@d.com")
	if attempts != 1 {
		t.Errorf("expected independent counter, got %d", attempts)
	}
}

func TestGuardSweepRemovesExpired(t *testing.T) {
	g, clock := newTestGuard()

	for i := 0; i < 5; i++ {
		g.RecordFailure("locked@b.com")
	}
	g.RecordFailure("idle@b.com")

	// Past lockout + grace both records are swept
	*clock = clock.Add(6*time.Minute + time.Second)
	if err := g.Sweep(); err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}

	blocked, _, _ := g.CheckBlocked("locked@b.com")
	if blocked {
		t.Error("swept lockout should be gone")
	}
	_, attempts, _ := g.RecordFailure("idle@b.com")
	if attempts != 1 {
		t.Errorf("idle record should have been swept, got count %d", attempts)
	}
}

func TestGuardMessages(t *testing.T) {
	g, _ := newTestGuard()

	msg := g.FailureMessage("Password salah", false, 1)
	if !strings.Contains(msg, "Percobaan ke-1/5") {
		t.Errorf("unexpected failure message: %q", msg)
	}
	if !strings.HasPrefix(msg, "Password salah") {
		t.Errorf("failure message should carry the credential message: %q", msg)
	}

	msg = g.FailureMessage("Password salah", true, 5)
	if !strings.Contains(msg, "dikunci selama 5 menit") {
		t.Errorf("unexpected lockout message: %q", msg)
	}

	msg = BlockedMessage(120)
	if !strings.Contains(msg, "120 detik") {
		t.Errorf("unexpected blocked message: %q", msg)
	}
}
