package auth

import (
	"math"
	"sync"
	"time"
)

type attemptRecord struct {
	count        int
	blockedUntil time.Time
	lastFailure  time.Time
}

type memoryAttemptStore struct {
	mu      sync.Mutex
	records map[string]*attemptRecord
}

// NewMemoryAttemptStore creates a single-process attempt store. Correct for a
// single instance; multi-instance deployments should use the Redis store.
func NewMemoryAttemptStore() AttemptStore {
	return &memoryAttemptStore{
		records: make(map[string]*attemptRecord),
	}
}

func (s *memoryAttemptStore) CheckBlocked(identity string, now time.Time) (bool, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[identity]
	if !ok || rec.blockedUntil.IsZero() {
		return false, 0, nil
	}

	if !rec.blockedUntil.After(now) {
		// Lazy expiry
		delete(s.records, identity)
		return false, 0, nil
	}

	remaining := int(math.Ceil(rec.blockedUntil.Sub(now).Seconds()))
	return true, remaining, nil
}

func (s *memoryAttemptStore) RecordFailure(identity string, now time.Time, max int, lockout time.Duration) (bool, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[identity]
	if !ok {
		rec = &attemptRecord{}
		s.records[identity] = rec
	}

	rec.count++
	rec.lastFailure = now

	if rec.count >= max {
		rec.blockedUntil = now.Add(lockout)
		rec.count = 0
		return true, max, nil
	}

	return false, rec.count, nil
}

func (s *memoryAttemptStore) Clear(identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, identity)
	return nil
}

func (s *memoryAttemptStore) Sweep(now time.Time, idleFor time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for identity, rec := range s.records {
		expiredBlock := !rec.blockedUntil.IsZero() && !rec.blockedUntil.After(now)
		idle := rec.blockedUntil.IsZero() && now.Sub(rec.lastFailure) > idleFor
		if expiredBlock || idle {
			delete(s.records, identity)
		}
	}
	return nil
}
