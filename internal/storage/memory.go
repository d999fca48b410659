package storage

import (
	"sync"
	"time"

	"github.com/kibang/soil-tracker/internal/sensor"
)

type memoryStorage struct {
	mu       sync.RWMutex
	readings []StoredReading
	activity map[string]int64
	nextID   int64
}

// NewMemoryStorage creates an in-memory storage. History does not survive
// restarts; intended for development and tests.
func NewMemoryStorage() Storage {
	return &memoryStorage{
		activity: make(map[string]int64),
		nextID:   1,
	}
}

func (s *memoryStorage) SaveReading(r sensor.Reading, savedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.readings = append(s.readings, StoredReading{
		ID:      s.nextID,
		Reading: r,
		SavedAt: savedAt,
	})
	s.nextID++
	return nil
}

func (s *memoryStorage) Latest(count int) ([]StoredReading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.readings)
	if count > n {
		count = n
	}

	out := make([]StoredReading, 0, count)
	for i := n - 1; i >= n-count; i-- {
		out = append(out, s.readings[i])
	}
	return out, nil
}

func (s *memoryStorage) Range(from, to time.Time) ([]StoredReading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []StoredReading
	for _, r := range s.readings {
		if !r.SavedAt.Before(from) && !r.SavedAt.After(to) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memoryStorage) SaveActivity(token string, lastActiveMs int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activity[token] = lastActiveMs
	return nil
}

func (s *memoryStorage) GetActivity(token string) (int64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ms, ok := s.activity[token]
	return ms, ok, nil
}

func (s *memoryStorage) DeleteActivity(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.activity, token)
	return nil
}

func (s *memoryStorage) ActivityTokens() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.activity))
	for token := range s.activity {
		out = append(out, token)
	}
	return out, nil
}

func (s *memoryStorage) Cleanup(olderThan time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.readings[:0]
	for _, r := range s.readings {
		if !r.SavedAt.Before(olderThan) {
			kept = append(kept, r)
		}
	}
	s.readings = kept
	return nil
}

func (s *memoryStorage) Close() error {
	return nil
}
