package storage

import (
	"time"

	"github.com/kibang/soil-tracker/internal/sensor"
)

// StoredReading is a history entry: a reading plus the time it was saved.
type StoredReading struct {
	ID      int64          `json:"id"`
	Reading sensor.Reading `json:"reading"`
	SavedAt time.Time      `json:"savedAt"`
}

// Storage persists sensor history and activity sessions.
type Storage interface {
	// SaveReading appends a reading to the history.
	SaveReading(r sensor.Reading, savedAt time.Time) error

	// Latest returns up to count readings ordered by save time descending.
	Latest(count int) ([]StoredReading, error)

	// Range returns readings saved within [from, to], ascending.
	Range(from, to time.Time) ([]StoredReading, error)

	// SaveActivity persists the last-active timestamp for a session token.
	SaveActivity(token string, lastActiveMs int64) error

	// GetActivity returns the last-active timestamp for a token.
	// ok is false when no activity record exists.
	GetActivity(token string) (lastActiveMs int64, ok bool, err error)

	// DeleteActivity removes the activity record for a token.
	DeleteActivity(token string) error

	// ActivityTokens returns all tokens with a persisted activity record.
	ActivityTokens() ([]string, error)

	// Cleanup removes history entries saved before the given time.
	Cleanup(olderThan time.Time) error

	Close() error
}
