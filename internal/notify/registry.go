package notify

import (
	"sync"
)

// Severity of a notification.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Well-known condition keys. At most one active record exists per key.
const (
	KeyPHOutOfRange         = "PH_OUT_OF_RANGE"
	KeySuhuOutOfRange       = "SUHU_OUT_OF_RANGE"
	KeyKelembabanOutOfRange = "KELEMBABAN_OUT_OF_RANGE"
	KeyFeedError            = "FEED_ERROR"
	KeyNoSensorData         = "NO_SENSOR_DATA"
)

// Record is one active notification.
// ID is unique and creation-order monotonic; it only serves display identity
// (dismissal by the UI). KeyID is the semantic condition the record represents.
type Record struct {
	ID       int64    `json:"id"`
	KeyID    string   `json:"keyId"`
	Message  string   `json:"message"`
	Severity Severity `json:"type"`
}

// Observer receives registry changes: records added since the previous change
// and IDs removed by it. Called synchronously under no lock ordering guarantees
// beyond "one call per mutation"; implementations must be fast or hand off.
type Observer interface {
	NotificationsAdded(records []Record)
	NotificationsRemoved(ids []int64)
}

// Registry is a keyed, deduplicating notification store.
// Zero capacity means unbounded; with capacity > 0 the oldest record is
// evicted once the list grows past it, regardless of key state.
type Registry struct {
	mu       sync.Mutex
	records  []Record
	nextID   int64
	capacity int
	observer Observer
}

// NewRegistry creates a registry. capacity <= 0 disables eviction.
func NewRegistry(capacity int) *Registry {
	return &Registry{
		nextID:   1,
		capacity: capacity,
	}
}

// SetObserver registers the downstream consumer of diff events.
func (g *Registry) SetObserver(o Observer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.observer = o
}

// Upsert applies the keyed update semantics:
//   - message == "" removes any record with keyID (no-op if absent)
//   - existing key: message/severity replaced in place, ID and position kept,
//     and only when the message actually changed
//   - new key: record appended with a fresh monotonic ID
func (g *Registry) Upsert(keyID, message string, severity Severity) {
	g.mu.Lock()

	idx := -1
	for i, r := range g.records {
		if r.KeyID == keyID {
			idx = i
			break
		}
	}

	var added []Record
	var removed []int64

	switch {
	case message == "":
		if idx == -1 {
			g.mu.Unlock()
			return
		}
		removed = append(removed, g.records[idx].ID)
		g.records = append(g.records[:idx], g.records[idx+1:]...)

	case idx != -1:
		if g.records[idx].Message == message && g.records[idx].Severity == severity {
			g.mu.Unlock()
			return
		}
		g.records[idx].Message = message
		g.records[idx].Severity = severity
		// In-place update: no diff event, the record is not "new"

	default:
		rec := Record{
			ID:       g.nextID,
			KeyID:    keyID,
			Message:  message,
			Severity: severity,
		}
		g.nextID++
		g.records = append(g.records, rec)
		added = append(added, rec)

		if g.capacity > 0 && len(g.records) > g.capacity {
			removed = append(removed, g.records[0].ID)
			g.records = g.records[1:]
		}
	}

	observer := g.observer
	g.mu.Unlock()

	g.emit(observer, added, removed)
}

// Remove deletes the record with the given ID. No-op if absent.
func (g *Registry) Remove(id int64) {
	g.mu.Lock()

	idx := -1
	for i, r := range g.records {
		if r.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		g.mu.Unlock()
		return
	}

	g.records = append(g.records[:idx], g.records[idx+1:]...)
	observer := g.observer
	g.mu.Unlock()

	g.emit(observer, nil, []int64{id})
}

// List returns active records in insertion order.
// limit > 0 truncates to the most recent limit records.
func (g *Registry) List(limit int) []Record {
	g.mu.Lock()
	defer g.mu.Unlock()

	records := g.records
	if limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}

	out := make([]Record, len(records))
	copy(out, records)
	return out
}

// Count returns the number of active records.
func (g *Registry) Count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.records)
}

func (g *Registry) emit(o Observer, added []Record, removed []int64) {
	if o == nil {
		return
	}
	if len(added) > 0 {
		o.NotificationsAdded(added)
	}
	if len(removed) > 0 {
		o.NotificationsRemoved(removed)
	}
}
