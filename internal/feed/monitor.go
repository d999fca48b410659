package feed

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/kibang/soil-tracker/internal/logger"
	"github.com/kibang/soil-tracker/internal/metrics"
	"github.com/kibang/soil-tracker/internal/notify"
	"github.com/kibang/soil-tracker/internal/sensor"
	"github.com/kibang/soil-tracker/internal/storage"
)

// HistoryWriter persists a snapshot reading. Satisfied by storage.Storage.
type HistoryWriter interface {
	SaveReading(r sensor.Reading, savedAt time.Time) error
}

var _ HistoryWriter = (storage.Storage)(nil)

// Monitor drives threshold evaluation for every feed update, reconciles the
// results into the notification registry and watches the feed for staleness.
//
// When the feed goes quiet past the staleness window the device is presumed
// offline: the last valid reading is written to history exactly once per
// disconnect episode and the device status flips to inactive. Any fresh
// update flips it back and re-arms the snapshot.
type Monitor struct {
	feed       Feed
	registry   *notify.Registry
	history    HistoryWriter
	thresholds sensor.Thresholds

	staleAfter    time.Duration
	checkInterval time.Duration

	// now is wall clock; replaced in tests
	now func() time.Time

	mu         sync.Mutex
	lastUpdate time.Time
	lastValid  *sensor.Reading
	lastRaw    *sensor.Reading
	persisted  bool
	online     bool

	onReading func(r sensor.Reading)
	onStatus  func(online bool)
}

// NewMonitor creates a monitor. staleAfter and checkInterval default to 3s.
func NewMonitor(f Feed, registry *notify.Registry, history HistoryWriter, thresholds sensor.Thresholds, staleAfter, checkInterval time.Duration) *Monitor {
	if staleAfter <= 0 {
		staleAfter = 3 * time.Second
	}
	if checkInterval <= 0 {
		checkInterval = 3 * time.Second
	}
	return &Monitor{
		feed:          f,
		registry:      registry,
		history:       history,
		thresholds:    thresholds,
		staleAfter:    staleAfter,
		checkInterval: checkInterval,
		now:           time.Now,
	}
}

// SetReadingCallback registers a callback invoked on every non-empty update.
func (m *Monitor) SetReadingCallback(cb func(r sensor.Reading)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onReading = cb
}

// SetStatusCallback registers a callback invoked on device status changes.
func (m *Monitor) SetStatusCallback(cb func(online bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onStatus = cb
}

// Online reports the current device status.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// LastReading returns the most recent raw reading, or nil.
func (m *Monitor) LastReading() *sensor.Reading {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastRaw == nil {
		return nil
	}
	r := *m.lastRaw
	return &r
}

// Run subscribes to the feed and runs the staleness checker until ctx is
// cancelled. Subscription and ticker are torn down on return.
func (m *Monitor) Run(ctx context.Context) {
	unsubscribe := m.feed.Subscribe(m.HandleData, m.HandleError)
	defer unsubscribe()

	ticker := time.NewTicker(m.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CheckStale()
		}
	}
}

// HandleData processes one feed snapshot. nil means the feed has no data.
func (m *Monitor) HandleData(r *sensor.Reading) {
	m.registry.Upsert(notify.KeyFeedError, "", notify.SeverityWarning)

	if r == nil {
		m.registry.Upsert(notify.KeyNoSensorData, "Tidak ada data sensor terbaru ditemukan.", notify.SeverityInfo)
		return
	}
	m.registry.Upsert(notify.KeyNoSensorData, "", notify.SeverityInfo)

	metrics.ReadingsProcessed.Inc()

	outOfRange := sensor.Evaluate(*r, m.thresholds)
	for _, metric := range sensor.Metrics {
		if outOfRange[metric] {
			m.registry.Upsert(keyFor(metric), alertMessage(metric, r.Value(metric), m.thresholds[metric]), notify.SeverityWarning)
		} else {
			m.registry.Upsert(keyFor(metric), "", notify.SeverityWarning)
		}
	}

	m.mu.Lock()
	m.lastUpdate = m.now()
	reading := *r
	m.lastRaw = &reading
	// A zero pH is the sentinel for "no real data yet"
	if r.PH != 0 {
		valid := reading
		m.lastValid = &valid
	}
	m.persisted = false
	wasOnline := m.online
	m.online = true
	onReading := m.onReading
	onStatus := m.onStatus
	m.mu.Unlock()

	metrics.DeviceOnline.Set(1)

	if onReading != nil {
		onReading(reading)
	}
	if !wasOnline && onStatus != nil {
		onStatus(true)
	}
}

// HandleError reports a feed subscription error as a notification.
// Never fatal; the next successful update clears it.
func (m *Monitor) HandleError(err error) {
	m.registry.Upsert(notify.KeyFeedError, "Gagal membaca data sensor dari perangkat.", notify.SeverityWarning)
}

// CheckStale compares the wall clock with the last feed update and, once per
// disconnect episode, persists the last known good reading and marks the
// device inactive.
func (m *Monitor) CheckStale() {
	m.mu.Lock()

	if m.lastUpdate.IsZero() || m.now().Sub(m.lastUpdate) <= m.staleAfter {
		m.mu.Unlock()
		return
	}

	if m.persisted {
		m.mu.Unlock()
		return
	}
	m.persisted = true

	snapshot := m.lastValid
	if snapshot == nil {
		snapshot = m.lastRaw
	}

	wasOnline := m.online
	m.online = false
	onStatus := m.onStatus
	savedAt := m.now()
	m.mu.Unlock()

	metrics.DeviceOnline.Set(0)

	if snapshot != nil {
		// Fire-and-forget: logged on failure, not retried
		if err := m.history.SaveReading(*snapshot, savedAt); err != nil {
			logger.Error("Save last reading on staleness failed", "error", err)
		} else {
			logger.Info("Device feed stale, snapshot persisted",
				"ph", snapshot.PH, "suhu", snapshot.Suhu, "kelembaban", snapshot.Kelembaban)
			metrics.StaleSnapshots.Inc()
		}
	}

	if wasOnline && onStatus != nil {
		onStatus(false)
	}
}

func keyFor(m sensor.Metric) string {
	switch m {
	case sensor.MetricPH:
		return notify.KeyPHOutOfRange
	case sensor.MetricSuhu:
		return notify.KeySuhuOutOfRange
	case sensor.MetricKelembaban:
		return notify.KeyKelembabanOutOfRange
	}
	return string(m) + "_OUT_OF_RANGE"
}

// alertMessage builds the user-facing Indonesian warning for a metric.
func alertMessage(m sensor.Metric, value float64, band sensor.Range) string {
	bounds := formatBound(band.Min) + " - " + formatBound(band.Max)
	switch m {
	case sensor.MetricPH:
		return fmt.Sprintf("Perhatian: pH tanah (%.1f) di luar batas normal (%s).", value, bounds)
	case sensor.MetricSuhu:
		return fmt.Sprintf("Perhatian: Suhu tanah (%.1f°C) di luar batas normal (%s°C).", value, bounds)
	case sensor.MetricKelembaban:
		return fmt.Sprintf("Perhatian: Kelembaban tanah (%.1f%%) di luar batas normal (%s%%).", value, bounds)
	}
	return fmt.Sprintf("Perhatian: %s (%.1f) di luar batas normal (%s).", m, value, bounds)
}

// formatBound renders 7.0 as "7" and 5.5 as "5.5", matching the dashboard copy.
func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
