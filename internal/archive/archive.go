// Package archive writes readings and notification events to ClickHouse for
// long-term analysis. Optional: the tracker runs fine without it.
package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/kibang/soil-tracker/internal/logger"
	"github.com/kibang/soil-tracker/internal/notify"
	"github.com/kibang/soil-tracker/internal/sensor"
)

const (
	defaultDatabase = "soiltracker"

	readingsTable = "sensor_readings"
	eventsTable   = "notification_events"

	flushInterval = 5 * time.Second
	bufferSize    = 1000
)

type readingRow struct {
	reading sensor.Reading
	savedAt time.Time
}

type eventRow struct {
	keyID     string
	message   string
	severity  string
	createdAt time.Time
}

// Archive buffers rows and flushes them to ClickHouse in batches.
// All writes are fire-and-forget: failures are logged and dropped.
type Archive struct {
	conn     driver.Conn
	database string

	readings chan readingRow
	events   chan eventRow
}

// New connects to ClickHouse. URL format: clickhouse://host:port/database.
func New(urlStr string) (*Archive, error) {
	opts, err := clickhouse.ParseDSN(urlStr)
	if err != nil {
		return nil, fmt.Errorf("parse DSN: %w", err)
	}

	database := opts.Auth.Database
	if database == "" {
		database = defaultDatabase
	}

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	a := &Archive{
		conn:     conn,
		database: database,
		readings: make(chan readingRow, bufferSize),
		events:   make(chan eventRow, bufferSize),
	}

	if err := a.createTables(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	return a, nil
}

func (a *Archive) createTables(ctx context.Context) error {
	ddl := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
			ph Float64,
			suhu Float64,
			kelembaban Float64,
			device_ts Int64,
			saved_at DateTime64(3)
		) ENGINE = MergeTree ORDER BY saved_at`, a.database, readingsTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
			key_id String,
			message String,
			severity String,
			created_at DateTime64(3)
		) ENGINE = MergeTree ORDER BY created_at`, a.database, eventsTable),
	}

	for _, stmt := range ddl {
		if err := a.conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	return nil
}

// SaveReading enqueues a reading. Drops the row when the buffer is full.
func (a *Archive) SaveReading(r sensor.Reading, savedAt time.Time) {
	select {
	case a.readings <- readingRow{reading: r, savedAt: savedAt}:
	default:
		logger.Warn("Archive reading buffer full, dropping row")
	}
}

// SaveNotification enqueues a notification event.
func (a *Archive) SaveNotification(rec notify.Record, createdAt time.Time) {
	select {
	case a.events <- eventRow{
		keyID:     rec.KeyID,
		message:   rec.Message,
		severity:  string(rec.Severity),
		createdAt: createdAt,
	}:
	default:
		logger.Warn("Archive event buffer full, dropping row")
	}
}

// Run flushes buffered rows until ctx is cancelled, then flushes once more.
func (a *Archive) Run(ctx context.Context) {
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.flush()
			return
		case <-ticker.C:
			a.flush()
		}
	}
}

func (a *Archive) flush() {
	a.flushReadings()
	a.flushEvents()
}

func (a *Archive) flushReadings() {
	rows := drainReadings(a.readings)
	if len(rows) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	batch, err := a.conn.PrepareBatch(ctx, fmt.Sprintf("INSERT INTO %s.%s", a.database, readingsTable))
	if err != nil {
		logger.Warn("Archive prepare batch failed", "error", err)
		return
	}

	for _, row := range rows {
		if err := batch.Append(row.reading.PH, row.reading.Suhu, row.reading.Kelembaban, row.reading.Timestamp, row.savedAt); err != nil {
			logger.Warn("Archive append failed", "error", err)
			return
		}
	}

	if err := batch.Send(); err != nil {
		logger.Warn("Archive send failed", "rows", len(rows), "error", err)
	}
}

func (a *Archive) flushEvents() {
	rows := drainEvents(a.events)
	if len(rows) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	batch, err := a.conn.PrepareBatch(ctx, fmt.Sprintf("INSERT INTO %s.%s", a.database, eventsTable))
	if err != nil {
		logger.Warn("Archive prepare batch failed", "error", err)
		return
	}

	for _, row := range rows {
		if err := batch.Append(row.keyID, row.message, row.severity, row.createdAt); err != nil {
			logger.Warn("Archive append failed", "error", err)
			return
		}
	}

	if err := batch.Send(); err != nil {
		logger.Warn("Archive send failed", "rows", len(rows), "error", err)
	}
}

func drainReadings(ch chan readingRow) []readingRow {
	var rows []readingRow
	for {
		select {
		case row := <-ch:
			rows = append(rows, row)
		default:
			return rows
		}
	}
}

func drainEvents(ch chan eventRow) []eventRow {
	var rows []eventRow
	for {
		select {
		case row := <-ch:
			rows = append(rows, row)
		default:
			return rows
		}
	}
}

// Close closes the ClickHouse connection.
func (a *Archive) Close() error {
	return a.conn.Close()
}
