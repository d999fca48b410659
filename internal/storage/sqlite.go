package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kibang/soil-tracker/internal/sensor"
)

type sqliteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens (or creates) the history database at dbPath.
func NewSQLiteStorage(dbPath string) (Storage, error) {
	// WAL mode and busy_timeout for better concurrency
	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStorage{db: db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS sensor_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ph REAL NOT NULL,
			suhu REAL NOT NULL,
			kelembaban REAL NOT NULL,
			device_ts INTEGER NOT NULL DEFAULT 0,
			saved_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_sensor_history_saved_at
			ON sensor_history(saved_at);

		CREATE TABLE IF NOT EXISTS activity_sessions (
			token TEXT PRIMARY KEY,
			last_active_ms INTEGER NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

func (s *sqliteStorage) SaveReading(r sensor.Reading, savedAt time.Time) error {
	_, err := s.db.Exec(
		`INSERT INTO sensor_history (ph, suhu, kelembaban, device_ts, saved_at) VALUES (?, ?, ?, ?, ?)`,
		r.PH, r.Suhu, r.Kelembaban, r.Timestamp, savedAt,
	)
	if err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	return nil
}

func (s *sqliteStorage) Latest(count int) ([]StoredReading, error) {
	rows, err := s.db.Query(
		`SELECT id, ph, suhu, kelembaban, device_ts, saved_at FROM sensor_history
		 ORDER BY saved_at DESC, id DESC LIMIT ?`,
		count,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	return scanReadings(rows)
}

func (s *sqliteStorage) Range(from, to time.Time) ([]StoredReading, error) {
	rows, err := s.db.Query(
		`SELECT id, ph, suhu, kelembaban, device_ts, saved_at FROM sensor_history
		 WHERE saved_at >= ? AND saved_at <= ?
		 ORDER BY saved_at ASC, id ASC`,
		from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	return scanReadings(rows)
}

func scanReadings(rows *sql.Rows) ([]StoredReading, error) {
	var out []StoredReading
	for rows.Next() {
		var r StoredReading
		if err := rows.Scan(&r.ID, &r.Reading.PH, &r.Reading.Suhu, &r.Reading.Kelembaban, &r.Reading.Timestamp, &r.SavedAt); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *sqliteStorage) SaveActivity(token string, lastActiveMs int64) error {
	_, err := s.db.Exec(
		`INSERT INTO activity_sessions (token, last_active_ms) VALUES (?, ?)
		 ON CONFLICT(token) DO UPDATE SET last_active_ms = excluded.last_active_ms`,
		token, lastActiveMs,
	)
	if err != nil {
		return fmt.Errorf("upsert activity: %w", err)
	}
	return nil
}

func (s *sqliteStorage) GetActivity(token string) (int64, bool, error) {
	var ms int64
	err := s.db.QueryRow(
		`SELECT last_active_ms FROM activity_sessions WHERE token = ?`, token,
	).Scan(&ms)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("query activity: %w", err)
	}
	return ms, true, nil
}

func (s *sqliteStorage) DeleteActivity(token string) error {
	_, err := s.db.Exec(`DELETE FROM activity_sessions WHERE token = ?`, token)
	if err != nil {
		return fmt.Errorf("delete activity: %w", err)
	}
	return nil
}

func (s *sqliteStorage) ActivityTokens() ([]string, error) {
	rows, err := s.db.Query(`SELECT token FROM activity_sessions`)
	if err != nil {
		return nil, fmt.Errorf("query tokens: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		out = append(out, token)
	}
	return out, rows.Err()
}

func (s *sqliteStorage) Cleanup(olderThan time.Time) error {
	_, err := s.db.Exec(`DELETE FROM sensor_history WHERE saved_at < ?`, olderThan)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return nil
}

func (s *sqliteStorage) Close() error {
	return s.db.Close()
}
