package storage

import (
	"testing"
	"time"

	"github.com/kibang/soil-tracker/internal/sensor"
)

func TestMemoryStorageSaveAndLatest(t *testing.T) {
	store := NewMemoryStorage()
	defer store.Close()

	now := time.Now()

	for i := 0; i < 5; i++ {
		r := sensor.Reading{PH: 6.0 + float64(i)/10, Suhu: 27, Kelembaban: 65}
		if err := store.SaveReading(r, now.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("SaveReading failed: %v", err)
		}
	}

	latest, err := store.Latest(3)
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}

	if len(latest) != 3 {
		t.Fatalf("expected 3 readings, got %d", len(latest))
	}

	// Most recent first
	if latest[0].Reading.PH != 6.4 {
		t.Errorf("expected most recent ph=6.4, got %v", latest[0].Reading.PH)
	}
	if latest[2].Reading.PH != 6.2 {
		t.Errorf("expected oldest of the three ph=6.2, got %v", latest[2].Reading.PH)
	}
}

func TestMemoryStorageRange(t *testing.T) {
	store := NewMemoryStorage()
	defer store.Close()

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 10; i++ {
		r := sensor.Reading{PH: float64(i), Suhu: 27, Kelembaban: 65}
		if err := store.SaveReading(r, base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("SaveReading failed: %v", err)
		}
	}

	from := base.Add(3 * time.Minute)
	to := base.Add(7 * time.Minute)

	readings, err := store.Range(from, to)
	if err != nil {
		t.Fatalf("Range failed: %v", err)
	}

	if len(readings) != 5 {
		t.Fatalf("expected 5 readings (minutes 3..7), got %d", len(readings))
	}
	if readings[0].Reading.PH != 3 {
		t.Errorf("expected first ph=3, got %v", readings[0].Reading.PH)
	}
	if readings[4].Reading.PH != 7 {
		t.Errorf("expected last ph=7, got %v", readings[4].Reading.PH)
	}
}

func TestMemoryStorageCleanup(t *testing.T) {
	store := NewMemoryStorage()
	defer store.Close()

	now := time.Now()
	old := now.Add(-2 * time.Hour)

	store.SaveReading(sensor.Reading{PH: 1}, old)
	store.SaveReading(sensor.Reading{PH: 2}, old.Add(time.Minute))
	store.SaveReading(sensor.Reading{PH: 3}, now)
	store.SaveReading(sensor.Reading{PH: 4}, now.Add(time.Minute))

	if err := store.Cleanup(now.Add(-time.Hour)); err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}

	latest, err := store.Latest(10)
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}

	if len(latest) != 2 {
		t.Fatalf("expected 2 readings after cleanup, got %d", len(latest))
	}
}

func TestMemoryStorageActivity(t *testing.T) {
	store := NewMemoryStorage()
	defer store.Close()

	if _, ok, _ := store.GetActivity("tok-1"); ok {
		t.Fatal("unexpected activity record before save")
	}

	if err := store.SaveActivity("tok-1", 12345); err != nil {
		t.Fatalf("SaveActivity failed: %v", err)
	}

	ms, ok, err := store.GetActivity("tok-1")
	if err != nil || !ok {
		t.Fatalf("GetActivity failed: ms=%d ok=%v err=%v", ms, ok, err)
	}
	if ms != 12345 {
		t.Errorf("expected lastActive=12345, got %d", ms)
	}

	// Overwrite
	store.SaveActivity("tok-1", 99999)
	ms, _, _ = store.GetActivity("tok-1")
	if ms != 99999 {
		t.Errorf("expected updated lastActive=99999, got %d", ms)
	}

	tokens, err := store.ActivityTokens()
	if err != nil || len(tokens) != 1 || tokens[0] != "tok-1" {
		t.Errorf("ActivityTokens mismatch: %v %v", tokens, err)
	}

	if err := store.DeleteActivity("tok-1"); err != nil {
		t.Fatalf("DeleteActivity failed: %v", err)
	}
	if _, ok, _ := store.GetActivity("tok-1"); ok {
		t.Error("activity record should be gone after delete")
	}
}

func TestMemoryStorageEmptyLatest(t *testing.T) {
	store := NewMemoryStorage()
	defer store.Close()

	latest, err := store.Latest(10)
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if len(latest) != 0 {
		t.Errorf("expected empty history, got %d readings", len(latest))
	}
}
