package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kibang/soil-tracker/internal/sensor"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestApplyYAMLOverrides(t *testing.T) {
	path := writeTempConfig(t, `
addr: ":9090"
feedUrl: ws://device:9001/feed
inactivityTimeout: 15m
maxLoginAttempts: 3
storage: memory
notificationCapacity: 50
thresholds:
  ph:
    min: 6.0
    max: 7.5
`)

	cfg := &Config{
		Addr:              ":8080",
		FeedURL:           "ws://localhost:9001/feed",
		InactivityTimeout: 30 * time.Minute,
		MaxLoginAttempts:  5,
		Storage:           StorageSQLite,
		Thresholds:        sensor.DefaultThresholds(),
	}

	if err := cfg.applyYAML(path); err != nil {
		t.Fatalf("applyYAML failed: %v", err)
	}

	if cfg.Addr != ":9090" {
		t.Errorf("Addr = %q, want :9090", cfg.Addr)
	}
	if cfg.FeedURL != "ws://device:9001/feed" {
		t.Errorf("FeedURL = %q", cfg.FeedURL)
	}
	if cfg.InactivityTimeout != 15*time.Minute {
		t.Errorf("InactivityTimeout = %v, want 15m", cfg.InactivityTimeout)
	}
	if cfg.MaxLoginAttempts != 3 {
		t.Errorf("MaxLoginAttempts = %d, want 3", cfg.MaxLoginAttempts)
	}
	if cfg.Storage != StorageMemory {
		t.Errorf("Storage = %q, want memory", cfg.Storage)
	}
	if cfg.NotificationCapacity != 50 {
		t.Errorf("NotificationCapacity = %d, want 50", cfg.NotificationCapacity)
	}

	band := cfg.Thresholds[sensor.MetricPH]
	if band.Min != 6.0 || band.Max != 7.5 {
		t.Errorf("ph threshold = %+v, want [6.0, 7.5]", band)
	}
	// Untouched metrics keep their defaults
	suhu := cfg.Thresholds[sensor.MetricSuhu]
	if suhu.Min != 25 || suhu.Max != 30 {
		t.Errorf("suhu threshold changed unexpectedly: %+v", suhu)
	}
}

func TestApplyYAMLUnsetFieldsKeepDefaults(t *testing.T) {
	path := writeTempConfig(t, `addr: ":9090"`)

	cfg := &Config{
		Addr:             ":8080",
		MaxLoginAttempts: 5,
		LockoutDuration:  5 * time.Minute,
		Thresholds:       sensor.DefaultThresholds(),
	}

	if err := cfg.applyYAML(path); err != nil {
		t.Fatalf("applyYAML failed: %v", err)
	}

	if cfg.MaxLoginAttempts != 5 || cfg.LockoutDuration != 5*time.Minute {
		t.Error("unset YAML fields must not override existing values")
	}
}

func TestApplyYAMLRejectsUnknownMetric(t *testing.T) {
	path := writeTempConfig(t, `
thresholds:
  salinity:
    min: 1
    max: 2
`)

	cfg := &Config{Thresholds: sensor.DefaultThresholds()}
	if err := cfg.applyYAML(path); err == nil {
		t.Error("expected error for unknown threshold metric")
	}
}

func TestApplyYAMLRejectsInvertedRange(t *testing.T) {
	path := writeTempConfig(t, `
thresholds:
  ph:
    min: 9
    max: 5
`)

	cfg := &Config{Thresholds: sensor.DefaultThresholds()}
	if err := cfg.applyYAML(path); err == nil {
		t.Error("expected error for min > max")
	}
}

func TestApplyYAMLMissingFile(t *testing.T) {
	cfg := &Config{Thresholds: sensor.DefaultThresholds()}
	if err := cfg.applyYAML("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestApplyYAMLInvalidYAML(t *testing.T) {
	path := writeTempConfig(t, "{{not yaml")
	cfg := &Config{Thresholds: sensor.DefaultThresholds()}
	if err := cfg.applyYAML(path); err == nil {
		t.Error("expected error for malformed YAML")
	}
}
