package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kibang/soil-tracker/internal/sensor"
)

// fileConfig is the YAML layout. Every field is optional; set fields
// override flag and environment values.
type fileConfig struct {
	Addr string `yaml:"addr,omitempty"`

	FeedURL           string        `yaml:"feedUrl,omitempty"`
	FeedRetryInterval time.Duration `yaml:"feedRetryInterval,omitempty"`

	StaleAfter         time.Duration `yaml:"staleAfter,omitempty"`
	StaleCheckInterval time.Duration `yaml:"staleCheckInterval,omitempty"`

	Storage    string        `yaml:"storage,omitempty"`
	SQLitePath string        `yaml:"sqlitePath,omitempty"`
	HistoryTTL time.Duration `yaml:"historyTTL,omitempty"`

	AuthEndpoint string `yaml:"authEndpoint,omitempty"`
	AuthAPIKey   string `yaml:"authApiKey,omitempty"`

	MaxLoginAttempts int           `yaml:"maxLoginAttempts,omitempty"`
	LockoutDuration  time.Duration `yaml:"lockoutDuration,omitempty"`
	RedisAddr        string        `yaml:"redisAddr,omitempty"`

	InactivityTimeout     time.Duration `yaml:"inactivityTimeout,omitempty"`
	ActivityCheckInterval time.Duration `yaml:"activityCheckInterval,omitempty"`

	NotificationCapacity *int `yaml:"notificationCapacity,omitempty"`

	ArchiveURL string `yaml:"archiveUrl,omitempty"`

	Thresholds map[string]thresholdRange `yaml:"thresholds,omitempty"`

	LogFormat string `yaml:"logFormat,omitempty"`
	LogLevel  string `yaml:"logLevel,omitempty"`
}

type thresholdRange struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// applyYAML overlays values from a YAML file onto the config.
func (c *Config) applyYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	if fc.Addr != "" {
		c.Addr = fc.Addr
	}
	if fc.FeedURL != "" {
		c.FeedURL = fc.FeedURL
	}
	if fc.FeedRetryInterval > 0 {
		c.FeedRetryInterval = fc.FeedRetryInterval
	}
	if fc.StaleAfter > 0 {
		c.StaleAfter = fc.StaleAfter
	}
	if fc.StaleCheckInterval > 0 {
		c.StaleCheckInterval = fc.StaleCheckInterval
	}
	if fc.Storage != "" {
		st := StorageType(fc.Storage)
		if st != StorageMemory && st != StorageSQLite {
			return fmt.Errorf("unknown storage type %q", fc.Storage)
		}
		c.Storage = st
	}
	if fc.SQLitePath != "" {
		c.SQLitePath = fc.SQLitePath
	}
	if fc.HistoryTTL > 0 {
		c.HistoryTTL = fc.HistoryTTL
	}
	if fc.AuthEndpoint != "" {
		c.AuthEndpoint = fc.AuthEndpoint
	}
	if fc.AuthAPIKey != "" {
		c.AuthAPIKey = fc.AuthAPIKey
	}
	if fc.MaxLoginAttempts > 0 {
		c.MaxLoginAttempts = fc.MaxLoginAttempts
	}
	if fc.LockoutDuration > 0 {
		c.LockoutDuration = fc.LockoutDuration
	}
	if fc.RedisAddr != "" {
		c.RedisAddr = fc.RedisAddr
	}
	if fc.InactivityTimeout > 0 {
		c.InactivityTimeout = fc.InactivityTimeout
	}
	if fc.ActivityCheckInterval > 0 {
		c.ActivityCheckInterval = fc.ActivityCheckInterval
	}
	if fc.NotificationCapacity != nil {
		c.NotificationCapacity = *fc.NotificationCapacity
	}
	if fc.ArchiveURL != "" {
		c.ArchiveURL = fc.ArchiveURL
	}
	if fc.LogFormat != "" {
		c.LogFormat = fc.LogFormat
	}
	if fc.LogLevel != "" {
		c.LogLevel = fc.LogLevel
	}

	for name, band := range fc.Thresholds {
		metric := sensor.Metric(name)
		if _, ok := c.Thresholds[metric]; !ok {
			return fmt.Errorf("unknown threshold metric %q", name)
		}
		if band.Min > band.Max {
			return fmt.Errorf("threshold %q: min %v greater than max %v", name, band.Min, band.Max)
		}
		c.Thresholds[metric] = sensor.Range{Min: band.Min, Max: band.Max}
	}

	return nil
}
