package config

import (
	"flag"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/kibang/soil-tracker/internal/logger"
	"github.com/kibang/soil-tracker/internal/sensor"
)

type StorageType string

const (
	StorageMemory StorageType = "memory"
	StorageSQLite StorageType = "sqlite"
)

type Config struct {
	Addr string // listen address (format: :port or host:port)

	// Realtime sensor feed
	FeedURL           string
	FeedRetryInterval time.Duration

	// Staleness detection
	StaleAfter         time.Duration
	StaleCheckInterval time.Duration

	// History persistence
	Storage    StorageType
	SQLitePath string
	HistoryTTL time.Duration

	// Identity provider
	AuthEndpoint string
	AuthAPIKey   string

	// Login attempt guard
	MaxLoginAttempts int
	LockoutDuration  time.Duration
	LockoutGrace     time.Duration
	RedisAddr        string // empty = in-memory attempt store

	// Session activity
	InactivityTimeout     time.Duration
	ActivityCheckInterval time.Duration

	// Notifications
	NotificationCapacity int // 0 = unbounded

	// Long-term archive (empty = disabled)
	ArchiveURL string

	// Session cookie
	CookieSecure bool

	Thresholds sensor.Thresholds

	LogFormat string
	LogLevel  string

	ConfigFile string // path to YAML config
}

func Parse() *Config {
	cfg := &Config{
		Thresholds: sensor.DefaultThresholds(),
	}

	flag.StringVar(&cfg.Addr, "addr", ":8080", "Listen address (e.g. :8080 or 127.0.0.1:8080)")
	flag.StringVar(&cfg.FeedURL, "feed-url", envOr("SOILTRACKER_FEED_URL", "ws://localhost:9001/feed"), "Sensor feed websocket URL")
	flag.DurationVar(&cfg.FeedRetryInterval, "feed-retry-interval", 3*time.Second, "Feed reconnect interval")
	flag.DurationVar(&cfg.StaleAfter, "stale-after", 3*time.Second, "Feed staleness window before the device is presumed offline")
	flag.DurationVar(&cfg.StaleCheckInterval, "stale-check-interval", 3*time.Second, "Staleness check interval")

	var storageStr string
	flag.StringVar(&storageStr, "storage", "sqlite", "Storage type: memory or sqlite")
	flag.StringVar(&cfg.SQLitePath, "sqlite-path", "./soiltracker.db", "SQLite database path")
	flag.DurationVar(&cfg.HistoryTTL, "history-ttl", 30*24*time.Hour, "History retention time")

	flag.StringVar(&cfg.AuthEndpoint, "auth-endpoint", envOr("SOILTRACKER_AUTH_ENDPOINT", ""), "Identity provider sign-in URL")
	flag.StringVar(&cfg.AuthAPIKey, "auth-api-key", envOr("SOILTRACKER_AUTH_API_KEY", ""), "Identity provider API key")

	flag.IntVar(&cfg.MaxLoginAttempts, "max-login-attempts", 5, "Failed login attempts before lockout")
	flag.DurationVar(&cfg.LockoutDuration, "lockout-duration", 5*time.Minute, "Login lockout duration")
	flag.DurationVar(&cfg.LockoutGrace, "lockout-grace", time.Minute, "Grace period before swept lockout cleanup")
	flag.StringVar(&cfg.RedisAddr, "redis-addr", envOr("SOILTRACKER_REDIS_ADDR", ""), "Redis address for the shared attempt store (empty = in-memory)")

	flag.DurationVar(&cfg.InactivityTimeout, "inactivity-timeout", 30*time.Minute, "Idle time before forced sign-out")
	flag.DurationVar(&cfg.ActivityCheckInterval, "activity-check-interval", 5*time.Second, "Inactivity check interval")

	flag.IntVar(&cfg.NotificationCapacity, "notification-capacity", 0, "Max active notifications (0 = unbounded)")

	flag.StringVar(&cfg.ArchiveURL, "archive-url", envOr("SOILTRACKER_ARCHIVE_URL", ""), "ClickHouse archive URL (empty = disabled)")

	flag.StringVar(&cfg.LogFormat, "log-format", "text", "Log format: text or json")
	flag.StringVar(&cfg.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.StringVar(&cfg.ConfigFile, "config", "", "YAML configuration file")

	flag.Parse()

	cfg.Storage = StorageType(storageStr)
	if cfg.Storage != StorageMemory && cfg.Storage != StorageSQLite {
		cfg.Storage = StorageSQLite
	}

	cfg.CookieSecure = os.Getenv("APP_ENV") == "production"

	if cfg.ConfigFile != "" {
		if err := cfg.applyYAML(cfg.ConfigFile); err != nil {
			logger.Error("Failed to load config file", "path", cfg.ConfigFile, "error", err)
		}
	}

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// ParseLogLevel converts string log level to slog.Level
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
