package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kibang/soil-tracker/internal/api"
	"github.com/kibang/soil-tracker/internal/archive"
	"github.com/kibang/soil-tracker/internal/auth"
	"github.com/kibang/soil-tracker/internal/config"
	"github.com/kibang/soil-tracker/internal/feed"
	"github.com/kibang/soil-tracker/internal/logger"
	"github.com/kibang/soil-tracker/internal/notify"
	"github.com/kibang/soil-tracker/internal/sensor"
	"github.com/kibang/soil-tracker/internal/session"
	"github.com/kibang/soil-tracker/internal/storage"
)

func main() {
	cfg := config.Parse()

	// Initialize logger
	logger.Init(cfg.LogFormat, config.ParseLogLevel(cfg.LogLevel))

	// Create storage
	var store storage.Storage
	var err error

	switch cfg.Storage {
	case config.StorageSQLite:
		store, err = storage.NewSQLiteStorage(cfg.SQLitePath)
		if err != nil {
			logger.Error("Failed to create SQLite storage", "error", err)
			os.Exit(1)
		}
		logger.Info("Using SQLite storage", "path", cfg.SQLitePath)
	default:
		store = storage.NewMemoryStorage()
		logger.Info("Using in-memory storage")
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Optional long-term archive
	var arc *archive.Archive
	if cfg.ArchiveURL != "" {
		arc, err = archive.New(cfg.ArchiveURL)
		if err != nil {
			logger.Error("Failed to connect archive", "error", err)
			os.Exit(1)
		}
		defer arc.Close()
		go arc.Run(ctx)
		logger.Info("Archive enabled", "url", cfg.ArchiveURL)
	}

	// Notification registry and SSE hub
	registry := notify.NewRegistry(cfg.NotificationCapacity)
	var notifArchive api.NotificationArchiver
	if arc != nil {
		notifArchive = arc
	}
	hub := api.NewSSEHub(registry, notifArchive)
	registry.SetObserver(hub)

	// Sensor feed monitor
	feedClient := feed.NewClient(cfg.FeedURL, cfg.FeedRetryInterval)
	monitor := feed.NewMonitor(feedClient, registry, store, cfg.Thresholds, cfg.StaleAfter, cfg.StaleCheckInterval)
	monitor.SetStatusCallback(hub.BroadcastDeviceStatus)
	if arc != nil {
		monitor.SetReadingCallback(func(r sensor.Reading) {
			hub.BroadcastReading(r)
			arc.SaveReading(r, time.Now())
		})
	} else {
		monitor.SetReadingCallback(hub.BroadcastReading)
	}
	go monitor.Run(ctx)

	// Login attempt guard
	var attempts auth.AttemptStore
	if cfg.RedisAddr != "" {
		attempts, err = auth.NewRedisAttemptStore(cfg.RedisAddr)
		if err != nil {
			logger.Error("Failed to connect Redis attempt store", "error", err)
			os.Exit(1)
		}
		logger.Info("Using Redis attempt store", "addr", cfg.RedisAddr)
	} else {
		attempts = auth.NewMemoryAttemptStore()
	}
	guard := auth.NewGuard(attempts, cfg.MaxLoginAttempts, cfg.LockoutDuration, cfg.LockoutGrace)

	// Sessions and inactivity monitor
	sessions := auth.NewSessions()
	sessMonitor := session.NewMonitor(store, sessions, cfg.InactivityTimeout, cfg.ActivityCheckInterval)
	sessMonitor.SetExpireCallback(hub.NotifySessionExpired)
	go sessMonitor.Run(ctx)

	// Periodic maintenance
	scheduler := cron.New()
	scheduler.AddFunc("@every 1m", func() {
		if err := guard.Sweep(); err != nil {
			logger.Warn("Attempt store sweep failed", "error", err)
		}
	})
	scheduler.AddFunc("@hourly", func() {
		if err := store.Cleanup(time.Now().Add(-cfg.HistoryTTL)); err != nil {
			logger.Warn("History cleanup failed", "error", err)
		}
	})
	scheduler.Start()
	defer scheduler.Stop()

	// API server
	identity := auth.NewClient(cfg.AuthEndpoint, cfg.AuthAPIKey)
	var readingArchive api.ReadingArchiver
	if arc != nil {
		readingArchive = arc
	}
	handlers := api.NewHandlers(store, registry, monitor, sessions, sessMonitor, guard,
		identity, readingArchive, hub, cfg.CookieSecure)
	server := api.NewServer(handlers)

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: server,
	}

	go func() {
		logger.Info("Starting server",
			"addr", cfg.Addr,
			"feed_url", cfg.FeedURL,
			"stale_after", cfg.StaleAfter.String(),
			"inactivity_timeout", cfg.InactivityTimeout.String(),
			"history_ttl", cfg.HistoryTTL.String(),
		)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Stop monitors and archive flusher
	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Server stopped")
}
