// Package metrics exposes Prometheus instrumentation for the soil tracker.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReadingsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "soiltracker_readings_processed_total",
		Help: "Total number of sensor readings processed",
	})

	NotificationsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "soiltracker_notifications_created_total",
		Help: "Total number of notifications created",
	})

	NotificationsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "soiltracker_notifications_active",
		Help: "Number of currently active notifications",
	})

	DeviceOnline = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "soiltracker_device_online",
		Help: "Whether the sensor device is currently online (1) or stale (0)",
	})

	StaleSnapshots = promauto.NewCounter(prometheus.CounterOpts{
		Name: "soiltracker_stale_snapshots_total",
		Help: "Total number of last-known-good snapshots persisted on feed staleness",
	})

	LoginFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "soiltracker_login_failures_total",
		Help: "Total number of failed login attempts",
	})

	LoginLockouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "soiltracker_login_lockouts_total",
		Help: "Total number of login lockouts triggered",
	})

	ForcedSignouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "soiltracker_forced_signouts_total",
		Help: "Total number of sessions signed out for inactivity",
	})
)
