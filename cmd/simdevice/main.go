// Command simdevice serves a websocket feed of random soil readings for
// local development.
package main

import (
	"flag"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kibang/soil-tracker/internal/config"
	"github.com/kibang/soil-tracker/internal/logger"
	"github.com/kibang/soil-tracker/internal/sensor"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func randomReading() sensor.Reading {
	return sensor.Reading{
		PH:         5 + rand.Float64()*3,    // 5..8
		Suhu:       25 + rand.Float64()*10,  // 25..35
		Kelembaban: 40 + rand.Float64()*30,  // 40..70
		Timestamp:  time.Now().UnixMilli(),
	}
}

func serveFeed(w http.ResponseWriter, r *http.Request, interval time.Duration) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	logger.Info("Feed client connected", "remote", r.RemoteAddr)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		reading := randomReading()
		if err := conn.WriteJSON(reading); err != nil {
			logger.Info("Feed client disconnected", "remote", r.RemoteAddr)
			return
		}
		logger.Debug("Pushed reading",
			"ph", reading.PH, "suhu", reading.Suhu, "kelembaban", reading.Kelembaban)
	}
}

func main() {
	addr := flag.String("addr", ":9001", "Listen address")
	interval := flag.Duration("interval", 3*time.Second, "Push interval")
	duration := flag.Duration("duration", 0, "Stop after this long (0 = run forever)")
	logLevel := flag.String("log-level", "info", "Log level")
	flag.Parse()

	logger.Init("text", config.ParseLogLevel(*logLevel))

	if *duration > 0 {
		time.AfterFunc(*duration, func() {
			logger.Info("Duration elapsed, stopping")
			os.Exit(0)
		})
	}

	http.HandleFunc("/feed", func(w http.ResponseWriter, r *http.Request) {
		serveFeed(w, r, *interval)
	})

	logger.Info("Starting simulated device", "addr", *addr, "interval", interval.String())
	if err := http.ListenAndServe(*addr, nil); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
