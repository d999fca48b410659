package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/kibang/soil-tracker/internal/logger"
	"github.com/kibang/soil-tracker/internal/metrics"
	"github.com/kibang/soil-tracker/internal/notify"
	"github.com/kibang/soil-tracker/internal/sensor"
)

// NotificationArchiver receives notification events for long-term storage.
type NotificationArchiver interface {
	SaveNotification(rec notify.Record, createdAt time.Time)
}

// SSEHub manages dashboard SSE connections and fans out live events. It is
// the notify.Registry observer, so every notification change reaches the
// dashboard as it happens.
type SSEHub struct {
	mu      sync.RWMutex
	clients map[*sseClient]bool

	registry *notify.Registry
	archive  NotificationArchiver // nil when disabled
}

type sseClient struct {
	token  string // session token; session_expired is delivered only here
	events chan SSEEvent
	done   chan struct{}
}

// SSEEvent is one event pushed to the dashboard.
type SSEEvent struct {
	Type      string      `json:"type"` // "connected", "reading", "notification", "notification_removed", "device_status", "session_expired"
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

var _ notify.Observer = (*SSEHub)(nil)

// NewSSEHub creates a hub. archive may be nil.
func NewSSEHub(registry *notify.Registry, archive NotificationArchiver) *SSEHub {
	return &SSEHub{
		clients:  make(map[*sseClient]bool),
		registry: registry,
		archive:  archive,
	}
}

// AddClient registers a new SSE client for a session token.
func (h *SSEHub) AddClient(token string) *sseClient {
	client := &sseClient{
		token:  token,
		events: make(chan SSEEvent, 10),
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()

	logger.Debug("SSE client connected", "total_clients", h.ClientCount())
	return client
}

// RemoveClient unregisters an SSE client.
func (h *SSEHub) RemoveClient(client *sseClient) {
	h.mu.Lock()
	delete(h.clients, client)
	h.mu.Unlock()

	close(client.done)
	logger.Debug("SSE client disconnected", "total_clients", h.ClientCount())
}

// Broadcast sends an event to every connected client.
func (h *SSEHub) Broadcast(event SSEEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		select {
		case client.events <- event:
		default:
			// Client channel full, drop the event
			logger.Warn("SSE client event buffer full, dropping event", "type", event.Type)
		}
	}
}

// sendToToken delivers an event only to clients of one session.
func (h *SSEHub) sendToToken(token string, event SSEEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if client.token != token {
			continue
		}
		select {
		case client.events <- event:
		default:
			logger.Warn("SSE client event buffer full, dropping event", "type", event.Type)
		}
	}
}

// BroadcastReading pushes a live sensor reading.
func (h *SSEHub) BroadcastReading(r sensor.Reading) {
	h.Broadcast(SSEEvent{
		Type:      "reading",
		Data:      r,
		Timestamp: time.Now(),
	})
}

// BroadcastDeviceStatus pushes an online/offline transition.
func (h *SSEHub) BroadcastDeviceStatus(online bool) {
	if online {
		metrics.DeviceOnline.Set(1)
	} else {
		metrics.DeviceOnline.Set(0)
	}
	h.Broadcast(SSEEvent{
		Type:      "device_status",
		Data:      map[string]interface{}{"online": online},
		Timestamp: time.Now(),
	})
}

// NotifySessionExpired tells one session's clients they were signed out for
// inactivity.
func (h *SSEHub) NotifySessionExpired(token string) {
	h.sendToToken(token, SSEEvent{
		Type:      "session_expired",
		Timestamp: time.Now(),
	})
}

// NotificationsAdded implements notify.Observer.
func (h *SSEHub) NotificationsAdded(records []notify.Record) {
	now := time.Now()
	for _, rec := range records {
		metrics.NotificationsCreated.Inc()
		if h.archive != nil {
			h.archive.SaveNotification(rec, now)
		}
		h.Broadcast(SSEEvent{
			Type:      "notification",
			Data:      rec,
			Timestamp: now,
		})
	}
	metrics.NotificationsActive.Set(float64(h.registry.Count()))
}

// NotificationsRemoved implements notify.Observer.
func (h *SSEHub) NotificationsRemoved(ids []int64) {
	now := time.Now()
	for _, id := range ids {
		h.Broadcast(SSEEvent{
			Type:      "notification_removed",
			Data:      map[string]int64{"id": id},
			Timestamp: now,
		})
	}
	metrics.NotificationsActive.Set(float64(h.registry.Count()))
}

// ClientCount returns the number of connected clients.
func (h *SSEHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleSSE streams live events to the dashboard.
// GET /api/events
func (h *Handlers) HandleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "SSE not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // for nginx

	client := h.sseHub.AddClient(tokenFromContext(r.Context()))
	defer h.sseHub.RemoveClient(client)

	// Initial snapshot so the dashboard renders without waiting for a tick
	h.sendSSEEvent(w, SSEEvent{
		Type:      "connected",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"deviceOnline":  h.monitor.Online(),
			"reading":       h.monitor.LastReading(),
			"notifications": h.registry.List(0),
		},
	})
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-client.done:
			return
		case event := <-client.events:
			h.sendSSEEvent(w, event)
			flusher.Flush()
		}
	}
}

func (h *Handlers) sendSSEEvent(w http.ResponseWriter, event SSEEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Error("Failed to marshal SSE event", "error", err)
		return
	}

	fmt.Fprintf(w, "event: %s\n", event.Type)
	fmt.Fprintf(w, "data: %s\n\n", data)
}
