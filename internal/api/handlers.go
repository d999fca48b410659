package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kibang/soil-tracker/internal/auth"
	"github.com/kibang/soil-tracker/internal/feed"
	"github.com/kibang/soil-tracker/internal/logger"
	"github.com/kibang/soil-tracker/internal/notify"
	"github.com/kibang/soil-tracker/internal/sensor"
	"github.com/kibang/soil-tracker/internal/session"
	"github.com/kibang/soil-tracker/internal/storage"
)

const (
	sessionCookieName = "firebase_token"
	sessionCookieAge  = 86400 // seconds

	defaultHistoryCount     = 20
	defaultNotificationPage = 5
)

// ReadingArchiver receives readings for long-term storage. Optional.
type ReadingArchiver interface {
	SaveReading(r sensor.Reading, savedAt time.Time)
}

type Handlers struct {
	storage     storage.Storage
	registry    *notify.Registry
	monitor     *feed.Monitor
	sessions    *auth.Sessions
	sessMonitor *session.Monitor
	guard       *auth.Guard
	identity    *auth.Client
	archive     ReadingArchiver // nil when disabled
	sseHub      *SSEHub

	cookieSecure bool

	// now is wall clock; replaced in tests
	now func() time.Time
}

func NewHandlers(
	store storage.Storage,
	registry *notify.Registry,
	monitor *feed.Monitor,
	sessions *auth.Sessions,
	sessMonitor *session.Monitor,
	guard *auth.Guard,
	identity *auth.Client,
	archive ReadingArchiver,
	sseHub *SSEHub,
	cookieSecure bool,
) *Handlers {
	return &Handlers{
		storage:      store,
		registry:     registry,
		monitor:      monitor,
		sessions:     sessions,
		sessMonitor:  sessMonitor,
		guard:        guard,
		identity:     identity,
		archive:      archive,
		sseHub:       sseHub,
		cookieSecure: cookieSecure,
		now:          time.Now,
	}
}

func (h *Handlers) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login verifies credentials against the identity provider, guarded by the
// per-identity attempt limiter.
// POST /api/login
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decodeJSONBody(w, r, &req) {
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		h.writeError(w, http.StatusBadRequest, "Email dan password wajib diisi")
		return
	}

	identity := strings.ToLower(req.Email)

	blocked, remaining, err := h.guard.CheckBlocked(identity)
	if err != nil {
		logger.Error("Attempt store check failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "Terjadi kesalahan saat login")
		return
	}
	if blocked {
		h.writeError(w, http.StatusTooManyRequests, auth.BlockedMessage(remaining))
		return
	}

	user, token, err := h.identity.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		var authErr *auth.AuthError
		if errors.As(err, &authErr) {
			blockedNow, attempts, gerr := h.guard.RecordFailure(identity)
			if gerr != nil {
				logger.Error("Attempt store update failed", "error", gerr)
				h.writeError(w, http.StatusInternalServerError, "Terjadi kesalahan saat login")
				return
			}
			h.writeError(w, http.StatusUnauthorized, h.guard.FailureMessage(authErr.Message(), blockedNow, attempts))
			return
		}

		logger.Error("Identity provider unavailable", "error", err)
		h.writeError(w, http.StatusBadGateway, "Terjadi kesalahan saat login")
		return
	}

	if err := h.guard.RecordSuccess(identity); err != nil {
		logger.Warn("Attempt store clear failed", "error", err)
	}

	h.sessions.Add(token, *user)
	h.sessMonitor.Touch(token)
	h.setSessionCookie(w, token, sessionCookieAge)

	logger.Info("User logged in", "uid", user.UID)
	h.writeJSON(w, map[string]interface{}{
		"message": "Login berhasil",
		"user":    user,
		"token":   token,
	})
}

// Logout ends the session and clears the cookie.
// POST /api/logout
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	token := tokenFromContext(r.Context())

	h.sessions.Remove(token)
	h.sessMonitor.Forget(token)
	h.setSessionCookie(w, "", -1)

	h.writeJSON(w, map[string]interface{}{"success": true})
}

func (h *Handlers) setSessionCookie(w http.ResponseWriter, token string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

// GetSensorHistory returns stored readings, newest first. With from/to query
// parameters (epoch ms) it returns the range oldest first instead.
// GET /api/sensor-history?count=20 or ?from=...&to=...
func (h *Handlers) GetSensorHistory(w http.ResponseWriter, r *http.Request) {
	fromStr := r.URL.Query().Get("from")
	toStr := r.URL.Query().Get("to")

	if fromStr != "" || toStr != "" {
		from, err1 := strconv.ParseInt(fromStr, 10, 64)
		to, err2 := strconv.ParseInt(toStr, 10, 64)
		if err1 != nil || err2 != nil || from > to {
			h.writeError(w, http.StatusBadRequest, "invalid from/to range")
			return
		}

		readings, err := h.storage.Range(time.UnixMilli(from), time.UnixMilli(to))
		if err != nil {
			logger.Error("History range query failed", "error", err)
			h.writeError(w, http.StatusInternalServerError, "Terjadi kesalahan pada server")
			return
		}
		h.writeJSON(w, map[string]interface{}{"success": true, "data": readings})
		return
	}

	count := defaultHistoryCount
	if countStr := r.URL.Query().Get("count"); countStr != "" {
		if c, err := strconv.Atoi(countStr); err == nil && c > 0 {
			count = c
		}
	}

	readings, err := h.storage.Latest(count)
	if err != nil {
		logger.Error("History query failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "Terjadi kesalahan pada server")
		return
	}
	h.writeJSON(w, map[string]interface{}{"success": true, "data": readings})
}

// SaveSensorHistory stores one reading pushed by a client.
// POST /api/sensor-history
func (h *Handlers) SaveSensorHistory(w http.ResponseWriter, r *http.Request) {
	var reading sensor.Reading
	if !h.decodeJSONBody(w, r, &reading) {
		return
	}

	savedAt := h.now()
	if err := h.storage.SaveReading(reading, savedAt); err != nil {
		logger.Error("Save reading failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "Terjadi kesalahan pada server")
		return
	}

	if h.archive != nil {
		h.archive.SaveReading(reading, savedAt)
	}

	h.writeJSON(w, map[string]interface{}{"success": true})
}

// GetNotifications returns active notifications, oldest first.
// GET /api/notifications?limit=5 (limit=0 returns all)
func (h *Handlers) GetNotifications(w http.ResponseWriter, r *http.Request) {
	limit := defaultNotificationPage
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l >= 0 {
			limit = l
		}
	}

	records := h.registry.List(limit)
	h.writeJSON(w, map[string]interface{}{
		"success": true,
		"data":    records,
		"total":   h.registry.Count(),
	})
}

// DismissNotification removes a notification by ID.
// DELETE /api/notifications/{id}
func (h *Handlers) DismissNotification(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid notification id")
		return
	}

	h.registry.Remove(id)
	h.writeJSON(w, map[string]interface{}{"success": true})
}

// TouchSession records dashboard activity for the calling session.
// POST /api/session/activity
func (h *Handlers) TouchSession(w http.ResponseWriter, r *http.Request) {
	h.sessMonitor.Touch(tokenFromContext(r.Context()))
	h.writeJSON(w, map[string]interface{}{"success": true})
}

// GetSessionStatus reports last activity for the calling session.
// GET /api/session/status
func (h *Handlers) GetSessionStatus(w http.ResponseWriter, r *http.Request) {
	token := tokenFromContext(r.Context())

	sess, ok := h.sessions.Get(token)
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	lastActive, _ := h.sessMonitor.LastActive(token)
	h.writeJSON(w, map[string]interface{}{
		"user":         sess.User,
		"lastActiveMs": lastActive,
	})
}

// Health is the liveness endpoint.
// GET /api/health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, map[string]interface{}{
		"status":        "ok",
		"deviceOnline":  h.monitor.Online(),
		"sseClients":    h.sseHub.ClientCount(),
		"sessions":      h.sessions.Count(),
		"notifications": h.registry.Count(),
	})
}
