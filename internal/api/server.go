package api

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	mux      *http.ServeMux
	handlers *Handlers
}

func NewServer(handlers *Handlers) *Server {
	s := &Server{
		mux:      http.NewServeMux(),
		handlers: handlers,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Public routes
	s.mux.HandleFunc("POST /api/login", s.handlers.Login)
	s.mux.HandleFunc("GET /api/health", s.handlers.Health)
	s.mux.Handle("GET /metrics", promhttp.Handler())

	// Session-protected routes
	s.protected("POST /api/logout", s.handlers.Logout)
	s.protected("GET /api/sensor-history", s.handlers.GetSensorHistory)
	s.protected("POST /api/sensor-history", s.handlers.SaveSensorHistory)
	s.protected("GET /api/notifications", s.handlers.GetNotifications)
	s.protected("DELETE /api/notifications/{id}", s.handlers.DismissNotification)
	s.protected("GET /api/events", s.handlers.HandleSSE)
	s.protected("POST /api/session/activity", s.handlers.TouchSession)
	s.protected("GET /api/session/status", s.handlers.GetSessionStatus)
}

func (s *Server) protected(pattern string, handler http.HandlerFunc) {
	s.mux.Handle(pattern, s.requireSession(handler))
}

// requireSession rejects requests without a live session and stores the
// token in the request context.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := requestToken(r)
		if token == "" {
			s.handlers.writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		if _, ok := s.handlers.sessions.Get(token); !ok {
			s.handlers.writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), tokenContextKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
