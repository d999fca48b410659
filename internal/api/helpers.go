package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

type contextKey string

const tokenContextKey contextKey = "sessionToken"

// decodeJSONBody decodes request body into target struct.
// Returns false if decode failed (error already written).
func (h *Handlers) decodeJSONBody(w http.ResponseWriter, r *http.Request, target interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// requestToken extracts the session token from the cookie or, as a
// fallback, from the Authorization header.
func requestToken(r *http.Request) string {
	if c, err := r.Cookie(sessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

func tokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenContextKey).(string)
	return token
}
