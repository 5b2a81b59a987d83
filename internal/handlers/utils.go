package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jason-s-yu/fizzbuzz/internal/apperr"
)

const playTokenCookie = "play_token"

// pathID parses the {id} route parameter. Malformed ids cannot match a row, so
// they are reported as not found.
func pathID(r *http.Request, what string) (uuid.UUID, error) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.NotFound("%s not found", what)
	}
	return id, nil
}

// decodeBody reads a JSON payload. An empty body leaves dst untouched.
func decodeBody(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return apperr.Validation("invalid request payload")
	}
	return nil
}

// extractCookieToken extracts a named cookie value from the "Cookie" header, or returns empty if not found.
func extractCookieToken(cookieHeader, cookieName string) string {
	parts := strings.Split(cookieHeader, cookieName+"=")
	if len(parts) < 2 {
		return ""
	}
	token := parts[1]
	if idx := strings.Index(token, ";"); idx != -1 {
		token = token[:idx]
	}
	return strings.TrimSpace(token)
}

// extractPlayToken reads a bearer token, falling back to the play_token cookie.
func extractPlayToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return extractCookieToken(r.Header.Get("Cookie"), playTokenCookie)
}
