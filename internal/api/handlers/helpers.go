package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"

	apiContext "checkops/internal/api/context"
	"checkops/internal/engine/branches"
	"checkops/internal/pkg/errors"
	"checkops/internal/platform/auth"
	"checkops/internal/platform/config"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// decodeJSON reads the request body into dst. Malformed bodies are reported
// as validation errors.
func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.Validation("Invalid request body")
	}
	return nil
}

func claimsFrom(r *http.Request) *auth.Claims {
	claims, _ := r.Context().Value(apiContext.Claims).(*auth.Claims)
	return claims
}

func scopeFrom(r *http.Request) *branches.Scope {
	scope, _ := r.Context().Value(apiContext.Scope).(*branches.Scope)
	return scope
}

func param(r *http.Request, name string) string {
	ps, _ := r.Context().Value(apiContext.Params).(httprouter.Params)
	return ps.ByName(name)
}

func queryInt(r *http.Request, name string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return n
}

// SessionCookies writes and clears the HttpOnly cookie that carries the
// access token for browser clients.
type SessionCookies struct {
	name   string
	secure bool
	ttl    time.Duration
}

func NewSessionCookies(session config.SessionConfig, jwt config.JWTConfig) *SessionCookies {
	return &SessionCookies{name: session.CookieName, secure: session.Secure, ttl: jwt.AccessTokenTTL}
}

func (c *SessionCookies) Set(w http.ResponseWriter, token string) {
	if c == nil || c.name == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(c.ttl.Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c *SessionCookies) Clear(w http.ResponseWriter) {
	if c == nil || c.name == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
