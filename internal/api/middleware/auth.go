package middleware

import (
	"context"
	"net/http"
	"strings"

	apiContext "checkops/internal/api/context"
	"checkops/internal/pkg/errors"
	"checkops/internal/platform/auth"
)

type AuthMiddleware struct {
	tokenSvc   *auth.TokenService
	cookieName string
}

func NewAuthMiddleware(tokenSvc *auth.TokenService, cookieName string) *AuthMiddleware {
	return &AuthMiddleware{tokenSvc: tokenSvc, cookieName: cookieName}
}

// Handle accepts the access token from the Authorization header or, when
// the header is absent, from the session cookie.
func (m *AuthMiddleware) Handle(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := m.token(r)
		if !ok {
			errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Missing session", nil)
			return
		}

		claims, err := m.tokenSvc.ValidateToken(token)
		if err != nil {
			errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Invalid or expired token", nil)
			return
		}

		ctx := context.WithValue(r.Context(), apiContext.Claims, claims)
		next(w, r.WithContext(ctx))
	}
}

// Optional attaches claims when a valid token is present and otherwise lets
// the request through anonymously.
func (m *AuthMiddleware) Optional(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if token, ok := m.token(r); ok {
			if claims, err := m.tokenSvc.ValidateToken(token); err == nil {
				r = r.WithContext(context.WithValue(r.Context(), apiContext.Claims, claims))
			}
		}
		next(w, r)
	}
}

func (m *AuthMiddleware) token(r *http.Request) (string, bool) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return "", false
		}
		return parts[1], true
	}

	if m.cookieName == "" {
		return "", false
	}
	cookie, err := r.Cookie(m.cookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}
