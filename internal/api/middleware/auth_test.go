package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apiContext "checkops/internal/api/context"
	"checkops/internal/platform/auth"
	"checkops/internal/platform/config"
	"checkops/internal/platform/models"
)

func TestAuthMiddleware(t *testing.T) {
	tokens := auth.NewTokenService(config.JWTConfig{Secret: "test-secret", AccessTokenTTL: time.Hour})
	token, err := tokens.GenerateAccessToken(&models.User{ID: "usr_1", Email: "a@x.com", Name: "A"})
	if err != nil {
		t.Fatal(err)
	}
	mw := NewAuthMiddleware(tokens, "checkops_session")

	tests := []struct {
		name   string
		setup  func(r *http.Request)
		status int
	}{
		{"bearer header", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }, http.StatusOK},
		{"session cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "checkops_session", Value: token}) }, http.StatusOK},
		{"missing", func(r *http.Request) {}, http.StatusUnauthorized},
		{"malformed header", func(r *http.Request) { r.Header.Set("Authorization", token) }, http.StatusUnauthorized},
		{"bad token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/auth/me", nil)
			tt.setup(req)
			rr := httptest.NewRecorder()
			mw.Handle(func(w http.ResponseWriter, r *http.Request) {
				claims := r.Context().Value(apiContext.Claims).(*auth.Claims)
				if claims.UserID != "usr_1" {
					t.Errorf("claims.UserID = %q", claims.UserID)
				}
				w.WriteHeader(http.StatusOK)
			}).ServeHTTP(rr, req)
			if rr.Code != tt.status {
				t.Errorf("status = %d, want %d", rr.Code, tt.status)
			}
		})
	}
}
