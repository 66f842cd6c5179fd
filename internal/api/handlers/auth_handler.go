package handlers

import (
	"net/http"

	"checkops/internal/api/middleware"
	"checkops/internal/engine/accounts"
	"checkops/internal/pkg/errors"
	"checkops/internal/pkg/validator"
)

type AuthHandler struct {
	accounts *accounts.Service
	cookies  *SessionCookies
}

func NewAuthHandler(accountSvc *accounts.Service, cookies *SessionCookies) *AuthHandler {
	return &AuthHandler{accounts: accountSvc, cookies: cookies}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req accounts.RegisterInput
	if err := decodeJSON(r, &req); err != nil {
		errors.Write(w, r, err)
		return
	}

	session, err := h.accounts.Register(r.Context(), req)
	if err != nil {
		errors.Write(w, r, err)
		return
	}

	h.cookies.Set(w, session.AccessToken)
	writeJSON(w, http.StatusCreated, session)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req accounts.LoginInput
	if err := decodeJSON(r, &req); err != nil {
		errors.Write(w, r, err)
		return
	}

	session, err := h.accounts.Authenticate(r.Context(), req, middleware.ClientIP(r), r.UserAgent())
	if err != nil {
		errors.Write(w, r, err)
		return
	}

	h.cookies.Set(w, session.AccessToken)
	writeJSON(w, http.StatusOK, session)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken" validate:"required"`
	}
	if err := decodeJSON(r, &req); err != nil {
		errors.Write(w, r, err)
		return
	}
	if err := validator.Struct(req); err != nil {
		errors.Write(w, r, err)
		return
	}

	session, err := h.accounts.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		errors.Write(w, r, err)
		return
	}

	h.cookies.Set(w, session.AccessToken)
	writeJSON(w, http.StatusOK, session)
}

// Logout clears the session cookie. Tokens are stateless and simply expire.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.cookies.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email" validate:"required"`
	}
	if err := decodeJSON(r, &req); err != nil {
		errors.Write(w, r, err)
		return
	}
	if err := validator.Struct(req); err != nil {
		errors.Write(w, r, err)
		return
	}

	if err := h.accounts.RequestPasswordReset(r.Context(), req.Email); err != nil {
		errors.Write(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "If the email is registered, a reset link has been sent",
	})
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req accounts.ResetPasswordInput
	if err := decodeJSON(r, &req); err != nil {
		errors.Write(w, r, err)
		return
	}

	if err := h.accounts.ResetPassword(r.Context(), req); err != nil {
		errors.Write(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Password updated"})
}
