package handlers

import (
	"net/http"

	"checkops/internal/engine/accounts"
	"checkops/internal/engine/billing"
	"checkops/internal/pkg/errors"
)

type UserHandler struct {
	accounts *accounts.Service
	billing  *billing.Service
}

func NewUserHandler(accountSvc *accounts.Service, billingSvc *billing.Service) *UserHandler {
	return &UserHandler{accounts: accountSvc, billing: billingSvc}
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	me, err := h.accounts.Me(r.Context(), claimsFrom(r).UserID)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, me)
}

// Payments lists the caller's payments, newest first, each with its plan
// and resulting subscription.
func (h *UserHandler) Payments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.billing.ListPayments(r.Context(), claimsFrom(r).UserID)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payments)
}
