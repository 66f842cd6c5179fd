package handlers

import (
	"net/http"

	"checkops/internal/engine/billing"
	"checkops/internal/pkg/errors"
)

type BillingHandler struct {
	billing *billing.Service
}

func NewBillingHandler(billingSvc *billing.Service) *BillingHandler {
	return &BillingHandler{billing: billingSvc}
}

func (h *BillingHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.billing.ListPlans(r.Context())
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plans)
}

// GetPlan serves /api/plans/:id. The id "current" resolves the caller's
// active plan and therefore needs a session.
func (h *BillingHandler) GetPlan(w http.ResponseWriter, r *http.Request) {
	id := param(r, "id")
	if id == "current" {
		h.currentPlan(w, r)
		return
	}

	plan, err := h.billing.GetPlan(r.Context(), id)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (h *BillingHandler) currentPlan(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	if claims == nil {
		errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Missing session", nil)
		return
	}

	current, err := h.billing.GetCurrentPlan(r.Context(), claims.UserID)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, current)
}

func (h *BillingHandler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	customerID, err := h.billing.CreateCustomer(r.Context(), claimsFrom(r).UserID)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"customerId": customerID})
}

func (h *BillingHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlanID string `json:"planId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		errors.Write(w, r, err)
		return
	}

	result, err := h.billing.CreateCheckoutSession(r.Context(), claimsFrom(r).UserID, req.PlanID)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *BillingHandler) CheckoutSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.billing.ListCheckoutSessions(r.Context(), claimsFrom(r).UserID)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}
