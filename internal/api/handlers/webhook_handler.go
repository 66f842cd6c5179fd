package handlers

import (
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"checkops/internal/engine/billing"
	"checkops/internal/pkg/errors"
)

const maxWebhookBody = int64(65536)

type WebhookHandler struct {
	billing *billing.Service
}

func NewWebhookHandler(billingSvc *billing.Service) *WebhookHandler {
	return &WebhookHandler{billing: billingSvc}
}

// Stripe verifies and applies a payment provider event. Events that verify
// but fail to apply are still acknowledged; the worker retries them.
func (h *WebhookHandler) Stripe(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read webhook body")
		errors.WriteError(w, http.StatusServiceUnavailable, errors.ErrCodeInvalidInput, "Error reading request body", nil)
		return
	}

	if err := h.billing.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
		errors.Write(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
