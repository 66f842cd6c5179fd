package handlers

import (
	"net/http"

	"checkops/internal/pkg/errors"
	"checkops/internal/platform/audit"
	"checkops/internal/platform/models"
)

type AuditHandler struct {
	audit *audit.Logger
}

func NewAuditHandler(auditLogger *audit.Logger) *AuditHandler {
	return &AuditHandler{audit: auditLogger}
}

func (h *AuditHandler) LoginLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.audit.ListLoginLogs(r.Context(), claimsFrom(r).UserID, queryInt(r, "limit"))
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	if logs == nil {
		logs = []*models.LoginLog{}
	}
	writeJSON(w, http.StatusOK, logs)
}
