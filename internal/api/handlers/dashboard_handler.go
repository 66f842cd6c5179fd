package handlers

import (
	"net/http"

	"checkops/internal/engine/dashboard"
	"checkops/internal/pkg/errors"
)

type DashboardHandler struct {
	dashboard *dashboard.Service
}

func NewDashboardHandler(dashboardSvc *dashboard.Service) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboardSvc}
}

// Overview summarizes the selected branch over the last `days` days.
func (h *DashboardHandler) Overview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.dashboard.Overview(r.Context(), scopeFrom(r).BranchID, queryInt(r, "days"))
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}
