package handlers

import (
	"net/http"

	"checkops/internal/engine/checklists"
	"checkops/internal/pkg/errors"
	"checkops/internal/platform/models"
)

type ChecklistHandler struct {
	checklists *checklists.Service
	publicURL  string
}

func NewChecklistHandler(checklistSvc *checklists.Service, publicURL string) *ChecklistHandler {
	return &ChecklistHandler{checklists: checklistSvc, publicURL: publicURL}
}

func (h *ChecklistHandler) ResponseTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.checklists.ResponseTypes(r.Context())
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types)
}

func (h *ChecklistHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.checklists.List(r.Context(), scopeFrom(r).BranchID)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	if list == nil {
		list = []*models.ChecklistSummary{}
	}
	writeJSON(w, http.StatusOK, list)
}

// Get serves both a single checklist and the execution listing, which
// share the same path depth.
func (h *ChecklistHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := param(r, "id")
	if id == "executions" {
		h.ListExecutions(w, r)
		return
	}

	checklist, err := h.checklists.Get(r.Context(), scopeFrom(r).BranchID, id)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, checklist)
}

func (h *ChecklistHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req checklists.CreateInput
	if err := decodeJSON(r, &req); err != nil {
		errors.Write(w, r, err)
		return
	}

	checklist, err := h.checklists.Create(r.Context(), *scopeFrom(r), claimsFrom(r).UserID, req)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, checklist)
}

// QRCode returns a PNG pointing at the checklist's execution page.
func (h *ChecklistHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	checklist, err := h.checklists.Get(r.Context(), scopeFrom(r).BranchID, param(r, "id"))
	if err != nil {
		errors.Write(w, r, err)
		return
	}

	png, err := checklists.QRCode(checklists.ExecutionURL(h.publicURL, checklist.ID), queryInt(r, "size"))
	if err != nil {
		errors.Write(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

func (h *ChecklistHandler) ToggleStatus(w http.ResponseWriter, r *http.Request) {
	checklist, err := h.checklists.ToggleActive(r.Context(), scopeFrom(r).BranchID, param(r, "id"))
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, checklist)
}

func (h *ChecklistHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.checklists.Delete(r.Context(), scopeFrom(r).BranchID, param(r, "id")); err != nil {
		errors.Write(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ChecklistHandler) RecordExecution(w http.ResponseWriter, r *http.Request) {
	var req checklists.ExecutionInput
	if err := decodeJSON(r, &req); err != nil {
		errors.Write(w, r, err)
		return
	}

	execution, err := h.checklists.RecordExecution(r.Context(), scopeFrom(r).BranchID, claimsFrom(r).UserID, req)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, execution)
}

// ListExecutions accepts an optional checklistId filter and limit.
func (h *ChecklistHandler) ListExecutions(w http.ResponseWriter, r *http.Request) {
	executions, err := h.checklists.ListExecutions(r.Context(), scopeFrom(r).BranchID,
		r.URL.Query().Get("checklistId"), queryInt(r, "limit"))
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	if executions == nil {
		executions = []*models.ChecklistExecution{}
	}
	writeJSON(w, http.StatusOK, executions)
}

func (h *ChecklistHandler) GetExecution(w http.ResponseWriter, r *http.Request) {
	execution, err := h.checklists.GetExecution(r.Context(), scopeFrom(r).BranchID, param(r, "id"))
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, execution)
}
