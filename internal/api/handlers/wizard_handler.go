package handlers

import (
	"net/http"

	"checkops/internal/engine/wizard"
	"checkops/internal/pkg/errors"
)

type WizardHandler struct {
	wizard *wizard.Service
}

func NewWizardHandler(wizardSvc *wizard.Service) *WizardHandler {
	return &WizardHandler{wizard: wizardSvc}
}

func (h *WizardHandler) Steps(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, wizard.GetSteps())
}

func (h *WizardHandler) Niches(w http.ResponseWriter, r *http.Request) {
	niches, err := h.wizard.Niches(r.Context())
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, niches)
}

func (h *WizardHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.wizard.GetCompletionStatus(r.Context(), claimsFrom(r).UserID)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *WizardHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := h.wizard.GetProgress(r.Context(), claimsFrom(r).UserID)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func (h *WizardHandler) SaveProgress(w http.ResponseWriter, r *http.Request) {
	var req wizard.DraftInput
	if err := decodeJSON(r, &req); err != nil {
		errors.Write(w, r, err)
		return
	}

	progress, err := h.wizard.SaveDraft(r.Context(), claimsFrom(r).UserID, req)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func (h *WizardHandler) Organization(w http.ResponseWriter, r *http.Request) {
	var req wizard.OrganizationInput
	if err := decodeJSON(r, &req); err != nil {
		errors.Write(w, r, err)
		return
	}

	org, err := h.wizard.CommitOrganization(r.Context(), claimsFrom(r).UserID, req)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, org)
}

func (h *WizardHandler) Branch(w http.ResponseWriter, r *http.Request) {
	var req wizard.BranchInput
	if err := decodeJSON(r, &req); err != nil {
		errors.Write(w, r, err)
		return
	}

	branch, err := h.wizard.CommitBranch(r.Context(), claimsFrom(r).UserID, req)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, branch)
}

func (h *WizardHandler) Departments(w http.ResponseWriter, r *http.Request) {
	var req wizard.DepartmentsInput
	if err := decodeJSON(r, &req); err != nil {
		errors.Write(w, r, err)
		return
	}

	depts, err := h.wizard.CommitDepartments(r.Context(), claimsFrom(r).UserID, req)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, depts)
}

func (h *WizardHandler) Environments(w http.ResponseWriter, r *http.Request) {
	var req wizard.EnvironmentsInput
	if err := decodeJSON(r, &req); err != nil {
		errors.Write(w, r, err)
		return
	}

	envs, err := h.wizard.CommitEnvironments(r.Context(), claimsFrom(r).UserID, req)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envs)
}

func (h *WizardHandler) Complete(w http.ResponseWriter, r *http.Request) {
	status, err := h.wizard.Complete(r.Context(), claimsFrom(r).UserID)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
