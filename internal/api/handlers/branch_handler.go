package handlers

import (
	"net/http"

	"checkops/internal/engine/branches"
	"checkops/internal/pkg/errors"
)

type BranchHandler struct {
	branches *branches.Service
	cookies  *SessionCookies
}

func NewBranchHandler(branchSvc *branches.Service, cookies *SessionCookies) *BranchHandler {
	return &BranchHandler{branches: branchSvc, cookies: cookies}
}

// ListOrganizations returns the caller's organizations with their branches.
func (h *BranchHandler) ListOrganizations(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.branches.ListOrganizationsForUser(r.Context(), claimsFrom(r).UserID)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orgs)
}

func (h *BranchHandler) Select(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BranchID string `json:"branchId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		errors.Write(w, r, err)
		return
	}

	selection, err := h.branches.SelectBranch(r.Context(), claimsFrom(r).UserID, req.BranchID)
	if err != nil {
		errors.Write(w, r, err)
		return
	}

	h.cookies.Set(w, selection.AccessToken)
	writeJSON(w, http.StatusOK, selection)
}

// Create adds a branch to the organization of the selected branch.
func (h *BranchHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req branches.CreateInput
	if err := decodeJSON(r, &req); err != nil {
		errors.Write(w, r, err)
		return
	}

	branch, err := h.branches.Create(r.Context(), scopeFrom(r).OrganizationID, req)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, branch)
}
