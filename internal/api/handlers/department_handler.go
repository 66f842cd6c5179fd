package handlers

import (
	"net/http"

	"checkops/internal/engine/departments"
	"checkops/internal/pkg/errors"
	"checkops/internal/platform/models"
)

type DepartmentHandler struct {
	departments *departments.Service
}

func NewDepartmentHandler(deptSvc *departments.Service) *DepartmentHandler {
	return &DepartmentHandler{departments: deptSvc}
}

func (h *DepartmentHandler) List(w http.ResponseWriter, r *http.Request) {
	depts, err := h.departments.List(r.Context(), scopeFrom(r).BranchID)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	if depts == nil {
		depts = []*models.Department{}
	}
	writeJSON(w, http.StatusOK, depts)
}

func (h *DepartmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	dept, err := h.departments.Get(r.Context(), scopeFrom(r).BranchID, param(r, "id"))
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dept)
}

func (h *DepartmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req departments.CreateInput
	if err := decodeJSON(r, &req); err != nil {
		errors.Write(w, r, err)
		return
	}

	dept, err := h.departments.Create(r.Context(), scopeFrom(r).BranchID, req)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dept)
}

func (h *DepartmentHandler) Rename(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		errors.Write(w, r, err)
		return
	}

	dept, err := h.departments.Rename(r.Context(), scopeFrom(r).BranchID, param(r, "id"), req.Name)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dept)
}

func (h *DepartmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.departments.Delete(r.Context(), scopeFrom(r).BranchID, param(r, "id")); err != nil {
		errors.Write(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DepartmentHandler) AddResponsible(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil {
		errors.Write(w, r, err)
		return
	}

	dr, err := h.departments.AddResponsible(r.Context(), scopeFrom(r).BranchID, param(r, "id"), req.Email)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dr)
}

func (h *DepartmentHandler) RemoveResponsible(w http.ResponseWriter, r *http.Request) {
	err := h.departments.RemoveResponsible(r.Context(), scopeFrom(r).BranchID, param(r, "id"), param(r, "rid"))
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
