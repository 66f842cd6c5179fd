package handlers

import (
	"net/http"

	"checkops/internal/engine/environments"
	"checkops/internal/pkg/errors"
	"checkops/internal/platform/models"
)

type EnvironmentHandler struct {
	environments *environments.Service
}

func NewEnvironmentHandler(envSvc *environments.Service) *EnvironmentHandler {
	return &EnvironmentHandler{environments: envSvc}
}

func (h *EnvironmentHandler) List(w http.ResponseWriter, r *http.Request) {
	envs, err := h.environments.List(r.Context(), scopeFrom(r).BranchID)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	if envs == nil {
		envs = []*models.Environment{}
	}
	writeJSON(w, http.StatusOK, envs)
}

func (h *EnvironmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req environments.CreateInput
	if err := decodeJSON(r, &req); err != nil {
		errors.Write(w, r, err)
		return
	}

	env, err := h.environments.Create(r.Context(), scopeFrom(r).BranchID, req)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, env)
}

func (h *EnvironmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req environments.UpdateInput
	if err := decodeJSON(r, &req); err != nil {
		errors.Write(w, r, err)
		return
	}

	env, err := h.environments.Update(r.Context(), scopeFrom(r).BranchID, param(r, "id"), req)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, env)
}

func (h *EnvironmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.environments.Delete(r.Context(), scopeFrom(r).BranchID, param(r, "id")); err != nil {
		errors.Write(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
