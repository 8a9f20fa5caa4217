package httpapi

import (
	"net/http"

	"github.com/R3E-Network/agent_studio/internal/app/domain/agent"
)

func (h *handler) listAgents(w http.ResponseWriter, r *http.Request) error {
	id, err := userID(r)
	if err != nil {
		return err
	}
	page, err := pageRequest(r)
	if err != nil {
		return err
	}
	result, err := h.app.Agents.List(r.Context(), id, page)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, result)
}

func (h *handler) createAgent(w http.ResponseWriter, r *http.Request) error {
	id, err := userID(r)
	if err != nil {
		return err
	}
	var in agent.Input
	if err := decodeJSON(r, &in); err != nil {
		return err
	}
	created, err := h.app.Agents.Create(r.Context(), id, in)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, created)
}

func (h *handler) getAgent(w http.ResponseWriter, r *http.Request) error {
	id, err := userID(r)
	if err != nil {
		return err
	}
	a, err := h.app.Agents.Get(r.Context(), id, pathID(r))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, a)
}

func (h *handler) updateAgent(w http.ResponseWriter, r *http.Request) error {
	id, err := userID(r)
	if err != nil {
		return err
	}
	var patch agent.Patch
	if err := decodeJSON(r, &patch); err != nil {
		return err
	}
	updated, err := h.app.Agents.Update(r.Context(), id, pathID(r), patch)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, updated)
}

func (h *handler) deleteAgent(w http.ResponseWriter, r *http.Request) error {
	id, err := userID(r)
	if err != nil {
		return err
	}
	if err := h.app.Agents.Delete(r.Context(), id, pathID(r)); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}
