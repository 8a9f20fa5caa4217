package httpapi

import "net/http"

func (h *handler) listTools(w http.ResponseWriter, r *http.Request) error {
	items, err := h.app.Tools.List(r.Context())
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]interface{}{"data": items})
}

func (h *handler) createTool(w http.ResponseWriter, r *http.Request) error {
	var payload struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		return err
	}
	created, err := h.app.Tools.Create(r.Context(), payload.Name, payload.Description)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, created)
}

func (h *handler) deleteTool(w http.ResponseWriter, r *http.Request) error {
	if err := h.app.Tools.Delete(r.Context(), pathID(r)); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}
