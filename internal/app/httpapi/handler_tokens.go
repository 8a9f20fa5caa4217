package httpapi

import (
	"net/http"
	"time"

	svcerrors "github.com/R3E-Network/agent_studio/internal/errors"
)

// maxTokenDays bounds expiresInDays to ten years.
const maxTokenDays = 3650

func (h *handler) createToken(w http.ResponseWriter, r *http.Request) error {
	id, err := userID(r)
	if err != nil {
		return err
	}
	var payload struct {
		Name          string `json:"name"`
		ExpiresInDays *int   `json:"expiresInDays"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		return err
	}
	var expiresIn *time.Duration
	if payload.ExpiresInDays != nil {
		days := *payload.ExpiresInDays
		if days < 1 || days > maxTokenDays {
			return svcerrors.Validation("expiresInDays", "expiresInDays must be between 1 and 3650")
		}
		d := time.Duration(days) * 24 * time.Hour
		expiresIn = &d
	}
	issued, err := h.app.APITokens.Create(r.Context(), id, payload.Name, expiresIn)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, issued)
}

func (h *handler) listTokens(w http.ResponseWriter, r *http.Request) error {
	id, err := userID(r)
	if err != nil {
		return err
	}
	tokens, err := h.app.APITokens.List(r.Context(), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]interface{}{"data": tokens})
}

func (h *handler) revokeToken(w http.ResponseWriter, r *http.Request) error {
	id, err := userID(r)
	if err != nil {
		return err
	}
	if err := h.app.APITokens.Revoke(r.Context(), id, pathID(r)); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}
