package httpapi

import (
	"net/http"

	"github.com/R3E-Network/agent_studio/internal/app/domain/onboarding"
)

func (h *handler) getOnboarding(w http.ResponseWriter, r *http.Request) error {
	id, err := userID(r)
	if err != nil {
		return err
	}
	p, err := h.app.Onboarding.Get(r.Context(), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, p)
}

func (h *handler) saveOnboarding(w http.ResponseWriter, r *http.Request) error {
	id, err := userID(r)
	if err != nil {
		return err
	}
	var payload struct {
		Role        string `json:"role"`
		UseCase     string `json:"useCase"`
		CompanySize string `json:"companySize"`
		Referral    string `json:"referral"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		return err
	}
	saved, err := h.app.Onboarding.Save(r.Context(), id, onboarding.Profile{
		Role:        payload.Role,
		UseCase:     payload.UseCase,
		CompanySize: payload.CompanySize,
		Referral:    payload.Referral,
	})
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, saved)
}
