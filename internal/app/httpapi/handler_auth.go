package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/R3E-Network/agent_studio/internal/app/domain/account"
	"github.com/R3E-Network/agent_studio/internal/app/domain/apitoken"
	svcerrors "github.com/R3E-Network/agent_studio/internal/errors"
	"github.com/R3E-Network/agent_studio/internal/middleware"
)

type authResponse struct {
	Token string       `json:"token"`
	User  account.User `json:"user"`
}

func (h *handler) signUp(w http.ResponseWriter, r *http.Request) error {
	var payload struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		return err
	}
	user, err := h.app.Users.SignUp(r.Context(), payload.Name, payload.Email, payload.Password)
	if err != nil {
		return err
	}
	return h.startSession(w, r, user)
}

func (h *handler) signIn(w http.ResponseWriter, r *http.Request) error {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		return err
	}
	user, err := h.app.Users.Authenticate(r.Context(), payload.Email, payload.Password)
	if err != nil {
		h.log.LogSecurityEvent(r.Context(), "sign_in_failed", map[string]interface{}{
			"email": payload.Email,
			"ip":    middleware.ClientIP(r),
		})
		return err
	}
	return h.startSession(w, r, user)
}

func (h *handler) startSession(w http.ResponseWriter, r *http.Request, user account.User) error {
	token, sess, err := h.app.Sessions.Create(r.Context(), user.ID, middleware.ClientIP(r), r.UserAgent())
	if err != nil {
		return err
	}
	h.setSessionCookie(w, token, sess.ExpiresAt)
	return writeJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

func (h *handler) signOut(w http.ResponseWriter, r *http.Request) error {
	if token := h.sessionToken(r); token != "" {
		if err := h.app.Sessions.Revoke(r.Context(), token); err != nil {
			return err
		}
	}
	h.clearSessionCookie(w)
	return writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// getSession answers null instead of 401 so clients can poll it.
func (h *handler) getSession(w http.ResponseWriter, r *http.Request) error {
	if h.remote != nil {
		return writeJSON(w, http.StatusOK, h.remote.GetSession(r.Context(), r.Cookies()))
	}
	token := h.sessionToken(r)
	if token == "" {
		return writeJSON(w, http.StatusOK, nil)
	}
	auth, err := h.app.Sessions.Resolve(r.Context(), token)
	if err != nil {
		if svcerrors.HTTPStatus(err) >= http.StatusInternalServerError {
			return err
		}
		return writeJSON(w, http.StatusOK, nil)
	}
	return writeJSON(w, http.StatusOK, auth)
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) error {
	id, err := userID(r)
	if err != nil {
		return err
	}
	user, err := h.app.Users.Get(r.Context(), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, user)
}

func (h *handler) updateMe(w http.ResponseWriter, r *http.Request) error {
	id, err := userID(r)
	if err != nil {
		return err
	}
	var payload struct {
		Name  string `json:"name"`
		Image string `json:"image"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		return err
	}
	user, err := h.app.Users.UpdateProfile(r.Context(), id, payload.Name, payload.Image)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, user)
}

// sessionToken reads a session JWT from the cookie or a non-API-token bearer
// header.
func (h *handler) sessionToken(r *http.Request) string {
	if cookie, err := r.Cookie(h.cfg.CookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	header := r.Header.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		token := strings.TrimSpace(header[7:])
		if !strings.HasPrefix(token, apitoken.Prefix) {
			return token
		}
	}
	return ""
}

func (h *handler) setSessionCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
