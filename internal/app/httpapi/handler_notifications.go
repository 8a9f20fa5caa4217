package httpapi

import (
	"net/http"

	"github.com/R3E-Network/agent_studio/internal/app/services/notifications"
)

func (h *handler) listNotifications(w http.ResponseWriter, r *http.Request) error {
	id, err := userID(r)
	if err != nil {
		return err
	}
	page, err := pageRequest(r)
	if err != nil {
		return err
	}
	result, err := h.app.Notifications.List(r.Context(), id, notifications.ListQuery{
		Page:       page.Page,
		Limit:      page.Limit,
		UnreadOnly: queryBool(r.URL.Query().Get("unread")),
	})
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, result)
}

func (h *handler) unreadCount(w http.ResponseWriter, r *http.Request) error {
	id, err := userID(r)
	if err != nil {
		return err
	}
	count, err := h.app.Notifications.UnreadCount(r.Context(), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

func (h *handler) markRead(w http.ResponseWriter, r *http.Request) error {
	id, err := userID(r)
	if err != nil {
		return err
	}
	n, err := h.app.Notifications.MarkRead(r.Context(), id, pathID(r))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, n)
}

func (h *handler) markAllRead(w http.ResponseWriter, r *http.Request) error {
	id, err := userID(r)
	if err != nil {
		return err
	}
	updated, err := h.app.Notifications.MarkAllRead(r.Context(), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]int64{"updated": updated})
}
