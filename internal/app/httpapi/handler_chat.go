package httpapi

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/R3E-Network/agent_studio/internal/app/services/chat"
	svcerrors "github.com/R3E-Network/agent_studio/internal/errors"
)

// maxChatBody caps chat request bodies.
const maxChatBody = 256 << 10

// chatStream accepts any well-formed JSON object; unknown fields are ignored
// so richer clients keep working against the stub.
func (h *handler) chatStream(w http.ResponseWriter, r *http.Request) error {
	id, err := userID(r)
	if err != nil {
		return err
	}
	defer r.Body.Close()
	var req chat.Request
	if err := json.NewDecoder(io.LimitReader(r.Body, maxChatBody)).Decode(&req); err != nil {
		return svcerrors.BadRequest("invalid request body")
	}

	text, err := h.app.Chat.Stream(r.Context(), id, req)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, text)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}
