package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

type chatRequest struct {
	Query string `json:"query"`
}

type chatResponse struct {
	Response string `json:"response"`
}

// Chat runs one assistant turn for the authenticated owner.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	ownerID := OwnerFromContext(r.Context())

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		Error(w, http.StatusBadRequest, "query cannot be empty")
		return
	}

	reply, err := h.runner.HandleChat(r.Context(), ownerID, req.Query)
	if err != nil {
		log.Error().Err(err).Int64("owner", ownerID).Msg("Chat turn failed")
		Error(w, http.StatusInternalServerError, "failed to process chat")
		return
	}

	JSON(w, http.StatusOK, chatResponse{Response: reply})
}
