package handlers

import (
	"encoding/json"
	"net/http"

	"wonmoreBack/internal/models"
	"wonmoreBack/internal/services"
)

type PushHandler struct {
	Service *services.PushService
}

func NewPushHandler(s *services.PushService) *PushHandler {
	return &PushHandler{Service: s}
}

// SendPush handles POST /send-push, invoked by a database trigger. An empty
// token list is a successful no-op.
func (h *PushHandler) SendPush(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil || h.Service.Client == nil {
		writeJSON(w, http.StatusNotImplemented, models.PushResponse{OK: false, Error: "push not configured"})
		return
	}

	var req models.PushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.PushResponse{OK: false, Error: "invalid json body"})
		return
	}

	writeJSON(w, http.StatusOK, h.Service.Send(r.Context(), req))
}
