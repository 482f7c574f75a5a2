package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"wonmoreBack/internal/models"
	"wonmoreBack/internal/repositories"
	"wonmoreBack/internal/services"
)

type reconciler interface {
	Reconcile(ctx context.Context, req models.VerifyRequest) (models.VerifyResult, error)
}

type VerifyHandler struct {
	Service reconciler
}

func NewVerifyHandler(s reconciler) *VerifyHandler {
	return &VerifyHandler{Service: s}
}

// VerifySubscription handles POST /verify-subscription. Soft failures come
// back as 200 with ok=false; upstream store failures map to 502 and
// persistence failures to 500.
func (h *VerifyHandler) VerifySubscription(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "invalid json body"})
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "user_id required"})
		return
	}

	result, err := h.Service.Reconcile(r.Context(), req)
	if err != nil {
		status, payload := verifyErrorResponse(err)
		writeJSON(w, status, payload)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func verifyErrorResponse(err error) (int, map[string]any) {
	if errors.Is(err, services.ErrNoSubscriptionRow) {
		return http.StatusBadRequest, map[string]any{"ok": false, "error": err.Error()}
	}
	var storeErr *services.StoreError
	if errors.As(err, &storeErr) {
		return http.StatusBadGateway, map[string]any{"ok": false, "source": storeErr.Source, "error": err.Error()}
	}
	var supaErr *repositories.SupabaseError
	if errors.As(err, &supaErr) {
		return http.StatusInternalServerError, map[string]any{"ok": false, "source": "supabase", "error": err.Error()}
	}
	return http.StatusInternalServerError, map[string]any{"ok": false, "error": err.Error()}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
