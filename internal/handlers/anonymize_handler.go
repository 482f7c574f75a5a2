package handlers

import (
	"net/http"
	"strings"

	"github.com/dgrijalva/jwt-go"

	"wonmoreBack/internal/services"
)

type AnonymizeHandler struct {
	Service   *services.AccountService
	JWTSecret string
}

func NewAnonymizeHandler(s *services.AccountService, jwtSecret string) *AnonymizeHandler {
	return &AnonymizeHandler{Service: s, JWTSecret: jwtSecret}
}

// AnonymizeAccount handles POST /anonymize-account. The caller proves who
// they are with their own session JWT; the user id comes from the sub claim,
// never from the request body.
func (h *AnonymizeHandler) AnonymizeAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
		return
	}

	if err := h.Service.Anonymize(r.Context(), userID); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *AnonymizeHandler) callerID(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", false
	}
	raw := strings.TrimPrefix(auth, "Bearer ")

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(h.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return "", false
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", false
	}
	return sub, true
}
