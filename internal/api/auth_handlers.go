package api

import (
	"encoding/json"
	"net/http"

	"github.com/example/minibar-selfservice/internal/auth"
)

// AuthHandlers handles the admin login flow.
type AuthHandlers struct {
	passwordHash string
	jwtService   *auth.JWTService
}

func NewAuthHandlers(passwordHash string, jwtService *auth.JWTService) *AuthHandlers {
	return &AuthHandlers{
		passwordHash: passwordHash,
		jwtService:   jwtService,
	}
}

// Login exchanges the admin password for a session token.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if h.passwordHash == "" || !auth.CheckPassword(req.Password, h.passwordHash) {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	token, expiresAt, err := h.jwtService.GenerateToken()
	if err != nil {
		http.Error(w, "failed to issue token", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "access_token",
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})

	respondJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"expires_at":   expiresAt,
	})
}
