package handlers

import (
	"errors"
	"net/http"

	"twintrack/config"
	"twintrack/database"
	"twintrack/metrics"
	"twintrack/middleware"
)

type AuthHandler struct {
	config *config.Config
	store  *database.Store
}

func NewAuthHandler(cfg *config.Config, store *database.Store) *AuthHandler {
	return &AuthHandler{
		config: cfg,
		store:  store,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string   `json:"token"`
	ExpiresIn int      `json:"expiresIn"`
	UserID    uint     `json:"userId"`
	User      userView `json:"user"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	user, err := h.store.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			metrics.LoginAttempts.WithLabelValues("invalid").Inc()
			respond(w, http.StatusUnauthorized, nil, "invalid credentials")
			return
		}
		respondError(w, r, err)
		return
	}
	if user.Suspended {
		metrics.LoginAttempts.WithLabelValues("suspended").Inc()
		respond(w, http.StatusForbidden, nil, "account is suspended")
		return
	}

	token, err := middleware.GenerateToken(user, h.config.JWTExpiration)
	if err != nil {
		respondError(w, r, err)
		return
	}

	metrics.LoginAttempts.WithLabelValues("ok").Inc()
	respondOK(w, loginResponse{
		Token:     token,
		ExpiresIn: int(h.config.JWTExpiration.Seconds()),
		UserID:    user.ID,
		User:      newUserView(user),
	}, "logged in")
}

// Me returns the authenticated account.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	respondOK(w, newUserView(user), "")
}
