package account

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-auth-go/internal/auth"
)

// Handler exposes HTTP endpoints for account operations.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(db *sqlx.DB, logger *zap.SugaredLogger, issuer *auth.Issuer) *Handler {
	svc := NewService(db, nil, nil, issuer)
	return &Handler{svc: svc, logger: logger}
}

// RegisterRequest request body for the register endpoint.
type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username,omitempty"`
	Password string `json:"password"`
}

// RegisterResponse echoes back the normalized email.
type RegisterResponse struct {
	Email string `json:"email"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	a, err := h.svc.Register(r.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.Is(err, ErrDuplicateEmail):
			h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email already registered"})
		default:
			h.logger.Errorw("register failed", "err", err)
			h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "registration failed"})
		}
		return
	}
	h.writeJSON(w, http.StatusOK, RegisterResponse{Email: a.Email})
}

// LoginRequest login payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the bearer token plus the claims snapshot the caller
// most often needs.
type LoginResponse struct {
	Token     string `json:"token"`
	Email     string `json:"email"`
	UserID    string `json:"user_id"`
	ExpiresIn int64  `json:"expires_in"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	token, claims, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrBadCredentials) {
			// identical body for unknown email and wrong password
			h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
			return
		}
		h.logger.Errorw("login failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "login failed"})
		return
	}
	h.writeJSON(w, http.StatusOK, LoginResponse{
		Token:     token,
		Email:     claims.Email,
		UserID:    claims.AccountID(),
		ExpiresIn: int64(h.svc.issuer.Lifetime().Seconds()),
	})
}

// ProfileResponse is the authenticated identity view.
type ProfileResponse struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthenticated"})
		return
	}
	a, err := h.svc.Profile(r.Context(), claims.AccountID())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "account not found"})
			return
		}
		h.logger.Errorw("profile lookup failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "profile lookup failed"})
		return
	}
	h.writeJSON(w, http.StatusOK, ProfileResponse{UserID: a.ID, Email: a.Email, Username: a.Username})
}

// ChangePasswordRequest payload for the change-password endpoint.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthenticated"})
		return
	}
	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	err := h.svc.ChangePassword(r.Context(), claims.AccountID(), req.CurrentPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.Is(err, ErrBadCredentials):
			h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		case errors.Is(err, ErrNotFound):
			h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "account not found"})
		default:
			h.logger.Errorw("change password failed", "err", err)
			h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "change password failed"})
		}
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Logout terminates the local session only. The issued token is stateless and
// stays valid to any holder until its natural expiry; there is no server-side
// denylist.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthenticated"})
		return
	}
	h.logger.Debugw("logout", "sub", claims.AccountID(), "jti", claims.ID)
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
