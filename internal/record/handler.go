package record

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-auth-go/internal/auth"
)

// Handler exposes auth-gated HTTP endpoints for record CRUD.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(db *sqlx.DB, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: NewService(db, nil), logger: logger}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	recs, err := h.svc.List(r.Context(), q.Get("category"), limit, offset)
	if err != nil {
		h.logger.Errorw("list records failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "list failed"})
		return
	}
	h.writeJSON(w, http.StatusOK, recs)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "record not found"})
			return
		}
		h.logger.Errorw("get record failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "get failed"})
		return
	}
	h.writeJSON(w, http.StatusOK, rec)
}

// UpsertRequest is the shared payload for create and update.
type UpsertRequest struct {
	Category string          `json:"category"`
	Detail   json.RawMessage `json:"detail"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthenticated"})
		return
	}
	var req UpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	rec, err := h.svc.Create(r.Context(), claims.AccountID(), req.Category, req.Detail)
	if err != nil {
		h.logger.Errorw("create record failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "create failed"})
		return
	}
	h.writeJSON(w, http.StatusCreated, rec)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	rec, err := h.svc.Update(r.Context(), r.PathValue("id"), req.Category, req.Detail)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "record not found"})
		case errors.Is(err, ErrVersionConflict):
			h.writeJSON(w, http.StatusConflict, map[string]string{"error": "version conflict"})
		default:
			h.logger.Errorw("update record failed", "err", err)
			h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "update failed"})
		}
		return
	}
	h.writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), r.PathValue("id")); err != nil {
		if errors.Is(err, ErrNotFound) {
			h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "record not found"})
			return
		}
		h.logger.Errorw("delete record failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "delete failed"})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
