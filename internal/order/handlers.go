package order

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/backend-adorn/internal/common"
)

// Querier captures the read operations required by the order handlers.
type Querier interface {
	GetOrderForUser(ctx context.Context, id, userID uuid.UUID) (Order, error)
	ListOrdersByUser(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]Order, error)
}

// Handler exposes owner-scoped order reads.
type Handler struct {
	Q Querier
}

// List returns the authenticated user's orders, newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}
	limit := queryInt(r, "limit", 20)
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}
	orders, err := h.Q.ListOrdersByUser(r.Context(), userID, int32(limit), int32(offset))
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "list orders", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": orders})
}

// Get returns one order when it belongs to the authenticated user.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "orderId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return
	}
	ord, err := h.Q.GetOrderForUser(r.Context(), id, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "get order", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": ord})
}

func authedUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw, ok := common.UserID(r.Context())
	if !ok || raw == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid user identity", nil)
		return uuid.Nil, false
	}
	return id, true
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
