package checkout

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-adorn/internal/catalog"
	"github.com/noah-isme/backend-adorn/internal/common"
	"github.com/noah-isme/backend-adorn/internal/coupon"
	"github.com/noah-isme/backend-adorn/internal/payment"
)

type Handler struct {
	Svc *Service
}

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	raw, ok := common.UserID(r.Context())
	if !ok || raw == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid user identity", nil)
		return
	}
	var payload Input
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	out, err := h.Svc.Create(r.Context(), userID, payload)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": out})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if err == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unknown error", nil)
		return
	}
	if appErr, ok := common.AsAppError(err); ok {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusBadRequest
		}
		common.JSONError(w, status, appErr.Code, appErr.Message, appErr.Details)
		return
	}
	switch {
	case errors.Is(err, ErrInvalidInput):
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", err.Error(), nil)
	case errors.Is(err, catalog.ErrProductNotFound):
		common.JSONError(w, http.StatusNotFound, "PRODUCT_NOT_FOUND", err.Error(), nil)
	case errors.Is(err, catalog.ErrInsufficientStock):
		var stockErr *catalog.StockError
		var details any
		if errors.As(err, &stockErr) {
			details = map[string]any{
				"product_id": stockErr.ProductID,
				"requested":  stockErr.Requested,
				"available":  stockErr.Available,
			}
		}
		common.JSONError(w, http.StatusConflict, "OUT_OF_STOCK", err.Error(), details)
	case errors.Is(err, coupon.ErrNotEligible),
		errors.Is(err, coupon.ErrInactive),
		errors.Is(err, coupon.ErrExpired),
		errors.Is(err, coupon.ErrMinimumSpendUnmet),
		errors.Is(err, coupon.ErrUsageLimitReached),
		errors.Is(err, coupon.ErrPerUserLimitReached):
		common.JSONError(w, http.StatusUnprocessableEntity, "COUPON_REJECTED", err.Error(), nil)
	case errors.Is(err, payment.ErrWalletShortfall):
		common.JSONError(w, http.StatusUnprocessableEntity, "WALLET_SHORTFALL", err.Error(), nil)
	case errors.Is(err, payment.ErrGatewayUnavailable):
		common.JSONError(w, http.StatusBadGateway, "GATEWAY_UNAVAILABLE", "payment gateway unavailable, try again", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout failed", nil)
	}
}
