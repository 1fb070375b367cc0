package payment

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-adorn/internal/common"
	"github.com/noah-isme/backend-adorn/internal/obs"
)

// OrderMarker flips an order's payment status once the gateway confirms
// settlement. Keyed by the gateway order handle stored in payment_meta.
type OrderMarker interface {
	MarkOrderPaid(ctx context.Context, gatewayOrderID string) error
	MarkOrderPaymentFailed(ctx context.Context, gatewayOrderID string) error
}

// Webhook processes gateway payment confirmations. Deliveries are
// replay-protected in Redis and verified against the provider signature
// before any state changes.
type Webhook struct {
	Provider  Provider
	Orders    OrderMarker
	Replay    *redis.Client
	ReplayTTL time.Duration
	Logger    zerolog.Logger
}

// Handle is the HTTP endpoint for inbound gateway notifications.
func (wh Webhook) Handle(w http.ResponseWriter, r *http.Request) {
	if wh.Provider == nil || wh.Orders == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "webhook not configured", nil)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		wh.count("invalid")
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "read body", nil)
		return
	}

	result, err := wh.Provider.VerifyWebhook(r, body)
	if err != nil || !result.Valid {
		wh.count("rejected")
		common.JSONError(w, http.StatusBadRequest, "INVALID_SIGNATURE", "signature verification failed", nil)
		return
	}
	if strings.TrimSpace(result.GatewayOrderID) == "" {
		wh.count("rejected")
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "missing order reference", nil)
		return
	}

	if wh.Replay != nil {
		sum := sha256.Sum256(body)
		key := "webhook:payment:" + hex.EncodeToString(sum[:])
		ttl := wh.ReplayTTL
		if ttl <= 0 {
			ttl = 48 * time.Hour
		}
		fresh, err := wh.Replay.SetNX(r.Context(), key, "seen", ttl).Result()
		if err == nil && !fresh {
			wh.count("replay")
			common.JSON(w, http.StatusOK, map[string]any{"status": "duplicate"})
			return
		}
	}

	switch result.Status {
	case "PAID":
		err = wh.Orders.MarkOrderPaid(r.Context(), result.GatewayOrderID)
	case "FAILED":
		err = wh.Orders.MarkOrderPaymentFailed(r.Context(), result.GatewayOrderID)
	default:
		wh.count("ignored")
		common.JSON(w, http.StatusOK, map[string]any{"status": "ignored"})
		return
	}
	if err != nil {
		wh.count("error")
		wh.Logger.Error().Err(err).Str("gateway_order_id", result.GatewayOrderID).Msg("apply payment webhook")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "apply webhook", nil)
		return
	}
	wh.count("ok")
	common.JSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (wh Webhook) count(result string) {
	if obs.PaymentWebhookTotal != nil {
		obs.PaymentWebhookTotal.WithLabelValues("razorpay", result).Inc()
	}
}
