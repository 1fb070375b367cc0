package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/noah-isme/backend-adorn/internal/resilience"
)

// Razorpay implements the Provider interface against the Razorpay Orders API.
// Order creation is a real network hop: failure to reach the gateway is fatal
// to the whole checkout, so the call carries an explicit timeout and no blind
// retry (order creation is not idempotent on the gateway side).
type Razorpay struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
	BaseURL       string
	HTTP          *resilience.HTTPClient
}

const razorpayDefaultBaseURL = "https://api.razorpay.com"

// CreateOrder opens a hosted order for the given amount, tagged with the
// internal order number as the receipt.
func (rz Razorpay) CreateOrder(ctx context.Context, req OrderRequest) (OrderResponse, error) {
	if strings.TrimSpace(req.Receipt) == "" {
		return OrderResponse{}, errors.New("receipt is required")
	}
	if req.Amount <= 0 {
		return OrderResponse{}, errors.New("amount must be positive")
	}
	if rz.HTTP == nil {
		return OrderResponse{}, errors.New("razorpay: http client not configured")
	}

	body, err := json.Marshal(map[string]any{
		"amount":   req.Amount,
		"currency": req.Currency,
		"receipt":  req.Receipt,
	})
	if err != nil {
		return OrderResponse{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, rz.host()+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return OrderResponse{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(rz.KeyID, rz.KeySecret)

	resp, err := rz.HTTP.Do(ctx, httpReq)
	if err != nil {
		return OrderResponse{}, fmt.Errorf("razorpay create order: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return OrderResponse{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return OrderResponse{}, fmt.Errorf("razorpay create order: status %d", resp.StatusCode)
	}
	var decoded struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return OrderResponse{}, fmt.Errorf("razorpay create order: decode: %w", err)
	}
	if strings.TrimSpace(decoded.ID) == "" {
		return OrderResponse{}, errors.New("razorpay create order: empty order id")
	}
	return OrderResponse{Provider: "razorpay", OrderID: decoded.ID}, nil
}

// VerifyWebhook validates the X-Razorpay-Signature header and normalises the
// event payload.
func (rz Razorpay) VerifyWebhook(r *http.Request, body []byte) (WebhookVerifyResult, error) {
	expected := rz.computeSignature(body)
	provided := strings.TrimSpace(r.Header.Get("X-Razorpay-Signature"))
	if expected == "" || provided == "" || !hmac.Equal([]byte(expected), []byte(provided)) {
		return WebhookVerifyResult{Valid: false, Err: errors.New("invalid signature")}, nil
	}

	var payload struct {
		Event   string `json:"event"`
		Payload struct {
			Payment struct {
				Entity struct {
					OrderID string `json:"order_id"`
					Amount  int64  `json:"amount"`
					Status  string `json:"status"`
				} `json:"entity"`
			} `json:"payment"`
			Order struct {
				Entity struct {
					Receipt string `json:"receipt"`
				} `json:"entity"`
			} `json:"order"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return WebhookVerifyResult{Valid: false, Err: err}, nil
	}

	entity := payload.Payload.Payment.Entity
	return WebhookVerifyResult{
		Valid:           true,
		GatewayOrderID:  entity.OrderID,
		Receipt:         payload.Payload.Order.Entity.Receipt,
		Amount:          entity.Amount,
		Status:          normaliseRazorpayStatus(payload.Event, entity.Status),
		ProviderPayload: body,
	}, nil
}

func (rz Razorpay) host() string {
	host := strings.TrimRight(strings.TrimSpace(rz.BaseURL), "/")
	if host == "" {
		return razorpayDefaultBaseURL
	}
	return host
}

func (rz Razorpay) computeSignature(body []byte) string {
	key := strings.TrimSpace(rz.WebhookSecret)
	if key == "" {
		return ""
	}
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func normaliseRazorpayStatus(event, status string) string {
	switch strings.ToLower(strings.TrimSpace(event)) {
	case "payment.captured", "order.paid":
		return "PAID"
	case "payment.failed":
		return "FAILED"
	}
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "captured":
		return "PAID"
	case "failed":
		return "FAILED"
	default:
		return "PENDING"
	}
}
