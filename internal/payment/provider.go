package payment

import (
	"context"
	"net/http"
)

// OrderRequest captures the information required to open a gateway-hosted
// order with a provider. Amount is in minor units and Receipt carries the
// internal order number as the idempotency/receipt key.
type OrderRequest struct {
	Amount   int64
	Currency string
	Receipt  string
}

// OrderResponse is the minimal information returned by a provider when
// creating a hosted order.
type OrderResponse struct {
	Provider string
	OrderID  string
}

// WebhookVerifyResult contains the normalised data extracted from a webhook
// notification after signature verification.
type WebhookVerifyResult struct {
	Valid           bool
	GatewayOrderID  string
	Receipt         string
	Amount          int64
	Status          string
	ProviderPayload []byte
	Err             error
}

// Provider abstracts the operations required from an upstream payment gateway.
type Provider interface {
	CreateOrder(ctx context.Context, req OrderRequest) (OrderResponse, error)
	VerifyWebhook(r *http.Request, body []byte) (WebhookVerifyResult, error)
}
