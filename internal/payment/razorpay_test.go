package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/noah-isme/backend-adorn/internal/resilience"
)

func newTestClient() *resilience.HTTPClient {
	return &resilience.HTTPClient{
		Client:      &http.Client{},
		MaxAttempts: 1,
		Timeout:     2 * time.Second,
	}
}

func TestCreateOrderSuccess(t *testing.T) {
	var gotAuth, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		buf, _ := io.ReadAll(r.Body)
		gotBody = string(buf)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"order_MxyzABC","status":"created"}`))
	}))
	defer srv.Close()

	rz := Razorpay{KeyID: "key", KeySecret: "secret", BaseURL: srv.URL, HTTP: newTestClient()}
	resp, err := rz.CreateOrder(context.Background(), OrderRequest{Amount: 210_000, Currency: "INR", Receipt: "ADN-1"})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if resp.OrderID != "order_MxyzABC" {
		t.Fatalf("unexpected order id %q", resp.OrderID)
	}
	if !strings.HasPrefix(gotAuth, "Basic ") {
		t.Fatalf("expected basic auth, got %q", gotAuth)
	}
	if !strings.Contains(gotBody, `"receipt":"ADN-1"`) {
		t.Fatalf("expected receipt in body, got %s", gotBody)
	}
}

func TestCreateOrderGatewayDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // immediately unreachable

	rz := Razorpay{KeyID: "key", KeySecret: "secret", BaseURL: srv.URL, HTTP: newTestClient()}
	if _, err := rz.CreateOrder(context.Background(), OrderRequest{Amount: 100, Currency: "INR", Receipt: "ADN-1"}); err == nil {
		t.Fatal("expected error for unreachable gateway")
	}
}

func TestCreateOrderRejectsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	rz := Razorpay{KeyID: "key", KeySecret: "secret", BaseURL: srv.URL, HTTP: newTestClient()}
	if _, err := rz.CreateOrder(context.Background(), OrderRequest{Amount: 100, Currency: "INR", Receipt: "ADN-1"}); err == nil {
		t.Fatal("expected error for 502 response")
	}
}

func TestVerifyWebhookSignature(t *testing.T) {
	secret := "whsec"
	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"order_id":"order_1","amount":210000,"status":"captured"}},"order":{"entity":{"receipt":"ADN-1"}}}}`)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	sig := hex.EncodeToString(mac.Sum(nil))

	rz := Razorpay{WebhookSecret: secret}
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment/razorpay", nil)
	req.Header.Set("X-Razorpay-Signature", sig)

	result, err := rz.VerifyWebhook(req, body)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !result.Valid {
		t.Fatalf("expected valid result, got %+v", result)
	}
	if result.GatewayOrderID != "order_1" || result.Status != "PAID" || result.Receipt != "ADN-1" {
		t.Fatalf("unexpected normalised result: %+v", result)
	}

	req.Header.Set("X-Razorpay-Signature", "deadbeef")
	result, _ = rz.VerifyWebhook(req, body)
	if result.Valid {
		t.Fatal("expected invalid result for bad signature")
	}
}
