package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/noah-isme/backend-adorn/internal/obs"
	"github.com/noah-isme/backend-adorn/internal/order"
)

// ErrGatewayUnavailable wraps transport failures talking to the gateway.
// Nothing has been persisted when it is returned, so the checkout aborts clean.
var ErrGatewayUnavailable = errors.New("payment gateway unavailable")

// ErrWalletShortfall is returned when the wallet method is chosen but the
// settled wallet draw does not cover the payable total.
var ErrWalletShortfall = errors.New("wallet balance does not cover the payable total")

// Directive is the outcome of payment initiation: the payment status the
// order is persisted with and the method-tagged metadata stored on it.
type Directive struct {
	Status order.PaymentStatus
	Meta   order.PaymentMeta
}

// Initiator branches by payment method to either create a gateway-hosted
// order, mark a zero-due order pre-paid, or leave it pending for cash on
// delivery. Terminal for this subsystem; later transitions belong to the
// payment webhook.
type Initiator struct {
	Provider Provider
	KeyID    string
	Currency string
}

// Initiate produces the payment directive for the computed total. The order
// number tags the gateway order as its receipt.
func (i *Initiator) Initiate(ctx context.Context, method order.Method, total int64, orderNumber string) (Directive, error) {
	switch method {
	case order.MethodGateway:
		if total == 0 {
			// non-cash value covered everything; no hosted order needed
			return Directive{Status: order.PaymentPaid, Meta: order.PaymentMeta{Wallet: &order.WalletMeta{}}}, nil
		}
		return i.initiateGateway(ctx, total, orderNumber)
	case order.MethodWallet:
		if total != 0 {
			return Directive{}, ErrWalletShortfall
		}
		return Directive{Status: order.PaymentPaid, Meta: order.PaymentMeta{Wallet: &order.WalletMeta{}}}, nil
	case order.MethodCOD:
		return Directive{Status: order.PaymentPending, Meta: order.PaymentMeta{Cod: &order.CodMeta{}}}, nil
	default:
		return Directive{}, fmt.Errorf("unsupported payment method %q", method)
	}
}

func (i *Initiator) initiateGateway(ctx context.Context, total int64, orderNumber string) (Directive, error) {
	if i.Provider == nil {
		return Directive{}, errors.New("payment provider not configured")
	}
	resp, err := i.Provider.CreateOrder(ctx, OrderRequest{
		Amount:   total,
		Currency: i.Currency,
		Receipt:  orderNumber,
	})
	result := "success"
	if err != nil {
		result = "error"
	}
	if obs.GatewayOrderTotal != nil {
		obs.GatewayOrderTotal.WithLabelValues(providerLabel(resp.Provider), result).Inc()
	}
	if err != nil {
		return Directive{}, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	return Directive{
		Status: order.PaymentPending,
		Meta: order.PaymentMeta{
			Gateway: &order.GatewayMeta{GatewayOrderID: resp.OrderID, KeyID: i.KeyID},
		},
	}, nil
}

func providerLabel(name string) string {
	if name == "" {
		return "unknown"
	}
	return name
}
