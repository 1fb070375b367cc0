package checkout

import (
	"errors"

	"github.com/noah-isme/backend-adorn/internal/order"
)

// ErrInvalidInput wraps payload validation failures.
var ErrInvalidInput = errors.New("invalid checkout input")

// InputLine is a client-submitted line item. UnitPrice, when present, is the
// price the client saw; it is advisory only and never used for settlement.
type InputLine struct {
	ProductID string            `json:"product_id" validate:"required,uuid4"`
	Quantity  int32             `json:"quantity" validate:"required,gt=0,lte=100"`
	Variant   map[string]string `json:"variant,omitempty"`
	UnitPrice *int64            `json:"unit_price,omitempty"`
}

// Addr is the address shape accepted on the checkout payload.
type Addr struct {
	ReceiverName string `json:"receiver_name" validate:"required,max=120"`
	Phone        string `json:"phone" validate:"required,max=32"`
	Country      string `json:"country" validate:"required,max=64"`
	Province     string `json:"province" validate:"max=64"`
	City         string `json:"city" validate:"required,max=64"`
	PostalCode   string `json:"postal_code" validate:"required,max=16"`
	AddressLine1 string `json:"address_line1" validate:"required,max=240"`
	AddressLine2 string `json:"address_line2" validate:"max=240"`
}

// Input is the checkout request payload.
type Input struct {
	Items           []InputLine `json:"items" validate:"required,min=1,max=50,dive"`
	ShippingAddress Addr        `json:"shipping_address" validate:"required"`
	BillingAddress  *Addr       `json:"billing_address,omitempty"`
	PaymentMethod   string      `json:"payment_method" validate:"required,oneof=gateway cod wallet"`
	CouponCode      string      `json:"coupon_code" validate:"max=64"`
	WalletAmount    int64       `json:"wallet_amount" validate:"gte=0"`
	GiftWrap        bool        `json:"gift_wrap"`
	GiftMessage     *string     `json:"gift_message,omitempty" validate:"omitempty,max=500"`
	Notes           *string     `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

// PaymentInfo is what the client needs to complete payment after checkout.
type PaymentInfo struct {
	Status         string `json:"status"`
	GatewayOrderID string `json:"gateway_order_id,omitempty"`
	KeyID          string `json:"key_id,omitempty"`
}

// Output is the checkout response: the persisted order plus payment handles.
type Output struct {
	Order   order.Order `json:"order"`
	Payment PaymentInfo `json:"payment"`
}

func toAddress(a Addr) order.Address {
	return order.Address{
		ReceiverName: a.ReceiverName,
		Phone:        a.Phone,
		Country:      a.Country,
		Province:     a.Province,
		City:         a.City,
		PostalCode:   a.PostalCode,
		AddressLine1: a.AddressLine1,
		AddressLine2: a.AddressLine2,
	}
}
