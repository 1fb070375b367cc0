package order

import (
	"time"

	"github.com/google/uuid"
)

// Status is the fulfillment lifecycle state of an order. Transitions past
// pending/paid are owned by fulfillment and never touch monetary fields.
type Status string

const (
	StatusPending    Status = "pending"
	StatusPaid       Status = "paid"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
	StatusRefunded   Status = "refunded"
)

// PaymentStatus tracks settlement of the payable total.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

// Method is the payment method chosen at checkout.
type Method string

const (
	MethodGateway Method = "gateway"
	MethodCOD     Method = "cod"
	MethodWallet  Method = "wallet"
)

// Valid reports whether the method is one the checkout engine accepts.
func (m Method) Valid() bool {
	switch m {
	case MethodGateway, MethodCOD, MethodWallet:
		return true
	}
	return false
}

// GatewayMeta carries the opaque gateway order handle the client uses to
// complete payment in-browser.
type GatewayMeta struct {
	GatewayOrderID string `json:"gateway_order_id"`
	KeyID          string `json:"key_id"`
}

// CodMeta marks a cash-on-delivery order; it carries no settlement handle.
type CodMeta struct{}

// WalletMeta marks an order fully settled from the wallet balance.
type WalletMeta struct{}

// PaymentMeta is a tagged union keyed by payment method: exactly one branch
// is set, matching the order's Method.
type PaymentMeta struct {
	Gateway *GatewayMeta `json:"gateway,omitempty"`
	Cod     *CodMeta     `json:"cod,omitempty"`
	Wallet  *WalletMeta  `json:"wallet,omitempty"`
}

// Line is an immutable snapshot of a priced line item. UnitPrice and
// TaxRateBps come from the product snapshot taken at composition time.
type Line struct {
	ProductID  uuid.UUID         `json:"product_id"`
	Title      string            `json:"title"`
	Variant    map[string]string `json:"variant,omitempty"`
	Quantity   int32             `json:"quantity"`
	UnitPrice  int64             `json:"unit_price"`
	TaxRateBps int32             `json:"tax_rate_bps"`
	Total      int64             `json:"total"`
}

// Address is the delivery or billing address snapshot stored on the order.
type Address struct {
	ReceiverName string `json:"receiver_name"`
	Phone        string `json:"phone"`
	Country      string `json:"country"`
	Province     string `json:"province"`
	City         string `json:"city"`
	PostalCode   string `json:"postal_code"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2,omitempty"`
}

// Order is the settlement artifact produced once per checkout. Monetary
// fields are never re-priced after creation.
type Order struct {
	ID              uuid.UUID        `json:"id"`
	Number          string           `json:"order_number"`
	UserID          uuid.UUID        `json:"user_id"`
	SellerID        *uuid.UUID       `json:"seller_id,omitempty"`
	Items           []Line           `json:"items"`
	Subtotal        int64            `json:"subtotal"`
	TaxBreakdown    map[string]int64 `json:"tax_breakdown"`
	Taxes           int64            `json:"taxes"`
	Shipping        int64            `json:"shipping"`
	CouponID        *uuid.UUID       `json:"coupon_id,omitempty"`
	CouponDiscount  int64            `json:"coupon_discount"`
	WalletUsed      int64            `json:"wallet_used"`
	Total           int64            `json:"total"`
	Status          Status           `json:"status"`
	PaymentStatus   PaymentStatus    `json:"payment_status"`
	PaymentMethod   Method           `json:"payment_method"`
	PaymentMeta     PaymentMeta      `json:"payment_meta"`
	ShippingAddress Address          `json:"shipping_address"`
	BillingAddress  *Address         `json:"billing_address,omitempty"`
	GiftWrap        bool             `json:"gift_wrap"`
	GiftMessage     *string          `json:"gift_message,omitempty"`
	Notes           *string          `json:"notes,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}

// CheckInvariants verifies the settlement arithmetic every persisted order
// must satisfy. The composer calls this before the commit transaction.
func (o *Order) CheckInvariants() bool {
	if o.Total != o.Subtotal+o.Taxes+o.Shipping-o.CouponDiscount-o.WalletUsed {
		return false
	}
	if o.Total < 0 {
		return false
	}
	if o.WalletUsed > o.Subtotal+o.Taxes+o.Shipping-o.CouponDiscount {
		return false
	}
	return true
}
