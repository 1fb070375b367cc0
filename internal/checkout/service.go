package checkout

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-adorn/internal/catalog"
	"github.com/noah-isme/backend-adorn/internal/coupon"
	"github.com/noah-isme/backend-adorn/internal/events"
	"github.com/noah-isme/backend-adorn/internal/lock"
	"github.com/noah-isme/backend-adorn/internal/obs"
	"github.com/noah-isme/backend-adorn/internal/order"
	"github.com/noah-isme/backend-adorn/internal/payment"
	"github.com/noah-isme/backend-adorn/internal/pricing"
	"github.com/noah-isme/backend-adorn/internal/wallet"
)

// ProductSource fetches authoritative product snapshots.
type ProductSource interface {
	Snapshots(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]catalog.Snapshot, error)
}

// CouponEvaluator validates a code and computes the bounded discount.
type CouponEvaluator interface {
	Evaluate(ctx context.Context, code string, userID uuid.UUID, subtotal int64) (coupon.Result, error)
}

// WalletAccount reads balances at composition time and applies the recorded
// draw after commit.
type WalletAccount interface {
	Balance(ctx context.Context, userID uuid.UUID) (int64, error)
	DebitForOrder(ctx context.Context, userID, orderID uuid.UUID, amount int64) error
}

// PaymentInitiator produces the payment directive for the payable total.
type PaymentInitiator interface {
	Initiate(ctx context.Context, method order.Method, total int64, orderNumber string) (payment.Directive, error)
}

// OrderStore is the single commitment point: stock reservation, the order
// row, and coupon usage commit or roll back together.
type OrderStore interface {
	CreateOrder(ctx context.Context, ord *order.Order, reserve []catalog.Request, couponUserCap int32) error
}

// CartStore clears the user's cart after a successful checkout.
type CartStore interface {
	ClearCart(ctx context.Context, userID uuid.UUID) error
}

// SettleEnqueuer schedules a retryable settlement task for an order whose
// inline post-commit side effects failed.
type SettleEnqueuer interface {
	EnqueueSettle(ctx context.Context, orderID uuid.UUID) error
}

// Service composes checkouts: it prices from fresh snapshots, evaluates the
// coupon and wallet draw, initiates payment, persists the order atomically,
// and runs the post-commit settlement.
type Service struct {
	Products ProductSource
	Coupons  CouponEvaluator
	Wallet   WalletAccount
	Payments PaymentInitiator
	Orders   OrderStore
	Carts    CartStore
	Tasks    SettleEnqueuer
	Events   *events.Bus
	Locker   *lock.Locker
	LockTTL  time.Duration
	Validate *validator.Validate
	Logger   zerolog.Logger

	FreeShippingThreshold int64
	ShippingFlatFee       int64
	CouponPerUserLimit    int32
}

// Create runs the full checkout pipeline under a per-user lock. Steps before
// order persistence are side-effect-free: any rejection leaves stock, wallet,
// and coupon state untouched.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, in Input) (Output, error) {
	if s == nil || s.Products == nil || s.Orders == nil || s.Payments == nil {
		return Output{}, errors.New("checkout service not configured")
	}
	if userID == uuid.Nil {
		return Output{}, errors.New("user is required for checkout")
	}
	if s.Validate != nil {
		if err := s.Validate.Struct(in); err != nil {
			return Output{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}
	method := order.Method(in.PaymentMethod)
	if !method.Valid() {
		return Output{}, fmt.Errorf("%w: unsupported payment method %q", ErrInvalidInput, in.PaymentMethod)
	}

	start := time.Now()
	var out Output
	run := func(ctx context.Context) error {
		var err error
		out, err = s.compose(ctx, userID, in, method)
		return err
	}
	var err error
	if s.Locker != nil {
		err = s.Locker.WithLock(ctx, "checkout:user:"+userID.String(), s.LockTTL, run)
	} else {
		err = run(ctx)
	}

	result := "success"
	if err != nil {
		result = "error"
	}
	if obs.CheckoutTotal != nil {
		obs.CheckoutTotal.WithLabelValues(string(method), result).Inc()
	}
	if obs.CheckoutDuration != nil {
		obs.CheckoutDuration.WithLabelValues(string(method)).Observe(float64(time.Since(start).Milliseconds()))
	}
	return out, err
}

func (s *Service) compose(ctx context.Context, userID uuid.UUID, in Input, method order.Method) (Output, error) {
	reserve, err := mergeRequests(in.Items)
	if err != nil {
		return Output{}, err
	}
	ids := make([]uuid.UUID, 0, len(reserve))
	for _, req := range reserve {
		ids = append(ids, req.ProductID)
	}
	snapshots, err := s.Products.Snapshots(ctx, ids)
	if err != nil {
		return Output{}, fmt.Errorf("load product snapshots: %w", err)
	}
	if err := catalog.Guard(reserve, snapshots); err != nil {
		return Output{}, err
	}

	lines := make([]pricing.Line, 0, len(in.Items))
	items := make([]order.Line, 0, len(in.Items))
	for _, it := range in.Items {
		snap := snapshots[uuid.MustParse(it.ProductID)]
		lines = append(lines, pricing.Line{Qty: it.Quantity, UnitPrice: snap.UnitPrice, TaxRateBps: snap.TaxRateBps})
		items = append(items, order.Line{
			ProductID:  snap.ID,
			Title:      snap.Title,
			Variant:    it.Variant,
			Quantity:   it.Quantity,
			UnitPrice:  snap.UnitPrice,
			TaxRateBps: snap.TaxRateBps,
			Total:      int64(it.Quantity) * snap.UnitPrice,
		})
	}
	summary := pricing.Price(lines)
	shipping := pricing.ShippingFee(summary.Subtotal, s.FreeShippingThreshold, s.ShippingFlatFee)

	var applied coupon.Result
	if s.Coupons != nil {
		applied, err = s.Coupons.Evaluate(ctx, in.CouponCode, userID, summary.Subtotal)
		if err != nil {
			return Output{}, err
		}
	}

	payable := summary.Subtotal + summary.Taxes + shipping - applied.Discount
	requested := in.WalletAmount
	if method == order.MethodWallet && requested == 0 {
		// wallet-only checkout draws whatever the payable total needs
		requested = payable
	}
	var walletUsed int64
	if requested > 0 && s.Wallet != nil {
		balance, err := s.Wallet.Balance(ctx, userID)
		if err != nil {
			return Output{}, fmt.Errorf("read wallet balance: %w", err)
		}
		walletUsed = wallet.Settle(requested, balance, payable)
	}
	total := pricing.Total(summary.Subtotal, summary.Taxes, shipping, applied.Discount, walletUsed)

	ord := order.Order{
		ID:              uuid.New(),
		Number:          newOrderNumber(time.Now()),
		UserID:          userID,
		SellerID:        singleSeller(items, snapshots),
		Items:           items,
		Subtotal:        summary.Subtotal,
		TaxBreakdown:    breakdownKeys(summary.TaxBreakdown),
		Taxes:           summary.Taxes,
		Shipping:        shipping,
		CouponDiscount:  applied.Discount,
		WalletUsed:      walletUsed,
		Total:           total,
		PaymentMethod:   method,
		ShippingAddress: toAddress(in.ShippingAddress),
		GiftWrap:        in.GiftWrap,
		GiftMessage:     in.GiftMessage,
		Notes:           in.Notes,
	}
	if applied.Applied() {
		id := applied.CouponID
		ord.CouponID = &id
	}
	if in.BillingAddress != nil {
		addr := toAddress(*in.BillingAddress)
		ord.BillingAddress = &addr
	}

	directive, err := s.Payments.Initiate(ctx, method, total, ord.Number)
	if err != nil {
		return Output{}, err
	}
	ord.PaymentStatus = directive.Status
	ord.PaymentMeta = directive.Meta
	ord.Status = order.StatusPending
	if directive.Status == order.PaymentPaid {
		ord.Status = order.StatusPaid
	}
	if !ord.CheckInvariants() {
		return Output{}, fmt.Errorf("settlement arithmetic violated for order %s", ord.Number)
	}

	userCap := applied.PerUserMax
	if userCap <= 0 {
		userCap = s.CouponPerUserLimit
	}
	if err := s.Orders.CreateOrder(ctx, &ord, reserve, userCap); err != nil {
		return Output{}, err
	}

	if s.Events != nil {
		if _, err := s.Events.Emit(ctx, events.TopicOrderCreated, ord.ID, map[string]any{
			"orderNumber": ord.Number,
			"userId":      userID.String(),
			"total":       ord.Total,
			"method":      string(method),
		}); err != nil {
			s.Logger.Error().Err(err).Str("order", ord.Number).Msg("emit order created event")
		}
	}

	if err := s.Finalize(ctx, ord); err != nil {
		s.Logger.Warn().Err(err).Str("order", ord.Number).Msg("inline settlement failed, scheduling retry")
		if s.Tasks != nil {
			if enqErr := s.Tasks.EnqueueSettle(ctx, ord.ID); enqErr != nil {
				s.Logger.Error().Err(enqErr).Str("order", ord.Number).Msg("enqueue settlement task")
			}
		}
	}

	return Output{Order: ord, Payment: paymentInfo(ord)}, nil
}

// Finalize runs the idempotent post-commit side effects: the wallet debit and
// the cart clear. A wallet short at debit time is not retryable; the order is
// flagged for reconciliation and settlement continues.
func (s *Service) Finalize(ctx context.Context, ord order.Order) error {
	if ord.WalletUsed > 0 && s.Wallet != nil {
		err := s.Wallet.DebitForOrder(ctx, ord.UserID, ord.ID, ord.WalletUsed)
		switch {
		case errors.Is(err, wallet.ErrInsufficientBalance):
			s.Logger.Warn().Str("order", ord.Number).Int64("wallet_used", ord.WalletUsed).
				Msg("wallet balance short at debit time, order flagged for reconciliation")
			if obs.SettlementReconciliation != nil {
				obs.SettlementReconciliation.Inc()
			}
			settleStep("wallet_debit", "reconcile")
		case err != nil:
			settleStep("wallet_debit", "error")
			return err
		default:
			settleStep("wallet_debit", "success")
		}
	}
	if s.Carts != nil {
		if err := s.Carts.ClearCart(ctx, ord.UserID); err != nil {
			settleStep("cart_clear", "error")
			return err
		}
		settleStep("cart_clear", "success")
	}
	if ord.PaymentStatus == order.PaymentPaid && s.Events != nil {
		if _, err := s.Events.Emit(ctx, events.TopicOrderPaid, ord.ID, map[string]any{
			"orderNumber": ord.Number,
			"total":       ord.Total,
		}); err != nil {
			s.Logger.Error().Err(err).Str("order", ord.Number).Msg("emit order paid event")
		}
	}
	return nil
}

func settleStep(step, result string) {
	if obs.SettlementTotal != nil {
		obs.SettlementTotal.WithLabelValues(step, result).Inc()
	}
}

func paymentInfo(ord order.Order) PaymentInfo {
	info := PaymentInfo{Status: string(ord.PaymentStatus)}
	if ord.PaymentMeta.Gateway != nil {
		info.GatewayOrderID = ord.PaymentMeta.Gateway.GatewayOrderID
		info.KeyID = ord.PaymentMeta.Gateway.KeyID
	}
	return info
}

// mergeRequests folds duplicate product lines into one reservation each so
// the conditional stock decrement sees the combined quantity.
func mergeRequests(items []InputLine) ([]catalog.Request, error) {
	index := make(map[uuid.UUID]int, len(items))
	out := make([]catalog.Request, 0, len(items))
	for _, it := range items {
		id, err := uuid.Parse(it.ProductID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid product id %q", ErrInvalidInput, it.ProductID)
		}
		if pos, ok := index[id]; ok {
			out[pos].Quantity += it.Quantity
			continue
		}
		index[id] = len(out)
		out = append(out, catalog.Request{ProductID: id, Quantity: it.Quantity})
	}
	return out, nil
}

func singleSeller(items []order.Line, snapshots map[uuid.UUID]catalog.Snapshot) *uuid.UUID {
	var seller uuid.UUID
	for i, it := range items {
		snap := snapshots[it.ProductID]
		if i == 0 {
			seller = snap.SellerID
			continue
		}
		if snap.SellerID != seller {
			return nil
		}
	}
	if seller == uuid.Nil {
		return nil
	}
	return &seller
}

func breakdownKeys(in map[int32]pricing.Money) map[string]int64 {
	out := make(map[string]int64, len(in))
	for bps, amount := range in {
		out[strconv.Itoa(int(bps))] = amount
	}
	return out
}

func newOrderNumber(now time.Time) string {
	var buf [5]byte
	_, _ = rand.Read(buf[:])
	return fmt.Sprintf("ADN-%s-%s", now.Format("20060102"), strings.ToUpper(hex.EncodeToString(buf[:])))
}
