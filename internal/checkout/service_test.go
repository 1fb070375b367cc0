package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-adorn/internal/catalog"
	"github.com/noah-isme/backend-adorn/internal/coupon"
	"github.com/noah-isme/backend-adorn/internal/order"
	"github.com/noah-isme/backend-adorn/internal/payment"
	"github.com/noah-isme/backend-adorn/internal/wallet"
)

type stubProducts struct {
	snaps map[uuid.UUID]catalog.Snapshot
	err   error
}

func (s stubProducts) Snapshots(_ context.Context, _ []uuid.UUID) (map[uuid.UUID]catalog.Snapshot, error) {
	return s.snaps, s.err
}

type stubCoupons struct {
	result      coupon.Result
	err         error
	gotSubtotal int64
}

func (s *stubCoupons) Evaluate(_ context.Context, code string, _ uuid.UUID, subtotal int64) (coupon.Result, error) {
	s.gotSubtotal = subtotal
	if code == "" {
		return coupon.Result{}, nil
	}
	return s.result, s.err
}

type stubWallet struct {
	balance  int64
	debitErr error
	debits   []int64
}

func (s *stubWallet) Balance(_ context.Context, _ uuid.UUID) (int64, error) {
	return s.balance, nil
}

func (s *stubWallet) DebitForOrder(_ context.Context, _, _ uuid.UUID, amount int64) error {
	if s.debitErr != nil {
		return s.debitErr
	}
	s.debits = append(s.debits, amount)
	return nil
}

type stubPayments struct {
	directive payment.Directive
	err       error
	gotTotal  int64
	gotMethod order.Method
}

func (s *stubPayments) Initiate(_ context.Context, method order.Method, total int64, _ string) (payment.Directive, error) {
	s.gotMethod = method
	s.gotTotal = total
	if s.err != nil {
		return payment.Directive{}, s.err
	}
	if method == order.MethodWallet && total != 0 {
		return payment.Directive{}, payment.ErrWalletShortfall
	}
	if total == 0 {
		return payment.Directive{Status: order.PaymentPaid, Meta: order.PaymentMeta{Wallet: &order.WalletMeta{}}}, nil
	}
	return s.directive, nil
}

type stubOrders struct {
	created *order.Order
	reserve []catalog.Request
	userCap int32
	err     error
}

func (s *stubOrders) CreateOrder(_ context.Context, ord *order.Order, reserve []catalog.Request, couponUserCap int32) error {
	if s.err != nil {
		return s.err
	}
	s.created = ord
	s.reserve = reserve
	s.userCap = couponUserCap
	return nil
}

type stubCarts struct {
	cleared int
	err     error
}

func (s *stubCarts) ClearCart(_ context.Context, _ uuid.UUID) error {
	if s.err != nil {
		return s.err
	}
	s.cleared++
	return nil
}

type stubTasks struct {
	enqueued []uuid.UUID
}

func (s *stubTasks) EnqueueSettle(_ context.Context, orderID uuid.UUID) error {
	s.enqueued = append(s.enqueued, orderID)
	return nil
}

func gatewayDirective() payment.Directive {
	return payment.Directive{
		Status: order.PaymentPending,
		Meta:   order.PaymentMeta{Gateway: &order.GatewayMeta{GatewayOrderID: "order_abc", KeyID: "key"}},
	}
}

func newService(products stubProducts, coupons *stubCoupons, wallets *stubWallet, payments *stubPayments, orders *stubOrders, carts *stubCarts, tasks *stubTasks) *Service {
	return &Service{
		Products:              products,
		Coupons:               coupons,
		Wallet:                wallets,
		Payments:              payments,
		Orders:                orders,
		Carts:                 carts,
		Tasks:                 tasks,
		Validate:              validator.New(),
		Logger:                zerolog.Nop(),
		FreeShippingThreshold: 100_000,
		ShippingFlatFee:       9_900,
		CouponPerUserLimit:    1,
	}
}

func snapshotFor(id uuid.UUID, price int64, taxBps, stock int32) map[uuid.UUID]catalog.Snapshot {
	return map[uuid.UUID]catalog.Snapshot{
		id: {ID: id, Title: "Silver Anklet", UnitPrice: price, TaxRateBps: taxBps, SellerID: uuid.New(), AvailableStock: stock},
	}
}

func baseInput(productID uuid.UUID, qty int32) Input {
	return Input{
		Items:         []InputLine{{ProductID: productID.String(), Quantity: qty}},
		PaymentMethod: "gateway",
		ShippingAddress: Addr{
			ReceiverName: "Asha Rao",
			Phone:        "+919800000000",
			Country:      "IN",
			City:         "Bengaluru",
			PostalCode:   "560001",
			AddressLine1: "14 Residency Rd",
		},
	}
}

func TestCreateComposesGatewayOrder(t *testing.T) {
	productID := uuid.New()
	products := stubProducts{snaps: snapshotFor(productID, 100_000, 500, 10)}
	payments := &stubPayments{directive: gatewayDirective()}
	orders := &stubOrders{}
	carts := &stubCarts{}
	svc := newService(products, &stubCoupons{}, &stubWallet{}, payments, orders, carts, &stubTasks{})

	out, err := svc.Create(context.Background(), uuid.New(), baseInput(productID, 2))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	ord := out.Order
	if ord.Subtotal != 200_000 || ord.Taxes != 10_000 || ord.Shipping != 0 {
		t.Fatalf("unexpected pricing: subtotal=%d taxes=%d shipping=%d", ord.Subtotal, ord.Taxes, ord.Shipping)
	}
	if ord.Total != 210_000 {
		t.Fatalf("total = %d, want 210000", ord.Total)
	}
	if ord.TaxBreakdown["500"] != 10_000 {
		t.Fatalf("tax breakdown = %v", ord.TaxBreakdown)
	}
	if payments.gotTotal != 210_000 {
		t.Fatalf("gateway asked to collect %d", payments.gotTotal)
	}
	if orders.created == nil || len(orders.reserve) != 1 || orders.reserve[0].Quantity != 2 {
		t.Fatalf("unexpected reservation: %+v", orders.reserve)
	}
	if ord.PaymentStatus != order.PaymentPending || ord.Status != order.StatusPending {
		t.Fatalf("unexpected statuses: %s/%s", ord.Status, ord.PaymentStatus)
	}
	if out.Payment.GatewayOrderID != "order_abc" || out.Payment.KeyID != "key" {
		t.Fatalf("payment info not surfaced: %+v", out.Payment)
	}
	if carts.cleared != 1 {
		t.Fatalf("cart cleared %d times", carts.cleared)
	}
}

func TestCreateAppliesShippingBelowThreshold(t *testing.T) {
	productID := uuid.New()
	products := stubProducts{snaps: snapshotFor(productID, 40_000, 0, 5)}
	payments := &stubPayments{directive: gatewayDirective()}
	orders := &stubOrders{}
	svc := newService(products, &stubCoupons{}, &stubWallet{}, payments, orders, &stubCarts{}, &stubTasks{})

	out, err := svc.Create(context.Background(), uuid.New(), baseInput(productID, 1))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if out.Order.Shipping != 9_900 || out.Order.Total != 49_900 {
		t.Fatalf("shipping=%d total=%d", out.Order.Shipping, out.Order.Total)
	}
}

func TestCreateRejectsOutOfStock(t *testing.T) {
	productID := uuid.New()
	products := stubProducts{snaps: snapshotFor(productID, 100_000, 500, 1)}
	orders := &stubOrders{}
	svc := newService(products, &stubCoupons{}, &stubWallet{}, &stubPayments{directive: gatewayDirective()}, orders, &stubCarts{}, &stubTasks{})

	_, err := svc.Create(context.Background(), uuid.New(), baseInput(productID, 2))
	if !errors.Is(err, catalog.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	if orders.created != nil {
		t.Fatal("order must not be persisted on stock rejection")
	}
}

func TestCreateCouponDiscountFlowsIntoTotal(t *testing.T) {
	productID := uuid.New()
	couponID := uuid.New()
	products := stubProducts{snaps: snapshotFor(productID, 50_000, 0, 10)}
	coupons := &stubCoupons{result: coupon.Result{CouponID: couponID, Code: "FEST20", Discount: 15_000, PerUserMax: 2}}
	orders := &stubOrders{}
	svc := newService(products, coupons, &stubWallet{}, &stubPayments{directive: gatewayDirective()}, orders, &stubCarts{}, &stubTasks{})

	in := baseInput(productID, 2)
	in.CouponCode = "FEST20"
	out, err := svc.Create(context.Background(), uuid.New(), in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if coupons.gotSubtotal != 100_000 {
		t.Fatalf("coupon evaluated against %d", coupons.gotSubtotal)
	}
	if out.Order.CouponDiscount != 15_000 || out.Order.Total != 85_000 {
		t.Fatalf("discount=%d total=%d", out.Order.CouponDiscount, out.Order.Total)
	}
	if out.Order.CouponID == nil || *out.Order.CouponID != couponID {
		t.Fatalf("coupon id not recorded: %v", out.Order.CouponID)
	}
	if orders.userCap != 2 {
		t.Fatalf("per-user cap = %d, want the rule's own cap", orders.userCap)
	}
}

func TestCreateWalletFullySettles(t *testing.T) {
	productID := uuid.New()
	products := stubProducts{snaps: snapshotFor(productID, 100_000, 500, 10)}
	wallets := &stubWallet{balance: 500_000}
	orders := &stubOrders{}
	carts := &stubCarts{}
	svc := newService(products, &stubCoupons{}, wallets, &stubPayments{}, orders, carts, &stubTasks{})

	in := baseInput(productID, 2)
	in.PaymentMethod = "wallet"
	out, err := svc.Create(context.Background(), uuid.New(), in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if out.Order.WalletUsed != 210_000 || out.Order.Total != 0 {
		t.Fatalf("walletUsed=%d total=%d", out.Order.WalletUsed, out.Order.Total)
	}
	if out.Order.PaymentStatus != order.PaymentPaid || out.Order.Status != order.StatusPaid {
		t.Fatalf("unexpected statuses: %s/%s", out.Order.Status, out.Order.PaymentStatus)
	}
	if len(wallets.debits) != 1 || wallets.debits[0] != 210_000 {
		t.Fatalf("wallet debits = %v", wallets.debits)
	}
}

func TestCreateWalletShortfallAborts(t *testing.T) {
	productID := uuid.New()
	products := stubProducts{snaps: snapshotFor(productID, 100_000, 500, 10)}
	wallets := &stubWallet{balance: 50_000}
	orders := &stubOrders{}
	svc := newService(products, &stubCoupons{}, wallets, &stubPayments{}, orders, &stubCarts{}, &stubTasks{})

	in := baseInput(productID, 2)
	in.PaymentMethod = "wallet"
	_, err := svc.Create(context.Background(), uuid.New(), in)
	if !errors.Is(err, payment.ErrWalletShortfall) {
		t.Fatalf("expected wallet shortfall, got %v", err)
	}
	if orders.created != nil {
		t.Fatal("order must not be persisted on shortfall")
	}
}

func TestCreatePartialWalletDraw(t *testing.T) {
	productID := uuid.New()
	products := stubProducts{snaps: snapshotFor(productID, 100_000, 0, 10)}
	wallets := &stubWallet{balance: 80_000}
	orders := &stubOrders{}
	svc := newService(products, &stubCoupons{}, wallets, &stubPayments{directive: gatewayDirective()}, orders, &stubCarts{}, &stubTasks{})

	in := baseInput(productID, 2)
	in.WalletAmount = 70_000
	out, err := svc.Create(context.Background(), uuid.New(), in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	// draw bounded by request, balance, and payable
	if out.Order.WalletUsed != 70_000 || out.Order.Total != 130_000 {
		t.Fatalf("walletUsed=%d total=%d", out.Order.WalletUsed, out.Order.Total)
	}
}

func TestCreateGatewayDownAbortsClean(t *testing.T) {
	productID := uuid.New()
	products := stubProducts{snaps: snapshotFor(productID, 100_000, 500, 10)}
	orders := &stubOrders{}
	svc := newService(products, &stubCoupons{}, &stubWallet{}, &stubPayments{err: payment.ErrGatewayUnavailable}, orders, &stubCarts{}, &stubTasks{})

	_, err := svc.Create(context.Background(), uuid.New(), baseInput(productID, 1))
	if !errors.Is(err, payment.ErrGatewayUnavailable) {
		t.Fatalf("expected gateway unavailable, got %v", err)
	}
	if orders.created != nil {
		t.Fatal("order must not be persisted when the gateway is down")
	}
}

func TestCreateEnqueuesSettleWhenInlineFails(t *testing.T) {
	productID := uuid.New()
	products := stubProducts{snaps: snapshotFor(productID, 100_000, 500, 10)}
	orders := &stubOrders{}
	carts := &stubCarts{err: errors.New("redis down")}
	tasks := &stubTasks{}
	svc := newService(products, &stubCoupons{}, &stubWallet{}, &stubPayments{directive: gatewayDirective()}, orders, carts, tasks)

	out, err := svc.Create(context.Background(), uuid.New(), baseInput(productID, 1))
	if err != nil {
		t.Fatalf("checkout must succeed despite settlement failure: %v", err)
	}
	if len(tasks.enqueued) != 1 || tasks.enqueued[0] != out.Order.ID {
		t.Fatalf("expected settle task for %s, got %v", out.Order.ID, tasks.enqueued)
	}
}

func TestFinalizeWalletShortIsReconciledNotRetried(t *testing.T) {
	wallets := &stubWallet{debitErr: wallet.ErrInsufficientBalance}
	carts := &stubCarts{}
	svc := &Service{Wallet: wallets, Carts: carts, Logger: zerolog.Nop()}

	ord := order.Order{ID: uuid.New(), Number: "ADN-1", UserID: uuid.New(), WalletUsed: 10_000}
	if err := svc.Finalize(context.Background(), ord); err != nil {
		t.Fatalf("reconciliation case must not surface as retryable: %v", err)
	}
	if carts.cleared != 1 {
		t.Fatal("cart clear must still run after reconciliation")
	}
}

func TestCreateIgnoresClientUnitPrice(t *testing.T) {
	productID := uuid.New()
	products := stubProducts{snaps: snapshotFor(productID, 100_000, 0, 10)}
	orders := &stubOrders{}
	svc := newService(products, &stubCoupons{}, &stubWallet{}, &stubPayments{directive: gatewayDirective()}, orders, &stubCarts{}, &stubTasks{})

	in := baseInput(productID, 1)
	advisory := int64(1)
	in.Items[0].UnitPrice = &advisory
	out, err := svc.Create(context.Background(), uuid.New(), in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if out.Order.Subtotal != 100_000 {
		t.Fatalf("client price leaked into settlement: %d", out.Order.Subtotal)
	}
}
