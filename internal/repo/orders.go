package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-adorn/internal/catalog"
	"github.com/noah-isme/backend-adorn/internal/coupon"
	"github.com/noah-isme/backend-adorn/internal/order"
)

// Orders persists and reads settlement artifacts. Creation is the single
// commitment point of a checkout: stock reservation, the order row, and the
// coupon usage record commit or roll back together.
type Orders struct {
	Pool *pgxpool.Pool
}

// CreateOrder reserves stock with an atomic conditional decrement per line,
// inserts the order row, and records coupon usage guarded by the per-user
// cap, all in one transaction. Zero rows affected on the decrement or the
// guarded insert abort the whole checkout cleanly.
func (r Orders) CreateOrder(ctx context.Context, ord *order.Order, reserve []catalog.Request, couponUserCap int32) error {
	if ord == nil {
		return fmt.Errorf("orders: nil order")
	}
	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	for _, line := range reserve {
		tag, err := tx.Exec(ctx, `
			UPDATE products
			SET stock = stock - $2, updated_at = now()
			WHERE id = $1 AND stock >= $2`, line.ProductID, line.Quantity)
		if err != nil {
			return fmt.Errorf("reserve stock: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return &catalog.StockError{ProductID: line.ProductID, Requested: line.Quantity}
		}
	}

	items, err := json.Marshal(ord.Items)
	if err != nil {
		return fmt.Errorf("encode order items: %w", err)
	}
	breakdown, err := json.Marshal(ord.TaxBreakdown)
	if err != nil {
		return fmt.Errorf("encode tax breakdown: %w", err)
	}
	meta, err := json.Marshal(ord.PaymentMeta)
	if err != nil {
		return fmt.Errorf("encode payment meta: %w", err)
	}
	shipAddr, err := json.Marshal(ord.ShippingAddress)
	if err != nil {
		return fmt.Errorf("encode shipping address: %w", err)
	}
	var billAddr []byte
	if ord.BillingAddress != nil {
		billAddr, err = json.Marshal(ord.BillingAddress)
		if err != nil {
			return fmt.Errorf("encode billing address: %w", err)
		}
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO orders (
			id, order_number, user_id, seller_id, items,
			subtotal, tax_breakdown, taxes, shipping,
			coupon_id, coupon_discount, wallet_used, total,
			status, payment_status, payment_method, payment_meta,
			shipping_address, billing_address, gift_wrap, gift_message, notes
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, $12, $13,
			$14, $15, $16, $17,
			$18, $19, $20, $21, $22
		)
		RETURNING created_at`,
		ord.ID, ord.Number, ord.UserID, ord.SellerID, items,
		ord.Subtotal, breakdown, ord.Taxes, ord.Shipping,
		ord.CouponID, ord.CouponDiscount, ord.WalletUsed, ord.Total,
		ord.Status, ord.PaymentStatus, ord.PaymentMethod, meta,
		shipAddr, billAddr, ord.GiftWrap, ord.GiftMessage, ord.Notes,
	).Scan(&ord.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	if ord.CouponID != nil {
		// both caps are enforced at write time; the conditional update and
		// the count guard close the read-then-write race between
		// concurrent checkouts holding the same evaluation result
		tag, err := tx.Exec(ctx, `
			UPDATE coupons
			SET used_count = used_count + 1
			WHERE id = $1 AND (usage_limit IS NULL OR used_count < usage_limit)`, ord.CouponID)
		if err != nil {
			return fmt.Errorf("increase coupon used count: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return coupon.ErrUsageLimitReached
		}
		tag, err = tx.Exec(ctx, `
			INSERT INTO coupon_usages (coupon_id, user_id, order_id, discount_amount)
			SELECT $1, $2, $3, $4
			WHERE (
				SELECT count(*) FROM coupon_usages
				WHERE coupon_id = $1 AND user_id = $2
			) < $5`,
			ord.CouponID, ord.UserID, ord.ID, ord.CouponDiscount, couponUserCap)
		if err != nil {
			return fmt.Errorf("record coupon usage: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return coupon.ErrPerUserLimitReached
		}
	}

	return tx.Commit(ctx)
}

const orderColumns = `
	id, order_number, user_id, seller_id, items,
	subtotal, tax_breakdown, taxes, shipping,
	coupon_id, coupon_discount, wallet_used, total,
	status, payment_status, payment_method, payment_meta,
	shipping_address, billing_address, gift_wrap, gift_message, notes, created_at`

// GetOrderByID returns an order regardless of owner. Used by the settlement
// worker.
func (r Orders) GetOrderByID(ctx context.Context, id uuid.UUID) (order.Order, error) {
	row := r.Pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	return scanOrder(row)
}

// GetOrderForUser returns an order only when it belongs to the user.
func (r Orders) GetOrderForUser(ctx context.Context, id, userID uuid.UUID) (order.Order, error) {
	row := r.Pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 AND user_id = $2`, id, userID)
	return scanOrder(row)
}

// ListOrdersByUser returns the user's orders, newest first.
func (r Orders) ListOrdersByUser(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]order.Order, error) {
	rows, err := r.Pool.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var out []order.Order
	for rows.Next() {
		ord, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ord)
	}
	return out, rows.Err()
}

// MarkOrderPaid flips payment status for the order holding the gateway
// handle. Status transitions past pending stay with fulfillment; only the
// payment fields move here.
func (r Orders) MarkOrderPaid(ctx context.Context, gatewayOrderID string) error {
	_, err := r.Pool.Exec(ctx, `
		UPDATE orders
		SET payment_status = $2, status = $3
		WHERE payment_meta->'gateway'->>'gateway_order_id' = $1
		  AND payment_status = $4`,
		gatewayOrderID, order.PaymentPaid, order.StatusPaid, order.PaymentPending)
	return err
}

// MarkOrderPaymentFailed records a failed gateway settlement.
func (r Orders) MarkOrderPaymentFailed(ctx context.Context, gatewayOrderID string) error {
	_, err := r.Pool.Exec(ctx, `
		UPDATE orders
		SET payment_status = $2
		WHERE payment_meta->'gateway'->>'gateway_order_id' = $1
		  AND payment_status = $3`,
		gatewayOrderID, order.PaymentFailed, order.PaymentPending)
	return err
}

func scanOrder(row pgx.Row) (order.Order, error) {
	var (
		ord       order.Order
		items     []byte
		breakdown []byte
		meta      []byte
		shipAddr  []byte
		billAddr  []byte
	)
	err := row.Scan(
		&ord.ID, &ord.Number, &ord.UserID, &ord.SellerID, &items,
		&ord.Subtotal, &breakdown, &ord.Taxes, &ord.Shipping,
		&ord.CouponID, &ord.CouponDiscount, &ord.WalletUsed, &ord.Total,
		&ord.Status, &ord.PaymentStatus, &ord.PaymentMethod, &meta,
		&shipAddr, &billAddr, &ord.GiftWrap, &ord.GiftMessage, &ord.Notes, &ord.CreatedAt,
	)
	if err != nil {
		return order.Order{}, err
	}
	if err := json.Unmarshal(items, &ord.Items); err != nil {
		return order.Order{}, fmt.Errorf("decode order items: %w", err)
	}
	if err := json.Unmarshal(breakdown, &ord.TaxBreakdown); err != nil {
		return order.Order{}, fmt.Errorf("decode tax breakdown: %w", err)
	}
	if err := json.Unmarshal(meta, &ord.PaymentMeta); err != nil {
		return order.Order{}, fmt.Errorf("decode payment meta: %w", err)
	}
	if err := json.Unmarshal(shipAddr, &ord.ShippingAddress); err != nil {
		return order.Order{}, fmt.Errorf("decode shipping address: %w", err)
	}
	if len(billAddr) > 0 {
		ord.BillingAddress = &order.Address{}
		if err := json.Unmarshal(billAddr, ord.BillingAddress); err != nil {
			return order.Order{}, fmt.Errorf("decode billing address: %w", err)
		}
	}
	return ord, nil
}
