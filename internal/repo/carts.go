package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Carts clears server-side carts after a successful checkout.
type Carts struct {
	Pool *pgxpool.Pool
}

// ClearCart removes every cart item for the user. Clearing an already empty
// cart is a no-op, which keeps settlement retries safe.
func (r Carts) ClearCart(ctx context.Context, userID uuid.UUID) error {
	_, err := r.Pool.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
