package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrInsufficientBalance is returned when a conditional debit finds less
// balance than the order claims. The debit is bounded by the balance at debit
// time, not by the balance read during composition.
var ErrInsufficientBalance = errors.New("wallet balance insufficient at debit time")

// Direction of a ledger entry.
const (
	DirectionCredit = "credit"
	DirectionDebit  = "debit"
)

// ReferenceOrder tags ledger entries that settle an order.
const ReferenceOrder = "order"

// LedgerEntry is an append-only record of a wallet mutation. BalanceAfter is
// the running balance immediately after applying Amount in Direction.
type LedgerEntry struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	Direction     string
	Amount        int64
	BalanceAfter  int64
	ReferenceType string
	ReferenceID   uuid.UUID
	CreatedAt     time.Time
}

// Querier captures the database methods required by the wallet service.
type Querier interface {
	GetBalance(ctx context.Context, userID uuid.UUID) (int64, error)
	// DebitForReference atomically decrements the balance, bounded by the
	// balance at debit time, and appends the ledger entry in one transaction.
	// A repeated call for the same reference is a no-op reporting applied=false.
	DebitForReference(ctx context.Context, userID uuid.UUID, amount int64, refType string, refID uuid.UUID) (applied bool, err error)
}

// Service reads balances during composition and performs the post-commit
// debit. It never mutates a balance for an order that has not been persisted.
type Service struct {
	Q Querier
}

// Balance returns the user's current wallet balance in minor units.
func (s *Service) Balance(ctx context.Context, userID uuid.UUID) (int64, error) {
	if s == nil || s.Q == nil {
		return 0, errors.New("wallet service not configured")
	}
	return s.Q.GetBalance(ctx, userID)
}

// DebitForOrder applies the wallet draw recorded on an order. Safe to retry:
// the ledger uniqueness on (reference, direction) makes replays no-ops.
func (s *Service) DebitForOrder(ctx context.Context, userID, orderID uuid.UUID, amount int64) error {
	if s == nil || s.Q == nil {
		return errors.New("wallet service not configured")
	}
	if amount <= 0 {
		return nil
	}
	if _, err := s.Q.DebitForReference(ctx, userID, amount, ReferenceOrder, orderID); err != nil {
		return fmt.Errorf("debit wallet for order %s: %w", orderID, err)
	}
	return nil
}
