package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-adorn/internal/wallet"
)

// Wallets reads balances and performs the post-commit conditional debit.
type Wallets struct {
	Pool *pgxpool.Pool
}

// GetBalance returns the current balance. Users without a wallet row have a
// zero balance.
func (r Wallets) GetBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	var balance int64
	err := r.Pool.QueryRow(ctx, `
		SELECT balance FROM wallets WHERE user_id = $1`, userID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get wallet balance: %w", err)
	}
	return balance, nil
}

// DebitForReference decrements the balance bounded by the balance at debit
// time and appends the ledger entry in one transaction. The ledger uniqueness
// on (reference_type, reference_id, direction) makes replays no-ops.
func (r Wallets) DebitForReference(ctx context.Context, userID uuid.UUID, amount int64, refType string, refID uuid.UUID) (bool, error) {
	if amount <= 0 {
		return false, nil
	}
	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var exists bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM wallet_ledger
			WHERE reference_type = $1 AND reference_id = $2 AND direction = $3
		)`, refType, refID, wallet.DirectionDebit).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check wallet ledger: %w", err)
	}
	if exists {
		return false, nil
	}

	var balanceAfter int64
	err = tx.QueryRow(ctx, `
		UPDATE wallets
		SET balance = balance - $2, updated_at = now()
		WHERE user_id = $1 AND balance >= $2
		RETURNING balance`, userID, amount).Scan(&balanceAfter)
	if errors.Is(err, pgx.ErrNoRows) {
		// zero rows affected is the balance-exhausted signal
		return false, wallet.ErrInsufficientBalance
	}
	if err != nil {
		return false, fmt.Errorf("debit wallet: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO wallet_ledger (user_id, direction, amount, balance_after, reference_type, reference_id)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		userID, wallet.DirectionDebit, amount, balanceAfter, refType, refID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			// a concurrent retry won the race; its debit stands
			return false, nil
		}
		return false, fmt.Errorf("append wallet ledger: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}
