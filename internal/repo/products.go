package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-adorn/internal/catalog"
)

// Products reads authoritative product state. Snapshots are fetched fresh per
// checkout and never cached.
type Products struct {
	Pool *pgxpool.Pool
}

// Snapshots returns the current state for the requested product ids. Missing
// ids are simply absent from the result; the stock guard reports them.
func (r Products) Snapshots(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]catalog.Snapshot, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]catalog.Snapshot{}, nil
	}
	rows, err := r.Pool.Query(ctx, `
		SELECT id, title, unit_price, tax_rate_bps, seller_id, stock
		FROM products
		WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("query product snapshots: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID]catalog.Snapshot, len(ids))
	for rows.Next() {
		var snap catalog.Snapshot
		if err := rows.Scan(&snap.ID, &snap.Title, &snap.UnitPrice, &snap.TaxRateBps, &snap.SellerID, &snap.AvailableStock); err != nil {
			return nil, fmt.Errorf("scan product snapshot: %w", err)
		}
		out[snap.ID] = snap
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
