package catalog

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrProductNotFound signals that a referenced product does not exist.
var ErrProductNotFound = errors.New("product not found")

// ErrInsufficientStock signals that a requested quantity exceeds available stock.
var ErrInsufficientStock = errors.New("insufficient stock")

// Snapshot is the authoritative product state fetched fresh for every checkout.
// It must never be cached across requests; the checkout engine re-reads it at
// composition time and prices exclusively from it.
type Snapshot struct {
	ID             uuid.UUID
	Title          string
	UnitPrice      int64
	TaxRateBps     int32
	SellerID       uuid.UUID
	AvailableStock int32
}

// StockError carries the offending product for client-facing messages.
type StockError struct {
	ProductID uuid.UUID
	Requested int32
	Available int32
	Missing   bool
}

func (e *StockError) Error() string {
	if e.Missing {
		return fmt.Sprintf("product %s not found", e.ProductID)
	}
	return fmt.Sprintf("product %s has %d in stock, %d requested", e.ProductID, e.Available, e.Requested)
}

// Unwrap maps the error onto the package sentinels for errors.Is checks.
func (e *StockError) Unwrap() error {
	if e.Missing {
		return ErrProductNotFound
	}
	return ErrInsufficientStock
}

// Request is a single (product, quantity) pair to be validated.
type Request struct {
	ProductID uuid.UUID
	Quantity  int32
}

// Guard validates requested quantities against the supplied snapshots and
// fails the whole checkout on the first violation. It performs no writes;
// the committed decrement happens atomically at order persistence.
func Guard(requests []Request, snapshots map[uuid.UUID]Snapshot) error {
	for _, req := range requests {
		snap, ok := snapshots[req.ProductID]
		if !ok {
			return &StockError{ProductID: req.ProductID, Missing: true}
		}
		if req.Quantity <= 0 {
			return fmt.Errorf("product %s: quantity must be positive", req.ProductID)
		}
		if req.Quantity > snap.AvailableStock {
			return &StockError{ProductID: req.ProductID, Requested: req.Quantity, Available: snap.AvailableStock}
		}
	}
	return nil
}
