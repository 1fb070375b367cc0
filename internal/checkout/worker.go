package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-adorn/internal/order"
)

// OrderReader loads an order for the settlement worker.
type OrderReader interface {
	GetOrderByID(ctx context.Context, id uuid.UUID) (order.Order, error)
}

// Settler is the asynq handler that replays post-commit settlement for an
// order. All side effects are idempotent, so replays are safe.
type Settler struct {
	Svc    *Service
	Orders OrderReader
	Logger zerolog.Logger
}

// HandleSettleTask processes one settlement task. An unknown order is
// terminal; transient failures return an error so asynq retries.
func (s *Settler) HandleSettleTask(ctx context.Context, task *asynq.Task) error {
	var payload settlePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode settle payload: %v: %w", err, asynq.SkipRetry)
	}
	ord, err := s.Orders.GetOrderByID(ctx, payload.OrderID)
	if errors.Is(err, pgx.ErrNoRows) {
		s.Logger.Error().Str("order_id", payload.OrderID.String()).Msg("settlement task for unknown order")
		return fmt.Errorf("order %s not found: %w", payload.OrderID, asynq.SkipRetry)
	}
	if err != nil {
		return fmt.Errorf("load order %s: %w", payload.OrderID, err)
	}
	if err := s.Svc.Finalize(ctx, ord); err != nil {
		return fmt.Errorf("settle order %s: %w", ord.Number, err)
	}
	s.Logger.Info().Str("order", ord.Number).Msg("settlement completed")
	return nil
}

// Register mounts the settler on an asynq mux.
func (s *Settler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskSettleOrder, s.HandleSettleTask)
}
