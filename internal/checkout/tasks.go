package checkout

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// TaskSettleOrder is the asynq task type for retryable order settlement.
const TaskSettleOrder = "checkout:settle"

type settlePayload struct {
	OrderID uuid.UUID `json:"order_id"`
}

// NewSettleTask builds the settlement task for an order. The task id pins one
// in-flight settlement per order.
func NewSettleTask(orderID uuid.UUID, maxRetry int, queue string) (*asynq.Task, []asynq.Option, error) {
	payload, err := json.Marshal(settlePayload{OrderID: orderID})
	if err != nil {
		return nil, nil, fmt.Errorf("encode settle payload: %w", err)
	}
	opts := []asynq.Option{
		asynq.TaskID("settle:" + orderID.String()),
		asynq.MaxRetry(maxRetry),
		asynq.Queue(queue),
	}
	return asynq.NewTask(TaskSettleOrder, payload), opts, nil
}

// TaskQueue enqueues settlement tasks on asynq.
type TaskQueue struct {
	Client   *asynq.Client
	MaxRetry int
	Queue    string
}

// EnqueueSettle schedules a settlement retry for the order. A duplicate task
// id means a retry is already pending, which is fine.
func (q TaskQueue) EnqueueSettle(ctx context.Context, orderID uuid.UUID) error {
	if q.Client == nil {
		return fmt.Errorf("task client not configured")
	}
	task, opts, err := NewSettleTask(orderID, q.MaxRetry, q.Queue)
	if err != nil {
		return err
	}
	if _, err := q.Client.EnqueueContext(ctx, task, opts...); err != nil {
		if err == asynq.ErrDuplicateTask || err == asynq.ErrTaskIDConflict {
			return nil
		}
		return fmt.Errorf("enqueue settle task: %w", err)
	}
	return nil
}
