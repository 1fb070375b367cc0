package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-adorn/internal/events"
)

// Events appends domain events to the append-only events table.
type Events struct {
	Pool *pgxpool.Pool
}

// InsertDomainEvent persists the event and returns it with its id and
// occurrence time filled in.
func (r Events) InsertDomainEvent(ctx context.Context, topic string, aggregateID uuid.UUID, payload []byte) (events.Event, error) {
	ev := events.Event{Topic: topic, AggregateID: aggregateID, Payload: payload}
	err := r.Pool.QueryRow(ctx, `
		INSERT INTO domain_events (topic, aggregate_id, payload)
		VALUES ($1, $2, $3)
		RETURNING id, occurred_at`, topic, aggregateID, payload).Scan(&ev.ID, &ev.OccurredAt)
	if err != nil {
		return events.Event{}, fmt.Errorf("insert domain event: %w", err)
	}
	return ev, nil
}
