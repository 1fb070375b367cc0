package obs

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type pgxSpanKey struct{}

// PGXTracer is a pgx.QueryTracer that opens a span per statement.
type PGXTracer struct{}

func (PGXTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	ctx, span := otel.Tracer("db.pgx").Start(ctx, "pgx.query")
	attrs := []attribute.KeyValue{
		attribute.String("db.system", "postgresql"),
		attribute.String("db.statement", truncateSQL(data.SQL)),
	}
	if fields := strings.Fields(data.SQL); len(fields) > 0 {
		attrs = append(attrs, attribute.String("db.operation", fields[0]))
	}
	span.SetAttributes(attrs...)
	return context.WithValue(ctx, pgxSpanKey{}, span)
}

func (PGXTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	span, ok := ctx.Value(pgxSpanKey{}).(trace.Span)
	if !ok {
		return
	}
	if data.Err != nil {
		span.RecordError(data.Err)
	}
	span.End()
}

// truncateSQL bounds the statement attribute so large jsonb inserts do not
// bloat span payloads.
func truncateSQL(sql string) string {
	const max = 300
	trimmed := strings.TrimSpace(sql)
	if len(trimmed) > max {
		return trimmed[:max] + "..."
	}
	return trimmed
}
