package postgresql

import (
	"context"
	"database/sql"
	"time"

	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/studytrack/coursetasks/internal"
	"github.com/studytrack/coursetasks/internal/postgresql/db"
)

const otelName = "github.com/studytrack/coursetasks/internal/postgresql"

func convertPriority(p db.Priority) internal.Priority {
	switch p {
	case db.PriorityLow:
		return internal.PriorityLow
	case db.PriorityMedium:
		return internal.PriorityMedium
	case db.PriorityHigh:
		return internal.PriorityHigh
	}

	return internal.PriorityUnknown
}

func newPriority(p internal.Priority) db.Priority {
	switch p {
	case internal.PriorityLow:
		return db.PriorityLow
	case internal.PriorityMedium:
		return db.PriorityMedium
	case internal.PriorityHigh:
		return db.PriorityHigh
	}

	return db.PriorityUnknown
}

func convertStatus(s db.Status) internal.Status {
	if s == db.StatusDone {
		return internal.StatusDone
	}

	return internal.StatusPending
}

// newNullTime creates a sql.NullTime from an optional date.
func newNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}

	return sql.NullTime{
		Time:  *t,
		Valid: true,
	}
}

func convertNullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}

	res := t.Time

	return &res
}

func newOTELSpan(ctx context.Context, name string) trace.Span {
	_, span := otel.Tracer(otelName).Start(ctx, name)

	span.SetAttributes(semconv.DBSystemPostgreSQL)

	return span
}
