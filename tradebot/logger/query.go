package logger

import (
	"log/slog"
	"time"
)

// QueryLogger times a single repository operation.
type QueryLogger struct {
	Operation string
	Entity    string
	StartTime time.Time
	attrs     []any
}

func NewQueryLogger(operation, entity string, attrs ...any) *QueryLogger {
	return &QueryLogger{
		Operation: operation,
		Entity:    entity,
		StartTime: time.Now(),
		attrs:     attrs,
	}
}

func (l *QueryLogger) Log(err error, rowsAffected int64) {
	attrs := append([]any{
		slog.String("type", "db"),
		slog.String("operation", l.Operation),
		slog.String("entity", l.Entity),
		slog.Duration("took", time.Since(l.StartTime)),
	}, l.attrs...)

	if err != nil {
		slog.Error("Query failed", append(attrs, slog.Any("error", err))...)
		return
	}
	slog.Debug("Query executed", append(attrs, slog.Int64("affected_rows", rowsAffected))...)
}
