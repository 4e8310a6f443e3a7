package logging

import (
	"context"
	"log/slog"
	"strings"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldEventType classifies a log line for filtering (e.g. "cache_write_failed").
	FieldEventType = "event_type"
	// FieldErrorHint suggests the next step an operator can take.
	FieldErrorHint = "error_hint"
	// FieldImpact describes the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldSnapshot names a cache snapshot.
	FieldSnapshot = "snapshot"
	// FieldRecordID is the candidate store identity of a record.
	FieldRecordID = "record_id"
	// FieldSourceFile is the provenance filename of a record or snapshot.
	FieldSourceFile = "source_file"
)

type requestIDKey struct{}

// WithRequestID stores a correlation identifier on the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, requestIDKey{}, strings.TrimSpace(id))
}

// RequestIDFromContext returns the correlation identifier stored by WithRequestID.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(requestIDKey{}).(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// WithContext returns a logger augmented with the correlation id carried by ctx.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	id, ok := RequestIDFromContext(ctx)
	if !ok {
		return logger
	}
	return logger.With(slog.String(FieldCorrelationID, id))
}
