package logging

import (
	"context"
	"log/slog"

	"cardflow/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldCardID is the standardized structured logging key for card identifiers.
	FieldCardID = "card_id"
	// FieldBoardID is the standardized structured logging key for board identifiers.
	FieldBoardID = "board_id"
	// FieldUserID is the standardized structured logging key for acting users.
	FieldUserID = "user_id"
	// FieldStage is the standardized structured logging key for stage identifiers.
	FieldStage = "stage"
	// FieldProvider is the standardized structured logging key for translation provider names.
	FieldProvider = "provider"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
)

// WithComponent returns a logger annotated with a component name.
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if component == "" {
		return logger
	}
	return logger.With(slog.String(FieldComponent, component))
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := services.BoardIDFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldBoardID, id))
	}
	if id, ok := services.CardIDFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldCardID, id))
	}
	if id, ok := services.UserIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldUserID, id))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	args := make([]any, 0, len(fields))
	for _, attr := range fields {
		args = append(args, attr)
	}
	return logger.With(args...)
}
