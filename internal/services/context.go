package services

import "context"

type contextKey string

const (
	cardIDKey    contextKey = "card_id"
	boardIDKey   contextKey = "board_id"
	userIDKey    contextKey = "user_id"
	requestIDKey contextKey = "request_id"
)

// WithCardID annotates context with the card identifier.
func WithCardID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, cardIDKey, id)
}

// CardIDFromContext extracts the card identifier if present.
func CardIDFromContext(ctx context.Context) (int64, bool) {
	v := ctx.Value(cardIDKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	default:
		return 0, false
	}
}

// WithBoardID annotates context with the board identifier.
func WithBoardID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, boardIDKey, id)
}

// BoardIDFromContext extracts the board identifier if present.
func BoardIDFromContext(ctx context.Context) (int64, bool) {
	v := ctx.Value(boardIDKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	default:
		return 0, false
	}
}

// WithUserID annotates context with the acting user's identifier.
func WithUserID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, userIDKey, id)
}

// UserIDFromContext returns the acting user's identifier if present.
func UserIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(userIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
