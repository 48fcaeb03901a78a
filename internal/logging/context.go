package logging

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// WithRequestID stores a request ID in ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the request ID stored in ctx, or "".
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// NewRequestID generates a random request ID.
func NewRequestID() string {
	return uuid.NewString()
}

// RequestIDAttr returns the request ID of ctx as a slog attribute. It is
// omitted from output when ctx carries none.
func RequestIDAttr(ctx context.Context) slog.Attr {
	id := RequestID(ctx)
	if id == "" {
		return slog.Group("")
	}
	return slog.String(KeyRequestID, id)
}
