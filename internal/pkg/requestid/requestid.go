// Package requestid provides a context-carried correlation ID, generated
// once per scheduler track tick so its log lines can be grepped together.
package requestid

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// FromContext retrieves the correlation ID from ctx, or "" if none is set.
func FromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// WithRequestID attaches id to ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// New generates a fresh correlation ID and attaches it to ctx.
func New(ctx context.Context) context.Context {
	return WithRequestID(ctx, uuid.New().String())
}
