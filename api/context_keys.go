package api

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey string

const (
	// ContextKeyRequestID holds the request correlation id
	ContextKeyRequestID contextKey = "request_id"
	// ContextKeyTraceStart holds the time the request was received
	ContextKeyTraceStart contextKey = "trace_start"
)

// WithRequestID stores the request id in the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// GetRequestID returns the request id, or "" when unset
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return id
	}
	return ""
}

// WithTraceStart stores the request start time in the context
func WithTraceStart(ctx context.Context, start time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyTraceStart, start)
}

// GetTraceStart returns the request start time, or the zero time when unset
func GetTraceStart(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyTraceStart).(time.Time); ok {
		return t
	}
	return time.Time{}
}
