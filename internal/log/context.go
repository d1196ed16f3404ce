package log

import (
	"context"

	"github.com/rs/zerolog"
)

type ctxKey string

const (
	runIDKey     ctxKey = "run_id"
	requestIDKey ctxKey = "request_id"
)

// ContextWithRunID stores the provided run ID in the context.
func ContextWithRunID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, runIDKey, id)
}

// ContextWithRequestID stores the provided request ID in the context.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RunIDFromContext extracts the run ID from context if present.
func RunIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(runIDKey).(string); ok {
		return v
	}
	return ""
}

// RequestIDFromContext extracts the request ID from context if present.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// FromContext returns a logger enriched with the IDs stored in ctx.
func FromContext(ctx context.Context) zerolog.Logger {
	return WithContext(ctx, logger())
}

// WithContext enriches l with the IDs stored in ctx.
func WithContext(ctx context.Context, l zerolog.Logger) zerolog.Logger {
	runID := RunIDFromContext(ctx)
	reqID := RequestIDFromContext(ctx)
	if runID == "" && reqID == "" {
		return l
	}
	c := l.With()
	if runID != "" {
		c = c.Str(FieldRunID, runID)
	}
	if reqID != "" {
		c = c.Str(FieldRequestID, reqID)
	}
	return c.Logger()
}
