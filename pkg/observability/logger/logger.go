// Package logger defines the structured logging interface used across the
// service. All methods take a message followed by key-value pairs.
package logger

import "context"

// Logger is the structured logging interface.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	// With returns a child logger carrying additional key-value pairs.
	With(args ...any) Logger

	// WithContext returns a child logger enriched with request-scoped
	// fields (request id) when present in ctx.
	WithContext(ctx context.Context) Logger
}

type contextKey struct{}

// requestIDKey carries the request id through a context.
var requestIDKey contextKey

// WithRequestID stores a request id in the context for log correlation.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext extracts the request id, if any.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}
