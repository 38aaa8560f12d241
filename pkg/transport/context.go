package transport

import "context"

type (
	requestIDKey struct{}
	callerKey    struct{}
)

// RequestIDFromContext returns the submission's request ID, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// ContextWithRequestID attaches a request ID to ctx.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// CallerFromContext returns the authenticated subject recorded for the
// submission, or "" for anonymous callers.
func CallerFromContext(ctx context.Context) string {
	s, _ := ctx.Value(callerKey{}).(string)
	return s
}

// ContextWithCaller records the authenticated subject for logging.
func ContextWithCaller(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, callerKey{}, subject)
}
