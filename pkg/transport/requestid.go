package transport

import (
	"context"

	"github.com/google/uuid"

	"github.com/rhuss/codeinterp/pkg/api"
)

// RequestID returns middleware that assigns a unique request ID to each
// submission. An ID already on the context (set by the HTTP adapter from the
// X-Request-ID header) is kept.
func RequestID() Middleware {
	return func(next Runner) Runner {
		return RunnerFunc(func(ctx context.Context, req *api.RunRequest) (*api.ExecutionReport, error) {
			if RequestIDFromContext(ctx) == "" {
				ctx = ContextWithRequestID(ctx, NewRequestID())
			}
			return next.Run(ctx, req)
		})
	}
}

// NewRequestID returns a fresh request ID.
func NewRequestID() string {
	return "req_" + uuid.NewString()
}
