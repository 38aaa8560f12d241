package transport

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rhuss/codeinterp/pkg/api"
)

// Recovery returns middleware that turns a panic in the runner into a
// server error. The server keeps accepting submissions afterwards.
func Recovery() Middleware {
	return func(next Runner) Runner {
		return RunnerFunc(func(ctx context.Context, req *api.RunRequest) (report *api.ExecutionReport, retErr error) {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("panic while running submission", "request_id", RequestIDFromContext(ctx), "panic", r)
					report, retErr = nil, api.NewServerError(fmt.Sprintf("internal server error: %v", r))
				}
			}()
			return next.Run(ctx, req)
		})
	}
}
