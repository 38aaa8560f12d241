package transport

import (
	"context"
	"log/slog"
	"time"

	"github.com/rhuss/codeinterp/pkg/api"
)

// Logging returns middleware that emits one structured log entry per
// submission with its request ID, target, code size and duration, plus the
// report status or the error. Authenticated callers are logged by subject.
func Logging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Runner) Runner {
		return RunnerFunc(func(ctx context.Context, req *api.RunRequest) (*api.ExecutionReport, error) {
			start := time.Now()
			report, err := next.Run(ctx, req)

			attrs := []slog.Attr{
				slog.String("request_id", RequestIDFromContext(ctx)),
				slog.String("target", req.Target()),
				slog.Int("code_bytes", len(req.Code)),
				slog.Duration("duration", time.Since(start)),
			}
			if caller := CallerFromContext(ctx); caller != "" {
				attrs = append(attrs, slog.String("caller", caller))
			}
			if err != nil {
				attrs = append(attrs, slog.String("error", err.Error()))
				logger.LogAttrs(ctx, slog.LevelError, "submission failed", attrs...)
			} else {
				attrs = append(attrs, slog.String("status", string(report.Status)))
				logger.LogAttrs(ctx, slog.LevelInfo, "submission completed", attrs...)
			}
			return report, err
		})
	}
}
