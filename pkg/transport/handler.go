package transport

import (
	"context"

	"github.com/rhuss/codeinterp/pkg/api"
)

// Runner executes a code submission.
type Runner interface {
	Run(ctx context.Context, req *api.RunRequest) (*api.ExecutionReport, error)
}

// RunnerFunc is an adapter that allows using an ordinary function as a
// Runner.
type RunnerFunc func(ctx context.Context, req *api.RunRequest) (*api.ExecutionReport, error)

// Run calls f(ctx, req).
func (f RunnerFunc) Run(ctx context.Context, req *api.RunRequest) (*api.ExecutionReport, error) {
	return f(ctx, req)
}

// ArtifactReader returns persisted artifact bytes. Implementations return an
// error wrapping artifact.ErrNotFound for unknown or evicted ids.
type ArtifactReader interface {
	Get(ctx context.Context, kind api.ArtifactKind, id string) ([]byte, error)
}

// HealthChecker reports whether the service's dependencies are usable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
