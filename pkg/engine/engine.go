package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/rhuss/codeinterp/pkg/api"
	"github.com/rhuss/codeinterp/pkg/artifact"
	"github.com/rhuss/codeinterp/pkg/capability"
	"github.com/rhuss/codeinterp/pkg/debug"
	"github.com/rhuss/codeinterp/pkg/figure"
	"github.com/rhuss/codeinterp/pkg/observability"
	"github.com/rhuss/codeinterp/pkg/preview"
	"github.com/rhuss/codeinterp/pkg/runtime"
	"github.com/rhuss/codeinterp/pkg/transport"
	"github.com/rhuss/codeinterp/pkg/warehouse"
)

// ErrSaturated is returned when no worker slot frees up within the queue
// timeout.
var ErrSaturated = errors.New("execution pool saturated")

// Submission is one immutable unit of work.
type Submission struct {
	Code   string
	Target string

	// Query is the query capability bound to Target. Nil binds one that
	// always fails.
	Query warehouse.QueryFunc

	// Timeout overrides the configured deadline when positive.
	Timeout time.Duration
}

// Engine executes submissions on a bounded worker pool.
type Engine struct {
	cfg        Config
	store      artifact.Store
	backend    warehouse.Backend
	builder    *capability.Builder
	harness    *runtime.Harness
	figures    *figure.Capturer
	objects    *preview.Capturer
	sem        *semaphore.Weighted
	validation api.ValidationConfig
	logger     *slog.Logger
}

// Ensure Engine implements transport.Runner at compile time.
var _ transport.Runner = (*Engine)(nil)

// Option configures an Engine.
type Option func(*Engine)

// WithBuilder replaces the environment builder.
func WithBuilder(b *capability.Builder) Option {
	return func(e *Engine) { e.builder = b }
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an Engine persisting artifacts into store. The backend can be
// nil, in which case every query fails inside the script.
func New(store artifact.Store, backend warehouse.Backend, cfg Config, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("engine: artifact store must not be nil")
	}
	e := &Engine{
		cfg:     cfg,
		store:   store,
		backend: backend,
		sem:     semaphore.NewWeighted(int64(cfg.maxConcurrent())),
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(e)
	}
	if e.builder == nil {
		e.builder = capability.NewBuilder()
	}

	harnessOpts := []runtime.HarnessOption{runtime.WithLogger(e.logger)}
	if cfg.GracePeriod > 0 {
		harnessOpts = append(harnessOpts, runtime.WithGracePeriod(cfg.GracePeriod))
	}
	e.harness = runtime.NewHarness(harnessOpts...)
	e.figures = figure.NewCapturer(store, figure.WithLogger(e.logger))
	e.objects = preview.NewCapturer(store, preview.WithLogger(e.logger))

	e.validation = api.DefaultValidationConfig()
	e.validation.RequireTarget = cfg.RequireTarget
	if cfg.MaxCodeSize > 0 {
		e.validation.MaxCodeSize = cfg.MaxCodeSize
	}
	return e, nil
}

// Capabilities returns the capability set bound into every namespace.
func (e *Engine) Capabilities() capability.Set {
	return e.builder.Set()
}

// Run validates a request, binds its query target and executes it.
func (e *Engine) Run(ctx context.Context, req *api.RunRequest) (*api.ExecutionReport, error) {
	if apiErr := api.ValidateRunRequest(req, e.validation); apiErr != nil {
		return nil, apiErr
	}
	target := req.Target()
	if target != "" {
		if err := warehouse.ValidateTarget(target); err != nil {
			return nil, api.NewInvalidRequestError("database", err.Error())
		}
	}

	report, err := e.Execute(ctx, Submission{
		Code:   req.Code,
		Target: target,
		Query:  warehouse.Bind(e.backend, target),
	})
	switch {
	case err == nil:
		return report, nil
	case errors.Is(err, ErrSaturated):
		return nil, api.NewTooManyRequestsError("all execution slots are busy, retry later")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil, err
	default:
		return nil, api.NewServerError(err.Error())
	}
}

// Execute waits for a worker slot and runs the submission. Waiting honours
// ctx; the run itself does not and always produces a report.
func (e *Engine) Execute(ctx context.Context, sub Submission) (*api.ExecutionReport, error) {
	if err := e.acquire(ctx); err != nil {
		return nil, err
	}
	defer e.release()
	return e.execute(context.WithoutCancel(ctx), sub)
}

func (e *Engine) acquire(ctx context.Context) error {
	wait := ctx
	if e.cfg.QueueTimeout > 0 {
		var cancel context.CancelFunc
		wait, cancel = context.WithTimeout(ctx, e.cfg.QueueTimeout)
		defer cancel()
	}
	if err := e.sem.Acquire(wait, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		observability.ExecutionsRejectedTotal.Inc()
		return ErrSaturated
	}
	observability.ExecutionsInFlight.Inc()
	return nil
}

func (e *Engine) release() {
	observability.ExecutionsInFlight.Dec()
	e.sem.Release(1)
}

func (e *Engine) execute(ctx context.Context, sub Submission) (*api.ExecutionReport, error) {
	start := time.Now()
	requestID := transport.RequestIDFromContext(ctx)
	r := &run{state: api.RunStateIdle, logger: e.logger, requestID: requestID}

	ns, err := e.builder.Build(sub.Query)
	if err != nil {
		return nil, fmt.Errorf("building namespace: %w", err)
	}

	timeout := sub.Timeout
	if timeout <= 0 {
		timeout = e.cfg.timeout()
	}
	r.advance(api.RunStateRunning)
	debug.Log(debug.Engine, "run started", "request_id", requestID, "target", sub.Target, "timeout", timeout)
	debug.Trace(debug.Engine, "submitted code", "request_id", requestID, "code", sub.Code)

	raw := e.harness.Run(ctx, sub.Code, ns, timeout)
	r.advance(api.RunStateForStatus(raw.Status))

	var (
		images   []api.Artifact
		objects  map[string]api.Preview
		datasets []api.Artifact
	)
	if raw.Status == api.StatusSuccess {
		capCtx, cancel := context.WithTimeout(ctx, e.cfg.captureTimeout())
		g, gctx := errgroup.WithContext(capCtx)
		g.Go(func() (err error) {
			defer e.recoverCapture("figures", &err)
			images = e.figures.Capture(gctx, ns.Figures)
			return nil
		})
		g.Go(func() (err error) {
			defer e.recoverCapture("objects", &err)
			objects, datasets = e.objects.Capture(gctx, ns)
			return nil
		})
		if err := g.Wait(); err != nil {
			e.logger.Error("capture failed", "request_id", requestID, "error", err)
		}
		cancel()
	} else {
		figure.Dispose(ns.Figures)
	}

	elapsed := time.Since(start)
	report := Assemble(raw, images, objects, datasets, elapsed)
	r.advance(api.RunStateReported)

	observability.ExecutionsTotal.WithLabelValues(string(report.Status)).Inc()
	observability.ExecutionDuration.WithLabelValues(string(report.Status)).Observe(elapsed.Seconds())
	e.logger.Info("run finished",
		"request_id", requestID,
		"status", report.Status,
		"duration", elapsed,
		"images", len(report.Images),
		"objects", len(report.Objects),
		"files", len(report.Files),
	)
	return report, nil
}

// recoverCapture turns a panic in a capture goroutine into an error so one
// faulty submission cannot take the process down. The phase's results stay
// empty.
func (e *Engine) recoverCapture(phase string, err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%s capture panicked: %v", phase, r)
	}
}

// HealthCheck reports whether the artifact store and the warehouse are
// usable.
func (e *Engine) HealthCheck(ctx context.Context) error {
	var errs []error
	if err := e.store.HealthCheck(ctx); err != nil {
		errs = append(errs, fmt.Errorf("artifact store: %w", err))
	}
	if e.backend != nil {
		if err := e.backend.HealthCheck(ctx); err != nil {
			errs = append(errs, fmt.Errorf("warehouse %s: %w", e.backend.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Close releases the warehouse backend.
func (e *Engine) Close() error {
	if e.backend == nil {
		return nil
	}
	return e.backend.Close()
}

// run tracks the lifecycle of one submission.
type run struct {
	state     api.RunState
	logger    *slog.Logger
	requestID string
}

func (r *run) advance(to api.RunState) {
	if err := api.ValidateRunTransition(r.state, to); err != nil {
		r.logger.Error("invalid run state transition", "request_id", r.requestID, "error", err.Message)
	}
	r.state = to
}
