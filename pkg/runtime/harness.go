package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/dop251/goja"

	"github.com/rhuss/codeinterp/pkg/api"
	"github.com/rhuss/codeinterp/pkg/debug"
	"github.com/rhuss/codeinterp/pkg/observability"
)

const (
	// DefaultTimeout applies when Run is given a non-positive timeout.
	DefaultTimeout = 60 * time.Second

	// DefaultGracePeriod is how long the harness waits for an interrupted
	// script to unwind before abandoning it.
	DefaultGracePeriod = 2 * time.Second

	scriptName = "submission.js"
)

var errTimeout = errors.New("execution deadline exceeded")

// ErrCaptureDeadline interrupts script code still running when the
// post-run capture phase runs out of time.
var ErrCaptureDeadline = errors.New("capture deadline exceeded")

// RawRunResult is the outcome of one harness run, before any capture.
type RawRunResult struct {
	Stdout    string
	Stderr    string
	Status    api.Status
	Namespace *Namespace

	// Err is the underlying failure for error and timeout runs.
	Err error
}

// Harness runs code in a Namespace under a deadline.
type Harness struct {
	grace  time.Duration
	logger *slog.Logger
}

// HarnessOption configures a Harness.
type HarnessOption func(*Harness)

// WithGracePeriod sets how long an interrupted script may take to unwind.
func WithGracePeriod(d time.Duration) HarnessOption {
	return func(h *Harness) { h.grace = d }
}

// WithLogger sets the logger for abandoned runs.
func WithLogger(l *slog.Logger) HarnessOption {
	return func(h *Harness) { h.logger = l }
}

// NewHarness creates a Harness.
func NewHarness(opts ...HarnessOption) *Harness {
	h := &Harness{grace: DefaultGracePeriod, logger: slog.Default()}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Run executes code in ns. It returns once the script finishes, fails or is
// stopped; it never returns later than timeout plus the grace period.
//
// Stdout and stderr written before a failure are preserved. On error one
// line "Error: <message>" is appended to stderr; on timeout the line
// "Code execution timed out after N seconds".
func (h *Harness) Run(ctx context.Context, code string, ns *Namespace, timeout time.Duration) *RawRunResult {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ns.ctx = runCtx
	ns.lexical = lexicalNames(code)

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("internal error: %v", r)
			}
		}()
		prog, err := goja.Compile(scriptName, code, false)
		if err != nil {
			done <- err
			return
		}
		_, err = ns.VM.RunProgram(prog)
		done <- err
	}()

	var (
		err         error
		interrupted bool
	)
	select {
	case err = <-done:
	case <-runCtx.Done():
		interrupted = true
		ns.VM.Interrupt(errTimeout)
		select {
		case err = <-done:
		case <-time.After(h.grace):
			ns.abandoned = true
			observability.ExecutionsAbandonedTotal.Inc()
			h.logger.Warn("script ignored interruption, abandoning",
				"timeout", timeout, "grace", h.grace)
		}
	}
	if !ns.abandoned {
		ns.VM.ClearInterrupt()
	}

	res := &RawRunResult{Namespace: ns, Status: api.StatusSuccess}
	switch {
	case ns.abandoned:
		res.Status = api.StatusTimeout
		res.Err = errTimeout
	case err == nil:
	case interrupted && errors.Is(runCtx.Err(), context.DeadlineExceeded):
		// Interruption, or a capability failing on the cancelled context.
		res.Status = api.StatusTimeout
		res.Err = err
	default:
		res.Status = api.StatusError
		res.Err = err
	}

	res.Stdout = ns.Stdout.Seal()
	switch res.Status {
	case api.StatusError:
		res.Stderr = ns.Stderr.SealLine("Error: " + errorMessage(err))
	case api.StatusTimeout:
		res.Stderr = ns.Stderr.SealLine(TimeoutMessage(timeout))
	default:
		res.Stderr = ns.Stderr.Seal()
	}

	debug.Log(debug.Runtime, "run finished", "status", res.Status, "abandoned", ns.abandoned)
	return res
}

// TimeoutMessage is the stderr text of a run that hit its deadline.
func TimeoutMessage(timeout time.Duration) string {
	return "Code execution timed out after " + strconv.FormatFloat(timeout.Seconds(), 'f', -1, 64) + " seconds"
}

// errorMessage renders a script failure the way a user expects to read it:
// the thrown error's message, prefixed with its name unless it is a plain
// Error.
func errorMessage(err error) string {
	var exc *goja.Exception
	if errors.As(err, &exc) {
		if obj, ok := exc.Value().(*goja.Object); ok {
			msg := obj.Get("message")
			if msg != nil && !goja.IsUndefined(msg) {
				name := obj.Get("name")
				if name != nil && !goja.IsUndefined(name) && name.String() != "Error" {
					return name.String() + ": " + msg.String()
				}
				return msg.String()
			}
		}
		if v := exc.Value(); v != nil {
			return v.String()
		}
	}
	return err.Error()
}
