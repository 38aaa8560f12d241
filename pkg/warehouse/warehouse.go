// Package warehouse binds scripts to an external SQL data source.
//
// A Backend answers queries against a named target (a database). Bind
// closes over one target and yields the QueryFunc that the environment
// builder exposes to scripts as query() and execute_sql(). The bound
// function is read-only from the script's point of view: it returns a
// frame.Table and nothing else.
package warehouse

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/rhuss/codeinterp/pkg/debug"
	"github.com/rhuss/codeinterp/pkg/frame"
	"github.com/rhuss/codeinterp/pkg/observability"
)

// ErrUnknownTarget is returned when a query names a target the backend
// does not serve.
var ErrUnknownTarget = errors.New("unknown query target")

// ErrNoTarget is returned by the query capability of a submission that was
// built without a target.
var ErrNoTarget = errors.New("no query target bound")

// QueryFunc runs one SQL statement against the bound target.
type QueryFunc func(ctx context.Context, sql string) (*frame.Table, error)

// Backend executes SQL against named targets.
type Backend interface {
	// Name identifies the backend kind in metrics and logs.
	Name() string

	// Query runs sql against target and returns the result table.
	Query(ctx context.Context, target, sql string) (*frame.Table, error)

	// HealthCheck reports whether the backend is reachable.
	HealthCheck(ctx context.Context) error

	// Close releases pooled connections.
	Close() error
}

// QueryError describes an upstream query failure. It is surfaced inside the
// script as a thrown QueryError.
type QueryError struct {
	Target string
	Status int // upstream HTTP status, 0 when not applicable
	Err    error
}

func (e *QueryError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("query against %q failed with status %d: %v", e.Target, e.Status, e.Err)
	}
	return fmt.Sprintf("query against %q failed: %v", e.Target, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// Bind returns the QueryFunc for target. A nil backend or an empty target
// yields a function that always fails with ErrNoTarget.
func Bind(b Backend, target string) QueryFunc {
	if b == nil || target == "" {
		return func(context.Context, string) (*frame.Table, error) {
			return nil, &QueryError{Target: target, Err: ErrNoTarget}
		}
	}
	return func(ctx context.Context, sql string) (*frame.Table, error) {
		start := time.Now()
		debug.Log(debug.Warehouse, "query", "backend", b.Name(), "target", target, "sql", debug.Truncate(sql, 200))

		t, err := b.Query(ctx, target, sql)
		observability.QueryLatency.WithLabelValues(b.Name()).Observe(time.Since(start).Seconds())
		if err != nil {
			observability.QueriesTotal.WithLabelValues(b.Name(), "error").Inc()
			var qe *QueryError
			if errors.As(err, &qe) {
				return nil, err
			}
			return nil, &QueryError{Target: target, Err: err}
		}
		observability.QueriesTotal.WithLabelValues(b.Name(), "ok").Inc()
		debug.Log(debug.Warehouse, "query done", "target", target, "rows", t.Len(), "duration", time.Since(start))
		return t, nil
	}
}

var targetPattern = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_.-]{0,127}$`)

// ValidateTarget rejects target names that are not plain identifiers. File-
// and database-backed backends use it before turning a target into a path or
// database name.
func ValidateTarget(target string) error {
	if !targetPattern.MatchString(target) || target == "." || target == ".." {
		return fmt.Errorf("%w: %q", ErrUnknownTarget, target)
	}
	return nil
}
