package capability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/dop251/goja"

	"github.com/rhuss/codeinterp/pkg/debug"
	"github.com/rhuss/codeinterp/pkg/runtime"
	"github.com/rhuss/codeinterp/pkg/warehouse"
)

const (
	// DefaultMaxCallStackSize bounds script recursion.
	DefaultMaxCallStackSize = 10000

	// DefaultHTTPTimeout bounds a single outbound request made by a script.
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultHTTPBodyLimit caps a response body read by a script.
	DefaultHTTPBodyLimit = 10 << 20
)

// binder creates the value bound under one capability name.
type binder func(e *env) goja.Value

// binders maps every known capability name to its constructor. A Set may
// only name capabilities present here.
var binders = map[string]binder{
	"print":    bindPrint,
	"console":  bindConsole,
	"np":       bindNumpy,
	"pd":       bindPandas,
	"plt":      bindPyplot,
	"stats":    bindStats,
	"encoding": bindEncoding,
	"compress": bindCompress,
	"datetime": bindDatetime,
	"http":     bindHTTP,
}

// env is what a binder gets to work with.
type env struct {
	vm *goja.Runtime
	ns *runtime.Namespace
	b  *Builder
}

// Builder creates fresh namespaces bound to a capability set.
type Builder struct {
	set           Set
	maxCallStack  int
	httpClient    *http.Client
	httpBodyLimit int64
	now           func() time.Time
}

// Option configures a Builder.
type Option func(*Builder)

// WithSet replaces the capability set (V1 by default).
func WithSet(s Set) Option {
	return func(b *Builder) { b.set = s }
}

// WithHTTPClient sets the client used by the http capability.
func WithHTTPClient(c *http.Client) Option {
	return func(b *Builder) { b.httpClient = c }
}

// WithMaxCallStackSize bounds script recursion depth.
func WithMaxCallStackSize(n int) Option {
	return func(b *Builder) { b.maxCallStack = n }
}

// WithClock overrides the time source of the datetime capability.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// NewBuilder creates a Builder for V1.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		set:           V1,
		maxCallStack:  DefaultMaxCallStackSize,
		httpClient:    &http.Client{Timeout: DefaultHTTPTimeout},
		httpBodyLimit: DefaultHTTPBodyLimit,
		now:           time.Now,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Set returns the capability set the builder binds.
func (b *Builder) Set() Set { return b.set }

// Build returns a fresh namespace with the capability set and the query
// capability bound. A nil query binds a capability that always fails.
func (b *Builder) Build(query warehouse.QueryFunc) (*runtime.Namespace, error) {
	vm := goja.New()
	vm.SetFieldNameMapper(goja.UncapFieldNameMapper())
	vm.SetMaxCallStackSize(b.maxCallStack)

	ns := runtime.NewNamespace(vm)
	e := &env{vm: vm, ns: ns, b: b}

	bound := make([]string, 0, len(b.set.Names))
	for _, name := range b.set.Names {
		bind, ok := binders[name]
		if !ok {
			return nil, fmt.Errorf("%w: no binding for capability %q", ErrNamespace, name)
		}
		if err := ns.Set(name, bind(e)); err != nil {
			return nil, fmt.Errorf("%w: binding %q: %w", ErrNamespace, name, err)
		}
		bound = append(bound, name)
	}
	if err := b.set.Validate(bound); err != nil {
		return nil, err
	}

	if query == nil {
		query = warehouse.Bind(nil, "")
	}
	qf := bindQuery(e, query)
	for _, name := range QueryNames {
		if err := ns.Set(name, qf); err != nil {
			return nil, fmt.Errorf("%w: binding %q: %w", ErrNamespace, name, err)
		}
	}

	debug.Log(debug.Runtime, "namespace built", "set", b.set.Version, "names", len(bound))
	return ns, nil
}
