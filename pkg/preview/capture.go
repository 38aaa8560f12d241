package preview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dop251/goja"

	"github.com/rhuss/codeinterp/pkg/api"
	"github.com/rhuss/codeinterp/pkg/artifact"
	"github.com/rhuss/codeinterp/pkg/debug"
	"github.com/rhuss/codeinterp/pkg/frame"
	"github.com/rhuss/codeinterp/pkg/runtime"
)

// Capturer previews the user bindings of a namespace and persists tables
// as CSV datasets.
type Capturer struct {
	store  artifact.Store
	logger *slog.Logger
}

// Option configures a Capturer.
type Option func(*Capturer)

// WithLogger sets the logger for persist failures.
func WithLogger(l *slog.Logger) Option {
	return func(c *Capturer) { c.logger = l }
}

// NewCapturer creates a Capturer persisting into store.
func NewCapturer(store artifact.Store, opts ...Option) *Capturer {
	c := &Capturer{store: store, logger: slog.Default()}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Capture previews every user binding of ns. A binding that fails to read
// or classify gets an error placeholder; the others are unaffected. Script
// code run while previewing (getters, toString) is interrupted once ctx is
// done, and the remaining bindings then get placeholders too. The returned
// datasets are in binding order.
func (c *Capturer) Capture(ctx context.Context, ns *runtime.Namespace) (map[string]api.Preview, []api.Artifact) {
	objects := map[string]api.Preview{}
	datasets := []api.Artifact{}

	stop := ns.Deadline(ctx)
	defer stop()

	for _, b := range ns.Bindings() {
		err := b.Err
		var p api.Preview
		if err == nil {
			err = ns.Guard(func() { p = Classify(b.Value) })
		}
		if err != nil {
			objects[b.Name] = ErrorPreview(err)
			continue
		}
		if p.Kind == api.PreviewTable {
			if a, ok := c.persistTable(ctx, b, p.Table); ok {
				datasets = append(datasets, a)
			}
		}
		objects[b.Name] = p
	}
	debug.Log(debug.Preview, "objects captured", "objects", len(objects), "datasets", len(datasets))
	return objects, datasets
}

func (c *Capturer) persistTable(ctx context.Context, b runtime.Binding, summary *api.TableSummary) (api.Artifact, bool) {
	t := b.Value.Export().(*frame.Table)
	data, err := t.CSV()
	if err == nil {
		var a api.Artifact
		if a, err = artifact.Persist(ctx, c.store, api.ArtifactDataset, data); err == nil {
			summary.File = a.URL
			return a, true
		}
	}
	c.logger.Warn("dataset persist failed", "binding", b.Name, "error", err)
	summary.FileError = truncate(err.Error(), MaxReprLength)
	return api.Artifact{}, false
}

// ErrorPreview is the placeholder of a binding that could not be captured.
func ErrorPreview(err error) api.Preview {
	msg := err.Error()
	var (
		exc  *goja.Exception
		intr *goja.InterruptedError
	)
	switch {
	case errors.As(err, &intr):
		msg = fmt.Sprint(intr.Value())
	case errors.As(err, &exc) && exc.Value() != nil:
		msg = exc.Value().String()
	}
	return api.OpaquePreview("<Error capturing object: " + truncate(msg, MaxReprLength) + ">")
}
