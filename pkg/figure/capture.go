package figure

import (
	"context"
	"fmt"
	"log/slog"

	"gonum.org/v1/plot/vg"

	"github.com/rhuss/codeinterp/pkg/api"
	"github.com/rhuss/codeinterp/pkg/artifact"
	"github.com/rhuss/codeinterp/pkg/debug"
)

// DefaultDPI is the resolution figures are rendered at.
const DefaultDPI = 150

// Capturer renders the figures of a drawing context and persists them as
// image artifacts.
type Capturer struct {
	store  artifact.Store
	dpi    int
	width  vg.Length
	height vg.Length
	logger *slog.Logger
}

// CapturerOption configures a Capturer.
type CapturerOption func(*Capturer)

// WithDPI sets the render resolution.
func WithDPI(dpi int) CapturerOption {
	return func(c *Capturer) { c.dpi = dpi }
}

// WithSize sets the figure size.
func WithSize(width, height vg.Length) CapturerOption {
	return func(c *Capturer) {
		c.width = width
		c.height = height
	}
}

// WithLogger sets the logger for per-figure failures.
func WithLogger(l *slog.Logger) CapturerOption {
	return func(c *Capturer) { c.logger = l }
}

// NewCapturer creates a Capturer persisting into store.
func NewCapturer(store artifact.Store, opts ...CapturerOption) *Capturer {
	c := &Capturer{
		store:  store,
		dpi:    DefaultDPI,
		width:  6.4 * vg.Inch,
		height: 4.8 * vg.Inch,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Capture renders every non-empty figure, persists it and returns the image
// artifacts in figure order. A figure that fails to render or persist is
// logged and skipped. The context is always closed afterwards.
func (c *Capturer) Capture(ctx context.Context, fc *Context) []api.Artifact {
	defer fc.CloseAll()

	images := []api.Artifact{}
	for _, f := range fc.Figures() {
		if f.Empty() {
			continue
		}
		png, err := c.render(ctx, f)
		if err != nil {
			c.logger.Warn("figure render failed", "figure", f.Num(), "error", err)
			continue
		}
		a, err := artifact.Persist(ctx, c.store, api.ArtifactImage, png)
		if err != nil {
			c.logger.Warn("figure persist failed", "figure", f.Num(), "error", err)
			continue
		}
		debug.Log(debug.Figure, "figure persisted", "figure", f.Num(), "id", a.ID, "bytes", len(png))
		images = append(images, a)
	}
	return images
}

// render draws f, giving up when ctx is done. An abandoned render finishes
// in the background and its result is dropped.
func (c *Capturer) render(ctx context.Context, f *Figure) ([]byte, error) {
	type result struct {
		png []byte
		err error
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: fmt.Errorf("render panicked: %v", r)}
			}
		}()
		png, err := f.Render(c.width, c.height, c.dpi)
		ch <- result{png, err}
	}()
	select {
	case r := <-ch:
		return r.png, r.err
	case <-ctx.Done():
		return nil, fmt.Errorf("figure %d: %w", f.Num(), ctx.Err())
	}
}

// Dispose closes every figure without rendering. Used when a run did not
// succeed and its figures are discarded.
func Dispose(fc *Context) {
	if fc != nil {
		fc.CloseAll()
	}
}
