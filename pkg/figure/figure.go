// Package figure holds the per-submission drawing context behind the plt
// capability and renders its figures to PNG with gonum/plot.
//
// A Context belongs to exactly one submission. Scripts draw into the
// current figure; the Capturer renders every figure that received content,
// persists it as an image artifact and closes the context.
package figure

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// MaxBins caps the bin count of a histogram.
const MaxBins = 1000

// SeriesKind identifies how a series is drawn.
type SeriesKind string

const (
	Line    SeriesKind = "line"
	Scatter SeriesKind = "scatter"
	Bar     SeriesKind = "bar"
	Hist    SeriesKind = "hist"
)

// Series is one plotted data set.
type Series struct {
	Kind   SeriesKind
	X      []float64
	Y      []float64
	Labels []string // bar category names
	Bins   int      // histogram bin count
	Label  string   // legend entry
}

// Figure is a single drawing surface. Methods are safe for concurrent use.
type Figure struct {
	mu     sync.Mutex
	num    int
	title  string
	xlabel string
	ylabel string
	legend bool
	series []Series
}

// Num returns the figure number, starting at 1.
func (f *Figure) Num() int { return f.num }

// Add appends a series after checking its lengths.
func (f *Figure) Add(s Series) error {
	switch s.Kind {
	case Line, Scatter:
		if len(s.X) != len(s.Y) {
			return fmt.Errorf("x and y must have the same length, got %d and %d", len(s.X), len(s.Y))
		}
	case Bar:
		if len(s.Labels) > 0 && len(s.Labels) != len(s.Y) {
			return fmt.Errorf("bar labels and heights must have the same length, got %d and %d", len(s.Labels), len(s.Y))
		}
	case Hist:
		if s.Bins <= 0 {
			s.Bins = 10
		}
		s.Bins = min(s.Bins, MaxBins)
	default:
		return fmt.Errorf("unknown series kind %q", s.Kind)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.series = append(f.series, s)
	return nil
}

// SetTitle sets the figure title.
func (f *Figure) SetTitle(s string) {
	f.mu.Lock()
	f.title = s
	f.mu.Unlock()
}

// SetXLabel sets the x axis label.
func (f *Figure) SetXLabel(s string) {
	f.mu.Lock()
	f.xlabel = s
	f.mu.Unlock()
}

// SetYLabel sets the y axis label.
func (f *Figure) SetYLabel(s string) {
	f.mu.Lock()
	f.ylabel = s
	f.mu.Unlock()
}

// ShowLegend turns on the legend for labelled series.
func (f *Figure) ShowLegend() {
	f.mu.Lock()
	f.legend = true
	f.mu.Unlock()
}

// Empty reports whether nothing has been plotted.
func (f *Figure) Empty() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.series) == 0
}

// Series returns a copy of the plotted series.
func (f *Figure) Series() []Series {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Series(nil), f.series...)
}

// Plot builds the gonum plot for the figure.
func (f *Figure) Plot() (*plot.Plot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p := plot.New()
	p.Title.Text = f.title
	p.X.Label.Text = f.xlabel
	p.Y.Label.Text = f.ylabel

	for i, s := range f.series {
		c := plotutil.Color(i)
		var thumb plot.Thumbnailer
		switch s.Kind {
		case Line:
			l, err := plotter.NewLine(xys(s.X, s.Y))
			if err != nil {
				return nil, fmt.Errorf("line series %d: %w", i, err)
			}
			l.LineStyle.Color = c
			l.LineStyle.Width = vg.Points(1.5)
			p.Add(l)
			thumb = l
		case Scatter:
			sc, err := plotter.NewScatter(xys(s.X, s.Y))
			if err != nil {
				return nil, fmt.Errorf("scatter series %d: %w", i, err)
			}
			sc.GlyphStyle.Color = c
			p.Add(sc)
			thumb = sc
		case Bar:
			bc, err := plotter.NewBarChart(plotter.Values(s.Y), vg.Points(20))
			if err != nil {
				return nil, fmt.Errorf("bar series %d: %w", i, err)
			}
			bc.Color = c
			p.Add(bc)
			if len(s.Labels) > 0 {
				p.NominalX(s.Labels...)
			}
			thumb = bc
		case Hist:
			h, err := plotter.NewHist(plotter.Values(s.Y), s.Bins)
			if err != nil {
				return nil, fmt.Errorf("hist series %d: %w", i, err)
			}
			h.FillColor = c
			p.Add(h)
			thumb = h
		}
		if f.legend && s.Label != "" && thumb != nil {
			p.Legend.Add(s.Label, thumb)
		}
	}
	return p, nil
}

// Render draws the figure as a PNG at the given size and resolution.
func (f *Figure) Render(width, height vg.Length, dpi int) (png []byte, err error) {
	if f.Empty() {
		return nil, errors.New("figure has no content")
	}
	p, err := f.Plot()
	if err != nil {
		return nil, err
	}

	// gonum/plot panics on some degenerate inputs (zero ranges, all-NaN data).
	defer func() {
		if r := recover(); r != nil {
			png, err = nil, fmt.Errorf("rendering figure %d: %v", f.num, r)
		}
	}()

	c := vgimg.NewWith(vgimg.UseWH(width, height), vgimg.UseDPI(dpi))
	p.Draw(draw.New(c))

	var buf bytes.Buffer
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}

func xys(x, y []float64) plotter.XYs {
	pts := make(plotter.XYs, len(y))
	for i := range pts {
		pts[i].X = x[i]
		pts[i].Y = y[i]
	}
	return pts
}

// Context tracks the open figures of one submission.
type Context struct {
	mu      sync.Mutex
	figures []*Figure
	current *Figure
	next    int
}

// NewContext returns an empty drawing context.
func NewContext() *Context {
	return &Context{next: 1}
}

// NewFigure opens a new figure and makes it current.
func (c *Context) NewFigure() *Figure {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open()
}

// Current returns the current figure, opening one if none is open.
func (c *Context) Current() *Figure {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return c.open()
	}
	return c.current
}

// Figures returns the open figures in creation order.
func (c *Context) Figures() []*Figure {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Figure(nil), c.figures...)
}

// Close closes the current figure. The most recently opened remaining
// figure becomes current.
func (c *Context) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return
	}
	for i, f := range c.figures {
		if f == c.current {
			c.figures = append(c.figures[:i], c.figures[i+1:]...)
			break
		}
	}
	c.current = nil
	if n := len(c.figures); n > 0 {
		c.current = c.figures[n-1]
	}
}

// CloseAll discards every figure.
func (c *Context) CloseAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.figures = nil
	c.current = nil
}

// must be called with c.mu held
func (c *Context) open() *Figure {
	f := &Figure{num: c.next}
	c.next++
	c.figures = append(c.figures, f)
	c.current = f
	return f
}
