package runtime

import (
	"bytes"
	"sync"
)

// DefaultOutputLimit caps each captured stream.
const DefaultOutputLimit = 1 << 20

const truncatedNotice = "\n... output truncated"

// Output is a goroutine-safe capture buffer for one stream. After Seal,
// writes are discarded, so an abandoned script cannot change a report that
// has already been assembled.
type Output struct {
	mu        sync.Mutex
	buf       bytes.Buffer
	limit     int
	truncated bool
	sealed    bool
}

// NewOutput returns a buffer holding at most limit bytes (0 = unlimited).
func NewOutput(limit int) *Output {
	return &Output{limit: limit}
}

// Write appends p, truncating at the limit. It never fails.
func (o *Output) Write(p []byte) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.sealed || o.truncated {
		return len(p), nil
	}
	if o.limit > 0 && o.buf.Len()+len(p) > o.limit {
		o.buf.Write(p[:o.limit-o.buf.Len()])
		o.buf.WriteString(truncatedNotice)
		o.truncated = true
		return len(p), nil
	}
	o.buf.Write(p)
	return len(p), nil
}

// WriteString appends s.
func (o *Output) WriteString(s string) (int, error) {
	return o.Write([]byte(s))
}

// String returns the captured text so far.
func (o *Output) String() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.buf.String()
}

// Seal stops capture and returns the final text.
func (o *Output) Seal() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sealed = true
	return o.buf.String()
}

// SealLine stops capture and appends line on a line of its own. The line is
// written even when the stream was truncated.
func (o *Output) SealLine(line string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.sealed {
		if b := o.buf.Bytes(); len(b) > 0 && b[len(b)-1] != '\n' {
			o.buf.WriteByte('\n')
		}
		o.buf.WriteString(line)
	}
	o.sealed = true
	return o.buf.String()
}
