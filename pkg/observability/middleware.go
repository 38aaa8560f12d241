package observability

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// HTTPMetrics counts requests and observes their latency, labelled by
// method, route and status class.
func HTTPMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &recorder{ResponseWriter: w}
		next.ServeHTTP(rw, r)

		route := Route(r.URL.Path)
		RequestsTotal.WithLabelValues(r.Method, statusClass(rw.code()), route).Inc()
		RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

var routePrefixes = []struct{ prefix, label string }{
	{"/images/temp/", "/images/temp"},
	{"/files/temp/", "/files/temp"},
	{"/mcp", "/mcp"},
}

// Route collapses a request path to one of a fixed set of labels.
func Route(path string) string {
	switch path {
	case "/run", "/metrics":
		return path
	case "/health", "/healthz":
		return "/health"
	}
	for _, p := range routePrefixes {
		if strings.HasPrefix(path, p.prefix) {
			return p.label
		}
	}
	return "other"
}

func statusClass(code int) string {
	return fmt.Sprintf("%dxx", code/100)
}

// recorder remembers the first status written. Unwrap lets
// http.ResponseController reach Flush on the MCP event stream.
type recorder struct {
	http.ResponseWriter
	status int
}

func (r *recorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *recorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (r *recorder) Flush() {
	http.NewResponseController(r.ResponseWriter).Flush()
}

func (r *recorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

func (r *recorder) code() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}
