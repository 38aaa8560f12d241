// Package debug adds per-subsystem debug logging on top of log/slog.
//
// Categories pick which subsystems log at debug level; the log level picks
// how much detail survives. Both come from configuration and can be
// overridden with CODEINTERP_DEBUG and CODEINTERP_LOG_LEVEL:
//
//	CODEINTERP_DEBUG=warehouse,runtime CODEINTERP_LOG_LEVEL=debug codeinterp-server
//
// At TRACE the engine also logs submitted code.
package debug

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"unicode/utf8"
)

// Category names a subsystem.
type Category string

const (
	Engine    Category = "engine"
	Runtime   Category = "runtime"
	Figure    Category = "figure"
	Preview   Category = "preview"
	Warehouse Category = "warehouse"
	Artifact  Category = "artifact"
	MCP       Category = "mcp"
	Auth      Category = "auth"
	All       Category = "all"
)

// LevelTrace sits below slog.LevelDebug.
const LevelTrace = slog.LevelDebug - 4

var enabled atomic.Pointer[map[Category]bool]

func init() {
	set(parseCategories(os.Getenv("CODEINTERP_DEBUG")))
}

// Options configures logging at startup.
type Options struct {
	Categories string // comma separated
	Level      string // trace, debug, info, warn or error
	Format     string // "json" or "text"
	Output     io.Writer
}

// Init installs the default slog logger. Environment variables override the
// given options.
func Init(opts Options) {
	if env := os.Getenv("CODEINTERP_DEBUG"); env != "" {
		opts.Categories = env
	}
	if env := os.Getenv("CODEINTERP_LOG_LEVEL"); env != "" {
		opts.Level = env
	}
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	set(parseCategories(opts.Categories))
	slog.SetDefault(slog.New(NewHandler(opts.Output, ParseLevel(opts.Level), opts.Format)))
}

// NewHandler returns a JSON handler for format "json" and a text handler
// otherwise.
func NewHandler(w io.Writer, level slog.Level, format string) slog.Handler {
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey && a.Value.Any() == LevelTrace {
				a.Value = slog.StringValue("TRACE")
			}
			return a
		},
	}
	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// Enabled reports whether c logs.
func Enabled(c Category) bool {
	m := *enabled.Load()
	return m[All] || m[c]
}

// Log writes a debug record tagged with c when c is enabled.
func Log(c Category, msg string, args ...any) {
	if Enabled(c) {
		slog.Debug(msg, append([]any{"debug", string(c)}, args...)...)
	}
}

// Trace is Log at LevelTrace.
func Trace(c Category, msg string, args ...any) {
	if Enabled(c) {
		slog.Log(nil, LevelTrace, msg, append([]any{"debug", string(c)}, args...)...)
	}
}

// ParseLevel maps a level name to a slog.Level. Unknown names mean info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Truncate shortens s to at most n bytes without splitting a rune and marks
// the cut with "...".
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

func set(m map[Category]bool) { enabled.Store(&m) }

func parseCategories(s string) map[Category]bool {
	m := map[Category]bool{}
	for _, part := range strings.Split(s, ",") {
		if c := strings.ToLower(strings.TrimSpace(part)); c != "" {
			m[Category(c)] = true
		}
	}
	return m
}
