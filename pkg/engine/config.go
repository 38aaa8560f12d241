package engine

import "time"

// Config holds configuration for the engine.
type Config struct {
	// Timeout is the per-submission deadline. Zero means 60s.
	Timeout time.Duration

	// MaxConcurrent is the worker pool size. Zero means 4.
	MaxConcurrent int

	// QueueTimeout bounds how long a submission waits for a worker slot
	// before it is rejected. Zero means wait as long as the caller does.
	QueueTimeout time.Duration

	// GracePeriod is how long an interrupted script may take to unwind.
	// Zero means the harness default.
	GracePeriod time.Duration

	// CaptureTimeout bounds the capture phase after a successful run
	// (figure rendering and object previews). Zero means 10s.
	CaptureTimeout time.Duration

	// RequireTarget rejects submissions without a query target.
	RequireTarget bool

	// MaxCodeSize caps the submitted code in bytes. Zero means 1 MiB.
	MaxCodeSize int
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return 60 * time.Second
	}
	return c.Timeout
}

func (c Config) captureTimeout() time.Duration {
	if c.CaptureTimeout <= 0 {
		return 10 * time.Second
	}
	return c.CaptureTimeout
}

func (c Config) maxConcurrent() int {
	if c.MaxConcurrent <= 0 {
		return 4
	}
	return c.MaxConcurrent
}
