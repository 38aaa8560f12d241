// Package transport defines the contract between the network surfaces
// (HTTP, MCP) and the execution engine, plus the middleware chain that
// wraps it.
//
// # Handler Interfaces
//
//   - Runner executes one code submission and returns its report.
//   - ArtifactReader serves persisted figures and datasets back to clients.
//
// Code-level failures never surface as errors here; they are part of the
// report. Errors returned by a Runner are request or service faults, usually
// an *api.APIError.
//
// # Middleware
//
// Built-in middleware provides panic recovery, request ID assignment
// (X-Request-ID) and structured logging via log/slog. A Tracker holds the
// submissions whose requests are still open so shutdown can release them.
package transport
