// Package auth guards the code interpreter endpoints.
//
// Authenticators vote Grant, Deny or Abstain on each request and a Chain
// takes the first non-abstaining vote. The Guard runs the chain in front of
// the HTTP adapter, applies the per-tier submission rate limit and stores
// the caller's Identity on the request context. Liveness and metrics
// endpoints are never guarded.
package auth
