package auth

import (
	"context"
	"errors"
	"net/http"
)

// Decision is an authenticator's vote on a request.
type Decision int

const (
	// Abstain passes the request to the next authenticator. It is the zero
	// value so that an empty Result never grants access.
	Abstain Decision = iota
	// Grant accepts the request with the attached identity.
	Grant
	// Deny rejects the request without consulting later authenticators.
	Deny
)

func (d Decision) String() string {
	switch d {
	case Grant:
		return "grant"
	case Deny:
		return "deny"
	default:
		return "abstain"
	}
}

// Result is the outcome of one authentication attempt.
type Result struct {
	Decision Decision
	Identity *Identity
	Err      error
}

// Granted returns a Result accepting id.
func Granted(id *Identity) Result { return Result{Decision: Grant, Identity: id} }

// Denied returns a Result rejecting the request with err.
func Denied(err error) Result { return Result{Decision: Deny, Err: err} }

// Abstained returns a Result that defers to the next authenticator.
func Abstained() Result { return Result{} }

// Authenticator inspects the credentials on a request.
type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) Result
}

// AuthenticatorFunc adapts a function to the Authenticator interface.
type AuthenticatorFunc func(ctx context.Context, r *http.Request) Result

// Authenticate calls f(ctx, r).
func (f AuthenticatorFunc) Authenticate(ctx context.Context, r *http.Request) Result {
	return f(ctx, r)
}

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrTooManyRequests = errors.New("rate limit exceeded")
)

// Chain asks its authenticators in order. The first Grant or Deny wins; a
// request every authenticator abstains on is denied.
type Chain struct {
	authenticators []Authenticator
}

// NewChain returns a chain over authns. Put an anonymous authenticator last
// to accept requests without credentials.
func NewChain(authns ...Authenticator) *Chain {
	return &Chain{authenticators: authns}
}

// Authenticate implements Authenticator, so chains nest.
func (c *Chain) Authenticate(ctx context.Context, r *http.Request) Result {
	for _, a := range c.authenticators {
		if res := a.Authenticate(ctx, r); res.Decision != Abstain {
			return res
		}
	}
	return Denied(ErrUnauthenticated)
}
