// Package noop grants every request a fixed identity. Placed last in a chain
// it admits callers without credentials, which keeps per-tier rate limiting
// usable when authentication is off.
package noop

import (
	"context"
	"net/http"

	"github.com/rhuss/codeinterp/pkg/auth"
)

// AnonymousSubject is the subject granted when none is configured.
const AnonymousSubject = "anonymous"

// Authenticator always votes Grant.
type Authenticator struct {
	identity auth.Identity
}

// New returns an authenticator granting id. An empty subject becomes
// AnonymousSubject.
func New(id auth.Identity) *Authenticator {
	if id.Subject == "" {
		id.Subject = AnonymousSubject
	}
	return &Authenticator{identity: id}
}

func (a *Authenticator) Authenticate(context.Context, *http.Request) auth.Result {
	id := a.identity
	return auth.Granted(&id)
}
