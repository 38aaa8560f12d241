// Package apikey authenticates static API keys sent as X-API-Key or as a
// Bearer token. Keys are kept only as SHA-256 digests.
package apikey

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/rhuss/codeinterp/pkg/auth"
)

// HeaderName carries a raw API key. It takes precedence over Authorization.
const HeaderName = "X-API-Key"

// Key binds a plaintext key to the identity it grants.
type Key struct {
	Secret   string
	Identity auth.Identity
}

type entry struct {
	digest   [sha256.Size]byte
	identity auth.Identity
}

// Authenticator checks presented keys against a fixed set.
type Authenticator struct {
	entries []entry
}

// New hashes keys and discards the plaintext.
func New(keys ...Key) *Authenticator {
	a := &Authenticator{entries: make([]entry, 0, len(keys))}
	for _, k := range keys {
		a.entries = append(a.entries, entry{digest: sha256.Sum256([]byte(k.Secret)), identity: k.Identity})
	}
	return a
}

// Authenticate abstains when no key is presented and denies unknown keys.
func (a *Authenticator) Authenticate(_ context.Context, r *http.Request) auth.Result {
	presented, ok := credential(r)
	if !ok {
		return auth.Abstained()
	}
	if presented == "" {
		return auth.Denied(auth.ErrUnauthenticated)
	}

	digest := sha256.Sum256([]byte(presented))
	var found *entry
	for i := range a.entries {
		// Compare against all entries; the loop must not exit early.
		if subtle.ConstantTimeCompare(digest[:], a.entries[i].digest[:]) == 1 && found == nil {
			found = &a.entries[i]
		}
	}
	if found == nil {
		return auth.Denied(auth.ErrUnauthenticated)
	}
	id := found.identity
	return auth.Granted(&id)
}

func credential(r *http.Request) (string, bool) {
	if v := r.Header.Values(HeaderName); len(v) > 0 {
		return strings.TrimSpace(v[0]), true
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return strings.TrimSpace(token), ok
}
