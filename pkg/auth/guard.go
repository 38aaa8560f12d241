package auth

import (
	"log/slog"
	"net/http"

	"github.com/rhuss/codeinterp/pkg/api"
	"github.com/rhuss/codeinterp/pkg/debug"
	"github.com/rhuss/codeinterp/pkg/observability"
	"github.com/rhuss/codeinterp/pkg/transport"
)

// DefaultBypassEndpoints are served without credentials.
var DefaultBypassEndpoints = []string{"/health", "/healthz", "/metrics"}

// Guard authenticates and rate limits requests before they reach the API.
type Guard struct {
	authn   Authenticator
	limiter RateLimiter // nil disables rate limiting
	bypass  map[string]struct{}
	logger  *slog.Logger
}

// NewGuard returns a guard that asks authn about every request whose path is
// not in bypass. CORS preflight requests are never guarded.
func NewGuard(authn Authenticator, limiter RateLimiter, bypass ...string) *Guard {
	g := &Guard{
		authn:   authn,
		limiter: limiter,
		bypass:  make(map[string]struct{}, len(bypass)),
		logger:  slog.Default().With("component", "auth"),
	}
	for _, p := range bypass {
		g.bypass[p] = struct{}{}
	}
	return g
}

// Wrap returns next behind the guard.
func (g *Guard) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := g.bypass[r.URL.Path]; ok || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		id, apiErr := g.admit(r)
		if apiErr != nil {
			if apiErr.Code == api.CodeUnauthenticated {
				w.Header().Set("WWW-Authenticate", "Bearer")
			}
			transport.WriteError(w, apiErr)
			return
		}

		ctx := WithIdentity(r.Context(), id)
		ctx = transport.ContextWithCaller(ctx, id.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (g *Guard) admit(r *http.Request) (*Identity, *api.APIError) {
	res := g.authn.Authenticate(r.Context(), r)
	if res.Decision != Grant || res.Identity == nil {
		g.logger.Warn("request rejected",
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"decision", res.Decision.String(),
			"error", res.Err,
		)
		observability.AuthRejectedTotal.Inc()
		return nil, api.NewUnauthenticatedError(ErrUnauthenticated.Error())
	}

	id := res.Identity
	if id.Subject == "" {
		g.logger.Error("authenticator granted an identity without subject", "path", r.URL.Path)
		return nil, api.NewServerError("internal authentication error")
	}

	if g.limiter != nil {
		if err := g.limiter.Allow(r.Context(), id); err != nil {
			g.logger.Warn("rate limit exceeded", "subject", id.Subject, "tier", id.Tier())
			observability.RateLimitRejectedTotal.WithLabelValues(id.Tier()).Inc()
			return nil, api.NewTooManyRequestsError(err.Error())
		}
	}

	debug.Log(debug.Auth, "request admitted", "subject", id.Subject, "tier", id.Tier(), "path", r.URL.Path)
	return id, nil
}
