// Package jwt authenticates bearer JWTs. Signatures are checked with a
// shared HMAC secret or with the RSA keys published at a JWKS endpoint.
package jwt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/rhuss/codeinterp/pkg/auth"
)

// Config configures an Authenticator. Either Secret or JWKSURL must be set;
// Secret wins when both are.
type Config struct {
	Issuer   string // checked against iss when set
	Audience string // checked against aud when set

	Secret  []byte
	JWKSURL string

	// Claim names. Defaults: "sub", "tier", "scope".
	UserClaim   string
	TierClaim   string
	ScopesClaim string

	CacheTTL   time.Duration // JWKS refresh interval, default 1h
	HTTPClient *http.Client
}

func (c Config) withDefaults() Config {
	if c.UserClaim == "" {
		c.UserClaim = "sub"
	}
	if c.TierClaim == "" {
		c.TierClaim = "tier"
	}
	if c.ScopesClaim == "" {
		c.ScopesClaim = "scope"
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = time.Hour
	}
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
	return c
}

// Authenticator validates bearer JWTs.
type Authenticator struct {
	cfg    Config
	keys   *keySet
	parser *jwtlib.Parser
}

// New returns an authenticator for cfg.
func New(cfg Config) *Authenticator {
	cfg = cfg.withDefaults()

	methods := []string{"RS256", "RS384", "RS512"}
	if len(cfg.Secret) > 0 {
		methods = []string{"HS256", "HS384", "HS512"}
	}
	opts := []jwtlib.ParserOption{
		jwtlib.WithValidMethods(methods),
		jwtlib.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwtlib.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwtlib.WithAudience(cfg.Audience))
	}

	return &Authenticator{
		cfg:    cfg,
		keys:   newKeySet(cfg.JWKSURL, cfg.HTTPClient, cfg.CacheTTL),
		parser: jwtlib.NewParser(opts...),
	}
}

// Authenticate abstains unless the request carries a Bearer token. A token
// that fails verification or lacks a subject is denied.
func (a *Authenticator) Authenticate(ctx context.Context, r *http.Request) auth.Result {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return auth.Abstained()
	}
	if raw = strings.TrimSpace(raw); raw == "" {
		return auth.Denied(errors.New("empty bearer token"))
	}

	claims := jwtlib.MapClaims{}
	_, err := a.parser.ParseWithClaims(raw, claims, func(tok *jwtlib.Token) (any, error) {
		return a.verificationKey(ctx, tok)
	})
	if err != nil {
		slog.Debug("jwt rejected", "error", err)
		return auth.Denied(fmt.Errorf("invalid JWT: %w", err))
	}

	id, err := identityFromClaims(claims, a.cfg)
	if err != nil {
		return auth.Denied(err)
	}
	return auth.Granted(id)
}

func (a *Authenticator) verificationKey(ctx context.Context, tok *jwtlib.Token) (any, error) {
	if len(a.cfg.Secret) > 0 {
		return a.cfg.Secret, nil
	}
	kid, _ := tok.Header["kid"].(string)
	if kid == "" {
		return nil, errors.New("token has no kid header")
	}
	return a.keys.key(ctx, kid)
}
