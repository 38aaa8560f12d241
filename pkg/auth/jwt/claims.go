package jwt

import (
	"fmt"
	"strings"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/rhuss/codeinterp/pkg/auth"
)

func identityFromClaims(claims jwtlib.MapClaims, cfg Config) (*auth.Identity, error) {
	subject := stringClaim(claims, cfg.UserClaim)
	if subject == "" {
		return nil, fmt.Errorf("JWT missing %q claim", cfg.UserClaim)
	}
	return &auth.Identity{
		Subject:     subject,
		ServiceTier: stringClaim(claims, cfg.TierClaim),
		Scopes:      scopesClaim(claims, cfg.ScopesClaim),
	}, nil
}

func stringClaim(claims jwtlib.MapClaims, name string) string {
	s, _ := claims[name].(string)
	return s
}

// scopesClaim accepts both a space separated string and an array of strings.
func scopesClaim(claims jwtlib.MapClaims, name string) []string {
	var scopes []string
	switch v := claims[name].(type) {
	case string:
		scopes = strings.Fields(v)
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				scopes = append(scopes, s)
			}
		}
	}
	if len(scopes) == 0 {
		return nil
	}
	return scopes
}
