package jwt

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/rhuss/codeinterp/pkg/auth"
)

const (
	testKID    = "signing-1"
	testIssuer = "https://auth.example.com"
	testAud    = "codeinterp"
)

var signingKey, otherKey *rsa.PrivateKey

func init() {
	for _, k := range []**rsa.PrivateKey{&signingKey, &otherKey} {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
		*k = key
	}
}

// jwksServer publishes signingKey next to keys that must be skipped.
func jwksServer(t *testing.T, fetches *atomic.Int32) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fetches.Add(1)
		pub := signingKey.PublicKey
		json.NewEncoder(w).Encode(map[string]any{"keys": []map[string]string{
			{"kty": "EC", "kid": "ec-1", "crv": "P-256"},
			{"kty": "RSA", "kid": "enc-1", "use": "enc", "n": "AQAB", "e": "AQAB"},
			{
				"kty": "RSA", "kid": testKID, "use": "sig",
				"n": base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
				"e": base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
			},
		}})
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func signRSA(t *testing.T, key *rsa.PrivateKey, kid string, claims jwtlib.MapClaims) string {
	t.Helper()
	tok := jwtlib.NewWithClaims(jwtlib.SigningMethodRS256, claims)
	if kid != "" {
		tok.Header["kid"] = kid
	}
	s, err := tok.SignedString(key)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func signHMAC(t *testing.T, secret []byte, claims jwtlib.MapClaims) string {
	t.Helper()
	s, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// claims returns a valid claim set with the given overrides; a nil value
// removes the claim.
func claims(overrides map[string]any) jwtlib.MapClaims {
	c := jwtlib.MapClaims{
		"sub": "user-123",
		"iss": testIssuer,
		"aud": testAud,
		"exp": time.Now().Add(time.Hour).Unix(),
		"iat": time.Now().Unix(),
	}
	for k, v := range overrides {
		if v == nil {
			delete(c, k)
		} else {
			c[k] = v
		}
	}
	return c
}

func authenticate(a *Authenticator, header string) auth.Result {
	r := httptest.NewRequest("POST", "/run", nil)
	if header != "" {
		r.Header.Set("Authorization", header)
	}
	return a.Authenticate(context.Background(), r)
}

func TestRSAVerification(t *testing.T) {
	var fetches atomic.Int32
	a := New(Config{Issuer: testIssuer, Audience: testAud, JWKSURL: jwksServer(t, &fetches)})

	tests := []struct {
		name   string
		header string
		want   auth.Decision
	}{
		{"valid", "Bearer " + signRSA(t, signingKey, testKID, claims(nil)), auth.Grant},
		{"expired", "Bearer " + signRSA(t, signingKey, testKID, claims(map[string]any{"exp": time.Now().Add(-time.Minute).Unix()})), auth.Deny},
		{"missing exp", "Bearer " + signRSA(t, signingKey, testKID, claims(map[string]any{"exp": nil})), auth.Deny},
		{"wrong issuer", "Bearer " + signRSA(t, signingKey, testKID, claims(map[string]any{"iss": "https://evil.example.com"})), auth.Deny},
		{"wrong audience", "Bearer " + signRSA(t, signingKey, testKID, claims(map[string]any{"aud": "other"})), auth.Deny},
		{"missing subject", "Bearer " + signRSA(t, signingKey, testKID, claims(map[string]any{"sub": nil})), auth.Deny},
		{"foreign key", "Bearer " + signRSA(t, otherKey, testKID, claims(nil)), auth.Deny},
		{"unknown kid", "Bearer " + signRSA(t, signingKey, "rotated-away", claims(nil)), auth.Deny},
		{"encryption key", "Bearer " + signRSA(t, signingKey, "enc-1", claims(nil)), auth.Deny},
		{"no kid", "Bearer " + signRSA(t, signingKey, "", claims(nil)), auth.Deny},
		{"hmac token", "Bearer " + signHMAC(t, []byte("secret"), claims(nil)), auth.Deny},
		{"garbage", "Bearer not.a.jwt", auth.Deny},
		{"empty bearer", "Bearer ", auth.Deny},
		{"no header", "", auth.Abstain},
		{"basic scheme", "Basic dXNlcjpwYXNz", auth.Abstain},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := authenticate(a, tt.header)
			if res.Decision != tt.want {
				t.Fatalf("Decision = %v, want %v (err %v)", res.Decision, tt.want, res.Err)
			}
			if tt.want == auth.Grant && res.Identity.Subject != "user-123" {
				t.Errorf("Subject = %q", res.Identity.Subject)
			}
			if tt.want == auth.Deny && res.Err == nil {
				t.Error("deny without error")
			}
		})
	}
}

func TestJWKSCached(t *testing.T) {
	var fetches atomic.Int32
	a := New(Config{JWKSURL: jwksServer(t, &fetches)})
	header := "Bearer " + signRSA(t, signingKey, testKID, claims(nil))

	for i := range 5 {
		if res := authenticate(a, header); res.Decision != auth.Grant {
			t.Fatalf("request %d: %v (err %v)", i, res.Decision, res.Err)
		}
	}
	if n := fetches.Load(); n != 1 {
		t.Errorf("JWKS fetched %d times, want 1", n)
	}
}

func TestJWKSRefreshedAfterTTL(t *testing.T) {
	var fetches atomic.Int32
	a := New(Config{JWKSURL: jwksServer(t, &fetches), CacheTTL: time.Nanosecond})
	header := "Bearer " + signRSA(t, signingKey, testKID, claims(nil))

	for range 2 {
		if res := authenticate(a, header); res.Decision != auth.Grant {
			t.Fatalf("Decision = %v (err %v)", res.Decision, res.Err)
		}
		time.Sleep(time.Millisecond)
	}
	if n := fetches.Load(); n != 2 {
		t.Errorf("JWKS fetched %d times, want 2", n)
	}
}

func TestJWKSUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	a := New(Config{JWKSURL: srv.URL})
	res := authenticate(a, "Bearer "+signRSA(t, signingKey, testKID, claims(nil)))
	if res.Decision != auth.Deny {
		t.Errorf("Decision = %v, want deny", res.Decision)
	}
}

func TestHMACVerification(t *testing.T) {
	secret := []byte("shared-secret")
	a := New(Config{Secret: secret, Issuer: testIssuer})

	tests := []struct {
		name   string
		header string
		want   auth.Decision
	}{
		{"valid", "Bearer " + signHMAC(t, secret, claims(nil)), auth.Grant},
		{"wrong secret", "Bearer " + signHMAC(t, []byte("guess"), claims(nil)), auth.Deny},
		{"rsa token", "Bearer " + signRSA(t, signingKey, testKID, claims(nil)), auth.Deny},
		{"missing exp", "Bearer " + signHMAC(t, secret, claims(map[string]any{"exp": nil})), auth.Deny},
		{"wrong issuer", "Bearer " + signHMAC(t, secret, claims(map[string]any{"iss": "other"})), auth.Deny},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if res := authenticate(a, tt.header); res.Decision != tt.want {
				t.Errorf("Decision = %v, want %v (err %v)", res.Decision, tt.want, res.Err)
			}
		})
	}
}

func TestOptionalIssuerAndAudience(t *testing.T) {
	secret := []byte("s")
	a := New(Config{Secret: secret})
	token := signHMAC(t, secret, claims(map[string]any{"iss": nil, "aud": nil}))
	if res := authenticate(a, "Bearer "+token); res.Decision != auth.Grant {
		t.Errorf("Decision = %v (err %v)", res.Decision, res.Err)
	}
}

func TestIdentityClaims(t *testing.T) {
	secret := []byte("s")

	tests := []struct {
		name        string
		cfg         Config
		overrides   map[string]any
		wantSubject string
		wantTier    string
		wantScopes  []string
	}{
		{
			name:        "defaults",
			overrides:   map[string]any{"tier": "batch", "scope": "read  write"},
			wantSubject: "user-123",
			wantTier:    "batch",
			wantScopes:  []string{"read", "write"},
		},
		{
			name:        "scope array",
			overrides:   map[string]any{"scope": []any{"read", 7, "", "admin"}},
			wantSubject: "user-123",
			wantTier:    auth.DefaultTier,
			wantScopes:  []string{"read", "admin"},
		},
		{
			name:        "custom claim names",
			cfg:         Config{UserClaim: "email", TierClaim: "plan", ScopesClaim: "permissions"},
			overrides:   map[string]any{"email": "alice@example.com", "plan": "gold", "permissions": "run"},
			wantSubject: "alice@example.com",
			wantTier:    "gold",
			wantScopes:  []string{"run"},
		},
		{
			name:        "non-string tier ignored",
			overrides:   map[string]any{"tier": 3},
			wantSubject: "user-123",
			wantTier:    auth.DefaultTier,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			cfg.Secret = secret
			res := authenticate(New(cfg), "Bearer "+signHMAC(t, secret, claims(tt.overrides)))
			if res.Decision != auth.Grant {
				t.Fatalf("Decision = %v (err %v)", res.Decision, res.Err)
			}
			id := res.Identity
			if id.Subject != tt.wantSubject || id.Tier() != tt.wantTier {
				t.Errorf("identity = %+v", id)
			}
			if len(id.Scopes) != len(tt.wantScopes) {
				t.Fatalf("Scopes = %v, want %v", id.Scopes, tt.wantScopes)
			}
			for i := range tt.wantScopes {
				if id.Scopes[i] != tt.wantScopes[i] {
					t.Errorf("Scopes = %v, want %v", id.Scopes, tt.wantScopes)
				}
			}
		})
	}
}
