package apikey

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/rhuss/codeinterp/pkg/auth"
)

func TestAuthenticate(t *testing.T) {
	a := New(
		Key{Secret: "sk-alice", Identity: auth.Identity{Subject: "alice", ServiceTier: "standard"}},
		Key{Secret: "sk-bob", Identity: auth.Identity{Subject: "bob", ServiceTier: "premium", Scopes: []string{"run"}}},
	)

	tests := []struct {
		name        string
		headers     map[string]string
		want        auth.Decision
		wantSubject string
		wantTier    string
	}{
		{"bearer key", map[string]string{"Authorization": "Bearer sk-alice"}, auth.Grant, "alice", "standard"},
		{"second key", map[string]string{"Authorization": "Bearer sk-bob"}, auth.Grant, "bob", "premium"},
		{"x-api-key header", map[string]string{"X-API-Key": "sk-bob"}, auth.Grant, "bob", "premium"},
		{"x-api-key wins", map[string]string{"X-API-Key": "sk-bob", "Authorization": "Bearer sk-alice"}, auth.Grant, "bob", "premium"},
		{"padded key", map[string]string{"Authorization": "Bearer  sk-alice "}, auth.Grant, "alice", "standard"},
		{"unknown key", map[string]string{"Authorization": "Bearer sk-mallory"}, auth.Deny, "", ""},
		{"empty bearer", map[string]string{"Authorization": "Bearer "}, auth.Deny, "", ""},
		{"empty x-api-key", map[string]string{"X-API-Key": ""}, auth.Deny, "", ""},
		{"no credentials", nil, auth.Abstain, "", ""},
		{"basic auth", map[string]string{"Authorization": "Basic dXNlcjpwYXNz"}, auth.Abstain, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/run", nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			res := a.Authenticate(context.Background(), r)
			if res.Decision != tt.want {
				t.Fatalf("Decision = %v, want %v", res.Decision, tt.want)
			}
			if tt.want == auth.Deny && res.Err == nil {
				t.Error("deny without error")
			}
			if tt.want != auth.Grant {
				return
			}
			if res.Identity.Subject != tt.wantSubject || res.Identity.Tier() != tt.wantTier {
				t.Errorf("Identity = %+v", res.Identity)
			}
		})
	}
}

func TestGrantedIdentityIsACopy(t *testing.T) {
	a := New(Key{Secret: "sk-1", Identity: auth.Identity{Subject: "alice"}})
	r := httptest.NewRequest("POST", "/run", nil)
	r.Header.Set("Authorization", "Bearer sk-1")

	a.Authenticate(context.Background(), r).Identity.Subject = "mallory"
	if got := a.Authenticate(context.Background(), r).Identity.Subject; got != "alice" {
		t.Errorf("stored identity mutated to %q", got)
	}
}
