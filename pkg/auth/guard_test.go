package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rhuss/codeinterp/pkg/api"
	"github.com/rhuss/codeinterp/pkg/transport"
)

func serve(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

func TestGuardStatuses(t *testing.T) {
	alice := Granted(&Identity{Subject: "alice"})

	tests := []struct {
		name       string
		authn      Authenticator
		method     string
		path       string
		wantStatus int
		wantType   api.ErrorType
	}{
		{"health bypass", NewChain(), "GET", "/health", http.StatusOK, ""},
		{"liveness bypass", NewChain(), "GET", "/healthz", http.StatusOK, ""},
		{"metrics bypass", NewChain(), "GET", "/metrics", http.StatusOK, ""},
		{"preflight", NewChain(), "OPTIONS", "/run", http.StatusOK, ""},
		{"no credentials", NewChain(), "POST", "/run", http.StatusUnauthorized, api.ErrorTypeInvalidRequest},
		{"artifact guarded", NewChain(), "GET", "/images/temp/abc.png", http.StatusUnauthorized, api.ErrorTypeInvalidRequest},
		{"granted", vote(alice), "POST", "/run", http.StatusOK, ""},
		{"grant without subject", vote(Granted(&Identity{})), "POST", "/run", http.StatusInternalServerError, api.ErrorTypeServerError},
		{"grant without identity", vote(Result{Decision: Grant}), "POST", "/run", http.StatusUnauthorized, api.ErrorTypeInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewGuard(tt.authn, nil, DefaultBypassEndpoints...).Wrap(okHandler)
			rec := serve(t, h, tt.method, tt.path)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantType == "" {
				return
			}
			var resp api.ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Error.Type != tt.wantType {
				t.Errorf("type = %q, want %q", resp.Error.Type, tt.wantType)
			}
			if tt.wantStatus == http.StatusUnauthorized {
				if resp.Error.Code != api.CodeUnauthenticated {
					t.Errorf("code = %q", resp.Error.Code)
				}
				if got := rec.Header().Get("WWW-Authenticate"); got != "Bearer" {
					t.Errorf("WWW-Authenticate = %q", got)
				}
			}
		})
	}
}

func TestGuardStoresIdentity(t *testing.T) {
	var subject, caller string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := FromContext(r.Context()); ok {
			subject = id.Subject
		}
		caller = transport.CallerFromContext(r.Context())
	})

	h := NewGuard(vote(Granted(&Identity{Subject: "alice", ServiceTier: "gold"})), nil).Wrap(next)
	serve(t, h, "POST", "/run")

	if subject != "alice" || caller != "alice" {
		t.Errorf("subject = %q, caller = %q", subject, caller)
	}
}

func TestGuardRateLimit(t *testing.T) {
	limiter := NewInProcessLimiter(map[string]int{"trial": 2}, 100)
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return fixed }

	h := NewGuard(vote(Granted(&Identity{Subject: "alice", ServiceTier: "trial"})), limiter).Wrap(okHandler)

	var got []int
	for range 3 {
		got = append(got, serve(t, h, "POST", "/run").Code)
	}
	want := []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("statuses = %v, want %v", got, want)
			break
		}
	}
}

func TestInProcessLimiter(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewInProcessLimiter(map[string]int{"internal": 0}, 60)
	limiter.now = func() time.Time { return now }
	bob := &Identity{Subject: "bob"}

	for i := range 60 {
		if err := limiter.Allow(t.Context(), bob); err != nil {
			t.Fatalf("request %d: %v", i+1, err)
		}
	}
	if err := limiter.Allow(t.Context(), bob); err != ErrTooManyRequests {
		t.Fatalf("burst exhausted: err = %v", err)
	}
	if err := limiter.Allow(t.Context(), &Identity{Subject: "carol"}); err != nil {
		t.Errorf("separate bucket per subject: %v", err)
	}

	now = now.Add(time.Second)
	if err := limiter.Allow(t.Context(), bob); err != nil {
		t.Errorf("one token per second at 60 rpm: %v", err)
	}

	svc := &Identity{Subject: "svc", ServiceTier: "internal"}
	for range 200 {
		if err := limiter.Allow(t.Context(), svc); err != nil {
			t.Fatalf("unlimited tier limited: %v", err)
		}
	}
}
