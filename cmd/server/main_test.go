package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rhuss/codeinterp/pkg/artifact/filestore"
	"github.com/rhuss/codeinterp/pkg/artifact/memstore"
	"github.com/rhuss/codeinterp/pkg/config"
	"github.com/rhuss/codeinterp/pkg/warehouse/httpapi"
	"github.com/rhuss/codeinterp/pkg/warehouse/sqlite"
)

func TestBuildArtifactStore(t *testing.T) {
	ctx := context.Background()

	s, err := buildArtifactStore(ctx, config.ArtifactsConfig{Type: "memory"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*memstore.Store); !ok {
		t.Errorf("memory: got %T", s)
	}

	s, err = buildArtifactStore(ctx, config.ArtifactsConfig{Type: "dir", Dir: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*filestore.Store); !ok {
		t.Errorf("dir: got %T", s)
	}

	if _, err := buildArtifactStore(ctx, config.ArtifactsConfig{Type: "tape"}); err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestBuildWarehouse(t *testing.T) {
	b, err := buildWarehouse(config.WarehouseConfig{Type: "none"})
	if err != nil || b != nil {
		t.Errorf("none: got %v, %v", b, err)
	}

	b, err = buildWarehouse(config.WarehouseConfig{Type: "http", HTTP: config.HTTPWarehouseConfig{URL: "http://localhost:9000/query"}})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := b.(*httpapi.Backend); !ok {
		t.Errorf("http: got %T", b)
	}

	b, err = buildWarehouse(config.WarehouseConfig{Type: "sqlite", SQLite: config.SQLiteWarehouseConfig{Dir: t.TempDir()}})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := b.(*sqlite.Backend); !ok {
		t.Errorf("sqlite: got %T", b)
	}
	b.Close()

	if _, err := buildWarehouse(config.WarehouseConfig{Type: "oracle"}); err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestBuildAuth(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	t.Run("none without rate limit", func(t *testing.T) {
		cfg := config.Defaults()
		mw, err := buildAuth(&cfg)
		if err != nil || mw != nil {
			t.Errorf("got middleware=%v err=%v, want none", mw != nil, err)
		}
	})

	t.Run("api keys", func(t *testing.T) {
		cfg := config.Defaults()
		cfg.Auth.Type = "apikey"
		cfg.Auth.APIKeys = []config.APIKeyConfig{{Key: "sk-1", Subject: "alice"}}
		mw, err := buildAuth(&cfg)
		if err != nil {
			t.Fatal(err)
		}
		h := mw(ok)

		tests := []struct {
			path   string
			header string
			want   int
		}{
			{"/run", "Bearer sk-1", http.StatusOK},
			{"/run", "Bearer sk-2", http.StatusUnauthorized},
			{"/run", "", http.StatusUnauthorized},
			{"/healthz", "", http.StatusOK},
			{"/metrics", "", http.StatusOK},
		}
		for _, tt := range tests {
			r := httptest.NewRequest(http.MethodPost, tt.path, nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, r)
			if rec.Code != tt.want {
				t.Errorf("%s %q: status = %d, want %d", tt.path, tt.header, rec.Code, tt.want)
			}
		}
	})

	t.Run("rate limit without auth", func(t *testing.T) {
		cfg := config.Defaults()
		cfg.Auth.RateLimit.RequestsPerMinute = 1
		mw, err := buildAuth(&cfg)
		if err != nil {
			t.Fatal(err)
		}
		h := mw(ok)

		codes := make([]int, 2)
		for i := range codes {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/run", nil))
			codes[i] = rec.Code
		}
		if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
			t.Errorf("codes = %v, want [200 429]", codes)
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		cfg := config.Defaults()
		cfg.Auth.Type = "kerberos"
		if _, err := buildAuth(&cfg); err == nil {
			t.Error("expected error")
		}
	})
}
