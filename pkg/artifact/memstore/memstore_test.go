package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/rhuss/codeinterp/pkg/api"
	"github.com/rhuss/codeinterp/pkg/artifact"
)

func TestPutAndGet(t *testing.T) {
	s := New(0)
	ctx := context.Background()

	a, err := artifact.Persist(ctx, s, api.ArtifactDataset, []byte("a,b\n1,2\n"))
	if err != nil {
		t.Fatalf("Persist failed: %v", err)
	}

	got, err := s.Get(ctx, api.ArtifactDataset, a.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "a,b\n1,2\n" {
		t.Errorf("Get = %q", got)
	}
}

func TestGetNotFound(t *testing.T) {
	s := New(0)
	_, err := s.Get(context.Background(), api.ArtifactImage, api.NewArtifactID())
	if !errors.Is(err, artifact.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestKindIsPartOfKey(t *testing.T) {
	s := New(0)
	ctx := context.Background()
	id := api.NewArtifactID()
	s.Put(ctx, api.ArtifactImage, id, []byte("img"))

	if _, err := s.Get(ctx, api.ArtifactDataset, id); !errors.Is(err, artifact.ErrNotFound) {
		t.Errorf("expected ErrNotFound for other kind, got %v", err)
	}
}

func TestStoredBytesAreCopied(t *testing.T) {
	s := New(0)
	ctx := context.Background()
	id := api.NewArtifactID()
	data := []byte("abc")
	s.Put(ctx, api.ArtifactImage, id, data)
	data[0] = 'x'

	got, _ := s.Get(ctx, api.ArtifactImage, id)
	if string(got) != "abc" {
		t.Errorf("Get = %q, want %q", got, "abc")
	}
}

func TestLRUEviction(t *testing.T) {
	s := New(2)
	ctx := context.Background()
	a, b, c := api.NewArtifactID(), api.NewArtifactID(), api.NewArtifactID()

	s.Put(ctx, api.ArtifactImage, a, []byte("a"))
	s.Put(ctx, api.ArtifactImage, b, []byte("b"))

	// Touch a so b becomes the eviction candidate.
	if _, err := s.Get(ctx, api.ArtifactImage, a); err != nil {
		t.Fatalf("Get(a): %v", err)
	}
	s.Put(ctx, api.ArtifactImage, c, []byte("c"))

	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
	if _, err := s.Get(ctx, api.ArtifactImage, b); !errors.Is(err, artifact.ErrNotFound) {
		t.Errorf("expected b evicted, got %v", err)
	}
	if _, err := s.Get(ctx, api.ArtifactImage, a); err != nil {
		t.Errorf("expected a retained, got %v", err)
	}
}
