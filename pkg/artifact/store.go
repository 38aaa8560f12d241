package artifact

import (
	"context"
	"errors"
	"fmt"

	"github.com/rhuss/codeinterp/pkg/api"
	"github.com/rhuss/codeinterp/pkg/observability"
)

// ErrNotFound is returned when an artifact does not exist or was evicted.
var ErrNotFound = errors.New("artifact not found")

// Store persists and retrieves artifact bytes.
type Store interface {
	// Put stores data under the kind and id. Put must be safe for concurrent
	// use with distinct ids.
	Put(ctx context.Context, kind api.ArtifactKind, id string, data []byte) error

	// Get returns the stored bytes, or ErrNotFound.
	Get(ctx context.Context, kind api.ArtifactKind, id string) ([]byte, error)

	// HealthCheck reports whether the store is usable.
	HealthCheck(ctx context.Context) error
}

// Persist stores data under a fresh artifact id and returns the addressable
// artifact. The artifact is only returned once the write has completed.
func Persist(ctx context.Context, s Store, kind api.ArtifactKind, data []byte) (api.Artifact, error) {
	id := api.NewArtifactID()
	if err := s.Put(ctx, kind, id, data); err != nil {
		observability.ArtifactsFailed.WithLabelValues(string(kind)).Inc()
		return api.Artifact{}, fmt.Errorf("persisting %s artifact: %w", kind, err)
	}
	observability.ArtifactsPersisted.WithLabelValues(string(kind)).Inc()
	return api.NewArtifact(kind, id), nil
}

// FileName returns the object name an artifact is stored under.
func FileName(kind api.ArtifactKind, id string) string {
	return id + kind.Extension()
}
