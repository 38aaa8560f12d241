// Package filestore stores artifacts as files in a single directory, named
// <id>.png and <id>.csv.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rhuss/codeinterp/pkg/api"
	"github.com/rhuss/codeinterp/pkg/artifact"
	"github.com/rhuss/codeinterp/pkg/debug"
)

// Store is a directory-backed artifact store.
type Store struct {
	dir string
}

var _ artifact.Store = (*Store)(nil)

// New returns a store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("artifact directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating artifact directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Put writes the artifact through a temp file and an atomic rename, so a
// concurrent reader never observes a partial file.
func (s *Store) Put(_ context.Context, kind api.ArtifactKind, id string, data []byte) error {
	if !api.ValidateArtifactID(id) {
		return fmt.Errorf("invalid artifact id %q", id)
	}
	tmp, err := os.CreateTemp(s.dir, ".artifact-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), s.path(kind, id)); err != nil {
		return err
	}
	debug.Log(debug.Artifact, "artifact written", "kind", kind, "id", id, "bytes", len(data))
	return nil
}

// Get reads the artifact file.
func (s *Store) Get(_ context.Context, kind api.ArtifactKind, id string) ([]byte, error) {
	if !api.ValidateArtifactID(id) {
		return nil, artifact.ErrNotFound
	}
	data, err := os.ReadFile(s.path(kind, id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, artifact.ErrNotFound
	}
	return data, err
}

// HealthCheck verifies the directory still exists.
func (s *Store) HealthCheck(_ context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", s.dir)
	}
	return nil
}

func (s *Store) path(kind api.ArtifactKind, id string) string {
	return filepath.Join(s.dir, artifact.FileName(kind, id))
}
