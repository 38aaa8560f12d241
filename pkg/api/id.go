package api

import (
	"github.com/google/uuid"
)

// NewArtifactID generates a random, collision-resistant artifact ID
// (a version 4 UUID in canonical form). Concurrent writers rely on these
// IDs instead of locking the shared artifact store.
func NewArtifactID() string {
	return uuid.NewString()
}

// ValidateArtifactID checks whether the given string is a canonical
// version 4 UUID. Retrieval endpoints reject anything else before
// touching the artifact store, which also rules out path traversal.
func ValidateArtifactID(id string) bool {
	if len(id) != 36 {
		return false
	}
	u, err := uuid.Parse(id)
	if err != nil {
		return false
	}
	return u.Version() == 4 && u.String() == id
}
