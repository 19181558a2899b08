// Package storage publishes export artifacts to an object store so
// downstream analytics tools can fetch them without filesystem access to
// the exporting host.
package storage

import (
	"context"
)

// ArtifactStore abstracts object storage for export artifacts.
// Implementations include S3 and the local filesystem.
type ArtifactStore interface {
	// Put uploads a local artifact to the store.
	Put(ctx context.Context, localPath, objectPath string) error

	// Fetch downloads an artifact from the store to a local path.
	Fetch(ctx context.Context, objectPath, localPath string) error

	// Exists reports whether an artifact exists in the store.
	Exists(ctx context.Context, objectPath string) (bool, error)

	// Delete removes an artifact from the store. Deleting a missing
	// artifact is not an error.
	Delete(ctx context.Context, objectPath string) error

	// List returns all artifact paths under the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}
