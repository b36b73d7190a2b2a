// Package blobstore stores opaque named blobs such as fitted model artifacts.
//
// # Built-in Implementations
//
//   - MemoryStore: in-process map, for tests and one-shot runs
//   - LocalStore: local filesystem directory
//   - s3.Store: Amazon S3 or any S3-compatible endpoint
//   - minio.Store: MinIO
//
// Implementations must be safe for concurrent use.
package blobstore

import (
	"context"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies `errors.Is(err, ErrNotFound)`.
var ErrNotFound = os.ErrNotExist

// Store is a flat namespace of immutable blobs. Names use forward slashes.
type Store interface {
	// Put writes a blob atomically, replacing any existing blob of that name.
	Put(ctx context.Context, name string, data []byte) error
	// Get reads a whole blob.
	Get(ctx context.Context, name string) ([]byte, error)
	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error
	// List returns the sorted names of all blobs starting with prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}
