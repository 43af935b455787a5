// Package storage defines the backend used for pre-purge metadata backups.
// Before the retention sweep permanently deletes a pipeline, its metadata
// snapshot is written here so an operator can recover it manually. Backends:
// local filesystem and S3-compatible object storage (AWS S3, MinIO).
package storage

import (
	"context"
	"io"
)

// Storage is the interface every backup backend implements.
type Storage interface {
	// PutObject writes a backup archive.
	// key: object key in format "{pipelineID}/{timestamp}.json"
	PutObject(ctx context.Context, key string, data io.Reader, contentType string, size int64) error

	// GetObject retrieves a backup archive.
	// Returns a ReadCloser that must be closed by the caller.
	GetObject(ctx context.Context, key string) (io.ReadCloser, error)

	// DeleteObject removes a backup archive. Deleting an absent object
	// is not an error.
	DeleteObject(ctx context.Context, key string) error

	// ObjectExists checks if a backup archive exists.
	ObjectExists(ctx context.Context, key string) (bool, error)

	// Type returns the storage type identifier ("local" or "s3").
	Type() string
}
