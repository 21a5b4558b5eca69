package bulkapp

import (
	"context"
	"time"
)

// ObjectStorageService abstracts the object store that holds generated
// bulk sheet artifacts and ingest reports.
type ObjectStorageService interface {
	// Upload writes an artifact under the given storage key.
	Upload(ctx context.Context, storageKey string, data []byte, contentType string) error

	// Download reads an artifact back by its storage key.
	Download(ctx context.Context, storageKey string) ([]byte, error)

	// GenerateDownloadURL returns a presigned URL for fetching an artifact.
	GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error)

	// DeleteObject removes an artifact.
	DeleteObject(ctx context.Context, storageKey string) error

	// ObjectExists reports whether an artifact is present.
	ObjectExists(ctx context.Context, storageKey string) (bool, error)
}
