package storage

import (
	"context"
	"errors"
	"sync"
	"time"

	bulkapp "github.com/adsync/backend/internal/application/bulk"
)

// Ensure MemoryObjectStorage implements ObjectStorageService
var _ bulkapp.ObjectStorageService = (*MemoryObjectStorage)(nil)

// ErrObjectNotFound is returned when a storage key has no object behind it.
var ErrObjectNotFound = errors.New("storage: object not found")

// MemoryObjectStorage keeps artifacts in process memory.
// Use it for development and single-instance deployments without an
// S3-compatible backend. Artifacts do not survive a restart.
type MemoryObjectStorage struct {
	// BaseURL is the base URL for generated download URLs.
	BaseURL string

	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryObjectStorage creates an empty in-memory object store.
func NewMemoryObjectStorage() *MemoryObjectStorage {
	return &MemoryObjectStorage{
		BaseURL: "https://storage.example.com",
		objects: make(map[string][]byte),
	}
}

// Upload stores a copy of the artifact bytes under the given key.
func (s *MemoryObjectStorage) Upload(ctx context.Context, storageKey string, data []byte, contentType string) error {
	if storageKey == "" {
		return errors.New("storage key is required")
	}

	buf := make([]byte, len(data))
	copy(buf, data)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[storageKey] = buf
	return nil
}

// Download returns a copy of the artifact bytes stored under the key.
func (s *MemoryObjectStorage) Download(ctx context.Context, storageKey string) ([]byte, error) {
	if storageKey == "" {
		return nil, errors.New("storage key is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[storageKey]
	if !ok {
		return nil, ErrObjectNotFound
	}

	buf := make([]byte, len(data))
	copy(buf, data)
	return buf, nil
}

// GenerateDownloadURL generates a synthetic download URL for the artifact.
func (s *MemoryObjectStorage) GenerateDownloadURL(
	ctx context.Context,
	storageKey string,
	expiresIn time.Duration,
) (string, time.Time, error) {
	if storageKey == "" {
		return "", time.Time{}, errors.New("storage key is required")
	}

	s.mu.RLock()
	_, ok := s.objects[storageKey]
	s.mu.RUnlock()
	if !ok {
		return "", time.Time{}, ErrObjectNotFound
	}

	expiresAt := time.Now().Add(expiresIn)
	url := s.BaseURL + "/download/" + storageKey + "?expires=" + expiresAt.Format(time.RFC3339)
	return url, expiresAt, nil
}

// DeleteObject removes the artifact if present.
func (s *MemoryObjectStorage) DeleteObject(ctx context.Context, storageKey string) error {
	if storageKey == "" {
		return errors.New("storage key is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, storageKey)
	return nil
}

// ObjectExists reports whether an artifact is stored under the key.
func (s *MemoryObjectStorage) ObjectExists(ctx context.Context, storageKey string) (bool, error) {
	if storageKey == "" {
		return false, errors.New("storage key is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[storageKey]
	return ok, nil
}
