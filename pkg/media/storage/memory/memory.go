package memory

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"

	"github.com/jmathew12/nsc-events-fullstack/pkg/media"
)

// Backend is an in-memory implementation of the media.BlobStore interface,
// used in tests and local development.
type Backend struct {
	mu        sync.RWMutex
	objects   map[string][]byte
	mimeTypes map[string]string
	urlPrefix string
}

// New creates a new in-memory storage backend
func New() *Backend {
	return &Backend{
		objects:   make(map[string][]byte),
		mimeTypes: make(map[string]string),
		urlPrefix: "memory://",
	}
}

var _ media.BlobStore = (*Backend)(nil)

// Upload stores the blob in memory
func (b *Backend) Upload(ctx context.Context, key string, reader io.Reader, mimeType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.objects[key] = data
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	b.mimeTypes[key] = mimeType
	return nil
}

// Exists reports whether a blob is present at key
func (b *Backend) Exists(ctx context.Context, key string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	_, exists := b.objects[key]
	return exists, nil
}

// Download reads the blob at key
func (b *Backend) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, exists := b.objects[key]
	if !exists {
		return nil, errors.New("blob not found")
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

// Delete removes the blob at key. Deleting a missing key is a no-op.
func (b *Backend) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.objects, key)
	delete(b.mimeTypes, key)
	return nil
}

// URL returns a memory:// pseudo-address for key
func (b *Backend) URL(key string) string {
	return b.urlPrefix + key
}

// MimeType returns the stored MIME type for key, for test assertions.
func (b *Backend) MimeType(key string) string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.mimeTypes[key]
}
