package media

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// BlobStore defines the interface for blob storage backends.
//
// Backends are constructed with an immutable configuration (bucket, region,
// endpoint) and must derive URL purely from that configuration without a
// round trip.
type BlobStore interface {
	// Upload writes the blob at key with the given MIME type
	Upload(ctx context.Context, key string, reader io.Reader, mimeType string) error

	// Exists reports whether a blob is present at key
	Exists(ctx context.Context, key string) (bool, error)

	// Download reads the blob at key
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the blob at key. Deleting a missing key is not an
	// error; callers rely on this when retrying compensation.
	Delete(ctx context.Context, key string) error

	// URL returns the publicly resolvable address for key
	URL(key string) string
}

// Repository defines the interface for media metadata persistence.
type Repository interface {
	CreateMedia(ctx context.Context, m *Media) error
	GetMedia(ctx context.Context, id uuid.UUID) (*Media, error)
	DeleteMedia(ctx context.Context, id uuid.UUID) error

	// ListUnreferenced returns media records no owning entity's reference
	// slots point at. Which slots exist is a property of the concrete
	// repository, not of this package.
	ListUnreferenced(ctx context.Context) ([]*Media, error)

	// Admin listing
	ListMedia(ctx context.Context, filters MediaListFilters) ([]*Media, error)
	CountMedia(ctx context.Context, filters MediaListFilters) (int64, error)
}

// Transformer defines the interface for the optional in-memory image
// transform stage. Fit downscales data to fit within the bounds, never
// upscales, and re-encodes to a fixed output format, returning the encoded
// bytes and their MIME type.
type Transformer interface {
	Fit(data []byte, maxWidth, maxHeight int) ([]byte, string, error)
}

// EventSink defines the interface for consistency event handling. Sink
// failures never fail the operation that fired them.
//
// BlobOrphaned and CleanupFailed are the explicit channel for best-effort
// steps that did not succeed: a compensating blob delete that failed after a
// metadata write error, and an old-media delete that failed during a replace.
type EventSink interface {
	// MediaUploaded is fired when a media record is created
	MediaUploaded(ctx context.Context, m *Media) error

	// MediaDeleted is fired when a media record is deleted
	MediaDeleted(ctx context.Context, id uuid.UUID) error

	// BlobOrphaned is fired when a compensating blob delete fails, leaving
	// a blob with no metadata record
	BlobOrphaned(ctx context.Context, blobKey string, cause error) error

	// CleanupFailed is fired when a best-effort old-media delete fails
	CleanupFailed(ctx context.Context, id uuid.UUID, cause error) error
}

// KeyGenerator derives the blob key for a new upload from the slot namespace
// and the original file name.
type KeyGenerator interface {
	GenerateKey(slot, originalName string) string
}
