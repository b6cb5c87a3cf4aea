package media

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error types
var (
	// ErrMediaNotFound indicates a media record was not found
	ErrMediaNotFound = errors.New("media not found")

	// ErrMediaExists indicates a record collided with an existing one,
	// typically on the blob key's unique constraint
	ErrMediaExists = errors.New("media already exists")

	// ErrFileTooLarge indicates an upload exceeded the size ceiling
	ErrFileTooLarge = errors.New("file too large")

	// ErrUnsupportedType indicates a MIME type outside the allow-list for the kind
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrInvalidKind indicates an unknown media kind
	ErrInvalidKind = errors.New("invalid media kind")
)

// ValidationError represents a rejected upload. It is always a caller error
// and is never retried; no store has been touched when it is returned.
type ValidationError struct {
	MimeType  string
	SizeBytes int64
	Kind      MediaKind
	Err       error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s upload (%s, %d bytes): %v", e.Kind, e.MimeType, e.SizeBytes, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// TransformError represents an in-memory image processing failure. It occurs
// before any store write, so no compensation is required.
type TransformError struct {
	Err error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("image transform failed: %v", e.Err)
}

func (e *TransformError) Unwrap() error {
	return e.Err
}

// StorageError represents a failed blob store operation. On the upload path
// no compensation is needed; on the delete path the metadata row is still
// intact and the delete is safe to retry.
type StorageError struct {
	Key string
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("blob operation %s failed for key %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// MetadataError represents a failed metadata store operation. On the upload
// path it triggers a compensating blob delete; on the delete path the blob is
// already gone and the row remains as a dangling record for reconciliation.
type MetadataError struct {
	MediaID uuid.UUID
	Op      string
	Err     error
}

func (e *MetadataError) Error() string {
	return fmt.Sprintf("metadata operation %s failed for media %s: %v", e.Op, e.MediaID, e.Err)
}

func (e *MetadataError) Unwrap() error {
	return e.Err
}
