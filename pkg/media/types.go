package media

import (
	"time"

	"github.com/google/uuid"
)

// MediaKind is the domain type for the two supported media categories.
type MediaKind string

// Media kind constants (typed).
const (
	MediaKindImage    MediaKind = "image"
	MediaKindDocument MediaKind = "document"
)

// Valid reports whether k is one of the supported kinds.
func (k MediaKind) Valid() bool {
	return k == MediaKindImage || k == MediaKindDocument
}

// Slot name constants for the owning Activity entity.
const (
	SlotCoverImage = "cover-image"
	SlotDocument   = "document"
)

// Media represents a stored file: one metadata row bound to exactly one blob.
//
// All fields are immutable after creation except OwnerID, which the metadata
// store nulls out when the owning principal is removed. BlobKey is the
// authoritative identity for delete operations; BlobURL is derived from the
// blob store configuration at upload time and never looked up again.
type Media struct {
	ID           uuid.UUID  `json:"id"`
	FileName     string     `json:"file_name"`
	OriginalName string     `json:"original_name"`
	MimeType     string     `json:"mime_type"`
	SizeBytes    int64      `json:"size_bytes"`
	BlobKey      string     `json:"blob_key"`
	BlobURL      string     `json:"blob_url"`
	Kind         MediaKind  `json:"kind"`
	OwnerID      *uuid.UUID `json:"owner_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// UploadMediaRequest contains parameters for uploading a new media file.
type UploadMediaRequest struct {
	Data         []byte
	OriginalName string
	MimeType     string
	Kind         MediaKind
	Slot         string
	OwnerID      *uuid.UUID

	// Resize requests an in-memory downscale before upload. Only honored for
	// images; MaxWidth/MaxHeight default to DefaultMaxWidth/DefaultMaxHeight
	// when zero.
	Resize    bool
	MaxWidth  int
	MaxHeight int
}

// Default resize bounds applied when a resize is requested without explicit
// dimensions.
const (
	DefaultMaxWidth  = 1280
	DefaultMaxHeight = 1280
)

// ReplaceMediaRequest contains parameters for swapping an owning entity's
// media slot. OldMediaID may be nil when the slot was previously empty.
type ReplaceMediaRequest struct {
	OldMediaID *uuid.UUID
	Upload     UploadMediaRequest
}

// Warning records a best-effort secondary step that failed without failing
// the primary operation.
type Warning struct {
	Op      string
	MediaID uuid.UUID
	Err     error
}

// ReplaceResult is the outcome of a replace: the new media record plus any
// non-fatal cleanup warnings.
type ReplaceResult struct {
	Media    *Media
	Warnings []Warning
}

// BatchFailure records a single failed id within a batch operation.
type BatchFailure struct {
	ID  uuid.UUID
	Err error
}

// BatchResult is the outcome of a batch delete or a reconcile run. Batch
// operations never propagate individual failures; they are collected here.
type BatchResult struct {
	DeletedCount int
	Failed       []BatchFailure
}

// FailedIDs returns the ids of all failed items.
func (r *BatchResult) FailedIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(r.Failed))
	for _, f := range r.Failed {
		ids = append(ids, f.ID)
	}
	return ids
}

// MediaListFilters defines filtering options for listing media (admin
// operations).
type MediaListFilters struct {
	Kind          *MediaKind
	OwnerID       *uuid.UUID
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	Limit         *int
	Offset        *int
}
