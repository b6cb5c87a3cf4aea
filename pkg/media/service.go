package media

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// Service is the upload / replace / delete / reconcile contract this
// subsystem exposes to the rest of the system.
//
// Single-item operations propagate the first fatal error after attempting any
// applicable compensation. Batch operations never propagate individual
// failures; they always return counts plus the failed ids.
type Service interface {
	// UploadMedia validates, optionally transforms, writes the blob, and
	// creates the metadata record. A metadata failure after a successful
	// blob write triggers a compensating blob delete.
	UploadMedia(ctx context.Context, req UploadMediaRequest) (*Media, error)

	// ReplaceMedia uploads the new file first, then best-effort deletes the
	// old media. A failed old-delete is returned as a warning, never as an
	// error; the old media is completely untouched when the upload fails.
	ReplaceMedia(ctx context.Context, req ReplaceMediaRequest) (*ReplaceResult, error)

	// GetMedia returns a media record by id.
	GetMedia(ctx context.Context, id uuid.UUID) (*Media, error)

	// DownloadMedia streams the blob content for a media record.
	DownloadMedia(ctx context.Context, id uuid.UUID) (io.ReadCloser, error)

	// DeleteMedia removes the blob first, then the metadata record, so a
	// failure leaves a retryable dangling record rather than an orphan blob.
	DeleteMedia(ctx context.Context, id uuid.UUID) error

	// DeleteMediaBatch attempts every id exactly once, isolating failures.
	DeleteMediaBatch(ctx context.Context, ids []uuid.UUID) *BatchResult

	// ReconcileOrphans deletes all media records no owning entity
	// references. The unreferenced set is a point-in-time snapshot; running
	// it twice with no new orphans is a no-op.
	ReconcileOrphans(ctx context.Context) (*BatchResult, error)
}
