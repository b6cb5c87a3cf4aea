package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/jmathew12/nsc-events-fullstack/pkg/media/blobkey"
)

// service implements the Service interface
type service struct {
	repository  Repository
	blobStore   BlobStore
	keys        KeyGenerator
	transformer Transformer
	eventSink   EventSink
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the metadata repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithBlobStore sets the blob storage backend
func WithBlobStore(store BlobStore) Option {
	return func(s *service) {
		s.blobStore = store
	}
}

// WithKeyGenerator sets the blob key generation strategy
func WithKeyGenerator(g KeyGenerator) Option {
	return func(s *service) {
		s.keys = g
	}
}

// WithTransformer sets the image transform stage
func WithTransformer(t Transformer) Option {
	return func(s *service) {
		s.transformer = t
	}
}

// WithEventSink sets the event sink for the service
func WithEventSink(sink EventSink) Option {
	return func(s *service) {
		s.eventSink = sink
	}
}

// New creates a new service instance with the given options. A repository
// and a blob store are required.
func New(options ...Option) (Service, error) {
	s := &service{
		eventSink: NewNoopEventSink(),
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.blobStore == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if s.keys == nil {
		s.keys = blobkey.NewTimePrefixGenerator()
	}

	return s, nil
}

// UploadMedia orchestrates validate, transform, blob write, metadata write.
func (s *service) UploadMedia(ctx context.Context, req UploadMediaRequest) (*Media, error) {
	data := req.Data
	mimeType := req.MimeType

	// Fail fast before any I/O.
	if err := ValidateUpload(int64(len(data)), mimeType, req.Kind); err != nil {
		return nil, err
	}

	// Optional in-memory resize. Nothing has been written yet, so a failure
	// here needs no compensation.
	if req.Resize && req.Kind == MediaKindImage {
		if s.transformer == nil {
			return nil, &TransformError{Err: errors.New("resize requested but no transformer configured")}
		}
		maxW, maxH := req.MaxWidth, req.MaxHeight
		if maxW <= 0 {
			maxW = DefaultMaxWidth
		}
		if maxH <= 0 {
			maxH = DefaultMaxHeight
		}
		transformed, outMime, err := s.transformer.Fit(data, maxW, maxH)
		if err != nil {
			return nil, &TransformError{Err: err}
		}
		data = transformed
		mimeType = outMime
	}

	blobKey := s.keys.GenerateKey(req.Slot, req.OriginalName)

	if err := s.blobStore.Upload(ctx, blobKey, bytes.NewReader(data), mimeType); err != nil {
		// No new state was created; return directly.
		return nil, &StorageError{Key: blobKey, Op: "upload", Err: err}
	}

	now := time.Now().UTC()
	m := &Media{
		ID:           uuid.New(),
		FileName:     path.Base(blobKey),
		OriginalName: req.OriginalName,
		MimeType:     mimeType,
		SizeBytes:    int64(len(data)),
		BlobKey:      blobKey,
		BlobURL:      s.blobStore.URL(blobKey),
		Kind:         req.Kind,
		OwnerID:      req.OwnerID,
		CreatedAt:    now,
	}

	if err := s.repository.CreateMedia(ctx, m); err != nil {
		// The blob write succeeded but the record did not. Compensate by
		// deleting the blob; if that also fails the blob is a residual
		// orphan, reported through the sink. Either way the caller sees the
		// metadata error, not the compensation outcome.
		if delErr := s.blobStore.Delete(ctx, blobKey); delErr != nil {
			_ = s.eventSink.BlobOrphaned(ctx, blobKey, delErr)
		}
		return nil, &MetadataError{MediaID: m.ID, Op: "create", Err: err}
	}

	_ = s.eventSink.MediaUploaded(ctx, m)

	return m, nil
}

// ReplaceMedia is upload-first: the old media is untouched until the new
// record exists, so a failed replace is safe to retry without losing the old
// reference.
func (s *service) ReplaceMedia(ctx context.Context, req ReplaceMediaRequest) (*ReplaceResult, error) {
	m, err := s.UploadMedia(ctx, req.Upload)
	if err != nil {
		return nil, err
	}

	result := &ReplaceResult{Media: m}

	if req.OldMediaID != nil {
		// Best-effort. The caller already holds a valid new reference; a
		// failed old-delete leaves a pair for reconciliation to catch.
		if err := s.DeleteMedia(ctx, *req.OldMediaID); err != nil {
			result.Warnings = append(result.Warnings, Warning{
				Op:      "delete_old",
				MediaID: *req.OldMediaID,
				Err:     err,
			})
			_ = s.eventSink.CleanupFailed(ctx, *req.OldMediaID, err)
		}
	}

	return result, nil
}

func (s *service) GetMedia(ctx context.Context, id uuid.UUID) (*Media, error) {
	return s.repository.GetMedia(ctx, id)
}

func (s *service) DownloadMedia(ctx context.Context, id uuid.UUID) (io.ReadCloser, error) {
	m, err := s.repository.GetMedia(ctx, id)
	if err != nil {
		return nil, err
	}

	reader, err := s.blobStore.Download(ctx, m.BlobKey)
	if err != nil {
		return nil, &StorageError{Key: m.BlobKey, Op: "download", Err: err}
	}
	return reader, nil
}

// DeleteMedia removes the blob before the metadata row. The ordering is a
// design invariant: a blob-delete failure leaves the record intact and the
// whole delete retryable, while a metadata-delete failure leaves a dangling
// record the reconciler can still see. Orphan blobs are invisible to
// reconciliation, so failures must bias the other way.
func (s *service) DeleteMedia(ctx context.Context, id uuid.UUID) error {
	m, err := s.repository.GetMedia(ctx, id)
	if err != nil {
		if errors.Is(err, ErrMediaNotFound) {
			return err
		}
		return &MetadataError{MediaID: id, Op: "get", Err: err}
	}

	if err := s.blobStore.Delete(ctx, m.BlobKey); err != nil {
		return &StorageError{Key: m.BlobKey, Op: "delete", Err: err}
	}

	if err := s.repository.DeleteMedia(ctx, id); err != nil {
		return &MetadataError{MediaID: id, Op: "delete", Err: err}
	}

	_ = s.eventSink.MediaDeleted(ctx, id)

	return nil
}

// DeleteMediaBatch attempts every id exactly once; one bad id never aborts
// the batch.
func (s *service) DeleteMediaBatch(ctx context.Context, ids []uuid.UUID) *BatchResult {
	result := &BatchResult{}
	for _, id := range ids {
		if err := s.DeleteMedia(ctx, id); err != nil {
			result.Failed = append(result.Failed, BatchFailure{ID: id, Err: err})
			continue
		}
		result.DeletedCount++
	}
	return result
}

// ReconcileOrphans sweeps unreferenced records. The id list is a
// point-in-time snapshot and is not re-validated at delete time.
func (s *service) ReconcileOrphans(ctx context.Context) (*BatchResult, error) {
	unreferenced, err := s.repository.ListUnreferenced(ctx)
	if err != nil {
		return nil, &MetadataError{Op: "list_unreferenced", Err: err}
	}

	ids := make([]uuid.UUID, 0, len(unreferenced))
	for _, m := range unreferenced {
		ids = append(ids, m.ID)
	}

	return s.DeleteMediaBatch(ctx, ids), nil
}
