package media

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// NoopEventSink is an event sink that does nothing
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-op event sink
func NewNoopEventSink() *NoopEventSink {
	return &NoopEventSink{}
}

func (s *NoopEventSink) MediaUploaded(ctx context.Context, m *Media) error {
	return nil
}

func (s *NoopEventSink) MediaDeleted(ctx context.Context, id uuid.UUID) error {
	return nil
}

func (s *NoopEventSink) BlobOrphaned(ctx context.Context, blobKey string, cause error) error {
	return nil
}

func (s *NoopEventSink) CleanupFailed(ctx context.Context, id uuid.UUID, cause error) error {
	return nil
}

// LogEventSink writes consistency events to a structured logger. Residual
// orphan blobs are logged at error level because they are unrecoverable
// without manual intervention.
type LogEventSink struct {
	logger *slog.Logger
}

// NewLogEventSink creates an event sink backed by the given logger, or
// slog.Default() when nil.
func NewLogEventSink(logger *slog.Logger) *LogEventSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogEventSink{logger: logger}
}

func (s *LogEventSink) MediaUploaded(ctx context.Context, m *Media) error {
	s.logger.InfoContext(ctx, "media uploaded", "media_id", m.ID, "blob_key", m.BlobKey, "kind", m.Kind)
	return nil
}

func (s *LogEventSink) MediaDeleted(ctx context.Context, id uuid.UUID) error {
	s.logger.InfoContext(ctx, "media deleted", "media_id", id)
	return nil
}

func (s *LogEventSink) BlobOrphaned(ctx context.Context, blobKey string, cause error) error {
	s.logger.ErrorContext(ctx, "compensating blob delete failed, residual orphan blob", "blob_key", blobKey, "err", cause)
	return nil
}

func (s *LogEventSink) CleanupFailed(ctx context.Context, id uuid.UUID, cause error) error {
	s.logger.WarnContext(ctx, "best-effort media cleanup failed", "media_id", id, "err", cause)
	return nil
}
