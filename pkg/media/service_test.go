package media_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmathew12/nsc-events-fullstack/pkg/media"
	repomemory "github.com/jmathew12/nsc-events-fullstack/pkg/media/repo/memory"
	storagememory "github.com/jmathew12/nsc-events-fullstack/pkg/media/storage/memory"
)

// flakyStore wraps the in-memory backend with per-operation error injection
// and call counting.
type flakyStore struct {
	*storagememory.Backend

	mu            sync.Mutex
	uploadErr     error
	deleteErr     error
	deleteErrKey  string
	uploadCalls   int
	deleteCalls   int
	lastUploadKey string
}

func newFlakyStore() *flakyStore {
	return &flakyStore{Backend: storagememory.New()}
}

func (s *flakyStore) Upload(ctx context.Context, key string, reader io.Reader, mimeType string) error {
	s.mu.Lock()
	s.uploadCalls++
	s.lastUploadKey = key
	err := s.uploadErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.Backend.Upload(ctx, key, reader, mimeType)
}

func (s *flakyStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	s.deleteCalls++
	err := s.deleteErr
	errKey := s.deleteErrKey
	s.mu.Unlock()
	if err != nil && (errKey == "" || errKey == key) {
		return err
	}
	return s.Backend.Delete(ctx, key)
}

// flakyRepo wraps the in-memory repository with error injection and call
// counting.
type flakyRepo struct {
	*repomemory.Repository

	mu          sync.Mutex
	createErr   error
	deleteErr   error
	createCalls int
}

func newFlakyRepo() *flakyRepo {
	return &flakyRepo{Repository: repomemory.New()}
}

func (r *flakyRepo) CreateMedia(ctx context.Context, m *media.Media) error {
	r.mu.Lock()
	r.createCalls++
	err := r.createErr
	r.mu.Unlock()
	if err != nil {
		return err
	}
	return r.Repository.CreateMedia(ctx, m)
}

func (r *flakyRepo) DeleteMedia(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	err := r.deleteErr
	r.mu.Unlock()
	if err != nil {
		return err
	}
	return r.Repository.DeleteMedia(ctx, id)
}

// recordingSink captures consistency events for assertions.
type recordingSink struct {
	mu       sync.Mutex
	orphaned []string
	cleanup  []uuid.UUID
	deleted  []uuid.UUID
}

func (s *recordingSink) MediaUploaded(ctx context.Context, m *media.Media) error { return nil }

func (s *recordingSink) MediaDeleted(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *recordingSink) BlobOrphaned(ctx context.Context, blobKey string, cause error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orphaned = append(s.orphaned, blobKey)
	return nil
}

func (s *recordingSink) CleanupFailed(ctx context.Context, id uuid.UUID, cause error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanup = append(s.cleanup, id)
	return nil
}

// stubTransformer avoids real image decoding in service-level tests.
type stubTransformer struct {
	out      []byte
	outMime  string
	err      error
	called   bool
	lastMaxW int
	lastMaxH int
}

func (t *stubTransformer) Fit(data []byte, maxWidth, maxHeight int) ([]byte, string, error) {
	t.called = true
	t.lastMaxW = maxWidth
	t.lastMaxH = maxHeight
	if t.err != nil {
		return nil, "", t.err
	}
	return t.out, t.outMime, nil
}

type testEnv struct {
	svc   media.Service
	repo  *flakyRepo
	store *flakyStore
	sink  *recordingSink
}

func newTestEnv(t *testing.T, opts ...media.Option) *testEnv {
	t.Helper()

	env := &testEnv{
		repo:  newFlakyRepo(),
		store: newFlakyStore(),
		sink:  &recordingSink{},
	}

	base := []media.Option{
		media.WithRepository(env.repo),
		media.WithBlobStore(env.store),
		media.WithEventSink(env.sink),
	}
	svc, err := media.New(append(base, opts...)...)
	require.NoError(t, err)
	env.svc = svc

	return env
}

func pngUpload(name string) media.UploadMediaRequest {
	return media.UploadMediaRequest{
		Data:         []byte("png-bytes"),
		OriginalName: name,
		MimeType:     "image/png",
		Kind:         media.MediaKindImage,
		Slot:         media.SlotCoverImage,
	}
}

func TestNewRequiresRepositoryAndBlobStore(t *testing.T) {
	_, err := media.New(media.WithBlobStore(storagememory.New()))
	assert.Error(t, err)

	_, err = media.New(media.WithRepository(repomemory.New()))
	assert.Error(t, err)
}

func TestUploadStoresBlobAndRecord(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	m, err := env.svc.UploadMedia(ctx, pngUpload("photo.png"))
	require.NoError(t, err)

	assert.Equal(t, "photo.png", m.OriginalName)
	assert.Equal(t, "image/png", m.MimeType)
	assert.Equal(t, int64(len("png-bytes")), m.SizeBytes)
	assert.Contains(t, m.BlobKey, media.SlotCoverImage+"/")
	assert.Contains(t, m.BlobKey, "photo.png")
	assert.Equal(t, "memory://"+m.BlobKey, m.BlobURL)

	exists, err := env.store.Exists(ctx, m.BlobKey)
	require.NoError(t, err)
	assert.True(t, exists)

	got, err := env.svc.GetMedia(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.ID, got.ID)
}

func TestUploadDefaultKeyHasTimePrefixShape(t *testing.T) {
	env := newTestEnv(t)

	req := pngUpload("My Photo.png")
	m, err := env.svc.UploadMedia(context.Background(), req)
	require.NoError(t, err)

	assert.Regexp(t, `^cover-image/\d+-My_Photo\.png$`, m.BlobKey)
}

func TestUploadValidationTouchesNoStore(t *testing.T) {
	env := newTestEnv(t)

	req := pngUpload("notes.txt")
	req.MimeType = "text/plain"

	_, err := env.svc.UploadMedia(context.Background(), req)
	require.Error(t, err)

	var valErr *media.ValidationError
	assert.ErrorAs(t, err, &valErr)
	assert.ErrorIs(t, err, media.ErrUnsupportedType)

	// Rejected uploads never reach either store.
	assert.Zero(t, env.store.uploadCalls)
	assert.Zero(t, env.repo.createCalls)
}

func TestUploadRejectsOversizeFile(t *testing.T) {
	env := newTestEnv(t)

	req := pngUpload("big.png")
	req.Data = make([]byte, media.MaxFileSize+1)

	_, err := env.svc.UploadMedia(context.Background(), req)
	assert.ErrorIs(t, err, media.ErrFileTooLarge)
	assert.Zero(t, env.store.uploadCalls)
}

func TestUploadRejectsKindMismatch(t *testing.T) {
	env := newTestEnv(t)

	req := pngUpload("sneaky.png")
	req.Kind = media.MediaKindDocument

	_, err := env.svc.UploadMedia(context.Background(), req)
	assert.ErrorIs(t, err, media.ErrUnsupportedType)
}

func TestUploadBlobFailureLeavesNothingBehind(t *testing.T) {
	env := newTestEnv(t)
	env.store.uploadErr = errors.New("bucket unavailable")

	_, err := env.svc.UploadMedia(context.Background(), pngUpload("photo.png"))
	require.Error(t, err)

	var storeErr *media.StorageError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "upload", storeErr.Op)
	assert.Zero(t, env.repo.createCalls)
}

func TestUploadCompensatesBlobOnMetadataFailure(t *testing.T) {
	env := newTestEnv(t)
	env.repo.createErr = errors.New("connection reset")
	ctx := context.Background()

	_, err := env.svc.UploadMedia(ctx, pngUpload("photo.png"))
	require.Error(t, err)

	var metaErr *media.MetadataError
	require.ErrorAs(t, err, &metaErr)
	assert.Equal(t, "create", metaErr.Op)

	// The compensating delete removed the blob written before the failure.
	exists, existsErr := env.store.Exists(ctx, env.store.lastUploadKey)
	require.NoError(t, existsErr)
	assert.False(t, exists)
	assert.Empty(t, env.sink.orphaned)
}

func TestUploadReportsResidualOrphanBlob(t *testing.T) {
	env := newTestEnv(t)
	env.repo.createErr = errors.New("connection reset")
	env.store.deleteErr = errors.New("delete refused")

	_, err := env.svc.UploadMedia(context.Background(), pngUpload("photo.png"))

	// The caller still sees the metadata failure, not the compensation one.
	var metaErr *media.MetadataError
	require.ErrorAs(t, err, &metaErr)

	require.Len(t, env.sink.orphaned, 1)
	assert.Equal(t, env.store.lastUploadKey, env.sink.orphaned[0])
}

func TestUploadResizeRequiresTransformer(t *testing.T) {
	env := newTestEnv(t)

	req := pngUpload("photo.png")
	req.Resize = true

	_, err := env.svc.UploadMedia(context.Background(), req)

	var transformErr *media.TransformError
	assert.ErrorAs(t, err, &transformErr)
}

func TestUploadResizeUsesTransformerOutput(t *testing.T) {
	tr := &stubTransformer{out: []byte("jpeg"), outMime: "image/jpeg"}
	env := newTestEnv(t, media.WithTransformer(tr))
	ctx := context.Background()

	req := pngUpload("photo.png")
	req.Resize = true

	m, err := env.svc.UploadMedia(ctx, req)
	require.NoError(t, err)

	assert.True(t, tr.called)
	assert.Equal(t, media.DefaultMaxWidth, tr.lastMaxW)
	assert.Equal(t, media.DefaultMaxHeight, tr.lastMaxH)
	assert.Equal(t, "image/jpeg", m.MimeType)
	assert.Equal(t, int64(len("jpeg")), m.SizeBytes)

	reader, err := env.svc.DownloadMedia(ctx, m.ID)
	require.NoError(t, err)
	defer reader.Close()
	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), data)
}

func TestUploadResizeSkippedForDocuments(t *testing.T) {
	tr := &stubTransformer{out: []byte("jpeg"), outMime: "image/jpeg"}
	env := newTestEnv(t, media.WithTransformer(tr))

	req := media.UploadMediaRequest{
		Data:         []byte("pdf-bytes"),
		OriginalName: "report.pdf",
		MimeType:     "application/pdf",
		Kind:         media.MediaKindDocument,
		Resize:       true,
	}

	m, err := env.svc.UploadMedia(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, tr.called)
	assert.Equal(t, "application/pdf", m.MimeType)
}

func TestUploadTransformFailureWritesNothing(t *testing.T) {
	tr := &stubTransformer{err: errors.New("corrupt image")}
	env := newTestEnv(t, media.WithTransformer(tr))

	req := pngUpload("photo.png")
	req.Resize = true

	_, err := env.svc.UploadMedia(context.Background(), req)

	var transformErr *media.TransformError
	require.ErrorAs(t, err, &transformErr)
	assert.Zero(t, env.store.uploadCalls)
	assert.Zero(t, env.repo.createCalls)
}

func TestDeleteRemovesBlobAndRecord(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	m, err := env.svc.UploadMedia(ctx, pngUpload("photo.png"))
	require.NoError(t, err)

	require.NoError(t, env.svc.DeleteMedia(ctx, m.ID))

	exists, err := env.store.Exists(ctx, m.BlobKey)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = env.svc.GetMedia(ctx, m.ID)
	assert.ErrorIs(t, err, media.ErrMediaNotFound)
	assert.Equal(t, []uuid.UUID{m.ID}, env.sink.deleted)
}

func TestDeleteMissingMedia(t *testing.T) {
	env := newTestEnv(t)

	err := env.svc.DeleteMedia(context.Background(), uuid.New())
	assert.ErrorIs(t, err, media.ErrMediaNotFound)
}

func TestDeleteBlobFailureKeepsRecordRetryable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	m, err := env.svc.UploadMedia(ctx, pngUpload("photo.png"))
	require.NoError(t, err)

	env.store.deleteErr = errors.New("storage down")
	err = env.svc.DeleteMedia(ctx, m.ID)

	var storeErr *media.StorageError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "delete", storeErr.Op)

	// The record survived, so the whole delete can be retried.
	_, err = env.svc.GetMedia(ctx, m.ID)
	require.NoError(t, err)

	env.store.deleteErr = nil
	require.NoError(t, env.svc.DeleteMedia(ctx, m.ID))
}

func TestDeleteMetadataFailureLeavesDanglingRecord(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	m, err := env.svc.UploadMedia(ctx, pngUpload("photo.png"))
	require.NoError(t, err)

	env.repo.deleteErr = errors.New("connection reset")
	err = env.svc.DeleteMedia(ctx, m.ID)

	var metaErr *media.MetadataError
	require.ErrorAs(t, err, &metaErr)

	// The blob is gone but the record remains visible for reconciliation.
	exists, existsErr := env.store.Exists(ctx, m.BlobKey)
	require.NoError(t, existsErr)
	assert.False(t, exists)

	_, err = env.svc.GetMedia(ctx, m.ID)
	assert.NoError(t, err)
}

func TestReplaceSwapsMedia(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	old, err := env.svc.UploadMedia(ctx, pngUpload("old.png"))
	require.NoError(t, err)

	result, err := env.svc.ReplaceMedia(ctx, media.ReplaceMediaRequest{
		OldMediaID: &old.ID,
		Upload:     pngUpload("new.png"),
	})
	require.NoError(t, err)
	require.Empty(t, result.Warnings)

	assert.Equal(t, "new.png", result.Media.OriginalName)
	_, err = env.svc.GetMedia(ctx, old.ID)
	assert.ErrorIs(t, err, media.ErrMediaNotFound)
}

func TestReplaceWithoutOldIsPlainUpload(t *testing.T) {
	env := newTestEnv(t)

	result, err := env.svc.ReplaceMedia(context.Background(), media.ReplaceMediaRequest{
		Upload: pngUpload("first.png"),
	})
	require.NoError(t, err)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, "first.png", result.Media.OriginalName)
}

func TestReplaceUploadFailureLeavesOldIntact(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	old, err := env.svc.UploadMedia(ctx, pngUpload("old.png"))
	require.NoError(t, err)

	env.store.uploadErr = errors.New("bucket unavailable")
	_, err = env.svc.ReplaceMedia(ctx, media.ReplaceMediaRequest{
		OldMediaID: &old.ID,
		Upload:     pngUpload("new.png"),
	})
	require.Error(t, err)

	// The old media and its blob are completely untouched.
	got, err := env.svc.GetMedia(ctx, old.ID)
	require.NoError(t, err)
	exists, err := env.store.Exists(ctx, got.BlobKey)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestReplaceOldDeleteFailureIsWarningNotError(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	old, err := env.svc.UploadMedia(ctx, pngUpload("old.png"))
	require.NoError(t, err)

	env.store.deleteErr = errors.New("storage down")
	env.store.deleteErrKey = old.BlobKey

	result, err := env.svc.ReplaceMedia(ctx, media.ReplaceMediaRequest{
		OldMediaID: &old.ID,
		Upload:     pngUpload("new.png"),
	})
	require.NoError(t, err)

	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "delete_old", result.Warnings[0].Op)
	assert.Equal(t, old.ID, result.Warnings[0].MediaID)
	assert.Equal(t, []uuid.UUID{old.ID}, env.sink.cleanup)

	// New media is fully usable despite the failed cleanup.
	_, err = env.svc.GetMedia(ctx, result.Media.ID)
	assert.NoError(t, err)

	// The old record still exists and remains retryable.
	_, err = env.svc.GetMedia(ctx, old.ID)
	assert.NoError(t, err)
}

func TestBatchDeleteIsolatesFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a, err := env.svc.UploadMedia(ctx, pngUpload("a.png"))
	require.NoError(t, err)
	b, err := env.svc.UploadMedia(ctx, pngUpload("b.png"))
	require.NoError(t, err)
	missing := uuid.New()

	result := env.svc.DeleteMediaBatch(ctx, []uuid.UUID{a.ID, missing, b.ID})

	assert.Equal(t, 2, result.DeletedCount)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, missing, result.Failed[0].ID)
	assert.ErrorIs(t, result.Failed[0].Err, media.ErrMediaNotFound)
	assert.Equal(t, []uuid.UUID{missing}, result.FailedIDs())
}

func TestBatchDeleteEmpty(t *testing.T) {
	env := newTestEnv(t)

	result := env.svc.DeleteMediaBatch(context.Background(), nil)
	assert.Zero(t, result.DeletedCount)
	assert.Empty(t, result.Failed)
}

func TestReconcileDeletesOnlyUnreferenced(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	orphan, err := env.svc.UploadMedia(ctx, pngUpload("orphan.png"))
	require.NoError(t, err)
	kept, err := env.svc.UploadMedia(ctx, pngUpload("kept.png"))
	require.NoError(t, err)
	env.repo.SetReference(uuid.New(), "cover_image_id", kept.ID)

	result, err := env.svc.ReconcileOrphans(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, result.DeletedCount)
	assert.Empty(t, result.Failed)

	_, err = env.svc.GetMedia(ctx, orphan.ID)
	assert.ErrorIs(t, err, media.ErrMediaNotFound)
	_, err = env.svc.GetMedia(ctx, kept.ID)
	assert.NoError(t, err)

	// A second sweep with no new orphans is a no-op.
	again, err := env.svc.ReconcileOrphans(ctx)
	require.NoError(t, err)
	assert.Zero(t, again.DeletedCount)
	assert.Empty(t, again.Failed)
}

func TestReconcileReportsPartialFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	stuck, err := env.svc.UploadMedia(ctx, pngUpload("stuck.png"))
	require.NoError(t, err)
	gone, err := env.svc.UploadMedia(ctx, pngUpload("gone.png"))
	require.NoError(t, err)

	env.store.deleteErr = errors.New("storage down")
	env.store.deleteErrKey = stuck.BlobKey

	result, err := env.svc.ReconcileOrphans(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, result.DeletedCount)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, stuck.ID, result.Failed[0].ID)

	_, err = env.svc.GetMedia(ctx, gone.ID)
	assert.ErrorIs(t, err, media.ErrMediaNotFound)

	// The failed record is still there for the next sweep.
	env.store.deleteErr = nil
	again, err := env.svc.ReconcileOrphans(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, again.DeletedCount)
}

func TestDownloadMediaMissing(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.DownloadMedia(context.Background(), uuid.New())
	assert.ErrorIs(t, err, media.ErrMediaNotFound)
}

func TestUploadedBlobRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	payload := []byte("png-bytes")
	req := pngUpload("photo.png")
	req.Data = payload

	m, err := env.svc.UploadMedia(ctx, req)
	require.NoError(t, err)

	reader, err := env.svc.DownloadMedia(ctx, m.ID)
	require.NoError(t, err)
	defer reader.Close()

	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(payload, data))
}
