package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/jmathew12/nsc-events-fullstack/pkg/media"
)

// Request bodies are capped slightly above the validator ceiling so an
// oversized but plausible file still reaches the validator and gets its
// size error; anything larger is rejected while the form is being read.
const maxUploadBytes = media.MaxFileSize + (1 << 20)

// MediaHandler handles media upload, replace, delete, and reconcile endpoints
type MediaHandler struct {
	svc media.Service
}

// NewMediaHandler creates a new media handler
func NewMediaHandler(svc media.Service) *MediaHandler {
	return &MediaHandler{svc: svc}
}

// Routes returns the router for media endpoints
func (h *MediaHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Upload)
	r.Put("/{media_id}", h.Replace)
	r.Get("/{media_id}", h.GetInfo)
	r.Get("/{media_id}/download", h.Download)
	r.Delete("/{media_id}", h.Delete)
	r.Post("/batch-delete", h.BatchDelete)
	r.Post("/reconcile", h.Reconcile)
	return r
}

// MediaResponse represents a media record returned to clients
type MediaResponse struct {
	ID           string `json:"id"`
	FileName     string `json:"file_name"`
	OriginalName string `json:"original_name"`
	MimeType     string `json:"mime_type"`
	SizeBytes    int64  `json:"size_bytes"`
	BlobURL      string `json:"blob_url"`
	Kind         string `json:"kind"`
	OwnerID      string `json:"owner_id,omitempty"`
	CreatedAt    string `json:"created_at"`
}

// ReplaceResponse carries the new record plus any non-fatal cleanup warnings
type ReplaceResponse struct {
	Media    MediaResponse `json:"media"`
	Warnings []string      `json:"warnings,omitempty"`
}

// BatchResponse carries the outcome of a batch delete or reconcile run
type BatchResponse struct {
	DeletedCount int      `json:"deleted_count"`
	FailedIDs    []string `json:"failed_ids"`
}

func toMediaResponse(m *media.Media) MediaResponse {
	resp := MediaResponse{
		ID:           m.ID.String(),
		FileName:     m.FileName,
		OriginalName: m.OriginalName,
		MimeType:     m.MimeType,
		SizeBytes:    m.SizeBytes,
		BlobURL:      m.BlobURL,
		Kind:         string(m.Kind),
		CreatedAt:    m.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if m.OwnerID != nil {
		resp.OwnerID = m.OwnerID.String()
	}
	return resp
}

func toBatchResponse(result *media.BatchResult) BatchResponse {
	resp := BatchResponse{
		DeletedCount: result.DeletedCount,
		FailedIDs:    []string{},
	}
	for _, id := range result.FailedIDs() {
		resp.FailedIDs = append(resp.FailedIDs, id.String())
	}
	return resp
}

// writeError maps the error taxonomy to status codes. Validation failures
// are caller errors; store failures are internal.
func writeError(w http.ResponseWriter, err error) {
	var valErr *media.ValidationError
	switch {
	case errors.Is(err, media.ErrMediaNotFound):
		http.Error(w, "Media not found", http.StatusNotFound)
	case errors.As(err, &valErr):
		status := http.StatusBadRequest
		if errors.Is(err, media.ErrFileTooLarge) {
			status = http.StatusRequestEntityTooLarge
		} else if errors.Is(err, media.ErrUnsupportedType) {
			status = http.StatusUnsupportedMediaType
		}
		http.Error(w, valErr.Error(), status)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func parseErrorStatus(err error) int {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

// Upload accepts a multipart upload and creates a new media record
func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseUploadForm(w, r)
	if err != nil {
		slog.Error("Fail to parse upload form", "error", err)
		http.Error(w, err.Error(), parseErrorStatus(err))
		return
	}

	m, err := h.svc.UploadMedia(r.Context(), *req)
	if err != nil {
		slog.Error("Failed to upload media", "error", err)
		writeError(w, err)
		return
	}

	slog.Info("Media uploaded", "media_id", m.ID, "blob_key", m.BlobKey)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toMediaResponse(m))
}

// Replace uploads a new file and best-effort deletes the media at media_id
func (h *MediaHandler) Replace(w http.ResponseWriter, r *http.Request) {
	oldID, ok := parseMediaID(w, r)
	if !ok {
		return
	}

	req, err := h.parseUploadForm(w, r)
	if err != nil {
		slog.Error("Fail to parse upload form", "error", err)
		http.Error(w, err.Error(), parseErrorStatus(err))
		return
	}

	result, err := h.svc.ReplaceMedia(r.Context(), media.ReplaceMediaRequest{
		OldMediaID: &oldID,
		Upload:     *req,
	})
	if err != nil {
		slog.Error("Failed to replace media", "old_media_id", oldID, "error", err)
		writeError(w, err)
		return
	}

	resp := ReplaceResponse{Media: toMediaResponse(result.Media)}
	for _, warning := range result.Warnings {
		slog.Warn("Replace cleanup failed", "op", warning.Op, "media_id", warning.MediaID, "error", warning.Err)
		resp.Warnings = append(resp.Warnings, warning.Op+": "+warning.Err.Error())
	}

	render.JSON(w, r, resp)
}

// GetInfo returns the media record
func (h *MediaHandler) GetInfo(w http.ResponseWriter, r *http.Request) {
	id, ok := parseMediaID(w, r)
	if !ok {
		return
	}

	m, err := h.svc.GetMedia(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	render.JSON(w, r, toMediaResponse(m))
}

// Download streams the blob for a media record
func (h *MediaHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, ok := parseMediaID(w, r)
	if !ok {
		return
	}

	m, err := h.svc.GetMedia(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	reader, err := h.svc.DownloadMedia(r.Context(), id)
	if err != nil {
		slog.Error("Failed to download blob", "media_id", id, "blob_key", m.BlobKey, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", m.MimeType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+m.OriginalName+`"`)
	if _, err := io.Copy(w, reader); err != nil {
		slog.Error("Failed to stream blob", "media_id", id, "error", err)
	}
}

// Delete removes a media record and its blob
func (h *MediaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseMediaID(w, r)
	if !ok {
		return
	}

	if err := h.svc.DeleteMedia(r.Context(), id); err != nil {
		slog.Error("Failed to delete media", "media_id", id, "error", err)
		writeError(w, err)
		return
	}

	slog.Info("Media deleted", "media_id", id)
	render.JSON(w, r, map[string]string{"status": "deleted"})
}

// BatchDeleteRequest is the body for batch deletion
type BatchDeleteRequest struct {
	IDs []string `json:"ids"`
}

// BatchDelete deletes a set of media records, isolating per-id failures.
// Partial results are always returned with status 200.
func (h *MediaHandler) BatchDelete(w http.ResponseWriter, r *http.Request) {
	var req BatchDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Fail to decode request", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var ids []uuid.UUID
	for _, idStr := range req.IDs {
		id, err := uuid.Parse(idStr)
		if err != nil {
			http.Error(w, "Invalid media ID: "+idStr, http.StatusBadRequest)
			return
		}
		ids = append(ids, id)
	}

	result := h.svc.DeleteMediaBatch(r.Context(), ids)
	render.JSON(w, r, toBatchResponse(result))
}

// Reconcile runs the orphan sweep and returns counts plus failed ids
func (h *MediaHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ReconcileOrphans(r.Context())
	if err != nil {
		slog.Error("Failed to reconcile orphans", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	slog.Info("Reconcile completed", "deleted", result.DeletedCount, "failed", len(result.Failed))
	render.JSON(w, r, toBatchResponse(result))
}

func (h *MediaHandler) parseUploadForm(w http.ResponseWriter, r *http.Request) (*media.UploadMediaRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, err
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}

	req := &media.UploadMediaRequest{
		Data:         data,
		OriginalName: header.Filename,
		MimeType:     header.Header.Get("Content-Type"),
		Kind:         media.MediaKind(r.FormValue("kind")),
		Slot:         r.FormValue("slot"),
		Resize:       r.FormValue("resize") == "true",
	}

	if v := r.FormValue("max_width"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, errors.New("invalid max_width")
		}
		req.MaxWidth = n
	}
	if v := r.FormValue("max_height"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, errors.New("invalid max_height")
		}
		req.MaxHeight = n
	}

	if ownerStr := r.FormValue("owner_id"); ownerStr != "" {
		ownerID, err := uuid.Parse(ownerStr)
		if err != nil {
			return nil, errors.New("invalid owner ID")
		}
		req.OwnerID = &ownerID
	}

	return req, nil
}

func parseMediaID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	idStr := chi.URLParam(r, "media_id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		slog.Error("Invalid media ID", "media_id", idStr, "error", err)
		http.Error(w, "Invalid media ID", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}
