package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cliptube/backend/internal/logging"
	"github.com/cliptube/backend/internal/middleware"
	"github.com/cliptube/backend/internal/models"
	"github.com/cliptube/backend/internal/reactions"
	"github.com/cliptube/backend/internal/repositories"
)

// maxUploadBytes caps the in-memory portion of multipart parsing; larger
// bodies spill to disk.
const maxUploadBytes = 32 << 20

// VideoHandler provides endpoints for publishing and fetching videos.
type VideoHandler struct {
	Videos    VideoStore
	Toggler   ReactionToggler
	Ingest    MediaIngestor
	UploadDir string
	NowFunc   func() time.Time
}

type reactionRequest struct {
	Polarity string `json:"polarity"`
}

// Create handles POST /api/v1/videos. The clip is staged locally and handed
// to the ingestor; the response carries the pending record.
func (h VideoHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	user, ok := middleware.UserFromContext(ctx)
	if !ok {
		respondJSON(ctx, w, http.StatusUnauthorized, errorPayload("authentication required"))
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, errorPayload("invalid multipart body"))
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		respondJSON(ctx, w, http.StatusBadRequest, errorPayload("title is required"))
		return
	}

	file, header, err := r.FormFile("video")
	if err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, errorPayload("video file is required"))
		return
	}
	defer file.Close()

	staged, err := h.stageUpload(file, header.Filename)
	if err != nil {
		logger.Error("stage upload failed", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, errorPayload("failed to store upload"))
		return
	}

	video := models.Video{
		ID:          uuid.NewString(),
		OwnerID:     user.ID,
		Title:       title,
		Description: strings.TrimSpace(r.FormValue("description")),
		AssetStatus: models.AssetStatusPending,
		CreatedAt:   h.now(),
	}

	if err := h.Videos.Create(ctx, video); err != nil {
		_ = os.Remove(staged)
		logger.Error("create video failed", "error", err, "videoId", video.ID)
		respondJSON(ctx, w, statusForStoreError(err), errorPayload("failed to publish video"))
		return
	}

	if err := h.Ingest.Enqueue(ctx, video, staged); err != nil {
		_ = os.Remove(staged)
		logger.Error("enqueue media ingestion failed", "error", err, "videoId", video.ID)
		respondJSON(ctx, w, http.StatusServiceUnavailable, errorPayload("upload pipeline unavailable"))
		return
	}

	respondJSON(ctx, w, http.StatusAccepted, map[string]models.Video{"video": video})
}

// Get handles GET /api/v1/videos/{id}.
func (h VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	video, err := h.Videos.FindByID(ctx, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, errorPayload("video not found"))
			return
		}
		logging.FromContext(ctx).Error("video lookup failed", "error", err)
		respondJSON(ctx, w, statusForStoreError(err), errorPayload("unable to load video"))
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]models.Video{"video": video})
}

// List handles GET /api/v1/videos.
func (h VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			respondJSON(ctx, w, http.StatusBadRequest, errorPayload("limit must be a number"))
			return
		}
		limit = parsed
	}

	videos, err := h.Videos.ListRecent(ctx, limit)
	if err != nil {
		logging.FromContext(ctx).Error("video list failed", "error", err)
		respondJSON(ctx, w, statusForStoreError(err), errorPayload("unable to list videos"))
		return
	}

	if videos == nil {
		videos = []models.Video{}
	}
	respondJSON(ctx, w, http.StatusOK, map[string][]models.Video{"videos": videos})
}

// Delete handles DELETE /api/v1/videos/{id}. Only the owner may delete.
func (h VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	user, ok := middleware.UserFromContext(ctx)
	if !ok {
		respondJSON(ctx, w, http.StatusUnauthorized, errorPayload("authentication required"))
		return
	}

	id := r.PathValue("id")
	video, err := h.Videos.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, errorPayload("video not found"))
			return
		}
		logger.Error("video lookup failed", "error", err, "videoId", id)
		respondJSON(ctx, w, statusForStoreError(err), errorPayload("unable to delete video"))
		return
	}

	if video.OwnerID != user.ID {
		respondJSON(ctx, w, http.StatusForbidden, errorPayload("only the owner can delete this video"))
		return
	}

	if err := h.Videos.Delete(ctx, id); err != nil {
		logger.Error("video delete failed", "error", err, "videoId", id)
		respondJSON(ctx, w, statusForStoreError(err), errorPayload("unable to delete video"))
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "deleted"})
}

// React handles POST /api/v1/videos/{id}/reactions.
func (h VideoHandler) React(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	user, ok := middleware.UserFromContext(ctx)
	if !ok {
		respondJSON(ctx, w, http.StatusUnauthorized, errorPayload("authentication required"))
		return
	}

	var req reactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, errorPayload("invalid request body"))
		return
	}

	summary, err := h.Toggler.ToggleReaction(ctx, user.ID, reactions.KindVideo, r.PathValue("id"), reactions.Polarity(req.Polarity))
	if err != nil {
		status, message := toggleFailure(err)
		if status >= http.StatusInternalServerError {
			logger.Error("video reaction toggle failed", "error", err, "videoId", r.PathValue("id"))
		}
		respondJSON(ctx, w, status, errorPayload(message))
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]models.ReactionSummary{"reaction": summary})
}

func (h VideoHandler) stageUpload(file io.Reader, filename string) (string, error) {
	dir := h.UploadDir
	if dir == "" {
		dir = os.TempDir()
	}

	ext := filepath.Ext(filename)
	staged, err := os.CreateTemp(dir, "upload-*"+ext)
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(staged, file); err != nil {
		staged.Close()
		_ = os.Remove(staged.Name())
		return "", err
	}

	if err := staged.Close(); err != nil {
		_ = os.Remove(staged.Name())
		return "", err
	}

	return staged.Name(), nil
}

func (h VideoHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
