package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cliptube/backend/internal/logging"
	"github.com/cliptube/backend/internal/middleware"
	"github.com/cliptube/backend/internal/models"
	"github.com/cliptube/backend/internal/reactions"
	"github.com/cliptube/backend/internal/repositories"
)

// CommentHandler serves comment creation, listing and reactions.
type CommentHandler struct {
	Comments CommentStore
	Videos   VideoStore
	Toggler  ReactionToggler
	NowFunc  func() time.Time
}

type createCommentRequest struct {
	VideoID string `json:"videoId"`
	Content string `json:"content"`
}

// Create handles POST /api/v1/comments.
func (h CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	user, ok := middleware.UserFromContext(ctx)
	if !ok {
		respondJSON(ctx, w, http.StatusUnauthorized, errorPayload("authentication required"))
		return
	}

	var req createCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, errorPayload("invalid request body"))
		return
	}

	req.Content = strings.TrimSpace(req.Content)
	if req.VideoID == "" || req.Content == "" {
		respondJSON(ctx, w, http.StatusBadRequest, errorPayload("videoId and content are required"))
		return
	}

	if _, err := h.Videos.FindByID(ctx, req.VideoID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, errorPayload("video not found"))
			return
		}
		logger.Error("comment video lookup failed", "error", err, "videoId", req.VideoID)
		respondJSON(ctx, w, statusForStoreError(err), errorPayload("unable to post comment"))
		return
	}

	comment := models.Comment{
		ID:        uuid.NewString(),
		VideoID:   req.VideoID,
		OwnerID:   user.ID,
		Content:   req.Content,
		CreatedAt: h.now(),
	}

	if err := h.Comments.Create(ctx, comment); err != nil {
		logger.Error("comment create failed", "error", err, "videoId", req.VideoID)
		respondJSON(ctx, w, statusForStoreError(err), errorPayload("unable to post comment"))
		return
	}

	respondJSON(ctx, w, http.StatusCreated, map[string]models.Comment{"comment": comment})
}

// ListForVideo handles GET /api/v1/videos/{id}/comments.
func (h CommentHandler) ListForVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	videoID := r.PathValue("id")
	if _, err := h.Videos.FindByID(ctx, videoID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, errorPayload("video not found"))
			return
		}
		logging.FromContext(ctx).Error("comment video lookup failed", "error", err, "videoId", videoID)
		respondJSON(ctx, w, statusForStoreError(err), errorPayload("unable to list comments"))
		return
	}

	comments, err := h.Comments.ListForVideo(ctx, videoID)
	if err != nil {
		logging.FromContext(ctx).Error("comment list failed", "error", err, "videoId", videoID)
		respondJSON(ctx, w, statusForStoreError(err), errorPayload("unable to list comments"))
		return
	}

	if comments == nil {
		comments = []models.Comment{}
	}
	respondJSON(ctx, w, http.StatusOK, map[string][]models.Comment{"comments": comments})
}

// Delete handles DELETE /api/v1/comments/{id}. Only the author may delete.
func (h CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	user, ok := middleware.UserFromContext(ctx)
	if !ok {
		respondJSON(ctx, w, http.StatusUnauthorized, errorPayload("authentication required"))
		return
	}

	id := r.PathValue("id")
	comment, err := h.Comments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, errorPayload("comment not found"))
			return
		}
		logger.Error("comment lookup failed", "error", err, "commentId", id)
		respondJSON(ctx, w, statusForStoreError(err), errorPayload("unable to delete comment"))
		return
	}

	if comment.OwnerID != user.ID {
		respondJSON(ctx, w, http.StatusForbidden, errorPayload("only the author can delete this comment"))
		return
	}

	if err := h.Comments.Delete(ctx, id); err != nil {
		logger.Error("comment delete failed", "error", err, "commentId", id)
		respondJSON(ctx, w, statusForStoreError(err), errorPayload("unable to delete comment"))
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "deleted"})
}

// React handles POST /api/v1/comments/{id}/reactions.
func (h CommentHandler) React(w http.ResponseWriter, r *http.Request) {
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

	summary, err := h.Toggler.ToggleReaction(ctx, user.ID, reactions.KindComment, r.PathValue("id"), reactions.Polarity(req.Polarity))
	if err != nil {
		status, message := toggleFailure(err)
		if status >= http.StatusInternalServerError {
			logger.Error("comment reaction toggle failed", "error", err, "commentId", r.PathValue("id"))
		}
		respondJSON(ctx, w, status, errorPayload(message))
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]models.ReactionSummary{"reaction": summary})
}

func (h CommentHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
