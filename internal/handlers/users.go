package handlers

import (
	"errors"
	"net/http"

	"github.com/cliptube/backend/internal/logging"
	"github.com/cliptube/backend/internal/middleware"
	"github.com/cliptube/backend/internal/models"
	"github.com/cliptube/backend/internal/repositories"
)

// UserHandler serves profile and channel endpoints.
type UserHandler struct {
	Users         UserStore
	Subscriptions SubscriptionStore
}

type channelResponse struct {
	Channel      models.User `json:"channel"`
	Subscribers  int64       `json:"subscribers"`
	IsSubscribed bool        `json:"isSubscribed"`
}

// Me handles GET /api/v1/users/me.
func (h UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := middleware.UserFromContext(ctx)
	if !ok {
		respondJSON(ctx, w, http.StatusUnauthorized, errorPayload("authentication required"))
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]models.User{"user": user.Profile()})
}

// Channel handles GET /api/v1/users/{username}, returning the channel profile
// with its subscriber count and the viewer's subscription state.
func (h UserHandler) Channel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	viewer, ok := middleware.UserFromContext(ctx)
	if !ok {
		respondJSON(ctx, w, http.StatusUnauthorized, errorPayload("authentication required"))
		return
	}

	username := r.PathValue("username")
	if username == "" {
		respondJSON(ctx, w, http.StatusBadRequest, errorPayload("username is required"))
		return
	}

	channel, err := h.Users.FindByIdentifier(ctx, username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, errorPayload("channel not found"))
			return
		}
		logger.Error("channel lookup failed", "error", err, "username", username)
		respondJSON(ctx, w, statusForStoreError(err), errorPayload("unable to load channel"))
		return
	}

	subscribers, err := h.Subscriptions.CountSubscribers(ctx, channel.ID)
	if err != nil {
		logger.Error("subscriber count failed", "error", err, "channelId", channel.ID)
		respondJSON(ctx, w, statusForStoreError(err), errorPayload("unable to load channel"))
		return
	}

	subscribed, err := h.Subscriptions.IsSubscribed(ctx, viewer.ID, channel.ID)
	if err != nil {
		logger.Error("subscription state lookup failed", "error", err, "channelId", channel.ID)
		respondJSON(ctx, w, statusForStoreError(err), errorPayload("unable to load channel"))
		return
	}

	respondJSON(ctx, w, http.StatusOK, channelResponse{
		Channel:      channel.Profile(),
		Subscribers:  subscribers,
		IsSubscribed: subscribed,
	})
}

// LikedVideos handles GET /api/v1/users/me/likes, listing the viewer's
// liked-videos back-reference set.
func (h UserHandler) LikedVideos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := middleware.UserFromContext(ctx)
	if !ok {
		respondJSON(ctx, w, http.StatusUnauthorized, errorPayload("authentication required"))
		return
	}

	videos, err := h.Users.ListLikedVideos(ctx, user.ID)
	if err != nil {
		logging.FromContext(ctx).Error("liked videos lookup failed", "error", err, "userId", user.ID)
		respondJSON(ctx, w, statusForStoreError(err), errorPayload("unable to load liked videos"))
		return
	}

	if videos == nil {
		videos = []models.Video{}
	}
	respondJSON(ctx, w, http.StatusOK, map[string][]models.Video{"videos": videos})
}
