package handlers

import (
	"net/http"

	"github.com/cliptube/backend/internal/logging"
	"github.com/cliptube/backend/internal/middleware"
	"github.com/cliptube/backend/internal/models"
)

// SubscriptionHandler toggles subscription edges and lists their endpoints.
type SubscriptionHandler struct {
	Toggler       ReactionToggler
	Subscriptions SubscriptionStore
}

type subscriptionToggleResponse struct {
	ChannelID  string `json:"channelId"`
	Subscribed bool   `json:"subscribed"`
}

// Toggle handles POST /api/v1/subscriptions/{channelId}. A first call creates
// the edge, a second removes it.
func (h SubscriptionHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	user, ok := middleware.UserFromContext(ctx)
	if !ok {
		respondJSON(ctx, w, http.StatusUnauthorized, errorPayload("authentication required"))
		return
	}

	channelID := r.PathValue("channelId")
	subscribed, err := h.Toggler.ToggleSubscription(ctx, user.ID, channelID)
	if err != nil {
		status, message := toggleFailure(err)
		if status >= http.StatusInternalServerError {
			logger.Error("subscription toggle failed", "error", err, "channelId", channelID)
		}
		respondJSON(ctx, w, status, errorPayload(message))
		return
	}

	respondJSON(ctx, w, http.StatusOK, subscriptionToggleResponse{ChannelID: channelID, Subscribed: subscribed})
}

// Subscribers handles GET /api/v1/subscriptions/subscribers, listing the
// accounts subscribed to the caller's channel.
func (h SubscriptionHandler) Subscribers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := middleware.UserFromContext(ctx)
	if !ok {
		respondJSON(ctx, w, http.StatusUnauthorized, errorPayload("authentication required"))
		return
	}

	subscribers, err := h.Subscriptions.ListSubscribers(ctx, user.ID)
	if err != nil {
		logging.FromContext(ctx).Error("subscriber list failed", "error", err, "channelId", user.ID)
		respondJSON(ctx, w, statusForStoreError(err), errorPayload("unable to list subscribers"))
		return
	}

	if subscribers == nil {
		subscribers = []models.User{}
	}
	respondJSON(ctx, w, http.StatusOK, map[string][]models.User{"subscribers": subscribers})
}

// Channels handles GET /api/v1/subscriptions/channels, listing the channels
// the caller subscribes to.
func (h SubscriptionHandler) Channels(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := middleware.UserFromContext(ctx)
	if !ok {
		respondJSON(ctx, w, http.StatusUnauthorized, errorPayload("authentication required"))
		return
	}

	channels, err := h.Subscriptions.ListChannels(ctx, user.ID)
	if err != nil {
		logging.FromContext(ctx).Error("channel list failed", "error", err, "subscriberId", user.ID)
		respondJSON(ctx, w, statusForStoreError(err), errorPayload("unable to list channels"))
		return
	}

	if channels == nil {
		channels = []models.User{}
	}
	respondJSON(ctx, w, http.StatusOK, map[string][]models.User{"channels": channels})
}
