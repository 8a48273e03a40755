package handlers

import (
	"context"

	"github.com/cliptube/backend/internal/models"
	"github.com/cliptube/backend/internal/reactions"
)

// UserStore captures the persistence operations required by the auth and user handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByIdentifier(ctx context.Context, identifier string) (models.User, error)
	ListLikedVideos(ctx context.Context, userID string) ([]models.Video, error)
}

// SessionManager issues, rotates and validates authentication tokens.
type SessionManager interface {
	Issue(ctx context.Context, user models.User) (models.SessionTokens, error)
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, models.User, error)
	Revoke(ctx context.Context, userID string) error
	Authenticate(ctx context.Context, accessToken string) (models.User, error)
}

// ReactionToggler applies membership toggles between users and content.
type ReactionToggler interface {
	ToggleReaction(ctx context.Context, actorID string, kind reactions.Kind, itemID string, polarity reactions.Polarity) (models.ReactionSummary, error)
	ToggleSubscription(ctx context.Context, subscriberID, channelID string) (bool, error)
}

// VideoStore captures persistence for video publishing workflows.
type VideoStore interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
	ListRecent(ctx context.Context, limit int) ([]models.Video, error)
	Delete(ctx context.Context, id string) error
}

// CommentStore captures persistence for comment workflows.
type CommentStore interface {
	Create(ctx context.Context, comment models.Comment) error
	FindByID(ctx context.Context, id string) (models.Comment, error)
	ListForVideo(ctx context.Context, videoID string) ([]models.Comment, error)
	Delete(ctx context.Context, id string) error
}

// SubscriptionStore provides read access to subscription edges.
type SubscriptionStore interface {
	ListSubscribers(ctx context.Context, channelID string) ([]models.User, error)
	ListChannels(ctx context.Context, subscriberID string) ([]models.User, error)
	IsSubscribed(ctx context.Context, subscriberID, channelID string) (bool, error)
	CountSubscribers(ctx context.Context, channelID string) (int64, error)
}

// MediaIngestor schedules background persistence of uploaded media files.
type MediaIngestor interface {
	Enqueue(ctx context.Context, video models.Video, localPath string) error
}
