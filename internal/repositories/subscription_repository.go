package repositories

import (
	"context"

	"github.com/cliptube/backend/internal/models"
)

// SubscriptionRepository defines read access to subscription edges. Edge
// creation and deletion go through the reactions engine so they stay inside
// a single toggle transaction.
type SubscriptionRepository interface {
	ListSubscribers(ctx context.Context, channelID string) ([]models.User, error)
	ListChannels(ctx context.Context, subscriberID string) ([]models.User, error)
	IsSubscribed(ctx context.Context, subscriberID, channelID string) (bool, error)
	CountSubscribers(ctx context.Context, channelID string) (int64, error)
}
