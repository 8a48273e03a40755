package repositories

import (
	"context"

	"github.com/cliptube/backend/internal/models"
)

// UserRepository defines the data access contract for users.
type UserRepository interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByIdentifier(ctx context.Context, identifier string) (models.User, error)
	SetRefreshToken(ctx context.Context, userID string, token *string) error
	ListLikedVideos(ctx context.Context, userID string) ([]models.Video, error)
}
