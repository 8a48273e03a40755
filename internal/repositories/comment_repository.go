package repositories

import (
	"context"

	"github.com/cliptube/backend/internal/models"
)

// CommentRepository defines the data access contract for comments.
type CommentRepository interface {
	Create(ctx context.Context, comment models.Comment) error
	FindByID(ctx context.Context, id string) (models.Comment, error)
	ListForVideo(ctx context.Context, videoID string) ([]models.Comment, error)
	Delete(ctx context.Context, id string) error
}
