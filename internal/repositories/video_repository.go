package repositories

import (
	"context"

	"github.com/cliptube/backend/internal/models"
)

// VideoRepository defines the data access contract for videos.
type VideoRepository interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
	ListRecent(ctx context.Context, limit int) ([]models.Video, error)
	Delete(ctx context.Context, id string) error
	MarkAssetReady(ctx context.Context, videoID, location string, duration float64) error
	MarkAssetFailed(ctx context.Context, videoID string) error
}
