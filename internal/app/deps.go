package app

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/cliptube/backend/internal/auth"
	"github.com/cliptube/backend/internal/config"
	"github.com/cliptube/backend/internal/db"
	"github.com/cliptube/backend/internal/handlers"
	"github.com/cliptube/backend/internal/media"
	"github.com/cliptube/backend/internal/middleware"
	"github.com/cliptube/backend/internal/reactions"
	"github.com/cliptube/backend/internal/repositories"
	"github.com/cliptube/backend/internal/storage"
)

const rateLimiterEntryTTL = 10 * time.Minute

// buildDependencies wires together concrete implementations used by the HTTP
// handlers. The returned ingestor must be shut down when the server stops.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config, logger *slog.Logger) (handlers.Dependencies, *media.Ingestor, error) {
	users := repositories.NewPostgresUserRepository(pool)
	videos := repositories.NewPostgresVideoRepository(pool)

	assets, err := buildAssetStorage(ctx, cfg)
	if err != nil {
		return handlers.Dependencies{}, nil, err
	}

	prober := media.NewFFProbe(cfg.FFProbePath, cfg.FFProbeTimeout)
	ingestor := media.NewIngestor(prober, assets, videos, media.IngestorConfig{
		QueueSize: cfg.IngestQueue,
		Workers:   cfg.IngestWorkers,
	}, logger)

	deps := handlers.Dependencies{
		Users:         users,
		Sessions:      auth.NewManager(cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL, users),
		Videos:        videos,
		Comments:      repositories.NewPostgresCommentRepository(pool),
		Subscriptions: repositories.NewPostgresSubscriptionRepository(pool),
		Toggler:       reactions.NewEngine(pool),
		Ingest:        ingestor,
		AuthLimiter:   middleware.NewIPRateLimiter(cfg.AuthRateLimit, cfg.AuthRateWindow, cfg.AuthRateLimit, rateLimiterEntryTTL),
		CookieSecure:  cfg.CookieSecure,
		UploadDir:     cfg.UploadDir,
	}

	return deps, ingestor, nil
}

func buildAssetStorage(ctx context.Context, cfg config.Config) (media.AssetStorage, error) {
	if cfg.ObjectStore.Bucket != "" {
		return storage.NewS3Storage(ctx, cfg.ObjectStore)
	}
	return storage.NewLocalStorage(filepath.Join(cfg.UploadDir, "assets"), cfg.ObjectStore.PublicBaseURL)
}
