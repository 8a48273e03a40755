package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cliptube/backend/internal/models"
)

// AssetStorage persists media blobs and returns their public location.
type AssetStorage interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
}

// AssetUpdater records ingestion outcomes for videos.
type AssetUpdater interface {
	MarkAssetReady(ctx context.Context, videoID, location string, duration float64) error
	MarkAssetFailed(ctx context.Context, videoID string) error
}

// DurationProber reads the clip length of a local media file.
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// IngestorConfig controls the concurrency characteristics of the ingestor.
type IngestorConfig struct {
	QueueSize int
	Workers   int
}

// Ingestor asynchronously pushes uploaded media files to blob storage and
// flips the owning video's asset status when done. The uploading request only
// stages the file locally, so slow storage never blocks the HTTP path.
type Ingestor struct {
	prober  DurationProber
	storage AssetStorage
	updater AssetUpdater
	logger  *slog.Logger

	// mu orders Enqueue sends before the Shutdown close; a send never races
	// the close of jobs.
	mu     sync.RWMutex
	closed bool
	jobs   chan ingestJob
	wg     sync.WaitGroup
	once   sync.Once
}

type ingestJob struct {
	video     models.Video
	localPath string
}

var errIngestorClosed = errors.New("media ingestor closed")

// NewIngestor constructs a background worker pool that persists media assets.
func NewIngestor(prober DurationProber, storage AssetStorage, updater AssetUpdater, cfg IngestorConfig, logger *slog.Logger) *Ingestor {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	ing := &Ingestor{
		prober:  prober,
		storage: storage,
		updater: updater,
		logger:  logger,
		jobs:    make(chan ingestJob, cfg.QueueSize),
	}

	ing.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go ing.worker()
	}

	return ing
}

// Enqueue schedules asset persistence for the supplied video. The file at
// localPath is consumed by the ingestor and removed afterwards.
func (i *Ingestor) Enqueue(ctx context.Context, video models.Video, localPath string) error {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if i.closed {
		return errIngestorClosed
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case i.jobs <- ingestJob{video: video, localPath: localPath}:
		return nil
	}
}

// Shutdown waits for the worker pool to drain outstanding jobs.
func (i *Ingestor) Shutdown(ctx context.Context) error {
	i.once.Do(func() {
		i.mu.Lock()
		i.closed = true
		close(i.jobs)
		i.mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		i.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (i *Ingestor) worker() {
	defer i.wg.Done()

	for job := range i.jobs {
		i.handleJob(job)
	}
}

func (i *Ingestor) handleJob(job ingestJob) {
	defer func() {
		if err := os.Remove(job.localPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			i.logger.Warn("remove staged media file", "path", job.localPath, "error", err)
		}
	}()

	if i.storage == nil || i.updater == nil {
		i.logger.Error("media ingestor missing dependencies", "hasStorage", i.storage != nil, "hasUpdater", i.updater != nil)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var duration float64
	if i.prober != nil {
		probed, err := i.prober.Duration(ctx, job.localPath)
		if err != nil {
			// A missing duration is not worth failing the upload over.
			i.logger.Warn("probe media duration", "videoId", job.video.ID, "error", err)
		} else {
			duration = probed
		}
	}

	file, err := os.Open(job.localPath)
	if err != nil {
		i.logger.Error("open staged media file", "videoId", job.video.ID, "path", job.localPath, "error", err)
		i.recordFailure(job.video.ID)
		return
	}
	defer file.Close()

	key := fmt.Sprintf("videos/%s%s", job.video.ID, filepath.Ext(job.localPath))
	location, err := i.storage.Save(ctx, key, file)
	if err != nil {
		i.logger.Error("upload media asset", "videoId", job.video.ID, "error", err)
		i.recordFailure(job.video.ID)
		return
	}

	if err := i.updater.MarkAssetReady(ctx, job.video.ID, location, duration); err != nil {
		i.logger.Error("mark asset ready", "videoId", job.video.ID, "error", err)
	}
}

func (i *Ingestor) recordFailure(videoID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := i.updater.MarkAssetFailed(ctx, videoID); err != nil {
		i.logger.Error("mark asset failed", "videoId", videoID, "error", err)
	}
}
