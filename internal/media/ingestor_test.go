package media

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cliptube/backend/internal/models"
)

type fakeStorage struct {
	mu       sync.Mutex
	saved    map[string]string
	failWith error
}

func (s *fakeStorage) Save(_ context.Context, name string, r io.Reader) (string, error) {
	if s.failWith != nil {
		return "", s.failWith
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	if s.saved == nil {
		s.saved = make(map[string]string)
	}
	s.saved[name] = string(data)
	s.mu.Unlock()
	return "https://cdn.example.com/" + name, nil
}

type fakeUpdater struct {
	mu       sync.Mutex
	ready    map[string]float64
	location map[string]string
	failed   []string
	done     chan struct{}
}

func newFakeUpdater() *fakeUpdater {
	return &fakeUpdater{
		ready:    make(map[string]float64),
		location: make(map[string]string),
		done:     make(chan struct{}, 4),
	}
}

func (u *fakeUpdater) MarkAssetReady(_ context.Context, videoID, location string, duration float64) error {
	u.mu.Lock()
	u.ready[videoID] = duration
	u.location[videoID] = location
	u.mu.Unlock()
	u.done <- struct{}{}
	return nil
}

func (u *fakeUpdater) MarkAssetFailed(_ context.Context, videoID string) error {
	u.mu.Lock()
	u.failed = append(u.failed, videoID)
	u.mu.Unlock()
	u.done <- struct{}{}
	return nil
}

type fakeProber struct {
	duration float64
	err      error
}

func (p fakeProber) Duration(context.Context, string) (float64, error) {
	return p.duration, p.err
}

func stageFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("stage file: %v", err)
	}
	return path
}

func waitFor(t *testing.T, ch chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for ingestion")
	}
}

func TestIngestorUploadsAndMarksReady(t *testing.T) {
	storage := &fakeStorage{}
	updater := newFakeUpdater()
	ing := NewIngestor(fakeProber{duration: 12.5}, storage, updater, IngestorConfig{Workers: 1}, nil)
	defer ing.Shutdown(context.Background())

	path := stageFile(t, "media-bytes")
	video := models.Video{ID: "vid-1"}

	if err := ing.Enqueue(context.Background(), video, path); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	waitFor(t, updater.done)

	updater.mu.Lock()
	defer updater.mu.Unlock()
	if updater.ready["vid-1"] != 12.5 {
		t.Fatalf("expected duration 12.5, got %v", updater.ready["vid-1"])
	}
	if updater.location["vid-1"] != "https://cdn.example.com/videos/vid-1.mp4" {
		t.Fatalf("unexpected location %q", updater.location["vid-1"])
	}

	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("expected staged file to be removed")
	}
}

func TestIngestorProbeFailureStillUploads(t *testing.T) {
	storage := &fakeStorage{}
	updater := newFakeUpdater()
	ing := NewIngestor(fakeProber{err: errors.New("no ffprobe")}, storage, updater, IngestorConfig{Workers: 1}, nil)
	defer ing.Shutdown(context.Background())

	if err := ing.Enqueue(context.Background(), models.Video{ID: "vid-2"}, stageFile(t, "bytes")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	waitFor(t, updater.done)

	updater.mu.Lock()
	defer updater.mu.Unlock()
	if _, ok := updater.ready["vid-2"]; !ok {
		t.Fatal("expected video to be marked ready despite probe failure")
	}
	if updater.ready["vid-2"] != 0 {
		t.Fatalf("expected zero duration, got %v", updater.ready["vid-2"])
	}
}

func TestIngestorStorageFailureMarksFailed(t *testing.T) {
	storage := &fakeStorage{failWith: errors.New("bucket unavailable")}
	updater := newFakeUpdater()
	ing := NewIngestor(fakeProber{}, storage, updater, IngestorConfig{Workers: 1}, nil)
	defer ing.Shutdown(context.Background())

	if err := ing.Enqueue(context.Background(), models.Video{ID: "vid-3"}, stageFile(t, "bytes")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	waitFor(t, updater.done)

	updater.mu.Lock()
	defer updater.mu.Unlock()
	if len(updater.failed) != 1 || updater.failed[0] != "vid-3" {
		t.Fatalf("expected vid-3 marked failed, got %v", updater.failed)
	}
}

func TestIngestorShutdownDuringEnqueue(t *testing.T) {
	storage := &fakeStorage{}
	updater := newFakeUpdater()
	updater.done = make(chan struct{}, 256)
	ing := NewIngestor(fakeProber{}, storage, updater, IngestorConfig{Workers: 2, QueueSize: 4}, nil)

	// Enqueue from several goroutines while shutting down; a closed ingestor
	// must reject jobs with an error, never panic on the closed channel.
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for n := 0; n < 50; n++ {
				path := stageFile(t, "bytes")
				if err := ing.Enqueue(context.Background(), models.Video{ID: "vid"}, path); err != nil {
					if !errors.Is(err, errIngestorClosed) {
						t.Errorf("unexpected enqueue error: %v", err)
					}
					return
				}
			}
		}(g)
	}

	if err := ing.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	wg.Wait()
}

func TestIngestorEnqueueAfterShutdown(t *testing.T) {
	ing := NewIngestor(fakeProber{}, &fakeStorage{}, newFakeUpdater(), IngestorConfig{}, nil)
	if err := ing.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	err := ing.Enqueue(context.Background(), models.Video{ID: "vid-4"}, "/nowhere")
	if err == nil {
		t.Fatal("expected error enqueueing after shutdown")
	}
}
