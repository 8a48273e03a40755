package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalStorage writes media assets to a directory on disk. It backs local
// development setups where no object store bucket is configured.
type LocalStorage struct {
	root    string
	baseURL string
}

// NewLocalStorage prepares a disk-backed asset store rooted at dir. Saved
// assets are addressed as baseURL/name.
func NewLocalStorage(dir, baseURL string) (*LocalStorage, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "cliptube-assets")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create asset directory: %w", err)
	}
	if baseURL == "" {
		baseURL = "file://" + dir
	}
	return &LocalStorage{root: dir, baseURL: baseURL}, nil
}

// Save streams the asset to disk under the given name.
func (s *LocalStorage) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := filepath.Join(s.root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create asset directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create asset file: %w", err)
	}

	if _, err := io.Copy(file, r); err != nil {
		file.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write asset file: %w", err)
	}

	if err := file.Close(); err != nil {
		return "", fmt.Errorf("close asset file: %w", err)
	}

	return fmt.Sprintf("%s/%s", s.baseURL, name), nil
}
