package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DiskStorage writes uploads under a local directory served at BaseURL.
type DiskStorage struct {
	Root    string
	BaseURL string
}

func NewDiskStorage(root, baseURL string) (*DiskStorage, error) {
	if root == "" {
		return nil, fmt.Errorf("path is required")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base path: %w", err)
	}
	return &DiskStorage{Root: root, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *DiskStorage) Upload(ctx context.Context, prefix, contentType string, r io.Reader) (Object, error) {
	if r == nil {
		return Object{}, ErrEmptyUpload
	}
	obj := newObject(prefix)
	full := filepath.Join(s.Root, filepath.FromSlash(obj.Path))
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return Object{}, err
	}

	f, err := os.Create(full)
	if err != nil {
		return Object{}, err
	}
	defer f.Close()

	n, err := io.Copy(f, r)
	if err != nil {
		_ = os.Remove(full)
		return Object{}, fmt.Errorf("failed to write %s: %w", obj.Path, err)
	}
	if n == 0 {
		_ = os.Remove(full)
		return Object{}, ErrEmptyUpload
	}
	return obj, ctx.Err()
}

func (s *DiskStorage) URL(_ context.Context, objectPath string) (string, error) {
	clean := filepath.ToSlash(filepath.Clean("/" + objectPath))
	return s.BaseURL + clean, nil
}
