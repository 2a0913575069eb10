package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DiskStorage keeps photo bytes under a root directory, one sub-directory per owner.
type DiskStorage struct {
	root string
}

// NewDiskStorage ensures root exists and returns a storage rooted there.
func NewDiskStorage(root string) (*DiskStorage, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("disk storage: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("disk storage: create root: %w", err)
	}
	return &DiskStorage{root: abs}, nil
}

// Save writes r to key atomically; a partially written file is never visible.
func (d *DiskStorage) Save(ctx context.Context, key string, r io.Reader) (string, error) {
	path, err := d.path(key)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("disk storage: create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("disk storage: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, contextReader{ctx: ctx, r: r}); err != nil {
		tmp.Close()
		return "", fmt.Errorf("disk storage: write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("disk storage: close %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("disk storage: commit %s: %w", key, err)
	}

	return d.Location(key), nil
}

// Open returns the file stored under key.
func (d *DiskStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	path, err := d.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("disk storage: open %s: %w", key, err)
	}
	return f, nil
}

// Delete removes the file stored under key. Deleting a missing file succeeds.
func (d *DiskStorage) Delete(_ context.Context, key string) error {
	path, err := d.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("disk storage: delete %s: %w", key, err)
	}
	return nil
}

// Location returns a root-relative reference for key. The server's directory
// layout is not exposed.
func (d *DiskStorage) Location(key string) string {
	return "disk://" + strings.TrimPrefix(filepath.ToSlash(key), "/")
}

func (d *DiskStorage) path(key string) (string, error) {
	rel := filepath.FromSlash(key)
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("disk storage: key %q escapes the storage root", key)
	}
	return filepath.Join(d.root, rel), nil
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
