package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileStore persists uploaded material files and returns the URL the file is
// served from.
type FileStore interface {
	Save(ctx context.Context, filename, contentType string, r io.Reader, size int64) (string, error)
}

// DiskStore saves uploaded files under a base directory, exposed at /uploads/.
type DiskStore struct {
	basePath string
}

// NewDiskStore creates the base directory if missing.
func NewDiskStore(basePath string) (*DiskStore, error) {
	if strings.TrimSpace(basePath) == "" {
		return nil, fmt.Errorf("upload base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskStore{basePath: basePath}, nil
}

// Save writes the file as {timestamp}_{original filename}. The bytes go to a
// temp file first and are renamed into place, so a failed or interrupted
// write never leaves a partial file at the served path.
func (d *DiskStore) Save(_ context.Context, filename, _ string, r io.Reader, _ int64) (string, error) {
	stored := StoredName(time.Now().UTC(), filename)
	target := filepath.Join(d.basePath, stored)

	tmp, err := os.CreateTemp(d.basePath, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("publish file: %w", err)
	}
	return "/uploads/" + stored, nil
}

// StoredName builds the persisted filename: {timestamp}_{original}.
func StoredName(now time.Time, filename string) string {
	return now.Format("20060102_150405") + "_" + safeFilename(filename)
}

func safeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, string(os.PathSeparator), "_")
	name = strings.TrimSpace(name)
	if name == "" {
		return "material"
	}
	return name
}
