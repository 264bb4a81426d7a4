package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// LocalBlobStore persists document blobs on disk under a base directory.
// Paths returned by Save are opaque to callers and are the only handle
// for later Fetch/Delete calls.
type LocalBlobStore struct {
	baseDir string
}

// NewLocalBlobStore ensures the base directory exists and returns a handle.
func NewLocalBlobStore(baseDir string) (*LocalBlobStore, error) {
	if baseDir == "" {
		baseDir = "./uploads"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads directory: %w", err)
	}
	return &LocalBlobStore{baseDir: baseDir}, nil
}

// Save writes the blob under a container-scoped subdirectory and returns
// the relative storage path. The filename is prefixed with a fresh uuid
// so identical upload names never collide within a container.
func (s *LocalBlobStore) Save(data []byte, suggestedName, containerHint string) (string, error) {
	name := uuid.NewString() + "_" + sanitizeSegment(suggestedName)
	rel := filepath.Join(sanitizeSegment(containerHint), name)
	path := filepath.Join(s.baseDir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare upload directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write upload file: %w", err)
	}
	return rel, nil
}

// Fetch reads back a stored blob by its storage path.
func (s *LocalBlobStore) Fetch(path string) ([]byte, error) {
	data, err := os.ReadFile(s.resolve(path))
	if err != nil {
		return nil, fmt.Errorf("read upload file: %w", err)
	}
	return data, nil
}

// Delete removes a stored blob if present.
func (s *LocalBlobStore) Delete(path string) error {
	if err := os.Remove(s.resolve(path)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete upload file: %w", err)
	}
	return nil
}

func (s *LocalBlobStore) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(s.baseDir, path)
}

func sanitizeSegment(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "misc"
	}
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "._")
}
