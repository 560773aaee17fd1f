package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DiskStore persists entries under a root directory, one subdirectory per
// capability, so entries survive process restarts and scoped clears stay
// cheap. Each entry is a data file plus a JSON metadata sidecar.
type DiskStore struct {
	root string
}

// NewDiskStore creates the root directory if needed.
func NewDiskStore(root string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir %s: %w", root, err)
	}
	return &DiskStore{root: root}, nil
}

type diskMeta struct {
	ContentType string    `json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
}

func (s *DiskStore) paths(fingerprint string) (dataPath, metaPath string) {
	capability, hash, ok := strings.Cut(fingerprint, ":")
	if !ok {
		capability, hash = "misc", fingerprint
	}
	base := filepath.Join(s.root, capability, hash)
	return base + ".bin", base + ".meta.json"
}

// Get reads an entry from disk. Returns ErrMiss when absent.
func (s *DiskStore) Get(_ context.Context, fingerprint string) (*Entry, error) {
	dataPath, metaPath := s.paths(fingerprint)

	data, err := os.ReadFile(dataPath)
	if os.IsNotExist(err) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("read cache entry %s: %w", fingerprint, err)
	}

	var meta diskMeta
	if raw, err := os.ReadFile(metaPath); err == nil {
		_ = json.Unmarshal(raw, &meta)
	}

	return &Entry{
		Fingerprint: fingerprint,
		Data:        data,
		ContentType: meta.ContentType,
		CreatedAt:   meta.CreatedAt,
		Size:        int64(len(data)),
	}, nil
}

// Put writes the data file first, then the sidecar, via rename so a crashed
// write never leaves a partial entry readable.
func (s *DiskStore) Put(_ context.Context, fingerprint string, data []byte, contentType string) (*Entry, error) {
	dataPath, metaPath := s.paths(fingerprint)
	if err := os.MkdirAll(filepath.Dir(dataPath), 0o755); err != nil {
		return nil, fmt.Errorf("create cache subdir: %w", err)
	}

	if err := writeAtomic(dataPath, data); err != nil {
		return nil, fmt.Errorf("write cache entry %s: %w", fingerprint, err)
	}

	meta := diskMeta{ContentType: contentType, CreatedAt: time.Now().UTC()}
	rawMeta, _ := json.Marshal(meta)
	if err := writeAtomic(metaPath, rawMeta); err != nil {
		return nil, fmt.Errorf("write cache metadata %s: %w", fingerprint, err)
	}

	return &Entry{
		Fingerprint: fingerprint,
		Data:        data,
		ContentType: contentType,
		CreatedAt:   meta.CreatedAt,
		Size:        int64(len(data)),
	}, nil
}

// Clear removes one capability's subdirectory, or the entire store when
// scope is empty.
func (s *DiskStore) Clear(_ context.Context, scope string) error {
	if scope == "" {
		entries, err := os.ReadDir(s.root)
		if err != nil {
			return fmt.Errorf("list cache dir: %w", err)
		}
		for _, e := range entries {
			if err := os.RemoveAll(filepath.Join(s.root, e.Name())); err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}
		}
		return nil
	}
	if err := os.RemoveAll(filepath.Join(s.root, scope)); err != nil {
		return fmt.Errorf("clear cache scope %s: %w", scope, err)
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
