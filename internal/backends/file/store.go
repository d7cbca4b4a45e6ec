// Package file persists durable records as one UTF-8 JSON file per
// namespace+grayscale key, the layout restart-surviving clients read first.
package file

import (
	"confetch/internal/types"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
)

type Store struct {
	dir string
}

// New creates a file store rooted at dir. The directory is created lazily on
// first write, not here, so a read-only consumer never needs permissions.
func New(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) Load(ctx context.Context, key string) (types.CachedRecord, error) {
	raw, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return types.CachedRecord{}, types.ErrNotFound
		}
		return types.CachedRecord{}, types.Err(types.ErrDurableStore, err, "reading record %s", key)
	}
	var rec types.CachedRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return types.CachedRecord{}, types.Err(types.ErrDurableStore, err, "decoding record %s", key)
	}
	return rec, nil
}

func (s *Store) Store(ctx context.Context, key string, rec types.CachedRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return types.Err(types.ErrDurableStore, err, "encoding record %s", key)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return types.Err(types.ErrDurableStore, err, "creating cache dir %s", s.dir)
	}
	if err := os.WriteFile(s.path(key), raw, 0o644); err != nil {
		return types.Err(types.ErrDurableStore, err, "writing record %s", key)
	}
	return nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s.cache.json", key))
}
