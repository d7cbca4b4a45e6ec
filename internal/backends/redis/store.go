// Package redis keeps durable records in Redis, for fleets that share a
// warm fallback tier instead of per-host files.
package redis

import (
	"confetch/internal/types"
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

const recordKeyTemplate = "_confetch_rec_%s_%s"

type Store struct {
	cli   *redis.Client
	appID string
}

func New(cli *redis.Client, appID string) *Store {
	return &Store{cli: cli, appID: appID}
}

func (s *Store) Load(ctx context.Context, key string) (types.CachedRecord, error) {
	out := s.cli.Get(ctx, s.recordKey(key))
	if out.Err() != nil {
		if errors.Is(out.Err(), redis.Nil) {
			return types.CachedRecord{}, types.ErrNotFound
		}
		return types.CachedRecord{}, types.Err(types.ErrDurableStore, out.Err(), "reading record %s", key)
	}
	var rec types.CachedRecord
	if err := json.Unmarshal([]byte(out.Val()), &rec); err != nil {
		return types.CachedRecord{}, types.Err(types.ErrDurableStore, err, "decoding record %s", key)
	}
	return rec, nil
}

func (s *Store) Store(ctx context.Context, key string, rec types.CachedRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return types.Err(types.ErrDurableStore, err, "encoding record %s", key)
	}
	out := s.cli.Set(ctx, s.recordKey(key), string(raw), 0)
	if out.Err() != nil {
		return types.Err(types.ErrDurableStore, out.Err(), "writing record %s", key)
	}
	return nil
}

func (s *Store) recordKey(key string) string {
	return fmt.Sprintf(recordKeyTemplate, s.appID, key)
}
