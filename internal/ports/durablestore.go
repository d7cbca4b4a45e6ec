package ports

import (
	"confetch/internal/types"
	"context"
)

// DurableStore persists the last successfully fetched config per
// namespace+grayscale key so it survives process restarts. The cache treats
// the store as exclusively owned: no other writer touches a key while a
// cache instance holds it.
type DurableStore interface {
	// Load returns the record for key.
	// MUST return types.ErrNotFound if no record exists.
	Load(ctx context.Context, key string) (types.CachedRecord, error)

	// Store creates or replaces the record for key, creating any containing
	// structure (directories, buckets, tables) on demand.
	Store(ctx context.Context, key string, rec types.CachedRecord) error
}
