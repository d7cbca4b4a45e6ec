// Package cache owns the per-namespace configuration value and the tiered
// lookup that fills it: memory first, then the durable tier, then a remote
// fetch. One exclusive lock per cache instance serializes fills, so N
// concurrent readers of an empty cache cost exactly one fetch.
package cache

import (
	"confetch/internal/events"
	"confetch/internal/ports"
	"confetch/internal/types"
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// NamespaceCache caches one namespace's configuration for one client
// identity (app, cluster, grayscale key). Instances are created by a
// Registry and shared by reference; never copy one.
type NamespaceCache struct {
	cfg       types.ClientConfig
	namespace string
	key       string

	fetcher  ports.Fetcher
	durable  ports.DurableStore // nil on targets without durable storage
	registry *events.Registry

	mu    sync.RWMutex
	value types.ConfigValue // nil until the first successful fill
}

func newNamespaceCache(cfg types.ClientConfig, namespace string, fetcher ports.Fetcher, durable ports.DurableStore, registry *events.Registry) *NamespaceCache {
	return &NamespaceCache{
		cfg:       cfg,
		namespace: namespace,
		key:       cfg.CacheKey(namespace),
		fetcher:   fetcher,
		durable:   durable,
		registry:  registry,
	}
}

func (c *NamespaceCache) Namespace() string { return c.namespace }

// Cached returns the current memory value without filling. The bool reports
// whether a value is present.
func (c *NamespaceCache) Cached() (types.ConfigValue, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.value == nil {
		return nil, false
	}
	return types.CloneValue(c.value), true
}

// Get returns the namespace's configuration, filling the cache on a miss.
//
// Fast path: a shared lock and a clone of the memory value. Slow path: the
// exclusive lock, a re-check (another caller may have filled while we
// waited; this double-check is what bounds remote fetches to one in flight
// per instance), the durable tier if fresh, and finally the fetch-and-persist
// sequence. A fill failure leaves the value unset; the next caller retries
// from scratch. Change events go out after the lock is released.
func (c *NamespaceCache) Get(ctx context.Context) (types.ConfigValue, error) {
	c.mu.RLock()
	if c.value != nil {
		v := types.CloneValue(c.value)
		c.mu.RUnlock()
		return v, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	if c.value != nil {
		v := types.CloneValue(c.value)
		c.mu.Unlock()
		return v, nil
	}

	if c.durable != nil {
		rec, err := c.durable.Load(ctx, c.key)
		switch {
		case err == nil:
			if !c.stale(rec) {
				c.value = rec.Config
				v := types.CloneValue(c.value)
				c.mu.Unlock()
				log.WithField("namespace", c.namespace).Debug("adopted durable record")
				return v, nil
			}
		case !errors.Is(err, types.ErrNotFound):
			c.mu.Unlock()
			return nil, types.Err(types.ErrNotAvailable, err, "namespace %s: durable lookup failed", c.namespace)
		}
	}

	config, err := c.fill(ctx)
	if err != nil {
		c.mu.Unlock()
		return nil, types.Err(types.ErrNotAvailable, err, "namespace %s", c.namespace)
	}
	c.value = config
	v := types.CloneValue(config)
	event := types.NewChangeEvent(c.namespace, nil, types.CloneValue(config))
	c.mu.Unlock()

	c.registry.Dispatch(event)
	return v, nil
}

// Refresh unconditionally fetches, replaces the memory value, persists, and
// dispatches a change event whether or not the value differs. Both memory and
// durable staleness checks are bypassed; a concurrent Get miss competes for
// the same lock and the loser adopts the winner's value on its re-check.
func (c *NamespaceCache) Refresh(ctx context.Context) error {
	c.mu.Lock()
	config, err := c.fill(ctx)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	old := c.value
	c.value = config
	event := types.NewChangeEvent(c.namespace, old, types.CloneValue(config))
	c.mu.Unlock()

	c.registry.Dispatch(event)
	return nil
}

// fill runs the fetch-and-persist sequence. Callers hold the exclusive lock
// for its entire duration; nothing here touches c.value.
func (c *NamespaceCache) fill(ctx context.Context) (types.ConfigValue, error) {
	config, err := c.fetcher.Fetch(ctx, c.namespace)
	if err != nil {
		return nil, err
	}
	if c.durable != nil {
		rec := types.CachedRecord{Timestamp: time.Now().Unix(), Config: config}
		if err := c.durable.Store(ctx, c.key, rec); err != nil {
			return nil, err
		}
		log.WithField("namespace", c.namespace).Trace("persisted durable record")
	}
	return config, nil
}

// stale reports whether a durable record has outlived the configured TTL.
// Without a TTL, records never expire by age.
func (c *NamespaceCache) stale(rec types.CachedRecord) bool {
	if c.cfg.CacheTTL == 0 {
		return false
	}
	age := time.Since(time.Unix(rec.Timestamp, 0))
	return age > c.cfg.CacheTTL
}
