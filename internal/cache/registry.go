package cache

import (
	"confetch/internal/events"
	"confetch/internal/ports"
	"confetch/internal/types"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Registry hands out the one long-lived cache instance per namespace,
// creating it lazily on first access. All instances share the fetcher, the
// durable store, and the event registry they are built with.
type Registry struct {
	cfg      types.ClientConfig
	fetcher  ports.Fetcher
	durable  ports.DurableStore
	registry *events.Registry

	mu     sync.Mutex
	caches map[string]*NamespaceCache
}

func NewRegistry(cfg types.ClientConfig, fetcher ports.Fetcher, durable ports.DurableStore, registry *events.Registry) *Registry {
	return &Registry{
		cfg:      cfg,
		fetcher:  fetcher,
		durable:  durable,
		registry: registry,
		caches:   make(map[string]*NamespaceCache),
	}
}

// Cache returns the cache instance for namespace, creating it on first use.
func (r *Registry) Cache(namespace string) *NamespaceCache {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.caches[namespace]
	if !ok {
		log.WithField("namespace", namespace).Trace("creating namespace cache")
		c = newNamespaceCache(r.cfg, namespace, r.fetcher, r.durable, r.registry)
		r.caches[namespace] = c
	}
	return c
}

// Snapshot returns the caches known at call time, for poller iteration.
func (r *Registry) Snapshot() []*NamespaceCache {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*NamespaceCache, 0, len(r.caches))
	for _, c := range r.caches {
		out = append(out, c)
	}
	return out
}
