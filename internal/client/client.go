// Package client is the consumer-facing surface: typed namespace access
// backed by the tiered cache, listener registration, and an optional
// background poller that keeps known namespaces fresh.
package client

import (
	"confetch/internal/cache"
	"confetch/internal/events"
	"confetch/internal/fetch"
	"confetch/internal/namespace"
	"confetch/internal/ports"
	"confetch/internal/types"
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

type Client struct {
	cfg    types.ClientConfig
	caches *cache.Registry
	events *events.Registry

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// New wires a client from its config. durable may be nil (memory tier only);
// fetcher may be nil to use the HTTP fetcher against cfg.ConfigServer.
func New(cfg types.ClientConfig, fetcher ports.Fetcher, durable ports.DurableStore) *Client {
	if fetcher == nil {
		fetcher = fetch.New(cfg, nil)
	}
	registry := events.NewRegistry()
	return &Client{
		cfg:    cfg,
		caches: cache.NewRegistry(cfg, fetcher, durable, registry),
		events: registry,
	}
}

// Value returns the raw configuration tree for namespace, filling the cache
// on a miss.
func (c *Client) Value(ctx context.Context, name string) (types.ConfigValue, error) {
	return c.caches.Cache(name).Get(ctx)
}

// Namespace returns the typed view the namespace name implies.
func (c *Client) Namespace(ctx context.Context, name string) (namespace.View, error) {
	value, err := c.Value(ctx, name)
	if err != nil {
		return nil, err
	}
	return namespace.Of(name, value)
}

// Properties is a shortcut for extension-less namespaces.
func (c *Client) Properties(ctx context.Context, name string) (*namespace.Properties, error) {
	view, err := c.Namespace(ctx, name)
	if err != nil {
		return nil, err
	}
	props, ok := view.(*namespace.Properties)
	if !ok {
		return nil, types.Err(types.ErrFormatMismatch, nil, "namespace %s is %s, not properties", name, view.Format())
	}
	return props, nil
}

// Refresh forces a fetch for namespace, bypassing both cache tiers.
func (c *Client) Refresh(ctx context.Context, name string) error {
	return c.caches.Cache(name).Refresh(ctx)
}

// AddListener registers listener for change events on namespace. The cache
// instance is created eagerly so the poller picks the namespace up even
// before its first read.
func (c *Client) AddListener(name string, listener ports.Listener) {
	c.caches.Cache(name)
	c.events.Register(name, listener)
}

// RemoveListener drops every registration of listener under namespace.
func (c *Client) RemoveListener(name string, listener ports.Listener) {
	c.events.Unregister(name, listener)
}

// Start launches the background poller, which refreshes every known
// namespace each interval and reports failures to that namespace's
// listeners. Returns ErrAlreadyRunning if the poller is up.
func (c *Client) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return types.ErrAlreadyRunning
	}
	c.running = true
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	go c.poll(c.stop, c.done)
	return nil
}

// Stop halts the poller and waits for the in-flight cycle, if any, to end.
// Stopping a client that never started is a no-op.
func (c *Client) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	stop, done := c.stop, c.done
	c.mu.Unlock()

	close(stop)
	<-done
}

func (c *Client) poll(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	interval := c.cfg.PollInterval
	if interval <= 0 {
		interval = types.DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.refreshAll()
		}
	}
}

func (c *Client) refreshAll() {
	ctx := context.Background()
	for _, nc := range c.caches.Snapshot() {
		if err := nc.Refresh(ctx); err != nil {
			log.WithError(err).WithField("namespace", nc.Namespace()).Error("failed to refresh namespace")
			c.events.DispatchError(nc.Namespace(), err)
			continue
		}
		log.WithField("namespace", nc.Namespace()).Debug("refreshed namespace")
	}
}
