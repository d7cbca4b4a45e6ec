package client

import (
	"confetch/internal/types"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	mu     sync.Mutex
	calls  map[string]int
	values map[string]types.ConfigValue
	err    error
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		calls:  make(map[string]int),
		values: make(map[string]types.ConfigValue),
	}
}

func (f *fakeFetcher) Fetch(ctx context.Context, namespace string) (types.ConfigValue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[namespace]++
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.values[namespace]
	if !ok {
		return nil, types.Err(types.ErrTransport, nil, "no such namespace %s", namespace)
	}
	return types.CloneValue(v), nil
}

func (f *fakeFetcher) callCount(namespace string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[namespace]
}

type eventListener struct {
	changes chan types.ChangeEvent
	errs    chan error
}

func newEventListener() *eventListener {
	return &eventListener{
		changes: make(chan types.ChangeEvent, 16),
		errs:    make(chan error, 16),
	}
}

func (l *eventListener) OnChange(event types.ChangeEvent)    { l.changes <- event }
func (l *eventListener) OnError(namespace string, err error) { l.errs <- err }

func testClient(fetcher *fakeFetcher, interval time.Duration) *Client {
	cfg := types.ClientConfig{
		AppID:        "test-app",
		Cluster:      "default",
		ConfigServer: "http://config.invalid",
		PollInterval: interval,
	}
	return New(cfg, fetcher, nil)
}

func TestValueFillsOnce(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.values["application"] = types.ConfigValue{"timeout": "30"}
	c := testClient(fetcher, time.Minute)

	ctx := context.Background()
	v, err := c.Value(ctx, "application")
	require.NoError(t, err)
	assert.Equal(t, "30", v["timeout"])

	_, err = c.Value(ctx, "application")
	require.NoError(t, err)
	assert.Equal(t, 1, fetcher.callCount("application"))
}

func TestNamespaceReturnsTypedView(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.values["application"] = types.ConfigValue{"timeout": "30"}
	fetcher.values["deploy.yaml"] = types.ConfigValue{"content": "port: 8080\n"}
	c := testClient(fetcher, time.Minute)
	ctx := context.Background()

	props, err := c.Properties(ctx, "application")
	require.NoError(t, err)
	n, ok := props.GetInt("timeout")
	assert.True(t, ok)
	assert.Equal(t, int64(30), n)

	view, err := c.Namespace(ctx, "deploy.yaml")
	require.NoError(t, err)
	assert.Equal(t, "yaml", view.Format().String())
}

func TestPropertiesRejectsTypedNamespace(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.values["deploy.yaml"] = types.ConfigValue{"content": "port: 8080\n"}
	c := testClient(fetcher, time.Minute)

	_, err := c.Properties(context.Background(), "deploy.yaml")
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrFormatMismatch))
}

func TestRefreshDispatchesToListeners(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.values["application"] = types.ConfigValue{"key": "v1"}
	c := testClient(fetcher, time.Minute)

	listener := newEventListener()
	c.AddListener("application", listener)

	require.NoError(t, c.Refresh(context.Background(), "application"))
	select {
	case event := <-listener.changes:
		assert.Equal(t, "application", event.Namespace)
		assert.Equal(t, "v1", event.NewValue["key"])
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change event")
	}

	c.RemoveListener("application", listener)
	require.NoError(t, c.Refresh(context.Background(), "application"))
	select {
	case event := <-listener.changes:
		t.Fatalf("delivery after removal: %+v", event)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStartTwiceFails(t *testing.T) {
	c := testClient(newFakeFetcher(), time.Minute)
	require.NoError(t, c.Start())
	defer c.Stop()

	err := c.Start()
	assert.True(t, errors.Is(err, types.ErrAlreadyRunning))
}

func TestStopWithoutStartIsNoop(t *testing.T) {
	c := testClient(newFakeFetcher(), time.Minute)
	c.Stop()
	c.Stop()
}

func TestStartStopStart(t *testing.T) {
	c := testClient(newFakeFetcher(), time.Minute)
	require.NoError(t, c.Start())
	c.Stop()
	require.NoError(t, c.Start())
	c.Stop()
}

func TestPollerRefreshesListenedNamespaces(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.values["application"] = types.ConfigValue{"key": "v1"}
	c := testClient(fetcher, 10*time.Millisecond)

	listener := newEventListener()
	// Registering alone is enough; the poller must pick the namespace up
	// without a prior read.
	c.AddListener("application", listener)

	require.NoError(t, c.Start())
	defer c.Stop()

	select {
	case event := <-listener.changes:
		assert.Equal(t, "v1", event.NewValue["key"])
	case <-time.After(2 * time.Second):
		t.Fatal("poller never refreshed the namespace")
	}
	assert.GreaterOrEqual(t, fetcher.callCount("application"), 1)
}

func TestPollerReportsErrorsToListeners(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.err = types.Err(types.ErrTransport, nil, "service down")
	c := testClient(fetcher, 10*time.Millisecond)

	listener := newEventListener()
	c.AddListener("application", listener)

	require.NoError(t, c.Start())
	defer c.Stop()

	select {
	case err := <-listener.errs:
		assert.True(t, errors.Is(err, types.ErrTransport))
	case <-time.After(2 * time.Second):
		t.Fatal("poller never reported the failure")
	}
}
