package events

import (
	"confetch/internal/types"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingListener struct {
	mu      sync.Mutex
	changes []types.ChangeEvent
	errs    []error
	signal  chan struct{}
}

func newRecordingListener() *recordingListener {
	return &recordingListener{signal: make(chan struct{}, 256)}
}

func (l *recordingListener) OnChange(event types.ChangeEvent) {
	l.mu.Lock()
	l.changes = append(l.changes, event)
	l.mu.Unlock()
	l.signal <- struct{}{}
}

func (l *recordingListener) OnError(namespace string, err error) {
	l.mu.Lock()
	l.errs = append(l.errs, err)
	l.mu.Unlock()
	l.signal <- struct{}{}
}

func (l *recordingListener) wait(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-l.signal:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for delivery %d of %d", i+1, n)
		}
	}
}

func (l *recordingListener) events() []types.ChangeEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]types.ChangeEvent, len(l.changes))
	copy(out, l.changes)
	return out
}

func (l *recordingListener) errors() []error {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]error, len(l.errs))
	copy(out, l.errs)
	return out
}

type panickyListener struct{}

func (panickyListener) OnChange(types.ChangeEvent) { panic("handler bug") }
func (panickyListener) OnError(string, error)      { panic("handler bug") }

func event(namespace string, v string) types.ChangeEvent {
	return types.ChangeEvent{
		Namespace: namespace,
		NewValue:  types.ConfigValue{"key": v},
		Changes:   map[string]any{"key": v},
	}
}

func TestDispatchReachesRegisteredListeners(t *testing.T) {
	r := NewRegistry()
	a := newRecordingListener()
	b := newRecordingListener()
	r.Register("application", a)
	r.Register("application", b)

	r.Dispatch(event("application", "v1"))
	a.wait(t, 1)
	b.wait(t, 1)

	require.Len(t, a.events(), 1)
	require.Len(t, b.events(), 1)
	assert.Equal(t, "v1", a.events()[0].NewValue["key"])
}

func TestDispatchIsNamespaceScoped(t *testing.T) {
	r := NewRegistry()
	app := newRecordingListener()
	other := newRecordingListener()
	r.Register("application", app)
	r.Register("features.json", other)

	r.Dispatch(event("application", "v1"))
	app.wait(t, 1)

	assert.Len(t, app.events(), 1)
	assert.Empty(t, other.events())
}

func TestDispatchWithNoListenersIsNoop(t *testing.T) {
	r := NewRegistry()
	r.Dispatch(event("application", "v1"))
	r.DispatchError("application", types.ErrTransport)
}

func TestPanickingListenerDoesNotStarveOthers(t *testing.T) {
	r := NewRegistry()
	healthy := newRecordingListener()
	r.Register("application", panickyListener{})
	r.Register("application", healthy)

	r.Dispatch(event("application", "v1"))
	r.Dispatch(event("application", "v2"))
	healthy.wait(t, 2)

	got := healthy.events()
	require.Len(t, got, 2)
	assert.Equal(t, "v1", got[0].NewValue["key"])
	assert.Equal(t, "v2", got[1].NewValue["key"])
}

func TestPerListenerOrdering(t *testing.T) {
	r := NewRegistry()
	l := newRecordingListener()
	r.Register("application", l)

	const n = 100
	values := make([]string, n)
	for i := 0; i < n; i++ {
		values[i] = string(rune('a' + i%26))
		r.Dispatch(event("application", values[i]))
	}
	l.wait(t, n)

	got := l.events()
	require.Len(t, got, n)
	for i, e := range got {
		assert.Equal(t, values[i], e.NewValue["key"], "event %d out of order", i)
	}
}

func TestErrorsInterleaveWithChanges(t *testing.T) {
	r := NewRegistry()
	l := newRecordingListener()
	r.Register("application", l)

	r.Dispatch(event("application", "v1"))
	r.DispatchError("application", types.Err(types.ErrTransport, nil, "down"))
	r.Dispatch(event("application", "v2"))
	l.wait(t, 3)

	assert.Len(t, l.events(), 2)
	errs := l.errors()
	require.Len(t, errs, 1)
	assert.True(t, errors.Is(errs[0], types.ErrTransport))
}

func TestUnregisterRemovesAllRegistrations(t *testing.T) {
	r := NewRegistry()
	l := newRecordingListener()
	r.Register("application", l)
	r.Register("application", l)

	r.Dispatch(event("application", "v1"))
	l.wait(t, 2)
	assert.Len(t, l.events(), 2, "a double registration fires twice")

	r.Unregister("application", l)
	r.Dispatch(event("application", "v2"))

	time.Sleep(50 * time.Millisecond)
	assert.Len(t, l.events(), 2, "one unregister removes every registration")

	// A second unregister of the same handle is a no-op.
	r.Unregister("application", l)
}

func TestUnregisterIsIdentityBased(t *testing.T) {
	r := NewRegistry()
	a := newRecordingListener()
	b := newRecordingListener()
	r.Register("application", a)
	r.Register("application", b)

	r.Unregister("application", a)
	r.Dispatch(event("application", "v1"))
	b.wait(t, 1)

	assert.Empty(t, a.events())
	assert.Len(t, b.events(), 1)
}

func TestListenerFuncHandle(t *testing.T) {
	r := NewRegistry()
	got := make(chan types.ChangeEvent, 1)
	handle := ListenerFunc(func(e types.ChangeEvent) { got <- e }, nil)
	r.Register("application", handle)

	r.Dispatch(event("application", "v1"))
	select {
	case e := <-got:
		assert.Equal(t, "v1", e.NewValue["key"])
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for funcListener delivery")
	}

	r.Unregister("application", handle)
	r.Dispatch(event("application", "v2"))
	select {
	case e := <-got:
		t.Fatalf("delivery after unregister: %+v", e)
	case <-time.After(50 * time.Millisecond):
	}
}
