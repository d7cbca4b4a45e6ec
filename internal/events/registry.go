// Package events delivers configuration change events to registered
// listeners. Delivery is asynchronous and fire-and-forget per listener: each
// registration owns a FIFO queue drained by its own goroutine, so a slow or
// panicking listener never stalls the fetch path or its neighbours, while
// successive events for one namespace still reach a given listener in order.
package events

import (
	"confetch/internal/ports"
	"confetch/internal/types"
	"sync"

	log "github.com/sirupsen/logrus"
)

type delivery struct {
	event types.ChangeEvent
	err   error
	// namespace is set for error deliveries, which carry no event.
	namespace string
}

// entry is one registration: the listener handle plus its serial queue.
type entry struct {
	listener ports.Listener

	mu       sync.Mutex
	queue    []delivery
	draining bool
}

// Registry holds per-namespace listener registrations.
// The zero value is not usable; call NewRegistry.
type Registry struct {
	mu        sync.Mutex
	listeners map[string][]*entry
}

func NewRegistry() *Registry {
	return &Registry{listeners: make(map[string][]*entry)}
}

// Register appends listener to namespace's registration list. Registering the
// same handle twice means it is invoked twice per event until unregistered.
func (r *Registry) Register(namespace string, listener ports.Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners[namespace] = append(r.listeners[namespace], &entry{listener: listener})
}

// Unregister removes every registration of listener under namespace,
// comparing by handle identity. Unregistering a handle that was never
// registered (or already removed) is a no-op.
func (r *Registry) Unregister(namespace string, listener ports.Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries := r.listeners[namespace]
	kept := entries[:0]
	for _, e := range entries {
		if e.listener != listener {
			kept = append(kept, e)
		}
	}
	if len(kept) == 0 {
		delete(r.listeners, namespace)
	} else {
		r.listeners[namespace] = kept
	}
}

// Dispatch hands event to every listener registered under event.Namespace.
// It returns as soon as the event is queued; handler execution happens on the
// listeners' own goroutines.
func (r *Registry) Dispatch(event types.ChangeEvent) {
	r.enqueue(event.Namespace, delivery{event: event})
}

// DispatchError reports a fetch failure for namespace to its listeners,
// ordered with any surrounding change events.
func (r *Registry) DispatchError(namespace string, err error) {
	r.enqueue(namespace, delivery{namespace: namespace, err: err})
}

func (r *Registry) enqueue(namespace string, d delivery) {
	r.mu.Lock()
	entries := make([]*entry, len(r.listeners[namespace]))
	copy(entries, r.listeners[namespace])
	r.mu.Unlock()

	for _, e := range entries {
		e.push(d)
	}
}

func (e *entry) push(d delivery) {
	e.mu.Lock()
	e.queue = append(e.queue, d)
	if e.draining {
		e.mu.Unlock()
		return
	}
	e.draining = true
	e.mu.Unlock()
	go e.drain()
}

func (e *entry) drain() {
	for {
		e.mu.Lock()
		if len(e.queue) == 0 {
			e.draining = false
			e.mu.Unlock()
			return
		}
		d := e.queue[0]
		e.queue = e.queue[1:]
		e.mu.Unlock()

		e.deliver(d)
	}
}

// deliver invokes the handler, swallowing panics so one listener cannot take
// down the dispatcher or starve the others.
func (e *entry) deliver(d delivery) {
	defer func() {
		if rec := recover(); rec != nil {
			log.WithField("panic", rec).Error("listener panicked while handling event")
		}
	}()
	if d.err != nil {
		e.listener.OnError(d.namespace, d.err)
		return
	}
	e.listener.OnChange(d.event)
}

// funcListener adapts bare functions into a comparable Listener handle.
type funcListener struct {
	onChange func(types.ChangeEvent)
	onError  func(namespace string, err error)
}

func (f *funcListener) OnChange(event types.ChangeEvent) {
	if f.onChange != nil {
		f.onChange(event)
	}
}

func (f *funcListener) OnError(namespace string, err error) {
	if f.onError != nil {
		f.onError(namespace, err)
	}
}

// ListenerFunc wraps a change handler (and an optional error handler) into a
// Listener. The returned pointer is the registration handle: keep it around
// if you intend to unregister.
func ListenerFunc(onChange func(types.ChangeEvent), onError func(namespace string, err error)) ports.Listener {
	return &funcListener{onChange: onChange, onError: onError}
}
