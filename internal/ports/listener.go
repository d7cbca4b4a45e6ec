package ports

import "confetch/internal/types"

// Listener receives change events for the namespaces it is registered under,
// plus fetch failures surfaced by the background poller. Handlers run on
// dispatcher goroutines: events for one namespace arrive in production order,
// and a panic inside a handler is swallowed at the dispatcher boundary.
//
// Listeners are tracked by identity. Register the same handle you intend to
// unregister later; pointer types satisfy this naturally.
type Listener interface {
	OnChange(event types.ChangeEvent)
	OnError(namespace string, err error)
}
