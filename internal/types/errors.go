package types

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by durable stores when no record exists for a key.
	ErrNotFound = errors.New("not found")

	// ErrTransport covers requests that could not be sent, timed out, or came
	// back with a non-2xx status.
	ErrTransport = errors.New("transport error")

	// ErrRemoteParse covers response bodies that are not valid JSON.
	ErrRemoteParse = errors.New("remote response parse error")

	// ErrDurableStore covers read/write/create failures on the durable tier.
	ErrDurableStore = errors.New("durable store read/write error")

	// ErrSignature is returned when a malformed request target is handed to
	// the signer. It aborts a fill before any network call.
	ErrSignature = errors.New("request signing error")

	// ErrFormatMismatch is returned when a typed namespace view does not match
	// the shape of the fetched value.
	ErrFormatMismatch = errors.New("namespace format mismatch")

	// ErrNotAvailable means no memory value, no usable durable record, and no
	// successful fetch yet.
	ErrNotAvailable = errors.New("configuration not available")

	ErrAlreadyRunning    = errors.New("poller already running")
	ErrInvalidConfig     = errors.New("invalid client config")
	ErrInvalidBackend    = errors.New("invalid backend")
	ErrUnsupportedFormat = errors.New("unsupported namespace format")
)

func Err(typedError error, innerErr error, msgTemplate string, args ...any) error {
	if msgTemplate == "" {
		return errors.Join(typedError, innerErr)
	} else {
		return errors.Join(typedError, innerErr, fmt.Errorf(msgTemplate, args...))
	}
}
