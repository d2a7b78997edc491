// internal/driver/errors.go
package driver

import (
	"context"
	"errors"
)

// Sentinel errors every Session/Element implementation wraps so callers can
// classify failures with errors.Is instead of matching protocol messages.
var (
	// ErrNoSuchElement means the locator matched nothing.
	ErrNoSuchElement = errors.New("no such element")
	// ErrStaleElement means the element reference outlived its DOM node.
	ErrStaleElement = errors.New("stale element reference")
	// ErrNotInteractable means the node exists but cannot receive input
	// (hidden, zero-sized, covered).
	ErrNotInteractable = errors.New("element not interactable")
	// ErrSessionClosed means the session was closed or the browser went away.
	ErrSessionClosed = errors.New("session closed")
)

// Kind is the coarse classification of a driver error.
type Kind int

const (
	KindNone Kind = iota
	KindNotFound
	KindStale
	KindNotInteractable
	KindCanceled
	// KindCommunication covers everything else: the session is presumed broken.
	KindCommunication
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindNotFound:
		return "not_found"
	case KindStale:
		return "stale"
	case KindNotInteractable:
		return "not_interactable"
	case KindCanceled:
		return "canceled"
	default:
		return "communication"
	}
}

// Classify maps an error returned by a Session or Element to its Kind.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrNoSuchElement):
		return KindNotFound
	case errors.Is(err, ErrStaleElement):
		return KindStale
	case errors.Is(err, ErrNotInteractable):
		return KindNotInteractable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindCommunication
	}
}

// IsStale reports whether err wraps ErrStaleElement.
func IsStale(err error) bool { return errors.Is(err, ErrStaleElement) }

// IsNotFound reports whether err wraps ErrNoSuchElement.
func IsNotFound(err error) bool { return errors.Is(err, ErrNoSuchElement) }
