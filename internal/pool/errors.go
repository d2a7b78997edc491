// internal/pool/errors.go
package pool

import (
	"errors"
	"fmt"
	"time"
)

// Pool errors are typed so the runner can tell a fatal pool failure from a
// cancelled scenario with errors.As rather than message matching.

// ErrPoolClosed is returned by Acquire once Close has been called.
var ErrPoolClosed = errors.New("session pool is closed")

// ErrPoolExhausted is matched by every *PoolExhaustedError via errors.Is.
var ErrPoolExhausted = errors.New("session pool exhausted")

// ResourceCreationError means the factory could not produce the full set of
// sessions. It is fatal: no partial pool is ever returned.
type ResourceCreationError struct {
	Created  int // sessions successfully created before the failure
	Capacity int
	Err      error
}

func NewResourceCreationError(created, capacity int, err error) *ResourceCreationError {
	return &ResourceCreationError{Created: created, Capacity: capacity, Err: err}
}

func (e *ResourceCreationError) Error() string {
	return fmt.Sprintf("failed to create session %d of %d: %v", e.Created+1, e.Capacity, e.Err)
}

func (e *ResourceCreationError) Unwrap() error {
	return e.Err
}

// InterruptedWaitError is returned when the caller's context is cancelled
// while it is blocked waiting for a session.
type InterruptedWaitError struct {
	Waited time.Duration
	Err    error // the context error
}

func NewInterruptedWaitError(waited time.Duration, err error) *InterruptedWaitError {
	return &InterruptedWaitError{Waited: waited, Err: err}
}

func (e *InterruptedWaitError) Error() string {
	return fmt.Sprintf("wait for session interrupted after %s: %v", e.Waited.Round(time.Millisecond), e.Err)
}

func (e *InterruptedWaitError) Unwrap() error {
	return e.Err
}

// PoolExhaustedError is returned by AcquireTimeout when no session became
// available before the deadline.
type PoolExhaustedError struct {
	Capacity int
	Timeout  time.Duration
}

func NewPoolExhaustedError(capacity int, timeout time.Duration) *PoolExhaustedError {
	return &PoolExhaustedError{Capacity: capacity, Timeout: timeout}
}

func (e *PoolExhaustedError) Error() string {
	return fmt.Sprintf("no session available within %s (capacity %d, all in use)", e.Timeout, e.Capacity)
}

// Is makes errors.Is(err, ErrPoolExhausted) hold for any PoolExhaustedError.
func (e *PoolExhaustedError) Is(target error) bool {
	return target == ErrPoolExhausted
}
