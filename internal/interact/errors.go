// internal/interact/errors.go
package interact

import (
	"errors"
	"fmt"
	"time"

	"github.com/xkilldash9x/storefront-e2e/internal/driver"
)

// State tracks a single readiness-waited operation. An operation moves
// PENDING -> POLLING -> READY -> SUCCESS, or stops in one of the failure
// states. Failure states travel on the typed errors below.
type State int

const (
	StatePending State = iota
	StatePolling
	StateReady
	StateSuccess
	StateTimedOut
	StateStaleFailure
	StateDriverError
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "PENDING"
	case StatePolling:
		return "POLLING"
	case StateReady:
		return "READY"
	case StateSuccess:
		return "SUCCESS"
	case StateTimedOut:
		return "TIMED_OUT"
	case StateStaleFailure:
		return "STALE_FAILURE"
	case StateDriverError:
		return "DRIVER_ERROR"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ErrBatchNotDrained is returned by ForEachUntilEmpty when the query still
// matches elements after the maximum number of passes.
var ErrBatchNotDrained = errors.New("batch did not drain")

// InteractionTimeoutError means the target never became ready (present,
// displayed, enabled) within the per-call timeout. Recoverable: the caller
// decides whether the scenario continues.
type InteractionTimeoutError struct {
	Op      string
	Target  string
	Timeout time.Duration
	Err     error // last condition observed while polling, may be nil
}

func NewInteractionTimeoutError(op, target string, timeout time.Duration, err error) *InteractionTimeoutError {
	return &InteractionTimeoutError{Op: op, Target: target, Timeout: timeout, Err: err}
}

func (e *InteractionTimeoutError) Error() string {
	msg := fmt.Sprintf("%s: %s not ready within %s", e.Op, e.Target, e.Timeout)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InteractionTimeoutError) Unwrap() error { return e.Err }

// State returns the terminal state of the failed operation.
func (e *InteractionTimeoutError) State() State { return StateTimedOut }

// StaleElementError means the element reference was invalidated and the
// bounded re-resolve budget was used up, or the target cannot be re-resolved.
type StaleElementError struct {
	Op       string
	Target   string
	Attempts int
	Err      error
}

func NewStaleElementError(op, target string, attempts int, err error) *StaleElementError {
	return &StaleElementError{Op: op, Target: target, Attempts: attempts, Err: err}
}

func (e *StaleElementError) Error() string {
	return fmt.Sprintf("%s: %s went stale after %d attempt(s): %v", e.Op, e.Target, e.Attempts, e.Err)
}

func (e *StaleElementError) Unwrap() error { return e.Err }

func (e *StaleElementError) State() State { return StateStaleFailure }

// DriverCommunicationError means the session itself failed. The scenario
// owning the session should be treated as broken.
type DriverCommunicationError struct {
	Op     string
	Target string
	Err    error
}

func NewDriverCommunicationError(op, target string, err error) *DriverCommunicationError {
	return &DriverCommunicationError{Op: op, Target: target, Err: err}
}

func (e *DriverCommunicationError) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("%s: driver communication failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: driver communication failed on %s: %v", e.Op, e.Target, e.Err)
}

func (e *DriverCommunicationError) Unwrap() error { return e.Err }

func (e *DriverCommunicationError) State() State { return StateDriverError }

// TerminalState reports the terminal state carried by err. A nil error is
// SUCCESS; errors outside the taxonomy report DRIVER_ERROR.
func TerminalState(err error) State {
	if err == nil {
		return StateSuccess
	}
	var st interface{ State() State }
	if errors.As(err, &st) {
		return st.State()
	}
	return StateDriverError
}

// IsStale reports whether err is a stale failure, raw or typed.
func IsStale(err error) bool {
	var se *StaleElementError
	return errors.As(err, &se) || driver.IsStale(err)
}

// IsTimeout reports whether err is an *InteractionTimeoutError.
func IsTimeout(err error) bool {
	var te *InteractionTimeoutError
	return errors.As(err, &te)
}

// IsCommunication reports whether err is a *DriverCommunicationError.
func IsCommunication(err error) bool {
	var de *DriverCommunicationError
	return errors.As(err, &de)
}
