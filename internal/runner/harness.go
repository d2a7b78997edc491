// internal/runner/harness.go
package runner

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/storefront-e2e/internal/dataset"
	"github.com/xkilldash9x/storefront-e2e/internal/driver"
	"github.com/xkilldash9x/storefront-e2e/internal/interact"
	"github.com/xkilldash9x/storefront-e2e/internal/observability"
	"github.com/xkilldash9x/storefront-e2e/internal/pages"
)

// ErrExpectation marks a scenario that ran to the end but whose checks did
// not hold.
var ErrExpectation = errors.New("expectation not met")

// Harness is everything a running scenario gets: its session (bound to the
// scenario for its whole run), an engine over that session, its step log and
// its data row, if any.
type Harness struct {
	ID          string
	Name        string
	BaseURL     string
	Environment string

	Session driver.Session
	Engine  *interact.Engine
	Steps   *observability.StepLogger
	Data    dataset.Record
	Logger  *zap.Logger

	pageOpts PageOptions
}

func (h *Harness) Login() *pages.Login {
	p := pages.NewLogin(h.Engine, h.Steps)
	if h.pageOpts.SettleDelay > 0 {
		p.SettleDelay = h.pageOpts.SettleDelay
	}
	return p
}

func (h *Harness) Dashboard() *pages.Dashboard {
	p := pages.NewDashboard(h.Engine, h.Steps)
	if h.pageOpts.AddedTimeout > 0 {
		p.AddedTimeout = h.pageOpts.AddedTimeout
	}
	return p
}

func (h *Harness) Checkout() *pages.Checkout {
	return pages.NewCheckout(h.Engine, h.Steps)
}

// Expect is a soft assertion: it records a pass or a failure and lets the
// scenario carry on. A scenario with any failed expectation fails.
func (h *Harness) Expect(ok bool, msg string) bool {
	if ok {
		h.Steps.Pass(msg)
		return true
	}
	h.Steps.Fail(msg, ErrExpectation)
	return false
}

// Require is Expect for checks the rest of the scenario depends on. It
// returns an error wrapping ErrExpectation when ok is false.
func (h *Harness) Require(ok bool, msg string) error {
	if h.Expect(ok, msg) {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrExpectation, msg)
}
