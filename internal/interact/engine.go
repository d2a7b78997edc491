// internal/interact/engine.go
// Package interact turns intent-level operations (click, type, read, scroll)
// into sequences of primitive driver calls that absorb two kinds of transient
// failure: an element that is not interactable yet, and an element reference
// invalidated by a re-render between lookup and use.
//
// An Engine is bound to one session and used by one scenario at a time.
package interact

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/storefront-e2e/internal/driver"
)

// Config holds the engine's timing and retry policy.
type Config struct {
	// DefaultTimeout bounds each readiness wait. It applies per attempt, so a
	// stale retry gets a fresh budget.
	DefaultTimeout time.Duration
	// RetryCount is how many times a stale target is re-resolved before the
	// operation fails with StaleElementError.
	RetryCount int
	// PollInterval is the delay between readiness probes.
	PollInterval time.Duration
	// PresenceTimeout bounds IsElementPresent and GetTextIfPresent.
	PresenceTimeout time.Duration
	// BatchMaxPasses caps the re-query passes of ForEachUntilEmpty.
	BatchMaxPasses int
	// BatchSettleDelay is the pause between batch passes.
	BatchSettleDelay time.Duration
}

// DefaultConfig returns the policy used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		DefaultTimeout:   10 * time.Second,
		RetryCount:       1,
		PollInterval:     250 * time.Millisecond,
		PresenceTimeout:  2 * time.Second,
		BatchMaxPasses:   50,
		BatchSettleDelay: 500 * time.Millisecond,
	}
}

// normalize fills unset durations and limits with defaults. RetryCount of
// zero is a valid "no retry" policy and is kept.
func (c Config) normalize() Config {
	d := DefaultConfig()
	if c.DefaultTimeout <= 0 {
		c.DefaultTimeout = d.DefaultTimeout
	}
	if c.RetryCount < 0 {
		c.RetryCount = 0
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.PresenceTimeout <= 0 {
		c.PresenceTimeout = d.PresenceTimeout
	}
	if c.BatchMaxPasses <= 0 {
		c.BatchMaxPasses = d.BatchMaxPasses
	}
	if c.BatchSettleDelay < 0 {
		c.BatchSettleDelay = 0
	}
	return c
}

// Recorder receives user-visible detail events, such as stale recoveries and
// timeouts swallowed by a batch.
type Recorder interface {
	Detail(msg string)
}

type nopRecorder struct{}

func (nopRecorder) Detail(string) {}

// Option configures an Engine.
type Option func(*Engine)

// WithRecorder routes detail events to r in addition to the logger.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

// Engine performs wait-qualified interactions against one session.
type Engine struct {
	session  driver.Session
	cfg      Config
	logger   *zap.Logger
	recorder Recorder
}

// New binds an engine to session.
func New(session driver.Session, cfg Config, logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		session:  session,
		cfg:      cfg.normalize(),
		logger:   logger.Named("interact").With(zap.String("session_id", session.ID())),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Session returns the bound session.
func (e *Engine) Session() driver.Session { return e.session }

// Config returns the effective policy after defaults were applied.
func (e *Engine) Config() Config { return e.cfg }

func (e *Engine) detail(msg string, fields ...zap.Field) {
	e.logger.Info(msg, fields...)
	e.recorder.Detail(msg)
}

// ClickWhenReady waits for t to be present, displayed and enabled, then
// clicks it. A stale reference during the click is re-resolved and retried up
// to RetryCount times.
func (e *Engine) ClickWhenReady(ctx context.Context, t Target) error {
	return e.do(ctx, "click", t, func(ctx context.Context, el driver.Element) error {
		return el.Click(ctx)
	})
}

// SendKeysWhenReady waits like ClickWhenReady, then clears the field and
// types text. An empty text only clears.
func (e *Engine) SendKeysWhenReady(ctx context.Context, t Target, text string) error {
	return e.do(ctx, "send_keys", t, func(ctx context.Context, el driver.Element) error {
		if err := el.Clear(ctx); err != nil {
			return err
		}
		if text == "" {
			return nil
		}
		return el.SendKeys(ctx, text)
	})
}

// do drives the readiness state machine for one operation.
func (e *Engine) do(ctx context.Context, op string, t Target, action func(context.Context, driver.Element) error) error {
	start := time.Now()
	for attempt := 0; ; attempt++ {
		el, err := e.waitReady(ctx, op, t)
		if err != nil {
			e.logFailure(op, t, err, start)
			return err
		}

		err = action(ctx, el)
		if err == nil {
			e.logger.Debug("Interaction succeeded.",
				zap.String("op", op),
				zap.Stringer("target", t),
				zap.Int("retries", attempt),
				zap.Stringer("state", StateSuccess),
			)
			return nil
		}

		switch driver.Classify(err) {
		case driver.KindStale:
			if !t.Refreshable() || attempt >= e.cfg.RetryCount {
				serr := NewStaleElementError(op, t.String(), attempt+1, err)
				e.logFailure(op, t, serr, start)
				return serr
			}
			e.detail(fmt.Sprintf("Stale element on %s of %s, re-resolving (retry %d of %d).", op, t, attempt+1, e.cfg.RetryCount),
				zap.String("op", op), zap.Stringer("target", t))
		case driver.KindNotInteractable, driver.KindNotFound:
			// Passed the readiness probe but was covered or removed in the
			// window before the action landed.
			terr := NewInteractionTimeoutError(op, t.String(), e.cfg.DefaultTimeout, err)
			e.logFailure(op, t, terr, start)
			return terr
		case driver.KindCanceled:
			if ctx.Err() != nil {
				return fmt.Errorf("%s %s: %w", op, t, ctx.Err())
			}
			terr := NewInteractionTimeoutError(op, t.String(), e.cfg.DefaultTimeout, err)
			e.logFailure(op, t, terr, start)
			return terr
		default:
			derr := NewDriverCommunicationError(op, t.String(), err)
			e.logFailure(op, t, derr, start)
			return derr
		}
	}
}

// waitReady polls until the target resolves to an element that is displayed
// and enabled, or the per-call timeout expires.
func (e *Engine) waitReady(ctx context.Context, op string, t Target) (driver.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s %s: %w", op, t, err)
	}
	waitCtx, cancel := context.WithTimeout(ctx, e.cfg.DefaultTimeout)
	defer cancel()

	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	var last error
	for {
		el, err := t.Resolve(waitCtx, e.session)
		if err == nil {
			var ready bool
			if ready, err = e.ready(waitCtx, el); err == nil && ready {
				return el, nil
			}
			if err == nil {
				last = fmt.Errorf("%w: %s not displayed or not enabled", driver.ErrNotInteractable, t)
			}
		}

		if err != nil {
			switch driver.Classify(err) {
			case driver.KindNotFound, driver.KindNotInteractable:
				last = err
			case driver.KindStale:
				if !t.Refreshable() {
					return nil, NewStaleElementError(op, t.String(), 1, err)
				}
				last = err
			case driver.KindCanceled:
				// Either the caller gave up or our own deadline fired; the
				// check below tells them apart.
			default:
				return nil, NewDriverCommunicationError(op, t.String(), err)
			}
		}

		select {
		case <-waitCtx.Done():
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("%s %s: %w", op, t, err)
			}
			return nil, NewInteractionTimeoutError(op, t.String(), e.cfg.DefaultTimeout, last)
		case <-ticker.C:
		}
	}
}

func (e *Engine) ready(ctx context.Context, el driver.Element) (bool, error) {
	shown, err := el.Displayed(ctx)
	if err != nil || !shown {
		return false, err
	}
	return el.Enabled(ctx)
}

func (e *Engine) logFailure(op string, t Target, err error, start time.Time) {
	fields := []zap.Field{
		zap.String("op", op),
		zap.Stringer("target", t),
		zap.Stringer("state", TerminalState(err)),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err),
	}
	switch {
	case IsTimeout(err):
		e.detail(fmt.Sprintf("Timed out waiting for %s to be ready for %s.", t, op), fields...)
	case IsStale(err):
		e.detail(fmt.Sprintf("%s stayed stale during %s.", t, op), fields...)
	case IsCommunication(err):
		e.logger.Error("Driver communication failed.", fields...)
	default:
		e.logger.Debug("Interaction aborted.", fields...)
	}
}

// IsElementPresent reports whether t resolves to a displayed element within
// PresenceTimeout. Absence and staleness are a normal false result; only a
// broken session is an error.
func (e *Engine) IsElementPresent(ctx context.Context, t Target) (bool, error) {
	_, err := e.probe(ctx, "is_present", t)
	if err == nil {
		return true, nil
	}
	if IsCommunication(err) || ctx.Err() != nil {
		return false, err
	}
	return false, nil
}

// probe polls for a displayed element until PresenceTimeout. Any error that
// is not a communication failure or caller cancellation means "absent".
func (e *Engine) probe(ctx context.Context, op string, t Target) (driver.Element, error) {
	probeCtx, cancel := context.WithTimeout(ctx, e.cfg.PresenceTimeout)
	defer cancel()

	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	for {
		el, err := t.Resolve(probeCtx, e.session)
		if err == nil {
			var shown bool
			if shown, err = el.Displayed(probeCtx); err == nil && shown {
				return el, nil
			}
		}
		if err != nil {
			switch driver.Classify(err) {
			case driver.KindNotFound, driver.KindNotInteractable, driver.KindCanceled:
			case driver.KindStale:
				if !t.Refreshable() {
					return nil, err
				}
			default:
				return nil, NewDriverCommunicationError(op, t.String(), err)
			}
		}

		select {
		case <-probeCtx.Done():
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %s", driver.ErrNoSuchElement, t)
		case <-ticker.C:
		}
	}
}

// GetTextIfPresent returns the trimmed text of t, or "" when it is absent,
// stale, or unreadable. It never fails.
func (e *Engine) GetTextIfPresent(ctx context.Context, t Target) string {
	el, err := e.probe(ctx, "get_text", t)
	if err != nil {
		if IsCommunication(err) {
			e.logger.Warn("Could not read text, session error.", zap.Stringer("target", t), zap.Error(err))
		}
		return ""
	}
	text, err := el.Text(ctx)
	if err != nil {
		e.logger.Debug("Text read failed, treating as absent.", zap.Stringer("target", t), zap.Error(err))
		return ""
	}
	return strings.TrimSpace(text)
}

// ElementsFunc produces a fresh collection of element references.
type ElementsFunc func(ctx context.Context) ([]driver.Element, error)

// All is an ElementsFunc querying every match of loc.
func (e *Engine) All(loc driver.Locator) ElementsFunc {
	return func(ctx context.Context) ([]driver.Element, error) {
		return e.session.FindElements(ctx, loc)
	}
}

// RefreshElements wraps supplier so each call re-executes the lookup instead
// of returning a cached snapshot. A lookup that trips over a re-render is
// retried up to RetryCount times.
func (e *Engine) RefreshElements(supplier ElementsFunc) ElementsFunc {
	return func(ctx context.Context) ([]driver.Element, error) {
		for attempt := 0; ; attempt++ {
			els, err := supplier(ctx)
			if err == nil {
				return els, nil
			}
			switch driver.Classify(err) {
			case driver.KindStale:
				if attempt >= e.cfg.RetryCount {
					return nil, NewStaleElementError("refresh", "collection", attempt+1, err)
				}
				e.detail("Collection went stale during lookup, re-querying.")
			case driver.KindCanceled:
				return nil, err
			default:
				return nil, NewDriverCommunicationError("refresh", "collection", err)
			}
		}
	}
}

// Sleep pauses unconditionally for d or until ctx is done. Prefer a readiness
// wait; this exists for pages that settle without an observable signal.
func (e *Engine) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// WaitForAttributeContains polls until attribute attr of t contains substr.
// A non-positive timeout uses DefaultTimeout.
func (e *Engine) WaitForAttributeContains(ctx context.Context, t Target, attr, substr string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = e.cfg.DefaultTimeout
	}
	op := "wait_attribute"
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	var last error
	for {
		el, err := t.Resolve(waitCtx, e.session)
		if err == nil {
			var value string
			if value, err = el.Attribute(waitCtx, attr); err == nil {
				if strings.Contains(value, substr) {
					return nil
				}
				last = fmt.Errorf("%s=%q does not contain %q", attr, value, substr)
			}
		}
		if err != nil {
			switch driver.Classify(err) {
			case driver.KindNotFound, driver.KindNotInteractable, driver.KindCanceled:
				last = err
			case driver.KindStale:
				if !t.Refreshable() {
					return NewStaleElementError(op, t.String(), 1, err)
				}
				last = err
			default:
				return NewDriverCommunicationError(op, t.String(), err)
			}
		}

		select {
		case <-waitCtx.Done():
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("%s %s: %w", op, t, err)
			}
			return NewInteractionTimeoutError(op, t.String(), timeout, last)
		case <-ticker.C:
		}
	}
}

// errorsAsCanceled reports whether err is the caller's own cancellation.
func errorsAsCanceled(ctx context.Context, err error) bool {
	return ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
}
