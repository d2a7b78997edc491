// internal/driver/chrome/session.go
package chrome

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/storefront-e2e/internal/driver"
)

// Session is a driver.Session backed by one chromedp tab.
type Session struct {
	id     string
	ctx    context.Context // tab context, carries the CDP target
	cancel context.CancelFunc
	logger *zap.Logger

	closed    atomic.Bool
	closeOnce sync.Once
}

var _ driver.Session = (*Session)(nil)

func newSession(tabCtx context.Context, cancel context.CancelFunc, logger *zap.Logger) *Session {
	id := uuid.New().String()
	return &Session{
		id:     id,
		ctx:    tabCtx,
		cancel: cancel,
		logger: logger.With(zap.String("session_id", id)),
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) Alive() bool {
	return !s.closed.Load() && s.ctx.Err() == nil
}

// run executes actions on the tab, bounded by the caller's context.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	if !s.Alive() {
		return driver.ErrSessionClosed
	}
	runCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		// Report the caller's own cancellation rather than whatever chromedp
		// surfaced while unwinding.
		return ctx.Err()
	}
	if err != nil && s.ctx.Err() != nil {
		return fmt.Errorf("%w: %w", driver.ErrSessionClosed, err)
	}
	return translate(err)
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Debug("Navigating.", zap.String("url", url))
	if err := s.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

func (s *Session) FindElement(ctx context.Context, loc driver.Locator) (driver.Element, error) {
	els, err := s.FindElements(ctx, loc)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, fmt.Errorf("%w: %s", driver.ErrNoSuchElement, loc)
	}
	return els[0], nil
}

// FindElements queries the current document without waiting: AtLeast(0)
// makes chromedp return immediately when nothing matches.
func (s *Session) FindElements(ctx context.Context, loc driver.Locator) ([]driver.Element, error) {
	var nodes []*cdp.Node

	var query chromedp.Action
	if sel, ok := loc.CSS(); ok {
		query = chromedp.Nodes(sel, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0))
	} else {
		query = chromedp.Nodes(loc.Value, &nodes, chromedp.BySearch, chromedp.AtLeast(0))
	}

	if err := s.run(ctx, query); err != nil {
		return nil, fmt.Errorf("query %s failed: %w", loc, err)
	}

	els := make([]driver.Element, 0, len(nodes))
	for _, n := range nodes {
		els = append(els, &Element{session: s, node: n, loc: loc})
	}
	return els, nil
}

func (s *Session) EvaluateScript(ctx context.Context, script string, res any) error {
	return s.run(ctx, chromedp.Evaluate(script, res))
}

func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}
	return buf, nil
}

// Close closes the tab and its browser context. Safe to call more than once.
func (s *Session) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.logger.Debug("Closing browser session.")
		// chromedp.Cancel closes the target gracefully; cancel() then
		// releases the context regardless of the outcome.
		err = chromedp.Cancel(s.ctx)
		s.cancel()
	})
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("closing session %s: %w", s.id, err)
	}
	return nil
}
