// internal/driver/chrome/factory.go
package chrome

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/storefront-e2e/internal/config"
	"github.com/xkilldash9x/storefront-e2e/internal/driver"
)

const defaultLaunchTimeout = 30 * time.Second

// Factory owns one Chrome process and hands out isolated browser contexts
// (one tab each) as driver sessions.
type Factory struct {
	logger *zap.Logger
	cfg    config.BrowserConfig

	// allocatorCtx manages the browser process; browserCtx is the first
	// (root) target every session is derived from.
	allocatorCtx    context.Context
	allocatorCancel context.CancelFunc
	browserCtx      context.Context
	browserCancel   context.CancelFunc

	closeOnce sync.Once
}

var _ driver.Factory = (*Factory)(nil)

// NewFactory launches the browser process and verifies it responds before
// returning. The browser lives until Close is called.
func NewFactory(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Factory, error) {
	f := &Factory{
		logger: logger.Named("chrome"),
		cfg:    cfg,
	}

	f.logger.Info("Launching browser.",
		zap.Bool("headless", cfg.Headless),
		zap.String("window", describeWindow(cfg)),
	)

	// The allocator must outlive ctx (which may be a short init deadline),
	// so it is detached from ctx's cancellation.
	f.allocatorCtx, f.allocatorCancel = chromedp.NewExecAllocator(context.WithoutCancel(ctx), AllocatorOptions(cfg)...)
	f.browserCtx, f.browserCancel = chromedp.NewContext(f.allocatorCtx,
		chromedp.WithLogf(f.logger.Sugar().Debugf),
		chromedp.WithErrorf(f.logger.Sugar().Warnf),
	)

	launchTimeout := cfg.LaunchTimeout
	if launchTimeout <= 0 {
		launchTimeout = defaultLaunchTimeout
	}

	// Run a trivial task to start the process and confirm it is alive.
	if err := startWithin(ctx, f.browserCtx, f.Close, launchTimeout, chromedp.Navigate("about:blank")); err != nil {
		f.Close()
		return nil, fmt.Errorf("browser failed to start or respond: %w", err)
	}

	f.logger.Info("Browser launched and responsive.")
	return f, nil
}

// CreateSession opens a new tab in a fresh browser context so sessions do not
// share cookies or storage.
func (f *Factory) CreateSession(ctx context.Context) (driver.Session, error) {
	if f.browserCtx.Err() != nil {
		return nil, fmt.Errorf("browser is not running: %w", driver.ErrSessionClosed)
	}

	tabCtx, tabCancel := chromedp.NewContext(f.browserCtx, chromedp.WithNewBrowserContext())

	if err := startWithin(ctx, tabCtx, tabCancel, 0, chromedp.Navigate("about:blank")); err != nil {
		tabCancel()
		return nil, fmt.Errorf("failed to open browser tab: %w", translate(err))
	}

	s := newSession(tabCtx, tabCancel, f.logger)
	f.logger.Debug("Browser session created.", zap.String("session_id", s.ID()))
	return s, nil
}

// startWithin performs the first Run on a fresh chromedp context. chromedp
// binds the browser process, or the tab's event loop, to the context of that
// first Run, so it must be cdpCtx itself and not a shorter-lived derivative.
// ctx and timeout are enforced by calling abort, which tears cdpCtx down.
func startWithin(ctx, cdpCtx context.Context, abort context.CancelFunc, timeout time.Duration, actions ...chromedp.Action) error {
	var timer *time.Timer
	if timeout > 0 {
		timer = time.AfterFunc(timeout, abort)
	}
	stop := context.AfterFunc(ctx, abort)

	err := chromedp.Run(cdpCtx, actions...)

	ctxFired := !stop()
	timerFired := timer != nil && !timer.Stop()
	switch {
	case ctxFired:
		return ctx.Err()
	case timerFired:
		return fmt.Errorf("not ready within %s: %w", timeout, context.DeadlineExceeded)
	}
	return err
}

// Close terminates the browser process. Sessions created by the factory are
// unusable afterwards.
func (f *Factory) Close() {
	f.closeOnce.Do(func() {
		f.logger.Info("Shutting down browser process.")
		if f.browserCancel != nil {
			f.browserCancel()
		}
		if f.allocatorCancel != nil {
			f.allocatorCancel()
		}
	})
}
