// internal/interact/batch.go
package interact

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/storefront-e2e/internal/driver"
)

// ItemFunc is the per-element action of a batch.
type ItemFunc func(ctx context.Context, el driver.Element) error

// ForEachUntilEmpty applies action to every element matching loc, re-querying
// after each pass until the query comes back empty. Elements may appear while
// earlier ones are processed, so completion is "nothing left to do" rather
// than a fixed count.
//
// A per-item stale reference or timeout is logged and skipped. Any other
// error aborts the batch and is returned along with the number of actions
// that succeeded so far.
func (e *Engine) ForEachUntilEmpty(ctx context.Context, loc driver.Locator, action ItemFunc) (int, error) {
	query := e.RefreshElements(e.All(loc))
	done := 0

	for pass := 1; pass <= e.cfg.BatchMaxPasses; pass++ {
		els, err := query(ctx)
		if err != nil {
			if errorsAsCanceled(ctx, err) {
				return done, err
			}
			return done, fmt.Errorf("batch query %s: %w", loc, err)
		}
		if len(els) == 0 {
			e.logger.Debug("Batch drained.", zap.Stringer("locator", loc), zap.Int("passes", pass-1), zap.Int("done", done))
			return done, nil
		}

		for i, el := range els {
			err := action(ctx, el)
			switch {
			case err == nil:
				done++
			case errorsAsCanceled(ctx, err):
				return done, err
			case IsStale(err):
				e.detail(fmt.Sprintf("Skipped item %d of pass %d: element went stale.", i+1, pass),
					zap.Stringer("locator", loc), zap.Error(err))
			case IsTimeout(err):
				e.detail(fmt.Sprintf("Skipped item %d of pass %d: timed out.", i+1, pass),
					zap.Stringer("locator", loc), zap.Error(err))
			default:
				e.logger.Error("Batch aborted on unexpected error.",
					zap.Stringer("locator", loc), zap.Int("done", done), zap.Error(err))
				return done, err
			}
		}

		// Bring lazily rendered items into view before the next query.
		if err := e.ScrollIntoView(ctx, els[len(els)-1]); err != nil {
			return done, err
		}
		if err := e.Sleep(ctx, e.cfg.BatchSettleDelay); err != nil {
			return done, err
		}
	}

	return done, fmt.Errorf("%w: %s still matched after %d passes", ErrBatchNotDrained, loc, e.cfg.BatchMaxPasses)
}
