// internal/driver/chrome/context_utils.go
package chrome

import (
	"context"
)

// CombineContext creates a new context derived from ctx1 (the tab context)
// that is canceled when *either* ctx1 or ctx2 (the operational context) is
// canceled. Values come from ctx1, which is what chromedp needs: ctx1 carries
// the CDP target, ctx2 carries the caller's deadline.
func CombineContext(ctx1, ctx2 context.Context) (context.Context, context.CancelFunc) {
	combinedCtx, cancel := context.WithCancel(ctx1)

	// Propagate the tighter deadline so chromedp's own waits honour it.
	if deadline, ok := ctx2.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		combinedCtx, cancelDeadline = context.WithDeadline(combinedCtx, deadline)
		inner := cancel
		cancel = func() {
			cancelDeadline()
			inner()
		}
	}

	stop := context.AfterFunc(ctx2, cancel)
	return combinedCtx, func() {
		stop()
		cancel()
	}
}
