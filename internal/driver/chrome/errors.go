// internal/driver/chrome/errors.go
package chrome

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chromedp/chromedp"

	"github.com/xkilldash9x/storefront-e2e/internal/driver"
)

// CDP reports node invalidation and geometry failures as generic -32000
// protocol errors, so the classification has to go by message.
var (
	staleMessages = []string{
		"no node with given id",
		"could not find node with given id",
		"node with given id does not belong to the document",
		"cannot find context with specified id",
		"node is detached from document",
		"element is not attached",
	}
	notInteractableMessages = []string{
		"could not compute box model",
		"could not compute content quads",
		"node is either not visible or not an htmlelement",
		"element is not visible",
	}
)

// translate maps a chromedp/CDP error to the driver sentinel taxonomy. The
// original error is kept in the chain so nothing is lost for logging.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, chromedp.ErrInvalidContext) ||
		errors.Is(err, chromedp.ErrInvalidTarget) ||
		errors.Is(err, chromedp.ErrChannelClosed) {
		return fmt.Errorf("%w: %w", driver.ErrSessionClosed, err)
	}
	if errors.Is(err, chromedp.ErrInvalidBoxModel) || errors.Is(err, chromedp.ErrNotVisible) {
		return fmt.Errorf("%w: %w", driver.ErrNotInteractable, err)
	}

	msg := strings.ToLower(err.Error())
	for _, m := range staleMessages {
		if strings.Contains(msg, m) {
			return fmt.Errorf("%w: %w", driver.ErrStaleElement, err)
		}
	}
	for _, m := range notInteractableMessages {
		if strings.Contains(msg, m) {
			return fmt.Errorf("%w: %w", driver.ErrNotInteractable, err)
		}
	}
	return err
}
