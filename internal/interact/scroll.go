// internal/interact/scroll.go
package interact

import (
	"context"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/storefront-e2e/internal/driver"
)

const (
	jsScrollToTop   = `window.scrollTo(0, 0)`
	jsTextContent   = `function() { return this.textContent; }`
	jsScrollToTextF = `(() => {
		const needle = %s;
		const walker = document.createTreeWalker(document.body, NodeFilter.SHOW_TEXT);
		while (walker.nextNode()) {
			const node = walker.currentNode;
			if (node.textContent && node.textContent.includes(needle)) {
				node.parentElement.scrollIntoView({ block: "center" });
				return true;
			}
		}
		return false;
	})()`
)

// ScrollIntoView positions el in the viewport. Best effort: a stale or
// missing element is logged and ignored; only a session failure is returned.
func (e *Engine) ScrollIntoView(ctx context.Context, el driver.Element) error {
	if el == nil {
		return nil
	}
	err := el.ScrollIntoView(ctx)
	return e.bestEffort(ctx, "scroll_into_view", err)
}

// ScrollToTop scrolls the window back to the origin.
func (e *Engine) ScrollToTop(ctx context.Context) error {
	err := e.session.EvaluateScript(ctx, jsScrollToTop, nil)
	return e.bestEffort(ctx, "scroll_to_top", err)
}

// ScrollIntoText scrolls to the first text node containing text. Not finding
// it is logged, not an error.
func (e *Engine) ScrollIntoText(ctx context.Context, text string) error {
	literal, err := jsoniter.MarshalToString(text)
	if err != nil {
		return fmt.Errorf("encoding scroll text: %w", err)
	}
	var found bool
	err = e.session.EvaluateScript(ctx, fmt.Sprintf(jsScrollToTextF, literal), &found)
	if err != nil {
		return e.bestEffort(ctx, "scroll_into_text", err)
	}
	if !found {
		e.logger.Debug("No text node to scroll to.", zap.String("text", text))
	}
	return nil
}

// bestEffort swallows everything except cancellation and session failure.
func (e *Engine) bestEffort(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	switch driver.Classify(err) {
	case driver.KindNotFound, driver.KindStale, driver.KindNotInteractable:
		e.logger.Debug("Best-effort operation skipped.", zap.String("op", op), zap.Error(err))
		return nil
	case driver.KindCanceled:
		if ctx.Err() != nil {
			return err
		}
		return nil
	default:
		e.logger.Warn("Best-effort operation failed.", zap.String("op", op), zap.Error(err))
		return NewDriverCommunicationError(op, "", err)
	}
}

// GetTextWithJS reads textContent through script evaluation rather than the
// driver's rendered-text accessor, which returns "" for nodes the framework
// keeps hidden. Any failure yields "".
func (e *Engine) GetTextWithJS(ctx context.Context, el driver.Element) string {
	if el == nil {
		return ""
	}
	var text string
	if err := el.CallFunction(ctx, jsTextContent, &text); err != nil {
		e.logger.Debug("Script text extraction failed.", zap.Error(err))
		return ""
	}
	return strings.TrimSpace(text)
}
