// internal/interact/match.go
package interact

import (
	"context"
	"strings"

	"github.com/xkilldash9x/storefront-e2e/internal/driver"
)

// MatchText is the selection policy for text lookups: a case-insensitive
// exact match after trimming surrounding whitespace.
func MatchText(candidate, want string) bool {
	return strings.EqualFold(strings.TrimSpace(candidate), strings.TrimSpace(want))
}

// FindByText scans the elements matching loc in document order and returns
// the first whose visible text matches want. No match is (nil, false, nil).
// A stale element during the scan is returned as a *StaleElementError so the
// caller can retry the whole lookup.
func (e *Engine) FindByText(ctx context.Context, loc driver.Locator, want string) (driver.Element, bool, error) {
	els, err := e.RefreshElements(e.All(loc))(ctx)
	if err != nil {
		return nil, false, err
	}
	for _, el := range els {
		text, err := el.Text(ctx)
		if err != nil {
			switch driver.Classify(err) {
			case driver.KindStale:
				return nil, false, NewStaleElementError("find_by_text", loc.String(), 1, err)
			case driver.KindCanceled:
				return nil, false, err
			default:
				return nil, false, NewDriverCommunicationError("find_by_text", loc.String(), err)
			}
		}
		if MatchText(text, want) {
			return el, true, nil
		}
	}
	return nil, false, nil
}
