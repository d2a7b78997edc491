// internal/driver/chrome/errors_test.go
package chrome

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"

	"github.com/xkilldash9x/storefront-e2e/internal/driver"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want driver.Kind
	}{
		{"Nil", nil, driver.KindNone},
		{"Canceled", context.Canceled, driver.KindCanceled},
		{"DeadlineWrapped", fmt.Errorf("waiting: %w", context.DeadlineExceeded), driver.KindCanceled},
		{"InvalidTarget", chromedp.ErrInvalidTarget, driver.KindCommunication},
		{"NotVisible", chromedp.ErrNotVisible, driver.KindNotInteractable},
		{"InvalidBoxModel", chromedp.ErrInvalidBoxModel, driver.KindNotInteractable},
		{"NoNode", errors.New("No node with given id found (-32000)"), driver.KindStale},
		{"DetachedMixedCase", errors.New("Node is detached from document"), driver.KindStale},
		{"BoxModel", errors.New("Could not compute box model. (-32000)"), driver.KindNotInteractable},
		{"Unknown", errors.New("websocket: close 1006"), driver.KindCommunication},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translate(tt.in)
			assert.Equal(t, tt.want, driver.Classify(got))
			if tt.in != nil {
				assert.ErrorIs(t, got, tt.in, "the original error must stay in the chain")
			}
		})
	}
}

func TestTranslate_SessionClosed(t *testing.T) {
	for _, in := range []error{chromedp.ErrInvalidContext, chromedp.ErrInvalidTarget, chromedp.ErrChannelClosed} {
		assert.ErrorIs(t, translate(in), driver.ErrSessionClosed)
	}
}
