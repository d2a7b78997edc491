// internal/interact/match_test.go
package interact

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/storefront-e2e/internal/driver"
	"github.com/xkilldash9x/storefront-e2e/internal/driver/drivertest"
)

func TestMatchText(t *testing.T) {
	tests := []struct {
		candidate, want string
		match           bool
	}{
		{"Sauce Labs Backpack", "Sauce Labs Backpack", true},
		{"  sauce labs backpack\n", "Sauce Labs Backpack", true},
		{"Sauce Labs Backpack", " SAUCE LABS BACKPACK ", true},
		{"Sauce Labs Backpack (red)", "Sauce Labs Backpack", false},
		{"Sauce Labs", "Sauce Labs Backpack", false},
		{"", "", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.match, MatchText(tt.candidate, tt.want), "%q vs %q", tt.candidate, tt.want)
	}
}

func TestFindByText(t *testing.T) {
	ctx := context.Background()
	e, s, _ := newTestEngine(t, fastConfig())
	names := driver.ByXPath(`//div[@data-test="inventory-item-name"]`)
	first := drivertest.NewElement("backpack-1", drivertest.WithText("Sauce Labs Backpack"))
	second := drivertest.NewElement("backpack-2", drivertest.WithText("sauce labs backpack"))
	s.Set(names,
		drivertest.NewElement("bike", drivertest.WithText("Sauce Labs Bike Light")),
		first,
		second,
	)

	el, found, err := e.FindByText(ctx, names, "SAUCE LABS BACKPACK ")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Same(t, first, el, "first match in document order wins")

	el, found, err = e.FindByText(ctx, names, "Sauce Labs Onesie")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, el)
}

func TestFindByText_Stale(t *testing.T) {
	e, s, _ := newTestEngine(t, fastConfig())
	loc := driver.ByCSS(".name")
	s.Set(loc, drivertest.NewElement("n", drivertest.WithText("x"), drivertest.StaleOnRead(1)))

	_, _, err := e.FindByText(context.Background(), loc, "x")
	var se *StaleElementError
	assert.ErrorAs(t, err, &se)
}
