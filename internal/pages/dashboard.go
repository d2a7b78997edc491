// internal/pages/dashboard.go
package pages

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xkilldash9x/storefront-e2e/internal/driver"
	"github.com/xkilldash9x/storefront-e2e/internal/interact"
)

// addedClass is the class an inventory button gains once its product is in
// the cart.
const addedClass = "btn_secondary"

// Dashboard is the inventory page and its navigation menu.
type Dashboard struct {
	eng   *interact.Engine
	steps Steps

	// AddedTimeout bounds the wait for a clicked add button to flip to
	// "Remove".
	AddedTimeout time.Duration
	// SelectRetries is how many times SelectProduct starts over after the
	// product list re-renders under it.
	SelectRetries int
}

func NewDashboard(eng *interact.Engine, steps Steps) *Dashboard {
	return &Dashboard{eng: eng, steps: steps, AddedTimeout: 5 * time.Second, SelectRetries: 1}
}

func (p *Dashboard) OpenMenu(ctx context.Context) error {
	p.steps.Step("Open the navigation menu")
	if err := p.eng.ClickWhenReady(ctx, interact.By(BurgerButton)); err != nil {
		return err
	}
	p.steps.Detail("Navigation menu is open.")
	return nil
}

// OpenAllItems returns to the inventory through the navigation menu, which
// must be open.
func (p *Dashboard) OpenAllItems(ctx context.Context) error {
	p.steps.Step("Back to all items")
	if err := p.eng.ClickWhenReady(ctx, interact.By(AllItemsLink)); err != nil {
		return err
	}
	p.steps.Detail("Inventory is shown.")
	return nil
}

// ResetAppState clears the cart through the navigation menu, which must be
// open.
func (p *Dashboard) ResetAppState(ctx context.Context) error {
	p.steps.Step("Reset app state")
	if err := p.eng.ClickWhenReady(ctx, interact.By(ResetAppLink)); err != nil {
		return err
	}
	p.steps.Detail("App state was reset.")
	return nil
}

// Logout signs out through the navigation menu, which must be open.
func (p *Dashboard) Logout(ctx context.Context) error {
	p.steps.Step("Log out")
	if err := p.eng.ClickWhenReady(ctx, interact.By(LogoutLink)); err != nil {
		return err
	}
	p.steps.Detail("Logged out, login page is shown.")
	return nil
}

// SelectProduct opens the product whose name matches name (trimmed, case
// insensitive) and adds it to the cart from its detail page. found is false
// when no product matches. A re-render during the lookup or the click starts
// the selection over, at most SelectRetries times.
func (p *Dashboard) SelectProduct(ctx context.Context, name string) (found bool, err error) {
	p.steps.Step("Select product " + name)

	for attempt := 0; ; attempt++ {
		found, err = p.selectOnce(ctx, name)
		if err == nil || !interact.IsStale(err) || attempt >= p.SelectRetries {
			break
		}
		p.steps.Detail(fmt.Sprintf("Product list went stale, retrying selection of %q.", name))
	}
	if err != nil {
		return false, err
	}
	if found {
		p.steps.Detail(fmt.Sprintf("Product %q added to the cart.", name))
	} else {
		p.steps.Detail(fmt.Sprintf("Product %q is not on the page.", name))
	}
	return found, nil
}

func (p *Dashboard) selectOnce(ctx context.Context, name string) (bool, error) {
	el, found, err := p.eng.FindByText(ctx, ProductNames, name)
	if err != nil || !found {
		return false, err
	}
	if err := p.eng.ClickWhenReady(ctx, interact.Ref(el)); err != nil {
		return false, err
	}
	if err := p.eng.ClickWhenReady(ctx, interact.By(AddToCartDetail)); err != nil {
		return false, err
	}
	return true, nil
}

// AddAllToCart clicks every "Add to cart" button until none is left, then
// opens the cart. It returns how many products were added. A click counts
// once it lands; a button that does not flip to "Remove" in time is only
// reported.
func (p *Dashboard) AddAllToCart(ctx context.Context) (int, error) {
	p.steps.Step("Add every available product to the cart")

	added := 0
	addOne := func(ctx context.Context, el driver.Element) error {
		if err := p.eng.ClickWhenReady(ctx, interact.Ref(el)); err != nil {
			return err
		}
		added++
		err := p.eng.WaitForAttributeContains(ctx, interact.Ref(el), "class", addedClass, p.AddedTimeout)
		switch {
		case err == nil:
			p.steps.Detail(fmt.Sprintf("Product %d added to the cart.", added))
		case interact.IsTimeout(err):
			p.steps.Detail("Timeout: button did not turn into Remove after the click.")
		case interact.IsStale(err):
			// The button re-rendered as Remove.
		default:
			return err
		}
		return nil
	}

	if _, err := p.eng.ForEachUntilEmpty(ctx, AddToCartButtons, addOne); err != nil {
		return added, err
	}
	if err := p.eng.ScrollToTop(ctx); err != nil {
		return added, err
	}
	p.steps.Detail("Every product was added to the cart.")

	p.steps.Step("Open the cart")
	if err := p.eng.ClickWhenReady(ctx, interact.By(CartIcon)); err != nil {
		if ctx.Err() != nil || interact.IsCommunication(err) {
			return added, err
		}
		p.steps.Detail("Could not open the cart: " + err.Error())
		return added, nil
	}
	p.steps.Detail("Cart is open.")
	return added, nil
}

// CartItemCount reads the cart badge. No badge, or one that does not hold a
// number, is 0.
func (p *Dashboard) CartItemCount(ctx context.Context) (int, error) {
	badges, err := p.eng.Session().FindElements(ctx, CartBadge)
	if err != nil {
		if ctx.Err() != nil {
			return 0, err
		}
		p.steps.Detail("Could not read the cart badge: " + err.Error())
		return 0, nil
	}
	if len(badges) == 0 {
		return 0, nil
	}
	text, err := badges[0].Text(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return 0, err
		}
		p.steps.Detail("Could not read the cart badge: " + err.Error())
		return 0, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		p.steps.Detail(fmt.Sprintf("Cart badge %q is not a number.", text))
		return 0, nil
	}
	return n, nil
}
