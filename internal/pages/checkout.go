// internal/pages/checkout.go
package pages

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/xkilldash9x/storefront-e2e/internal/driver"
	"github.com/xkilldash9x/storefront-e2e/internal/interact"
)

// ErrNoPrice is returned by ParsePrice when a label holds no number.
var ErrNoPrice = errors.New("no price in label")

var notPriceChars = regexp.MustCompile(`[^0-9.]`)

// ParsePrice extracts the amount from a label such as "Item total: $29.99".
func ParsePrice(label string) (float64, error) {
	clean := notPriceChars.ReplaceAllString(label, "")
	if clean == "" {
		return 0, fmt.Errorf("%w: %q", ErrNoPrice, label)
	}
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrNoPrice, label)
	}
	return v, nil
}

// Checkout covers the cart, the information form, the overview and the
// confirmation page.
type Checkout struct {
	eng   *interact.Engine
	steps Steps
}

func NewCheckout(eng *interact.Engine, steps Steps) *Checkout {
	return &Checkout{eng: eng, steps: steps}
}

// Start leaves the cart for the checkout form.
func (p *Checkout) Start(ctx context.Context) error {
	p.steps.Step("Go to checkout")
	if err := p.eng.ScrollIntoText(ctx, "Checkout"); err != nil {
		return err
	}
	if err := p.eng.ClickWhenReady(ctx, interact.By(CheckoutButton)); err != nil {
		return err
	}
	p.steps.Detail("Checkout form is shown.")
	return nil
}

func (p *Checkout) EnterFirstName(ctx context.Context, v string) error {
	return p.fill(ctx, "first name", FirstNameInput, v)
}

func (p *Checkout) EnterLastName(ctx context.Context, v string) error {
	return p.fill(ctx, "last name", LastNameInput, v)
}

func (p *Checkout) EnterPostalCode(ctx context.Context, v string) error {
	return p.fill(ctx, "postal code", PostalCodeInput, v)
}

func (p *Checkout) fill(ctx context.Context, field string, loc driver.Locator, v string) error {
	p.steps.Step("Enter " + field)
	if err := p.eng.SendKeysWhenReady(ctx, interact.By(loc), v); err != nil {
		return err
	}
	p.steps.Detail(fmt.Sprintf("Entered %s %q.", field, v))
	return nil
}

// SubmitInformation presses Continue and reports whether the form was
// accepted, meaning no "required" error is shown.
func (p *Checkout) SubmitInformation(ctx context.Context) (bool, error) {
	p.steps.Step("Press Continue")
	if err := p.eng.ClickWhenReady(ctx, interact.By(ContinueButton)); err != nil {
		return false, err
	}

	valid := true
	for _, check := range []struct {
		loc driver.Locator
		msg string
	}{
		{FirstNameRequired, "Error: First Name is required"},
		{LastNameRequired, "Error: Last Name is required"},
		{PostalCodeRequired, "Error: Postal Code is required"},
	} {
		shown, err := p.eng.IsElementPresent(ctx, interact.By(check.loc))
		if err != nil {
			return false, err
		}
		if shown {
			p.steps.Detail(check.msg)
			valid = false
		}
	}
	return valid, nil
}

// ScrollToFinish brings the Finish button and the price summary into view.
func (p *Checkout) ScrollToFinish(ctx context.Context) error {
	p.steps.Step("Scroll to the Finish button")
	el, err := p.eng.Session().FindElement(ctx, FinishButton)
	if err != nil {
		if driver.IsNotFound(err) {
			p.steps.Detail("Finish button is not on the page.")
			return nil
		}
		return err
	}
	if err := p.eng.ScrollIntoView(ctx, el); err != nil {
		return err
	}
	p.steps.Detail("Finish button and price summary are in view.")
	return nil
}

// CartTotal sums the item prices listed in the cart, before tax. Unreadable
// prices are reported and left out.
func (p *Checkout) CartTotal(ctx context.Context) (float64, error) {
	els, err := p.eng.RefreshElements(p.eng.All(CartItemPrices))(ctx)
	if err != nil {
		return 0, err
	}
	p.steps.Step(fmt.Sprintf("Add up the prices of %d cart items", len(els)))

	total := 0.0
	for i, el := range els {
		if v, ok := p.price(ctx, el, fmt.Sprintf("cart item %d", i+1)); ok {
			total += v
		}
	}
	p.steps.Detail(fmt.Sprintf("Cart total before tax: %.2f", total))
	return total, nil
}

// Subtotal, Tax and Total read the overview summary. ok is false when the
// label is missing or unreadable.
func (p *Checkout) Subtotal(ctx context.Context) (float64, bool, error) {
	return p.summaryValue(ctx, "subtotal", SubtotalLabel)
}

func (p *Checkout) Tax(ctx context.Context) (float64, bool, error) {
	return p.summaryValue(ctx, "tax", TaxLabel)
}

func (p *Checkout) Total(ctx context.Context) (float64, bool, error) {
	return p.summaryValue(ctx, "total", TotalLabel)
}

func (p *Checkout) summaryValue(ctx context.Context, name string, loc driver.Locator) (float64, bool, error) {
	p.steps.Step("Read the " + name)
	el, err := p.eng.Session().FindElement(ctx, loc)
	if err != nil {
		if ctx.Err() != nil {
			return 0, false, err
		}
		p.steps.Detail(fmt.Sprintf("No %s label: %v", name, err))
		return 0, false, nil
	}
	v, ok := p.price(ctx, el, name)
	return v, ok, nil
}

// price reads a label through script, since the summary labels are not
// always exposed to the rendered-text accessor.
func (p *Checkout) price(ctx context.Context, el driver.Element, label string) (float64, bool) {
	raw := p.eng.GetTextWithJS(ctx, el)
	if raw == "" {
		p.steps.Detail(fmt.Sprintf("Text of %s is empty.", label))
		return 0, false
	}
	v, err := ParsePrice(raw)
	if err != nil {
		p.steps.Detail(fmt.Sprintf("Could not parse a price from %q.", raw))
		return 0, false
	}
	p.steps.Detail(fmt.Sprintf("Price of %s: %.2f", label, v))
	return v, true
}

// Finish places the order.
func (p *Checkout) Finish(ctx context.Context) error {
	p.steps.Step("Press Finish to place the order")
	if err := p.eng.ClickWhenReady(ctx, interact.By(FinishButton)); err != nil {
		return err
	}
	p.steps.Detail("Order placed.")
	return nil
}

// IsOrderComplete reports whether the thank-you message is shown.
func (p *Checkout) IsOrderComplete(ctx context.Context) (bool, error) {
	return p.eng.IsElementPresent(ctx, interact.By(OrderComplete))
}
