// internal/driver/chrome/element.go
package chrome

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/xkilldash9x/storefront-e2e/internal/driver"
)

// JavaScript snippets evaluated with `this` bound to the node.
const (
	jsIsConnected = `function() { return this.isConnected; }`
	jsInnerText   = `function() { return this.isConnected ? (this.innerText || this.textContent || "") : null; }`
	jsAttribute   = `function(name) { if (!this.isConnected) return null; const v = this.getAttribute(name); return v === null ? "" : v; }`
	jsDisplayed   = `function() {
		if (!this.isConnected) return null;
		const style = window.getComputedStyle(this);
		if (style.display === "none" || style.visibility === "hidden" || style.opacity === "0") return false;
		const rect = this.getBoundingClientRect();
		return rect.width > 0 && rect.height > 0;
	}`
	jsEnabled = `function() { return this.isConnected ? !this.disabled : null; }`
	jsClear   = `function() {
		if (!this.isConnected) return false;
		const proto = Object.getPrototypeOf(this);
		const setter = Object.getOwnPropertyDescriptor(proto, "value");
		if (setter && setter.set) { setter.set.call(this, ""); } else { this.value = ""; }
		this.dispatchEvent(new Event("input", { bubbles: true }));
		this.dispatchEvent(new Event("change", { bubbles: true }));
		return true;
	}`
	jsScrollIntoView = `function() {
		if (!this.isConnected) return false;
		this.scrollIntoView({ block: "center", inline: "nearest" });
		return true;
	}`
)

// Element is a driver.Element pointing at a CDP node id. The id is only
// valid for the lifetime of the node; once the page re-renders it, every
// method fails with driver.ErrStaleElement.
type Element struct {
	session *Session
	node    *cdp.Node
	loc     driver.Locator
}

var _ driver.Element = (*Element)(nil)

// call runs fn on the node and decodes the result into res. A node the page
// has since dropped fails to resolve, which translate reports as stale.
func (e *Element) call(ctx context.Context, fn string, res any, args ...any) error {
	return e.session.run(ctx, chromedp.ActionFunc(func(c context.Context) error {
		obj, err := dom.ResolveNode().WithNodeID(e.node.NodeID).Do(c)
		if err != nil {
			return err
		}
		// Released best effort; it goes away with the page anyway.
		defer func() { _ = runtime.ReleaseObject(obj.ObjectID).Do(c) }()

		return chromedp.CallFunctionOn(fn, res,
			func(p *runtime.CallFunctionOnParams) *runtime.CallFunctionOnParams {
				return p.WithObjectID(obj.ObjectID)
			},
			args...,
		).Do(c)
	}))
}

// ensureConnected turns a detached node into a stale error before an input
// event is dispatched at stale coordinates.
func (e *Element) ensureConnected(ctx context.Context) error {
	var connected bool
	if err := e.call(ctx, jsIsConnected, &connected); err != nil {
		return err
	}
	if !connected {
		return e.stale()
	}
	return nil
}

func (e *Element) stale() error {
	return fmt.Errorf("%w: %s", driver.ErrStaleElement, e.loc)
}

func (e *Element) Click(ctx context.Context) error {
	if err := e.ensureConnected(ctx); err != nil {
		return err
	}
	return e.session.run(ctx, chromedp.MouseClickNode(e.node))
}

func (e *Element) SendKeys(ctx context.Context, text string) error {
	if err := e.ensureConnected(ctx); err != nil {
		return err
	}
	return e.session.run(ctx, chromedp.KeyEventNode(e.node, text))
}

func (e *Element) Clear(ctx context.Context) error {
	var ok bool
	if err := e.call(ctx, jsClear, &ok); err != nil {
		return err
	}
	if !ok {
		return e.stale()
	}
	return nil
}

func (e *Element) Text(ctx context.Context) (string, error) {
	var text *string
	if err := e.call(ctx, jsInnerText, &text); err != nil {
		return "", err
	}
	if text == nil {
		return "", e.stale()
	}
	return *text, nil
}

func (e *Element) Attribute(ctx context.Context, name string) (string, error) {
	var value *string
	if err := e.call(ctx, jsAttribute, &value, name); err != nil {
		return "", err
	}
	if value == nil {
		return "", e.stale()
	}
	return *value, nil
}

func (e *Element) Displayed(ctx context.Context) (bool, error) {
	return e.boolProbe(ctx, jsDisplayed)
}

func (e *Element) Enabled(ctx context.Context) (bool, error) {
	return e.boolProbe(ctx, jsEnabled)
}

// boolProbe evaluates a predicate that yields null for a detached node.
func (e *Element) boolProbe(ctx context.Context, fn string) (bool, error) {
	var v *bool
	if err := e.call(ctx, fn, &v); err != nil {
		return false, err
	}
	if v == nil {
		return false, e.stale()
	}
	return *v, nil
}

func (e *Element) CallFunction(ctx context.Context, fn string, res any) error {
	if err := e.ensureConnected(ctx); err != nil {
		return err
	}
	return e.call(ctx, fn, res)
}

func (e *Element) ScrollIntoView(ctx context.Context) error {
	var ok bool
	if err := e.call(ctx, jsScrollIntoView, &ok); err != nil {
		return err
	}
	if !ok {
		return e.stale()
	}
	return nil
}
