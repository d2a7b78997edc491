// internal/driver/driver.go
// Package driver defines the browser session contract the rest of the framework
// is written against. A Session is one live, addressable browser tab; an Element
// is a reference to a node inside it that may go stale when the page re-renders.
//
// The production implementation lives in driver/chrome (chromedp). Tests use the
// scriptable in-memory implementation in driver/drivertest.
package driver

import "context"

// Factory produces new live sessions. It is consumed once per pool slot at
// pool initialization.
type Factory interface {
	CreateSession(ctx context.Context) (Session, error)
}

// Session is an opaque handle to one browser session. It is owned by at most
// one scenario at a time; implementations do not need to be safe for
// concurrent use by multiple scenarios, but must tolerate Close racing with
// in-flight calls.
type Session interface {
	// ID returns the unique identity of the session.
	ID() string
	// Alive reports whether the underlying browser connection is still usable.
	Alive() bool

	Navigate(ctx context.Context, url string) error

	// FindElement returns the first match for loc in document order, or an
	// error wrapping ErrNoSuchElement.
	FindElement(ctx context.Context, loc Locator) (Element, error)
	// FindElements returns every match for loc in document order. No match is
	// an empty slice, not an error.
	FindElements(ctx context.Context, loc Locator) ([]Element, error)

	// EvaluateScript runs script in the page and decodes its result into res
	// (which may be nil).
	EvaluateScript(ctx context.Context, script string, res any) error

	// Screenshot captures the current viewport as PNG bytes.
	Screenshot(ctx context.Context) ([]byte, error)

	Close(ctx context.Context) error
}

// Element is a live reference to a DOM node. Any method may fail with an error
// wrapping ErrStaleElement once the node has been detached from the document.
type Element interface {
	Click(ctx context.Context) error
	// SendKeys types text into the element without clearing it first.
	SendKeys(ctx context.Context, text string) error
	Clear(ctx context.Context) error

	// Text returns the rendered text accessor of the node.
	Text(ctx context.Context) (string, error)
	// Attribute returns the attribute value, or "" when it is not set.
	Attribute(ctx context.Context, name string) (string, error)

	Displayed(ctx context.Context) (bool, error)
	Enabled(ctx context.Context) (bool, error)

	// CallFunction evaluates a JavaScript function declaration with `this`
	// bound to the element and decodes its return value into res.
	CallFunction(ctx context.Context, fn string, res any) error

	ScrollIntoView(ctx context.Context) error
}
