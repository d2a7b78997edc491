// internal/driver/drivertest/element.go
package drivertest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/xkilldash9x/storefront-e2e/internal/driver"
)

// Element is an in-memory driver.Element. All state changes are guarded so
// tests can mutate the fake DOM from click hooks or other goroutines.
type Element struct {
	mu sync.Mutex

	name        string
	text        string
	textContent *string
	value       string
	attrs       map[string]string
	hidden      bool
	disabled    bool
	readyAt     time.Time
	detached    bool

	clickErr     error
	staleOnClick int
	staleOnRead  int
	onClick      func(*Element)
	jsResult     func(fn string) (any, error)

	clicks   int
	scrolled int
}

var _ driver.Element = (*Element)(nil)

// ElementOption configures a fake element.
type ElementOption func(*Element)

// WithText sets the rendered text returned by Text.
func WithText(text string) ElementOption {
	return func(e *Element) { e.text = text }
}

// WithTextContent sets the raw text content a script sees, which differs
// from the rendered text for hidden nodes.
func WithTextContent(text string) ElementOption {
	return func(e *Element) { e.textContent = &text }
}

func WithAttr(name, value string) ElementOption {
	return func(e *Element) { e.attrs[name] = value }
}

func Hidden() ElementOption {
	return func(e *Element) { e.hidden = true }
}

func Disabled() ElementOption {
	return func(e *Element) { e.disabled = true }
}

// ReadyAfter keeps the element invisible until d has elapsed.
func ReadyAfter(d time.Duration) ElementOption {
	return func(e *Element) { e.readyAt = time.Now().Add(d) }
}

// FailClick makes every click fail with err.
func FailClick(err error) ElementOption {
	return func(e *Element) { e.clickErr = err }
}

// StaleOnClick detaches the element on its first n clicks, as if the page
// re-rendered the node just before the click landed.
func StaleOnClick(n int) ElementOption {
	return func(e *Element) { e.staleOnClick = n }
}

// StaleOnRead detaches the element on its first n text reads.
func StaleOnRead(n int) ElementOption {
	return func(e *Element) { e.staleOnRead = n }
}

// OnClick runs fn after every successful click.
func OnClick(fn func(*Element)) ElementOption {
	return func(e *Element) { e.onClick = fn }
}

// WithScriptResult overrides what CallFunction returns.
func WithScriptResult(fn func(fn string) (any, error)) ElementOption {
	return func(e *Element) { e.jsResult = fn }
}

// NewElement builds a fake element. The name only shows up in error messages.
func NewElement(name string, opts ...ElementOption) *Element {
	e := &Element{name: name, attrs: make(map[string]string)}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Element) staleErr() error {
	return fmt.Errorf("%w: %s", driver.ErrStaleElement, e.name)
}

func (e *Element) visibleLocked() bool {
	return !e.hidden && !time.Now().Before(e.readyAt)
}

func (e *Element) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	if e.detached {
		e.mu.Unlock()
		return e.staleErr()
	}
	if e.staleOnClick > 0 {
		e.staleOnClick--
		e.detached = true
		e.mu.Unlock()
		return e.staleErr()
	}
	if !e.visibleLocked() || e.disabled {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", driver.ErrNotInteractable, e.name)
	}
	if e.clickErr != nil {
		err := e.clickErr
		e.mu.Unlock()
		return err
	}
	e.clicks++
	hook := e.onClick
	e.mu.Unlock()

	if hook != nil {
		hook(e)
	}
	return nil
}

func (e *Element) SendKeys(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.detached {
		return e.staleErr()
	}
	if !e.visibleLocked() || e.disabled {
		return fmt.Errorf("%w: %s", driver.ErrNotInteractable, e.name)
	}
	e.value += text
	return nil
}

func (e *Element) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.detached {
		return e.staleErr()
	}
	e.value = ""
	return nil
}

// Text mirrors a rendered-text accessor: hidden nodes report "".
func (e *Element) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.detached {
		return "", e.staleErr()
	}
	if e.staleOnRead > 0 {
		e.staleOnRead--
		e.detached = true
		return "", e.staleErr()
	}
	if !e.visibleLocked() {
		return "", nil
	}
	return e.text, nil
}

func (e *Element) Attribute(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.detached {
		return "", e.staleErr()
	}
	if name == "value" {
		return e.value, nil
	}
	return e.attrs[name], nil
}

func (e *Element) Displayed(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.detached {
		return false, e.staleErr()
	}
	return e.visibleLocked(), nil
}

func (e *Element) Enabled(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.detached {
		return false, e.staleErr()
	}
	return !e.disabled, nil
}

// CallFunction returns the element's raw text content unless a script
// result override was configured.
func (e *Element) CallFunction(ctx context.Context, fn string, res any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	if e.detached {
		e.mu.Unlock()
		return e.staleErr()
	}
	override := e.jsResult
	content := e.text
	if e.textContent != nil {
		content = *e.textContent
	}
	e.mu.Unlock()

	var out any = content
	if override != nil {
		var err error
		if out, err = override(fn); err != nil {
			return err
		}
	}
	return decodeInto(out, res)
}

func (e *Element) ScrollIntoView(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.detached {
		return e.staleErr()
	}
	e.scrolled++
	return nil
}

// Detach marks the element stale. Sessions stop returning it from queries.
func (e *Element) Detach() {
	e.mu.Lock()
	e.detached = true
	e.mu.Unlock()
}

func (e *Element) Detached() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.detached
}

func (e *Element) SetAttr(name, value string) {
	e.mu.Lock()
	e.attrs[name] = value
	e.mu.Unlock()
}

func (e *Element) SetText(text string) {
	e.mu.Lock()
	e.text = text
	e.mu.Unlock()
}

func (e *Element) SetHidden(hidden bool) {
	e.mu.Lock()
	e.hidden = hidden
	e.mu.Unlock()
}

// Value returns what has been typed into the element since the last Clear.
func (e *Element) Value() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.value
}

func (e *Element) Clicks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clicks
}

func (e *Element) Scrolled() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scrolled
}
