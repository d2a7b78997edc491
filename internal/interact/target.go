// internal/interact/target.go
package interact

import (
	"context"
	"fmt"

	"github.com/xkilldash9x/storefront-e2e/internal/driver"
)

// Target is what an engine operation acts on: something that can produce a
// live element on demand. Locator and supplier targets are re-resolved after
// staleness; a fixed reference is not.
type Target interface {
	Resolve(ctx context.Context, s driver.Session) (driver.Element, error)
	// Refreshable reports whether Resolve can yield a fresh reference.
	Refreshable() bool
	String() string
}

type locatorTarget struct {
	loc driver.Locator
}

// By targets the first element matching loc at the time of each attempt.
func By(loc driver.Locator) Target { return locatorTarget{loc: loc} }

func (t locatorTarget) Resolve(ctx context.Context, s driver.Session) (driver.Element, error) {
	return s.FindElement(ctx, t.loc)
}

func (t locatorTarget) Refreshable() bool { return true }
func (t locatorTarget) String() string    { return t.loc.String() }

// ElementFunc produces a live element reference.
type ElementFunc func(ctx context.Context) (driver.Element, error)

type supplierTarget struct {
	name string
	fn   ElementFunc
}

// Supplier targets whatever fn returns on each attempt. name is only used in
// logs and errors.
func Supplier(name string, fn ElementFunc) Target {
	return supplierTarget{name: name, fn: fn}
}

func (t supplierTarget) Resolve(ctx context.Context, _ driver.Session) (driver.Element, error) {
	el, err := t.fn(ctx)
	if err != nil {
		return nil, err
	}
	if el == nil {
		return nil, fmt.Errorf("%w: supplier %s returned nothing", driver.ErrNoSuchElement, t.name)
	}
	return el, nil
}

func (t supplierTarget) Refreshable() bool { return true }
func (t supplierTarget) String() string    { return "supplier=" + t.name }

type refTarget struct {
	el driver.Element
}

// Ref targets an element reference already in hand. Once it goes stale the
// operation fails, since there is nothing to re-resolve it from.
func Ref(el driver.Element) Target { return refTarget{el: el} }

func (t refTarget) Resolve(context.Context, driver.Session) (driver.Element, error) {
	if t.el == nil {
		return nil, fmt.Errorf("%w: nil element reference", driver.ErrNoSuchElement)
	}
	return t.el, nil
}

func (t refTarget) Refreshable() bool { return false }
func (t refTarget) String() string    { return fmt.Sprintf("ref=%p", t.el) }
