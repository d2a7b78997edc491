// internal/driver/locator.go
package driver

import "fmt"

// Strategy names how a Locator value is interpreted.
type Strategy string

const (
	StrategyID    Strategy = "id"
	StrategyCSS   Strategy = "css"
	StrategyXPath Strategy = "xpath"
)

// Locator identifies zero or more elements on the page.
type Locator struct {
	Strategy Strategy
	Value    string
}

func ByID(id string) Locator { return Locator{Strategy: StrategyID, Value: id} }
func ByCSS(selector string) Locator { return Locator{Strategy: StrategyCSS, Value: selector} }
func ByXPath(expr string) Locator { return Locator{Strategy: StrategyXPath, Value: expr} }

// String renders the locator the way it appears in logs, e.g. `id=login-button`.
func (l Locator) String() string {
	return fmt.Sprintf("%s=%s", l.Strategy, l.Value)
}

// CSS returns the locator as a CSS selector. XPath locators have no CSS
// equivalent and report ok=false.
func (l Locator) CSS() (selector string, ok bool) {
	switch l.Strategy {
	case StrategyID:
		return fmt.Sprintf(`[id=%q]`, l.Value), true
	case StrategyCSS:
		return l.Value, true
	default:
		return "", false
	}
}
