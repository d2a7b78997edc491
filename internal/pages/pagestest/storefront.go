// internal/pages/pagestest/storefront.go
// Package pagestest models the storefront on top of the in-memory driver so
// page objects and whole scenarios can run without a browser.
package pagestest

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/xkilldash9x/storefront-e2e/internal/driver"
	"github.com/xkilldash9x/storefront-e2e/internal/driver/drivertest"
	"github.com/xkilldash9x/storefront-e2e/internal/pages"
)

// Product is an inventory entry.
type Product struct {
	Name  string
	Price float64
}

// DefaultCatalog mirrors the demo store's inventory.
var DefaultCatalog = []Product{
	{"Sauce Labs Backpack", 29.99},
	{"Sauce Labs Bike Light", 9.99},
	{"Sauce Labs Bolt T-Shirt", 15.99},
	{"Sauce Labs Fleece Jacket", 49.99},
	{"Sauce Labs Onesie", 7.99},
	{"Test.allTheThings() T-Shirt (Red)", 15.99},
}

const TaxRate = 0.08

const (
	Password      = "secret_sauce"
	LockedOutUser = "locked_out_user"
)

// Page identifies the screen the fake browser is on.
type Page string

const (
	PageLogin     Page = "login"
	PageInventory Page = "inventory"
	PageDetail    Page = "detail"
	PageCart      Page = "cart"
	PageInfo      Page = "checkout-step-one"
	PageOverview  Page = "checkout-step-two"
	PageComplete  Page = "checkout-complete"
)

const (
	inventoryButtonClass = "btn btn_primary btn_small btn_inventory "
	removeButtonClass    = "btn btn_secondary btn_small btn_inventory "
)

// Storefront is a stateful fake of the store bound to one fake session.
type Storefront struct {
	mu         sync.Mutex
	products   []Product
	page       Page
	user       string
	loginError string
	formError  string
	detail     int
	cart       []int
	staleNames int
	orders     int

	userName, password, loginButton *drivertest.Element
	title, errorButton, errorText   *drivertest.Element
	names, addButtons               []*drivertest.Element
	detailAdd, cartIcon             *drivertest.Element
	burger, allItems, reset, logout *drivertest.Element
	checkout, first, last, postal   *drivertest.Element
	cont, finish, complete          *drivertest.Element
	firstRequired, lastRequired     *drivertest.Element
	postalRequired                  *drivertest.Element
}

// Install wires a storefront selling products (DefaultCatalog when empty)
// into s. Navigating anywhere lands on the login page.
func Install(s *drivertest.Session, products ...Product) *Storefront {
	if len(products) == 0 {
		products = DefaultCatalog
	}
	f := &Storefront{products: products, page: PageLogin}
	f.build()

	s.OnNavigate(func(string) {
		f.mu.Lock()
		f.page = PageLogin
		f.loginError = ""
		f.mu.Unlock()
		// A fresh page load starts with an empty form.
		_ = f.userName.Clear(context.Background())
		_ = f.password.Clear(context.Background())
	})
	s.OnScript(func(script string) (any, error) {
		if strings.Contains(script, "localStorage.clear") {
			f.clearStorage()
			return true, nil
		}
		return nil, nil
	})

	f.bind(s, pages.UserNameInput, PageLogin, func() []*drivertest.Element { return one(f.userName) })
	f.bind(s, pages.PasswordInput, PageLogin, func() []*drivertest.Element { return one(f.password) })
	f.bind(s, pages.LoginButton, PageLogin, func() []*drivertest.Element { return one(f.loginButton) })
	f.bind(s, pages.LoginErrorButton, PageLogin, func() []*drivertest.Element { return f.ifLoginError(f.errorButton) })
	f.bind(s, pages.LoginErrorText, PageLogin, func() []*drivertest.Element { return f.ifLoginError(f.errorText) })

	f.bind(s, pages.InventoryTitle, PageInventory, func() []*drivertest.Element { return one(f.title) })
	f.bind(s, pages.ProductNames, PageInventory, f.productNames)
	f.bind(s, pages.AddToCartButtons, PageInventory, f.availableButtons)
	f.bind(s, pages.AddToCartDetail, PageDetail, func() []*drivertest.Element { return one(f.detailAdd) })

	// Header and menu are on every page behind the login.
	s.SetFunc(pages.CartIcon, f.loggedIn(f.cartIcon))
	s.SetFunc(pages.BurgerButton, f.loggedIn(f.burger))
	s.SetFunc(pages.AllItemsLink, f.loggedIn(f.allItems))
	s.SetFunc(pages.ResetAppLink, f.loggedIn(f.reset))
	s.SetFunc(pages.LogoutLink, f.loggedIn(f.logout))
	s.SetFunc(pages.CartBadge, f.cartBadge)

	f.bind(s, pages.CartItemPrices, PageCart, f.cartPrices)
	f.bind(s, pages.CheckoutButton, PageCart, func() []*drivertest.Element { return one(f.checkout) })
	f.bind(s, pages.FirstNameInput, PageInfo, func() []*drivertest.Element { return one(f.first) })
	f.bind(s, pages.LastNameInput, PageInfo, func() []*drivertest.Element { return one(f.last) })
	f.bind(s, pages.PostalCodeInput, PageInfo, func() []*drivertest.Element { return one(f.postal) })
	f.bind(s, pages.ContinueButton, PageInfo, func() []*drivertest.Element { return one(f.cont) })
	f.bind(s, pages.FirstNameRequired, PageInfo, func() []*drivertest.Element { return f.ifFormError("first", f.firstRequired) })
	f.bind(s, pages.LastNameRequired, PageInfo, func() []*drivertest.Element { return f.ifFormError("last", f.lastRequired) })
	f.bind(s, pages.PostalCodeRequired, PageInfo, func() []*drivertest.Element { return f.ifFormError("postal", f.postalRequired) })

	f.bind(s, pages.FinishButton, PageOverview, func() []*drivertest.Element { return one(f.finish) })
	f.bind(s, pages.SubtotalLabel, PageOverview, func() []*drivertest.Element { return f.summary("subtotal") })
	f.bind(s, pages.TaxLabel, PageOverview, func() []*drivertest.Element { return f.summary("tax") })
	f.bind(s, pages.TotalLabel, PageOverview, func() []*drivertest.Element { return f.summary("total") })
	f.bind(s, pages.OrderComplete, PageComplete, func() []*drivertest.Element { return one(f.complete) })
	return f
}

func one(e *drivertest.Element) []*drivertest.Element { return []*drivertest.Element{e} }

// bind serves fn for loc only while the storefront is on page.
func (f *Storefront) bind(s *drivertest.Session, loc driver.Locator, page Page, fn func() []*drivertest.Element) {
	s.SetFunc(loc, func() []*drivertest.Element {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.page != page {
			return nil
		}
		return fn()
	})
}

func (f *Storefront) loggedIn(e *drivertest.Element) func() []*drivertest.Element {
	return func() []*drivertest.Element {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.page == PageLogin {
			return nil
		}
		return one(e)
	}
}

func (f *Storefront) build() {
	f.userName = drivertest.NewElement("user-name")
	f.password = drivertest.NewElement("password")
	f.loginButton = drivertest.NewElement("login-button", drivertest.OnClick(f.onLogin))
	f.title = drivertest.NewElement("title", drivertest.WithText("Products"))
	f.errorButton = drivertest.NewElement("error-button")
	f.errorText = drivertest.NewElement("error")

	for i, p := range f.products {
		i := i
		f.names = append(f.names, drivertest.NewElement("name-"+strconv.Itoa(i),
			drivertest.WithText(p.Name),
			drivertest.OnClick(func(*drivertest.Element) { f.openDetail(i) })))
		f.addButtons = append(f.addButtons, drivertest.NewElement("add-"+strconv.Itoa(i),
			drivertest.WithText("Add to cart"),
			drivertest.WithAttr("class", inventoryButtonClass),
			drivertest.OnClick(func(e *drivertest.Element) { f.addFromInventory(i, e) })))
	}
	f.detailAdd = drivertest.NewElement("add-to-cart", drivertest.OnClick(func(*drivertest.Element) { f.addFromDetail() }))

	f.cartIcon = drivertest.NewElement("cart", drivertest.OnClick(func(*drivertest.Element) { f.goTo(PageCart) }))
	f.burger = drivertest.NewElement("burger")
	f.allItems = drivertest.NewElement("all-items", drivertest.OnClick(func(*drivertest.Element) { f.goTo(PageInventory) }))
	f.reset = drivertest.NewElement("reset", drivertest.OnClick(func(*drivertest.Element) { f.resetState() }))
	f.logout = drivertest.NewElement("logout", drivertest.OnClick(func(*drivertest.Element) { f.doLogout() }))

	f.checkout = drivertest.NewElement("checkout", drivertest.OnClick(func(*drivertest.Element) { f.goTo(PageInfo) }))
	f.first = drivertest.NewElement("first-name")
	f.last = drivertest.NewElement("last-name")
	f.postal = drivertest.NewElement("postal-code")
	f.cont = drivertest.NewElement("continue", drivertest.OnClick(func(*drivertest.Element) { f.onContinue() }))
	f.firstRequired = drivertest.NewElement("first-required", drivertest.WithText("Error: First Name is required"))
	f.lastRequired = drivertest.NewElement("last-required", drivertest.WithText("Error: Last Name is required"))
	f.postalRequired = drivertest.NewElement("postal-required", drivertest.WithText("Error: Postal Code is required"))

	f.finish = drivertest.NewElement("finish", drivertest.OnClick(func(*drivertest.Element) { f.onFinish() }))
	f.complete = drivertest.NewElement("complete", drivertest.WithText("Thank you for your order!"))
}

func (f *Storefront) onLogin(*drivertest.Element) {
	user, pass := f.userName.Value(), f.password.Value()

	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case user == "":
		f.loginError = "Epic sadface: Username is required"
	case pass == "":
		f.loginError = "Epic sadface: Password is required"
	case user == LockedOutUser && pass == Password:
		f.loginError = "Epic sadface: Sorry, this user has been locked out."
	case pass != Password || !knownUser(user):
		f.loginError = "Epic sadface: Username and password do not match any user in this service"
	default:
		f.loginError = ""
		f.user = user
		f.page = PageInventory
		return
	}
	f.errorText.SetText(f.loginError)
}

func knownUser(name string) bool {
	for _, u := range pages.KnownUsers() {
		if u == name {
			return true
		}
	}
	return false
}

func (f *Storefront) ifLoginError(e *drivertest.Element) []*drivertest.Element {
	if f.loginError == "" {
		return nil
	}
	return one(e)
}

func (f *Storefront) productNames() []*drivertest.Element {
	if f.staleNames > 0 {
		f.staleNames--
		out := make([]*drivertest.Element, len(f.names))
		for i, p := range f.products {
			out[i] = drivertest.NewElement("rerendered-name-"+strconv.Itoa(i),
				drivertest.WithText(p.Name), drivertest.StaleOnRead(1))
		}
		return out
	}
	return f.names
}

func (f *Storefront) inCartLocked(i int) bool {
	for _, c := range f.cart {
		if c == i {
			return true
		}
	}
	return false
}

func (f *Storefront) availableButtons() []*drivertest.Element {
	var out []*drivertest.Element
	for i, b := range f.addButtons {
		if !f.inCartLocked(i) {
			out = append(out, b)
		}
	}
	return out
}

func (f *Storefront) addFromInventory(i int, button *drivertest.Element) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.inCartLocked(i) {
		f.cart = append(f.cart, i)
	}
	button.SetAttr("class", removeButtonClass)
}

func (f *Storefront) openDetail(i int) {
	f.mu.Lock()
	f.detail = i
	f.page = PageDetail
	f.mu.Unlock()
}

func (f *Storefront) addFromDetail() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.inCartLocked(f.detail) {
		f.cart = append(f.cart, f.detail)
		f.addButtons[f.detail].SetAttr("class", removeButtonClass)
	}
}

func (f *Storefront) goTo(p Page) {
	f.mu.Lock()
	f.page = p
	f.mu.Unlock()
}

func (f *Storefront) resetState() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cart = nil
	for _, b := range f.addButtons {
		b.SetAttr("class", inventoryButtonClass)
	}
}

// clearStorage drops what the real store keeps in browser storage: the
// cart and the login.
func (f *Storefront) clearStorage() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cart = nil
	f.user = ""
	f.page = PageLogin
	for _, b := range f.addButtons {
		b.SetAttr("class", inventoryButtonClass)
	}
}

func (f *Storefront) doLogout() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.user = ""
	f.page = PageLogin
}

func (f *Storefront) cartBadge() []*drivertest.Element {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.page == PageLogin || len(f.cart) == 0 {
		return nil
	}
	return one(drivertest.NewElement("badge", drivertest.WithText(strconv.Itoa(len(f.cart)))))
}

func (f *Storefront) cartPrices() []*drivertest.Element {
	out := make([]*drivertest.Element, 0, len(f.cart))
	for _, i := range f.cart {
		out = append(out, drivertest.NewElement("price-"+strconv.Itoa(i),
			drivertest.WithText(fmt.Sprintf("$%.2f", f.products[i].Price))))
	}
	return out
}

func (f *Storefront) onContinue() {
	first, last, postal := f.first.Value(), f.last.Value(), f.postal.Value()

	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case first == "":
		f.formError = "first"
	case last == "":
		f.formError = "last"
	case postal == "":
		f.formError = "postal"
	default:
		f.formError = ""
		f.page = PageOverview
	}
}

func (f *Storefront) ifFormError(field string, e *drivertest.Element) []*drivertest.Element {
	if f.formError != field {
		return nil
	}
	return one(e)
}

// Totals returns subtotal, tax and total of the current cart, rounded the
// way the store displays them.
func (f *Storefront) Totals() (subtotal, tax, total float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.totalsLocked()
}

func (f *Storefront) totalsLocked() (subtotal, tax, total float64) {
	for _, i := range f.cart {
		subtotal += f.products[i].Price
	}
	subtotal = round2(subtotal)
	tax = round2(subtotal * TaxRate)
	return subtotal, tax, round2(subtotal + tax)
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

// summary labels are hidden from the rendered-text accessor and only
// readable through script, like the real overview.
func (f *Storefront) summary(which string) []*drivertest.Element {
	subtotal, tax, total := f.totalsLocked()
	var text string
	switch which {
	case "subtotal":
		text = fmt.Sprintf("Item total: $%.2f", subtotal)
	case "tax":
		text = fmt.Sprintf("Tax: $%.2f", tax)
	default:
		text = fmt.Sprintf("Total: $%.2f", total)
	}
	return one(drivertest.NewElement(which, drivertest.WithTextContent(text)))
}

func (f *Storefront) onFinish() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cart = nil
	f.orders++
	f.page = PageComplete
}

// StaleProductList makes the next n product list queries return nodes that
// detach as soon as they are read, as if the list re-rendered.
func (f *Storefront) StaleProductList(n int) {
	f.mu.Lock()
	f.staleNames = n
	f.mu.Unlock()
}

// Page returns the current screen.
func (f *Storefront) Page() Page {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.page
}

// User returns the logged-in user, or "".
func (f *Storefront) User() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.user
}

// Cart returns the names of the products in the cart, in the order added.
func (f *Storefront) Cart() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.cart))
	for _, i := range f.cart {
		out = append(out, f.products[i].Name)
	}
	return out
}

// Orders counts completed orders.
func (f *Storefront) Orders() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orders
}
