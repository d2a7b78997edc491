// internal/pages/locators.go
package pages

import "github.com/xkilldash9x/storefront-e2e/internal/driver"

// Locators are exported so fakes of the storefront can serve the same
// queries the page objects issue.

// Login page.
var (
	UserNameInput    = driver.ByID("user-name")
	PasswordInput    = driver.ByID("password")
	LoginButton      = driver.ByID("login-button")
	InventoryTitle   = driver.ByXPath("//span[@class='title']")
	LoginErrorButton = driver.ByXPath("//button[@class='error-button']")
	LoginErrorText   = driver.ByCSS(`h3[data-test="error"]`)
)

// Inventory page and the navigation menu.
var (
	ProductNames     = driver.ByXPath(`//div[@data-test="inventory-item-name"]`)
	AddToCartButtons = driver.ByXPath("//button[contains(normalize-space(.), 'Add to cart')]")
	AddToCartDetail  = driver.ByID("add-to-cart")
	CartIcon         = driver.ByXPath("//a[@class='shopping_cart_link']")
	CartBadge        = driver.ByXPath("//span[@class='shopping_cart_badge']")
	BurgerButton     = driver.ByID("react-burger-menu-btn")
	AllItemsLink     = driver.ByID("inventory_sidebar_link")
	ResetAppLink     = driver.ByID("reset_sidebar_link")
	LogoutLink       = driver.ByID("logout_sidebar_link")
)

// Cart and checkout pages.
var (
	CheckoutButton     = driver.ByID("checkout")
	FirstNameInput     = driver.ByID("first-name")
	LastNameInput      = driver.ByID("last-name")
	PostalCodeInput    = driver.ByID("postal-code")
	ContinueButton     = driver.ByID("continue")
	FinishButton       = driver.ByID("finish")
	FirstNameRequired  = driver.ByXPath("//h3[normalize-space(text())='Error: First Name is required']")
	LastNameRequired   = driver.ByXPath("//h3[normalize-space(text())='Error: Last Name is required']")
	PostalCodeRequired = driver.ByXPath("//h3[normalize-space(text())='Error: Postal Code is required']")
	OrderComplete      = driver.ByXPath("//h2[normalize-space()='Thank you for your order!']")
	CartItemPrices     = driver.ByXPath(`//div[@data-test="inventory-item-price"]`)
	SubtotalLabel      = driver.ByXPath("//div[@class='summary_subtotal_label']")
	TaxLabel           = driver.ByXPath("//div[@class='summary_tax_label']")
	TotalLabel         = driver.ByXPath("//div[@class='summary_total_label']")
)
