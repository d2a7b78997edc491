// internal/runner/scenarios.go
package runner

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/xkilldash9x/storefront-e2e/internal/dataset"
)

// ErrUnknownScenario is returned by Select for a name outside the catalog.
var ErrUnknownScenario = errors.New("unknown scenario")

// Scenario is one end-to-end test.
type Scenario struct {
	Name        string
	Description string
	// DataDriven scenarios run once per data row.
	DataDriven bool
	Run        func(ctx context.Context, h *Harness) error
}

// Job is one scheduled run of a scenario.
type Job struct {
	Scenario Scenario
	Data     dataset.Record
	// Label tells the runs of a data-driven scenario apart.
	Label string
}

func (j Job) Name() string {
	if j.Label == "" {
		return j.Scenario.Name
	}
	return j.Scenario.Name + "[" + j.Label + "]"
}

// Plan expands scenarios into jobs. A data-driven scenario becomes one job
// per row, labelled with the row's username or its position; with no rows
// it is left out.
func Plan(scenarios []Scenario, data []dataset.Record) []Job {
	var jobs []Job
	for _, sc := range scenarios {
		if !sc.DataDriven {
			jobs = append(jobs, Job{Scenario: sc})
			continue
		}
		for i, rec := range data {
			label := rec.Get("username")
			if label == "" {
				label = strconv.Itoa(i + 1)
			}
			jobs = append(jobs, Job{Scenario: sc, Data: rec, Label: label})
		}
	}
	return jobs
}

//go:embed data/users.csv
var defaultUsers []byte

// DefaultData is the login table used when no data file is configured.
func DefaultData() ([]dataset.Record, error) {
	return dataset.Read(bytes.NewReader(defaultUsers), nil)
}

// Catalog returns every built-in scenario, sorted by name.
func Catalog() []Scenario {
	out := []Scenario{
		{
			Name:        "login-valid",
			Description: "Log in with the standard demo user and land on the inventory.",
			Run:         loginValid,
		},
		{
			Name:        "login-invalid",
			Description: "Log in with unknown credentials and see the error banner.",
			Run:         loginInvalid,
		},
		{
			Name:        "login-data-driven",
			Description: "Log in once per data row; the expected column decides the outcome.",
			DataDriven:  true,
			Run:         loginDataDriven,
		},
		{
			Name:        "select-product",
			Description: "Pick a product by name, add it from its page and check the cart badge.",
			Run:         selectProduct,
		},
		{
			Name:        "add-all-checkout",
			Description: "Add every product, check out and verify the order totals.",
			Run:         addAllCheckout,
		},
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Select returns the named scenarios from the catalog in the given order, or
// the whole catalog when names is empty.
func Select(names []string) ([]Scenario, error) {
	all := Catalog()
	if len(names) == 0 {
		return all, nil
	}
	byName := make(map[string]Scenario, len(all))
	for _, sc := range all {
		byName[sc.Name] = sc
	}
	out := make([]Scenario, 0, len(names))
	for _, name := range names {
		sc, ok := byName[strings.TrimSpace(name)]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownScenario, name)
		}
		out = append(out, sc)
	}
	return out, nil
}

func loginValid(ctx context.Context, h *Harness) error {
	login := h.Login()
	if err := login.Open(ctx, h.BaseURL); err != nil {
		return err
	}
	if err := login.PerformLoginWithKnownUser(ctx, "standard_user"); err != nil {
		return err
	}
	ok, err := login.IsLoginSuccess(ctx)
	if err != nil {
		return err
	}
	h.Expect(ok, "Valid user reaches the inventory.")
	return nil
}

func loginInvalid(ctx context.Context, h *Harness) error {
	login := h.Login()
	if err := login.Open(ctx, h.BaseURL); err != nil {
		return err
	}
	if err := login.PerformLogin(ctx, "invalid_username", "wrong_password"); err != nil {
		return err
	}
	failed, err := login.IsLoginFailed(ctx)
	if err != nil {
		return err
	}
	h.Expect(failed, "Invalid user is rejected.")
	return nil
}

// loginDataDriven logs in with the row's credentials. When the row has an
// expected column ("success" or "failure") the outcome is checked against
// it; without one every row is expected to log in.
func loginDataDriven(ctx context.Context, h *Harness) error {
	username := h.Data.Get("username")
	password := h.Data.Get("password")
	wantSuccess := !strings.EqualFold(h.Data.Get("expected"), "failure")

	login := h.Login()
	if err := login.Open(ctx, h.BaseURL); err != nil {
		return err
	}
	if err := login.PerformLogin(ctx, username, password); err != nil {
		return err
	}

	failed, err := login.IsLoginFailed(ctx)
	if err != nil {
		return err
	}
	if failed {
		h.Steps.Detail(fmt.Sprintf("Login failed for user %s: %s", username, login.ErrorMessage(ctx)))
		h.Expect(!wantSuccess, "Login of "+username+" is rejected only when expected.")
		return nil
	}
	ok, err := login.IsLoginSuccess(ctx)
	if err != nil {
		return err
	}
	h.Expect(ok == wantSuccess, "Login of "+username+" matches the expected outcome.")
	return nil
}

func selectProduct(ctx context.Context, h *Harness) error {
	product := h.Data.Get("product")
	if product == "" {
		product = "Sauce Labs Backpack"
	}
	login := h.Login()
	if err := login.Open(ctx, h.BaseURL); err != nil {
		return err
	}
	if err := login.PerformLoginWithKnownUser(ctx, "standard_user"); err != nil {
		return err
	}

	dash := h.Dashboard()
	found, err := dash.SelectProduct(ctx, product)
	if err != nil {
		return err
	}
	if err := h.Require(found, product+" is listed."); err != nil {
		return err
	}
	count, err := dash.CartItemCount(ctx)
	if err != nil {
		return err
	}
	h.Expect(count == 1, fmt.Sprintf("Cart badge shows 1 item (got %d).", count))

	if err := dash.OpenMenu(ctx); err != nil {
		return err
	}
	if err := dash.OpenAllItems(ctx); err != nil {
		return err
	}
	found, err = dash.SelectProduct(ctx, "Sauce Labs Hoverboard")
	if err != nil {
		return err
	}
	h.Expect(!found, "A product that is not sold is reported as missing.")
	return nil
}

func addAllCheckout(ctx context.Context, h *Harness) error {
	login := h.Login()
	if err := login.Open(ctx, h.BaseURL); err != nil {
		return err
	}
	if err := login.PerformLoginWithKnownUser(ctx, "standard_user"); err != nil {
		return err
	}

	dash := h.Dashboard()
	added, err := dash.AddAllToCart(ctx)
	if err != nil {
		return err
	}
	if err := h.Require(added > 0, fmt.Sprintf("Products were added to the cart (%d).", added)); err != nil {
		return err
	}
	count, err := dash.CartItemCount(ctx)
	if err != nil {
		return err
	}
	h.Expect(count == added, fmt.Sprintf("Cart badge matches the %d added products (got %d).", added, count))

	checkout := h.Checkout()
	cartTotal, err := checkout.CartTotal(ctx)
	if err != nil {
		return err
	}
	if err := checkout.Start(ctx); err != nil {
		return err
	}
	if err := checkout.EnterFirstName(ctx, "Kenny"); err != nil {
		return err
	}
	if err := checkout.EnterLastName(ctx, "Tester"); err != nil {
		return err
	}
	if err := checkout.EnterPostalCode(ctx, "12345"); err != nil {
		return err
	}
	valid, err := checkout.SubmitInformation(ctx)
	if err != nil {
		return err
	}
	if err := h.Require(valid, "Checkout information is accepted."); err != nil {
		return err
	}
	if err := checkout.ScrollToFinish(ctx); err != nil {
		return err
	}

	sub, okSub, err := checkout.Subtotal(ctx)
	if err != nil {
		return err
	}
	tax, okTax, err := checkout.Tax(ctx)
	if err != nil {
		return err
	}
	total, okTotal, err := checkout.Total(ctx)
	if err != nil {
		return err
	}
	if h.Expect(okSub && okTax && okTotal, "Order summary is readable.") {
		h.Expect(samePrice(sub, cartTotal), fmt.Sprintf("Subtotal %.2f equals the cart total %.2f.", sub, cartTotal))
		h.Expect(samePrice(sub+tax, total), fmt.Sprintf("Total %.2f equals subtotal plus tax %.2f.", total, sub+tax))
	}

	if err := checkout.Finish(ctx); err != nil {
		return err
	}
	done, err := checkout.IsOrderComplete(ctx)
	if err != nil {
		return err
	}
	h.Expect(done, "Order is confirmed.")
	return nil
}

// samePrice compares amounts to the cent.
func samePrice(a, b float64) bool {
	d := a - b
	return d < 0.005 && d > -0.005
}
