// internal/pages/login.go
// Package pages holds page objects for the storefront under test. A page
// object only drives the UI and reads state back; pass/fail decisions belong
// to the scenario that uses it.
package pages

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/xkilldash9x/storefront-e2e/internal/interact"
)

// Steps is the part of a scenario's step log page objects write to.
// *observability.StepLogger satisfies it.
type Steps interface {
	Step(msg string)
	Detail(msg string)
}

// ErrUnknownUser is returned for a username outside the demo credential table.
var ErrUnknownUser = errors.New("unknown user")

// knownUsers are the demo accounts the storefront ships with.
var knownUsers = map[string]string{
	"standard_user":           "secret_sauce",
	"locked_out_user":         "secret_sauce",
	"problem_user":            "secret_sauce",
	"performance_glitch_user": "secret_sauce",
	"error_user":              "secret_sauce",
	"visual_user":             "secret_sauce",
}

// KnownUsers lists the demo usernames in sorted order.
func KnownUsers() []string {
	names := make([]string, 0, len(knownUsers))
	for name := range knownUsers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type Login struct {
	eng   *interact.Engine
	steps Steps

	// SettleDelay is how long PerformLoginWithKnownUser waits after
	// submitting for the inventory page to render.
	SettleDelay time.Duration
}

func NewLogin(eng *interact.Engine, steps Steps) *Login {
	return &Login{eng: eng, steps: steps, SettleDelay: time.Second}
}

// Open navigates to the login page at baseURL.
func (p *Login) Open(ctx context.Context, baseURL string) error {
	p.steps.Step("Open " + baseURL)
	if err := p.eng.Session().Navigate(ctx, baseURL); err != nil {
		return fmt.Errorf("opening login page: %w", err)
	}
	return nil
}

// PerformLogin submits the login form with the given credentials.
func (p *Login) PerformLogin(ctx context.Context, username, password string) error {
	p.steps.Step("Log in as " + username)
	return p.submit(ctx, username, password)
}

// PerformLoginWithKnownUser logs in as one of the demo accounts and waits
// SettleDelay for the next page.
func (p *Login) PerformLoginWithKnownUser(ctx context.Context, username string) error {
	p.steps.Step("Log in with demo user " + username)
	password, ok := knownUsers[username]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownUser, username)
	}
	if err := p.submit(ctx, username, password); err != nil {
		return err
	}
	return p.eng.Sleep(ctx, p.SettleDelay)
}

func (p *Login) submit(ctx context.Context, username, password string) error {
	if err := p.eng.SendKeysWhenReady(ctx, interact.By(UserNameInput), username); err != nil {
		return err
	}
	if err := p.eng.SendKeysWhenReady(ctx, interact.By(PasswordInput), password); err != nil {
		return err
	}
	return p.eng.ClickWhenReady(ctx, interact.By(LoginButton))
}

// IsLoginSuccess reports whether the inventory page title is shown.
func (p *Login) IsLoginSuccess(ctx context.Context) (bool, error) {
	return p.eng.IsElementPresent(ctx, interact.By(InventoryTitle))
}

// IsLoginFailed reports whether the login error banner is shown.
func (p *Login) IsLoginFailed(ctx context.Context) (bool, error) {
	return p.eng.IsElementPresent(ctx, interact.By(LoginErrorButton))
}

// ErrorMessage returns the login error text, or "" when there is none.
func (p *Login) ErrorMessage(ctx context.Context) string {
	return p.eng.GetTextIfPresent(ctx, interact.By(LoginErrorText))
}
