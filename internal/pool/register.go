// internal/pool/register.go
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/xkilldash9x/storefront-e2e/internal/driver"
)

var (
	// ErrNoActiveSession means the scenario has no session bound.
	ErrNoActiveSession = errors.New("no active session for scenario")
	// ErrAlreadyBound means the scenario already owns a different session.
	ErrAlreadyBound = errors.New("scenario already bound to another session")
)

type scenarioKey struct{}

// WithScenario tags ctx with the scenario identity used as the Register key.
func WithScenario(ctx context.Context, scenarioID string) context.Context {
	return context.WithValue(ctx, scenarioKey{}, scenarioID)
}

// ScenarioFrom returns the scenario identity carried by ctx.
func ScenarioFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(scenarioKey{}).(string)
	return id, ok && id != ""
}

// Register maps each running scenario to the session it currently owns. An
// entry is created by Bind at scenario start and removed by Unbind at
// teardown; the runner owns one Register and passes it explicitly.
type Register struct {
	mu      sync.RWMutex
	entries map[string]driver.Session
}

func NewRegister() *Register {
	return &Register{entries: make(map[string]driver.Session)}
}

// Bind records that scenarioID owns s. Binding the same pair twice is a
// no-op; binding a second session to the same scenario is an error.
func (r *Register) Bind(scenarioID string, s driver.Session) error {
	if s == nil {
		return fmt.Errorf("bind %s: nil session", scenarioID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.entries[scenarioID]; ok && cur != s {
		return fmt.Errorf("%w: scenario %s holds %s", ErrAlreadyBound, scenarioID, cur.ID())
	}
	r.entries[scenarioID] = s
	return nil
}

// Unbind removes the scenario's entry and returns the session it held.
func (r *Register) Unbind(scenarioID string) (driver.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.entries[scenarioID]
	delete(r.entries, scenarioID)
	return s, ok
}

func (r *Register) Lookup(scenarioID string) (driver.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.entries[scenarioID]
	return s, ok
}

// Current resolves the session bound to the scenario carried by ctx.
func (r *Register) Current(ctx context.Context) (driver.Session, error) {
	id, ok := ScenarioFrom(ctx)
	if !ok {
		return nil, fmt.Errorf("%w: context carries no scenario", ErrNoActiveSession)
	}
	s, ok := r.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoActiveSession, id)
	}
	return s, nil
}

func (r *Register) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
