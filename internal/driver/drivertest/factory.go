// internal/driver/drivertest/factory.go
package drivertest

import (
	"context"
	"errors"
	"sync"

	"github.com/xkilldash9x/storefront-e2e/internal/driver"
)

// ErrCreateFailed is what a Factory returns once its FailAfter budget is used.
var ErrCreateFailed = errors.New("fake session creation failed")

// Factory creates fake sessions and remembers them for inspection.
type Factory struct {
	mu        sync.Mutex
	sessions  []*Session
	failAfter int
	setup     func(*Session)
}

var _ driver.Factory = (*Factory)(nil)

type FactoryOption func(*Factory)

// FailAfter lets n sessions be created, then fails every later call.
func FailAfter(n int) FactoryOption {
	return func(f *Factory) { f.failAfter = n }
}

// WithSetup runs fn on every new session before it is returned.
func WithSetup(fn func(*Session)) FactoryOption {
	return func(f *Factory) { f.setup = fn }
}

func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{failAfter: -1}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Factory) CreateSession(ctx context.Context) (driver.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAfter >= 0 && len(f.sessions) >= f.failAfter {
		return nil, ErrCreateFailed
	}
	s := NewSession()
	if f.setup != nil {
		f.setup(s)
	}
	f.sessions = append(f.sessions, s)
	return s, nil
}

// Sessions returns every session created so far.
func (f *Factory) Sessions() []*Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Session(nil), f.sessions...)
}
