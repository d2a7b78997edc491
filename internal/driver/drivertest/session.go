// internal/driver/drivertest/session.go
// Package drivertest provides a scriptable in-memory implementation of the
// driver contracts. A fake Session holds a map of locators to element
// providers, so tests can model pages whose contents change as elements are
// clicked, re-rendered, or removed.
package drivertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/storefront-e2e/internal/driver"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// pngHeader is returned by Screenshot so consumers see plausible image bytes.
var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// Session is an in-memory driver.Session.
type Session struct {
	id string

	mu          sync.Mutex
	providers   map[driver.Locator]func() []*Element
	closed      bool
	failure     error
	scriptFn    func(script string) (any, error)
	onNavigate  func(url string)
	scripts     []string
	navigations []string
	queries     int
}

var _ driver.Session = (*Session)(nil)

func NewSession() *Session {
	return &Session{
		id:        uuid.New().String(),
		providers: make(map[driver.Locator]func() []*Element),
	}
}

// Set binds a fixed list of elements to loc.
func (s *Session) Set(loc driver.Locator, els ...*Element) {
	s.SetFunc(loc, func() []*Element { return els })
}

// SetFunc binds a provider evaluated on every query of loc.
func (s *Session) SetFunc(loc driver.Locator, fn func() []*Element) {
	s.mu.Lock()
	s.providers[loc] = fn
	s.mu.Unlock()
}

// Remove unbinds loc; later queries find nothing.
func (s *Session) Remove(loc driver.Locator) {
	s.mu.Lock()
	delete(s.providers, loc)
	s.mu.Unlock()
}

// FailWith makes every subsequent call fail with err. Pass nil to recover.
func (s *Session) FailWith(err error) {
	s.mu.Lock()
	s.failure = err
	s.mu.Unlock()
}

// OnScript installs the evaluator for EvaluateScript.
func (s *Session) OnScript(fn func(script string) (any, error)) {
	s.mu.Lock()
	s.scriptFn = fn
	s.mu.Unlock()
}

// OnNavigate runs fn after every successful navigation.
func (s *Session) OnNavigate(fn func(url string)) {
	s.mu.Lock()
	s.onNavigate = fn
	s.mu.Unlock()
}

func (s *Session) ID() string { return s.id }

func (s *Session) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && s.failure == nil
}

// checkLocked returns the error every call should fail with, if any.
func (s *Session) checkLocked(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed {
		return driver.ErrSessionClosed
	}
	return s.failure
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	s.mu.Lock()
	if err := s.checkLocked(ctx); err != nil {
		s.mu.Unlock()
		return err
	}
	s.navigations = append(s.navigations, url)
	hook := s.onNavigate
	s.mu.Unlock()

	if hook != nil {
		hook(url)
	}
	return nil
}

func (s *Session) FindElement(ctx context.Context, loc driver.Locator) (driver.Element, error) {
	els, err := s.FindElements(ctx, loc)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, fmt.Errorf("%w: %s", driver.ErrNoSuchElement, loc)
	}
	return els[0], nil
}

// FindElements returns the attached elements bound to loc, in order.
func (s *Session) FindElements(ctx context.Context, loc driver.Locator) ([]driver.Element, error) {
	s.mu.Lock()
	if err := s.checkLocked(ctx); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.queries++
	provider := s.providers[loc]
	s.mu.Unlock()

	if provider == nil {
		return []driver.Element{}, nil
	}
	var out []driver.Element
	for _, e := range provider() {
		if !e.Detached() {
			out = append(out, e)
		}
	}
	if out == nil {
		out = []driver.Element{}
	}
	return out, nil
}

func (s *Session) EvaluateScript(ctx context.Context, script string, res any) error {
	s.mu.Lock()
	if err := s.checkLocked(ctx); err != nil {
		s.mu.Unlock()
		return err
	}
	s.scripts = append(s.scripts, script)
	fn := s.scriptFn
	s.mu.Unlock()

	if fn == nil {
		return nil
	}
	out, err := fn(script)
	if err != nil {
		return err
	}
	return decodeInto(out, res)
}

func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLocked(ctx); err != nil {
		return nil, err
	}
	return append([]byte(nil), pngHeader...), nil
}

func (s *Session) Close(context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Scripts returns every script passed to EvaluateScript, in order.
func (s *Session) Scripts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.scripts...)
}

func (s *Session) Navigations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.navigations...)
}

// Queries counts FindElement(s) calls that reached the fake DOM.
func (s *Session) Queries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries
}

// decodeInto copies v into res the way a browser result is decoded: through
// its JSON representation.
func decodeInto(v any, res any) error {
	if res == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding fake script result: %w", err)
	}
	return json.Unmarshal(b, res)
}
