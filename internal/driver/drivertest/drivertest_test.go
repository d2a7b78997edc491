// internal/driver/drivertest/drivertest_test.go
package drivertest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/storefront-e2e/internal/driver"
)

func TestSession_FindElementsSkipsDetached(t *testing.T) {
	ctx := context.Background()
	s := NewSession()
	a, b := NewElement("a"), NewElement("b")
	s.Set(driver.ByCSS(".item"), a, b)

	els, err := s.FindElements(ctx, driver.ByCSS(".item"))
	require.NoError(t, err)
	assert.Len(t, els, 2)

	a.Detach()
	els, err = s.FindElements(ctx, driver.ByCSS(".item"))
	require.NoError(t, err)
	assert.Len(t, els, 1)

	_, err = s.FindElement(ctx, driver.ByID("missing"))
	assert.ErrorIs(t, err, driver.ErrNoSuchElement)

	els, err = s.FindElements(ctx, driver.ByID("missing"))
	require.NoError(t, err)
	assert.NotNil(t, els)
	assert.Empty(t, els)
}

func TestElement_StaleOnClick(t *testing.T) {
	ctx := context.Background()
	e := NewElement("btn", StaleOnClick(1))

	err := e.Click(ctx)
	assert.ErrorIs(t, err, driver.ErrStaleElement)
	assert.True(t, e.Detached())
	assert.ErrorIs(t, e.Click(ctx), driver.ErrStaleElement)
	assert.Zero(t, e.Clicks())
}

func TestElement_ReadyAfter(t *testing.T) {
	ctx := context.Background()
	e := NewElement("late", WithText("hello"), ReadyAfter(50*time.Millisecond))

	shown, err := e.Displayed(ctx)
	require.NoError(t, err)
	assert.False(t, shown)
	assert.ErrorIs(t, e.Click(ctx), driver.ErrNotInteractable)

	time.Sleep(60 * time.Millisecond)
	shown, err = e.Displayed(ctx)
	require.NoError(t, err)
	assert.True(t, shown)
	require.NoError(t, e.Click(ctx))
	assert.Equal(t, 1, e.Clicks())
}

func TestElement_TextVersusContent(t *testing.T) {
	ctx := context.Background()
	e := NewElement("hidden", WithText("visible?"), WithTextContent("raw"), Hidden())

	text, err := e.Text(ctx)
	require.NoError(t, err)
	assert.Empty(t, text)

	var content string
	require.NoError(t, e.CallFunction(ctx, "function() { return this.textContent; }", &content))
	assert.Equal(t, "raw", content)
}

func TestElement_Typing(t *testing.T) {
	ctx := context.Background()
	e := NewElement("input")
	require.NoError(t, e.SendKeys(ctx, "standard"))
	require.NoError(t, e.SendKeys(ctx, "_user"))
	v, err := e.Attribute(ctx, "value")
	require.NoError(t, err)
	assert.Equal(t, "standard_user", v)

	require.NoError(t, e.Clear(ctx))
	assert.Empty(t, e.Value())
}

func TestSession_FailureAndClose(t *testing.T) {
	ctx := context.Background()
	s := NewSession()
	boom := errors.New("connection reset")

	s.FailWith(boom)
	assert.False(t, s.Alive())
	assert.ErrorIs(t, s.Navigate(ctx, "https://example.test"), boom)

	s.FailWith(nil)
	require.NoError(t, s.Close(ctx))
	assert.True(t, s.Closed())
	_, err := s.FindElements(ctx, driver.ByID("x"))
	assert.ErrorIs(t, err, driver.ErrSessionClosed)
}

func TestSession_EvaluateScript(t *testing.T) {
	ctx := context.Background()
	s := NewSession()
	s.OnScript(func(script string) (any, error) {
		return map[string]any{"ok": true, "len": len(script)}, nil
	})

	var out struct {
		OK  bool `json:"ok"`
		Len int  `json:"len"`
	}
	require.NoError(t, s.EvaluateScript(ctx, "1+1", &out))
	assert.True(t, out.OK)
	assert.Equal(t, 3, out.Len)
	assert.Equal(t, []string{"1+1"}, s.Scripts())
}

func TestFactory_FailAfter(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(FailAfter(2))

	_, err := f.CreateSession(ctx)
	require.NoError(t, err)
	_, err = f.CreateSession(ctx)
	require.NoError(t, err)
	_, err = f.CreateSession(ctx)
	assert.ErrorIs(t, err, ErrCreateFailed)
	assert.Len(t, f.Sessions(), 2)
}
