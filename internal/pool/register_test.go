// internal/pool/register_test.go
package pool

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/storefront-e2e/internal/driver/drivertest"
)

func TestRegister_Lifecycle(t *testing.T) {
	r := NewRegister()
	s := drivertest.NewSession()

	require.NoError(t, r.Bind("scenario-1", s))
	require.NoError(t, r.Bind("scenario-1", s), "rebinding the same session is allowed")
	assert.Equal(t, 1, r.Len())

	err := r.Bind("scenario-1", drivertest.NewSession())
	assert.ErrorIs(t, err, ErrAlreadyBound)

	got, ok := r.Lookup("scenario-1")
	require.True(t, ok)
	assert.Same(t, s, got)

	ctx := WithScenario(context.Background(), "scenario-1")
	cur, err := r.Current(ctx)
	require.NoError(t, err)
	assert.Same(t, s, cur)

	released, ok := r.Unbind("scenario-1")
	assert.True(t, ok)
	assert.Same(t, s, released)
	assert.Zero(t, r.Len())

	_, err = r.Current(ctx)
	assert.ErrorIs(t, err, ErrNoActiveSession)
	_, err = r.Current(context.Background())
	assert.ErrorIs(t, err, ErrNoActiveSession)
}

func TestRegister_NilSession(t *testing.T) {
	assert.Error(t, NewRegister().Bind("x", nil))
}

func TestScenarioFrom(t *testing.T) {
	_, ok := ScenarioFrom(context.Background())
	assert.False(t, ok)
	_, ok = ScenarioFrom(WithScenario(context.Background(), ""))
	assert.False(t, ok)
	id, ok := ScenarioFrom(WithScenario(context.Background(), "abc"))
	assert.True(t, ok)
	assert.Equal(t, "abc", id)
}

func TestRegister_Concurrent(t *testing.T) {
	r := NewRegister()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("scenario-%d", i)
			s := drivertest.NewSession()
			assert.NoError(t, r.Bind(id, s))
			got, ok := r.Lookup(id)
			assert.True(t, ok)
			assert.Same(t, s, got)
			r.Unbind(id)
		}(i)
	}
	wg.Wait()
	assert.Zero(t, r.Len())
}
