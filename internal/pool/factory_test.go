// internal/pool/factory_test.go
package pool_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/storefront-e2e/internal/driver/drivertest"
	"github.com/xkilldash9x/storefront-e2e/internal/mocks"
	"github.com/xkilldash9x/storefront-e2e/internal/pool"
)

type initKey struct{}

func TestNew_FactoryInteraction(t *testing.T) {
	t.Run("PassesInitContext", func(t *testing.T) {
		ctx := context.WithValue(context.Background(), initKey{}, "init")
		factory := new(mocks.MockFactory)
		fromInit := mock.MatchedBy(func(c context.Context) bool {
			return c.Value(initKey{}) == "init"
		})
		factory.On("CreateSession", fromInit).Return(drivertest.NewSession(), nil).Once()
		factory.On("CreateSession", fromInit).Return(drivertest.NewSession(), nil).Once()

		p, err := pool.New(ctx, 2, factory, zaptest.NewLogger(t))
		require.NoError(t, err)
		t.Cleanup(func() { _ = p.Close(context.Background()) })

		assert.Equal(t, 2, p.Capacity())
		assert.Len(t, p.Stats().Available, 2)
		factory.AssertExpectations(t)
	})

	t.Run("NilSessionIsAFailure", func(t *testing.T) {
		first := drivertest.NewSession()
		factory := new(mocks.MockFactory)
		factory.On("CreateSession", mock.Anything).Return(first, nil).Once()
		factory.On("CreateSession", mock.Anything).Return(nil, nil).Once()

		_, err := pool.New(context.Background(), 3, factory, zaptest.NewLogger(t))
		var rce *pool.ResourceCreationError
		require.ErrorAs(t, err, &rce)
		assert.Equal(t, 1, rce.Created)
		assert.Equal(t, 3, rce.Capacity)
		assert.ErrorContains(t, err, "nil session")
		assert.True(t, first.Closed(), "sessions created before the failure are closed")
		factory.AssertNumberOfCalls(t, "CreateSession", 2)
	})

	t.Run("StopsAtFirstError", func(t *testing.T) {
		boom := errors.New("target crashed")
		factory := new(mocks.MockFactory)
		factory.On("CreateSession", mock.Anything).Return(nil, boom).Once()

		_, err := pool.New(context.Background(), 3, factory, zaptest.NewLogger(t))
		assert.ErrorIs(t, err, boom)
		factory.AssertNumberOfCalls(t, "CreateSession", 1)
	})
}
