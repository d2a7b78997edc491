// internal/driver/chrome/context_utils_test.go
package chrome

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type ctxKey struct{}

func TestCombineContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	t.Run("ValuesFromFirst", func(t *testing.T) {
		tab := context.WithValue(context.Background(), ctxKey{}, "tab")
		combined, cancel := CombineContext(tab, context.Background())
		defer cancel()
		assert.Equal(t, "tab", combined.Value(ctxKey{}))
	})

	t.Run("CanceledBySecond", func(t *testing.T) {
		op, opCancel := context.WithCancel(context.Background())
		combined, cancel := CombineContext(context.Background(), op)
		defer cancel()

		opCancel()
		select {
		case <-combined.Done():
		case <-time.After(time.Second):
			t.Fatal("combined context was not canceled with the operational context")
		}
	})

	t.Run("CanceledByFirst", func(t *testing.T) {
		tab, tabCancel := context.WithCancel(context.Background())
		combined, cancel := CombineContext(tab, context.Background())
		defer cancel()

		tabCancel()
		<-combined.Done()
		assert.ErrorIs(t, combined.Err(), context.Canceled)
	})

	t.Run("DeadlineFromSecond", func(t *testing.T) {
		op, opCancel := context.WithTimeout(context.Background(), time.Minute)
		defer opCancel()
		combined, cancel := CombineContext(context.Background(), op)
		defer cancel()

		want, _ := op.Deadline()
		got, ok := combined.Deadline()
		require.True(t, ok)
		assert.Equal(t, want, got)
	})
}
