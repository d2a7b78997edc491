// internal/runner/scenarios_test.go
package runner

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/storefront-e2e/internal/dataset"
	"github.com/xkilldash9x/storefront-e2e/internal/pool"
	"github.com/xkilldash9x/storefront-e2e/internal/reporting"
)

func TestCatalog(t *testing.T) {
	names := make([]string, 0)
	for _, sc := range Catalog() {
		names = append(names, sc.Name)
		assert.NotNil(t, sc.Run, sc.Name)
		assert.NotEmpty(t, sc.Description, sc.Name)
	}
	assert.Equal(t, []string{"add-all-checkout", "login-data-driven", "login-invalid", "login-valid", "select-product"}, names)
}

func TestSelect(t *testing.T) {
	all, err := Select(nil)
	require.NoError(t, err)
	assert.Len(t, all, len(Catalog()))

	picked, err := Select([]string{"login-valid", " add-all-checkout "})
	require.NoError(t, err)
	require.Len(t, picked, 2)
	assert.Equal(t, "login-valid", picked[0].Name)
	assert.Equal(t, "add-all-checkout", picked[1].Name)

	_, err = Select([]string{"login-valid", "fly-to-moon"})
	assert.ErrorIs(t, err, ErrUnknownScenario)
}

func TestPlan(t *testing.T) {
	plain := Scenario{Name: "plain"}
	driven := Scenario{Name: "driven", DataDriven: true}
	data := []dataset.Record{
		{"username": "standard_user"},
		{"username": " "},
	}

	jobs := Plan([]Scenario{plain, driven}, data)
	require.Len(t, jobs, 3)
	assert.Equal(t, "plain", jobs[0].Name())
	assert.Equal(t, "driven[standard_user]", jobs[1].Name())
	assert.Equal(t, "driven[2]", jobs[2].Name())
	assert.Equal(t, "standard_user", jobs[1].Data.Get("username"))

	assert.Len(t, Plan([]Scenario{driven}, nil), 0, "no rows, no runs")
}

func TestDefaultData(t *testing.T) {
	rows, err := DefaultData()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "standard_user", rows[0].Get("username"))
	assert.Equal(t, "failure", rows[1].Get("expected"))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		stepFailed bool
		want       reporting.Status
		fatal      bool
	}{
		{"Passed", nil, false, reporting.StatusPassed, false},
		{"SoftFailure", nil, true, reporting.StatusFailed, false},
		{"ScenarioError", errors.New("x"), false, reporting.StatusFailed, false},
		{"Deadline", context.DeadlineExceeded, false, reporting.StatusFailed, false},
		{"Cancelled", fmt.Errorf("wrapped: %w", context.Canceled), false, reporting.StatusSkipped, false},
		{"InterruptedWait", pool.NewInterruptedWaitError(time.Second, context.Canceled), false, reporting.StatusSkipped, false},
		{"WaitOutlivedDeadline", pool.NewInterruptedWaitError(time.Second, context.DeadlineExceeded), false, reporting.StatusFailed, false},
		{"PoolClosed", pool.ErrPoolClosed, false, reporting.StatusError, true},
		{"PoolExhausted", pool.NewPoolExhaustedError(3, time.Second), false, reporting.StatusError, true},
		{"ResourceCreation", pool.NewResourceCreationError(1, 3, errors.New("no chrome")), false, reporting.StatusError, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, fatal := classify(tt.err, tt.stepFailed)
			assert.Equal(t, tt.want, status)
			assert.Equal(t, tt.fatal, fatal)
		})
	}
}

func TestSamePrice(t *testing.T) {
	assert.True(t, samePrice(140.34, 129.94+10.40))
	assert.True(t, samePrice(10.004, 10.0))
	assert.False(t, samePrice(10.01, 10.0))
}
