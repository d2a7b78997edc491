// File: internal/mocks/mocks.go
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/storefront-e2e/internal/config"
	"github.com/xkilldash9x/storefront-e2e/internal/driver"
	"github.com/xkilldash9x/storefront-e2e/internal/reporting"
)

// -- Config Mock --

// MockConfig mocks the config.Interface.
type MockConfig struct {
	mock.Mock
}

var _ config.Interface = (*MockConfig)(nil)

// --- Getters ---

func (m *MockConfig) Logger() config.LoggerConfig {
	args := m.Called()
	return args.Get(0).(config.LoggerConfig)
}

func (m *MockConfig) Browser() config.BrowserConfig {
	args := m.Called()
	return args.Get(0).(config.BrowserConfig)
}

func (m *MockConfig) Pool() config.PoolConfig {
	args := m.Called()
	return args.Get(0).(config.PoolConfig)
}

func (m *MockConfig) Interaction() config.InteractionConfig {
	args := m.Called()
	return args.Get(0).(config.InteractionConfig)
}

func (m *MockConfig) Environment() config.EnvironmentConfig {
	args := m.Called()
	return args.Get(0).(config.EnvironmentConfig)
}

func (m *MockConfig) Runner() config.RunnerConfig {
	args := m.Called()
	return args.Get(0).(config.RunnerConfig)
}

func (m *MockConfig) Report() config.ReportConfig {
	args := m.Called()
	return args.Get(0).(config.ReportConfig)
}

func (m *MockConfig) ActiveEnvironment() (config.ResolvedEnvironment, error) {
	args := m.Called()
	return args.Get(0).(config.ResolvedEnvironment), args.Error(1)
}

// --- Setters ---

func (m *MockConfig) SetEnvironment(name string)        { m.Called(name) }
func (m *MockConfig) SetRunnerConcurrency(n int)        { m.Called(n) }
func (m *MockConfig) SetRunnerDataFile(path string)     { m.Called(path) }
func (m *MockConfig) SetRunnerScenarios(names []string) { m.Called(names) }
func (m *MockConfig) SetBrowserHeadless(b bool)         { m.Called(b) }

// -- Reporter Mock --

// MockReporter mocks the reporting.Reporter interface.
type MockReporter struct {
	mock.Mock
}

var _ reporting.Reporter = (*MockReporter)(nil)

func (m *MockReporter) Write(result *reporting.ScenarioResult) error {
	return m.Called(result).Error(0)
}

func (m *MockReporter) Close() error { return m.Called().Error(0) }

// -- Session Pool Mock --

// MockSessionPool mocks the pool surface the runner schedules on.
type MockSessionPool struct {
	mock.Mock
}

func (m *MockSessionPool) Acquire(ctx context.Context) (driver.Session, error) {
	args := m.Called(ctx)
	s, _ := args.Get(0).(driver.Session)
	return s, args.Error(1)
}

func (m *MockSessionPool) AcquireTimeout(ctx context.Context, timeout time.Duration) (driver.Session, error) {
	args := m.Called(ctx, timeout)
	s, _ := args.Get(0).(driver.Session)
	return s, args.Error(1)
}

func (m *MockSessionPool) Release(s driver.Session) { m.Called(s) }

// -- Session Factory Mock --

// MockFactory mocks the driver.Factory interface.
type MockFactory struct {
	mock.Mock
}

var _ driver.Factory = (*MockFactory)(nil)

func (m *MockFactory) CreateSession(ctx context.Context) (driver.Session, error) {
	args := m.Called(ctx)
	s, _ := args.Get(0).(driver.Session)
	return s, args.Error(1)
}
