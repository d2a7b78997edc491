// File: cmd/cmd_test.go
package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/storefront-e2e/internal/config"
	"github.com/xkilldash9x/storefront-e2e/internal/driver"
	"github.com/xkilldash9x/storefront-e2e/internal/driver/drivertest"
	"github.com/xkilldash9x/storefront-e2e/internal/mocks"
	"github.com/xkilldash9x/storefront-e2e/internal/observability"
	"github.com/xkilldash9x/storefront-e2e/internal/pages/pagestest"
	"github.com/xkilldash9x/storefront-e2e/internal/pool"
	"github.com/xkilldash9x/storefront-e2e/internal/reporting"
	"github.com/xkilldash9x/storefront-e2e/internal/runner"
)

const testConfig = `
logger:
  level: error
  log_file: ""
pool:
  capacity: 2
interaction:
  default_timeout: 300ms
  poll_interval: 5ms
  presence_timeout: 50ms
  batch_settle_delay: 0s
environment:
  urls:
    STAGING: https://staging.store.example.test/
    PRODUCTION: https://store.example.test/
runner:
  concurrency: 2
  start_rate: 0
  scenario_timeout: 30s
report:
  dir: %s
  screenshots: false
`

// setup isolates a test from the environment, the global logger and the
// real browser. It returns the config path and the report directory.
func setup(t *testing.T) (string, string) {
	t.Helper()
	t.Setenv(config.EnvironmentVar, "")
	observability.ResetForTest()
	t.Cleanup(observability.ResetForTest)

	dir := t.TempDir()
	reportDir := filepath.Join(dir, "reports")
	path := filepath.Join(dir, "config.yaml")
	content := []byte(fmt.Sprintf(testConfig, reportDir))
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path, reportDir
}

// useFakeBrowser serves sessions from the in-memory storefront.
func useFakeBrowser(t *testing.T, opts ...drivertest.FactoryOption) *drivertest.Factory {
	t.Helper()
	opts = append(opts, drivertest.WithSetup(func(s *drivertest.Session) { pagestest.Install(s) }))
	f := drivertest.NewFactory(opts...)

	prev := newSessionFactory
	newSessionFactory = func(context.Context, config.BrowserConfig, *zap.Logger) (driver.Factory, func(), error) {
		return f, func() {}, nil
	}
	t.Cleanup(func() { newSessionFactory = prev })
	return f
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func readSummary(t *testing.T, path string) reporting.Summary {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var s reporting.Summary
	require.NoError(t, jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(raw, &s))
	return s
}

func TestRootCmd_VersionFlag(t *testing.T) {
	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", out)
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "storefront-e2e "+Version)
}

func TestScenariosCmd(t *testing.T) {
	out, err := execute(t, "scenarios")
	require.NoError(t, err)
	for _, sc := range runner.Catalog() {
		assert.Contains(t, out, sc.Name)
	}
	assert.Contains(t, out, "rows", "data-driven scenarios are marked")
}

func TestRunCmd_JSONReport(t *testing.T) {
	cfgPath, _ := setup(t)
	factory := useFakeBrowser(t)
	report := filepath.Join(t.TempDir(), "out", "report.json")

	_, err := execute(t, "run", "--config", cfgPath,
		"--env", "qa", // unknown, falls back to STAGING
		"--scenario", "login-valid,login-invalid",
		"--output", report)
	require.NoError(t, err)

	s := readSummary(t, report)
	assert.NotEmpty(t, s.RunID)
	assert.Equal(t, 2, s.Total)
	assert.Equal(t, 2, s.Passed)
	for _, res := range s.Scenarios {
		assert.Equal(t, "STAGING", res.Environment)
	}

	// Both pooled sessions were created and closed at the end of the run.
	sessions := factory.Sessions()
	require.Len(t, sessions, 2)
	for _, sess := range sessions {
		assert.True(t, sess.Closed())
		assert.Contains(t, sess.Navigations(), "https://staging.store.example.test/")
	}
}

func TestRunCmd_DefaultReportLocation(t *testing.T) {
	cfgPath, reportDir := setup(t)
	useFakeBrowser(t)

	_, err := execute(t, "run", "-c", cfgPath, "-s", "login-invalid")
	require.NoError(t, err)

	matches, err := filepath.Glob(filepath.Join(reportDir, "run-*.json"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, 1, readSummary(t, matches[0]).Passed)
}

func TestRunCmd_DataDrivenFailure(t *testing.T) {
	cfgPath, _ := setup(t)
	useFakeBrowser(t)

	dir := t.TempDir()
	data := filepath.Join(dir, "users.csv")
	require.NoError(t, os.WriteFile(data, []byte("username,password,expected\nstandard_user,secret_sauce,success\nlocked_out_user,secret_sauce,success\n"), 0o644))
	report := filepath.Join(dir, "report.txt")

	_, err := execute(t, "run", "-c", cfgPath, "-s", "login-data-driven", "--data", data, "-f", "text", "-o", report)
	require.ErrorIs(t, err, ErrScenariosFailed)

	raw, err := os.ReadFile(report)
	require.NoError(t, err)
	assert.Regexp(t, `PASS\s+login-data-driven\[standard_user\]`, string(raw))
	assert.Regexp(t, `FAIL\s+login-data-driven\[locked_out_user\]`, string(raw))
}

func TestRunCmd_Errors(t *testing.T) {
	t.Run("UnknownScenario", func(t *testing.T) {
		cfgPath, _ := setup(t)
		useFakeBrowser(t)
		_, err := execute(t, "run", "-c", cfgPath, "-s", "fly-to-moon")
		assert.ErrorIs(t, err, runner.ErrUnknownScenario)
	})

	t.Run("UnsupportedFormat", func(t *testing.T) {
		cfgPath, _ := setup(t)
		useFakeBrowser(t)
		_, err := execute(t, "run", "-c", cfgPath, "-f", "xml")
		assert.ErrorContains(t, err, "unsupported output format")
	})

	t.Run("BrowserLaunchFails", func(t *testing.T) {
		cfgPath, _ := setup(t)
		prev := newSessionFactory
		newSessionFactory = func(context.Context, config.BrowserConfig, *zap.Logger) (driver.Factory, func(), error) {
			return nil, nil, errors.New("chrome not found")
		}
		t.Cleanup(func() { newSessionFactory = prev })

		_, err := execute(t, "run", "-c", cfgPath, "-s", "login-valid", "-o", filepath.Join(t.TempDir(), "r.json"))
		assert.ErrorContains(t, err, "failed to start the browser")
	})

	t.Run("PoolCreationFails", func(t *testing.T) {
		cfgPath, _ := setup(t)
		factory := useFakeBrowser(t, drivertest.FailAfter(1))

		_, err := execute(t, "run", "-c", cfgPath, "-s", "login-valid", "-o", filepath.Join(t.TempDir(), "r.json"))
		var rce *pool.ResourceCreationError
		require.ErrorAs(t, err, &rce)
		require.Len(t, factory.Sessions(), 1)
		assert.True(t, factory.Sessions()[0].Closed(), "partial pool is torn down")
	})

	t.Run("MissingConfigFile", func(t *testing.T) {
		setup(t)
		_, err := execute(t, "run", "-c", filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorContains(t, err, "failed to initialize configuration")
	})
}

func TestApplyRunFlags(t *testing.T) {
	cfg := new(mocks.MockConfig)
	cfg.On("SetEnvironment", "PRODUCTION").Once()
	cfg.On("SetRunnerConcurrency", 4).Once()

	cmd := &cobra.Command{Use: "run"}
	var flags runFlags
	cmd.Flags().StringVarP(&flags.env, "env", "e", "", "")
	cmd.Flags().IntVar(&flags.concurrency, "concurrency", 0, "")
	cmd.Flags().StringSliceVarP(&flags.scenarios, "scenario", "s", nil, "")
	cmd.Flags().StringVar(&flags.dataFile, "data", "", "")
	cmd.Flags().BoolVar(&flags.headless, "headless", true, "")
	require.NoError(t, cmd.Flags().Parse([]string{"--env", "PRODUCTION", "--concurrency", "4"}))

	applyRunFlags(cmd, cfg, flags)
	cfg.AssertExpectations(t)
	cfg.AssertNotCalled(t, "SetRunnerScenarios", mock.Anything)
	cfg.AssertNotCalled(t, "SetBrowserHeadless", mock.Anything)
}

func TestRunOptions(t *testing.T) {
	cfg := new(mocks.MockConfig)
	cfg.On("Runner").Return(config.RunnerConfig{
		Concurrency: 3, ScenarioTimeout: time.Minute, StartRate: 2, StartBurst: 1, FailFast: true,
	})
	cfg.On("Interaction").Return(config.InteractionConfig{
		DefaultTimeout: 10 * time.Second, RetryCount: 2, PollInterval: 250 * time.Millisecond,
		PresenceTimeout: 2 * time.Second, BatchMaxPasses: 50, BatchSettleDelay: 500 * time.Millisecond,
	})
	cfg.On("Pool").Return(config.PoolConfig{Capacity: 3, AcquireTimeout: 30 * time.Second})
	cfg.On("Report").Return(config.ReportConfig{Screenshots: true})

	opts := runOptions(cfg, config.ResolvedEnvironment{Name: "STAGING", URL: "https://staging.example/"})
	assert.Equal(t, 3, opts.Concurrency)
	assert.Equal(t, time.Minute, opts.ScenarioTimeout)
	assert.Equal(t, 30*time.Second, opts.AcquireTimeout)
	assert.True(t, opts.FailFast)
	assert.True(t, opts.Screenshots)
	assert.Equal(t, "https://staging.example/", opts.BaseURL)
	assert.Equal(t, "STAGING", opts.Environment)
	assert.Equal(t, 2, opts.Interaction.RetryCount)
	assert.Equal(t, 500*time.Millisecond, opts.Interaction.BatchSettleDelay)
	cfg.AssertExpectations(t)
}

func TestReportPath(t *testing.T) {
	rc := config.ReportConfig{Dir: "reports"}
	assert.Equal(t, "out.json", reportPath(rc, runFlags{format: "json", output: "out.json"}, "id"))
	assert.Equal(t, filepath.Join("reports", "run-id.json"), reportPath(rc, runFlags{format: "json"}, "id"))
	assert.Equal(t, "stdout", reportPath(rc, runFlags{format: "text"}, "id"))
	assert.Equal(t, "stdout", reportPath(config.ReportConfig{}, runFlags{format: "json"}, "id"))
}
