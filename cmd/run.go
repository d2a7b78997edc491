// File: cmd/run.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/storefront-e2e/internal/config"
	"github.com/xkilldash9x/storefront-e2e/internal/dataset"
	"github.com/xkilldash9x/storefront-e2e/internal/driver"
	"github.com/xkilldash9x/storefront-e2e/internal/driver/chrome"
	"github.com/xkilldash9x/storefront-e2e/internal/interact"
	"github.com/xkilldash9x/storefront-e2e/internal/observability"
	"github.com/xkilldash9x/storefront-e2e/internal/pool"
	"github.com/xkilldash9x/storefront-e2e/internal/reporting"
	"github.com/xkilldash9x/storefront-e2e/internal/runner"
)

// ErrScenariosFailed is returned by the run command when at least one
// scenario did not pass.
var ErrScenariosFailed = errors.New("one or more scenarios did not pass")

// factoryProvider launches the browser backing the session pool. The
// returned func releases it.
type factoryProvider func(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (driver.Factory, func(), error)

// newSessionFactory is swapped out by tests.
var newSessionFactory factoryProvider = func(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (driver.Factory, func(), error) {
	f, err := chrome.NewFactory(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

type runFlags struct {
	env         string
	concurrency int
	scenarios   []string
	dataFile    string
	headless    bool
	format      string
	output      string
}

func newRunCmd(a *app) *cobra.Command {
	var flags runFlags

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run scenarios against the active environment",
		Long: `Runs the selected scenarios (all of them by default) concurrently, each on
its own pooled browser session, and writes a report of every result.

The target environment comes from --env, the ENVIRONMENT variable or the
config file, in that order, and falls back to STAGING when unknown.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			applyRunFlags(cmd, a.cfg, flags)
			return runScenarios(cmd.Context(), a.cfg, flags)
		},
	}

	runCmd.Flags().StringVarP(&flags.env, "env", "e", "", "target environment (overrides ENVIRONMENT)")
	runCmd.Flags().IntVar(&flags.concurrency, "concurrency", 0, "scenarios in flight at once")
	runCmd.Flags().StringSliceVarP(&flags.scenarios, "scenario", "s", nil, "scenario to run; repeat or comma-separate for several (default all)")
	runCmd.Flags().StringVar(&flags.dataFile, "data", "", "CSV file feeding the data-driven scenarios")
	runCmd.Flags().BoolVar(&flags.headless, "headless", true, "run the browser without a window")
	runCmd.Flags().StringVarP(&flags.format, "format", "f", "json", "report format: json or text")
	runCmd.Flags().StringVarP(&flags.output, "output", "o", "", "report path, or stdout (default <report.dir>/run-<id>.json for json, stdout for text)")
	return runCmd
}

// applyRunFlags copies the flags the user actually set over the loaded
// configuration.
func applyRunFlags(cmd *cobra.Command, cfg config.Interface, flags runFlags) {
	f := cmd.Flags()
	if f.Changed("env") {
		cfg.SetEnvironment(flags.env)
	}
	if f.Changed("concurrency") {
		cfg.SetRunnerConcurrency(flags.concurrency)
	}
	if f.Changed("scenario") {
		cfg.SetRunnerScenarios(flags.scenarios)
	}
	if f.Changed("data") {
		cfg.SetRunnerDataFile(flags.dataFile)
	}
	if f.Changed("headless") {
		cfg.SetBrowserHeadless(flags.headless)
	}
}

func runScenarios(ctx context.Context, cfg config.Interface, flags runFlags) error {
	logger := observability.GetLogger()
	runID := uuid.NewString()

	env, err := cfg.ActiveEnvironment()
	if err != nil {
		return err
	}
	if env.FellBack {
		logger.Warn("Unknown environment, using the default.",
			zap.String("requested", env.Requested),
			zap.String("using", env.Name))
	}

	scenarios, err := runner.Select(cfg.Runner().Scenarios)
	if err != nil {
		return err
	}
	data, err := loadData(cfg.Runner().DataFile, scenarios)
	if err != nil {
		return err
	}
	jobs := runner.Plan(scenarios, data)
	if len(jobs) == 0 {
		return fmt.Errorf("nothing to run: no scenario selected or no data rows")
	}

	reporter, err := reporting.New(flags.format, reportPath(cfg.Report(), flags, runID), reporting.Options{
		RunID:  runID,
		Pretty: cfg.Report().Pretty,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := reporter.Close(); err != nil {
			logger.Error("Failed to write the report.", zap.Error(err))
		}
	}()

	initCtx := ctx
	if t := cfg.Pool().InitTimeout; t > 0 {
		var cancel context.CancelFunc
		initCtx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}
	factory, shutdown, err := newSessionFactory(initCtx, cfg.Browser(), logger)
	if err != nil {
		return fmt.Errorf("failed to start the browser: %w", err)
	}
	defer shutdown()

	sessions, err := pool.New(initCtx, cfg.Pool().Capacity, factory, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := sessions.Close(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("Errors while closing browser sessions.", zap.Error(err))
		}
	}()

	r, err := runner.New(sessions, pool.NewRegister(), reporter, logger, runOptions(cfg, env))
	if err != nil {
		return err
	}

	logger.Info("Run starting.",
		zap.String("run_id", runID),
		zap.String("environment", env.Name),
		zap.String("base_url", env.URL),
		zap.Int("jobs", len(jobs)),
		zap.Int("pool_capacity", sessions.Capacity()))

	summary, err := r.Run(ctx, jobs)
	if err != nil {
		return err
	}
	if !summary.OK() {
		return fmt.Errorf("%w: %d failed, %d errored, %d skipped of %d",
			ErrScenariosFailed, summary.Failed, summary.Errored, summary.Skipped, summary.Total)
	}
	return nil
}

// runOptions maps the configuration onto the runner.
func runOptions(cfg config.Interface, env config.ResolvedEnvironment) runner.Options {
	rc := cfg.Runner()
	ic := cfg.Interaction()
	return runner.Options{
		Concurrency:     rc.Concurrency,
		ScenarioTimeout: rc.ScenarioTimeout,
		AcquireTimeout:  cfg.Pool().AcquireTimeout,
		StartRate:       rc.StartRate,
		StartBurst:      rc.StartBurst,
		FailFast:        rc.FailFast,
		BaseURL:         env.URL,
		Environment:     env.Name,
		Interaction: interact.Config{
			DefaultTimeout:   ic.DefaultTimeout,
			RetryCount:       ic.RetryCount,
			PollInterval:     ic.PollInterval,
			PresenceTimeout:  ic.PresenceTimeout,
			BatchMaxPasses:   ic.BatchMaxPasses,
			BatchSettleDelay: ic.BatchSettleDelay,
		},
		Screenshots: cfg.Report().Screenshots,
	}
}

// loadData reads the data file, or the built-in login table when no file is
// configured. Nothing is read unless a data-driven scenario is selected.
func loadData(path string, scenarios []runner.Scenario) ([]dataset.Record, error) {
	needed := false
	for _, sc := range scenarios {
		needed = needed || sc.DataDriven
	}
	if !needed {
		return nil, nil
	}
	if path == "" {
		return runner.DefaultData()
	}
	return dataset.Load(path, nil)
}

func reportPath(rc config.ReportConfig, flags runFlags, runID string) string {
	if flags.output != "" {
		return flags.output
	}
	if strings.EqualFold(flags.format, "json") && rc.Dir != "" {
		return filepath.Join(rc.Dir, "run-"+runID+".json")
	}
	return "stdout"
}
