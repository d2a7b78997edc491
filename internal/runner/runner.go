// internal/runner/runner.go
// Package runner schedules scenarios onto pooled browser sessions. Each
// scenario gets its own session for its whole lifetime, its own step log and
// its own result, and scenarios run concurrently up to the configured limit.
package runner

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/storefront-e2e/internal/driver"
	"github.com/xkilldash9x/storefront-e2e/internal/interact"
	"github.com/xkilldash9x/storefront-e2e/internal/observability"
	"github.com/xkilldash9x/storefront-e2e/internal/pool"
	"github.com/xkilldash9x/storefront-e2e/internal/reporting"
)

// ErrFailFast is returned by Run when FailFast stopped the run after the
// first unsuccessful scenario.
var ErrFailFast = errors.New("run stopped after a failed scenario")

// ErrScenarioPanic wraps a panic raised inside a scenario body.
var ErrScenarioPanic = errors.New("scenario panicked")

// teardownTimeout bounds the cleanup done on a session before it goes back
// to the pool, including after the scenario's own deadline expired.
const teardownTimeout = 5 * time.Second

// clearStateScript wipes what a scenario leaves behind in the browser so the
// next owner of the session starts logged out.
const clearStateScript = `(() => {
	try { window.localStorage.clear(); } catch (e) {}
	try { window.sessionStorage.clear(); } catch (e) {}
	try {
		document.cookie.split(';').forEach((c) => {
			const name = c.split('=')[0].trim();
			if (name) document.cookie = name + '=;expires=Thu, 01 Jan 1970 00:00:00 GMT;path=/';
		});
	} catch (e) {}
	return true;
})()`

// SessionPool is the part of *pool.Pool the runner uses.
type SessionPool interface {
	Acquire(ctx context.Context) (driver.Session, error)
	AcquireTimeout(ctx context.Context, timeout time.Duration) (driver.Session, error)
	Release(s driver.Session)
}

var _ SessionPool = (*pool.Pool)(nil)

// PageOptions tunes the page objects handed to scenarios. Zero values keep
// the page defaults.
type PageOptions struct {
	SettleDelay  time.Duration
	AddedTimeout time.Duration
}

type Options struct {
	// Concurrency is the number of scenarios in flight. It should not exceed
	// the pool capacity, or the extra scenarios just wait for a session.
	Concurrency     int
	ScenarioTimeout time.Duration
	// AcquireTimeout bounds the wait for a session. Zero waits as long as
	// the scenario context allows.
	AcquireTimeout time.Duration
	// StartRate is scenario starts per second. Zero disables the limiter.
	StartRate  float64
	StartBurst int
	FailFast   bool

	BaseURL     string
	Environment string
	Interaction interact.Config
	Pages       PageOptions
	// Screenshots attaches a page capture to failure details.
	Screenshots bool
}

func (o Options) normalize() Options {
	if o.Concurrency <= 0 {
		o.Concurrency = 1
	}
	if o.StartBurst <= 0 {
		o.StartBurst = 1
	}
	return o
}

// Summary is the outcome of Run. Results are in job order.
type Summary struct {
	Total   int
	Passed  int
	Failed  int
	Errored int
	Skipped int
	Results []*reporting.ScenarioResult
}

// OK reports whether every scenario passed.
func (s Summary) OK() bool {
	return s.Total == s.Passed
}

func (s *Summary) add(r *reporting.ScenarioResult) {
	s.Total++
	switch r.Status {
	case reporting.StatusPassed:
		s.Passed++
	case reporting.StatusFailed:
		s.Failed++
	case reporting.StatusError:
		s.Errored++
	case reporting.StatusSkipped:
		s.Skipped++
	}
	s.Results = append(s.Results, r)
}

type Runner struct {
	pool     SessionPool
	register *pool.Register
	reporter reporting.Reporter
	logger   *zap.Logger
	opts     Options
	limiter  *rate.Limiter

	reportMu sync.Mutex
}

// New creates a runner. The reporter receives every result as it finishes;
// closing it stays with the caller.
func New(p SessionPool, register *pool.Register, reporter reporting.Reporter, logger *zap.Logger, opts Options) (*Runner, error) {
	if p == nil || register == nil || reporter == nil || logger == nil {
		return nil, fmt.Errorf("cannot initialize runner with nil dependencies")
	}
	opts = opts.normalize()
	r := &Runner{
		pool:     p,
		register: register,
		reporter: reporter,
		logger:   logger.Named("runner"),
		opts:     opts,
	}
	if opts.StartRate > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(opts.StartRate), opts.StartBurst)
	}
	return r, nil
}

// Run executes jobs and blocks until all of them have a result. Every job
// is reported, including the ones skipped after the run was cut short. The
// error is non-nil when the run was aborted: a pool failure, FailFast, or
// ctx ending.
func (r *Runner) Run(ctx context.Context, jobs []Job) (Summary, error) {
	r.logger.Info("Starting run.",
		zap.Int("scenarios", len(jobs)),
		zap.Int("concurrency", r.opts.Concurrency),
		zap.String("environment", r.opts.Environment))
	start := time.Now()

	results := make([]*reporting.ScenarioResult, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Concurrency)

	for i, job := range jobs {
		g.Go(func() error {
			if r.limiter != nil {
				if err := r.limiter.Wait(gctx); err != nil {
					results[i] = r.skip(job, err)
					return nil
				}
			}
			res, err := r.runOne(gctx, job)
			results[i] = res
			return err
		})
	}
	runErr := g.Wait()
	if runErr == nil {
		runErr = ctx.Err()
	}

	var summary Summary
	for _, res := range results {
		summary.add(res)
	}
	r.logger.Info("Run finished.",
		zap.Int("total", summary.Total),
		zap.Int("passed", summary.Passed),
		zap.Int("failed", summary.Failed),
		zap.Int("errored", summary.Errored),
		zap.Int("skipped", summary.Skipped),
		zap.Duration("duration", time.Since(start)),
		zap.Error(runErr))
	return summary, runErr
}

// skip reports a job that never got to start.
func (r *Runner) skip(job Job, cause error) *reporting.ScenarioResult {
	rec := reporting.NewScenario(uuid.NewString(), job.Name(), r.opts.Environment, false)
	res := rec.Finish(reporting.StatusSkipped, cause)
	r.write(res)
	return res
}

// runOne owns one session from acquire to release. The returned error is
// non-nil only when the whole run has to stop.
func (r *Runner) runOne(ctx context.Context, job Job) (*reporting.ScenarioResult, error) {
	id := uuid.NewString()
	name := job.Name()
	logger := r.logger.With(zap.String("scenario", name), zap.String("scenario_id", id))
	rec := reporting.NewScenario(id, name, r.opts.Environment, r.opts.Screenshots)

	ctx = pool.WithScenario(ctx, id)
	if r.opts.ScenarioTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.ScenarioTimeout)
		defer cancel()
	}

	session, err := r.acquire(ctx)
	if err != nil {
		logger.Warn("Could not get a session.", zap.Error(err))
		return r.conclude(logger, rec, nil, err)
	}
	if err := r.register.Bind(id, session); err != nil {
		r.pool.Release(session)
		return r.conclude(logger, rec, nil, err)
	}
	rec.SetSession(session.ID())
	logger = logger.With(zap.String("session_id", session.ID()))
	logger.Debug("Session acquired.")

	var stepOpts []observability.StepOption
	if r.opts.Screenshots {
		stepOpts = append(stepOpts, observability.WithScreenshots(session))
	}
	steps := observability.NewStepLogger(logger, rec, stepOpts...)
	h := &Harness{
		ID:          id,
		Name:        name,
		BaseURL:     r.opts.BaseURL,
		Environment: r.opts.Environment,
		Session:     session,
		Engine:      interact.New(session, r.opts.Interaction, logger, interact.WithRecorder(steps)),
		Steps:       steps,
		Data:        job.Data,
		Logger:      logger,
		pageOpts:    r.opts.Pages,
	}

	runErr := r.execute(ctx, logger, job, h)
	if runErr != nil && !errors.Is(runErr, ErrExpectation) && !isInterruption(runErr) {
		steps.Fail("Scenario aborted: "+runErr.Error(), runErr)
	}
	if runErr != nil || steps.Failed() {
		shotCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), teardownTimeout)
		steps.DetailWithScreenshot(shotCtx, "Page at failure.")
		cancel()
	}

	r.teardown(id, session, logger)
	return r.conclude(logger, rec, steps, runErr)
}

func (r *Runner) acquire(ctx context.Context) (driver.Session, error) {
	if r.opts.AcquireTimeout > 0 {
		return r.pool.AcquireTimeout(ctx, r.opts.AcquireTimeout)
	}
	return r.pool.Acquire(ctx)
}

func (r *Runner) execute(ctx context.Context, logger *zap.Logger, job Job, h *Harness) (err error) {
	defer func() {
		if p := recover(); p != nil {
			logger.Error("Scenario panicked",
				zap.Any("panicValue", p),
				zap.String("stack", string(debug.Stack())),
			)
			err = fmt.Errorf("%w: %v", ErrScenarioPanic, p)
		}
	}()
	return job.Scenario.Run(ctx, h)
}

// teardown clears browser state and hands the session back. It runs on a
// fresh deadline so an expired scenario still releases its session.
func (r *Runner) teardown(id string, s driver.Session, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
	defer cancel()

	if s.Alive() {
		if err := s.EvaluateScript(ctx, clearStateScript, nil); err != nil {
			logger.Debug("Could not clear browser state.", zap.Error(err))
		}
	}
	r.register.Unbind(id)
	r.pool.Release(s)
	logger.Debug("Session released.")
}

// conclude classifies the outcome, reports it and decides whether the run
// goes on.
func (r *Runner) conclude(logger *zap.Logger, rec *reporting.Scenario, steps *observability.StepLogger, err error) (*reporting.ScenarioResult, error) {
	failed := steps != nil && steps.Failed()
	status, fatal := classify(err, failed)
	res := rec.Finish(status, err)
	r.write(res)

	logger.Info("Scenario finished.",
		zap.String("status", string(status)),
		zap.Duration("duration", res.Duration),
		zap.Error(err))

	switch {
	case fatal:
		return res, err
	case r.opts.FailFast && (status == reporting.StatusFailed || status == reporting.StatusError):
		return res, fmt.Errorf("%w: %s", ErrFailFast, res.Name)
	}
	return res, nil
}

func (r *Runner) write(res *reporting.ScenarioResult) {
	r.reportMu.Lock()
	defer r.reportMu.Unlock()
	if err := r.reporter.Write(res); err != nil {
		r.logger.Error("Failed to write scenario result.", zap.String("scenario", res.Name), zap.Error(err))
	}
}

// classify maps a scenario outcome to its status. fatal is set for pool
// failures, after which no other scenario can be served either.
func classify(err error, stepFailed bool) (status reporting.Status, fatal bool) {
	var rce *pool.ResourceCreationError
	switch {
	case err == nil && !stepFailed:
		return reporting.StatusPassed, false
	case err == nil:
		return reporting.StatusFailed, false
	case errors.As(err, &rce), errors.Is(err, pool.ErrPoolClosed), errors.Is(err, pool.ErrPoolExhausted):
		return reporting.StatusError, true
	case isInterruption(err):
		return reporting.StatusSkipped, false
	default:
		return reporting.StatusFailed, false
	}
}

// isInterruption reports whether err comes from the run being cancelled
// rather than from the scenario itself. A session wait cut short by the
// scenario's own deadline wraps context.DeadlineExceeded and is a failure.
func isInterruption(err error) bool {
	return errors.Is(err, context.Canceled)
}
