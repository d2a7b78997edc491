// File: internal/observability/steps.go
package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// EventKind classifies an entry in a scenario's step log.
type EventKind string

const (
	KindStep   EventKind = "STEP"
	KindDetail EventKind = "DETAIL"
	KindPass   EventKind = "PASS"
	KindFail   EventKind = "FAIL"
)

// StepEvent is one user-visible entry of a scenario's step log.
type StepEvent struct {
	// Step is the number of the step the event belongs to. Zero means the
	// event was recorded before the first step.
	Step       int       `json:"step"`
	Kind       EventKind `json:"kind"`
	Message    string    `json:"message"`
	Error      string    `json:"error,omitempty"`
	Time       time.Time `json:"time"`
	Screenshot []byte    `json:"screenshot,omitempty"`
}

// StepSink receives step events as they happen.
type StepSink interface {
	Record(ev StepEvent)
}

// Screenshotter captures the current page. driver.Session satisfies it.
type Screenshotter interface {
	Screenshot(ctx context.Context) ([]byte, error)
}

type nopSink struct{}

func (nopSink) Record(StepEvent) {}

// StepLogger is the per-scenario step log. It numbers steps, mirrors every
// entry to zap and forwards it to a sink (usually the report). It is created
// by the runner when a scenario starts and dropped when it ends.
type StepLogger struct {
	logger *zap.Logger
	sink   StepSink
	shots  Screenshotter
	now    func() time.Time

	mu     sync.Mutex
	step   int
	failed bool
}

// StepOption configures a StepLogger.
type StepOption func(*StepLogger)

// WithScreenshots lets DetailWithScreenshot capture the page through s.
func WithScreenshots(s Screenshotter) StepOption {
	return func(l *StepLogger) { l.shots = s }
}

// WithClock overrides the event timestamp source.
func WithClock(now func() time.Time) StepOption {
	return func(l *StepLogger) { l.now = now }
}

// NewStepLogger returns a step log writing to logger and sink. A nil sink
// discards events.
func NewStepLogger(logger *zap.Logger, sink StepSink, opts ...StepOption) *StepLogger {
	if sink == nil {
		sink = nopSink{}
	}
	l := &StepLogger{
		logger: logger,
		sink:   sink,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Step opens the next numbered step.
func (l *StepLogger) Step(msg string) {
	l.mu.Lock()
	l.step++
	n := l.step
	l.mu.Unlock()

	l.logger.Info(fmt.Sprintf("STEP %d: %s", n, msg), zap.Int("step", n))
	l.record(StepEvent{Step: n, Kind: KindStep, Message: msg})
}

// Detail attaches an informational entry to the current step.
func (l *StepLogger) Detail(msg string) {
	l.logger.Info(msg, zap.Int("step", l.current()))
	l.record(StepEvent{Step: l.current(), Kind: KindDetail, Message: msg})
}

// DetailWithScreenshot is Detail plus a capture of the page. A failed capture
// is logged and the detail is still recorded.
func (l *StepLogger) DetailWithScreenshot(ctx context.Context, msg string) {
	ev := StepEvent{Step: l.current(), Kind: KindDetail, Message: msg}
	if l.shots != nil {
		png, err := l.shots.Screenshot(ctx)
		if err != nil {
			l.logger.Warn("Screenshot capture failed.", zap.Error(err))
		} else {
			ev.Screenshot = png
		}
	}
	l.logger.Info(msg, zap.Int("step", ev.Step), zap.Bool("screenshot", ev.Screenshot != nil))
	l.record(ev)
}

// Pass marks the current step as passed.
func (l *StepLogger) Pass(msg string) {
	l.logger.Info(msg, zap.Int("step", l.current()), zap.String("status", string(KindPass)))
	l.record(StepEvent{Step: l.current(), Kind: KindPass, Message: msg})
}

// Fail marks the current step, and so the scenario, as failed.
func (l *StepLogger) Fail(msg string, err error) {
	l.mu.Lock()
	l.failed = true
	n := l.step
	l.mu.Unlock()

	ev := StepEvent{Step: n, Kind: KindFail, Message: msg}
	if err != nil {
		ev.Error = err.Error()
	}
	l.logger.Error(msg, zap.Int("step", n), zap.Error(err))
	l.record(ev)
}

// Failed reports whether Fail was called.
func (l *StepLogger) Failed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.failed
}

// Steps returns how many steps have been opened.
func (l *StepLogger) Steps() int {
	return l.current()
}

func (l *StepLogger) current() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.step
}

func (l *StepLogger) record(ev StepEvent) {
	ev.Time = l.now()
	l.sink.Record(ev)
}
