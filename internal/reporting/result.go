// internal/reporting/result.go
package reporting

import (
	"sync"
	"time"

	"github.com/xkilldash9x/storefront-e2e/internal/observability"
)

// Status is the outcome of one scenario run.
type Status string

const (
	StatusPassed Status = "passed"
	// StatusFailed means an assertion or interaction inside the scenario failed.
	StatusFailed Status = "failed"
	// StatusError means the scenario never got to run its steps, for example
	// because no session could be acquired.
	StatusError   Status = "error"
	StatusSkipped Status = "skipped"
)

// ScenarioResult is the report entry for one scenario run.
type ScenarioResult struct {
	ID          string                    `json:"id"`
	Name        string                    `json:"name"`
	Environment string                    `json:"environment,omitempty"`
	SessionID   string                    `json:"session_id,omitempty"`
	Status      Status                    `json:"status"`
	Error       string                    `json:"error,omitempty"`
	Started     time.Time                 `json:"started"`
	Finished    time.Time                 `json:"finished"`
	Duration    time.Duration             `json:"duration_ns"`
	Steps       []observability.StepEvent `json:"steps"`
}

// Scenario collects the step events of one running scenario. It is the
// observability.StepSink the runner hands to the scenario's step logger.
type Scenario struct {
	keepScreenshots bool
	now             func() time.Time

	mu     sync.Mutex
	result ScenarioResult
}

var _ observability.StepSink = (*Scenario)(nil)

// NewScenario starts collecting for the scenario run id. Screenshots attached
// to events are dropped unless keepScreenshots is set.
func NewScenario(id, name, environment string, keepScreenshots bool) *Scenario {
	s := &Scenario{keepScreenshots: keepScreenshots, now: time.Now}
	s.result = ScenarioResult{
		ID:          id,
		Name:        name,
		Environment: environment,
		Started:     s.now(),
		Steps:       []observability.StepEvent{},
	}
	return s
}

// SetSession records which pooled session ran the scenario.
func (s *Scenario) SetSession(id string) {
	s.mu.Lock()
	s.result.SessionID = id
	s.mu.Unlock()
}

func (s *Scenario) Record(ev observability.StepEvent) {
	if !s.keepScreenshots {
		ev.Screenshot = nil
	}
	s.mu.Lock()
	s.result.Steps = append(s.result.Steps, ev)
	s.mu.Unlock()
}

// Finish seals the result. A non-nil err is stored as the error message.
func (s *Scenario) Finish(status Status, err error) *ScenarioResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result.Status = status
	if err != nil {
		s.result.Error = err.Error()
	}
	s.result.Finished = s.now()
	s.result.Duration = s.result.Finished.Sub(s.result.Started)

	out := s.result
	out.Steps = append([]observability.StepEvent(nil), s.result.Steps...)
	return &out
}

// Summary is the document the JSON reporter writes.
type Summary struct {
	RunID     string            `json:"run_id,omitempty"`
	Generated time.Time         `json:"generated"`
	Total     int               `json:"total"`
	Passed    int               `json:"passed"`
	Failed    int               `json:"failed"`
	Errored   int               `json:"errored"`
	Skipped   int               `json:"skipped"`
	Scenarios []*ScenarioResult `json:"scenarios"`
}

func (s *Summary) add(r *ScenarioResult) {
	s.Total++
	switch r.Status {
	case StatusPassed:
		s.Passed++
	case StatusFailed:
		s.Failed++
	case StatusError:
		s.Errored++
	case StatusSkipped:
		s.Skipped++
	}
	s.Scenarios = append(s.Scenarios, r)
}
