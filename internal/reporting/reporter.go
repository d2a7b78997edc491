// internal/reporting/reporter.go
package reporting

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"text/tabwriter"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/storefront-e2e/internal/observability"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Reporter receives scenario results as they complete.
type Reporter interface {
	// Write records the result of a single scenario.
	Write(result *ScenarioResult) error
	// Close finalizes the report and closes the underlying writer.
	Close() error
}

type nopWriteCloser struct {
	io.Writer
}

func (*nopWriteCloser) Close() error { return nil }

// Options tune a reporter.
type Options struct {
	// RunID is stamped on the JSON summary.
	RunID string
	// Pretty indents JSON output.
	Pretty bool
}

// New creates a reporter of the given format ("json" or "text") writing to
// outputPath, or to stdout when the path is empty or "stdout". Parent
// directories of outputPath are created.
func New(format, outputPath string, opts Options) (Reporter, error) {
	switch format {
	case "json", "text":
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}

	var writer io.WriteCloser
	if outputPath == "" || outputPath == "stdout" {
		writer = &nopWriteCloser{os.Stdout}
	} else {
		if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create report directory for %s: %w", outputPath, err)
		}
		f, err := os.Create(outputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file %s: %w", outputPath, err)
		}
		writer = f
	}

	if format == "json" {
		return NewJSONReporter(writer, opts), nil
	}
	return NewTextReporter(writer), nil
}

// JSONReporter buffers every result and writes one Summary document on Close.
type JSONReporter struct {
	writer io.WriteCloser
	opts   Options
	now    func() time.Time

	mu      sync.Mutex
	summary Summary
	closed  bool
}

func NewJSONReporter(writer io.WriteCloser, opts Options) *JSONReporter {
	return &JSONReporter{
		writer:  writer,
		opts:    opts,
		now:     time.Now,
		summary: Summary{RunID: opts.RunID, Scenarios: []*ScenarioResult{}},
	}
}

func (r *JSONReporter) Write(result *ScenarioResult) error {
	if result == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return fmt.Errorf("reporter is closed")
	}
	r.summary.add(result)
	return nil
}

// Close encodes the summary and closes the writer. Calling it again is a no-op.
func (r *JSONReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	r.summary.Generated = r.now()

	var (
		data []byte
		err  error
	)
	if r.opts.Pretty {
		data, err = json.MarshalIndent(&r.summary, "", "  ")
	} else {
		data, err = json.Marshal(&r.summary)
	}
	if err != nil {
		r.writer.Close()
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if _, err := r.writer.Write(append(data, '\n')); err != nil {
		r.writer.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}
	return r.writer.Close()
}

// TextReporter prints one aligned line per scenario and a totals line on Close.
type TextReporter struct {
	writer io.WriteCloser
	tw     *tabwriter.Writer

	mu      sync.Mutex
	summary Summary
	closed  bool
}

func NewTextReporter(writer io.WriteCloser) *TextReporter {
	return &TextReporter{
		writer: writer,
		tw:     tabwriter.NewWriter(writer, 0, 4, 2, ' ', 0),
	}
}

func (r *TextReporter) Write(result *ScenarioResult) error {
	if result == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return fmt.Errorf("reporter is closed")
	}
	r.summary.add(result)
	line := fmt.Sprintf("%s\t%s\t%s\t%d steps", statusLabel(result.Status), result.Name,
		result.Duration.Round(time.Millisecond), countSteps(result))
	if result.Error != "" {
		line += "\t" + result.Error
	}
	_, err := fmt.Fprintln(r.tw, line)
	return err
}

func (r *TextReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	s := r.summary
	fmt.Fprintf(r.tw, "\n%d scenarios: %d passed, %d failed, %d errored, %d skipped\n",
		s.Total, s.Passed, s.Failed, s.Errored, s.Skipped)
	if err := r.tw.Flush(); err != nil {
		r.writer.Close()
		return err
	}
	return r.writer.Close()
}

func statusLabel(s Status) string {
	switch s {
	case StatusPassed:
		return "PASS"
	case StatusFailed:
		return "FAIL"
	case StatusError:
		return "ERROR"
	case StatusSkipped:
		return "SKIP"
	}
	return string(s)
}

func countSteps(r *ScenarioResult) int {
	n := 0
	for _, ev := range r.Steps {
		if ev.Kind == observability.KindStep {
			n++
		}
	}
	return n
}
