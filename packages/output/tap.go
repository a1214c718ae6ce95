package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/abdul-hamid-achik/storyspec/packages/core/runner"
	"github.com/abdul-hamid-achik/storyspec/packages/core/steps"
)

// TAPReporter writes one TAP test point per scenario.
type TAPReporter struct {
	writer  io.Writer
	results []tapResult
}

type tapResult struct {
	name     string
	passed   bool
	skip     string
	todo     string
	failures []string
}

type TAPOption func(*TAPReporter)

// NewTAPReporter creates a TAP reporter writing to stdout
func NewTAPReporter(opts ...TAPOption) *TAPReporter {
	r := &TAPReporter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func TAPWithWriter(w io.Writer) TAPOption {
	return func(r *TAPReporter) {
		r.writer = w
	}
}

func (r *TAPReporter) FormatError(err error) {}

func (r *TAPReporter) FormatHeader(version string) {}

func tapFailures(results []steps.Result) []string {
	var out []string
	for _, res := range results {
		if res.IsFailure() {
			out = append(out, fmt.Sprintf("%s: %v", steps.StripMarkers(res.Text()), res.Cause))
		}
	}
	return out
}

func (r *TAPReporter) FormatResult(result *runner.RunResult) {
	for _, s := range result.Stories {
		if s.NotAllowed {
			r.results = append(r.results, tapResult{name: s.Path, passed: true, skip: "excluded by meta filter"})
			continue
		}
		for _, sc := range s.Scenarios {
			tr := tapResult{
				name:   s.Path + " - " + sc.Title,
				passed: !sc.Failed,
			}
			switch {
			case sc.NotAllowed:
				tr.skip = "excluded by meta filter"
			case sc.Skipped:
				tr.skip = "skipped after an earlier failure"
			case sc.Failed:
				tr.failures = tapFailures(sc.AllSteps())
			default:
				if p := firstPending(sc.AllSteps()); p != "" {
					tr.todo = "pending: " + p
				}
			}
			r.results = append(r.results, tr)
		}
		if s.Cancelled {
			r.results = append(r.results, tapResult{name: s.Path, failures: []string{"story cancelled"}})
		} else if f := append(tapFailures(s.BeforeSteps), tapFailures(s.AfterSteps)...); len(f) > 0 {
			r.results = append(r.results, tapResult{name: s.Path, failures: f})
		}
	}
}

// Flush writes the TAP stream.
func (r *TAPReporter) Flush() error {
	fmt.Fprintf(r.writer, "TAP version 13\n")
	fmt.Fprintf(r.writer, "1..%d\n", len(r.results))

	for i, tr := range r.results {
		n := i + 1
		switch {
		case tr.skip != "":
			fmt.Fprintf(r.writer, "ok %d - %s # SKIP %s\n", n, tr.name, tr.skip)
		case tr.todo != "":
			fmt.Fprintf(r.writer, "ok %d - %s # TODO %s\n", n, tr.name, tr.todo)
		case tr.passed:
			fmt.Fprintf(r.writer, "ok %d - %s\n", n, tr.name)
		default:
			fmt.Fprintf(r.writer, "not ok %d - %s\n", n, tr.name)
			if len(tr.failures) > 0 {
				fmt.Fprintf(r.writer, "  ---\n")
				fmt.Fprintf(r.writer, "  failures:\n")
				for _, f := range tr.failures {
					fmt.Fprintf(r.writer, "    - %s\n", escapeYAML(f))
				}
				fmt.Fprintf(r.writer, "  ...\n")
			}
		}
	}
	_, err := fmt.Fprintln(r.writer)
	return err
}

func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":\n\"'[]{}#&*!|>%@`") {
		s = strings.ReplaceAll(s, "\\", "\\\\")
		s = strings.ReplaceAll(s, "\"", "\\\"")
		s = strings.ReplaceAll(s, "\n", "\\n")
		return "\"" + s + "\""
	}
	return s
}
