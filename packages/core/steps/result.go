package steps

import (
	"strings"
	"time"

	"github.com/abdul-hamid-achik/storyspec/packages/core/reporter"
)

// Parameter values in parametrised step text are wrapped in these markers.
const (
	ParameterValueStart = "｟"
	ParameterValueEnd   = "｠"
)

// Outcome is the closed set of step results.
type Outcome int

const (
	Successful Outcome = iota
	Failed
	Pending
	NotPerformed
	Ignorable
	Comment
	Skipped
	Silent
)

func (o Outcome) String() string {
	switch o {
	case Successful:
		return "successful"
	case Failed:
		return "failed"
	case Pending:
		return "pending"
	case NotPerformed:
		return "notPerformed"
	case Ignorable:
		return "ignorable"
	case Comment:
		return "comment"
	case Skipped:
		return "skipped"
	case Silent:
		return "silent"
	}
	return "unknown"
}

// Result is what performing (or not performing) a step produced.
type Result struct {
	Outcome      Outcome
	Step         string
	Parametrised string
	Cause        error
	Duration     time.Duration
	// ExpandedFrom holds the composite steps without a handler whose
	// expansion starts with this step, outermost first.
	ExpandedFrom []string
}

// Text is the parametrised step text when there is one.
func (r Result) Text() string {
	if r.Parametrised != "" {
		return r.Parametrised
	}
	return r.Step
}

// IsFailure reports whether the result is a failure.
func (r Result) IsFailure() bool {
	return r.Outcome == Failed
}

// DescribeTo emits the reporter event for the outcome. Skipped and Silent
// results are not reported.
func (r Result) DescribeTo(rep reporter.StoryReporter) {
	switch r.Outcome {
	case Successful:
		rep.Successful(r.Text())
	case Failed:
		rep.Failed(r.Text(), r.Cause)
	case Pending:
		rep.Pending(r.Text())
	case NotPerformed:
		rep.NotPerformed(r.Text())
	case Ignorable:
		rep.Ignorable(r.Text())
	case Comment:
		rep.Comment(r.Text())
	}
}

// StripMarkers removes the parameter value markers from text.
func StripMarkers(text string) string {
	return strings.NewReplacer(ParameterValueStart, "", ParameterValueEnd, "").Replace(text)
}
