package output

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/storyspec/packages/core/runner"
	"github.com/abdul-hamid-achik/storyspec/packages/core/steps"
)

// JUnitTestSuites is the root element of a JUnit XML report
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Name       string           `xml:"name,attr,omitempty"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Errors     int              `xml:"errors,attr"`
	Skipped    int              `xml:"skipped,attr"`
	Time       float64          `xml:"time,attr"`
	Timestamp  string           `xml:"timestamp,attr,omitempty"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite is one story.
type JUnitTestSuite struct {
	XMLName   xml.Name        `xml:"testsuite"`
	Name      string          `xml:"name,attr"`
	Tests     int             `xml:"tests,attr"`
	Failures  int             `xml:"failures,attr"`
	Errors    int             `xml:"errors,attr"`
	Skipped   int             `xml:"skipped,attr"`
	Time      float64         `xml:"time,attr"`
	Timestamp string          `xml:"timestamp,attr,omitempty"`
	TestCases []JUnitTestCase `xml:"testcase"`
}

// JUnitTestCase is one scenario, or one examples row of a scenario.
type JUnitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	ClassName string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	Error     *JUnitError   `xml:"error,omitempty"`
	Skipped   *JUnitSkipped `xml:"skipped,omitempty"`
}

type JUnitFailure struct {
	Message string `xml:"message,attr,omitempty"`
	Type    string `xml:"type,attr,omitempty"`
	Content string `xml:",chardata"`
}

type JUnitError struct {
	Message string `xml:"message,attr,omitempty"`
	Type    string `xml:"type,attr,omitempty"`
	Content string `xml:",chardata"`
}

type JUnitSkipped struct {
	Message string `xml:"message,attr,omitempty"`
}

// JUnitReporter writes stories as JUnit XML test suites.
type JUnitReporter struct {
	writer     io.Writer
	testSuites []JUnitTestSuite
	duration   time.Duration
}

type JUnitOption func(*JUnitReporter)

// NewJUnitReporter creates a JUnit reporter writing to stdout
func NewJUnitReporter(opts ...JUnitOption) *JUnitReporter {
	r := &JUnitReporter{
		writer:     os.Stdout,
		testSuites: make([]JUnitTestSuite, 0),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func JUnitWithWriter(w io.Writer) JUnitOption {
	return func(r *JUnitReporter) {
		r.writer = w
	}
}

func (r *JUnitReporter) FormatError(err error) {}

func (r *JUnitReporter) FormatHeader(version string) {}

// failureContent lists the failed steps with their causes.
func failureContent(results []steps.Result) (string, string) {
	var (
		b     strings.Builder
		first string
	)
	for _, res := range results {
		if !res.IsFailure() {
			continue
		}
		cause := "failed"
		if res.Cause != nil {
			cause = res.Cause.Error()
		}
		if first == "" {
			first = cause
		}
		fmt.Fprintf(&b, "%s\n  %s\n", steps.StripMarkers(res.Text()), cause)
	}
	return first, b.String()
}

func firstPending(results []steps.Result) string {
	for _, res := range results {
		if res.Outcome == steps.Pending {
			return steps.StripMarkers(res.Text())
		}
	}
	return ""
}

func (r *JUnitReporter) testCase(suite *JUnitTestSuite, name string, d time.Duration, failed bool, results []steps.Result) {
	tc := JUnitTestCase{
		Name:      name,
		ClassName: suite.Name,
		Time:      d.Seconds(),
	}
	switch {
	case failed:
		suite.Failures++
		message, content := failureContent(results)
		if message == "" {
			message = "scenario failed"
		}
		tc.Failure = &JUnitFailure{Message: message, Type: "StepFailure", Content: content}
	case firstPending(results) != "":
		suite.Skipped++
		tc.Skipped = &JUnitSkipped{Message: "pending: " + firstPending(results)}
	}
	suite.Tests++
	suite.TestCases = append(suite.TestCases, tc)
}

func (r *JUnitReporter) skippedCase(suite *JUnitTestSuite, name, message string) {
	suite.Tests++
	suite.Skipped++
	suite.TestCases = append(suite.TestCases, JUnitTestCase{
		Name:      name,
		ClassName: suite.Name,
		Skipped:   &JUnitSkipped{Message: message},
	})
}

func (r *JUnitReporter) suite(s *runner.StoryResult) JUnitTestSuite {
	suite := JUnitTestSuite{
		Name:      s.Path,
		Time:      s.Duration.Seconds(),
		Timestamp: time.Now().Format(time.RFC3339),
		TestCases: make([]JUnitTestCase, 0, len(s.Scenarios)),
	}
	if s.NotAllowed {
		r.skippedCase(&suite, s.Title, "excluded by meta filter")
		return suite
	}

	for _, sc := range s.Scenarios {
		switch {
		case sc.NotAllowed:
			r.skippedCase(&suite, sc.Title, "excluded by meta filter")
		case sc.Skipped:
			r.skippedCase(&suite, sc.Title, "skipped after an earlier failure")
		case len(sc.Examples) > 0:
			for _, ex := range sc.Examples {
				name := fmt.Sprintf("%s [example %d]", sc.Title, ex.Index+1)
				r.testCase(&suite, name, 0, ex.Failed, append(givenSteps(sc.GivenStories), ex.Steps...))
			}
		default:
			r.testCase(&suite, sc.Title, sc.Duration, sc.Failed, sc.AllSteps())
		}
	}

	// Failures outside scenarios belong to the story itself.
	storySteps := append(givenSteps(s.GivenStories), s.BeforeSteps...)
	storySteps = append(storySteps, s.AfterSteps...)
	message, content := failureContent(storySteps)
	if s.Cancelled || s.Err != nil {
		if s.Err != nil {
			message = s.Err.Error()
		}
		if message == "" {
			message = "story cancelled"
		}
	}
	if message != "" {
		suite.Tests++
		suite.Errors++
		suite.TestCases = append(suite.TestCases, JUnitTestCase{
			Name:      "(story)",
			ClassName: suite.Name,
			Error:     &JUnitError{Message: message, Type: "StoryError", Content: content},
		})
	}
	return suite
}

func givenSteps(given []*runner.StoryResult) []steps.Result {
	var out []steps.Result
	for _, g := range given {
		out = append(out, g.AllSteps()...)
	}
	return out
}

func (r *JUnitReporter) FormatResult(result *runner.RunResult) {
	for _, s := range result.Stories {
		r.testSuites = append(r.testSuites, r.suite(s))
	}
	r.duration += result.Duration
}

// Flush writes the collected suites.
func (r *JUnitReporter) Flush() error {
	suites := JUnitTestSuites{
		Name:       "storyspec",
		Time:       r.duration.Seconds(),
		Timestamp:  time.Now().Format(time.RFC3339),
		TestSuites: r.testSuites,
	}
	for _, suite := range r.testSuites {
		suites.Tests += suite.Tests
		suites.Failures += suite.Failures
		suites.Errors += suite.Errors
		suites.Skipped += suite.Skipped
	}

	fmt.Fprintf(r.writer, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	encoder := xml.NewEncoder(r.writer)
	encoder.Indent("", "  ")
	if err := encoder.Encode(suites); err != nil {
		return err
	}
	_, err := fmt.Fprintln(r.writer)
	return err
}
