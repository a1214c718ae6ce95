package output

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/abdul-hamid-achik/storyspec/packages/core/model"
	"github.com/abdul-hamid-achik/storyspec/packages/core/reporter"
	"github.com/abdul-hamid-achik/storyspec/packages/core/runner"
	"github.com/abdul-hamid-achik/storyspec/packages/core/steps"
)

// ConsoleReporter prints events as they happen and a summary once the run
// is over.
type ConsoleReporter struct {
	reporter.NullReporter

	writer  io.Writer
	verbose bool
	noColor bool
	// depth is the nesting of given stories and composed steps.
	depth int

	green  func(a ...any) string
	red    func(a ...any) string
	yellow func(a ...any) string
	cyan   func(a ...any) string
	faint  func(a ...any) string
	bold   func(a ...any) string
}

var _ reporter.StoryReporter = (*ConsoleReporter)(nil)

type ConsoleOption func(*ConsoleReporter)

// NewConsoleReporter creates a console reporter writing to stdout
func NewConsoleReporter(opts ...ConsoleOption) *ConsoleReporter {
	c := &ConsoleReporter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(c)
	}

	palette := func(attrs ...color.Attribute) func(a ...any) string {
		col := color.New(attrs...)
		if c.noColor {
			col.DisableColor()
		}
		return col.SprintFunc()
	}
	c.green = palette(color.FgGreen)
	c.red = palette(color.FgRed)
	c.yellow = palette(color.FgYellow)
	c.cyan = palette(color.FgCyan)
	c.faint = palette(color.Faint)
	c.bold = palette(color.Bold)
	return c
}

// WithWriter sets the output writer
func WithWriter(w io.Writer) ConsoleOption {
	return func(c *ConsoleReporter) {
		c.writer = w
	}
}

func WithVerbose(v bool) ConsoleOption {
	return func(c *ConsoleReporter) {
		c.verbose = v
	}
}

// WithNoColor disables ANSI colors
func WithNoColor(nc bool) ConsoleOption {
	return func(c *ConsoleReporter) {
		c.noColor = nc
	}
}

func (c *ConsoleReporter) printf(indent int, format string, args ...any) {
	fmt.Fprintf(c.writer, "%s%s\n", strings.Repeat("  ", c.depth+indent), fmt.Sprintf(format, args...))
}

// highlight colors parameter values in parametrised step text.
func (c *ConsoleReporter) highlight(step string) string {
	var b strings.Builder
	for {
		start := strings.Index(step, steps.ParameterValueStart)
		if start < 0 {
			break
		}
		rest := step[start+len(steps.ParameterValueStart):]
		end := strings.Index(rest, steps.ParameterValueEnd)
		if end < 0 {
			break
		}
		b.WriteString(step[:start])
		b.WriteString(c.cyan(rest[:end]))
		step = rest[end+len(steps.ParameterValueEnd):]
	}
	b.WriteString(step)
	return steps.StripMarkers(b.String())
}

func (c *ConsoleReporter) StoryNotAllowed(story *model.Story, filter string) {
	c.printf(0, "%s %s %s", c.yellow("-"), story.Path, c.faint(fmt.Sprintf("(excluded by %q)", filter)))
}

func (c *ConsoleReporter) StoryCancelled(story *model.Story, timeout time.Duration) {
	c.printf(1, "%s", c.red(fmt.Sprintf("Story %s cancelled after %s", story.Path, timeout)))
}

func (c *ConsoleReporter) BeforeStory(story *model.Story, givenStory bool) {
	if givenStory {
		c.printf(1, "%s %s", c.faint("GivenStory:"), story.Path)
		c.depth++
		return
	}
	fmt.Fprintln(c.writer)
	c.printf(0, "%s", c.bold("Story: "+story.Path))
	if story.Description != "" {
		c.printf(0, "%s", story.Description)
	}
}

func (c *ConsoleReporter) AfterStory(givenStory bool) {
	if givenStory && c.depth > 0 {
		c.depth--
	}
}

func (c *ConsoleReporter) Narrative(n *model.Narrative) {
	if !c.verbose || n.IsEmpty() {
		return
	}
	c.printf(0, "%s", c.faint("Narrative:"))
	for _, line := range []struct{ keyword, text string }{
		{"In order to", n.InOrderTo},
		{"As a", n.AsA},
		{"I want to", n.IWantTo},
		{"So that", n.SoThat},
	} {
		if line.text != "" {
			c.printf(1, "%s %s", c.faint(line.keyword), line.text)
		}
	}
}

func (c *ConsoleReporter) ScenarioNotAllowed(scenario *model.Scenario, filter string) {
	c.printf(1, "%s Scenario: %s %s", c.yellow("-"), scenario.Title, c.faint(fmt.Sprintf("(excluded by %q)", filter)))
}

func (c *ConsoleReporter) BeforeScenario(scenario *model.Scenario) {
	c.printf(1, "Scenario: %s", scenario.Title)
	if c.verbose && !scenario.Meta.IsEmpty() {
		c.printf(2, "%s", c.faint("Meta: "+scenario.Meta.String()))
	}
}

func (c *ConsoleReporter) GivenStories(given *model.GivenStories) {
	if c.verbose {
		c.printf(2, "%s %s", c.faint("GivenStories:"), strings.Join(given.Paths(), ", "))
	}
}

func (c *ConsoleReporter) Example(row map[string]string, index int) {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+row[k])
	}
	c.printf(2, "%s", c.faint(fmt.Sprintf("Example %d: %s", index+1, strings.Join(pairs, ", "))))
}

func (c *ConsoleReporter) Successful(step string) {
	c.printf(2, "%s %s", c.green("✓"), c.highlight(step))
}

func (c *ConsoleReporter) Failed(step string, cause error) {
	c.printf(2, "%s %s", c.red("✗"), c.highlight(step))
	if cause != nil {
		for _, line := range strings.Split(cause.Error(), "\n") {
			c.printf(3, "%s %s", c.red("→"), line)
		}
	}
}

func (c *ConsoleReporter) Pending(step string) {
	c.printf(2, "%s %s %s", c.yellow("?"), c.highlight(step), c.yellow("(PENDING)"))
}

func (c *ConsoleReporter) NotPerformed(step string) {
	c.printf(2, "%s %s", c.faint("-"), c.faint(steps.StripMarkers(step)+" (NOT PERFORMED)"))
}

func (c *ConsoleReporter) Ignorable(step string) {
	if c.verbose {
		c.printf(2, "%s", c.faint(step))
	}
}

func (c *ConsoleReporter) Comment(step string) {
	if c.verbose {
		c.printf(2, "%s", c.faint(step))
	}
}

func (c *ConsoleReporter) BeforeComposedSteps() {
	c.depth++
}

func (c *ConsoleReporter) AfterComposedSteps() {
	if c.depth > 0 {
		c.depth--
	}
}

func (c *ConsoleReporter) Restarted(step string, cause error) {
	c.printf(2, "%s %s %s", c.yellow("↻"), steps.StripMarkers(step), c.faint(fmt.Sprintf("(restarted: %v)", cause)))
}

func (c *ConsoleReporter) RestartedStory(story *model.Story, cause error) {
	c.printf(1, "%s", c.yellow(fmt.Sprintf("↻ Story %s restarted: %v", story.Path, cause)))
}

func (c *ConsoleReporter) DryRun() {
	c.printf(0, "%s", c.yellow("(DRY RUN: steps are matched but not performed)"))
}

func (c *ConsoleReporter) PendingMethods(methods []string) {
	if len(methods) == 0 {
		return
	}
	fmt.Fprintln(c.writer)
	c.printf(0, "%s", c.yellow("Pending steps without a matching candidate:"))
	for _, m := range methods {
		c.printf(1, "%s", m)
	}
}

// FormatResult prints the run summary.
func (c *ConsoleReporter) FormatResult(result *runner.RunResult) {
	counts := result.Counts()
	fmt.Fprintln(c.writer)

	passed := counts.Stories - counts.StoriesFailed - counts.StoriesNotAllowed
	var parts []string
	if passed > 0 {
		parts = append(parts, c.green(fmt.Sprintf("%d passed", passed)))
	}
	if counts.StoriesFailed > 0 {
		parts = append(parts, c.red(fmt.Sprintf("%d failed", counts.StoriesFailed)))
	}
	if counts.StoriesCancelled > 0 {
		parts = append(parts, c.red(fmt.Sprintf("%d cancelled", counts.StoriesCancelled)))
	}
	if counts.StoriesNotAllowed > 0 {
		parts = append(parts, c.yellow(fmt.Sprintf("%d excluded", counts.StoriesNotAllowed)))
	}
	parts = append(parts, fmt.Sprintf("%d total", counts.Stories))
	fmt.Fprintf(c.writer, "Stories:   %s\n", strings.Join(parts, ", "))

	parts = parts[:0]
	if ok := counts.Scenarios - counts.ScenariosFailed - counts.ScenariosSkipped; ok > 0 {
		parts = append(parts, c.green(fmt.Sprintf("%d passed", ok)))
	}
	if counts.ScenariosFailed > 0 {
		parts = append(parts, c.red(fmt.Sprintf("%d failed", counts.ScenariosFailed)))
	}
	if counts.ScenariosSkipped > 0 {
		parts = append(parts, c.yellow(fmt.Sprintf("%d skipped", counts.ScenariosSkipped)))
	}
	parts = append(parts, fmt.Sprintf("%d total", counts.Scenarios))
	fmt.Fprintf(c.writer, "Scenarios: %s\n", strings.Join(parts, ", "))

	parts = parts[:0]
	for _, o := range []steps.Outcome{steps.Successful, steps.Failed, steps.Pending, steps.NotPerformed} {
		if n := counts.Steps[o]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, o))
		}
	}
	if len(parts) > 0 {
		fmt.Fprintf(c.writer, "Steps:     %s\n", strings.Join(parts, ", "))
	}
	fmt.Fprintf(c.writer, "Time:      %dms\n", result.Duration.Milliseconds())
}

func (c *ConsoleReporter) Flush() error {
	return nil
}

func (c *ConsoleReporter) FormatError(err error) {
	fmt.Fprintf(c.writer, "%s %v\n", c.red("Error:"), err)
}

func (c *ConsoleReporter) FormatHeader(version string) {
	fmt.Fprintf(c.writer, "%s %s\n", c.bold("storyspec"), version)
}
