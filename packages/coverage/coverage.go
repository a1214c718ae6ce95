// Package coverage reports which steps of a step library the stories of a
// run actually used.
package coverage

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/abdul-hamid-achik/storyspec/packages/core/runner"
	"github.com/abdul-hamid-achik/storyspec/packages/core/steps"
)

// Report represents a step coverage report.
type Report struct {
	TotalSteps      int                    `json:"totalSteps"`
	CoveredSteps    int                    `json:"coveredSteps"`
	CoveragePercent float64                `json:"coveragePercent"`
	ByType          map[string]*TypeReport `json:"byType,omitempty"`
	Steps           []StepStatus           `json:"steps"`
}

// TypeReport represents coverage for one step type.
type TypeReport struct {
	Type            string  `json:"type"`
	TotalSteps      int     `json:"totalSteps"`
	CoveredSteps    int     `json:"coveredSteps"`
	CoveragePercent float64 `json:"coveragePercent"`
}

// StepStatus represents the coverage status of one candidate.
type StepStatus struct {
	Type      string `json:"type"`
	Pattern   string `json:"pattern"`
	Priority  int    `json:"priority,omitempty"`
	Composite bool   `json:"composite,omitempty"`
	Covered   bool   `json:"covered"`
	UseCount  int    `json:"useCount"`
}

// Analyzer maps performed steps back to the candidates of a library.
type Analyzer struct {
	library *steps.Library
}

// NewAnalyzer creates an analyzer for the candidates of lib.
func NewAnalyzer(lib *steps.Library) *Analyzer {
	return &Analyzer{library: lib}
}

// counted reports whether r ran its candidate.
func counted(r steps.Result) bool {
	switch r.Outcome {
	case steps.Successful, steps.Failed, steps.Silent:
		return true
	}
	return false
}

// Analyze counts the uses of every candidate in result.
func (a *Analyzer) Analyze(result *runner.RunResult) *Report {
	uses := make(map[*steps.Candidate]int)
	if result != nil {
		for _, story := range result.Stories {
			a.countStory(story, uses)
		}
	}

	report := &Report{ByType: make(map[string]*TypeReport)}
	for _, c := range a.library.Candidates() {
		typ := c.Type.Keyword()
		count := uses[c]
		status := StepStatus{
			Type:      typ,
			Pattern:   c.Pattern.String(),
			Priority:  c.Priority,
			Composite: c.IsComposite(),
			Covered:   count > 0,
			UseCount:  count,
		}
		report.Steps = append(report.Steps, status)
		report.TotalSteps++

		typeReport, exists := report.ByType[typ]
		if !exists {
			typeReport = &TypeReport{Type: typ}
			report.ByType[typ] = typeReport
		}
		typeReport.TotalSteps++
		if status.Covered {
			report.CoveredSteps++
			typeReport.CoveredSteps++
		}
	}

	report.CoveragePercent = percent(report.CoveredSteps, report.TotalSteps)
	for _, typeReport := range report.ByType {
		typeReport.CoveragePercent = percent(typeReport.CoveredSteps, typeReport.TotalSteps)
	}

	sort.SliceStable(report.Steps, func(i, j int) bool {
		if report.Steps[i].Type != report.Steps[j].Type {
			return report.Steps[i].Type < report.Steps[j].Type
		}
		return report.Steps[i].Pattern < report.Steps[j].Pattern
	})
	return report
}

func percent(covered, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(covered) / float64(total) * 100
}

func (a *Analyzer) countStory(story *runner.StoryResult, uses map[*steps.Candidate]int) {
	for _, given := range story.GivenStories {
		a.countStory(given, uses)
	}
	a.countSteps(story.BeforeSteps, uses)
	for _, sc := range story.Scenarios {
		for _, given := range sc.GivenStories {
			a.countStory(given, uses)
		}
		a.countSteps(sc.Steps, uses)
		for _, ex := range sc.Examples {
			a.countSteps(ex.Steps, uses)
		}
	}
	a.countSteps(story.AfterSteps, uses)
}

// countSteps matches each result the way the run did, carrying the step
// type forward for And. Composites without a handler are credited through
// the first step they expanded into.
func (a *Analyzer) countSteps(results []steps.Result, uses map[*steps.Candidate]int) {
	var previous steps.StepType
	for _, r := range results {
		for _, line := range r.ExpandedFrom {
			a.count(line, &previous, uses)
		}
		if counted(r) {
			a.count(r.Step, &previous, uses)
		}
	}
}

func (a *Analyzer) count(line string, previous *steps.StepType, uses map[*steps.Candidate]int) {
	matches, err := a.library.Match(*previous, line)
	if err != nil || len(matches) == 0 {
		return
	}
	m, err := a.library.Resolve(line, matches)
	if err != nil {
		return
	}
	*previous = m.Type
	uses[m.Candidate]++
}

// Uncovered returns the steps no story used.
func (r *Report) Uncovered() []StepStatus {
	var out []StepStatus
	for _, s := range r.Steps {
		if !s.Covered {
			out = append(out, s)
		}
	}
	return out
}

// FormatConsole formats the report for console output.
func (r *Report) FormatConsole() string {
	var sb strings.Builder

	sb.WriteString("\nStep Coverage Report\n")
	sb.WriteString("====================\n\n")

	sb.WriteString(fmt.Sprintf("Total Steps:   %d\n", r.TotalSteps))
	sb.WriteString(fmt.Sprintf("Covered Steps: %d\n", r.CoveredSteps))
	sb.WriteString(fmt.Sprintf("Coverage:      %.1f%%\n\n", r.CoveragePercent))

	if len(r.ByType) > 0 {
		sb.WriteString("Coverage by Type:\n")
		types := make([]string, 0, len(r.ByType))
		for typ := range r.ByType {
			types = append(types, typ)
		}
		sort.Strings(types)
		for _, typ := range types {
			t := r.ByType[typ]
			sb.WriteString(fmt.Sprintf("  %s: %d/%d (%.1f%%)\n", typ, t.CoveredSteps, t.TotalSteps, t.CoveragePercent))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Step Details:\n")
	for _, s := range r.Steps {
		status := "[ ]"
		if s.Covered {
			status = "[x]"
		}
		sb.WriteString(fmt.Sprintf("  %s %s %s", status, s.Type, s.Pattern))
		if s.UseCount > 1 {
			sb.WriteString(fmt.Sprintf(" (x%d)", s.UseCount))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// FormatJSON formats the report as JSON.
func (r *Report) FormatJSON() (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
