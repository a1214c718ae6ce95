package model

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Scope identifies the boundary a lifecycle step or context value is bound to.
type Scope int

const (
	ScopeStory Scope = iota
	ScopeScenario
	ScopeExample
)

func (s Scope) String() string {
	switch s {
	case ScopeStory:
		return "STORY"
	case ScopeScenario:
		return "SCENARIO"
	case ScopeExample:
		return "EXAMPLE"
	}
	return "UNKNOWN"
}

// ParseScope accepts the names printed by Scope.String, case-insensitively.
func ParseScope(s string) (Scope, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "STORY":
		return ScopeStory, nil
	case "SCENARIO":
		return ScopeScenario, nil
	case "EXAMPLE":
		return ScopeExample, nil
	}
	return ScopeScenario, fmt.Errorf("unknown scope %q", s)
}

// Stage tells whether a hook runs before or after its scope.
type Stage int

const (
	StageBefore Stage = iota
	StageAfter
)

func (s Stage) String() string {
	if s == StageAfter {
		return "AFTER"
	}
	return "BEFORE"
}

// Outcome gates after-steps on the result of the unit they follow.
type Outcome int

const (
	OutcomeAny Outcome = iota
	OutcomeSuccess
	OutcomeFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "SUCCESS"
	case OutcomeFailure:
		return "FAILURE"
	}
	return "ANY"
}

// Matches reports whether a unit that failed (or not) satisfies the outcome.
func (o Outcome) Matches(failed bool) bool {
	switch o {
	case OutcomeSuccess:
		return !failed
	case OutcomeFailure:
		return failed
	}
	return true
}

// ParseOutcome parses ANY, SUCCESS or FAILURE. Empty means ANY.
func ParseOutcome(s string) (Outcome, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "ANY":
		return OutcomeAny, nil
	case "SUCCESS":
		return OutcomeSuccess, nil
	case "FAILURE":
		return OutcomeFailure, nil
	}
	return OutcomeAny, fmt.Errorf("unknown outcome %q", s)
}

// Narrative is the optional "In order to / As a / I want to" block.
type Narrative struct {
	InOrderTo string
	AsA       string
	IWantTo   string
	SoThat    string
}

func (n *Narrative) IsEmpty() bool {
	return n == nil || (n.InOrderTo == "" && n.AsA == "" && n.IWantTo == "" && n.SoThat == "")
}

// LifecycleSteps is one group of lifecycle step lines bound to a scope.
type LifecycleSteps struct {
	Scope   Scope
	Outcome Outcome
	Steps   []string
}

// Lifecycle holds the story's Before and After step groups.
type Lifecycle struct {
	Before []LifecycleSteps
	After  []LifecycleSteps
}

func (l *Lifecycle) IsEmpty() bool {
	return l == nil || (len(l.Before) == 0 && len(l.After) == 0)
}

// BeforeSteps returns the before-step lines bound to scope, in declaration order.
func (l *Lifecycle) BeforeSteps(scope Scope) []string {
	if l == nil {
		return nil
	}
	var lines []string
	for _, group := range l.Before {
		if group.Scope == scope {
			lines = append(lines, group.Steps...)
		}
	}
	return lines
}

// AfterSteps returns the after-step groups bound to scope. Each group keeps
// its outcome so the caller can gate it.
func (l *Lifecycle) AfterSteps(scope Scope) []LifecycleSteps {
	if l == nil {
		return nil
	}
	var groups []LifecycleSteps
	for _, group := range l.After {
		if group.Scope == scope {
			groups = append(groups, group)
		}
	}
	return groups
}

// Story is the parsed, read-only form of a story file.
type Story struct {
	Path         string
	Description  string
	Narrative    *Narrative
	Meta         Meta
	GivenStories *GivenStories
	Lifecycle    *Lifecycle
	Scenarios    []*Scenario
}

// Name is the story file name without directory or extension.
func (s *Story) Name() string {
	base := filepath.Base(s.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (s *Story) HasGivenStories() bool {
	return s.GivenStories != nil && !s.GivenStories.IsEmpty()
}

// Title prefers the description, falling back to the file name.
func (s *Story) Title() string {
	if s.Description != "" {
		return s.Description
	}
	return s.Name()
}

// Scenario is one parsed scenario of a story.
type Scenario struct {
	Title        string
	Meta         Meta
	GivenStories *GivenStories
	Steps        []string
	Examples     *ExamplesTable
}

func (s *Scenario) HasGivenStories() bool {
	return s.GivenStories != nil && !s.GivenStories.IsEmpty()
}

// HasExamples reports whether the scenario runs once per examples row.
func (s *Scenario) HasExamples() bool {
	return s.Examples != nil && s.Examples.RowCount() > 0
}
