package steps

import (
	"fmt"
	"strings"

	"github.com/abdul-hamid-achik/storyspec/packages/core/model"
)

// StepType is the kind of a step. And takes the type of the step before it.
type StepType int

const (
	Given StepType = iota + 1
	When
	Then
	And
)

func (t StepType) String() string {
	switch t {
	case Given:
		return "GIVEN"
	case When:
		return "WHEN"
	case Then:
		return "THEN"
	case And:
		return "AND"
	}
	return "UNKNOWN"
}

// Keyword returns the default story keyword for the type.
func (t StepType) Keyword() string {
	switch t {
	case Given:
		return "Given"
	case When:
		return "When"
	case Then:
		return "Then"
	case And:
		return "And"
	}
	return ""
}

// ParseStepType parses a step type name, case-insensitively.
func ParseStepType(s string) (StepType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "GIVEN":
		return Given, nil
	case "WHEN":
		return When, nil
	case "THEN":
		return Then, nil
	case "AND":
		return And, nil
	}
	return 0, fmt.Errorf("unknown step type %q", s)
}

func stepTypeOf(keyword string, keywords model.Keywords) StepType {
	switch keyword {
	case keywords.Given:
		return Given
	case keywords.When:
		return When
	case keywords.Then:
		return Then
	case keywords.And:
		return And
	}
	return 0
}
