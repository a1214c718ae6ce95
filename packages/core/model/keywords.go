package model

import "strings"

// Keywords are the words that start each element of the story text.
type Keywords struct {
	Meta         string
	Narrative    string
	InOrderTo    string
	AsA          string
	IWantTo      string
	SoThat       string
	GivenStories string
	Lifecycle    string
	Before       string
	After        string
	Scope        string
	Outcome      string
	Scenario     string
	Examples     string
	Given        string
	When         string
	Then         string
	And          string
	Ignorable    string
	Comment      string
}

// DefaultKeywords returns the English keywords.
func DefaultKeywords() Keywords {
	return Keywords{
		Meta:         "Meta:",
		Narrative:    "Narrative:",
		InOrderTo:    "In order to",
		AsA:          "As a",
		IWantTo:      "I want to",
		SoThat:       "So that",
		GivenStories: "GivenStories:",
		Lifecycle:    "Lifecycle:",
		Before:       "Before:",
		After:        "After:",
		Scope:        "Scope:",
		Outcome:      "Outcome:",
		Scenario:     "Scenario:",
		Examples:     "Examples:",
		Given:        "Given",
		When:         "When",
		Then:         "Then",
		And:          "And",
		Ignorable:    "!--",
		Comment:      "#",
	}
}

// StepStarts are the keywords that begin a step line.
func (k Keywords) StepStarts() []string {
	return []string{k.Given, k.When, k.Then, k.And}
}

// StartsStep reports whether line begins with a step keyword followed by a
// space, or is an ignorable or comment line.
func (k Keywords) StartsStep(line string) bool {
	for _, start := range k.StepStarts() {
		if strings.HasPrefix(line, start+" ") || line == start {
			return true
		}
	}
	return k.IsIgnorable(line) || k.IsComment(line)
}

func (k Keywords) IsIgnorable(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), k.Ignorable)
}

// IsComment reports whether line starts with the comment keyword.
func (k Keywords) IsComment(line string) bool {
	return k.Comment != "" && strings.HasPrefix(strings.TrimSpace(line), k.Comment)
}

// StepWithoutStart strips the leading keyword and returns it separately.
func (k Keywords) StepWithoutStart(line string) (keyword, text string) {
	line = strings.TrimSpace(line)
	for _, start := range k.StepStarts() {
		if strings.HasPrefix(line, start+" ") {
			return start, strings.TrimSpace(line[len(start):])
		}
	}
	return "", line
}
