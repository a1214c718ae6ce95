package parser

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/abdul-hamid-achik/storyspec/packages/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullStory = `A story covering every element

Meta:
@author Mauro
@theme parsing

Narrative:
In order to check the parser
As a developer
I want to parse a full story
So that nothing is lost

GivenStories: setup/login.story, setup/data.story#{user:ann}

Lifecycle:
Before:
Scope: STORY
Given the story is prepared
Scope: SCENARIO
Given the scenario is prepared
After:
Outcome: FAILURE
Then dump the state

Scenario: first scenario
Meta: @smoke
Given a step with a table:
|a|b|
|1|2|
!-- an ignorable step
# a comment
When something happens
Then it is checked

Scenario: parametrised scenario
Given a value of <value>
Then the result is <result>

Examples:
|value|result|
|-- ignored --|
|1|2|
|3|4| # trailing comment
`

func TestParser_FullStory(t *testing.T) {
	story, err := Parse(fullStory, "stories/full.story")
	require.NoError(t, err)

	assert.Equal(t, "A story covering every element", story.Description)
	assert.Equal(t, "full", story.Name())
	assert.Equal(t, "Mauro", story.Meta.Value("author"))
	assert.Equal(t, "parsing", story.Meta.Value("theme"))

	require.NotNil(t, story.Narrative)
	assert.Equal(t, "check the parser", story.Narrative.InOrderTo)
	assert.Equal(t, "developer", story.Narrative.AsA)
	assert.Equal(t, "parse a full story", story.Narrative.IWantTo)
	assert.Equal(t, "nothing is lost", story.Narrative.SoThat)

	require.True(t, story.HasGivenStories())
	assert.Equal(t, []string{"setup/login.story", "setup/data.story"}, story.GivenStories.Paths())
	assert.Equal(t, map[string]string{"user": "ann"}, story.GivenStories.Stories[1].AnchorParameters())

	require.NotNil(t, story.Lifecycle)
	assert.Equal(t, []string{"Given the story is prepared"}, story.Lifecycle.BeforeSteps(model.ScopeStory))
	assert.Equal(t, []string{"Given the scenario is prepared"}, story.Lifecycle.BeforeSteps(model.ScopeScenario))
	after := story.Lifecycle.AfterSteps(model.ScopeScenario)
	require.Len(t, after, 1)
	assert.Equal(t, model.OutcomeFailure, after[0].Outcome)
	assert.Equal(t, []string{"Then dump the state"}, after[0].Steps)

	require.Len(t, story.Scenarios, 2)

	first := story.Scenarios[0]
	assert.Equal(t, "first scenario", first.Title)
	assert.True(t, first.Meta.Has("smoke"))
	assert.Equal(t, []string{
		"Given a step with a table:\n|a|b|\n|1|2|",
		"!-- an ignorable step",
		"# a comment",
		"When something happens",
		"Then it is checked",
	}, first.Steps)
	assert.False(t, first.HasExamples())

	second := story.Scenarios[1]
	assert.Equal(t, "parametrised scenario", second.Title)
	require.True(t, second.HasExamples())
	assert.Equal(t, []string{"value", "result"}, second.Examples.Headers())
	assert.Equal(t, 2, second.Examples.RowCount())
	assert.Equal(t, "4", second.Examples.Row(1)["result"])
}

func TestParser_ImplicitScenario(t *testing.T) {
	story, err := Parse("Given a step\nWhen another\nThen done", "implicit.story")
	require.NoError(t, err)
	require.Len(t, story.Scenarios, 1)
	assert.Equal(t, "", story.Scenarios[0].Title)
	assert.Len(t, story.Scenarios[0].Steps, 3)
}

func TestParser_MultiLineTitle(t *testing.T) {
	story, err := Parse("Scenario: a title\nthat continues\nGiven a step", "t.story")
	require.NoError(t, err)
	assert.Equal(t, "a title that continues", story.Scenarios[0].Title)
}

func TestParser_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		line  int
	}{
		{
			name:  "invalid scope",
			input: "Lifecycle:\nBefore:\nScope: EVERYWHERE\nGiven x",
			line:  3,
		},
		{
			name:  "invalid outcome",
			input: "Lifecycle:\nAfter:\nOutcome: MAYBE\nThen x",
			line:  3,
		},
		{
			name:  "outcome on before steps",
			input: "Lifecycle:\nBefore:\nOutcome: FAILURE\nGiven x",
			line:  3,
		},
		{
			name:  "lifecycle step without stage",
			input: "Lifecycle:\nGiven x",
			line:  2,
		},
		{
			name:  "invalid examples table",
			input: "Scenario: s\nGiven <a>\nExamples:\n{headerSeparator=#}\n#a#",
			line:  3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input, "bad.story")
			require.Error(t, err)

			var parseErr *model.ParseError
			require.True(t, errors.As(err, &parseErr))
			assert.Equal(t, tt.line, parseErr.Line)
			assert.Equal(t, "bad.story", parseErr.Path)
			assert.Contains(t, err.Error(), "bad.story:")
		})
	}
}

func TestParser_ParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.story")
	require.NoError(t, os.WriteFile(path, []byte("Scenario: from disk\nGiven a step"), 0644))

	story, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, story.Path)
	assert.Equal(t, "from disk", story.Scenarios[0].Title)

	_, err = ParseFile(filepath.Join(dir, "missing.story"))
	require.Error(t, err)
}

func TestLexer_Classification(t *testing.T) {
	lexer := NewLexer("Scenario: x\nGiven y\n!-- z\n# c\n|a|\n\n", model.DefaultKeywords())

	expected := []TokenType{TokenScenario, TokenStep, TokenIgnorable, TokenComment, TokenText, TokenBlank, TokenBlank, TokenEOF}
	for _, want := range expected {
		tok := lexer.NextToken()
		assert.Equal(t, want, tok.Type, "line %d", tok.Line)
	}
}
