package parser

import (
	"strings"

	"github.com/abdul-hamid-achik/storyspec/packages/core/model"
)

// TokenType classifies one line of a story.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenBlank
	TokenText
	TokenMeta
	TokenNarrative
	TokenGivenStories
	TokenLifecycle
	TokenBefore
	TokenAfter
	TokenScope
	TokenOutcome
	TokenScenario
	TokenExamples
	TokenStep
	TokenIgnorable
	TokenComment
)

var tokenNames = map[TokenType]string{
	TokenEOF:          "EOF",
	TokenBlank:        "BLANK",
	TokenText:         "TEXT",
	TokenMeta:         "META",
	TokenNarrative:    "NARRATIVE",
	TokenGivenStories: "GIVEN_STORIES",
	TokenLifecycle:    "LIFECYCLE",
	TokenBefore:       "BEFORE",
	TokenAfter:        "AFTER",
	TokenScope:        "SCOPE",
	TokenOutcome:      "OUTCOME",
	TokenScenario:     "SCENARIO",
	TokenExamples:     "EXAMPLES",
	TokenStep:         "STEP",
	TokenIgnorable:    "IGNORABLE",
	TokenComment:      "COMMENT",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// Token is one classified line. Value holds the text after a section
// keyword, or the trimmed line for steps and free text. Raw keeps the line
// as written.
type Token struct {
	Type  TokenType
	Value string
	Raw   string
	Line  int
}

// Lexer classifies story text line by line.
type Lexer struct {
	lines    []string
	pos      int
	keywords model.Keywords
	sections []section
}

type section struct {
	keyword string
	token   TokenType
}

// NewLexer splits input into lines recognised by keywords.
func NewLexer(input string, keywords model.Keywords) *Lexer {
	input = strings.ReplaceAll(input, "\r\n", "\n")
	return &Lexer{
		lines:    strings.Split(input, "\n"),
		keywords: keywords,
		sections: []section{
			{keywords.Scenario, TokenScenario},
			{keywords.Examples, TokenExamples},
			{keywords.Meta, TokenMeta},
			{keywords.Narrative, TokenNarrative},
			{keywords.GivenStories, TokenGivenStories},
			{keywords.Lifecycle, TokenLifecycle},
			{keywords.Before, TokenBefore},
			{keywords.After, TokenAfter},
			{keywords.Scope, TokenScope},
			{keywords.Outcome, TokenOutcome},
		},
	}
}

// NextToken returns the next line token, or TokenEOF.
func (l *Lexer) NextToken() Token {
	if l.pos >= len(l.lines) {
		return Token{Type: TokenEOF, Line: len(l.lines)}
	}
	raw := l.lines[l.pos]
	l.pos++
	tok := Token{Raw: raw, Line: l.pos}
	trimmed := strings.TrimSpace(raw)

	if trimmed == "" {
		tok.Type = TokenBlank
		return tok
	}

	for _, s := range l.sections {
		if s.keyword != "" && strings.HasPrefix(trimmed, s.keyword) {
			tok.Type = s.token
			tok.Value = strings.TrimSpace(trimmed[len(s.keyword):])
			return tok
		}
	}

	tok.Value = trimmed
	switch {
	case l.keywords.IsIgnorable(trimmed):
		tok.Type = TokenIgnorable
	case l.keywords.IsComment(trimmed):
		tok.Type = TokenComment
	case l.isStep(trimmed):
		tok.Type = TokenStep
	default:
		tok.Type = TokenText
	}
	return tok
}

func (l *Lexer) isStep(line string) bool {
	for _, start := range l.keywords.StepStarts() {
		if strings.HasPrefix(line, start+" ") {
			return true
		}
	}
	return false
}
