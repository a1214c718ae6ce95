package parser

import (
	"fmt"
	"os"
	"strings"

	"github.com/abdul-hamid-achik/storyspec/packages/core/model"
)

// Parser turns story text into a model.Story.
type Parser struct {
	lexer        *Lexer
	curToken     Token
	path         string
	keywords     model.Keywords
	transformers *model.TableTransformers
}

// Option configures a Parser.
type Option func(*Parser)

// WithKeywords replaces the English keywords, e.g. for a localized story set.
func WithKeywords(k model.Keywords) Option {
	return func(p *Parser) {
		p.keywords = k
	}
}

// WithTableTransformers sets the transformers applied to examples tables.
func WithTableTransformers(t *model.TableTransformers) Option {
	return func(p *Parser) {
		p.transformers = t
	}
}

// NewParser creates a parser with English keywords and the built-in table transformers.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		keywords:     model.DefaultKeywords(),
		transformers: model.NewTableTransformers(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseFile parses the story file at path with a default parser.
func ParseFile(path string) (*model.Story, error) {
	return NewParser().ParseFile(path)
}

// Parse parses input with a default parser. path is recorded on the story.
func Parse(input, path string) (*model.Story, error) {
	return NewParser().Parse(input, path)
}

// ParseFile reads and parses the story file at path.
func (p *Parser) ParseFile(path string) (*model.Story, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return p.Parse(string(content), path)
}

// Parse reads a story. Steps found before any scenario keyword (outside
// the lifecycle block) form an untitled scenario.
func (p *Parser) Parse(input, path string) (*model.Story, error) {
	p.lexer = NewLexer(input, p.keywords)
	p.path = path
	p.nextToken()

	story := &model.Story{Path: path}
	if err := p.parseHeader(story); err != nil {
		return nil, err
	}

	if p.curToken.Type == TokenStep || p.curToken.Type == TokenIgnorable {
		scenario, err := p.parseScenarioBody(&model.Scenario{})
		if err != nil {
			return nil, err
		}
		story.Scenarios = append(story.Scenarios, scenario)
	}

	for p.curToken.Type == TokenScenario {
		scenario := &model.Scenario{Title: p.curToken.Value}
		p.nextToken()
		scenario, err := p.parseScenarioBody(scenario)
		if err != nil {
			return nil, err
		}
		story.Scenarios = append(story.Scenarios, scenario)
	}

	if p.curToken.Type != TokenEOF {
		return nil, p.errorf(p.curToken.Line, "unexpected %s", strings.TrimSpace(p.curToken.Raw))
	}
	return story, nil
}

func (p *Parser) nextToken() {
	p.curToken = p.lexer.NextToken()
}

func (p *Parser) errorf(line int, format string, args ...any) *model.ParseError {
	return &model.ParseError{Path: p.path, Line: line, Message: fmt.Sprintf(format, args...)}
}

// parseHeader consumes everything before the first scenario: description,
// meta, narrative, given stories and lifecycle.
func (p *Parser) parseHeader(story *model.Story) error {
	var description []string
	for {
		switch p.curToken.Type {
		case TokenEOF, TokenScenario, TokenStep, TokenIgnorable:
			story.Description = strings.Join(description, " ")
			return nil
		case TokenMeta:
			story.Meta = model.ParseMeta(p.collectText())
		case TokenNarrative:
			story.Narrative = p.parseNarrative()
		case TokenGivenStories:
			story.GivenStories = model.ParseGivenStories(p.collectText())
		case TokenLifecycle:
			lifecycle, err := p.parseLifecycle()
			if err != nil {
				return err
			}
			story.Lifecycle = lifecycle
		case TokenText:
			description = append(description, p.curToken.Value)
			p.nextToken()
		default:
			p.nextToken()
		}
	}
}

// collectText joins the keyword remainder with following free-text lines.
func (p *Parser) collectText() string {
	parts := []string{p.curToken.Value}
	p.nextToken()
	for p.curToken.Type == TokenText || p.curToken.Type == TokenBlank {
		parts = append(parts, p.curToken.Value)
		p.nextToken()
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

func (p *Parser) parseNarrative() *model.Narrative {
	n := &model.Narrative{}
	var last *string
	appendTo := func(field *string, text string) {
		if *field != "" {
			*field += " "
		}
		*field += text
		last = field
	}

	p.nextToken()
	for p.curToken.Type == TokenText || p.curToken.Type == TokenBlank {
		line := p.curToken.Value
		switch {
		case line == "":
		case strings.HasPrefix(line, p.keywords.InOrderTo):
			appendTo(&n.InOrderTo, strings.TrimSpace(line[len(p.keywords.InOrderTo):]))
		case strings.HasPrefix(line, p.keywords.AsA):
			appendTo(&n.AsA, strings.TrimSpace(line[len(p.keywords.AsA):]))
		case strings.HasPrefix(line, p.keywords.IWantTo):
			appendTo(&n.IWantTo, strings.TrimSpace(line[len(p.keywords.IWantTo):]))
		case strings.HasPrefix(line, p.keywords.SoThat):
			appendTo(&n.SoThat, strings.TrimSpace(line[len(p.keywords.SoThat):]))
		case last != nil:
			appendTo(last, line)
		}
		p.nextToken()
	}
	return n
}

// parseLifecycle reads Before:/After: groups. Scope defaults to SCENARIO
// and after-step outcome to ANY; each Scope: or Outcome: line opens a new group.
func (p *Parser) parseLifecycle() (*model.Lifecycle, error) {
	lifecycle := &model.Lifecycle{}
	var (
		stage   *[]model.LifecycleSteps
		scope   = model.ScopeScenario
		outcome = model.OutcomeAny
		open    bool
	)

	p.nextToken()
	for {
		tok := p.curToken
		switch tok.Type {
		case TokenBefore, TokenAfter:
			stage = &lifecycle.Before
			if tok.Type == TokenAfter {
				stage = &lifecycle.After
			}
			scope, outcome, open = model.ScopeScenario, model.OutcomeAny, false
		case TokenScope:
			s, err := model.ParseScope(tok.Value)
			if err != nil || s == model.ScopeExample {
				return nil, p.errorf(tok.Line, "invalid lifecycle scope %q", tok.Value)
			}
			scope, open = s, false
		case TokenOutcome:
			if stage != &lifecycle.After {
				return nil, p.errorf(tok.Line, "outcome is only allowed for after steps")
			}
			o, err := model.ParseOutcome(tok.Value)
			if err != nil {
				return nil, p.errorf(tok.Line, "invalid lifecycle outcome %q", tok.Value)
			}
			outcome, open = o, false
		case TokenStep, TokenIgnorable, TokenComment:
			if stage == nil {
				return nil, p.errorf(tok.Line, "lifecycle step outside of a Before: or After: block")
			}
			if !open {
				*stage = append(*stage, model.LifecycleSteps{Scope: scope, Outcome: outcome})
				open = true
			}
			group := &(*stage)[len(*stage)-1]
			group.Steps = append(group.Steps, tok.Value)
		case TokenText:
			if !open {
				return nil, p.errorf(tok.Line, "unexpected text in lifecycle: %s", tok.Value)
			}
			group := &(*stage)[len(*stage)-1]
			appendContinuation(group.Steps, tok.Value)
		case TokenBlank:
		default:
			return lifecycle, nil
		}
		p.nextToken()
	}
}

func (p *Parser) parseScenarioBody(scenario *model.Scenario) (*model.Scenario, error) {
	var title []string
	if scenario.Title != "" {
		title = append(title, scenario.Title)
	}

	for {
		tok := p.curToken
		switch tok.Type {
		case TokenEOF, TokenScenario:
			scenario.Title = strings.Join(title, " ")
			return scenario, nil
		case TokenMeta:
			scenario.Meta = model.ParseMeta(p.collectText())
			continue
		case TokenGivenStories:
			scenario.GivenStories = model.ParseGivenStories(p.collectText())
			continue
		case TokenExamples:
			table, err := p.parseExamples()
			if err != nil {
				return nil, err
			}
			scenario.Examples = table
			continue
		case TokenStep, TokenIgnorable, TokenComment:
			scenario.Steps = append(scenario.Steps, tok.Value)
		case TokenText:
			if len(scenario.Steps) == 0 {
				title = append(title, tok.Value)
			} else {
				appendContinuation(scenario.Steps, tok.Value)
			}
		case TokenBlank:
		default:
			return nil, p.errorf(tok.Line, "unexpected %s in scenario", tok.Type)
		}
		p.nextToken()
	}
}

// parseExamples takes every line up to the next scenario verbatim, so the
// table parser sees comments and ignorable rows.
func (p *Parser) parseExamples() (*model.ExamplesTable, error) {
	line := p.curToken.Line
	var text []string
	if p.curToken.Value != "" {
		text = append(text, p.curToken.Value)
	}
	p.nextToken()
	for p.curToken.Type != TokenEOF && p.curToken.Type != TokenScenario {
		text = append(text, p.curToken.Raw)
		p.nextToken()
	}

	table, err := model.ParseExamplesTable(strings.Join(text, "\n"), p.transformers)
	if err != nil {
		return nil, &model.ParseError{Path: p.path, Line: line, Message: "invalid examples table", Err: err}
	}
	return table, nil
}

// appendContinuation adds a line to the last step, as used by multi-line
// step arguments such as tables.
func appendContinuation(steps []string, line string) {
	if len(steps) == 0 {
		return
	}
	steps[len(steps)-1] += "\n" + line
}
