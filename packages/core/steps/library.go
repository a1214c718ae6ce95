package steps

import (
	"fmt"
	"sort"
	"strings"

	"github.com/abdul-hamid-achik/storyspec/packages/core/convert"
	"github.com/abdul-hamid-achik/storyspec/packages/core/model"
)

// Candidate is one compiled pattern of a registered step.
type Candidate struct {
	Type       StepType
	Pattern    *Pattern
	Priority   int
	Order      int
	descriptor *Descriptor
}

func (c *Candidate) String() string {
	return c.Type.Keyword() + " " + c.Pattern.String()
}

// IsComposite reports whether the candidate expands into other steps.
func (c *Candidate) IsComposite() bool {
	return len(c.descriptor.Composite) > 0
}

// Composite returns the step lines a composite expands into.
func (c *Candidate) Composite() []string {
	return c.descriptor.Composite
}

// Descriptor returns a copy of the descriptor the candidate was built from.
func (c *Candidate) Descriptor() Descriptor {
	return *c.descriptor
}

// Match is a candidate that matched a step line.
type Match struct {
	Candidate *Candidate
	Type      StepType
	Keyword   string
	Text      string
	captures  []capture
}

// Library is the read-only set of candidates and hooks used to turn story
// text into steps. It is safe for concurrent use. A library records
// unmatched steps only in the collector given to WithPending.
type Library struct {
	candidates []*Candidate
	hooks      []Hook
	tieBreak   TieBreak
	keywords   model.Keywords
	converters *convert.Converters
	pending    *PendingMethods
}

// Candidates returns the candidates in match order.
func (l *Library) Candidates() []*Candidate {
	return l.candidates
}

// Keywords returns the keywords of the library.
func (l *Library) Keywords() model.Keywords {
	return l.keywords
}

// Converters returns the parameter converters of the library.
func (l *Library) Converters() *convert.Converters {
	return l.converters
}

// TieBreak returns the tie-break the library was built with.
func (l *Library) TieBreak() TieBreak {
	return l.tieBreak
}

// Pending returns the collector of unmatched steps, nil unless the library
// came from WithPending.
func (l *Library) Pending() *PendingMethods {
	return l.pending
}

// WithPending returns a copy of the library that records unmatched steps in
// p. Candidates, hooks and converters are shared with l.
func (l *Library) WithPending(p *PendingMethods) *Library {
	cp := *l
	cp.pending = p
	return &cp
}

// Hooks returns the hooks for a stage and scope in registration order.
func (l *Library) Hooks(stage model.Stage, scope model.Scope) []Hook {
	var out []Hook
	for _, h := range l.hooks {
		if h.Stage == stage && h.Scope == scope {
			out = append(out, h)
		}
	}
	return out
}

// Match returns every candidate that matches line. The step type comes from
// the line's keyword; And takes previous, or Given when there is none.
func (l *Library) Match(previous StepType, line string) ([]Match, error) {
	keyword, text := l.keywords.StepWithoutStart(line)
	if keyword == "" {
		return nil, fmt.Errorf("step %q does not start with a step keyword", line)
	}
	stepType := stepTypeOf(keyword, l.keywords)
	if stepType == And {
		stepType = previous
		if stepType == 0 || stepType == And {
			stepType = Given
		}
	}

	var matches []Match
	for _, c := range l.candidates {
		if c.Type != stepType {
			continue
		}
		if caps, ok := c.Pattern.captures(text); ok {
			matches = append(matches, Match{Candidate: c, Type: stepType, Keyword: keyword, Text: text, captures: caps})
		}
	}
	return matches, nil
}

// Resolve picks the match to run: highest priority first, then the tie-break.
func (l *Library) Resolve(line string, matches []Match) (Match, error) {
	if len(matches) == 0 {
		return Match{}, fmt.Errorf("no candidate matches %q", line)
	}
	sorted := append([]Match(nil), matches...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Candidate.Priority > sorted[j].Candidate.Priority
	})
	top := sorted[:1]
	for _, m := range sorted[1:] {
		if m.Candidate.Priority == top[0].Candidate.Priority {
			top = append(top, m)
		}
	}
	if len(top) == 1 {
		return top[0], nil
	}

	switch l.tieBreak {
	case TieBreakFirstMatch:
		return top[0], nil
	case TieBreakLongestLiteral:
		sort.SliceStable(top, func(i, j int) bool {
			return top[i].Candidate.Pattern.LiteralLen() > top[j].Candidate.Pattern.LiteralLen()
		})
		if top[0].Candidate.Pattern.LiteralLen() > top[1].Candidate.Pattern.LiteralLen() {
			return top[0], nil
		}
	}

	names := make([]string, len(top))
	for i, m := range top {
		names[i] = m.Candidate.String()
	}
	return Match{}, &MatchAmbiguityError{Step: line, Candidates: names}
}

// Collect turns step lines into executable steps. params hold the named
// values (examples row, given story parameters) that <name> references in
// the lines resolve to. Unmatched lines become pending steps and are added
// to the pending collector, if any. Ambiguity and composite cycles are
// errors.
func (l *Library) Collect(lines []string, params map[string]string) ([]Step, error) {
	return l.collect(lines, params, nil)
}

// CollectAfter collects lifecycle after-steps, gating each group by its
// outcome.
func (l *Library) CollectAfter(groups []model.LifecycleSteps, params map[string]string) ([]Step, error) {
	var out []Step
	for _, group := range groups {
		collected, err := l.Collect(group.Steps, params)
		if err != nil {
			return nil, err
		}
		for _, s := range collected {
			out = append(out, gate(s, group.Outcome))
		}
	}
	return out, nil
}

// HookSteps returns the hooks for stage and scope as steps.
func (l *Library) HookSteps(stage model.Stage, scope model.Scope) []Step {
	hooks := l.Hooks(stage, scope)
	out := make([]Step, len(hooks))
	for i, h := range hooks {
		out[i] = &hookStep{hook: h}
	}
	return out
}

func (l *Library) collect(lines []string, params map[string]string, chain []*Candidate) ([]Step, error) {
	out := make([]Step, 0, len(lines))
	var previous StepType
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		s, err := l.collectLine(line, &previous, params, chain)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (l *Library) collectLine(line string, previous *StepType, params map[string]string, chain []*Candidate) (Step, error) {
	switch {
	case l.keywords.IsIgnorable(line):
		return &staticStep{text: line, outcome: Ignorable}, nil
	case l.keywords.IsComment(line):
		return &staticStep{text: line, outcome: Comment}, nil
	}

	matches, err := l.Match(*previous, line)
	if err != nil {
		return nil, err
	}
	keyword, text := l.keywords.StepWithoutStart(line)
	stepType := stepTypeOf(keyword, l.keywords)
	if stepType == And {
		stepType = *previous
		if stepType == 0 {
			stepType = Given
		}
	}
	*previous = stepType

	if len(matches) == 0 {
		l.pending.Add(stepType, text)
		return &staticStep{text: line, outcome: Pending}, nil
	}
	m, err := l.Resolve(line, matches)
	if err != nil {
		return nil, err
	}

	step := newParametrisedStep(line, m, params, l.converters)
	if !m.Candidate.IsComposite() {
		return step, nil
	}

	for _, c := range chain {
		if c == m.Candidate {
			cycle := make([]string, 0, len(chain)+1)
			for _, link := range chain {
				cycle = append(cycle, link.String())
			}
			return nil, &CompositeCycleError{Cycle: append(cycle, m.Candidate.String())}
		}
	}
	chain = append(chain[:len(chain):len(chain)], m.Candidate)

	captured := step.captured()
	childParams := make(map[string]string, len(params)+len(captured))
	for k, v := range params {
		childParams[k] = v
	}
	for k, v := range captured {
		childParams[k] = v
	}
	lines := make([]string, len(m.Candidate.Composite()))
	for i, composed := range m.Candidate.Composite() {
		lines[i] = substitute(composed, captured)
	}
	children, err := l.collect(lines, childParams, chain)
	if err != nil {
		return nil, err
	}

	composite := &compositeStep{text: line, children: children}
	if m.Candidate.descriptor.Invoke != nil {
		composite.handler = step
	}
	return composite, nil
}

// substitute replaces <name> references with values.
func substitute(text string, values map[string]string) string {
	if len(values) == 0 || !strings.Contains(text, "<") {
		return text
	}
	pairs := make([]string, 0, 2*len(values))
	for k, v := range values {
		pairs = append(pairs, "<"+k+">", v)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}
