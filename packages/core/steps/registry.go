package steps

import (
	"errors"
	"fmt"

	"github.com/abdul-hamid-achik/storyspec/packages/core/convert"
	"github.com/abdul-hamid-achik/storyspec/packages/core/model"
)

// TieBreak decides between candidates that match a step with equal priority.
type TieBreak int

const (
	// TieBreakStrict fails the step with a MatchAmbiguityError.
	TieBreakStrict TieBreak = iota
	// TieBreakLongestLiteral prefers the pattern with the most literal text.
	TieBreakLongestLiteral
	// TieBreakFirstMatch takes the earliest registration.
	TieBreakFirstMatch
)

func (t TieBreak) String() string {
	switch t {
	case TieBreakLongestLiteral:
		return "longest-literal"
	case TieBreakFirstMatch:
		return "first-match"
	}
	return "strict"
}

// ParseTieBreak parses a tie-break name as used in configuration.
func ParseTieBreak(s string) (TieBreak, error) {
	switch s {
	case "", "strict":
		return TieBreakStrict, nil
	case "longest-literal":
		return TieBreakLongestLiteral, nil
	case "first-match", "permissive":
		return TieBreakFirstMatch, nil
	}
	return TieBreakStrict, fmt.Errorf("unknown tie-break %q", s)
}

// Option configures a Registry.
type Option func(*Registry)

// WithTieBreak sets how equally prioritised matches are resolved.
func WithTieBreak(t TieBreak) Option {
	return func(r *Registry) {
		r.tieBreak = t
	}
}

// WithKeywords sets the keywords used to strip and recognise step text.
func WithKeywords(k model.Keywords) Option {
	return func(r *Registry) {
		r.keywords = k
	}
}

// WithConverters sets the converters used for step parameters.
func WithConverters(c *convert.Converters) Option {
	return func(r *Registry) {
		if c != nil {
			r.converters = c
		}
	}
}

// StepOption adjusts a single registration.
type StepOption func(*Descriptor)

// WithPriority sets the priority of a step descriptor.
func WithPriority(priority int) StepOption {
	return func(d *Descriptor) {
		d.Priority = priority
	}
}

// Named binds handler parameters to placeholder or examples column names.
func Named(names ...string) StepOption {
	return func(d *Descriptor) {
		d.ParamNames = names
	}
}

// ComposedOf makes the step a composite of the given step lines.
func ComposedOf(lines ...string) StepOption {
	return func(d *Descriptor) {
		d.Composite = lines
	}
}

// Registry collects step and hook registrations and builds a Library.
// It is not safe for concurrent use.
type Registry struct {
	descriptors []Descriptor
	hooks       []Hook
	errs        []error
	tieBreak    TieBreak
	keywords    model.Keywords
	converters  *convert.Converters
}

// NewRegistry creates an empty registry with English keywords.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		keywords:   model.DefaultKeywords(),
		converters: convert.New(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Given registers a Given step.
func (r *Registry) Given(pattern string, fn any, opts ...StepOption) *Registry {
	return r.step(Given, pattern, fn, opts)
}

// When registers a When step.
func (r *Registry) When(pattern string, fn any, opts ...StepOption) *Registry {
	return r.step(When, pattern, fn, opts)
}

// Then registers a Then step.
func (r *Registry) Then(pattern string, fn any, opts ...StepOption) *Registry {
	return r.step(Then, pattern, fn, opts)
}

// Composite registers a step without a handler that expands into lines.
func (r *Registry) Composite(stepType StepType, pattern string, lines ...string) *Registry {
	return r.step(stepType, pattern, nil, []StepOption{ComposedOf(lines...)})
}

func (r *Registry) step(stepType StepType, pattern string, fn any, opts []StepOption) *Registry {
	d := Descriptor{Type: stepType, Pattern: pattern}
	if fn != nil {
		h, err := Func(fn)
		if err != nil {
			r.errs = append(r.errs, fmt.Errorf("%s %s: %w", stepType.Keyword(), pattern, err))
			return r
		}
		d.Invoke, d.ParamTypes, d.Source = h.Invoke, h.ParamTypes, h.Name
	}
	for _, opt := range opts {
		opt(&d)
	}
	return r.Add(d)
}

// Add registers ready-made descriptors.
func (r *Registry) Add(descriptors ...Descriptor) *Registry {
	r.descriptors = append(r.descriptors, descriptors...)
	return r
}

// AddProvider lets each provider register its steps.
func (r *Registry) AddProvider(providers ...Provider) *Registry {
	for _, p := range providers {
		p.Register(r)
	}
	return r
}

// BeforeStory registers a hook run before every story.
func (r *Registry) BeforeStory(fn any) *Registry {
	return r.hook(model.StageBefore, model.ScopeStory, model.OutcomeAny, fn)
}

// AfterStory registers a hook run after every story with the given outcome.
func (r *Registry) AfterStory(outcome model.Outcome, fn any) *Registry {
	return r.hook(model.StageAfter, model.ScopeStory, outcome, fn)
}

// BeforeScenario registers a hook run before every scenario.
func (r *Registry) BeforeScenario(fn any) *Registry {
	return r.hook(model.StageBefore, model.ScopeScenario, model.OutcomeAny, fn)
}

// AfterScenario registers a hook run after every scenario with the given outcome.
func (r *Registry) AfterScenario(outcome model.Outcome, fn any) *Registry {
	return r.hook(model.StageAfter, model.ScopeScenario, outcome, fn)
}

func (r *Registry) hook(stage model.Stage, scope model.Scope, outcome model.Outcome, fn any) *Registry {
	h, err := Func(fn)
	if err == nil && len(h.ParamTypes) > 0 {
		err = fmt.Errorf("hook %s takes step parameters", h.Name)
	}
	if err != nil {
		r.errs = append(r.errs, err)
		return r
	}
	r.hooks = append(r.hooks, Hook{Stage: stage, Scope: scope, Outcome: outcome, Name: h.Name, Invoke: h.Invoke})
	return r
}

// Build validates the registrations and returns a read-only Library.
// Duplicate candidates and handlers whose parameters cannot be bound or
// converted are reported together.
func (r *Registry) Build() (*Library, error) {
	lib := &Library{
		hooks:      append([]Hook(nil), r.hooks...),
		tieBreak:   r.tieBreak,
		keywords:   r.keywords,
		converters: r.converters,
	}
	errs := append([]error(nil), r.errs...)

	seen := make(map[string]bool)
	for _, d := range r.descriptors {
		if err := validateDescriptor(d, r.converters); err != nil {
			errs = append(errs, err)
			continue
		}
		for _, variant := range ExpandVariants(d.Pattern) {
			p, err := CompilePattern(variant)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			c := &Candidate{Type: d.Type, Pattern: p, Priority: d.Priority, Order: len(lib.candidates), descriptor: &d}
			if err := checkBindings(c); err != nil {
				errs = append(errs, err)
				continue
			}
			key := c.String()
			if seen[key] {
				errs = append(errs, &DuplicateCandidateError{Candidate: key})
				continue
			}
			seen[key] = true
			lib.candidates = append(lib.candidates, c)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return lib, nil
}

func validateDescriptor(d Descriptor, converters *convert.Converters) error {
	switch d.Type {
	case Given, When, Then:
	default:
		return fmt.Errorf("step %q: type %s cannot be registered", d.Pattern, d.Type)
	}
	if d.Invoke == nil && len(d.Composite) == 0 {
		return fmt.Errorf("step %q: %w", d.Pattern, ErrNoHandler)
	}
	if len(d.ParamNames) > 0 && len(d.ParamNames) != len(d.ParamTypes) {
		return fmt.Errorf("step %q names %d parameters but its handler takes %d", d.Pattern, len(d.ParamNames), len(d.ParamTypes))
	}
	for _, t := range d.ParamTypes {
		if !converters.Accepts(t) {
			return fmt.Errorf("step %q: no converter for parameter type %s", d.Pattern, t)
		}
	}
	return nil
}

func checkBindings(c *Candidate) error {
	d := c.descriptor
	if len(d.ParamNames) == 0 && len(d.ParamTypes) > len(c.Pattern.Names()) {
		return fmt.Errorf("step %q: handler takes %d parameters but the pattern captures %d",
			c.Pattern, len(d.ParamTypes), len(c.Pattern.Names()))
	}
	return nil
}
