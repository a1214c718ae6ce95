package steps

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/storyspec/packages/core/convert"
	"github.com/abdul-hamid-achik/storyspec/packages/core/model"
	"github.com/google/uuid"
)

// Execution is the state shared by the steps of one run unit.
type Execution struct {
	Steps  *StepsContext
	Meta   model.Meta
	DryRun bool
}

// Step is an executable step. failure is the first failure seen so far in
// the enclosing unit, or nil.
type Step interface {
	Text() string
	Perform(ctx context.Context, exec *Execution, failure error) Result
	DoNotPerform(ctx context.Context, exec *Execution, failure error) Result
}

// Composed is a step that expands into child steps. Its own handler, if
// any, runs before the children.
type Composed interface {
	Step
	HasHandler() bool
	Composed() []Step
}

// Conditional is a step that runs only when the failure seen so far
// satisfies its outcome.
type Conditional interface {
	Step
	Allows(failure error) bool
}

// Hooked marks hook steps, which are not announced to reporters.
type Hooked interface {
	Step
	Hook() Hook
}

// staticStep has a fixed outcome: pending, ignorable or comment.
type staticStep struct {
	text    string
	outcome Outcome
}

func (s *staticStep) Text() string {
	return s.text
}

func (s *staticStep) Perform(context.Context, *Execution, error) Result {
	return Result{Outcome: s.outcome, Step: s.text}
}

func (s *staticStep) DoNotPerform(context.Context, *Execution, error) Result {
	return Result{Outcome: s.outcome, Step: s.text}
}

type parametrisedStep struct {
	text         string
	parametrised string
	match        Match
	values       []string
	params       map[string]string
	converters   *convert.Converters
}

func newParametrisedStep(line string, m Match, params map[string]string, converters *convert.Converters) *parametrisedStep {
	s := &parametrisedStep{text: line, match: m, params: params, converters: converters}
	s.values = make([]string, len(m.captures))
	for i, c := range m.captures {
		s.values[i] = substitute(c.value, params)
	}
	if len(m.captures) > 0 {
		s.parametrised = m.Keyword + " " + markValues(m.Text, m.captures, s.values)
	}
	return s
}

func markValues(text string, captures []capture, values []string) string {
	var sb strings.Builder
	last := 0
	for i, c := range captures {
		if c.start < last {
			continue
		}
		sb.WriteString(text[last:c.start])
		sb.WriteString(ParameterValueStart)
		sb.WriteString(values[i])
		sb.WriteString(ParameterValueEnd)
		last = c.end
	}
	sb.WriteString(text[last:])
	return sb.String()
}

func (s *parametrisedStep) Text() string {
	return s.text
}

// captured maps placeholder names to their values.
func (s *parametrisedStep) captured() map[string]string {
	out := make(map[string]string, len(s.values))
	for i, c := range s.match.captures {
		out[c.name] = s.values[i]
	}
	return out
}

func (s *parametrisedStep) value(i int) (string, error) {
	d := s.match.Candidate.descriptor
	if len(d.ParamNames) == 0 {
		return s.values[i], nil
	}
	name := d.ParamNames[i]
	for j, c := range s.match.captures {
		if c.name == name {
			return s.values[j], nil
		}
	}
	if v, ok := s.params[name]; ok {
		return v, nil
	}
	return "", fmt.Errorf("no value for parameter %q", name)
}

func (s *parametrisedStep) args() ([]any, error) {
	types := s.match.Candidate.descriptor.ParamTypes
	args := make([]any, len(types))
	for i, t := range types {
		raw, err := s.value(i)
		if err != nil {
			return nil, err
		}
		v, err := s.converters.Convert(raw, t)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

func (s *parametrisedStep) Perform(ctx context.Context, exec *Execution, failure error) Result {
	r := Result{Step: s.text, Parametrised: s.parametrised}
	if exec.DryRun {
		r.Outcome = Successful
		return r
	}

	start := time.Now()
	args, err := s.args()
	if err == nil {
		err = invoke(ctx, s.match.Candidate.descriptor.Invoke, Call{Steps: exec.Steps, Meta: exec.Meta, Failure: failure}, args)
	}
	r.Duration = time.Since(start)

	switch {
	case err == nil:
		r.Outcome = Successful
	case errors.Is(err, ErrPending):
		r.Outcome = Pending
	default:
		r.Outcome = Failed
		r.Cause = NewStepFailure(s.text, err)
	}
	return r
}

func (s *parametrisedStep) DoNotPerform(context.Context, *Execution, error) Result {
	return Result{Outcome: NotPerformed, Step: s.text, Parametrised: s.parametrised}
}

type compositeStep struct {
	text     string
	handler  Step
	children []Step
}

func (s *compositeStep) Text() string {
	return s.text
}

// HasHandler reports whether the composite runs code of its own.
func (s *compositeStep) HasHandler() bool {
	return s.handler != nil
}

// Composed returns the expanded child steps.
func (s *compositeStep) Composed() []Step {
	return s.children
}

func (s *compositeStep) Perform(ctx context.Context, exec *Execution, failure error) Result {
	if s.handler == nil {
		return Result{Outcome: Silent, Step: s.text}
	}
	r := s.handler.Perform(ctx, exec, failure)
	r.Parametrised = ""
	return r
}

func (s *compositeStep) DoNotPerform(ctx context.Context, exec *Execution, failure error) Result {
	if s.handler == nil {
		return Result{Outcome: Silent, Step: s.text}
	}
	r := s.handler.DoNotPerform(ctx, exec, failure)
	r.Parametrised = ""
	return r
}

type hookStep struct {
	hook Hook
}

func (s *hookStep) Text() string {
	return s.hook.Name
}

// Hook returns the hook the step runs.
func (s *hookStep) Hook() Hook {
	return s.hook
}

func (s *hookStep) Perform(ctx context.Context, exec *Execution, failure error) Result {
	r := Result{Step: s.hook.Name}
	if !s.hook.Outcome.Matches(failure != nil) {
		r.Outcome = Skipped
		return r
	}
	if exec.DryRun {
		r.Outcome = Silent
		return r
	}

	start := time.Now()
	err := invoke(ctx, s.hook.Invoke, Call{Steps: exec.Steps, Meta: exec.Meta, Failure: failure}, nil)
	r.Duration = time.Since(start)
	if err != nil {
		r.Outcome = Failed
		r.Cause = &HookFailure{ID: uuid.New(), Hook: s.hook.Name, Err: err}
		return r
	}
	r.Outcome = Silent
	return r
}

// DoNotPerform runs the hook anyway; hooks are gated only by their outcome.
func (s *hookStep) DoNotPerform(ctx context.Context, exec *Execution, failure error) Result {
	return s.Perform(ctx, exec, failure)
}

// gatedStep is a lifecycle after-step that runs only when the outcome of the
// unit it follows matches, even after a failure.
type gatedStep struct {
	inner   Step
	outcome model.Outcome
}

func gate(s Step, outcome model.Outcome) Step {
	if c, ok := s.(*compositeStep); ok {
		gated := &compositeStep{text: c.text, children: make([]Step, len(c.children))}
		if c.handler != nil {
			gated.handler = gate(c.handler, outcome)
		}
		for i, child := range c.children {
			gated.children[i] = gate(child, outcome)
		}
		return gated
	}
	return &gatedStep{inner: s, outcome: outcome}
}

func (s *gatedStep) Text() string {
	return s.inner.Text()
}

// Allows reports whether the step runs given the failure so far.
func (s *gatedStep) Allows(failure error) bool {
	return s.outcome.Matches(failure != nil)
}

func (s *gatedStep) Perform(ctx context.Context, exec *Execution, failure error) Result {
	if !s.Allows(failure) {
		return Result{Outcome: Skipped, Step: s.inner.Text()}
	}
	return s.inner.Perform(ctx, exec, failure)
}

func (s *gatedStep) DoNotPerform(ctx context.Context, exec *Execution, failure error) Result {
	return s.Perform(ctx, exec, failure)
}

// invoke runs fn until it returns or ctx is done. A panicking handler fails
// the step.
func invoke(ctx context.Context, fn InvokeFunc, call Call, args []any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- fmt.Errorf("panic: %v", p)
			}
		}()
		done <- fn(ctx, call, args)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		select {
		case err := <-done:
			return err
		default:
			return ctx.Err()
		}
	}
}
