package steps

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/storyspec/packages/core/convert"
	"github.com/abdul-hamid-achik/storyspec/packages/core/model"
	"github.com/abdul-hamid-achik/storyspec/packages/core/reporter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newExecution() *Execution {
	return &Execution{Steps: NewStepsContext()}
}

func mustBuild(t *testing.T, r *Registry) *Library {
	t.Helper()
	lib, err := r.Build()
	require.NoError(t, err)
	return lib
}

func TestCompilePattern(t *testing.T) {
	p, err := CompilePattern("a $name with <value>")
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "value"}, p.Names())
	assert.Equal(t, 5, p.LiteralLen())
	assert.True(t, p.Matches("a ann with 3"))
	assert.False(t, p.Matches("an ann with 3"))

	table, err := CompilePattern("the traders: $table")
	require.NoError(t, err)
	assert.True(t, table.Matches("the traders:\n|name|\n|ann|"))

	literal, err := CompilePattern("costs $ 5 <not a name>")
	require.NoError(t, err)
	assert.Empty(t, literal.Names())
	assert.True(t, literal.Matches("costs $ 5 <not a name>"))

	_, err = CompilePattern("  ")
	require.Error(t, err)
}

func TestExpandVariants(t *testing.T) {
	assert.Equal(t, []string{"a car"}, ExpandVariants("a car"))
	assert.Equal(t,
		[]string{"I have a car", "I have one car", "I own a car", "I own one car"},
		ExpandVariants("I {have|own} {a|one} car"))
	assert.Equal(t, []string{"a car", "car"}, ExpandVariants("{a|} car"))
}

func TestRegistry_BuildErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(r *Registry)
		check func(t *testing.T, err error)
	}{
		{
			name: "duplicate",
			setup: func(r *Registry) {
				r.Given("a car", func() {}).Given("a car", func() {})
			},
			check: func(t *testing.T, err error) {
				var dup *DuplicateCandidateError
				require.True(t, errors.As(err, &dup))
				assert.Equal(t, "Given a car", dup.Candidate)
			},
		},
		{
			name:  "duplicate through variants",
			setup: func(r *Registry) { r.Given("{a|the} car", func() {}).Given("the car", func() {}) },
			check: func(t *testing.T, err error) {
				var dup *DuplicateCandidateError
				require.True(t, errors.As(err, &dup))
			},
		},
		{
			name:  "not a function",
			setup: func(r *Registry) { r.Given("a car", 42) },
			check: func(t *testing.T, err error) { assert.Contains(t, err.Error(), "must be a function") },
		},
		{
			name:  "bad return",
			setup: func(r *Registry) { r.Given("a car", func() int { return 1 }) },
			check: func(t *testing.T, err error) { assert.Contains(t, err.Error(), "must return error") },
		},
		{
			name:  "too many parameters",
			setup: func(r *Registry) { r.Given("a $color car", func(color, brand string) {}) },
			check: func(t *testing.T, err error) { assert.Contains(t, err.Error(), "captures 1") },
		},
		{
			name:  "unconvertible parameter",
			setup: func(r *Registry) { r.Given("a $c", func(c chan int) {}) },
			check: func(t *testing.T, err error) { assert.Contains(t, err.Error(), "no converter") },
		},
		{
			name:  "hook with parameters",
			setup: func(r *Registry) { r.BeforeScenario(func(name string) {}) },
			check: func(t *testing.T, err error) { assert.Contains(t, err.Error(), "takes step parameters") },
		},
		{
			name:  "register And",
			setup: func(r *Registry) { r.Add(Descriptor{Type: And, Pattern: "x", Invoke: noop}) },
			check: func(t *testing.T, err error) { assert.Contains(t, err.Error(), "cannot be registered") },
		},
		{
			name:  "no handler",
			setup: func(r *Registry) { r.Add(Descriptor{Type: Given, Pattern: "x"}) },
			check: func(t *testing.T, err error) { assert.Contains(t, err.Error(), "neither handler") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			tt.setup(r)
			_, err := r.Build()
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func noop(context.Context, Call, []any) error { return nil }

func TestLibrary_Resolve(t *testing.T) {
	register := func(t *testing.T, opts ...Option) *Library {
		r := NewRegistry(opts...)
		r.Given("a $thing", func(string) {})
		r.Given("a car", func() {})
		return mustBuild(t, r)
	}

	t.Run("strict reports ambiguity", func(t *testing.T) {
		lib := register(t)
		matches, err := lib.Match(0, "Given a car")
		require.NoError(t, err)
		require.Len(t, matches, 2)

		_, err = lib.Resolve("Given a car", matches)
		var amb *MatchAmbiguityError
		require.True(t, errors.As(err, &amb))
		assert.ElementsMatch(t, []string{"Given a $thing", "Given a car"}, amb.Candidates)
	})

	t.Run("longest literal", func(t *testing.T) {
		lib := register(t, WithTieBreak(TieBreakLongestLiteral))
		matches, err := lib.Match(0, "Given a car")
		require.NoError(t, err)
		m, err := lib.Resolve("Given a car", matches)
		require.NoError(t, err)
		assert.Equal(t, "a car", m.Candidate.Pattern.String())
	})

	t.Run("first match", func(t *testing.T) {
		lib := register(t, WithTieBreak(TieBreakFirstMatch))
		matches, err := lib.Match(0, "Given a car")
		require.NoError(t, err)
		m, err := lib.Resolve("Given a car", matches)
		require.NoError(t, err)
		assert.Equal(t, "a $thing", m.Candidate.Pattern.String())
	})

	t.Run("priority wins over tie-break", func(t *testing.T) {
		r := NewRegistry()
		r.Given("a $thing", func(string) {}, WithPriority(2))
		r.Given("a car", func() {}, WithPriority(1))
		lib := mustBuild(t, r)

		matches, err := lib.Match(0, "Given a car")
		require.NoError(t, err)
		m, err := lib.Resolve("Given a car", matches)
		require.NoError(t, err)
		assert.Equal(t, "a $thing", m.Candidate.Pattern.String())
	})

	t.Run("type must agree", func(t *testing.T) {
		lib := register(t)
		matches, err := lib.Match(0, "When a car")
		require.NoError(t, err)
		assert.Empty(t, matches)
	})

	t.Run("line without keyword", func(t *testing.T) {
		lib := register(t)
		_, err := lib.Match(0, "a car")
		require.Error(t, err)
	})
}

func TestParseTieBreak(t *testing.T) {
	for in, want := range map[string]TieBreak{
		"":                TieBreakStrict,
		"strict":          TieBreakStrict,
		"longest-literal": TieBreakLongestLiteral,
		"permissive":      TieBreakFirstMatch,
	} {
		got, err := ParseTieBreak(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseTieBreak("random")
	require.Error(t, err)
}

func TestLibrary_CollectPerformsSteps(t *testing.T) {
	var got []string
	r := NewRegistry()
	r.Given("a user $name aged $age", func(name string, age int) {
		got = append(got, name)
	})
	r.When("I act", func() {})
	r.When("I act again", func() {})
	pending := NewPendingMethods()
	lib := mustBuild(t, r).WithPending(pending)

	collected, err := lib.Collect([]string{
		"Given a user ann aged 7",
		"When I act",
		"And I act again",
		"!-- ignore me",
		"# a comment",
	}, nil)
	require.NoError(t, err)
	require.Len(t, collected, 5)

	exec := newExecution()
	var outcomes []Outcome
	for _, s := range collected {
		outcomes = append(outcomes, s.Perform(context.Background(), exec, nil).Outcome)
	}
	assert.Equal(t, []Outcome{Successful, Successful, Successful, Ignorable, Comment}, outcomes)
	assert.Equal(t, []string{"ann"}, got)
	assert.Zero(t, pending.Len())
}

func TestLibrary_ParametrisedTextFromRow(t *testing.T) {
	var thing, value string
	r := NewRegistry()
	r.Given("a $thing with $value", func(t, v string) { thing, value = t, v })
	lib := mustBuild(t, r)

	collected, err := lib.Collect([]string{"Given a <t> with <v>"}, map[string]string{"t": "x", "v": "y"})
	require.NoError(t, err)
	require.Len(t, collected, 1)

	res := collected[0].Perform(context.Background(), newExecution(), nil)
	require.Equal(t, Successful, res.Outcome)
	assert.Equal(t, "Given a <t> with <v>", res.Step)
	assert.Equal(t, "Given a ｟x｠ with ｟y｠", res.Parametrised)
	assert.Equal(t, "Given a x with y", StripMarkers(res.Text()))
	assert.Equal(t, "x", thing)
	assert.Equal(t, "y", value)
}

func TestLibrary_NamedParameterFromRow(t *testing.T) {
	var total int
	r := NewRegistry()
	r.Then("the total is correct", func(n int) { total = n }, Named("total"))
	lib := mustBuild(t, r)

	collected, err := lib.Collect([]string{"Then the total is correct"}, map[string]string{"total": "1,200"})
	require.NoError(t, err)
	res := collected[0].Perform(context.Background(), newExecution(), nil)
	require.Equal(t, Successful, res.Outcome)
	assert.Equal(t, 1200, total)

	collected, err = lib.Collect([]string{"Then the total is correct"}, nil)
	require.NoError(t, err)
	res = collected[0].Perform(context.Background(), newExecution(), nil)
	assert.Equal(t, Failed, res.Outcome)
	assert.Contains(t, res.Cause.Error(), `no value for parameter "total"`)
}

func TestLibrary_PendingRecordedOnce(t *testing.T) {
	pending := NewPendingMethods()
	lib := mustBuild(t, NewRegistry()).WithPending(pending)

	collected, err := lib.Collect([]string{"Given nothing here", "When missing", "Given nothing here"}, nil)
	require.NoError(t, err)
	for _, s := range collected {
		assert.Equal(t, Pending, s.Perform(context.Background(), newExecution(), nil).Outcome)
		assert.Equal(t, Pending, s.DoNotPerform(context.Background(), newExecution(), nil).Outcome)
	}

	_, err = lib.Collect([]string{"Given nothing here"}, nil)
	require.NoError(t, err)

	methods := lib.Pending().List()
	require.Len(t, methods, 2)
	assert.Contains(t, methods[0], `r.Given("nothing here"`)
	assert.Contains(t, methods[1], `r.When("missing"`)
	assert.Contains(t, methods[1], "steps.ErrPending")
}

func TestLibrary_WithPendingKeepsCollectorsApart(t *testing.T) {
	base := mustBuild(t, NewRegistry())
	first, second := NewPendingMethods(), NewPendingMethods()

	_, err := base.WithPending(first).Collect([]string{"Given only in the first"}, nil)
	require.NoError(t, err)
	_, err = base.WithPending(second).Collect([]string{"When only in the second"}, nil)
	require.NoError(t, err)
	_, err = base.Collect([]string{"Then recorded nowhere"}, nil)
	require.NoError(t, err)

	require.Len(t, first.List(), 1)
	assert.Contains(t, first.List()[0], "only in the first")
	require.Len(t, second.List(), 1)
	assert.Contains(t, second.List()[0], "only in the second")
	assert.Nil(t, base.Pending())
	assert.Empty(t, base.Pending().List())
}

func TestLibrary_CompositeExpansion(t *testing.T) {
	var calls []string
	r := NewRegistry()
	r.Given("a user $name", func(name string) { calls = append(calls, "user "+name) })
	r.When("I log in as $name", func(name string) { calls = append(calls, "login "+name) })
	r.Then("the role is $role", func(role string) { calls = append(calls, "role "+role) })
	r.Composite(Given, "a logged in user $name", "Given a user <name>", "When I log in as <name>", "Then the role is <role>")
	lib := mustBuild(t, r)

	collected, err := lib.Collect([]string{"Given a logged in user ann"}, map[string]string{"role": "admin"})
	require.NoError(t, err)
	require.Len(t, collected, 1)

	composite, ok := collected[0].(Composed)
	require.True(t, ok)
	assert.False(t, composite.HasHandler())
	assert.Equal(t, Silent, composite.Perform(context.Background(), newExecution(), nil).Outcome)

	children := composite.Composed()
	require.Len(t, children, 3)
	assert.Equal(t, "Given a user ann", children[0].Text())
	assert.Equal(t, "When I log in as ann", children[1].Text())
	assert.Equal(t, "Then the role is <role>", children[2].Text())

	for _, child := range children {
		require.Equal(t, Successful, child.Perform(context.Background(), newExecution(), nil).Outcome)
	}
	assert.Equal(t, []string{"user ann", "login ann", "role admin"}, calls)
}

func TestLibrary_CompositeWithHandler(t *testing.T) {
	var calls []string
	r := NewRegistry()
	r.Given("step one", func() { calls = append(calls, "one") })
	r.Given("both steps", func() { calls = append(calls, "both") }, ComposedOf("Given step one"))
	lib := mustBuild(t, r)

	collected, err := lib.Collect([]string{"Given both steps"}, nil)
	require.NoError(t, err)
	composite := collected[0].(Composed)
	require.True(t, composite.HasHandler())

	res := composite.Perform(context.Background(), newExecution(), nil)
	assert.Equal(t, Successful, res.Outcome)
	assert.Empty(t, res.Parametrised)
	composite.Composed()[0].Perform(context.Background(), newExecution(), nil)
	assert.Equal(t, []string{"both", "one"}, calls)
}

func TestLibrary_CompositeCycle(t *testing.T) {
	t.Run("self", func(t *testing.T) {
		r := NewRegistry()
		r.Composite(Given, "a loop", "Given a loop")
		lib := mustBuild(t, r)

		_, err := lib.Collect([]string{"Given a loop"}, nil)
		var cycle *CompositeCycleError
		require.True(t, errors.As(err, &cycle))
		assert.Equal(t, []string{"Given a loop", "Given a loop"}, cycle.Cycle)
	})

	t.Run("mutual", func(t *testing.T) {
		r := NewRegistry()
		r.Composite(Given, "ping", "Given pong")
		r.Composite(Given, "pong", "Given ping")
		lib := mustBuild(t, r)

		_, err := lib.Collect([]string{"Given ping"}, nil)
		var cycle *CompositeCycleError
		require.True(t, errors.As(err, &cycle))
		assert.Equal(t, []string{"Given ping", "Given pong", "Given ping"}, cycle.Cycle)
		assert.Contains(t, err.Error(), "Given ping -> Given pong -> Given ping")
	})

	t.Run("repeated use is not a cycle", func(t *testing.T) {
		r := NewRegistry()
		r.Given("leaf", func() {})
		r.Composite(Given, "twice", "Given leaf", "Given leaf")
		r.Composite(Given, "four times", "Given twice", "Given twice")
		lib := mustBuild(t, r)

		collected, err := lib.Collect([]string{"Given four times"}, nil)
		require.NoError(t, err)
		assert.Len(t, collected[0].(Composed).Composed(), 2)
	})
}

func TestParametrisedStep_Outcomes(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	r := NewRegistry()
	r.Given("count $n", func(n int) {})
	r.When("it fails", func() error { return errors.New("boom") })
	r.When("it is pending", func() error { return ErrPending })
	r.When("it panics", func() { panic("bad") })
	r.When("it blocks", func() { <-release })
	lib := mustBuild(t, r)

	perform := func(t *testing.T, ctx context.Context, line string) Result {
		collected, err := lib.Collect([]string{line}, nil)
		require.NoError(t, err)
		return collected[0].Perform(ctx, newExecution(), nil)
	}

	t.Run("conversion failure", func(t *testing.T) {
		res := perform(t, context.Background(), "Given count abc")
		require.Equal(t, Failed, res.Outcome)
		var convErr *convert.ConversionError
		assert.True(t, errors.As(res.Cause, &convErr))
	})

	t.Run("handler error", func(t *testing.T) {
		res := perform(t, context.Background(), "When it fails")
		require.Equal(t, Failed, res.Outcome)
		var failure *StepFailure
		require.True(t, errors.As(res.Cause, &failure))
		assert.NotEmpty(t, failure.ID.String())
		assert.Equal(t, "When it fails", failure.Step)
		assert.EqualError(t, failure.Err, "boom")
	})

	t.Run("pending", func(t *testing.T) {
		assert.Equal(t, Pending, perform(t, context.Background(), "When it is pending").Outcome)
	})

	t.Run("panic", func(t *testing.T) {
		res := perform(t, context.Background(), "When it panics")
		require.Equal(t, Failed, res.Outcome)
		assert.Contains(t, res.Cause.Error(), "panic: bad")
	})

	t.Run("deadline", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		res := perform(t, ctx, "When it blocks")
		require.Equal(t, Failed, res.Outcome)
		assert.ErrorIs(t, res.Cause, context.DeadlineExceeded)
	})

	t.Run("not performed", func(t *testing.T) {
		collected, err := lib.Collect([]string{"Given count 3"}, nil)
		require.NoError(t, err)
		res := collected[0].DoNotPerform(context.Background(), newExecution(), errors.New("earlier"))
		assert.Equal(t, NotPerformed, res.Outcome)
		assert.Equal(t, "Given count ｟3｠", res.Parametrised)
	})

	t.Run("dry run", func(t *testing.T) {
		collected, err := lib.Collect([]string{"When it fails"}, nil)
		require.NoError(t, err)
		res := collected[0].Perform(context.Background(), &Execution{Steps: NewStepsContext(), DryRun: true}, nil)
		assert.Equal(t, Successful, res.Outcome)
	})
}

func TestFunc_InjectsRunState(t *testing.T) {
	var seenMeta model.Meta
	var seenFailure error
	r := NewRegistry()
	r.Given("the value $v is kept", func(ctx context.Context, sc *StepsContext, v string, meta model.Meta, failure error) error {
		seenMeta, seenFailure = meta, failure
		return sc.Put("v", v, model.ScopeScenario)
	})
	lib := mustBuild(t, r)

	collected, err := lib.Collect([]string{"Given the value 42 is kept"}, nil)
	require.NoError(t, err)

	exec := &Execution{Steps: NewStepsContext(), Meta: model.ParseMeta("@smoke")}
	res := collected[0].Perform(context.Background(), exec, nil)
	require.Equal(t, Successful, res.Outcome)

	v, err := Value[string](exec.Steps, "v")
	require.NoError(t, err)
	assert.Equal(t, "42", v)
	assert.True(t, seenMeta.Has("smoke"))
	assert.NoError(t, seenFailure)
}

func TestHooks_GatedByOutcome(t *testing.T) {
	var seen error
	r := NewRegistry()
	r.BeforeScenario(func() {})
	r.AfterScenario(model.OutcomeFailure, func(failure error) { seen = failure })
	r.AfterScenario(model.OutcomeSuccess, func() error { return errors.New("cleanup failed") })
	lib := mustBuild(t, r)

	require.Len(t, lib.HookSteps(model.StageBefore, model.ScopeScenario), 1)
	assert.Empty(t, lib.HookSteps(model.StageBefore, model.ScopeStory))

	after := lib.HookSteps(model.StageAfter, model.ScopeScenario)
	require.Len(t, after, 2)

	failure := errors.New("step failed")
	assert.Equal(t, Silent, after[0].Perform(context.Background(), newExecution(), failure).Outcome)
	assert.Equal(t, failure, seen)
	assert.Equal(t, Skipped, after[1].DoNotPerform(context.Background(), newExecution(), failure).Outcome)

	seen = nil
	assert.Equal(t, Skipped, after[0].Perform(context.Background(), newExecution(), nil).Outcome)
	assert.Nil(t, seen)

	res := after[1].Perform(context.Background(), newExecution(), nil)
	require.Equal(t, Failed, res.Outcome)
	var hookErr *HookFailure
	require.True(t, errors.As(res.Cause, &hookErr))
	assert.EqualError(t, hookErr.Err, "cleanup failed")

	_, ok := after[0].(Hooked)
	assert.True(t, ok)
}

func TestLibrary_CollectAfterGatesByOutcome(t *testing.T) {
	var ran int
	r := NewRegistry()
	r.Given("cleanup", func() { ran++ })
	lib := mustBuild(t, r)

	collected, err := lib.CollectAfter([]model.LifecycleSteps{
		{Scope: model.ScopeScenario, Outcome: model.OutcomeSuccess, Steps: []string{"Given cleanup"}},
		{Scope: model.ScopeScenario, Outcome: model.OutcomeAny, Steps: []string{"Given cleanup"}},
	}, nil)
	require.NoError(t, err)
	require.Len(t, collected, 2)

	failure := errors.New("boom")
	assert.Equal(t, Skipped, collected[0].DoNotPerform(context.Background(), newExecution(), failure).Outcome)
	assert.Equal(t, Successful, collected[1].DoNotPerform(context.Background(), newExecution(), failure).Outcome)
	assert.Equal(t, Successful, collected[0].Perform(context.Background(), newExecution(), nil).Outcome)
	assert.Equal(t, 2, ran)
}

func TestStepsContext(t *testing.T) {
	c := NewStepsContext()

	require.NoError(t, c.Put("k", "story", model.ScopeStory))
	require.NoError(t, c.Put("k", "scenario", model.ScopeScenario))

	var stored *ObjectAlreadyStoredError
	require.True(t, errors.As(c.Put("k", "again", model.ScopeScenario), &stored))
	assert.Equal(t, "k", stored.Key)

	v, err := c.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "scenario", v)

	c.ResetScenario()
	v, err = c.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "story", v)
	require.NoError(t, c.Put("k", "next scenario", model.ScopeScenario))

	require.NoError(t, c.Put("e", 1, model.ScopeExample))
	c.ResetExample()
	_, err = c.Get("e")
	var missing *ObjectNotStoredError
	require.True(t, errors.As(err, &missing))

	_, err = Value[int](c, "k")
	assert.Contains(t, err.Error(), "is string, not int")

	c.ResetStory()
	_, err = c.Get("k")
	assert.Error(t, err)
}

type recorder struct {
	reporter.NullReporter
	events []string
}

func (r *recorder) Successful(step string)      { r.events = append(r.events, "successful "+step) }
func (r *recorder) Failed(step string, _ error) { r.events = append(r.events, "failed "+step) }
func (r *recorder) Pending(step string)         { r.events = append(r.events, "pending "+step) }
func (r *recorder) NotPerformed(step string)    { r.events = append(r.events, "notPerformed "+step) }
func (r *recorder) Ignorable(step string)       { r.events = append(r.events, "ignorable "+step) }
func (r *recorder) Comment(step string)         { r.events = append(r.events, "comment "+step) }

func TestResult_DescribeTo(t *testing.T) {
	rec := &recorder{}
	results := []Result{
		{Outcome: Successful, Step: "Given a <x>", Parametrised: "Given a ｟1｠"},
		{Outcome: Failed, Step: "When b", Cause: errors.New("x")},
		{Outcome: Pending, Step: "Then c"},
		{Outcome: NotPerformed, Step: "Then d"},
		{Outcome: Ignorable, Step: "!-- e"},
		{Outcome: Comment, Step: "# f"},
		{Outcome: Skipped, Step: "hook"},
		{Outcome: Silent, Step: "hook"},
	}
	for _, r := range results {
		r.DescribeTo(rec)
	}
	assert.Equal(t, []string{
		"successful Given a ｟1｠",
		"failed When b",
		"pending Then c",
		"notPerformed Then d",
		"ignorable !-- e",
		"comment # f",
	}, rec.events)
	assert.True(t, results[1].IsFailure())
	assert.Equal(t, "notPerformed", NotPerformed.String())
}
