package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/storyspec/packages/core/loader"
	"github.com/abdul-hamid-achik/storyspec/packages/core/model"
	"github.com/abdul-hamid-achik/storyspec/packages/core/reporter"
	"github.com/abdul-hamid-achik/storyspec/packages/core/steps"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type events struct {
	reporter.NullReporter
	mu  sync.Mutex
	log []string
}

func (e *events) add(format string, args ...any) {
	e.mu.Lock()
	e.log = append(e.log, fmt.Sprintf(format, args...))
	e.mu.Unlock()
}

func (e *events) BeforeStory(s *model.Story, given bool) { e.add("beforeStory %s %t", s.Path, given) }
func (e *events) AfterStory(given bool)                  { e.add("afterStory %t", given) }
func (e *events) StoryNotAllowed(s *model.Story, _ string) {
	e.add("storyNotAllowed %s", s.Path)
}
func (e *events) StoryCancelled(s *model.Story, _ time.Duration) { e.add("cancelled %s", s.Path) }
func (e *events) ScenarioNotAllowed(s *model.Scenario, _ string) {
	e.add("scenarioNotAllowed %s", s.Title)
}
func (e *events) BeforeScenario(s *model.Scenario) { e.add("beforeScenario %s", s.Title) }
func (e *events) AfterScenario()                   { e.add("afterScenario") }
func (e *events) Example(_ map[string]string, i int) {
	e.add("example %d", i)
}
func (e *events) Successful(step string)      { e.add("successful %s", step) }
func (e *events) Failed(step string, _ error) { e.add("failed %s", step) }
func (e *events) Pending(step string)         { e.add("pending %s", step) }
func (e *events) NotPerformed(step string)    { e.add("notPerformed %s", step) }
func (e *events) Restarted(step string, _ error) {
	e.add("restarted %s", step)
}
func (e *events) DryRun()                   { e.add("dryRun") }
func (e *events) PendingMethods(m []string) { e.add("pendingMethods %d", len(m)) }
func (e *events) BeforeComposedSteps()      { e.add("composed {") }
func (e *events) AfterComposedSteps()       { e.add("}") }

func (e *events) matching(prefix string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []string
	for _, entry := range e.log {
		if strings.HasPrefix(entry, prefix) {
			out = append(out, entry)
		}
	}
	return out
}

// calls records handler invocations.
type calls struct {
	mu  sync.Mutex
	log []string
}

func (c *calls) add(s string) {
	c.mu.Lock()
	c.log = append(c.log, s)
	c.mu.Unlock()
}

func (c *calls) list() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.log...)
}

func build(t *testing.T, register func(r *steps.Registry), opts ...steps.Option) *steps.Library {
	t.Helper()
	r := steps.NewRegistry(opts...)
	register(r)
	lib, err := r.Build()
	require.NoError(t, err)
	return lib
}

func run(t *testing.T, lib *steps.Library, cfg *Config, stories loader.MapLoader, paths ...string) (*RunResult, *events, error) {
	t.Helper()
	rec := &events{}
	e, err := NewEmbedder(lib, cfg, WithLoader(stories), WithReporter(rec))
	require.NoError(t, err)
	res, err := e.RunStoriesAsPaths(context.Background(), paths)
	return res, rec, err
}

func outcomes(results []steps.Result) []steps.Outcome {
	out := make([]steps.Outcome, len(results))
	for i, r := range results {
		out[i] = r.Outcome
	}
	return out
}

func TestNewEmbedder(t *testing.T) {
	lib := build(t, func(r *steps.Registry) {})

	t.Run("with nil config", func(t *testing.T) {
		e, err := NewEmbedder(lib, nil)
		require.NoError(t, err)
		assert.Equal(t, DefaultThreads, e.Config().Threads)
		assert.Equal(t, DefaultStoryTimeout, e.Config().StoryTimeout)
	})

	t.Run("with invalid meta filter", func(t *testing.T) {
		_, err := NewEmbedder(lib, &Config{MetaFilter: "expr: has("})
		assert.Error(t, err)
	})

	t.Run("without library", func(t *testing.T) {
		_, err := NewEmbedder(nil, nil)
		assert.Error(t, err)
	})
}

func TestEmbedder_RunsSteps(t *testing.T) {
	c := &calls{}
	lib := build(t, func(r *steps.Registry) {
		r.Given("a basket with $count apples", func(count int) { c.add(fmt.Sprintf("basket %d", count)) })
		r.When("I eat $count", func(count int) { c.add(fmt.Sprintf("eat %d", count)) })
		r.Then("$count apples are left", func(count int) error {
			c.add(fmt.Sprintf("left %d", count))
			return nil
		})
	})

	res, rec, err := run(t, lib, nil, loader.MapLoader{
		"apples.story": "Scenario: eating\nGiven a basket with 3 apples\nWhen I eat 1\nAnd I eat 1\nThen 1 apples are left",
	}, "apples.story")
	require.NoError(t, err)

	assert.Equal(t, []string{"basket 3", "eat 1", "eat 1", "left 1"}, c.list())
	require.Len(t, res.Stories, 1)
	story := res.Stories[0]
	assert.False(t, story.Failed)
	require.Len(t, story.Scenarios, 1)
	assert.Equal(t, []steps.Outcome{steps.Successful, steps.Successful, steps.Successful, steps.Successful},
		outcomes(story.Scenarios[0].Steps))
	assert.Contains(t, rec.log, "successful Given a basket with ｟3｠ apples")
	assert.Contains(t, rec.log, "successful And I eat ｟1｠")
	assert.Equal(t, "beforeStory apples.story false", rec.log[0])

	counts := res.Counts()
	assert.Equal(t, 1, counts.Stories)
	assert.Equal(t, 1, counts.Scenarios)
	assert.Equal(t, 4, counts.Steps[steps.Successful])
}

func TestEmbedder_PendingMethodsReportedOnce(t *testing.T) {
	lib := build(t, func(r *steps.Registry) {})

	res, rec, err := run(t, lib, nil, loader.MapLoader{
		"one.story": "Given an unknown step",
		"two.story": "Given an unknown step\nWhen another unknown step",
	}, "one.story", "two.story")
	require.NoError(t, err)

	require.Len(t, res.PendingMethods, 2)
	assert.Contains(t, res.PendingMethods[0], `r.Given("an unknown step"`)
	assert.Contains(t, res.PendingMethods[1], `r.When("another unknown step"`)
	assert.Len(t, rec.matching("pending Given an unknown step"), 2)
	assert.Equal(t, []string{"pendingMethods 2"}, rec.matching("pendingMethods"))
	assert.False(t, res.Failed())
}

func TestEmbedder_PendingMethodsBelongToTheirRun(t *testing.T) {
	lib := build(t, func(r *steps.Registry) {
		r.Given("a known step", func() {})
	})
	stories := loader.MapLoader{
		"a.story": "Given an unknown step",
		"b.story": "Given a known step",
	}
	e, err := NewEmbedder(lib, nil, WithLoader(stories))
	require.NoError(t, err)

	first, err := e.RunStoriesAsPaths(context.Background(), []string{"a.story"})
	require.NoError(t, err)
	require.Len(t, first.PendingMethods, 1)

	second, err := e.RunStoriesAsPaths(context.Background(), []string{"b.story"})
	require.NoError(t, err)
	assert.Empty(t, second.PendingMethods)

	third, err := e.RunStoriesAsPaths(context.Background(), []string{"a.story"})
	require.NoError(t, err)
	assert.Equal(t, first.PendingMethods, third.PendingMethods)
	assert.Nil(t, lib.Pending())
}

func TestEmbedder_PendingHaltsScenario(t *testing.T) {
	c := &calls{}
	lib := build(t, func(r *steps.Registry) {
		r.Then("it works", func() { c.add("works") })
	})

	res, _, err := run(t, lib, nil, loader.MapLoader{
		"p.story": "Given something not written yet\nThen it works",
	}, "p.story")
	require.NoError(t, err)

	assert.Empty(t, c.list())
	assert.Equal(t, []steps.Outcome{steps.Pending, steps.NotPerformed}, outcomes(res.Stories[0].Scenarios[0].Steps))
	assert.False(t, res.Stories[0].Failed)
}

func TestEmbedder_CompositeReportsLeafOutcomes(t *testing.T) {
	c := &calls{}
	lib := build(t, func(r *steps.Registry) {
		r.Given("a user named $name", func(name string) { c.add("user " + name) })
		r.When("$name logs in", func(name string) { c.add("login " + name) })
		r.Composite(steps.Given, "a logged in user $name", "Given a user named <name>", "When <name> logs in")
		r.Composite(steps.Given, "a busy day for $name", "Given a logged in user <name>")
	})

	res, rec, err := run(t, lib, nil, loader.MapLoader{
		"c.story": "Given a busy day for bob",
	}, "c.story")
	require.NoError(t, err)

	assert.Equal(t, []string{"user bob", "login bob"}, c.list())
	assert.Equal(t, []string{
		"successful Given a user named ｟bob｠",
		"successful When ｟bob｠ logs in",
	}, rec.matching("successful"))
	assert.Len(t, rec.matching("composed {"), 2)
	assert.False(t, res.Failed())

	results := res.Stories[0].AllSteps()
	assert.Equal(t, []steps.Outcome{steps.Successful, steps.Successful}, outcomes(results))
	assert.Equal(t, []string{"Given a busy day for bob", "Given a logged in user bob"}, results[0].ExpandedFrom)
	assert.Empty(t, results[1].ExpandedFrom)
	assert.Equal(t, map[steps.Outcome]int{steps.Successful: 2}, res.Counts().Steps)
}

func TestEmbedder_CompositeWithHandlerKeepsItsOutcome(t *testing.T) {
	c := &calls{}
	lib := build(t, func(r *steps.Registry) {
		r.Given("a user named $name", func(name string) { c.add("user " + name) })
		r.Given("a session for $name", func(name string) { c.add("session " + name) },
			steps.ComposedOf("Given a user named <name>"))
	})

	res, _, err := run(t, lib, nil, loader.MapLoader{"h.story": "Given a session for ann"}, "h.story")
	require.NoError(t, err)

	assert.Equal(t, []string{"session ann", "user ann"}, c.list())
	results := res.Stories[0].AllSteps()
	assert.Equal(t, []steps.Outcome{steps.Successful, steps.Successful}, outcomes(results))
	assert.Equal(t, "Given a session for ann", results[0].Step)
	assert.Empty(t, results[1].ExpandedFrom)
}

func TestEmbedder_CompositeCycleIsFatal(t *testing.T) {
	c := &calls{}
	lib := build(t, func(r *steps.Registry) {
		r.Given("a step", func() { c.add("step") })
		r.Composite(steps.Given, "a loop", "Given an outer loop")
		r.Composite(steps.Given, "an outer loop", "Given a loop")
	})

	res, rec, err := run(t, lib, nil, loader.MapLoader{
		"loop.story": "Given a step\nGiven a loop",
	}, "loop.story")
	require.Error(t, err)
	assert.Nil(t, res)

	var cycle *steps.CompositeCycleError
	require.ErrorAs(t, err, &cycle)
	assert.Equal(t, []string{"Given a loop", "Given an outer loop", "Given a loop"}, cycle.Cycle)
	var plan *PlanError
	require.ErrorAs(t, err, &plan)
	assert.Equal(t, "loop.story", plan.Path)
	assert.Empty(t, c.list())
	assert.Empty(t, rec.log)
}

func TestEmbedder_AmbiguityIsFatal(t *testing.T) {
	register := func(r *steps.Registry) {
		r.Given("a $thing", func(string) {})
		r.Given("$something user", func(string) {})
	}
	stories := loader.MapLoader{"a.story": "Given a user"}

	_, _, err := run(t, build(t, register), nil, stories, "a.story")
	var ambiguity *steps.MatchAmbiguityError
	require.ErrorAs(t, err, &ambiguity)
	assert.Len(t, ambiguity.Candidates, 2)

	res, _, err := run(t, build(t, register, steps.WithTieBreak(steps.TieBreakFirstMatch)), nil, stories, "a.story")
	require.NoError(t, err)
	assert.False(t, res.Failed())
}

func TestEmbedder_PrioritySelectsCandidate(t *testing.T) {
	c := &calls{}
	lib := build(t, func(r *steps.Registry) {
		r.Given("a $thing", func(thing string) { c.add("generic " + thing) })
		r.Given("a user", func() { c.add("specific") }, steps.WithPriority(1))
	})

	for i := 0; i < 3; i++ {
		_, _, err := run(t, lib, nil, loader.MapLoader{"p.story": "Given a user\nGiven a car"}, "p.story")
		require.NoError(t, err)
	}
	assert.Equal(t, []string{
		"specific", "generic car",
		"specific", "generic car",
		"specific", "generic car",
	}, c.list())
}

func TestEmbedder_StepsContextScopes(t *testing.T) {
	lib := build(t, func(r *steps.Registry) {
		r.Given("I store $fruit", func(sc *steps.StepsContext, fruit string) error {
			return sc.Put("fruit", fruit, model.ScopeScenario)
		})
	})

	res, _, err := run(t, lib, &Config{IgnoreFailureInView: true}, loader.MapLoader{
		"ctx.story": `Scenario: one
Given I store apple

Scenario: two
Given I store apple

Scenario: three
Given I store apple
And I store pear`,
	}, "ctx.story")
	require.NoError(t, err)

	scenarios := res.Stories[0].Scenarios
	require.Len(t, scenarios, 3)
	assert.False(t, scenarios[0].Failed)
	assert.False(t, scenarios[1].Failed)
	require.True(t, scenarios[2].Failed)
	assert.Equal(t, []steps.Outcome{steps.Successful, steps.Failed}, outcomes(scenarios[2].Steps))

	var stored *steps.ObjectAlreadyStoredError
	require.ErrorAs(t, scenarios[2].Steps[1].Cause, &stored)
	assert.Equal(t, "fruit", stored.Key)
}

func TestEmbedder_ExamplesRowsStartWithFreshScenarioScope(t *testing.T) {
	c := &calls{}
	lib := build(t, func(r *steps.Registry) {
		r.BeforeScenario(func(sc *steps.StepsContext) error {
			c.add("open session")
			return sc.Put("session", "open", model.ScopeScenario)
		})
		r.Given("I pick $fruit", func(sc *steps.StepsContext, fruit string) error {
			if _, err := sc.Get("session"); err != nil {
				return err
			}
			return sc.Put("fruit", fruit, model.ScopeScenario)
		})
	})

	res, _, err := run(t, lib, nil, loader.MapLoader{
		"rows.story": `Scenario: picking
Given I pick <fruit>

Examples:
|fruit|
|apple|
|pear|
|plum|`,
	}, "rows.story")
	require.NoError(t, err)

	scenario := res.Stories[0].Scenarios[0]
	require.Len(t, scenario.Examples, 3)
	for _, ex := range scenario.Examples {
		assert.False(t, ex.Failed, "row %d: %v", ex.Index, firstFailure(ex.Steps))
	}
	assert.False(t, res.Stories[0].Failed)
	assert.Equal(t, []string{"open session", "open session", "open session"}, c.list())
}

func TestEmbedder_ParametrisedMarkersFromExamples(t *testing.T) {
	var mu sync.Mutex
	var thresholds []int
	lib := build(t, func(r *steps.Registry) {
		r.Given("a value of $value", func(int) {})
		r.Then("the threshold is <t>", func(threshold int) {
			mu.Lock()
			thresholds = append(thresholds, threshold)
			mu.Unlock()
		})
	})

	_, rec, err := run(t, lib, nil, loader.MapLoader{
		"ex.story": `Scenario: markers
Given a value of <v>
Then the threshold is <v>

Examples:
|v|
|1|
|2|`,
	}, "ex.story")
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2}, thresholds)
	assert.Equal(t, []string{
		"successful Given a value of ｟1｠",
		"successful Then the threshold is ｟1｠",
		"successful Given a value of ｟2｠",
		"successful Then the threshold is ｟2｠",
	}, rec.matching("successful"))
	assert.Equal(t, []string{"example 0", "example 1"}, rec.matching("example"))
}

func TestEmbedder_FailurePolicies(t *testing.T) {
	register := func(r *steps.Registry) {
		r.Given("a failing step", func() error { return errors.New("boom") })
		r.Given("a passing step", func() {})
		r.Then("a passing step", func() {})
	}
	stories := loader.MapLoader{
		"f.story": `Scenario: failing
Given a failing step
Then a passing step

Scenario: passing
Given a passing step`,
	}

	tests := []struct {
		name   string
		config Config
		first  []steps.Outcome
		second []steps.Outcome
		skip   bool
		err    bool
	}{
		{
			name:   "default",
			first:  []steps.Outcome{steps.Failed, steps.NotPerformed},
			second: []steps.Outcome{steps.Successful},
			err:    true,
		},
		{
			name:   "skip scenarios after failure",
			config: Config{SkipScenariosAfterFailure: true},
			first:  []steps.Outcome{steps.Failed, steps.NotPerformed},
			second: []steps.Outcome{steps.NotPerformed},
			skip:   true,
			err:    true,
		},
		{
			name:   "ignore failure in story",
			config: Config{IgnoreFailureInStory: true, SkipScenariosAfterFailure: true},
			first:  []steps.Outcome{steps.Failed, steps.Successful},
			second: []steps.Outcome{steps.Successful},
			err:    true,
		},
		{
			name:   "ignore failure in view",
			config: Config{IgnoreFailureInView: true},
			first:  []steps.Outcome{steps.Failed, steps.NotPerformed},
			second: []steps.Outcome{steps.Successful},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.config
			res, _, err := run(t, build(t, register), &cfg, stories, "f.story")
			if tt.err {
				var failed *RunFailedError
				require.ErrorAs(t, err, &failed)
				assert.ErrorIs(t, err, ErrStoriesFailed)
				assert.Equal(t, []string{"f.story"}, failed.Failed)
			} else {
				require.NoError(t, err)
			}

			require.NotNil(t, res)
			story := res.Stories[0]
			assert.True(t, story.Failed)
			require.Len(t, story.Scenarios, 2)
			assert.Equal(t, tt.first, outcomes(story.Scenarios[0].Steps))
			assert.Equal(t, tt.second, outcomes(story.Scenarios[1].Steps))
			assert.Equal(t, tt.skip, story.Scenarios[1].Skipped)

			var failure *steps.StepFailure
			require.ErrorAs(t, story.Cause(), &failure)
			assert.Equal(t, "Given a failing step", failure.Step)
			assert.NotEqual(t, uuid.Nil, failure.ID)
		})
	}
}

func TestEmbedder_TimeoutDoesNotHangPool(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	lib := build(t, func(r *steps.Registry) {
		r.Given("a slow step", func() { <-release })
		r.Given("a quick step", func() {})
	})

	start := time.Now()
	res, rec, err := run(t, lib, &Config{Threads: 2, StoryTimeout: 100 * time.Millisecond}, loader.MapLoader{
		"slow.story":  "Given a slow step\nGiven a quick step",
		"quick.story": "Given a quick step",
	}, "slow.story", "quick.story")
	assert.Less(t, time.Since(start), 5*time.Second)

	var failed *RunFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, []string{"slow.story"}, failed.Failed)

	slow := res.Stories[0]
	assert.True(t, slow.Cancelled)
	var timeout *StoryTimeoutError
	require.ErrorAs(t, slow.Err, &timeout)
	assert.Equal(t, 100*time.Millisecond, timeout.Timeout)
	assert.Equal(t, []steps.Outcome{steps.Failed}, outcomes(slow.Scenarios[0].Steps))
	assert.Equal(t, []string{"cancelled slow.story"}, rec.matching("cancelled"))

	assert.False(t, res.Stories[1].Failed)
	counts := res.Counts()
	assert.Equal(t, 1, counts.StoriesCancelled)
}

func TestEmbedder_StoryEventsAreNotInterleaved(t *testing.T) {
	lib := build(t, func(r *steps.Registry) {
		r.Given("step $n", func(int) { time.Sleep(time.Millisecond) })
	})
	stories := loader.MapLoader{}
	var paths []string
	for i := 0; i < 6; i++ {
		path := fmt.Sprintf("s%d.story", i)
		stories[path] = "Given step 1\nGiven step 2\nGiven step 3"
		paths = append(paths, path)
	}

	_, rec, err := run(t, lib, &Config{Threads: 3}, stories, paths...)
	require.NoError(t, err)

	var open string
	for _, entry := range rec.log {
		switch {
		case strings.HasPrefix(entry, "beforeStory"):
			require.Empty(t, open, "story started inside %s", open)
			open = entry
		case strings.HasPrefix(entry, "afterStory"):
			require.NotEmpty(t, open)
			open = ""
		}
	}
	assert.Len(t, rec.matching("beforeStory"), 6)
}

func TestEmbedder_GivenStories(t *testing.T) {
	t.Run("share the steps context", func(t *testing.T) {
		lib := build(t, func(r *steps.Registry) {
			r.Given("the fruit $fruit is stored", func(sc *steps.StepsContext, fruit string) error {
				return sc.Put("fruit", fruit, model.ScopeStory)
			})
			r.Then("the stored fruit is $fruit", func(sc *steps.StepsContext, fruit string) error {
				stored, err := steps.Value[string](sc, "fruit")
				if err != nil {
					return err
				}
				if stored != fruit {
					return fmt.Errorf("stored %q, want %q", stored, fruit)
				}
				return nil
			})
		})

		res, rec, err := run(t, lib, nil, loader.MapLoader{
			"stories/precondition.story": "Given the fruit apple is stored",
			"stories/main.story":         "GivenStories: precondition.story\n\nScenario: uses it\nThen the stored fruit is apple",
		}, "stories/main.story")
		require.NoError(t, err)

		assert.Equal(t, []string{
			"beforeStory stories/main.story false",
			"beforeStory stories/precondition.story true",
		}, rec.matching("beforeStory"))
		require.Len(t, res.Stories[0].GivenStories, 1)
		assert.True(t, res.Stories[0].GivenStories[0].Given)
		assert.False(t, res.Failed())
	})

	t.Run("anchor parameters", func(t *testing.T) {
		c := &calls{}
		lib := build(t, func(r *steps.Registry) {
			r.Given("a user named $name", func(name string) { c.add(name) })
			r.Then("done", func() { c.add("done") })
		})

		_, _, err := run(t, lib, nil, loader.MapLoader{
			"user.story": "Given a user named <name>",
			"main.story": "GivenStories: user.story#{name:ann}\n\nScenario: s\nThen done",
		}, "main.story")
		require.NoError(t, err)
		assert.Equal(t, []string{"ann", "done"}, c.list())
	})

	t.Run("anchor selects an examples row", func(t *testing.T) {
		c := &calls{}
		lib := build(t, func(r *steps.Registry) {
			r.Given("a user named $name", func(name string) { c.add(name) })
			r.Then("done", func() { c.add("done") })
		})

		_, _, err := run(t, lib, nil, loader.MapLoader{
			"user.story": "Given a user named <name>",
			"main.story": "Scenario: s\nGivenStories: user.story#{1}\nThen done\n\nExamples:\n|name|\n|ann|\n|bob|",
		}, "main.story")
		require.NoError(t, err)
		assert.Equal(t, []string{"bob", "done", "done"}, c.list())
	})

	t.Run("cycle is fatal", func(t *testing.T) {
		lib := build(t, func(r *steps.Registry) {
			r.Given("a step", func() {})
		})

		_, _, err := run(t, lib, nil, loader.MapLoader{
			"a.story": "GivenStories: b.story\n\nGiven a step",
			"b.story": "GivenStories: a.story\n\nGiven a step",
		}, "a.story")
		var cycle *GivenStoryCycleError
		require.ErrorAs(t, err, &cycle)
		assert.Equal(t, []string{"a.story", "b.story", "a.story"}, cycle.Cycle)
	})

	t.Run("missing story is fatal", func(t *testing.T) {
		lib := build(t, func(r *steps.Registry) {})

		_, _, err := run(t, lib, nil, loader.MapLoader{
			"a.story": "GivenStories: missing.story\n\nGiven a step",
		}, "a.story")
		var load *loader.LoadError
		require.ErrorAs(t, err, &load)
	})
}

func TestEmbedder_MetaFilter(t *testing.T) {
	c := &calls{}
	lib := build(t, func(r *steps.Registry) {
		r.Given("step $name", func(name string) { c.add(name) })
	})

	res, rec, err := run(t, lib, &Config{MetaFilter: "-skip"}, loader.MapLoader{
		"main.story":    "Scenario: kept\nGiven step kept\n\nScenario: dropped\nMeta: @skip\nGiven step dropped",
		"skipped.story": "Meta: @skip\n\nScenario: s\nGiven step skipped",
	}, "main.story", "skipped.story")
	require.NoError(t, err)

	assert.Equal(t, []string{"kept"}, c.list())
	assert.True(t, res.Stories[0].Scenarios[1].NotAllowed)
	assert.True(t, res.Stories[1].NotAllowed)
	assert.Equal(t, []string{"scenarioNotAllowed dropped"}, rec.matching("scenarioNotAllowed"))
	assert.Equal(t, []string{"storyNotAllowed skipped.story"}, rec.matching("storyNotAllowed"))

	counts := res.Counts()
	assert.Equal(t, 1, counts.StoriesNotAllowed)
	assert.Equal(t, 1, counts.Scenarios)
}

func TestEmbedder_MetaByRowFiltersExamples(t *testing.T) {
	c := &calls{}
	lib := build(t, func(r *steps.Registry) {
		r.Given("step $name", func(name string) { c.add(name) })
	})

	_, _, err := run(t, lib, &Config{MetaFilter: "-skip"}, loader.MapLoader{
		"rows.story": "Scenario: rows\nGiven step <name>\n\nExamples:\n{metaByRow=true}\n|Meta|name|\n||one|\n|@skip|two|\n||three|",
	}, "rows.story")
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "three"}, c.list())
}

func TestEmbedder_HookOrder(t *testing.T) {
	c := &calls{}
	lib := build(t, func(r *steps.Registry) {
		r.BeforeStory(func() { c.add("before story") })
		r.BeforeScenario(func(meta model.Meta) { c.add("before scenario " + meta.Value("id")) })
		r.AfterScenario(model.OutcomeFailure, func() { c.add("after failed scenario") })
		r.AfterScenario(model.OutcomeAny, func(failure error) { c.add(fmt.Sprintf("after scenario %t", failure != nil)) })
		r.AfterStory(model.OutcomeAny, func() { c.add("after story") })
		r.Given("a step", func() { c.add("step") })
		r.Given("a failing step", func() error { return errors.New("boom") })
	})

	_, rec, err := run(t, lib, &Config{IgnoreFailureInView: true}, loader.MapLoader{
		"h.story": "Scenario: one\nMeta: @id 1\nGiven a step\n\nScenario: two\nMeta: @id 2\nGiven a failing step\nGiven a step",
	}, "h.story")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"before story",
		"before scenario 1",
		"step",
		"after scenario false",
		"before scenario 2",
		"after failed scenario",
		"after scenario true",
		"after story",
	}, c.list())
	assert.Equal(t, []string{"notPerformed Given a step"}, rec.matching("notPerformed"))
}

func TestEmbedder_LifecycleAfterStepsGatedByOutcome(t *testing.T) {
	c := &calls{}
	lib := build(t, func(r *steps.Registry) {
		r.Given("a failing step", func() error { return errors.New("boom") })
		r.Given("a step", func() {})
		r.Then("dump the state", func() { c.add("dump") })
		r.Then("celebrate", func() { c.add("celebrate") })
		r.Given("the scenario is prepared", func() { c.add("prepare") })
	})

	res, _, err := run(t, lib, &Config{IgnoreFailureInView: true}, loader.MapLoader{
		"l.story": `Lifecycle:
Before:
Given the scenario is prepared
After:
Outcome: FAILURE
Then dump the state
Outcome: SUCCESS
Then celebrate

Scenario: broken
Given a failing step

Scenario: fine
Given a step`,
	}, "l.story")
	require.NoError(t, err)

	assert.Equal(t, []string{"prepare", "dump", "prepare", "celebrate"}, c.list())
	broken := res.Stories[0].Scenarios[0]
	assert.Equal(t, []steps.Outcome{steps.Successful, steps.Failed, steps.Successful, steps.Skipped},
		outcomes(broken.Steps))
}

func TestEmbedder_Restarts(t *testing.T) {
	t.Run("restart until it passes", func(t *testing.T) {
		attempts := 0
		lib := build(t, func(r *steps.Registry) {
			r.Given("a flaky step", func() error {
				attempts++
				if attempts < 3 {
					return steps.RestartScenario(errors.New("not yet"))
				}
				return nil
			})
		})

		res, rec, err := run(t, lib, &Config{MaxRestarts: 2, RestartDelay: time.Millisecond}, loader.MapLoader{
			"r.story": "Scenario: flaky\nGiven a flaky step",
		}, "r.story")
		require.NoError(t, err)

		assert.Equal(t, 3, attempts)
		scenario := res.Stories[0].Scenarios[0]
		assert.Equal(t, 2, scenario.Restarts)
		assert.Equal(t, []steps.Outcome{steps.Successful}, outcomes(scenario.Steps))
		assert.Len(t, rec.matching("restarted Given a flaky step"), 2)
		assert.Empty(t, rec.matching("failed"))
	})

	t.Run("exhausted restarts fail the step", func(t *testing.T) {
		attempts := 0
		lib := build(t, func(r *steps.Registry) {
			r.Given("a broken step", func() error {
				attempts++
				return steps.RestartScenario(errors.New("never"))
			})
		})

		res, _, err := run(t, lib, &Config{MaxRestarts: 1, RestartDelay: time.Millisecond}, loader.MapLoader{
			"r.story": "Given a broken step",
		}, "r.story")
		require.Error(t, err)

		assert.Equal(t, 2, attempts)
		results := res.Stories[0].Scenarios[0].Steps
		require.Equal(t, []steps.Outcome{steps.Failed}, outcomes(results))
		var exhausted *RestartsExhaustedError
		require.ErrorAs(t, results[0].Cause, &exhausted)
		assert.Equal(t, 1, exhausted.Restarts)
	})

	t.Run("restart the story", func(t *testing.T) {
		attempts := 0
		c := &calls{}
		lib := build(t, func(r *steps.Registry) {
			r.Given("a first step", func() { c.add("first") })
			r.Given("a story level retry", func() error {
				attempts++
				if attempts < 2 {
					return steps.RestartStory(errors.New("again"))
				}
				return nil
			})
		})

		res, _, err := run(t, lib, &Config{MaxRestarts: 2, RestartDelay: time.Millisecond}, loader.MapLoader{
			"s.story": "Scenario: a\nGiven a first step\n\nScenario: b\nGiven a story level retry",
		}, "s.story")
		require.NoError(t, err)

		assert.Equal(t, []string{"first", "first"}, c.list())
		assert.Equal(t, 1, res.Stories[0].Restarts)
		assert.Len(t, res.Stories[0].Scenarios, 2)
	})
}

func TestEmbedder_FirstRestartWaitsForDelay(t *testing.T) {
	attempts := 0
	var times []time.Time
	lib := build(t, func(r *steps.Registry) {
		r.Given("a flaky step", func() error {
			attempts++
			times = append(times, time.Now())
			if attempts < 2 {
				return steps.RestartScenario(errors.New("not yet"))
			}
			return nil
		})
	})

	delay := 50 * time.Millisecond
	res, _, err := run(t, lib, &Config{MaxRestarts: 1, RestartDelay: delay}, loader.MapLoader{
		"r.story": "Given a flaky step",
	}, "r.story")
	require.NoError(t, err)

	require.Len(t, times, 2)
	assert.Equal(t, 1, res.Stories[0].Scenarios[0].Restarts)
	assert.GreaterOrEqual(t, times[1].Sub(times[0]), delay-5*time.Millisecond)
}

func TestEmbedder_DryRun(t *testing.T) {
	c := &calls{}
	lib := build(t, func(r *steps.Registry) {
		r.BeforeScenario(func() { c.add("hook") })
		r.Given("a value of $n", func(n int) { c.add("step") })
	})

	res, rec, err := run(t, lib, &Config{DryRun: true}, loader.MapLoader{
		"d.story": "Given a value of 1\nGiven a value of not-a-number",
	}, "d.story")
	require.NoError(t, err)

	assert.Empty(t, c.list())
	assert.Equal(t, []string{"dryRun"}, rec.matching("dryRun"))
	assert.Len(t, rec.matching("successful"), 2)
	assert.False(t, res.Failed())
}

func TestEmbedder_RunStories(t *testing.T) {
	c := &calls{}
	lib := build(t, func(r *steps.Registry) {
		r.Given("a step", func() { c.add("step") })
	})
	e, err := NewEmbedder(lib, nil)
	require.NoError(t, err)

	story := &model.Story{
		Path:      "inline.story",
		Scenarios: []*model.Scenario{{Title: "inline", Steps: []string{"Given a step"}}},
	}
	res, err := e.RunStories(context.Background(), []*model.Story{story})
	require.NoError(t, err)
	assert.Equal(t, []string{"step"}, c.list())
	assert.Equal(t, "inline", res.Stories[0].Title)
}

func TestEmbedder_Cancelled(t *testing.T) {
	lib := build(t, func(r *steps.Registry) {
		r.Given("a step", func() {})
	})
	e, err := NewEmbedder(lib, nil, WithLoader(loader.MapLoader{"a.story": "Given a step"}))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := e.RunStoriesAsPaths(ctx, []string{"a.story"})
	require.Error(t, err)
	story := res.Stories[0]
	assert.True(t, story.Failed)
	assert.False(t, story.Cancelled)
	assert.ErrorIs(t, story.Err, context.Canceled)
}
