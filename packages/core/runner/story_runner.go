package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abdul-hamid-achik/storyspec/packages/core/model"
	"github.com/abdul-hamid-achik/storyspec/packages/core/reporter"
	"github.com/abdul-hamid-achik/storyspec/packages/core/steps"
	"github.com/abdul-hamid-achik/storyspec/packages/logging"
	"golang.org/x/time/rate"
)

// restartRequest unwinds a story or scenario that asked to run again.
type restartRequest struct {
	story bool
	step  string
	cause error
}

func (r *restartRequest) Error() string {
	if r.story {
		return fmt.Sprintf("story restart requested by %q", r.step)
	}
	return fmt.Sprintf("scenario restart requested by %q", r.step)
}

// frame is the state of one story run, given stories have their own.
type frame struct {
	plan     *storyPlan
	restarts int
	// inherited is a failure of given stories or before-story steps; the
	// scenarios start from it.
	inherited      error
	failure        error
	scenarioFailed bool
}

// unitState tracks the failure seen so far in a sequence of steps.
type unitState struct {
	frame       *frame
	failure     error
	halted      bool
	restartable bool
	restarts    int
}

// storyRunner runs one top-level story and its given stories. It is not
// safe for concurrent use; the embedder creates one per story.
type storyRunner struct {
	config   *Config
	reporter reporter.StoryReporter
	logger   *logging.Logger
	filter   string
	timeout  time.Duration
	context  *steps.StepsContext
	limiter  *rate.Limiter
}

func newStoryRunner(cfg *Config, rep reporter.StoryReporter, logger *logging.Logger, filter string) *storyRunner {
	limit := rate.Inf
	if cfg.RestartDelay > 0 {
		limit = rate.Every(cfg.RestartDelay)
	}
	limiter := rate.NewLimiter(limit, 1)
	// the first restart waits a full delay too
	limiter.Allow()
	return &storyRunner{
		config:   cfg,
		reporter: rep,
		logger:   logger,
		filter:   filter,
		timeout:  cfg.StoryTimeout,
		context:  steps.NewStepsContext(),
		limiter:  limiter,
	}
}

// run runs a story, restarting it when a step asks for it.
func (r *storyRunner) run(ctx context.Context, plan *storyPlan) (*StoryResult, error) {
	res := &StoryResult{Path: plan.path, Title: plan.story.Title(), Given: plan.given}
	if !plan.allowed {
		res.NotAllowed = true
		r.reporter.StoryNotAllowed(plan.story, r.filter)
		return res, nil
	}

	start := time.Now()
	for {
		err := r.runOnce(ctx, plan, res)
		var restart *restartRequest
		if errors.As(err, &restart) && restart.story {
			res.Restarts++
			r.logger.Info("restarting story", "story", plan.path, "restart", res.Restarts, "step", restart.step)
			r.reporter.RestartedStory(plan.story, restart.cause)
			*res = StoryResult{Path: res.Path, Title: res.Title, Given: res.Given, Restarts: res.Restarts}
			if err := r.wait(ctx); err != nil {
				res.Duration = time.Since(start)
				return res, err
			}
			continue
		}
		res.Duration = time.Since(start)
		res.Failed = hasFailure(res.AllSteps())
		return res, err
	}
}

func (r *storyRunner) runOnce(ctx context.Context, plan *storyPlan, res *StoryResult) (err error) {
	f := &frame{plan: plan, restarts: res.Restarts}
	if !plan.given {
		r.context.ResetStory()
	}

	r.reporter.BeforeStory(plan.story, plan.given)
	defer func() {
		if !plan.given && errors.Is(err, context.DeadlineExceeded) {
			r.reporter.StoryCancelled(plan.story, r.timeout)
		}
		r.reporter.AfterStory(plan.given)
	}()
	if r.config.DryRun && !plan.given {
		r.reporter.DryRun()
	}
	if !plan.story.Narrative.IsEmpty() {
		r.reporter.Narrative(plan.story.Narrative)
	}
	if !plan.story.Lifecycle.IsEmpty() {
		r.reporter.Lifecycle(plan.story.Lifecycle)
	}

	givens, err := r.runGivenStories(ctx, plan.story.GivenStories, plan.givens)
	res.GivenStories = givens
	f.failure = firstGivenFailure(givens)
	if err != nil {
		return err
	}

	exec := r.execution(plan.meta)
	state := &unitState{frame: f, failure: f.failure, halted: f.failure != nil}
	r.reporter.BeforeStorySteps(model.StageBefore)
	res.BeforeSteps, err = r.runSteps(ctx, plan.before, exec, state)
	r.reporter.AfterStorySteps(model.StageBefore)
	f.inherited, f.failure = state.failure, state.failure
	if err != nil {
		return err
	}

	for _, sp := range plan.scenarios {
		var sr *ScenarioResult
		if f.scenarioFailed && r.config.SkipScenariosAfterFailure && !r.config.IgnoreFailureInStory {
			sr, err = r.skipScenario(ctx, f, sp)
		} else {
			sr, err = r.runScenario(ctx, f, sp)
		}
		res.Scenarios = append(res.Scenarios, sr)
		if sr.Failed {
			f.scenarioFailed = true
			if f.failure == nil {
				f.failure = firstFailure(sr.AllSteps())
			}
		}
		if err != nil {
			return err
		}
	}

	state = &unitState{frame: f, failure: f.failure}
	r.reporter.BeforeStorySteps(model.StageAfter)
	res.AfterSteps, err = r.runSteps(ctx, plan.after, exec, state)
	r.reporter.AfterStorySteps(model.StageAfter)
	return err
}

func (r *storyRunner) runGivenStories(ctx context.Context, refs *model.GivenStories, plans []*storyPlan) ([]*StoryResult, error) {
	if len(plans) == 0 {
		return nil, nil
	}
	r.reporter.GivenStories(refs)
	var results []*StoryResult
	for _, plan := range plans {
		res, err := r.run(ctx, plan)
		results = append(results, res)
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

func firstGivenFailure(results []*StoryResult) error {
	for _, g := range results {
		if g.Failed {
			return g.Cause()
		}
	}
	return nil
}

func (r *storyRunner) runScenario(ctx context.Context, f *frame, sp *scenarioPlan) (res *ScenarioResult, err error) {
	res = &ScenarioResult{Title: sp.scenario.Title}
	if !sp.allowed {
		res.NotAllowed = true
		r.reporter.ScenarioNotAllowed(sp.scenario, r.filter)
		return res, nil
	}

	start := time.Now()
	r.reporter.BeforeScenario(sp.scenario)
	defer func() {
		res.Failed = hasFailure(res.AllSteps())
		res.Duration = time.Since(start)
		r.reporter.AfterScenario()
	}()
	r.context.ResetScenario()

	givens, err := r.runGivenStories(ctx, sp.scenario.GivenStories, sp.givens)
	res.GivenStories = givens
	if err != nil {
		return res, err
	}
	failure := f.inherited
	if failure == nil {
		failure = firstGivenFailure(givens)
	}

	if !sp.hasExamples() {
		results, restarts, err := r.runUnit(ctx, f, sp.unit, r.execution(sp.meta), failure, r.context.ResetScenario)
		res.Steps, res.Restarts = results, restarts
		return res, err
	}

	// Every row runs the scenario hooks again, so it starts from empty
	// scenario and example scopes.
	r.reporter.BeforeExamples(sp.scenario.Steps, sp.scenario.Examples)
	defer r.reporter.AfterExamples()
	for _, ep := range sp.examples {
		r.reporter.Example(ep.row, ep.index)
		r.context.ResetScenario()
		results, restarts, err := r.runUnit(ctx, f, ep.unit, r.execution(ep.meta), failure, r.context.ResetScenario)
		res.Examples = append(res.Examples, &ExampleResult{
			Index:    ep.index,
			Row:      ep.row,
			Steps:    results,
			Failed:   hasFailure(results),
			Restarts: restarts,
		})
		res.Restarts += restarts
		if err != nil {
			return res, err
		}
	}
	return res, nil
}

// skipScenario reports the steps of a scenario as not performed. Hooks and
// lifecycle steps do not run.
func (r *storyRunner) skipScenario(ctx context.Context, f *frame, sp *scenarioPlan) (*ScenarioResult, error) {
	res := &ScenarioResult{Title: sp.scenario.Title, Skipped: true}
	if !sp.allowed {
		res.NotAllowed = true
		r.reporter.ScenarioNotAllowed(sp.scenario, r.filter)
		return res, nil
	}
	r.reporter.BeforeScenario(sp.scenario)
	defer r.reporter.AfterScenario()

	unit := sp.unit
	if sp.hasExamples() {
		if len(sp.examples) == 0 {
			return res, nil
		}
		unit = sp.examples[0].unit
	}
	state := &unitState{frame: f, failure: f.failure, halted: true}
	results, err := r.runSteps(ctx, unit.steps, r.execution(sp.meta), state)
	res.Steps = results
	return res, err
}

// runUnit runs a scenario, or one examples row, restarting it from its
// first step when a step asks for it.
func (r *storyRunner) runUnit(ctx context.Context, f *frame, u *unitPlan, exec *steps.Execution, failure error, reset func()) ([]steps.Result, int, error) {
	restarts := 0
	for {
		state := &unitState{
			frame:       f,
			failure:     failure,
			halted:      failure != nil,
			restartable: true,
			restarts:    restarts,
		}
		results, err := r.runUnitOnce(ctx, u, exec, state)
		var restart *restartRequest
		if errors.As(err, &restart) && !restart.story {
			restarts++
			r.logger.Info("restarting scenario", "story", f.plan.path, "restart", restarts, "step", restart.step)
			reset()
			if err := r.wait(ctx); err != nil {
				return results, restarts, err
			}
			continue
		}
		return results, restarts, err
	}
}

func (r *storyRunner) runUnitOnce(ctx context.Context, u *unitPlan, exec *steps.Execution, state *unitState) ([]steps.Result, error) {
	r.reporter.BeforeScenarioSteps(model.StageBefore)
	results, err := r.runSteps(ctx, u.before, exec, state)
	r.reporter.AfterScenarioSteps(model.StageBefore)
	if err != nil {
		return results, err
	}

	performed, err := r.runSteps(ctx, u.steps, exec, state)
	results = append(results, performed...)
	if err != nil {
		return results, err
	}

	r.reporter.BeforeScenarioSteps(model.StageAfter)
	after, err := r.runSteps(ctx, u.after, exec, state)
	r.reporter.AfterScenarioSteps(model.StageAfter)
	return append(results, after...), err
}

// runSteps runs steps in order. Cancellation is checked between steps.
func (r *storyRunner) runSteps(ctx context.Context, list []steps.Step, exec *steps.Execution, state *unitState) ([]steps.Result, error) {
	var results []steps.Result
	for _, s := range list {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		performed, err := r.runStep(ctx, s, exec, state)
		results = append(results, performed...)
		if err != nil {
			return results, err
		}
	}
	return results, ctx.Err()
}

func (r *storyRunner) runStep(ctx context.Context, s steps.Step, exec *steps.Execution, state *unitState) ([]steps.Result, error) {
	if announced(s, state.failure) {
		r.reporter.BeforeStep(s.Text())
	}

	var res steps.Result
	if state.halted && !r.config.IgnoreFailureInStory {
		res = s.DoNotPerform(ctx, exec, state.failure)
	} else {
		res = s.Perform(ctx, exec, state.failure)
	}

	if res.IsFailure() {
		if restart := r.restart(&res, state); restart != nil {
			r.reporter.Restarted(res.Text(), restart.cause)
			return nil, restart
		}
	}
	res.DescribeTo(r.reporter)
	switch res.Outcome {
	case steps.Failed:
		if state.failure == nil {
			state.failure = res.Cause
		}
		state.halted = true
	case steps.Pending:
		state.halted = true
	}

	c, ok := s.(steps.Composed)
	if !ok {
		return []steps.Result{res}, nil
	}
	r.reporter.BeforeComposedSteps()
	children, err := r.runSteps(ctx, c.Composed(), exec, state)
	r.reporter.AfterComposedSteps()
	if c.HasHandler() {
		return append([]steps.Result{res}, children...), err
	}
	// a composite without a handler has no outcome of its own; its first
	// child records it
	if len(children) > 0 {
		children[0].ExpandedFrom = append([]string{c.Text()}, children[0].ExpandedFrom...)
	}
	return children, err
}

// announced reports whether the step gets a BeforeStep event: hooks, steps
// gated out by the outcome and composites without a handler do not.
func announced(s steps.Step, failure error) bool {
	switch step := s.(type) {
	case steps.Hooked:
		return false
	case steps.Composed:
		return step.HasHandler()
	case steps.Conditional:
		return step.Allows(failure)
	}
	return true
}

// restart turns a failed result into a restart request while restarts are
// left. Once they are used up the result becomes a terminal failure.
func (r *storyRunner) restart(res *steps.Result, state *unitState) *restartRequest {
	var story *steps.RestartStoryError
	var scenario *steps.RestartScenarioError
	switch {
	case errors.As(res.Cause, &story) && state.frame != nil:
		if state.frame.restarts < r.config.MaxRestarts {
			return &restartRequest{story: true, step: res.Text(), cause: story.Cause}
		}
		res.Cause = steps.NewStepFailure(res.Step, &RestartsExhaustedError{Restarts: state.frame.restarts, Cause: story})
	case errors.As(res.Cause, &scenario) && state.restartable:
		if state.restarts < r.config.MaxRestarts {
			return &restartRequest{step: res.Text(), cause: scenario.Cause}
		}
		res.Cause = steps.NewStepFailure(res.Step, &RestartsExhaustedError{Restarts: state.restarts, Cause: scenario})
	}
	return nil
}

// wait paces restarts. A restart that cannot happen before the story
// deadline ends the story as timed out.
func (r *storyRunner) wait(ctx context.Context) error {
	if err := r.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
	}
	return nil
}

func (r *storyRunner) execution(meta model.Meta) *steps.Execution {
	return &steps.Execution{Steps: r.context, Meta: meta, DryRun: r.config.DryRun}
}
