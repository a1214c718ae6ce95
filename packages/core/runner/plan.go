package runner

import (
	"fmt"
	"path/filepath"
	"slices"

	"github.com/abdul-hamid-achik/storyspec/packages/core/loader"
	"github.com/abdul-hamid-achik/storyspec/packages/core/model"
	"github.com/abdul-hamid-achik/storyspec/packages/core/parser"
	"github.com/abdul-hamid-achik/storyspec/packages/core/steps"
)

// storyPlan is a story with every step line resolved. Plans are built
// before anything runs so that configuration errors surface first.
type storyPlan struct {
	story     *model.Story
	path      string
	given     bool
	allowed   bool
	meta      model.Meta
	givens    []*storyPlan
	before    []steps.Step
	after     []steps.Step
	scenarios []*scenarioPlan
}

type scenarioPlan struct {
	scenario *model.Scenario
	meta     model.Meta
	allowed  bool
	givens   []*storyPlan
	unit     *unitPlan
	examples []*examplePlan
}

func (p *scenarioPlan) hasExamples() bool {
	return p.scenario.HasExamples()
}

type examplePlan struct {
	index int
	row   map[string]string
	meta  model.Meta
	unit  *unitPlan
}

// unitPlan is what runs once per scenario, or once per examples row.
type unitPlan struct {
	before []steps.Step
	steps  []steps.Step
	after  []steps.Step
}

// planner is created per run. Its library view records the run's pending
// steps.
type planner struct {
	library *steps.Library
	pending *steps.PendingMethods
	loader  loader.ResourceLoader
	parser  *parser.Parser
	filter  *model.MetaFilter
	stories map[string]*model.Story
}

func newPlanner(lib *steps.Library, l loader.ResourceLoader, p *parser.Parser, filter *model.MetaFilter) *planner {
	pending := steps.NewPendingMethods()
	return &planner{
		library: lib.WithPending(pending),
		pending: pending,
		loader:  l,
		parser:  p,
		filter:  filter,
		stories: make(map[string]*model.Story),
	}
}

// load reads and parses path, relative to from when it is not found as is.
// Parsed stories are cached by resolved path.
func (p *planner) load(path, from string) (*model.Story, error) {
	text, resolved, err := loader.LoadRelative(p.loader, path, from)
	if err != nil {
		return nil, err
	}
	resolved = filepath.ToSlash(filepath.Clean(resolved))
	if story, ok := p.stories[resolved]; ok {
		return story, nil
	}
	story, err := p.parser.Parse(text, resolved)
	if err != nil {
		return nil, err
	}
	p.stories[resolved] = story
	return story, nil
}

func (p *planner) plan(story *model.Story) (*storyPlan, error) {
	return p.planStory(story, nil, false, []string{filepath.ToSlash(filepath.Clean(story.Path))})
}

// allowsStory reports whether the story or any of its scenarios passes the
// meta filter.
func (p *planner) allowsStory(story *model.Story) bool {
	if p.filter.Allow(story.Meta) {
		return true
	}
	for _, sc := range story.Scenarios {
		if p.filter.Allow(sc.Meta.InheritFrom(story.Meta)) {
			return true
		}
	}
	return false
}

func (p *planner) planStory(story *model.Story, params map[string]string, given bool, chain []string) (*storyPlan, error) {
	sp := &storyPlan{
		story:   story,
		path:    story.Path,
		given:   given,
		meta:    story.Meta,
		allowed: given || p.allowsStory(story),
	}
	if !sp.allowed {
		return sp, nil
	}

	givens, err := p.planGivenStories(story.GivenStories, story.Path, nil, chain)
	if err != nil {
		return nil, err
	}
	sp.givens = givens

	before, err := p.library.Collect(story.Lifecycle.BeforeSteps(model.ScopeStory), params)
	if err != nil {
		return nil, err
	}
	after, err := p.library.CollectAfter(story.Lifecycle.AfterSteps(model.ScopeStory), params)
	if err != nil {
		return nil, err
	}
	// story hooks belong to the story being run, not to its given stories
	if !given {
		before = append(p.library.HookSteps(model.StageBefore, model.ScopeStory), before...)
		after = append(after, p.library.HookSteps(model.StageAfter, model.ScopeStory)...)
	}
	sp.before, sp.after = before, after

	for _, sc := range story.Scenarios {
		plan, err := p.planScenario(story, sc, params, given, chain)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: %w", sc.Title, err)
		}
		sp.scenarios = append(sp.scenarios, plan)
	}
	return sp, nil
}

func (p *planner) planScenario(story *model.Story, sc *model.Scenario, params map[string]string, given bool, chain []string) (*scenarioPlan, error) {
	meta := sc.Meta.InheritFrom(story.Meta)
	plan := &scenarioPlan{
		scenario: sc,
		meta:     meta,
		allowed:  given || p.filter.Allow(meta),
	}
	if !plan.allowed {
		return plan, nil
	}

	givens, err := p.planGivenStories(sc.GivenStories, story.Path, sc.Examples, chain)
	if err != nil {
		return nil, err
	}
	plan.givens = givens

	if !sc.HasExamples() {
		plan.unit, err = p.planUnit(story, sc, params)
		return plan, err
	}

	for i := 0; i < sc.Examples.RowCount(); i++ {
		rowMeta := sc.Examples.RowMeta(i).InheritFrom(meta)
		if !given && !p.filter.Allow(rowMeta) {
			continue
		}
		row := sc.Examples.Row(i)
		merged := make(map[string]string, len(params)+len(row))
		for k, v := range params {
			merged[k] = v
		}
		for k, v := range row {
			merged[k] = v
		}
		unit, err := p.planUnit(story, sc, merged)
		if err != nil {
			return nil, fmt.Errorf("examples row %d: %w", i, err)
		}
		plan.examples = append(plan.examples, &examplePlan{index: i, row: row, meta: rowMeta, unit: unit})
	}
	return plan, nil
}

func (p *planner) planUnit(story *model.Story, sc *model.Scenario, params map[string]string) (*unitPlan, error) {
	u := &unitPlan{before: p.library.HookSteps(model.StageBefore, model.ScopeScenario)}
	for _, scope := range []model.Scope{model.ScopeScenario, model.ScopeExample} {
		collected, err := p.library.Collect(story.Lifecycle.BeforeSteps(scope), params)
		if err != nil {
			return nil, err
		}
		u.before = append(u.before, collected...)
	}

	collected, err := p.library.Collect(sc.Steps, params)
	if err != nil {
		return nil, err
	}
	u.steps = collected

	for _, scope := range []model.Scope{model.ScopeExample, model.ScopeScenario} {
		collected, err := p.library.CollectAfter(story.Lifecycle.AfterSteps(scope), params)
		if err != nil {
			return nil, err
		}
		u.after = append(u.after, collected...)
	}
	u.after = append(u.after, p.library.HookSteps(model.StageAfter, model.ScopeScenario)...)
	return u, nil
}

// planGivenStories plans each referenced story. A row anchor selects a row
// of examples, the examples table of the referencing scenario.
func (p *planner) planGivenStories(gs *model.GivenStories, from string, examples *model.ExamplesTable, chain []string) ([]*storyPlan, error) {
	if gs.IsEmpty() {
		return nil, nil
	}
	var plans []*storyPlan
	for _, ref := range gs.Stories {
		story, err := p.load(ref.Path, from)
		if err != nil {
			return nil, err
		}
		path := filepath.ToSlash(filepath.Clean(story.Path))
		if slices.Contains(chain, path) {
			return nil, &GivenStoryCycleError{Cycle: append(slices.Clone(chain), path)}
		}
		params, err := anchorParameters(ref, examples)
		if err != nil {
			return nil, err
		}
		plan, err := p.planStory(story, params, true, append(slices.Clone(chain), path))
		if err != nil {
			return nil, fmt.Errorf("given story %s: %w", ref.Path, err)
		}
		plans = append(plans, plan)
	}
	return plans, nil
}

func anchorParameters(ref model.GivenStory, examples *model.ExamplesTable) (map[string]string, error) {
	switch {
	case ref.HasAnchorParameters():
		return ref.AnchorParameters(), nil
	case ref.HasAnchorExamples():
		row, err := ref.AnchorRow()
		if err != nil {
			return nil, err
		}
		if row >= examples.RowCount() {
			return nil, fmt.Errorf("given story %s: examples row %d does not exist (%d rows)", ref.Text, row, examples.RowCount())
		}
		return examples.Row(row), nil
	}
	return nil, nil
}
