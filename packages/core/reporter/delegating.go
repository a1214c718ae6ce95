package reporter

import (
	"time"

	"github.com/abdul-hamid-achik/storyspec/packages/core/model"
)

// Delegating forwards every event to each of its reporters in order.
type Delegating struct {
	reporters []StoryReporter
}

var _ StoryReporter = (*Delegating)(nil)

// NewDelegating creates a reporter forwarding to reporters.
func NewDelegating(reporters ...StoryReporter) *Delegating {
	return &Delegating{reporters: reporters}
}

// Reporters returns the reporters events are forwarded to.
func (d *Delegating) Reporters() []StoryReporter {
	return d.reporters
}

func (d *Delegating) StoryNotAllowed(story *model.Story, filter string) {
	for _, r := range d.reporters {
		r.StoryNotAllowed(story, filter)
	}
}

func (d *Delegating) StoryCancelled(story *model.Story, timeout time.Duration) {
	for _, r := range d.reporters {
		r.StoryCancelled(story, timeout)
	}
}

func (d *Delegating) BeforeStory(story *model.Story, givenStory bool) {
	for _, r := range d.reporters {
		r.BeforeStory(story, givenStory)
	}
}

func (d *Delegating) AfterStory(givenStory bool) {
	for _, r := range d.reporters {
		r.AfterStory(givenStory)
	}
}

func (d *Delegating) Narrative(narrative *model.Narrative) {
	for _, r := range d.reporters {
		r.Narrative(narrative)
	}
}

func (d *Delegating) Lifecycle(lifecycle *model.Lifecycle) {
	for _, r := range d.reporters {
		r.Lifecycle(lifecycle)
	}
}

func (d *Delegating) BeforeStorySteps(stage model.Stage) {
	for _, r := range d.reporters {
		r.BeforeStorySteps(stage)
	}
}

func (d *Delegating) AfterStorySteps(stage model.Stage) {
	for _, r := range d.reporters {
		r.AfterStorySteps(stage)
	}
}

func (d *Delegating) BeforeScenarioSteps(stage model.Stage) {
	for _, r := range d.reporters {
		r.BeforeScenarioSteps(stage)
	}
}

func (d *Delegating) AfterScenarioSteps(stage model.Stage) {
	for _, r := range d.reporters {
		r.AfterScenarioSteps(stage)
	}
}

func (d *Delegating) ScenarioNotAllowed(scenario *model.Scenario, filter string) {
	for _, r := range d.reporters {
		r.ScenarioNotAllowed(scenario, filter)
	}
}

func (d *Delegating) BeforeScenario(scenario *model.Scenario) {
	for _, r := range d.reporters {
		r.BeforeScenario(scenario)
	}
}

func (d *Delegating) AfterScenario() {
	for _, r := range d.reporters {
		r.AfterScenario()
	}
}

func (d *Delegating) GivenStories(givenStories *model.GivenStories) {
	for _, r := range d.reporters {
		r.GivenStories(givenStories)
	}
}

func (d *Delegating) BeforeExamples(steps []string, table *model.ExamplesTable) {
	for _, r := range d.reporters {
		r.BeforeExamples(steps, table)
	}
}

func (d *Delegating) Example(row map[string]string, index int) {
	for _, r := range d.reporters {
		r.Example(row, index)
	}
}

func (d *Delegating) AfterExamples() {
	for _, r := range d.reporters {
		r.AfterExamples()
	}
}

func (d *Delegating) BeforeStep(step string) {
	for _, r := range d.reporters {
		r.BeforeStep(step)
	}
}

func (d *Delegating) Successful(step string) {
	for _, r := range d.reporters {
		r.Successful(step)
	}
}

func (d *Delegating) Ignorable(step string) {
	for _, r := range d.reporters {
		r.Ignorable(step)
	}
}

func (d *Delegating) Comment(step string) {
	for _, r := range d.reporters {
		r.Comment(step)
	}
}

func (d *Delegating) Pending(step string) {
	for _, r := range d.reporters {
		r.Pending(step)
	}
}

func (d *Delegating) NotPerformed(step string) {
	for _, r := range d.reporters {
		r.NotPerformed(step)
	}
}

func (d *Delegating) Failed(step string, cause error) {
	for _, r := range d.reporters {
		r.Failed(step, cause)
	}
}

func (d *Delegating) BeforeComposedSteps() {
	for _, r := range d.reporters {
		r.BeforeComposedSteps()
	}
}

func (d *Delegating) AfterComposedSteps() {
	for _, r := range d.reporters {
		r.AfterComposedSteps()
	}
}

func (d *Delegating) Restarted(step string, cause error) {
	for _, r := range d.reporters {
		r.Restarted(step, cause)
	}
}

func (d *Delegating) RestartedStory(story *model.Story, cause error) {
	for _, r := range d.reporters {
		r.RestartedStory(story, cause)
	}
}

func (d *Delegating) DryRun() {
	for _, r := range d.reporters {
		r.DryRun()
	}
}

func (d *Delegating) PendingMethods(methods []string) {
	for _, r := range d.reporters {
		r.PendingMethods(methods)
	}
}
