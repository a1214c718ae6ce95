package reporter

import (
	"time"

	"github.com/abdul-hamid-achik/storyspec/packages/core/model"
)

// StoryReporter receives the events of a run in execution order.
// Step events carry the parametrised text when the step has parameters.
type StoryReporter interface {
	StoryNotAllowed(story *model.Story, filter string)
	StoryCancelled(story *model.Story, timeout time.Duration)
	BeforeStory(story *model.Story, givenStory bool)
	AfterStory(givenStory bool)

	Narrative(narrative *model.Narrative)
	Lifecycle(lifecycle *model.Lifecycle)

	BeforeStorySteps(stage model.Stage)
	AfterStorySteps(stage model.Stage)
	BeforeScenarioSteps(stage model.Stage)
	AfterScenarioSteps(stage model.Stage)

	ScenarioNotAllowed(scenario *model.Scenario, filter string)
	BeforeScenario(scenario *model.Scenario)
	AfterScenario()

	GivenStories(givenStories *model.GivenStories)

	BeforeExamples(steps []string, table *model.ExamplesTable)
	Example(row map[string]string, index int)
	AfterExamples()

	BeforeStep(step string)
	Successful(step string)
	Ignorable(step string)
	Comment(step string)
	Pending(step string)
	NotPerformed(step string)
	Failed(step string, cause error)

	BeforeComposedSteps()
	AfterComposedSteps()

	Restarted(step string, cause error)
	RestartedStory(story *model.Story, cause error)

	DryRun()
	PendingMethods(methods []string)
}

// NullReporter ignores every event. Embed it to implement a subset.
type NullReporter struct{}

var _ StoryReporter = NullReporter{}

func (NullReporter) StoryNotAllowed(*model.Story, string)          {}
func (NullReporter) StoryCancelled(*model.Story, time.Duration)    {}
func (NullReporter) BeforeStory(*model.Story, bool)                {}
func (NullReporter) AfterStory(bool)                               {}
func (NullReporter) Narrative(*model.Narrative)                    {}
func (NullReporter) Lifecycle(*model.Lifecycle)                    {}
func (NullReporter) BeforeStorySteps(model.Stage)                  {}
func (NullReporter) AfterStorySteps(model.Stage)                   {}
func (NullReporter) BeforeScenarioSteps(model.Stage)               {}
func (NullReporter) AfterScenarioSteps(model.Stage)                {}
func (NullReporter) ScenarioNotAllowed(*model.Scenario, string)    {}
func (NullReporter) BeforeScenario(*model.Scenario)                {}
func (NullReporter) AfterScenario()                                {}
func (NullReporter) GivenStories(*model.GivenStories)              {}
func (NullReporter) BeforeExamples([]string, *model.ExamplesTable) {}
func (NullReporter) Example(map[string]string, int)                {}
func (NullReporter) AfterExamples()                                {}
func (NullReporter) BeforeStep(string)                             {}
func (NullReporter) Successful(string)                             {}
func (NullReporter) Ignorable(string)                              {}
func (NullReporter) Comment(string)                                {}
func (NullReporter) Pending(string)                                {}
func (NullReporter) NotPerformed(string)                           {}
func (NullReporter) Failed(string, error)                          {}
func (NullReporter) BeforeComposedSteps()                          {}
func (NullReporter) AfterComposedSteps()                           {}
func (NullReporter) Restarted(string, error)                       {}
func (NullReporter) RestartedStory(*model.Story, error)            {}
func (NullReporter) DryRun()                                       {}
func (NullReporter) PendingMethods([]string)                       {}
