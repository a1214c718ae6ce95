package reporter

import (
	"sync"
	"time"

	"github.com/abdul-hamid-achik/storyspec/packages/core/model"
)

// Concurrent buffers the events of one story so stories run in parallel
// reach the delegate whole and in order. Replay sends the buffer.
type Concurrent struct {
	mu       sync.Mutex
	delegate StoryReporter
	events   []func(StoryReporter)
}

var _ StoryReporter = (*Concurrent)(nil)

// NewConcurrent buffers events for delegate until Replay.
func NewConcurrent(delegate StoryReporter) *Concurrent {
	return &Concurrent{delegate: delegate}
}

func (c *Concurrent) record(event func(StoryReporter)) {
	c.mu.Lock()
	c.events = append(c.events, event)
	c.mu.Unlock()
}

// Replay sends the buffered events to the delegate and clears the buffer.
func (c *Concurrent) Replay() {
	c.mu.Lock()
	events := c.events
	c.events = nil
	c.mu.Unlock()

	for _, event := range events {
		event(c.delegate)
	}
}

// Len returns the number of buffered events.
func (c *Concurrent) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func (c *Concurrent) StoryNotAllowed(story *model.Story, filter string) {
	c.record(func(r StoryReporter) { r.StoryNotAllowed(story, filter) })
}

func (c *Concurrent) StoryCancelled(story *model.Story, timeout time.Duration) {
	c.record(func(r StoryReporter) { r.StoryCancelled(story, timeout) })
}

func (c *Concurrent) BeforeStory(story *model.Story, givenStory bool) {
	c.record(func(r StoryReporter) { r.BeforeStory(story, givenStory) })
}

func (c *Concurrent) AfterStory(givenStory bool) {
	c.record(func(r StoryReporter) { r.AfterStory(givenStory) })
}

func (c *Concurrent) Narrative(narrative *model.Narrative) {
	c.record(func(r StoryReporter) { r.Narrative(narrative) })
}

func (c *Concurrent) Lifecycle(lifecycle *model.Lifecycle) {
	c.record(func(r StoryReporter) { r.Lifecycle(lifecycle) })
}

func (c *Concurrent) BeforeStorySteps(stage model.Stage) {
	c.record(func(r StoryReporter) { r.BeforeStorySteps(stage) })
}

func (c *Concurrent) AfterStorySteps(stage model.Stage) {
	c.record(func(r StoryReporter) { r.AfterStorySteps(stage) })
}

func (c *Concurrent) BeforeScenarioSteps(stage model.Stage) {
	c.record(func(r StoryReporter) { r.BeforeScenarioSteps(stage) })
}

func (c *Concurrent) AfterScenarioSteps(stage model.Stage) {
	c.record(func(r StoryReporter) { r.AfterScenarioSteps(stage) })
}

func (c *Concurrent) ScenarioNotAllowed(scenario *model.Scenario, filter string) {
	c.record(func(r StoryReporter) { r.ScenarioNotAllowed(scenario, filter) })
}

func (c *Concurrent) BeforeScenario(scenario *model.Scenario) {
	c.record(func(r StoryReporter) { r.BeforeScenario(scenario) })
}

func (c *Concurrent) AfterScenario() {
	c.record(func(r StoryReporter) { r.AfterScenario() })
}

func (c *Concurrent) GivenStories(givenStories *model.GivenStories) {
	c.record(func(r StoryReporter) { r.GivenStories(givenStories) })
}

func (c *Concurrent) BeforeExamples(steps []string, table *model.ExamplesTable) {
	c.record(func(r StoryReporter) { r.BeforeExamples(steps, table) })
}

func (c *Concurrent) Example(row map[string]string, index int) {
	c.record(func(r StoryReporter) { r.Example(row, index) })
}

func (c *Concurrent) AfterExamples() {
	c.record(func(r StoryReporter) { r.AfterExamples() })
}

func (c *Concurrent) BeforeStep(step string) {
	c.record(func(r StoryReporter) { r.BeforeStep(step) })
}

func (c *Concurrent) Successful(step string) {
	c.record(func(r StoryReporter) { r.Successful(step) })
}

func (c *Concurrent) Ignorable(step string) {
	c.record(func(r StoryReporter) { r.Ignorable(step) })
}

func (c *Concurrent) Comment(step string) {
	c.record(func(r StoryReporter) { r.Comment(step) })
}

func (c *Concurrent) Pending(step string) {
	c.record(func(r StoryReporter) { r.Pending(step) })
}

func (c *Concurrent) NotPerformed(step string) {
	c.record(func(r StoryReporter) { r.NotPerformed(step) })
}

func (c *Concurrent) Failed(step string, cause error) {
	c.record(func(r StoryReporter) { r.Failed(step, cause) })
}

func (c *Concurrent) BeforeComposedSteps() {
	c.record(func(r StoryReporter) { r.BeforeComposedSteps() })
}

func (c *Concurrent) AfterComposedSteps() {
	c.record(func(r StoryReporter) { r.AfterComposedSteps() })
}

func (c *Concurrent) Restarted(step string, cause error) {
	c.record(func(r StoryReporter) { r.Restarted(step, cause) })
}

func (c *Concurrent) RestartedStory(story *model.Story, cause error) {
	c.record(func(r StoryReporter) { r.RestartedStory(story, cause) })
}

func (c *Concurrent) DryRun() {
	c.record(func(r StoryReporter) { r.DryRun() })
}

func (c *Concurrent) PendingMethods(methods []string) {
	c.record(func(r StoryReporter) { r.PendingMethods(methods) })
}
