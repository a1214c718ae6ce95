package runner

import (
	"time"

	"github.com/abdul-hamid-achik/storyspec/packages/core/steps"
)

// RunResult is the outcome of running a set of stories.
type RunResult struct {
	Stories        []*StoryResult
	PendingMethods []string
	Duration       time.Duration
}

// StoryResult is the outcome of one story, given stories included.
type StoryResult struct {
	Path         string
	Title        string
	Given        bool
	GivenStories []*StoryResult
	// BeforeSteps and AfterSteps hold story level hooks and lifecycle steps.
	BeforeSteps []steps.Result
	Scenarios   []*ScenarioResult
	AfterSteps  []steps.Result
	Failed      bool
	Cancelled   bool
	NotAllowed  bool
	Restarts    int
	Err         error
	Duration    time.Duration
}

// ScenarioResult is the outcome of one scenario.
type ScenarioResult struct {
	Title        string
	GivenStories []*StoryResult
	// Steps is empty when the scenario ran its examples.
	Steps      []steps.Result
	Examples   []*ExampleResult
	Failed     bool
	NotAllowed bool
	Skipped    bool
	Restarts   int
	Duration   time.Duration
}

// ExampleResult is one row of a scenario driven by an examples table.
type ExampleResult struct {
	Index    int
	Row      map[string]string
	Steps    []steps.Result
	Failed   bool
	Restarts int
}

// Counts summarizes a run.
type Counts struct {
	Stories           int
	StoriesFailed     int
	StoriesCancelled  int
	StoriesNotAllowed int
	Scenarios         int
	ScenariosFailed   int
	ScenariosSkipped  int
	Steps             map[steps.Outcome]int
}

// Failed reports whether any story failed.
func (r *RunResult) Failed() bool {
	for _, s := range r.Stories {
		if s.Failed {
			return true
		}
	}
	return false
}

// FailedPaths lists the paths of failed stories in run order.
func (r *RunResult) FailedPaths() []string {
	var paths []string
	for _, s := range r.Stories {
		if s.Failed {
			paths = append(paths, s.Path)
		}
	}
	return paths
}

// Counts tallies stories, scenarios and step outcomes.
func (r *RunResult) Counts() Counts {
	c := Counts{Steps: make(map[steps.Outcome]int)}
	for _, s := range r.Stories {
		c.Stories++
		switch {
		case s.NotAllowed:
			c.StoriesNotAllowed++
		case s.Cancelled:
			c.StoriesCancelled++
			c.StoriesFailed++
		case s.Failed:
			c.StoriesFailed++
		}
		for _, sc := range s.Scenarios {
			if sc.NotAllowed {
				continue
			}
			c.Scenarios++
			if sc.Failed {
				c.ScenariosFailed++
			}
			if sc.Skipped {
				c.ScenariosSkipped++
			}
		}
		for _, res := range s.AllSteps() {
			c.Steps[res.Outcome]++
		}
	}
	return c
}

// AllSteps returns every step result of the story in execution order,
// given stories included.
func (s *StoryResult) AllSteps() []steps.Result {
	var out []steps.Result
	for _, g := range s.GivenStories {
		out = append(out, g.AllSteps()...)
	}
	out = append(out, s.BeforeSteps...)
	for _, sc := range s.Scenarios {
		out = append(out, sc.AllSteps()...)
	}
	return append(out, s.AfterSteps...)
}

// Cause returns the first failure of the story, or its error.
func (s *StoryResult) Cause() error {
	if err := firstFailure(s.AllSteps()); err != nil {
		return err
	}
	return s.Err
}

// AllSteps returns the step results in run order, given stories and rows included.
func (sc *ScenarioResult) AllSteps() []steps.Result {
	var out []steps.Result
	for _, g := range sc.GivenStories {
		out = append(out, g.AllSteps()...)
	}
	out = append(out, sc.Steps...)
	for _, ex := range sc.Examples {
		out = append(out, ex.Steps...)
	}
	return out
}

func firstFailure(results []steps.Result) error {
	for _, r := range results {
		if r.IsFailure() {
			return r.Cause
		}
	}
	return nil
}

func hasFailure(results []steps.Result) bool {
	for _, r := range results {
		if r.IsFailure() {
			return true
		}
	}
	return false
}
