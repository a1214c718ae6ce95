// Package metrics summarizes story runs and exports them as JSON or in the
// Prometheus text format.
package metrics

import (
	"sort"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/abdul-hamid-achik/storyspec/packages/core/runner"
	"github.com/abdul-hamid-achik/storyspec/packages/core/steps"
)

// Durations are recorded in microseconds, from 1us up to one hour.
const (
	minRecordable = 1
	maxRecordable = int64(time.Hour / time.Microsecond)
	sigFigures    = 3
)

// DefaultSlowest is how many step timings a Summary keeps.
const DefaultSlowest = 5

// Percentiles describes a distribution of durations.
type Percentiles struct {
	Count int64         `json:"count"`
	Min   time.Duration `json:"min"`
	Max   time.Duration `json:"max"`
	Mean  time.Duration `json:"mean"`
	P50   time.Duration `json:"p50"`
	P95   time.Duration `json:"p95"`
	P99   time.Duration `json:"p99"`
}

// StepTiming is one performed step and how long it took.
type StepTiming struct {
	Story    string        `json:"story"`
	Step     string        `json:"step"`
	Outcome  string        `json:"outcome"`
	Duration time.Duration `json:"duration"`
}

// Summary aggregates a RunResult.
type Summary struct {
	Stories           int              `json:"stories"`
	StoriesFailed     int              `json:"stories_failed"`
	StoriesCancelled  int              `json:"stories_cancelled"`
	StoriesNotAllowed int              `json:"stories_not_allowed"`
	Scenarios         int              `json:"scenarios"`
	ScenariosFailed   int              `json:"scenarios_failed"`
	ScenariosSkipped  int              `json:"scenarios_skipped"`
	Steps             map[string]int   `json:"steps"`
	PendingMethods    int              `json:"pending_methods"`
	Duration          time.Duration    `json:"duration"`
	StoryDurations    Percentiles      `json:"story_durations"`
	StepDurations     Percentiles      `json:"step_durations"`
	Slowest           []StepTiming     `json:"slowest_steps,omitempty"`
	ByStory           map[string]Story `json:"by_story"`
}

// Story is the per-story part of a Summary.
type Story struct {
	Failed        bool          `json:"failed"`
	Scenarios     int           `json:"scenarios"`
	Steps         int           `json:"steps"`
	Restarts      int           `json:"restarts"`
	Duration      time.Duration `json:"duration"`
	StepDurations Percentiles   `json:"step_durations"`
}

type histogram struct {
	h *hdrhistogram.Histogram
}

func newHistogram() *histogram {
	return &histogram{h: hdrhistogram.New(minRecordable, maxRecordable, sigFigures)}
}

func (h *histogram) record(d time.Duration) {
	us := d.Microseconds()
	if us < minRecordable {
		us = minRecordable
	}
	if us > maxRecordable {
		us = maxRecordable
	}
	_ = h.h.RecordValue(us)
}

func (h *histogram) percentiles() Percentiles {
	if h.h.TotalCount() == 0 {
		return Percentiles{}
	}
	us := func(v int64) time.Duration { return time.Duration(v) * time.Microsecond }
	return Percentiles{
		Count: h.h.TotalCount(),
		Min:   us(h.h.Min()),
		Max:   us(h.h.Max()),
		Mean:  us(int64(h.h.Mean())),
		P50:   us(h.h.ValueAtQuantile(50)),
		P95:   us(h.h.ValueAtQuantile(95)),
		P99:   us(h.h.ValueAtQuantile(99)),
	}
}

// performed reports whether the step ran a handler.
func performed(r steps.Result) bool {
	return r.Outcome == steps.Successful || r.Outcome == steps.Failed
}

// Collect builds a Summary of result keeping the n slowest steps.
func Collect(result *runner.RunResult, slowest int) *Summary {
	counts := result.Counts()
	summary := &Summary{
		Stories:           counts.Stories,
		StoriesFailed:     counts.StoriesFailed,
		StoriesCancelled:  counts.StoriesCancelled,
		StoriesNotAllowed: counts.StoriesNotAllowed,
		Scenarios:         counts.Scenarios,
		ScenariosFailed:   counts.ScenariosFailed,
		ScenariosSkipped:  counts.ScenariosSkipped,
		Steps:             make(map[string]int, len(counts.Steps)),
		PendingMethods:    len(result.PendingMethods),
		Duration:          result.Duration,
		ByStory:           make(map[string]Story, len(result.Stories)),
	}
	for outcome, n := range counts.Steps {
		summary.Steps[outcome.String()] = n
	}

	stories := newHistogram()
	all := newHistogram()
	var timings []StepTiming

	for _, s := range result.Stories {
		if s.NotAllowed {
			continue
		}
		stories.record(s.Duration)

		own := newHistogram()
		story := Story{
			Failed:    s.Failed,
			Scenarios: len(s.Scenarios),
			Restarts:  restarts(s),
			Duration:  s.Duration,
		}
		for _, r := range s.AllSteps() {
			if !performed(r) {
				continue
			}
			story.Steps++
			own.record(r.Duration)
			all.record(r.Duration)
			timings = append(timings, StepTiming{
				Story:    s.Path,
				Step:     steps.StripMarkers(r.Text()),
				Outcome:  r.Outcome.String(),
				Duration: r.Duration,
			})
		}
		story.StepDurations = own.percentiles()
		summary.ByStory[s.Path] = story
	}

	summary.StoryDurations = stories.percentiles()
	summary.StepDurations = all.percentiles()

	sort.SliceStable(timings, func(i, j int) bool {
		return timings[i].Duration > timings[j].Duration
	})
	if len(timings) > slowest {
		timings = timings[:slowest]
	}
	summary.Slowest = timings
	return summary
}

func restarts(s *runner.StoryResult) int {
	n := s.Restarts
	for _, sc := range s.Scenarios {
		n += sc.Restarts
		for _, ex := range sc.Examples {
			n += ex.Restarts
		}
	}
	return n
}
