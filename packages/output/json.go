package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/storyspec/packages/core/runner"
	"github.com/abdul-hamid-achik/storyspec/packages/core/steps"
)

// JSONOutput is the document JSONReporter writes.
type JSONOutput struct {
	Summary        JSONSummary `json:"summary"`
	Stories        []JSONStory `json:"stories"`
	PendingMethods []string    `json:"pendingMethods,omitempty"`
	Duration       float64     `json:"duration"`
	Time           string      `json:"time"`
}

// JSONSummary holds the totals of a run
type JSONSummary struct {
	Stories          int            `json:"stories"`
	Passed           int            `json:"passed"`
	Failed           int            `json:"failed"`
	Cancelled        int            `json:"cancelled"`
	Excluded         int            `json:"excluded"`
	Scenarios        int            `json:"scenarios"`
	ScenariosFailed  int            `json:"scenariosFailed"`
	ScenariosSkipped int            `json:"scenariosSkipped"`
	Steps            map[string]int `json:"steps"`
}

type JSONStory struct {
	Path         string         `json:"path"`
	Title        string         `json:"title,omitempty"`
	Failed       bool           `json:"failed"`
	Cancelled    bool           `json:"cancelled,omitempty"`
	Excluded     bool           `json:"excluded,omitempty"`
	Restarts     int            `json:"restarts,omitempty"`
	Error        string         `json:"error,omitempty"`
	Duration     float64        `json:"duration"`
	GivenStories []JSONStory    `json:"givenStories,omitempty"`
	BeforeSteps  []JSONStep     `json:"beforeSteps,omitempty"`
	Scenarios    []JSONScenario `json:"scenarios,omitempty"`
	AfterSteps   []JSONStep     `json:"afterSteps,omitempty"`
}

type JSONScenario struct {
	Title        string        `json:"title"`
	Failed       bool          `json:"failed"`
	Skipped      bool          `json:"skipped,omitempty"`
	Excluded     bool          `json:"excluded,omitempty"`
	Restarts     int           `json:"restarts,omitempty"`
	Duration     float64       `json:"duration"`
	GivenStories []JSONStory   `json:"givenStories,omitempty"`
	Steps        []JSONStep    `json:"steps,omitempty"`
	Examples     []JSONExample `json:"examples,omitempty"`
}

type JSONExample struct {
	Index    int               `json:"index"`
	Row      map[string]string `json:"row"`
	Failed   bool              `json:"failed"`
	Restarts int               `json:"restarts,omitempty"`
	Steps    []JSONStep        `json:"steps"`
}

type JSONStep struct {
	Step     string  `json:"step"`
	Outcome  string  `json:"outcome"`
	Duration float64 `json:"duration"`
	Error    string  `json:"error,omitempty"`
}

// JSONReporter collects run results and writes them as one JSON document
// on Flush.
type JSONReporter struct {
	writer  io.Writer
	results []*runner.RunResult
}

type JSONOption func(*JSONReporter)

// NewJSONReporter creates a JSON reporter writing to stdout
func NewJSONReporter(opts ...JSONOption) *JSONReporter {
	r := &JSONReporter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(r *JSONReporter) {
		r.writer = w
	}
}

func (r *JSONReporter) FormatResult(result *runner.RunResult) {
	r.results = append(r.results, result)
}

func (r *JSONReporter) FormatError(err error) {}

func (r *JSONReporter) FormatHeader(version string) {}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

func jsonSteps(results []steps.Result) []JSONStep {
	if len(results) == 0 {
		return nil
	}
	out := make([]JSONStep, 0, len(results))
	for _, res := range results {
		s := JSONStep{
			Step:     steps.StripMarkers(res.Text()),
			Outcome:  res.Outcome.String(),
			Duration: millis(res.Duration),
		}
		if res.Cause != nil {
			s.Error = res.Cause.Error()
		}
		out = append(out, s)
	}
	return out
}

func jsonStories(stories []*runner.StoryResult) []JSONStory {
	if len(stories) == 0 {
		return nil
	}
	out := make([]JSONStory, 0, len(stories))
	for _, s := range stories {
		out = append(out, jsonStory(s))
	}
	return out
}

func jsonStory(s *runner.StoryResult) JSONStory {
	story := JSONStory{
		Path:         s.Path,
		Title:        s.Title,
		Failed:       s.Failed,
		Cancelled:    s.Cancelled,
		Excluded:     s.NotAllowed,
		Restarts:     s.Restarts,
		Duration:     millis(s.Duration),
		GivenStories: jsonStories(s.GivenStories),
		BeforeSteps:  jsonSteps(s.BeforeSteps),
		AfterSteps:   jsonSteps(s.AfterSteps),
	}
	if s.Err != nil {
		story.Error = s.Err.Error()
	}
	for _, sc := range s.Scenarios {
		scenario := JSONScenario{
			Title:        sc.Title,
			Failed:       sc.Failed,
			Skipped:      sc.Skipped,
			Excluded:     sc.NotAllowed,
			Restarts:     sc.Restarts,
			Duration:     millis(sc.Duration),
			GivenStories: jsonStories(sc.GivenStories),
			Steps:        jsonSteps(sc.Steps),
		}
		for _, ex := range sc.Examples {
			scenario.Examples = append(scenario.Examples, JSONExample{
				Index:    ex.Index,
				Row:      ex.Row,
				Failed:   ex.Failed,
				Restarts: ex.Restarts,
				Steps:    jsonSteps(ex.Steps),
			})
		}
		story.Scenarios = append(story.Scenarios, scenario)
	}
	return story
}

// Flush writes every collected result as a single document.
func (r *JSONReporter) Flush() error {
	output := JSONOutput{
		Summary: JSONSummary{Steps: make(map[string]int)},
		Stories: make([]JSONStory, 0),
		Time:    time.Now().Format(time.RFC3339),
	}

	for _, result := range r.results {
		counts := result.Counts()
		output.Summary.Stories += counts.Stories
		output.Summary.Failed += counts.StoriesFailed
		output.Summary.Cancelled += counts.StoriesCancelled
		output.Summary.Excluded += counts.StoriesNotAllowed
		output.Summary.Passed += counts.Stories - counts.StoriesFailed - counts.StoriesNotAllowed
		output.Summary.Scenarios += counts.Scenarios
		output.Summary.ScenariosFailed += counts.ScenariosFailed
		output.Summary.ScenariosSkipped += counts.ScenariosSkipped
		for outcome, n := range counts.Steps {
			output.Summary.Steps[outcome.String()] += n
		}

		output.Stories = append(output.Stories, jsonStories(result.Stories)...)
		output.PendingMethods = append(output.PendingMethods, result.PendingMethods...)
		output.Duration += millis(result.Duration)
	}

	encoder := json.NewEncoder(r.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}
