package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/abdul-hamid-achik/storyspec/packages/core/runner"
)

const namespace = "storyspec"

// PrometheusExporter keeps run metrics in its own registry so they can be
// served over HTTP or written as a node exporter text file.
type PrometheusExporter struct {
	registry      *prometheus.Registry
	stories       *prometheus.CounterVec
	scenarios     *prometheus.CounterVec
	steps         *prometheus.CounterVec
	storyDuration *prometheus.HistogramVec
	stepDuration  prometheus.Histogram
	pending       prometheus.Gauge
	runs          prometheus.Counter
}

// NewPrometheusExporter creates an exporter with its own registry.
func NewPrometheusExporter() *PrometheusExporter {
	p := &PrometheusExporter{
		registry: prometheus.NewRegistry(),
		stories: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stories_total",
			Help:      "Stories run, by status.",
		}, []string{"status"}),
		scenarios: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scenarios_total",
			Help:      "Scenarios run, by status.",
		}, []string{"status"}),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_total",
			Help:      "Step results, by outcome.",
		}, []string{"outcome"}),
		storyDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "story_duration_seconds",
			Help:      "Story run time.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"status"}),
		stepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Run time of performed steps.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_methods",
			Help:      "Pending steps without a candidate in the last run.",
		}),
		runs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Runs recorded.",
		}),
	}
	p.registry.MustRegister(p.stories, p.scenarios, p.steps, p.storyDuration, p.stepDuration, p.pending, p.runs)
	return p
}

func storyStatus(s *runner.StoryResult) string {
	switch {
	case s.NotAllowed:
		return "not_allowed"
	case s.Cancelled:
		return "cancelled"
	case s.Failed:
		return "failed"
	}
	return "passed"
}

func scenarioStatus(sc *runner.ScenarioResult) string {
	switch {
	case sc.NotAllowed:
		return "not_allowed"
	case sc.Skipped:
		return "skipped"
	case sc.Failed:
		return "failed"
	}
	return "passed"
}

// Record adds a run to the metrics.
func (p *PrometheusExporter) Record(result *runner.RunResult) {
	p.runs.Inc()
	p.pending.Set(float64(len(result.PendingMethods)))

	for _, s := range result.Stories {
		status := storyStatus(s)
		p.stories.WithLabelValues(status).Inc()
		if !s.NotAllowed {
			p.storyDuration.WithLabelValues(status).Observe(s.Duration.Seconds())
		}
		for _, sc := range s.Scenarios {
			p.scenarios.WithLabelValues(scenarioStatus(sc)).Inc()
		}
		for _, r := range s.AllSteps() {
			p.steps.WithLabelValues(r.Outcome.String()).Inc()
			if performed(r) {
				p.stepDuration.Observe(r.Duration.Seconds())
			}
		}
	}
}

// Registry returns the registry the metrics are collected in.
func (p *PrometheusExporter) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the registry for scraping.
func (p *PrometheusExporter) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// WriteFile writes the metrics in the text exposition format.
func (p *PrometheusExporter) WriteFile(path string) error {
	if err := prometheus.WriteToTextfile(path, p.registry); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}
