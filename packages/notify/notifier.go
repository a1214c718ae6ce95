// Package notify posts the outcome of a story run to chat webhooks.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/abdul-hamid-achik/storyspec/packages/core/runner"
)

// NotifyOn specifies when to send notifications
type NotifyOn string

const (
	// NotifyAlways sends notifications for every run
	NotifyAlways NotifyOn = "always"
	// NotifyFailure sends notifications only when stories fail
	NotifyFailure NotifyOn = "failure"
	// NotifySuccess sends notifications only when every story passes
	NotifySuccess NotifyOn = "success"
	// NotifyRecovery sends notifications on failure and on the first
	// passing run after one
	NotifyRecovery NotifyOn = "recovery"
)

// ParseNotifyOn accepts the NotifyOn names. Empty means failure.
func ParseNotifyOn(s string) (NotifyOn, error) {
	switch NotifyOn(s) {
	case "":
		return NotifyFailure, nil
	case NotifyAlways, NotifyFailure, NotifySuccess, NotifyRecovery:
		return NotifyOn(s), nil
	}
	return "", fmt.Errorf("unknown notify policy %q", s)
}

// RunSummary is the part of a run a notification shows.
type RunSummary struct {
	Suite            string        `json:"suite,omitempty"`
	TotalStories     int           `json:"total_stories"`
	PassedStories    int           `json:"passed_stories"`
	FailedStories    int           `json:"failed_stories"`
	ExcludedStories  int           `json:"excluded_stories"`
	TotalScenarios   int           `json:"total_scenarios"`
	FailedScenarios  int           `json:"failed_scenarios"`
	SkippedScenarios int           `json:"skipped_scenarios"`
	PendingSteps     int           `json:"pending_steps"`
	Duration         time.Duration `json:"duration"`
	FailedResults    []FailedStory `json:"failed_results,omitempty"`
	IsRecovery       bool          `json:"is_recovery,omitempty"`
}

// FailedStory is a failed story with its failing scenarios.
type FailedStory struct {
	Title     string   `json:"title"`
	Path      string   `json:"path"`
	Scenarios []string `json:"scenarios,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// MaxFailedStories caps the failures listed in one notification.
const MaxFailedStories = 10

// Summarize builds the notification summary of result.
func Summarize(result *runner.RunResult, suite string) *RunSummary {
	counts := result.Counts()
	summary := &RunSummary{
		Suite:            suite,
		TotalStories:     counts.Stories,
		FailedStories:    counts.StoriesFailed,
		ExcludedStories:  counts.StoriesNotAllowed,
		PassedStories:    counts.Stories - counts.StoriesFailed - counts.StoriesNotAllowed,
		TotalScenarios:   counts.Scenarios,
		FailedScenarios:  counts.ScenariosFailed,
		SkippedScenarios: counts.ScenariosSkipped,
		PendingSteps:     len(result.PendingMethods),
		Duration:         result.Duration,
	}

	for _, s := range result.Stories {
		if !s.Failed && !s.Cancelled {
			continue
		}
		if len(summary.FailedResults) == MaxFailedStories {
			break
		}
		failed := FailedStory{Title: s.Title, Path: s.Path}
		for _, sc := range s.Scenarios {
			if sc.Failed {
				failed.Scenarios = append(failed.Scenarios, sc.Title)
			}
		}
		if cause := s.Cause(); cause != nil {
			failed.Error = cause.Error()
		}
		summary.FailedResults = append(summary.FailedResults, failed)
	}
	return summary
}

// Notifier is the interface for notification services
type Notifier interface {
	// Notify sends a notification about a run
	Notify(ctx context.Context, summary *RunSummary) error

	// Name returns the name of the notifier
	Name() string
}

// Manager manages multiple notifiers
type Manager struct {
	mu        sync.Mutex
	notifiers []Notifier
	notifyOn  NotifyOn
	lastState bool // true if last run was successful
}

// NewManager creates a new notification manager
func NewManager(notifyOn NotifyOn, notifiers ...Notifier) *Manager {
	return &Manager{
		notifiers: notifiers,
		notifyOn:  notifyOn,
		lastState: true,
	}
}

// AddNotifier adds a notifier to the manager
func (m *Manager) AddNotifier(n Notifier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifiers = append(m.notifiers, n)
}

// Len returns the number of registered notifiers.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.notifiers)
}

// Notify sends notifications based on the configured policy. Every
// notifier is tried; their errors are joined.
func (m *Manager) Notify(ctx context.Context, summary *RunSummary) error {
	m.mu.Lock()
	shouldNotify := false
	currentSuccess := summary.FailedStories == 0

	switch m.notifyOn {
	case NotifyAlways:
		shouldNotify = true
	case NotifyFailure:
		shouldNotify = !currentSuccess
	case NotifySuccess:
		shouldNotify = currentSuccess
	case NotifyRecovery:
		if !m.lastState && currentSuccess {
			shouldNotify = true
			summary.IsRecovery = true
		}
		if !currentSuccess {
			shouldNotify = true
		}
	}
	m.lastState = currentSuccess
	notifiers := append([]Notifier(nil), m.notifiers...)
	m.mu.Unlock()

	if !shouldNotify {
		return nil
	}

	var errs []error
	for _, n := range notifiers {
		if err := n.Notify(ctx, summary); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// headline is the title line shared by the notifiers.
func headline(summary *RunSummary) string {
	var title string
	switch {
	case summary.FailedStories > 0:
		title = fmt.Sprintf("%d of %d stories failed", summary.FailedStories, summary.TotalStories)
	case summary.IsRecovery:
		title = "Stories recovered!"
	default:
		title = "All stories passed!"
	}
	if summary.Suite != "" {
		title = summary.Suite + ": " + title
	}
	return title
}
