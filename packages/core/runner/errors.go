package runner

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrStoriesFailed is wrapped by RunFailedError.
var ErrStoriesFailed = errors.New("stories failed")

// RunFailedError reports a run in which stories failed.
type RunFailedError struct {
	Failed []string
	Total  int
}

func (e *RunFailedError) Error() string {
	return fmt.Sprintf("%d of %d stories failed: %s", len(e.Failed), e.Total, strings.Join(e.Failed, ", "))
}

func (e *RunFailedError) Unwrap() error {
	return ErrStoriesFailed
}

// StoryTimeoutError marks a story cancelled by its timeout.
type StoryTimeoutError struct {
	Path    string
	Timeout time.Duration
}

func (e *StoryTimeoutError) Error() string {
	return fmt.Sprintf("story %s timed out after %s", e.Path, e.Timeout)
}

// GivenStoryCycleError reports a story that is, directly or not, its own
// given story.
type GivenStoryCycleError struct {
	Cycle []string
}

func (e *GivenStoryCycleError) Error() string {
	return fmt.Sprintf("given story cycle: %s", strings.Join(e.Cycle, " -> "))
}

// RestartsExhaustedError is the terminal failure of a step that kept asking
// for a restart.
type RestartsExhaustedError struct {
	Restarts int
	Cause    error
}

func (e *RestartsExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d restarts: %v", e.Restarts, e.Cause)
}

func (e *RestartsExhaustedError) Unwrap() error {
	return e.Cause
}

// PlanError wraps a failure to plan a story before anything runs.
type PlanError struct {
	Path string
	Err  error
}

func (e *PlanError) Error() string {
	return fmt.Sprintf("planning %s: %v", e.Path, e.Err)
}

func (e *PlanError) Unwrap() error {
	return e.Err
}
