package steps

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrPending is returned by a handler that is not implemented yet.
	ErrPending = errors.New("step is pending")

	ErrNoHandler = errors.New("step has neither handler nor composite steps")
)

// MatchAmbiguityError reports several equally ranked candidates for a step.
type MatchAmbiguityError struct {
	Step       string
	Candidates []string
}

func (e *MatchAmbiguityError) Error() string {
	return fmt.Sprintf("ambiguous step %q matches %s", e.Step, strings.Join(e.Candidates, ", "))
}

// CompositeCycleError reports a composite that expands into itself.
type CompositeCycleError struct {
	Cycle []string
}

func (e *CompositeCycleError) Error() string {
	return fmt.Sprintf("composite step cycle: %s", strings.Join(e.Cycle, " -> "))
}

// DuplicateCandidateError reports two registrations of the same step.
type DuplicateCandidateError struct {
	Candidate string
}

func (e *DuplicateCandidateError) Error() string {
	return fmt.Sprintf("duplicate step candidate %q", e.Candidate)
}

// StepFailure wraps the error of a failed step. ID identifies the failure
// across reports.
type StepFailure struct {
	ID   uuid.UUID
	Step string
	Err  error
}

// NewStepFailure wraps err as the failure of step.
func NewStepFailure(step string, err error) *StepFailure {
	return &StepFailure{ID: uuid.New(), Step: step, Err: err}
}

func (e *StepFailure) Error() string {
	return fmt.Sprintf("step %q failed: %v", e.Step, e.Err)
}

func (e *StepFailure) Unwrap() error {
	return e.Err
}

// HookFailure wraps the error of a failed before or after hook.
type HookFailure struct {
	ID   uuid.UUID
	Hook string
	Err  error
}

func (e *HookFailure) Error() string {
	return fmt.Sprintf("hook %s failed: %v", e.Hook, e.Err)
}

func (e *HookFailure) Unwrap() error {
	return e.Err
}

// RestartScenarioError asks the runner to run the current scenario again.
type RestartScenarioError struct {
	Cause error
}

// RestartScenario returns an error that makes the runner restart the current scenario.
func RestartScenario(cause error) error {
	return &RestartScenarioError{Cause: cause}
}

func (e *RestartScenarioError) Error() string {
	return fmt.Sprintf("restart scenario: %v", e.Cause)
}

func (e *RestartScenarioError) Unwrap() error {
	return e.Cause
}

// RestartStoryError asks the runner to run the current story again.
type RestartStoryError struct {
	Cause error
}

// RestartStory returns an error that makes the runner restart the current story.
func RestartStory(cause error) error {
	return &RestartStoryError{Cause: cause}
}

func (e *RestartStoryError) Error() string {
	return fmt.Sprintf("restart story: %v", e.Cause)
}

func (e *RestartStoryError) Unwrap() error {
	return e.Cause
}

// ObjectAlreadyStoredError is returned when a key is stored twice in the
// same scope.
type ObjectAlreadyStoredError struct {
	Key string
}

func (e *ObjectAlreadyStoredError) Error() string {
	return fmt.Sprintf("object with key %q is already stored", e.Key)
}

// ObjectNotStoredError is returned when a key is read before it is stored.
type ObjectNotStoredError struct {
	Key string
}

func (e *ObjectNotStoredError) Error() string {
	return fmt.Sprintf("object with key %q has not been stored", e.Key)
}
