// Package runner executes stories against a step library.
//
// It provides functionality for:
//   - Loading and parsing stories and the given stories they reference
//   - Planning every story before any step runs, so ambiguous steps and
//     composite or given story cycles stop the run up front
//   - Running stories on a bounded worker pool with a timeout per story
//   - Lifecycle steps and hooks gated by the outcome of what they follow
//   - Meta filtering of stories, scenarios and examples rows
//   - Scenario and story restarts, paced by a rate limiter
//
// Events of each story are buffered and handed to the reporter in one
// piece, so stories running in parallel never interleave.
package runner
