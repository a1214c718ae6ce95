// Package steps matches story step text to registered Go handlers and
// runs them.
//
// It provides:
//   - A Registry builder that reflects over handler functions
//   - Candidate matching with priorities and a configurable tie-break
//   - Composite steps expanded at collection time, with a cycle guard
//   - Before and after hooks gated by outcome
//   - A scoped StepsContext for sharing values between steps
//   - Pending method suggestions for unmatched steps
//
// A Library built from a Registry is read-only and may be shared by
// concurrent story runs.
package steps
