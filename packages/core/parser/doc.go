// Package parser reads story files into the model.
//
// A story is written as plain text:
//   - an optional description, Meta:, Narrative: and GivenStories: header
//   - a Lifecycle: block with Before:/After: steps, Scope: and Outcome:
//   - Scenario: blocks with Meta:, GivenStories:, steps and Examples:
//
// Lines starting with Given, When, Then or And are steps. Following lines
// that start with no keyword continue the previous step (multi-line
// arguments such as tables). "!--" marks an ignorable step and "#" a comment.
package parser
