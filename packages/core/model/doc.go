// Package model holds the read-only story model produced by the parser.
//
// It provides:
//   - Story, Scenario, Narrative and Lifecycle
//   - Meta properties and MetaFilter expressions
//   - GivenStory references with parameter or examples-row anchors
//   - ExamplesTable parsing, rendering and row decoding
//   - Table transformers (FROM_LANDSCAPE, REPLACING)
package model
