// Package cmd implements the storyspec CLI commands using Cobra.
//
// Available commands:
//   - run: Run stories from .story files
//   - validate: Parse stories, and optionally match their steps, without running them
//   - list: Display the scenarios of each story
//   - steps: List the step patterns and functions stories can use
//   - init: Create a configuration file and an example story
//   - version: Show storyspec version information
//
// Flags fall back to STORYSPEC_* environment variables and override the
// configuration file.
package cmd
