// Package output renders story runs.
//
// ConsoleReporter is a reporter.StoryReporter that prints steps as they are
// performed and a summary at the end. The JSON, JUnit and TAP reporters
// build a document from the run results and write it on Flush.
package output
