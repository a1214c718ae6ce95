// Package reporter defines the StoryReporter event interface and the
// reporters that compose others: Delegating fans events out, Concurrent
// buffers the events of one story and replays them in order.
package reporter
