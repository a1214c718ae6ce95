package runner

import (
	"time"

	"github.com/abdul-hamid-achik/storyspec/packages/core/config"
)

const (
	// DefaultThreads is the number of stories run at once.
	DefaultThreads = 1
	// DefaultStoryTimeout bounds a single story run.
	DefaultStoryTimeout = 300 * time.Second
	// DefaultMaxRestarts bounds scenario and story restarts.
	DefaultMaxRestarts = 2
	// DefaultRestartDelay is the minimum spacing between restarts.
	DefaultRestartDelay = 100 * time.Millisecond
)

// Config controls how stories run.
type Config struct {
	// IgnoreFailureInStory keeps performing steps after a failure. The
	// story is still reported failed.
	IgnoreFailureInStory bool
	// IgnoreFailureInView suppresses the run error when stories failed.
	IgnoreFailureInView bool
	// SkipScenariosAfterFailure stops running the scenarios of a story once
	// one of them failed.
	SkipScenariosAfterFailure bool
	StoryTimeout              time.Duration
	Threads                   int
	// DryRun matches every step but invokes no handler or hook.
	DryRun       bool
	MetaFilter   string
	MaxRestarts  int
	RestartDelay time.Duration
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() *Config {
	return &Config{
		StoryTimeout: DefaultStoryTimeout,
		Threads:      DefaultThreads,
		MaxRestarts:  DefaultMaxRestarts,
		RestartDelay: DefaultRestartDelay,
	}
}

func (c *Config) threads() int {
	if c.Threads <= 0 {
		return DefaultThreads
	}
	return c.Threads
}

// FromFile builds a runner configuration from a loaded configuration file.
func FromFile(c *config.Config) *Config {
	return &Config{
		IgnoreFailureInStory:      c.GetIgnoreFailureInStory(),
		IgnoreFailureInView:       c.GetIgnoreFailureInView(),
		SkipScenariosAfterFailure: c.GetSkipScenariosAfterFailure(),
		StoryTimeout:              c.GetStoryTimeout(),
		Threads:                   c.Threads,
		DryRun:                    c.GetDryRun(),
		MetaFilter:                c.MetaFilter,
		MaxRestarts:               c.GetMaxRestarts(),
		RestartDelay:              c.GetRestartDelay(),
	}
}
