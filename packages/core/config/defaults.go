package config

import "time"

const (
	DefaultThreads      = 1
	DefaultStoryTimeout = 5 * time.Minute
	DefaultMaxRestarts  = 2
	DefaultRestartDelay = 100 * time.Millisecond
)

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	return &Config{
		Threads:       DefaultThreads,
		StoryTimeout:  DefaultStoryTimeout.String(),
		MaxRestarts:   IntPtr(DefaultMaxRestarts),
		RestartDelay:  DefaultRestartDelay.String(),
		TieBreak:      "strict",
		Locale:        "en",
		DateLayout:    "2006-01-02",
		ListDelimiter: ",",
		Reporters:     []string{"console"},
	}
}

// IsDefault reports whether c matches DefaultConfig in the settings that
// change how stories run.
func (c *Config) IsDefault() bool {
	d := DefaultConfig()
	return c.Threads == d.Threads &&
		c.GetStoryTimeout() == d.GetStoryTimeout() &&
		c.GetMaxRestarts() == d.GetMaxRestarts() &&
		c.GetRestartDelay() == d.GetRestartDelay() &&
		!c.GetIgnoreFailureInStory() &&
		!c.GetIgnoreFailureInView() &&
		!c.GetSkipScenariosAfterFailure() &&
		!c.GetDryRun() &&
		c.MetaFilter == "" &&
		c.TieBreak == d.TieBreak &&
		c.Locale == d.Locale
}
