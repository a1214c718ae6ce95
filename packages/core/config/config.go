package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

// Config is the storyspec configuration file. Durations are written as Go
// duration strings ("5m", "250ms").
type Config struct {
	StoryPaths                []string          `json:"storyPaths,omitempty" yaml:"storyPaths,omitempty"`
	Threads                   int               `json:"threads,omitempty" yaml:"threads,omitempty" default:"1" validate:"gte=1,lte=256"`
	StoryTimeout              string            `json:"storyTimeout,omitempty" yaml:"storyTimeout,omitempty" default:"5m" validate:"duration"`
	MaxRestarts               *int              `json:"maxRestarts,omitempty" yaml:"maxRestarts,omitempty" default:"2" validate:"omitempty,gte=0"`
	RestartDelay              string            `json:"restartDelay,omitempty" yaml:"restartDelay,omitempty" default:"100ms" validate:"duration"`
	IgnoreFailureInStory      *bool             `json:"ignoreFailureInStory,omitempty" yaml:"ignoreFailureInStory,omitempty"`
	IgnoreFailureInView       *bool             `json:"ignoreFailureInView,omitempty" yaml:"ignoreFailureInView,omitempty"`
	SkipScenariosAfterFailure *bool             `json:"skipScenariosAfterFailure,omitempty" yaml:"skipScenariosAfterFailure,omitempty"`
	DryRun                    *bool             `json:"dryRun,omitempty" yaml:"dryRun,omitempty"`
	MetaFilter                string            `json:"metaFilter,omitempty" yaml:"metaFilter,omitempty"`
	TieBreak                  string            `json:"tieBreak,omitempty" yaml:"tieBreak,omitempty" default:"strict" validate:"tiebreak"`
	Locale                    string            `json:"locale,omitempty" yaml:"locale,omitempty" default:"en" validate:"locale"`
	DateLayout                string            `json:"dateLayout,omitempty" yaml:"dateLayout,omitempty" default:"2006-01-02"`
	ListDelimiter             string            `json:"listDelimiter,omitempty" yaml:"listDelimiter,omitempty" default:","`
	Variables                 map[string]string `json:"variables,omitempty" yaml:"variables,omitempty"`
	EnvFiles                  []string          `json:"envFiles,omitempty" yaml:"envFiles,omitempty"`
	Reporters                 []string          `json:"reporters,omitempty" yaml:"reporters,omitempty" default:"[\"console\"]" validate:"dive,oneof=console json junit tap"`
	OutputDir                 string            `json:"outputDir,omitempty" yaml:"outputDir,omitempty"`
	MetricsFile               string            `json:"metricsFile,omitempty" yaml:"metricsFile,omitempty"`
	Verbose                   *bool             `json:"verbose,omitempty" yaml:"verbose,omitempty"`
	NoColor                   *bool             `json:"noColor,omitempty" yaml:"noColor,omitempty"`
	LogLevel                  string            `json:"logLevel,omitempty" yaml:"logLevel,omitempty" validate:"omitempty,oneof=trace debug info warn error disabled"`
	UpdateSnapshots           *bool             `json:"updateSnapshots,omitempty" yaml:"updateSnapshots,omitempty"`
	CoverageFile              string            `json:"coverageFile,omitempty" yaml:"coverageFile,omitempty"`
	Notify                    *NotifyConfig     `json:"notify,omitempty" yaml:"notify,omitempty"`

	// Source is the file the configuration was read from, if any.
	Source string `json:"-" yaml:"-"`
}

// NotifyConfig posts run results to chat webhooks.
type NotifyConfig struct {
	On           string `json:"on,omitempty" yaml:"on,omitempty" validate:"omitempty,oneof=always failure success recovery"`
	Suite        string `json:"suite,omitempty" yaml:"suite,omitempty"`
	SlackWebhook string `json:"slackWebhook,omitempty" yaml:"slackWebhook,omitempty" validate:"omitempty,url"`
	SlackChannel string `json:"slackChannel,omitempty" yaml:"slackChannel,omitempty"`
	TeamsWebhook string `json:"teamsWebhook,omitempty" yaml:"teamsWebhook,omitempty" validate:"omitempty,url"`
}

// IsEmpty reports whether no webhook is configured.
func (n *NotifyConfig) IsEmpty() bool {
	return n == nil || (n.SlackWebhook == "" && n.TeamsWebhook == "")
}

// BoolPtr returns a pointer to b, for building a Config in code
func BoolPtr(b bool) *bool {
	return &b
}

// IntPtr returns a pointer to i, for building a Config in code
func IntPtr(i int) *int {
	return &i
}

// getBool returns the value of a bool pointer, or the default if nil
func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetIgnoreFailureInStory returns whether story failures are ignored, defaulting to false
func (c *Config) GetIgnoreFailureInStory() bool {
	return getBool(c.IgnoreFailureInStory, false)
}

// GetIgnoreFailureInView returns whether failed stories still end the run without error, defaulting to false
func (c *Config) GetIgnoreFailureInView() bool {
	return getBool(c.IgnoreFailureInView, false)
}

// GetSkipScenariosAfterFailure returns the skip-after-failure setting, defaulting to false
func (c *Config) GetSkipScenariosAfterFailure() bool {
	return getBool(c.SkipScenariosAfterFailure, false)
}

// GetDryRun returns the dry run setting, defaulting to false
func (c *Config) GetDryRun() bool {
	return getBool(c.DryRun, false)
}

// GetVerbose returns the verbose setting, defaulting to false
func (c *Config) GetVerbose() bool {
	return getBool(c.Verbose, false)
}

// GetNoColor returns the no color setting, defaulting to false
func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

// GetUpdateSnapshots returns the update snapshots setting, defaulting to false
func (c *Config) GetUpdateSnapshots() bool {
	return getBool(c.UpdateSnapshots, false)
}

// GetMaxRestarts returns the restart limit, defaulting to DefaultMaxRestarts
func (c *Config) GetMaxRestarts() int {
	if c.MaxRestarts == nil {
		return DefaultMaxRestarts
	}
	return *c.MaxRestarts
}

// GetStoryTimeout returns the story timeout. Zero disables it.
func (c *Config) GetStoryTimeout() time.Duration {
	return parseDuration(c.StoryTimeout, DefaultStoryTimeout)
}

// GetRestartDelay returns the pause between restarts, defaulting to DefaultRestartDelay
func (c *Config) GetRestartDelay() time.Duration {
	return parseDuration(c.RestartDelay, DefaultRestartDelay)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// ConfigFilenames are searched in order.
var ConfigFilenames = []string{
	".storyspec.json",
	"storyspec.json",
	".storyspec.yaml",
	".storyspec.yml",
	"storyspec.yaml",
	"storyspec.yml",
}

// LoadConfig loads the file at path, or searches the current directory
// when path is empty.
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}
	return FindAndLoadConfig(".")
}

// FindAndLoadConfig loads the first config file found in dir, or returns
// the defaults.
func FindAndLoadConfig(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadConfigFromFile(configPath)
		}
	}
	return DefaultConfig(), nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// loadConfigFromFile checks the document against the schema, decodes it,
// fills in defaults and validates the result.
func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &FileError{Path: path, Err: err}
	}

	var document any
	if isYAML(path) {
		err = yaml.Unmarshal(data, &document)
	} else {
		err = json.Unmarshal(data, &document)
	}
	if err != nil {
		return nil, &FileError{Path: path, Err: err}
	}
	if document == nil {
		document = map[string]any{}
	}
	if err := validateSchema(document); err != nil {
		return nil, &FileError{Path: path, Err: err}
	}

	config := &Config{}
	if isYAML(path) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, &FileError{Path: path, Err: err}
	}
	if err := defaults.Set(config); err != nil {
		return nil, &FileError{Path: path, Err: fmt.Errorf("failed to apply default values: %w", err)}
	}
	if err := config.Validate(); err != nil {
		return nil, &FileError{Path: path, Err: err}
	}
	config.Source = path
	return config, nil
}

// Merge returns a copy of c with every field set in other taking
// precedence.
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}
	result := *c

	if len(other.StoryPaths) > 0 {
		result.StoryPaths = other.StoryPaths
	}
	if other.Threads > 0 {
		result.Threads = other.Threads
	}
	if other.StoryTimeout != "" {
		result.StoryTimeout = other.StoryTimeout
	}
	if other.MaxRestarts != nil {
		result.MaxRestarts = other.MaxRestarts
	}
	if other.RestartDelay != "" {
		result.RestartDelay = other.RestartDelay
	}
	if other.MetaFilter != "" {
		result.MetaFilter = other.MetaFilter
	}
	if other.TieBreak != "" {
		result.TieBreak = other.TieBreak
	}
	if other.Locale != "" {
		result.Locale = other.Locale
	}
	if other.DateLayout != "" {
		result.DateLayout = other.DateLayout
	}
	if other.ListDelimiter != "" {
		result.ListDelimiter = other.ListDelimiter
	}
	if other.OutputDir != "" {
		result.OutputDir = other.OutputDir
	}
	if other.MetricsFile != "" {
		result.MetricsFile = other.MetricsFile
	}
	if other.LogLevel != "" {
		result.LogLevel = other.LogLevel
	}
	if other.CoverageFile != "" {
		result.CoverageFile = other.CoverageFile
	}
	if other.Notify != nil {
		result.Notify = mergeNotify(result.Notify, other.Notify)
	}

	// Boolean flags only override when set explicitly
	if other.IgnoreFailureInStory != nil {
		result.IgnoreFailureInStory = other.IgnoreFailureInStory
	}
	if other.IgnoreFailureInView != nil {
		result.IgnoreFailureInView = other.IgnoreFailureInView
	}
	if other.SkipScenariosAfterFailure != nil {
		result.SkipScenariosAfterFailure = other.SkipScenariosAfterFailure
	}
	if other.DryRun != nil {
		result.DryRun = other.DryRun
	}
	if other.Verbose != nil {
		result.Verbose = other.Verbose
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}
	if other.UpdateSnapshots != nil {
		result.UpdateSnapshots = other.UpdateSnapshots
	}

	if len(other.Variables) > 0 {
		merged := make(map[string]string, len(result.Variables)+len(other.Variables))
		for k, v := range result.Variables {
			merged[k] = v
		}
		for k, v := range other.Variables {
			merged[k] = v
		}
		result.Variables = merged
	}
	if len(other.EnvFiles) > 0 {
		result.EnvFiles = other.EnvFiles
	}
	if len(other.Reporters) > 0 {
		result.Reporters = other.Reporters
	}
	return &result
}

func mergeNotify(base, other *NotifyConfig) *NotifyConfig {
	result := NotifyConfig{}
	if base != nil {
		result = *base
	}
	if other.On != "" {
		result.On = other.On
	}
	if other.Suite != "" {
		result.Suite = other.Suite
	}
	if other.SlackWebhook != "" {
		result.SlackWebhook = other.SlackWebhook
	}
	if other.SlackChannel != "" {
		result.SlackChannel = other.SlackChannel
	}
	if other.TeamsWebhook != "" {
		result.TeamsWebhook = other.TeamsWebhook
	}
	return &result
}

// SaveConfig writes the configuration as YAML or JSON, by file extension.
func (c *Config) SaveConfig(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
